// Package store persists the member directory.
package store

import (
	"context"

	"sangha/internal/directory/models"
	"sangha/pkg/domain"
)

// PersonFilter narrows List results. Zero values mean "no constraint".
type PersonFilter struct {
	District  string
	State     string
	Namahatta *domain.NamahattaID
}

// Store is the directory persistence boundary. Lookups return
// sentinel.ErrNotFound for unknown identifiers; CreateNamahatta returns
// sentinel.ErrAlreadyUsed when the code is taken.
type Store interface {
	CreatePerson(ctx context.Context, person *models.Person) error
	UpdatePerson(ctx context.Context, person *models.Person) error
	PersonByID(ctx context.Context, id domain.PersonID) (*models.Person, error)
	ListPeople(ctx context.Context, filter PersonFilter) ([]*models.Person, error)

	CreateNamahatta(ctx context.Context, namahatta *models.Namahatta) error
	NamahattaByID(ctx context.Context, id domain.NamahattaID) (*models.Namahatta, error)
	ListNamahattas(ctx context.Context) ([]*models.Namahatta, error)
}
