// Package store persists the append-only transition ledger.
package store

import (
	"context"

	"sangha/internal/ledger/models"
	"sangha/pkg/domain"
)

// Store is the ledger persistence boundary. Append is called only from inside
// the succession engine's commit unit; reads are unrestricted.
type Store interface {
	Append(ctx context.Context, record *models.TransitionRecord) error
	ByPerson(ctx context.Context, personID domain.PersonID) ([]*models.TransitionRecord, error)
}
