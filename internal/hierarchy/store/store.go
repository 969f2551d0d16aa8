// Package store persists the leadership hierarchy forest.
package store

import (
	"context"

	"sangha/internal/hierarchy/models"
	"sangha/pkg/domain"
)

// Store is the hierarchy persistence boundary. Reads return
// sentinel.ErrNotFound for unoccupied seats. Apply validates the changeset
// against the prospective state and mutates all-or-nothing; a structurally
// invalid result returns sentinel.ErrInvalidState and leaves the store
// untouched.
type Store interface {
	HolderOf(ctx context.Context, personID domain.PersonID) (*models.Holder, error)
	HolderOfSlot(ctx context.Context, key models.SlotKey) (*models.Holder, error)
	Subordinates(ctx context.Context, personID domain.PersonID) ([]*models.Holder, error)
	Snapshot(ctx context.Context) ([]*models.Holder, error)
	Apply(ctx context.Context, changeset models.Changeset) error
}
