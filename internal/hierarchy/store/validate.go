package store

import (
	"fmt"

	"sangha/internal/hierarchy/models"
	"sangha/pkg/domain"
	"sangha/pkg/platform/sentinel"
)

// validateForest checks a prospective hierarchy state as a whole. Both store
// implementations run it before mutating, so no sequence of changesets can
// commit a broken forest.
func validateForest(holders map[domain.PersonID]*models.Holder) error {
	slots := make(map[models.SlotKey]domain.PersonID, len(holders))
	for personID, h := range holders {
		if h.PersonID != personID {
			return fmt.Errorf("%w: holder keyed under wrong person", sentinel.ErrInvalidState)
		}
		key := h.SlotKey()
		if other, taken := slots[key]; taken && other != personID {
			return fmt.Errorf("%w: seat %s/%s held twice", sentinel.ErrInvalidState, key.Role, key.ScopeValue)
		}
		slots[key] = personID
	}

	maxDepth := len(domain.RolesBySeniority())
	for _, h := range holders {
		if h.Role.IsTop() {
			if h.SuperiorID != nil {
				return fmt.Errorf("%w: topmost holder has a superior", sentinel.ErrInvalidState)
			}
			continue
		}
		if h.SuperiorID == nil {
			return fmt.Errorf("%w: holder %s has no superior", sentinel.ErrInvalidState, h.PersonID)
		}
		superior, ok := holders[*h.SuperiorID]
		if !ok {
			return fmt.Errorf("%w: superior of %s holds no seat", sentinel.ErrInvalidState, h.PersonID)
		}
		if !superior.Role.IsSuperiorTo(h.Role) {
			return fmt.Errorf("%w: %s reports to a non-senior role", sentinel.ErrInvalidState, h.PersonID)
		}

		// Role ordering already rules out cycles; the bounded walk guards
		// against a corrupted map reaching the store anyway.
		current := h
		for depth := 0; current.SuperiorID != nil; depth++ {
			if depth >= maxDepth {
				return fmt.Errorf("%w: reporting chain from %s exceeds ladder depth", sentinel.ErrInvalidState, h.PersonID)
			}
			next, ok := holders[*current.SuperiorID]
			if !ok {
				break
			}
			current = next
		}
	}
	return nil
}

// prospective overlays a changeset on the current state without mutating it.
func prospective(current map[domain.PersonID]*models.Holder, changeset models.Changeset) map[domain.PersonID]*models.Holder {
	next := make(map[domain.PersonID]*models.Holder, len(current)+len(changeset.Changes))
	for id, h := range current {
		next[id] = h
	}
	for _, change := range changeset.Changes {
		if change.Holder == nil {
			delete(next, change.PersonID)
			continue
		}
		copied := *change.Holder
		next[change.PersonID] = &copied
	}
	return next
}
