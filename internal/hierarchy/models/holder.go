// Package models defines the leadership hierarchy's data shapes. The
// hierarchy is a forest of reporting edges: every edge runs from a holder to
// a strictly more senior holder, so cycles cannot form.
package models

import (
	"sangha/pkg/domain"
	dErrors "sangha/pkg/domain-errors"
)

// Holder is one occupied leadership seat.
//
// Invariants:
//   - ScopeValue names the geography the seat covers, at the granularity the
//     role requires (state, district, or namahatta code)
//   - SuperiorID is nil exactly when the role is the topmost one
//   - at most one holder exists per (role, scope value) pair
type Holder struct {
	PersonID   domain.PersonID  `json:"person_id"`
	Role       domain.Role      `json:"role"`
	ScopeValue string           `json:"scope_value"`
	SuperiorID *domain.PersonID `json:"superior_id,omitempty"`
}

// NewHolder validates and builds a seat assignment.
func NewHolder(personID domain.PersonID, role domain.Role, scopeValue string, superiorID *domain.PersonID) (*Holder, error) {
	if personID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "holder requires a person id")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "role is not in the catalog")
	}
	if scopeValue == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "scope value cannot be empty")
	}
	if role.IsTop() {
		if superiorID != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "topmost role reports to nobody")
		}
	} else if superiorID == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "non-topmost role requires a superior")
	}
	if superiorID != nil && *superiorID == personID {
		return nil, dErrors.New(dErrors.CodeValidation, "holder cannot report to themselves")
	}
	return &Holder{PersonID: personID, Role: role, ScopeValue: scopeValue, SuperiorID: superiorID}, nil
}

// SlotKey identifies the unique seat a holder occupies.
func (h *Holder) SlotKey() SlotKey {
	return SlotKey{Role: h.Role, ScopeValue: h.ScopeValue}
}

// SlotKey is the uniqueness key for a leadership seat.
type SlotKey struct {
	Role       domain.Role
	ScopeValue string
}

// Change is one holder-level mutation within a changeset. A nil Holder clears
// the person's seat; otherwise the person's seat becomes exactly Holder.
type Change struct {
	PersonID domain.PersonID
	Holder   *Holder
}

// Changeset is the unit the store applies atomically: validated as a whole
// against the prospective state, then applied in full or not at all.
type Changeset struct {
	Changes []Change
}

// Set records that the person's seat becomes holder.
func (c *Changeset) Set(holder *Holder) {
	c.Changes = append(c.Changes, Change{PersonID: holder.PersonID, Holder: holder})
}

// Clear records that the person leaves leadership.
func (c *Changeset) Clear(personID domain.PersonID) {
	c.Changes = append(c.Changes, Change{PersonID: personID})
}

// ChartLevel groups the chart's holders for one rung of the ladder.
type ChartLevel struct {
	Role    domain.Role `json:"role"`
	Holders []*Holder   `json:"holders"`
}

// Chart is the full hierarchy snapshot grouped by seniority, most senior
// level first. Holders within a level are sorted by scope value then person id
// so the rendering is deterministic.
type Chart struct {
	Levels []ChartLevel `json:"levels"`
}
