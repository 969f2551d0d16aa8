// Package models defines the member directory's data shapes: devotee profiles
// and the namahatta centers they belong to.
package models

import (
	"strings"
	"time"

	"sangha/pkg/domain"
	dErrors "sangha/pkg/domain-errors"
	"sangha/pkg/email"
)

// Person is a devotee profile. Geography (namahatta, district, state) is what
// the eligibility evaluator matches candidates on, so it is kept denormalized
// on the profile.
type Person struct {
	ID          domain.PersonID     `json:"id"`
	DisplayName string              `json:"display_name"`
	LegalName   string              `json:"legal_name,omitempty"`
	Email       string              `json:"email,omitempty"`
	NamahattaID *domain.NamahattaID `json:"namahatta_id,omitempty"`
	District    string              `json:"district"`
	State       string              `json:"state"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewPerson validates and builds a profile. A blank display name falls back
// to a name derived from the email address when one is given.
func NewPerson(displayName, legalName, emailAddr, district, state string, namahattaID *domain.NamahattaID, now time.Time) (*Person, error) {
	displayName = strings.TrimSpace(displayName)
	emailAddr = strings.TrimSpace(emailAddr)
	if displayName == "" && emailAddr != "" {
		first, last := email.DeriveNameFromEmail(emailAddr)
		displayName = first + " " + last
	}
	if displayName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "display name cannot be empty")
	}
	if strings.TrimSpace(district) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "district cannot be empty")
	}
	if strings.TrimSpace(state) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "state cannot be empty")
	}
	return &Person{
		ID:          domain.NewPersonID(),
		DisplayName: displayName,
		LegalName:   strings.TrimSpace(legalName),
		Email:       emailAddr,
		NamahattaID: namahattaID,
		District:    strings.TrimSpace(district),
		State:       strings.TrimSpace(state),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyUpdate mutates the editable profile fields.
func (p *Person) ApplyUpdate(displayName, legalName, emailAddr, district, state string, namahattaID *domain.NamahattaID, now time.Time) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return dErrors.New(dErrors.CodeValidation, "display name cannot be empty")
	}
	if strings.TrimSpace(district) == "" {
		return dErrors.New(dErrors.CodeValidation, "district cannot be empty")
	}
	if strings.TrimSpace(state) == "" {
		return dErrors.New(dErrors.CodeValidation, "state cannot be empty")
	}
	p.DisplayName = displayName
	p.LegalName = strings.TrimSpace(legalName)
	p.Email = strings.TrimSpace(emailAddr)
	p.District = strings.TrimSpace(district)
	p.State = strings.TrimSpace(state)
	p.NamahattaID = namahattaID
	p.UpdatedAt = now
	return nil
}

// Namahatta is a local congregation center.
type Namahatta struct {
	ID        domain.NamahattaID `json:"id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	District  string             `json:"district"`
	State     string             `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewNamahatta validates and builds a center. Code is the stable external
// identifier used as the scope value for upa-chakra seats.
func NewNamahatta(code, name, district, state string, now time.Time) (*Namahatta, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "code cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if strings.TrimSpace(district) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "district cannot be empty")
	}
	if strings.TrimSpace(state) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "state cannot be empty")
	}
	return &Namahatta{
		ID:        domain.NewNamahattaID(),
		Code:      code,
		Name:      strings.TrimSpace(name),
		District:  strings.TrimSpace(district),
		State:     strings.TrimSpace(state),
		CreatedAt: now,
	}, nil
}
