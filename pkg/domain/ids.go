package domain

import (
	"github.com/google/uuid"

	dErrors "sangha/pkg/domain-errors"
)

// Typed UUID wrappers keep person, namahatta, and transition identifiers from
// being mixed up at compile time. Construct via the Parse helpers at trust
// boundaries; direct casting bypasses validation.
type (
	PersonID     uuid.UUID
	NamahattaID  uuid.UUID
	TransitionID uuid.UUID
)

func (id PersonID) String() string     { return uuid.UUID(id).String() }
func (id NamahattaID) String() string  { return uuid.UUID(id).String() }
func (id TransitionID) String() string { return uuid.UUID(id).String() }

func (id PersonID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id NamahattaID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id TransitionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func (id PersonID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id NamahattaID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id TransitionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *PersonID) UnmarshalText(b []byte) error {
	parsed, err := ParsePersonID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *NamahattaID) UnmarshalText(b []byte) error {
	parsed, err := ParseNamahattaID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TransitionID) UnmarshalText(b []byte) error {
	parsed, err := ParseTransitionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewPersonID generates a fresh person identifier.
func NewPersonID() PersonID { return PersonID(uuid.New()) }

// NewNamahattaID generates a fresh namahatta identifier.
func NewNamahattaID() NamahattaID { return NamahattaID(uuid.New()) }

// NewTransitionID generates a fresh transition identifier.
func NewTransitionID() TransitionID { return TransitionID(uuid.New()) }

// ParsePersonID constructs a PersonID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParsePersonID(s string) (PersonID, error) {
	u, err := parseUUID(s, "person id")
	return PersonID(u), err
}

// ParseNamahattaID constructs a NamahattaID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseNamahattaID(s string) (NamahattaID, error) {
	u, err := parseUUID(s, "namahatta id")
	return NamahattaID(u), err
}

// ParseTransitionID constructs a TransitionID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseTransitionID(s string) (TransitionID, error) {
	u, err := parseUUID(s, "transition id")
	return TransitionID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be the nil UUID")
	}
	return u, nil
}
