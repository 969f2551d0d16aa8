package models

import (
	"time"

	"sangha/pkg/domain"
	dErrors "sangha/pkg/domain-errors"
)

// Reason classifies why a leadership transition happened.
type Reason string

const (
	ReasonAppointment Reason = "APPOINTMENT"
	ReasonRemoval     Reason = "REMOVAL"
	ReasonReplacement Reason = "REPLACEMENT"
	ReasonResignation Reason = "RESIGNATION"
)

var validReasons = map[Reason]bool{
	ReasonAppointment: true,
	ReasonRemoval:     true,
	ReasonReplacement: true,
	ReasonResignation: true,
}

// ParseReason constructs a Reason from external input.
// Errors: CodeInvalidInput when the value is empty or unknown.
func ParseReason(s string) (Reason, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "reason cannot be empty")
	}
	r := Reason(s)
	if !validReasons[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown reason")
	}
	return r, nil
}

func (r Reason) IsValid() bool { return validReasons[r] }
func (r Reason) String() string { return string(r) }

// TransitionRecord is one immutable entry in the succession ledger.
//
// Invariants:
//   - PreviousRole and NewRole are never both nil
//   - PreviousRole == nil marks entry into leadership; NewRole == nil marks exit
//   - ReplacedBy is set only on the vacating side of a replacement
//   - Records are appended by the succession engine's commit path and never
//     rewritten; corrections are themselves new transitions
type TransitionRecord struct {
	ID           domain.TransitionID `json:"id"`
	Timestamp    time.Time           `json:"timestamp"`
	PersonID     domain.PersonID     `json:"person_id"`
	PreviousRole *domain.Role        `json:"previous_role"`
	NewRole      *domain.Role        `json:"new_role"`
	Reason       Reason              `json:"reason"`
	ReplacedBy   *domain.PersonID    `json:"replaced_by"`
	ActorID      string              `json:"actor_id,omitempty"`
	RequestID    string              `json:"request_id,omitempty"`
}

// NewTransitionRecord validates and builds a record.
func NewTransitionRecord(personID domain.PersonID, previous, next *domain.Role, reason Reason, replacedBy *domain.PersonID, now time.Time) (*TransitionRecord, error) {
	if personID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "transition requires a person id")
	}
	if previous == nil && next == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "transition must change a role")
	}
	if previous != nil && !previous.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "previous role is not in the catalog")
	}
	if next != nil && !next.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "new role is not in the catalog")
	}
	if !reason.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "reason is not in the catalog")
	}
	if replacedBy != nil && next != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "replaced_by belongs on the vacating record only")
	}
	return &TransitionRecord{
		ID:           domain.NewTransitionID(),
		Timestamp:    now,
		PersonID:     personID,
		PreviousRole: previous,
		NewRole:      next,
		Reason:       reason,
		ReplacedBy:   replacedBy,
	}, nil
}
