package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into coded
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrAlreadyUsed: slot or unique key already occupied
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrBusy: a conflicting operation holds the keys this one needs
// - ErrUnavailable: backing storage temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrBusy         = errors.New("busy")
	ErrUnavailable  = errors.New("unavailable")
)
