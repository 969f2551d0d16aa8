package audit

import "context"

// Store persists audit events. The audit trail is observational: failures are
// logged, never allowed to fail the domain operation that emitted the event
// (the transition ledger, not this store, is the system of record).
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
