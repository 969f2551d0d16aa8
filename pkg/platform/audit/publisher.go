package audit

import (
	"context"

	"sangha/pkg/requestcontext"
)

// Publisher is the sink services emit events through. Implementations must be
// best-effort: emitting never blocks or fails the surrounding operation.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// NewEvent builds an event for the given action, pulling actor, request id,
// and time from the request context.
func NewEvent(ctx context.Context, action AuditEvent, subject, reason, detail string) Event {
	return Event{
		Category:  action.Category(),
		Timestamp: requestcontext.Now(ctx),
		Subject:   subject,
		Action:    string(action),
		Reason:    reason,
		Detail:    detail,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.ActorID(ctx),
	}
}
