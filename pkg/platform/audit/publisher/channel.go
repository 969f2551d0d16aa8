package publisher

import (
	"context"
	"log/slog"

	audit "sangha/pkg/platform/audit"
)

// ChannelPublisher hands events to an in-process worker over a buffered
// channel. Used when no broker is configured; a full inbox drops the event
// rather than stall the emitting operation.
type ChannelPublisher struct {
	inbox  chan<- audit.Event
	logger *slog.Logger
}

func NewChannel(inbox chan<- audit.Event, logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{inbox: inbox, logger: logger}
}

func (p *ChannelPublisher) Emit(ctx context.Context, event audit.Event) error {
	select {
	case p.inbox <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit inbox full, dropping event",
				"subject", event.Subject,
				"action", event.Action,
			)
		}
	}
	return nil
}
