// Package service implements the succession engine: the only write path into
// the leadership hierarchy. Every operation locks the person ids it touches,
// validates against live state inside the commit unit, and lands its store
// mutation and ledger records together or not at all.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sangha/internal/eligibility"
	hiermodels "sangha/internal/hierarchy/models"
	hierservice "sangha/internal/hierarchy/service"
	hierstore "sangha/internal/hierarchy/store"
	ledgermodels "sangha/internal/ledger/models"
	ledgerstore "sangha/internal/ledger/store"
	"sangha/internal/succession/metrics"
	"sangha/pkg/domain"
	dErrors "sangha/pkg/domain-errors"
	"sangha/pkg/keylock"
	"sangha/pkg/platform/audit"
	"sangha/pkg/platform/sentinel"
	"sangha/pkg/platform/tx"
	"sangha/pkg/requestcontext"
)

const tracerName = "sangha/succession"

type Service struct {
	hierarchy hierstore.Store
	ledger    ledgerstore.Store
	evaluator *eligibility.Evaluator
	locks     *keylock.Guard
	runner    tx.Runner
	chart     *hierservice.Service
	metrics   *metrics.Metrics
	publisher audit.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithChartInvalidation drops the cached hierarchy chart after every
// committed transition.
func WithChartInvalidation(chart *hierservice.Service) Option {
	return func(s *Service) { s.chart = chart }
}

func New(hierarchy hierstore.Store, ledger ledgerstore.Store, evaluator *eligibility.Evaluator, locks *keylock.Guard, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		hierarchy: hierarchy,
		ledger:    ledger,
		evaluator: evaluator,
		locks:     locks,
		runner:    runner,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppointInput names the seat a person takes.
type AppointInput struct {
	PersonID   domain.PersonID
	Role       domain.Role
	ScopeValue string
	SuperiorID *domain.PersonID
}

// Appoint seats a person who currently holds no role.
//
// Errors: CodeInvalidTransition when the person already holds a seat, the
// seat is occupied, or the superior cannot take reports for this role;
// CodeNotEligible when the candidate fails eligibility; CodeBusy when an
// overlapping transition is in flight.
func (s *Service) Appoint(ctx context.Context, input AppointInput) (*ledgermodels.TransitionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "succession.Appoint", trace.WithAttributes(
		attribute.String("person_id", input.PersonID.String()),
		attribute.String("role", input.Role.String()),
	))
	defer span.End()

	keys := append(keysFor(input.PersonID, input.SuperiorID, nil), slotLockKey(input.Role, input.ScopeValue))
	records, err := s.run(ctx, "appoint", keys, func(ctx context.Context) ([]*ledgermodels.TransitionRecord, error) {
		if _, err := s.hierarchy.HolderOf(ctx, input.PersonID); err == nil {
			return nil, dErrors.New(dErrors.CodeInvalidTransition, "person already holds a leadership seat")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load holder")
		}

		holder, err := hiermodels.NewHolder(input.PersonID, input.Role, input.ScopeValue, input.SuperiorID)
		if err != nil {
			return nil, err
		}

		if _, err := s.hierarchy.HolderOfSlot(ctx, holder.SlotKey()); err == nil {
			return nil, dErrors.New(dErrors.CodeInvalidTransition, "seat is already occupied")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load seat")
		}

		if input.SuperiorID != nil {
			superior, err := s.hierarchy.HolderOf(ctx, *input.SuperiorID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return nil, dErrors.New(dErrors.CodeInvalidTransition, "superior holds no leadership seat")
				}
				return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load superior")
			}
			if !superior.Role.IsSuperiorTo(input.Role) {
				return nil, dErrors.New(dErrors.CodeInvalidTransition, "superior's role is not senior to the appointed role")
			}
		}

		if err := s.evaluator.CheckCandidate(ctx, input.PersonID, holder); err != nil {
			return nil, err
		}

		record, err := s.newRecord(ctx, input.PersonID, nil, &input.Role, ledgermodels.ReasonAppointment, nil)
		if err != nil {
			return nil, err
		}

		var changeset hiermodels.Changeset
		changeset.Set(holder)
		if err := s.commit(ctx, changeset, record); err != nil {
			return nil, err
		}
		return []*ledgermodels.TransitionRecord{record}, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, audit.EventAppointmentRecorded, records[0])
	return records[0], nil
}

// Remove vacates a person's seat. Their direct subordinates are reparented to
// the removed holder's own superior in the same commit.
//
// Errors: CodeInvalidTransition when the person holds no seat, or holds the
// topmost role while subordinates remain; CodeBusy on lock contention.
func (s *Service) Remove(ctx context.Context, personID domain.PersonID, reason ledgermodels.Reason) (*ledgermodels.TransitionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "succession.Remove", trace.WithAttributes(
		attribute.String("person_id", personID.String()),
		attribute.String("reason", reason.String()),
	))
	defer span.End()

	if reason != ledgermodels.ReasonRemoval && reason != ledgermodels.ReasonResignation {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "removal reason must be REMOVAL or RESIGNATION")
	}

	holder, subordinates, err := s.seatAndSubordinates(ctx, personID)
	if err != nil {
		return nil, err
	}
	keys := keysFor(personID, holder.SuperiorID, subordinates)

	records, err := s.run(ctx, "remove", keys, func(ctx context.Context) ([]*ledgermodels.TransitionRecord, error) {
		holder, subordinates, err := s.seatAndSubordinates(ctx, personID)
		if err != nil {
			return nil, err
		}
		if !coveredBy(keysFor(personID, holder.SuperiorID, subordinates), keys) {
			return nil, dErrors.New(dErrors.CodeBusy, "hierarchy changed during lock acquisition")
		}
		if holder.Role.IsTop() && len(subordinates) > 0 {
			return nil, dErrors.New(dErrors.CodeInvalidTransition, "topmost holder with subordinates must be replaced, not removed")
		}

		var changeset hiermodels.Changeset
		changeset.Clear(personID)
		for _, sub := range subordinates {
			reparented := *sub
			reparented.SuperiorID = holder.SuperiorID
			changeset.Set(&reparented)
		}

		record, err := s.newRecord(ctx, personID, &holder.Role, nil, reason, nil)
		if err != nil {
			return nil, err
		}
		if err := s.commit(ctx, changeset, record); err != nil {
			return nil, err
		}
		return []*ledgermodels.TransitionRecord{record}, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, audit.EventRemovalRecorded, records[0])
	return records[0], nil
}

// Replace seats a successor in the vacating person's role, scope, and
// reporting line, and reparents the vacating holder's subordinates to the
// successor. Two mutually consistent records land in the ledger; the vacating
// one is returned.
//
// Errors: CodeInvalidTransition when the vacating person holds no seat;
// CodeNotEligible when the successor fails eligibility; CodeBusy on lock
// contention.
func (s *Service) Replace(ctx context.Context, vacatingID, successorID domain.PersonID) (*ledgermodels.TransitionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "succession.Replace", trace.WithAttributes(
		attribute.String("vacating_id", vacatingID.String()),
		attribute.String("successor_id", successorID.String()),
	))
	defer span.End()

	if vacatingID == successorID {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "a person cannot replace themselves")
	}

	holder, subordinates, err := s.seatAndSubordinates(ctx, vacatingID)
	if err != nil {
		return nil, err
	}

	keys := keysFor(vacatingID, holder.SuperiorID, subordinates)
	keys = append(keys, successorID.String(), slotLockKey(holder.Role, holder.ScopeValue))

	records, err := s.run(ctx, "replace", keys, func(ctx context.Context) ([]*ledgermodels.TransitionRecord, error) {
		holder, subordinates, err := s.seatAndSubordinates(ctx, vacatingID)
		if err != nil {
			return nil, err
		}
		required := append(keysFor(vacatingID, holder.SuperiorID, subordinates), slotLockKey(holder.Role, holder.ScopeValue))
		if !coveredBy(required, keys) {
			return nil, dErrors.New(dErrors.CodeBusy, "hierarchy changed during lock acquisition")
		}

		// Eligibility holds only while the lock does; check it inside.
		if err := s.evaluator.CheckCandidate(ctx, successorID, holder); err != nil {
			return nil, err
		}

		successor := &hiermodels.Holder{
			PersonID:   successorID,
			Role:       holder.Role,
			ScopeValue: holder.ScopeValue,
			SuperiorID: holder.SuperiorID,
		}

		var changeset hiermodels.Changeset
		changeset.Clear(vacatingID)
		changeset.Set(successor)
		for _, sub := range subordinates {
			reparented := *sub
			reparented.SuperiorID = &successor.PersonID
			changeset.Set(&reparented)
		}

		vacatingRecord, err := s.newRecord(ctx, vacatingID, &holder.Role, nil, ledgermodels.ReasonReplacement, &successorID)
		if err != nil {
			return nil, err
		}
		successorRecord, err := s.newRecord(ctx, successorID, nil, &holder.Role, ledgermodels.ReasonReplacement, nil)
		if err != nil {
			return nil, err
		}
		if err := s.commit(ctx, changeset, vacatingRecord, successorRecord); err != nil {
			return nil, err
		}
		return []*ledgermodels.TransitionRecord{vacatingRecord, successorRecord}, nil
	})
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		s.afterCommit(ctx, audit.EventReplacementRecorded, record)
	}
	return records[0], nil
}

// History returns a person's transitions ascending by timestamp. The read
// runs inside the runner's read section so an in-flight commit is seen whole
// or not at all.
func (s *Service) History(ctx context.Context, personID domain.PersonID) ([]*ledgermodels.TransitionRecord, error) {
	var records []*ledgermodels.TransitionRecord
	err := s.runner.RunInReadTx(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.ledger.ByPerson(ctx, personID)
		return err
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load transition history")
	}
	return records, nil
}

// Replacements returns the ranked successors for the person's current seat.
func (s *Service) Replacements(ctx context.Context, personID domain.PersonID) ([]eligibility.Candidate, error) {
	var candidates []eligibility.Candidate
	err := s.runner.RunInReadTx(ctx, func(ctx context.Context) error {
		var err error
		candidates, err = s.evaluator.FindReplacements(ctx, personID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// run wraps an operation with lock acquisition, the commit unit, metrics, and
// error translation.
func (s *Service) run(ctx context.Context, operation string, keys []string, fn func(ctx context.Context) ([]*ledgermodels.TransitionRecord, error)) ([]*ledgermodels.TransitionRecord, error) {
	start := time.Now()

	release, err := s.locks.Acquire(ctx, keys)
	if err != nil {
		s.observe(operation, "busy", start)
		if errors.Is(err, sentinel.ErrBusy) {
			return nil, dErrors.New(dErrors.CodeBusy, "an overlapping transition is in flight")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "acquire transition locks")
	}
	defer release()

	var records []*ledgermodels.TransitionRecord
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		records, err = fn(ctx)
		return err
	})
	if err != nil {
		s.observe(operation, "error", start)
		return nil, translate(err)
	}

	s.observe(operation, "ok", start)
	return records, nil
}

// commit applies the hierarchy changeset and appends the records. Callers run
// it inside the Runner's transaction, so the pair is atomic.
func (s *Service) commit(ctx context.Context, changeset hiermodels.Changeset, records ...*ledgermodels.TransitionRecord) error {
	if err := s.hierarchy.Apply(ctx, changeset); err != nil {
		return err
	}
	for _, record := range records {
		if err := s.ledger.Append(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) newRecord(ctx context.Context, personID domain.PersonID, previous, next *domain.Role, reason ledgermodels.Reason, replacedBy *domain.PersonID) (*ledgermodels.TransitionRecord, error) {
	record, err := ledgermodels.NewTransitionRecord(personID, previous, next, reason, replacedBy, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	record.ActorID = requestcontext.ActorID(ctx)
	record.RequestID = requestcontext.RequestID(ctx)
	return record, nil
}

func (s *Service) seatAndSubordinates(ctx context.Context, personID domain.PersonID) (*hiermodels.Holder, []*hiermodels.Holder, error) {
	holder, err := s.hierarchy.HolderOf(ctx, personID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeInvalidTransition, "person holds no leadership seat")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load holder")
	}
	subordinates, err := s.hierarchy.Subordinates(ctx, personID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load subordinates")
	}
	return holder, subordinates, nil
}

func (s *Service) afterCommit(ctx context.Context, action audit.AuditEvent, record *ledgermodels.TransitionRecord) {
	if s.chart != nil {
		s.chart.InvalidateChart(ctx)
	}
	if s.publisher == nil {
		return
	}
	detail := ""
	if record.NewRole != nil {
		detail = record.NewRole.String()
	} else if record.PreviousRole != nil {
		detail = record.PreviousRole.String()
	}
	event := audit.NewEvent(ctx, action, record.PersonID.String(), record.Reason.String(), detail)
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func (s *Service) observe(operation, outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.TransitionsTotal.WithLabelValues(operation, outcome).Inc()
	s.metrics.TransitionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// translate maps store sentinels that escape the commit unit to coded errors.
func translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "transition would corrupt the hierarchy")
	case errors.Is(err, sentinel.ErrBusy):
		return dErrors.New(dErrors.CodeBusy, "an overlapping transition is in flight")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable")
	default:
		return err
	}
}

// slotLockKey serializes claims on one (role, scope value) seat. Person keys
// alone cannot: two appointments into the same empty slot touch disjoint
// people, and without this key the loser would only trip the store's forest
// validation.
func slotLockKey(role domain.Role, scopeValue string) string {
	return "slot:" + role.String() + "/" + scopeValue
}

// keysFor builds the lock key set for a transition around one person.
func keysFor(personID domain.PersonID, superiorID *domain.PersonID, subordinates []*hiermodels.Holder) []string {
	keys := []string{personID.String()}
	if superiorID != nil {
		keys = append(keys, superiorID.String())
	}
	for _, sub := range subordinates {
		keys = append(keys, sub.PersonID.String())
	}
	return keys
}

// coveredBy reports whether every key a post-lock read requires was part of
// the locked set. The pre-lock read that chose the keys may have raced
// another transition; an uncovered key means the operation must retry.
func coveredBy(required, locked []string) bool {
	have := make(map[string]struct{}, len(locked))
	for _, k := range locked {
		have[k] = struct{}{}
	}
	for _, k := range required {
		if _, ok := have[k]; !ok {
			return false
		}
	}
	return true
}
