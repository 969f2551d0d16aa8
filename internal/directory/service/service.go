// Package service implements the member directory operations.
package service

import (
	"context"
	"errors"
	"log/slog"

	"sangha/internal/directory/models"
	"sangha/internal/directory/store"
	"sangha/pkg/domain"
	dErrors "sangha/pkg/domain-errors"
	"sangha/pkg/platform/audit"
	"sangha/pkg/platform/sentinel"
	"sangha/pkg/requestcontext"
)

type Service struct {
	store     store.Store
	logger    *slog.Logger
	publisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePersonInput carries the profile fields accepted at creation.
type CreatePersonInput struct {
	DisplayName string
	LegalName   string
	Email       string
	District    string
	State       string
	NamahattaID *domain.NamahattaID
}

func (s *Service) CreatePerson(ctx context.Context, input CreatePersonInput) (*models.Person, error) {
	if input.NamahattaID != nil {
		if _, err := s.namahatta(ctx, *input.NamahattaID); err != nil {
			return nil, err
		}
	}

	person, err := models.NewPerson(input.DisplayName, input.LegalName, input.Email, input.District, input.State, input.NamahattaID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreatePerson(ctx, person); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "create person")
	}

	s.emit(ctx, audit.EventPersonCreated, person.ID.String(), person.District)
	return person, nil
}

func (s *Service) UpdatePerson(ctx context.Context, id domain.PersonID, input CreatePersonInput) (*models.Person, error) {
	person, err := s.Person(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.NamahattaID != nil {
		if _, err := s.namahatta(ctx, *input.NamahattaID); err != nil {
			return nil, err
		}
	}
	if err := person.ApplyUpdate(input.DisplayName, input.LegalName, input.Email, input.District, input.State, input.NamahattaID, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePerson(ctx, person); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "person not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "update person")
	}

	s.emit(ctx, audit.EventPersonUpdated, person.ID.String(), person.District)
	return person, nil
}

func (s *Service) Person(ctx context.Context, id domain.PersonID) (*models.Person, error) {
	person, err := s.store.PersonByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "person not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load person")
	}
	return person, nil
}

func (s *Service) ListPeople(ctx context.Context, filter store.PersonFilter) ([]*models.Person, error) {
	people, err := s.store.ListPeople(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list people")
	}
	return people, nil
}

// CreateNamahattaInput carries the center fields accepted at creation.
type CreateNamahattaInput struct {
	Code     string
	Name     string
	District string
	State    string
}

func (s *Service) CreateNamahatta(ctx context.Context, input CreateNamahattaInput) (*models.Namahatta, error) {
	namahatta, err := models.NewNamahatta(input.Code, input.Name, input.District, input.State, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateNamahatta(ctx, namahatta); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "namahatta code already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "create namahatta")
	}

	s.emit(ctx, audit.EventNamahattaCreated, namahatta.ID.String(), namahatta.Code)
	return namahatta, nil
}

func (s *Service) Namahatta(ctx context.Context, id domain.NamahattaID) (*models.Namahatta, error) {
	return s.namahatta(ctx, id)
}

func (s *Service) ListNamahattas(ctx context.Context) ([]*models.Namahatta, error) {
	namahattas, err := s.store.ListNamahattas(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list namahattas")
	}
	return namahattas, nil
}

func (s *Service) namahatta(ctx context.Context, id domain.NamahattaID) (*models.Namahatta, error) {
	namahatta, err := s.store.NamahattaByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "namahatta not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load namahatta")
	}
	return namahatta, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject, detail string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, audit.NewEvent(ctx, action, subject, "", detail)); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}
