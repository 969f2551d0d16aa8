package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sangha/internal/directory/store"
	"sangha/pkg/domain"
	dErrors "sangha/pkg/domain-errors"
	"sangha/pkg/platform/audit"
	auditmemory "sangha/pkg/platform/audit/store/memory"
	"sangha/pkg/requestcontext"
)

// memoryPublisher persists emitted events so tests can assert on them.
type memoryPublisher struct {
	store *auditmemory.InMemoryStore
}

func (p *memoryPublisher) Emit(ctx context.Context, event audit.Event) error {
	return p.store.Append(ctx, event)
}

type ServiceSuite struct {
	suite.Suite
	service *Service
	events  *auditmemory.InMemoryStore
	ctx     context.Context
	now     time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.events = auditmemory.NewInMemoryStore()
	s.service = New(store.NewMemoryStore(), WithAuditPublisher(&memoryPublisher{store: s.events}))
	s.now = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestCreatePersonEmitsAudit() {
	person, err := s.service.CreatePerson(s.ctx, CreatePersonInput{
		DisplayName: "Gaura Das", District: "Nadia", State: "West Bengal",
	})
	s.Require().NoError(err)
	s.Equal(s.now, person.CreatedAt)

	events, err := s.events.ListBySubject(s.ctx, person.ID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventPersonCreated), events[0].Action)
	s.Equal(audit.CategoryOperations, events[0].Category)
}

func (s *ServiceSuite) TestCreatePersonRejectsBlankName() {
	_, err := s.service.CreatePerson(s.ctx, CreatePersonInput{
		DisplayName: "  ", District: "Nadia", State: "West Bengal",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestCreatePersonRejectsUnknownNamahatta() {
	ghost := domain.NewNamahattaID()
	_, err := s.service.CreatePerson(s.ctx, CreatePersonInput{
		DisplayName: "Gaura Das", District: "Nadia", State: "West Bengal", NamahattaID: &ghost,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestUpdatePerson() {
	person, err := s.service.CreatePerson(s.ctx, CreatePersonInput{
		DisplayName: "Gaura Das", District: "Nadia", State: "West Bengal",
	})
	s.Require().NoError(err)

	later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
	updated, err := s.service.UpdatePerson(later, person.ID, CreatePersonInput{
		DisplayName: "Gaura Das", District: "Hooghly", State: "West Bengal",
	})
	s.Require().NoError(err)
	s.Equal("Hooghly", updated.District)
	s.Equal(s.now.Add(time.Hour), updated.UpdatedAt)
	s.Equal(s.now, updated.CreatedAt)
}

func (s *ServiceSuite) TestUpdateUnknownPersonNotFound() {
	_, err := s.service.UpdatePerson(s.ctx, domain.NewPersonID(), CreatePersonInput{
		DisplayName: "Gaura Das", District: "Nadia", State: "West Bengal",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCreateNamahattaConflictOnDuplicateCode() {
	input := CreateNamahattaInput{Code: "NH-001", Name: "Sri Mayapur", District: "Nadia", State: "West Bengal"}
	_, err := s.service.CreateNamahatta(s.ctx, input)
	s.Require().NoError(err)

	_, err = s.service.CreateNamahatta(s.ctx, input)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}
