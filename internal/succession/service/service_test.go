package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dirmodels "sangha/internal/directory/models"
	dirstore "sangha/internal/directory/store"
	"sangha/internal/eligibility"
	hierstore "sangha/internal/hierarchy/store"
	ledgermodels "sangha/internal/ledger/models"
	ledgerstore "sangha/internal/ledger/store"
	"sangha/pkg/domain"
	dErrors "sangha/pkg/domain-errors"
	"sangha/pkg/keylock"
	"sangha/pkg/platform/tx"
	"sangha/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	directory *dirstore.MemoryStore
	hierarchy *hierstore.MemoryStore
	ledger    *ledgerstore.MemoryStore
	service   *Service
	ctx       context.Context
	now       time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.directory = dirstore.NewMemoryStore()
	s.hierarchy = hierstore.NewMemoryStore()
	s.ledger = ledgerstore.NewMemoryStore()
	evaluator := eligibility.New(s.directory, s.hierarchy)
	s.service = New(s.hierarchy, s.ledger, evaluator, keylock.New(0), tx.NewMemoryRunner())
	s.now = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithActorID(s.ctx, "admin-1")
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) person(name, district, state string) domain.PersonID {
	p, err := dirmodels.NewPerson(name, "", "", district, state, nil, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.directory.CreatePerson(s.ctx, p))
	return p.ID
}

func (s *ServiceSuite) appoint(personID domain.PersonID, role domain.Role, scope string, superior *domain.PersonID) *ledgermodels.TransitionRecord {
	record, err := s.service.Appoint(s.ctx, AppointInput{
		PersonID: personID, Role: role, ScopeValue: scope, SuperiorID: superior,
	})
	s.Require().NoError(err)
	return record
}

// ladder seats a three-level chain in Nadia district under a state-level
// mala senapoti and returns the person ids top-down.
func (s *ServiceSuite) ladder() (mala, maha, chakra domain.PersonID) {
	mala = s.person("Gaura Das", "Nadia", "West Bengal")
	maha = s.person("Nitai Das", "Nadia", "West Bengal")
	chakra = s.person("Hari Das", "Nadia", "West Bengal")
	s.appoint(mala, domain.RoleMalaSenapoti, "West Bengal", nil)
	s.appoint(maha, domain.RoleMahaChakraSenapoti, "Nadia", &mala)
	s.appoint(chakra, domain.RoleChakraSenapoti, "Nadia", &maha)
	return mala, maha, chakra
}

func (s *ServiceSuite) TestAppointSeatsPersonAndRecordsTransition() {
	personID := s.person("Gaura Das", "Nadia", "West Bengal")
	record := s.appoint(personID, domain.RoleMalaSenapoti, "West Bengal", nil)

	s.Nil(record.PreviousRole)
	s.Equal(domain.RoleMalaSenapoti, *record.NewRole)
	s.Equal(ledgermodels.ReasonAppointment, record.Reason)
	s.Equal(s.now, record.Timestamp)
	s.Equal("admin-1", record.ActorID)

	holder, err := s.hierarchy.HolderOf(s.ctx, personID)
	s.Require().NoError(err)
	s.Equal("West Bengal", holder.ScopeValue)

	history, err := s.service.History(s.ctx, personID)
	s.Require().NoError(err)
	s.Len(history, 1)
}

func (s *ServiceSuite) TestAppointRejectsCurrentHolder() {
	mala, _, _ := s.ladder()
	_, err := s.service.Appoint(s.ctx, AppointInput{
		PersonID: mala, Role: domain.RoleChakraSenapoti, ScopeValue: "Nadia", SuperiorID: &mala,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestAppointOccupiedSeatLeavesNoTrace() {
	mala, _, _ := s.ladder()
	_ = mala
	rival := s.person("Krishna Das", "Nadia", "West Bengal")

	_, err := s.service.Appoint(s.ctx, AppointInput{
		PersonID: rival, Role: domain.RoleMalaSenapoti, ScopeValue: "West Bengal",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	history, err := s.service.History(s.ctx, rival)
	s.Require().NoError(err)
	s.Empty(history, "failed appointment must write no records")
	_, err = s.hierarchy.HolderOf(s.ctx, rival)
	s.Error(err, "failed appointment must not seat anyone")
}

func (s *ServiceSuite) TestAppointRequiresSeniorSuperior() {
	_, _, chakra := s.ladder()
	peer := s.person("Krishna Das", "Nadia", "West Bengal")

	_, err := s.service.Appoint(s.ctx, AppointInput{
		PersonID: peer, Role: domain.RoleChakraSenapoti, ScopeValue: "Hooghly", SuperiorID: &chakra,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestAppointRejectsCandidateOutsideScope() {
	mala := s.person("Gaura Das", "Nadia", "West Bengal")
	s.appoint(mala, domain.RoleMalaSenapoti, "West Bengal", nil)

	outsider := s.person("Madhava Das", "Puri", "Odisha")
	_, err := s.service.Appoint(s.ctx, AppointInput{
		PersonID: outsider, Role: domain.RoleMahaChakraSenapoti, ScopeValue: "Nadia", SuperiorID: &mala,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotEligible))
}

func (s *ServiceSuite) TestRemoveReparentsSubordinatesToGrandSuperior() {
	mala, maha, chakra := s.ladder()

	record, err := s.service.Remove(s.ctx, maha, ledgermodels.ReasonRemoval)
	s.Require().NoError(err)
	s.Equal(domain.RoleMahaChakraSenapoti, *record.PreviousRole)
	s.Nil(record.NewRole)

	_, err = s.hierarchy.HolderOf(s.ctx, maha)
	s.Error(err)

	holder, err := s.hierarchy.HolderOf(s.ctx, chakra)
	s.Require().NoError(err)
	s.Require().NotNil(holder.SuperiorID)
	s.Equal(mala, *holder.SuperiorID, "subordinate must report to the removed holder's superior")
}

func (s *ServiceSuite) TestRemoveTopWithSubordinatesRejected() {
	mala, _, _ := s.ladder()
	_, err := s.service.Remove(s.ctx, mala, ledgermodels.ReasonRemoval)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestRemoveUnseatedPersonRejected() {
	bystander := s.person("Krishna Das", "Nadia", "West Bengal")
	_, err := s.service.Remove(s.ctx, bystander, ledgermodels.ReasonResignation)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestReplaceMovesSeatAndWritesPairedRecords() {
	_, maha, chakra := s.ladder()
	successor := s.person("Krishna Das", "Nadia", "West Bengal")

	record, err := s.service.Replace(s.ctx, maha, successor)
	s.Require().NoError(err)

	// Returned record is the vacating side.
	s.Equal(maha, record.PersonID)
	s.Equal(domain.RoleMahaChakraSenapoti, *record.PreviousRole)
	s.Nil(record.NewRole)
	s.Require().NotNil(record.ReplacedBy)
	s.Equal(successor, *record.ReplacedBy)

	successorHistory, err := s.service.History(s.ctx, successor)
	s.Require().NoError(err)
	s.Require().Len(successorHistory, 1)
	s.Nil(successorHistory[0].PreviousRole)
	s.Equal(domain.RoleMahaChakraSenapoti, *successorHistory[0].NewRole)
	s.Nil(successorHistory[0].ReplacedBy)
	s.Equal(record.Timestamp, successorHistory[0].Timestamp, "paired records share one timestamp")

	seated, err := s.hierarchy.HolderOf(s.ctx, successor)
	s.Require().NoError(err)
	s.Equal("Nadia", seated.ScopeValue)

	subordinate, err := s.hierarchy.HolderOf(s.ctx, chakra)
	s.Require().NoError(err)
	s.Require().NotNil(subordinate.SuperiorID)
	s.Equal(successor, *subordinate.SuperiorID, "subordinates follow the seat to the successor")
}

func (s *ServiceSuite) TestReplaceSelfRejected() {
	_, maha, _ := s.ladder()
	_, err := s.service.Replace(s.ctx, maha, maha)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestReplaceRejectsSeatedSuccessor() {
	_, maha, chakra := s.ladder()
	_, err := s.service.Replace(s.ctx, maha, chakra)
	s.True(dErrors.HasCode(err, dErrors.CodeNotEligible))
}

func (s *ServiceSuite) TestConcurrentReplaceExactlyOneWins() {
	_, maha, _ := s.ladder()
	first := s.person("Krishna Das", "Nadia", "West Bengal")
	second := s.person("Madhava Das", "Nadia", "West Bengal")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, successor := range []domain.PersonID{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.Replace(s.ctx, maha, successor)
		}()
	}
	wg.Wait()

	var wins, failures int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		failures++
		s.True(
			dErrors.HasCode(err, dErrors.CodeBusy) ||
				dErrors.HasCode(err, dErrors.CodeInvalidTransition) ||
				dErrors.HasCode(err, dErrors.CodeNotEligible),
			"loser must fail with a retryable or precondition code, got %v", err,
		)
	}
	s.Equal(1, wins, "exactly one replacement may land")
	s.Equal(1, failures)

	history, err := s.service.History(s.ctx, maha)
	s.Require().NoError(err)
	s.Len(history, 2, "one appointment plus one vacating record")
}

func (s *ServiceSuite) TestHistoryOrdersByTimestampNotCommitOrder() {
	personID := s.person("Gaura Das", "Nadia", "West Bengal")
	s.appoint(personID, domain.RoleMalaSenapoti, "West Bengal", nil)

	// A request that started earlier can commit later; its record still
	// sorts by its request time.
	earlier := requestcontext.WithTime(s.ctx, s.now.Add(-time.Minute))
	earlier = requestcontext.WithActorID(earlier, "admin-1")
	_, err := s.service.Remove(earlier, personID, ledgermodels.ReasonResignation)
	s.Require().NoError(err)

	history, err := s.service.History(s.ctx, personID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(ledgermodels.ReasonResignation, history[0].Reason)
	s.Equal(s.now.Add(-time.Minute), history[0].Timestamp)
	s.Equal(ledgermodels.ReasonAppointment, history[1].Reason)
	s.Equal(s.now, history[1].Timestamp)
}

func (s *ServiceSuite) TestConcurrentAppointmentsToSameSlotExactlyOneWins() {
	first := s.person("Krishna Das", "Nadia", "West Bengal")
	second := s.person("Madhava Das", "Nadia", "West Bengal")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, personID := range []domain.PersonID{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.Appoint(s.ctx, AppointInput{
				PersonID: personID, Role: domain.RoleMalaSenapoti, ScopeValue: "West Bengal",
			})
		}()
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		s.False(dErrors.HasCode(err, dErrors.CodeInvariantViolation),
			"loser must fail a precondition, not trip store validation, got %v", err)
		s.True(
			dErrors.HasCode(err, dErrors.CodeInvalidTransition) ||
				dErrors.HasCode(err, dErrors.CodeBusy),
			"got %v", err,
		)
	}
	s.Equal(1, wins, "exactly one appointment may claim the seat")
}

// gatedLedger blocks the first Append until released, holding a commit open
// mid-flight.
type gatedLedger struct {
	ledgerstore.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedLedger) Append(ctx context.Context, record *ledgermodels.TransitionRecord) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Store.Append(ctx, record)
}

func (s *ServiceSuite) TestReadersNeverSeeHalfCommittedTransition() {
	personID := s.person("Gaura Das", "Nadia", "West Bengal")
	gated := &gatedLedger{Store: s.ledger, entered: make(chan struct{}), release: make(chan struct{})}
	runner := tx.NewMemoryRunner()
	svc := New(s.hierarchy, gated, eligibility.New(s.directory, s.hierarchy), keylock.New(0), runner)

	appointDone := make(chan error, 1)
	go func() {
		_, err := svc.Appoint(s.ctx, AppointInput{
			PersonID: personID, Role: domain.RoleMalaSenapoti, ScopeValue: "West Bengal",
		})
		appointDone <- err
	}()
	<-gated.entered

	// The hierarchy map already holds the seat; a history read must wait for
	// the commit to finish rather than observe the gap.
	type historyResult struct {
		records []*ledgermodels.TransitionRecord
		err     error
	}
	historyDone := make(chan historyResult, 1)
	go func() {
		records, err := svc.History(s.ctx, personID)
		historyDone <- historyResult{records, err}
	}()

	select {
	case res := <-historyDone:
		close(gated.release)
		<-appointDone
		s.Require().Failf("torn read", "history returned %d records while a commit was in flight", len(res.records))
	case <-time.After(20 * time.Millisecond):
	}

	close(gated.release)
	s.Require().NoError(<-appointDone)
	res := <-historyDone
	s.Require().NoError(res.err)
	s.Require().Len(res.records, 1)
}

func (s *ServiceSuite) TestReplacementsRankedByGeography() {
	_, maha, _ := s.ladder()
	krishna := s.person("Krishna Das", "Nadia", "West Bengal")
	madhava := s.person("Madhava Das", "Nadia", "West Bengal")

	candidates, err := s.service.Replacements(s.ctx, maha)
	s.Require().NoError(err)
	s.Require().Len(candidates, 2)
	// Same district, no namahatta data: strength ties, name breaks it.
	s.Equal(krishna, candidates[0].Person.ID)
	s.Equal(madhava, candidates[1].Person.ID)
}
