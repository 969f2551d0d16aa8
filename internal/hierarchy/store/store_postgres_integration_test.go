//go:build integration

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"sangha/internal/hierarchy/models"
	"sangha/pkg/domain"
	"sangha/pkg/platform/sentinel"
	"sangha/pkg/platform/tx"
	"sangha/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	store     *PostgresStore
	ctx       context.Context
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewPostgresContainer(s.T())
	s.store = NewPostgresStore(s.container.Pool)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.container.Pool.Close()
	_ = s.container.Container.Terminate(s.ctx)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.container.TruncateAll(s.ctx, "leadership_holders"))
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) holder(role domain.Role, scope string, superior *domain.PersonID) *models.Holder {
	h, err := models.NewHolder(domain.NewPersonID(), role, scope, superior)
	s.Require().NoError(err)
	return h
}

func (s *PostgresStoreSuite) TestApplyRoundTrip() {
	mala := s.holder(domain.RoleMalaSenapoti, "West Bengal", nil)
	maha := s.holder(domain.RoleMahaChakraSenapoti, "Nadia", &mala.PersonID)

	var cs models.Changeset
	cs.Set(mala)
	cs.Set(maha)
	s.Require().NoError(s.store.Apply(s.ctx, cs))

	got, err := s.store.HolderOf(s.ctx, maha.PersonID)
	s.Require().NoError(err)
	s.Equal("Nadia", got.ScopeValue)
	s.Require().NotNil(got.SuperiorID)
	s.Equal(mala.PersonID, *got.SuperiorID)

	subs, err := s.store.Subordinates(s.ctx, mala.PersonID)
	s.Require().NoError(err)
	s.Len(subs, 1)
}

func (s *PostgresStoreSuite) TestApplyRejectsDuplicateSlot() {
	mala := s.holder(domain.RoleMalaSenapoti, "West Bengal", nil)
	var cs models.Changeset
	cs.Set(mala)
	s.Require().NoError(s.store.Apply(s.ctx, cs))

	rival := s.holder(domain.RoleMalaSenapoti, "West Bengal", nil)
	var rivalCs models.Changeset
	rivalCs.Set(rival)
	s.ErrorIs(s.store.Apply(s.ctx, rivalCs), sentinel.ErrInvalidState)
}

func (s *PostgresStoreSuite) TestApplyInsideFailedTxLeavesNothing() {
	runner := tx.NewPgxRunner(s.container.Pool)
	mala := s.holder(domain.RoleMalaSenapoti, "West Bengal", nil)

	boom := errors.New("boom")
	err := runner.RunInTx(s.ctx, func(ctx context.Context) error {
		var cs models.Changeset
		cs.Set(mala)
		if err := s.store.Apply(ctx, cs); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.HolderOf(s.ctx, mala.PersonID)
	s.ErrorIs(err, sentinel.ErrNotFound, "rolled back changeset must not be visible")
}

func (s *PostgresStoreSuite) TestClearRemovesRow() {
	mala := s.holder(domain.RoleMalaSenapoti, "West Bengal", nil)
	var cs models.Changeset
	cs.Set(mala)
	s.Require().NoError(s.store.Apply(s.ctx, cs))

	var clear models.Changeset
	clear.Clear(mala.PersonID)
	s.Require().NoError(s.store.Apply(s.ctx, clear))

	_, err := s.store.HolderOf(s.ctx, mala.PersonID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
