package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sangha/internal/hierarchy/models"
	"sangha/internal/hierarchy/store"
	"sangha/pkg/domain"
	dErrors "sangha/pkg/domain-errors"
)

func seededService(t *testing.T) (*Service, domain.PersonID, domain.PersonID) {
	t.Helper()
	st := store.NewMemoryStore()

	mala, err := models.NewHolder(domain.NewPersonID(), domain.RoleMalaSenapoti, "West Bengal", nil)
	require.NoError(t, err)
	maha, err := models.NewHolder(domain.NewPersonID(), domain.RoleMahaChakraSenapoti, "Nadia", &mala.PersonID)
	require.NoError(t, err)

	var cs models.Changeset
	cs.Set(mala)
	cs.Set(maha)
	require.NoError(t, st.Apply(context.Background(), cs))

	return New(st), mala.PersonID, maha.PersonID
}

func TestChartGroupsBySeniority(t *testing.T) {
	svc, malaID, mahaID := seededService(t)

	chart, err := svc.Chart(context.Background())
	require.NoError(t, err)
	require.Len(t, chart.Levels, 4, "every catalog role gets a level, occupied or not")

	assert.Equal(t, domain.RoleMalaSenapoti, chart.Levels[0].Role)
	require.Len(t, chart.Levels[0].Holders, 1)
	assert.Equal(t, malaID, chart.Levels[0].Holders[0].PersonID)

	assert.Equal(t, domain.RoleMahaChakraSenapoti, chart.Levels[1].Role)
	require.Len(t, chart.Levels[1].Holders, 1)
	assert.Equal(t, mahaID, chart.Levels[1].Holders[0].PersonID)

	assert.Empty(t, chart.Levels[2].Holders)
	assert.Empty(t, chart.Levels[3].Holders)
}

func TestHolderOfTranslatesNotFound(t *testing.T) {
	svc, _, _ := seededService(t)
	_, err := svc.HolderOf(context.Background(), domain.NewPersonID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSubordinates(t *testing.T) {
	svc, malaID, mahaID := seededService(t)
	subs, err := svc.Subordinates(context.Background(), malaID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, mahaID, subs[0].PersonID)
}
