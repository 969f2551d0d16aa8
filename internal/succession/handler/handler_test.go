package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dirmodels "sangha/internal/directory/models"
	dirstore "sangha/internal/directory/store"
	"sangha/internal/eligibility"
	hierstore "sangha/internal/hierarchy/store"
	ledgerstore "sangha/internal/ledger/store"
	"sangha/internal/succession/service"
	"sangha/pkg/domain"
	"sangha/pkg/keylock"
	"sangha/pkg/platform/middleware/requesttime"
	"sangha/pkg/platform/tx"
)

type HandlerSuite struct {
	suite.Suite
	directory *dirstore.MemoryStore
	router    *chi.Mux
	now       time.Time
}

func (s *HandlerSuite) SetupTest() {
	s.directory = dirstore.NewMemoryStore()
	hierarchy := hierstore.NewMemoryStore()
	ledger := ledgerstore.NewMemoryStore()
	svc := service.New(
		hierarchy, ledger,
		eligibility.New(s.directory, hierarchy),
		keylock.New(0), tx.NewMemoryRunner(),
	)
	s.now = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	s.router = chi.NewRouter()
	s.router.Use(requesttime.Middleware)
	New(svc, slog.Default()).Routes(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) person(name, district, state string) domain.PersonID {
	p, err := dirmodels.NewPerson(name, "", "", district, state, nil, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.directory.CreatePerson(context.Background(), p))
	return p.ID
}

func (s *HandlerSuite) post(path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestAppointCreatesRecord() {
	personID := s.person("Gaura Das", "Nadia", "West Bengal")

	rec := s.post("/succession/appointments", map[string]string{
		"person_id":   personID.String(),
		"role":        "MALA_SENAPOTI",
		"scope_value": "West Bengal",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var record struct {
		PersonID string  `json:"person_id"`
		NewRole  *string `json:"new_role"`
		Reason   string  `json:"reason"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(s.T(), personID.String(), record.PersonID)
	require.NotNil(s.T(), record.NewRole)
	assert.Equal(s.T(), "MALA_SENAPOTI", *record.NewRole)
	assert.Equal(s.T(), "APPOINTMENT", record.Reason)
}

func (s *HandlerSuite) TestAppointUnknownRoleIsBadRequest() {
	personID := s.person("Gaura Das", "Nadia", "West Bengal")
	rec := s.post("/succession/appointments", map[string]string{
		"person_id":   personID.String(),
		"role":        "SUPREME_SENAPOTI",
		"scope_value": "West Bengal",
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRemoveUnseatedPersonIsUnprocessable() {
	personID := s.person("Gaura Das", "Nadia", "West Bengal")
	rec := s.post("/succession/removals", map[string]string{
		"person_id": personID.String(),
	})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(s.T(), "invalid_transition", body["error"])
}

func (s *HandlerSuite) TestReplaceIneligibleSuccessorIsConflict() {
	mala := s.person("Gaura Das", "Nadia", "West Bengal")
	rec := s.post("/succession/appointments", map[string]string{
		"person_id":   mala.String(),
		"role":        "MALA_SENAPOTI",
		"scope_value": "West Bengal",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)

	outsider := s.person("Madhava Das", "Puri", "Odisha")
	rec = s.post("/succession/replacements", map[string]string{
		"vacating_id":  mala.String(),
		"successor_id": outsider.String(),
	})
	assert.Equal(s.T(), http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(s.T(), "not_eligible", body["error"])
}

func (s *HandlerSuite) TestTransitionsHistory() {
	personID := s.person("Gaura Das", "Nadia", "West Bengal")
	rec := s.post("/succession/appointments", map[string]string{
		"person_id":   personID.String(),
		"role":        "MALA_SENAPOTI",
		"scope_value": "West Bengal",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)

	rec = s.get(fmt.Sprintf("/people/%s/transitions", personID))
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var records []json.RawMessage
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(s.T(), records, 1)
}

func (s *HandlerSuite) TestReplacementsEndpoint() {
	mala := s.person("Gaura Das", "Nadia", "West Bengal")
	rec := s.post("/succession/appointments", map[string]string{
		"person_id":   mala.String(),
		"role":        "MALA_SENAPOTI",
		"scope_value": "West Bengal",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)
	s.person("Krishna Das", "Nadia", "West Bengal")

	rec = s.get(fmt.Sprintf("/people/%s/replacements", mala))
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var candidates []struct {
		Strength int `json:"strength"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &candidates))
	assert.Len(s.T(), candidates, 1)
}
