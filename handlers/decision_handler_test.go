package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-router/app"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/services/decisionlog"
	"go.uber.org/zap"
)

// MockDecisionRepository is a mock implementation of repositories.DecisionRepository
type MockDecisionRepository struct {
	mock.Mock
}

func (m *MockDecisionRepository) Insert(ctx context.Context, record *models.DecisionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDecisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DecisionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DecisionRecord), args.Error(1)
}

func (m *MockDecisionRepository) SetOutcome(ctx context.Context, id uuid.UUID, outcome models.DecisionOutcome) error {
	args := m.Called(ctx, id, outcome)
	return args.Error(0)
}

func (m *MockDecisionRepository) ListRecent(ctx context.Context, limit int) ([]*models.DecisionRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DecisionRecord), args.Error(1)
}

// outcomeServer mounts the outcome handler behind a chi router so URL
// parameters resolve the way they do in production
func outcomeServer(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/decisions/{id}/outcome", RecordOutcomeHandler(deps))
	return r
}

func outcomeDeps(repo *MockDecisionRepository) *app.Dependencies {
	return &app.Dependencies{
		Logger:      zap.NewNop(),
		DecisionLog: decisionlog.NewService(decisionlog.DefaultConfig(), repo, zap.NewNop()),
	}
}

func TestRecordOutcomeHandler(t *testing.T) {
	t.Run("records outcome", func(t *testing.T) {
		repo := new(MockDecisionRepository)
		id := uuid.New()
		repo.On("SetOutcome", mock.Anything, id, models.OutcomeSuccess).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/decisions/"+id.String()+"/outcome",
			strings.NewReader(`{"outcome":"success"}`))
		rec := httptest.NewRecorder()
		outcomeServer(outcomeDeps(repo)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		repo.AssertExpectations(t)
	})

	t.Run("invalid decision id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/decisions/not-a-uuid/outcome",
			strings.NewReader(`{"outcome":"success"}`))
		rec := httptest.NewRecorder()
		outcomeServer(outcomeDeps(new(MockDecisionRepository))).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/decisions/"+uuid.NewString()+"/outcome",
			strings.NewReader(`{broken`))
		rec := httptest.NewRecorder()
		outcomeServer(outcomeDeps(new(MockDecisionRepository))).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown outcome value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/decisions/"+uuid.NewString()+"/outcome",
			strings.NewReader(`{"outcome":"partial"}`))
		rec := httptest.NewRecorder()
		outcomeServer(outcomeDeps(new(MockDecisionRepository))).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("decision not found", func(t *testing.T) {
		repo := new(MockDecisionRepository)
		id := uuid.New()
		repo.On("SetOutcome", mock.Anything, id, models.OutcomeFailure).
			Return(services.ErrDecisionNotFound)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/decisions/"+id.String()+"/outcome",
			strings.NewReader(`{"outcome":"failure"}`))
		rec := httptest.NewRecorder()
		outcomeServer(outcomeDeps(repo)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("outcome already recorded", func(t *testing.T) {
		repo := new(MockDecisionRepository)
		id := uuid.New()
		repo.On("SetOutcome", mock.Anything, id, models.OutcomeTimeout).
			Return(services.ErrOutcomeAlreadySet)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/decisions/"+id.String()+"/outcome",
			strings.NewReader(`{"outcome":"timeout"}`))
		rec := httptest.NewRecorder()
		outcomeServer(outcomeDeps(repo)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestListDecisionsHandler(t *testing.T) {
	t.Run("returns recent records", func(t *testing.T) {
		repo := new(MockDecisionRepository)
		records := []*models.DecisionRecord{
			{ID: uuid.New(), SelectedModel: "gpt-4"},
			{ID: uuid.New(), SelectedModel: "codex-mini"},
		}
		repo.On("ListRecent", mock.Anything, 100).Return(records, nil)

		deps := &app.Dependencies{Logger: zap.NewNop(), DecisionRepo: repo}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions", nil)
		rec := httptest.NewRecorder()
		ListDecisionsHandler(deps)(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "gpt-4")
		assert.Contains(t, rec.Body.String(), "codex-mini")
	})

	t.Run("honors limit parameter", func(t *testing.T) {
		repo := new(MockDecisionRepository)
		repo.On("ListRecent", mock.Anything, 25).Return([]*models.DecisionRecord{}, nil)

		deps := &app.Dependencies{Logger: zap.NewNop(), DecisionRepo: repo}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions?limit=25", nil)
		rec := httptest.NewRecorder()
		ListDecisionsHandler(deps)(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		repo.AssertExpectations(t)
	})

	t.Run("rejects out-of-range limit", func(t *testing.T) {
		deps := &app.Dependencies{Logger: zap.NewNop(), DecisionRepo: new(MockDecisionRepository)}

		for _, limit := range []string{"0", "-1", "1001", "abc"} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions?limit="+limit, nil)
			rec := httptest.NewRecorder()
			ListDecisionsHandler(deps)(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
		}
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(MockDecisionRepository)
		repo.On("ListRecent", mock.Anything, 100).
			Return(nil, services.WrapInternal("query failed", nil))

		deps := &app.Dependencies{Logger: zap.NewNop(), DecisionRepo: repo}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions", nil)
		rec := httptest.NewRecorder()
		ListDecisionsHandler(deps)(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
