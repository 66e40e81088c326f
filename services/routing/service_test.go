package routing

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/services/features"
	"github.com/upb/llm-router/services/registry"
	"github.com/upb/llm-router/services/scoring"
	"go.uber.org/zap"
)

// stubClassifier returns a fixed classification or error
type stubClassifier struct {
	classification models.Classification
	err            error
	calls          int
}

func (s *stubClassifier) Classify(ctx context.Context, prompt string, turns []string) (models.Classification, error) {
	s.calls++
	if s.err != nil {
		return models.Classification{}, s.err
	}
	return s.classification, nil
}

// stubResolver returns a fixed candidate list or error
type stubResolver struct {
	candidates []string
	err        error
}

func (s *stubResolver) GetCandidates(ctx context.Context, domain, action string) ([]string, error) {
	return s.candidates, s.err
}

// fixedSnapshot substitutes a static model view for the live registry
type fixedSnapshot struct {
	snapshot *registry.Snapshot
}

func (f *fixedSnapshot) Snapshot() *registry.Snapshot {
	return f.snapshot
}

// recordingSink captures appended decision records
type recordingSink struct {
	mu      sync.Mutex
	records []*models.DecisionRecord
	err     error
}

func (s *recordingSink) Append(record *models.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *recordingSink) Records() []*models.DecisionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.DecisionRecord, len(s.records))
	copy(out, s.records)
	return out
}

// routerFixture wires a router over stubs with a programming-centric
// candidate pool: gpt-4 (strong, expensive), claude-3-haiku (balanced),
// codex-mini (cheap, unknown to the checkpoint).
type routerFixture struct {
	router     *Router
	classifier *stubClassifier
	resolver   *stubResolver
	sink       *recordingSink
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	clf := &stubClassifier{
		classification: models.Classification{
			Domain:     "programming",
			Action:     "code-generation",
			Confidence: 0.94,
			Reasoning:  "code fence present",
		},
	}
	resolver := &stubResolver{candidates: []string{"gpt-4", "claude-3-haiku", "codex-mini"}}
	sink := &recordingSink{}

	snapshot := &fixedSnapshot{snapshot: registry.NewSnapshot([]models.Model{
		{ID: "gpt-4", ExecutorID: "openai", CostPerMillionTokens: 30, Healthy: true},
		{ID: "claude-3-haiku", ExecutorID: "anthropic", CostPerMillionTokens: 1.25, Healthy: true},
		{ID: "codex-mini", ExecutorID: "openai", CostPerMillionTokens: 1.5, Healthy: true},
	})}

	abilities := scoring.NewAbilityStore(zap.NewNop())
	require.NoError(t, abilities.Load([]byte(`{
		"version": "test",
		"dimensions": 7,
		"abilities": {
			"gpt-4":          [0.95, 0.9, 0.95, 0.8, 0.8, 0.8, 0.7],
			"claude-3-haiku": [0.7, 0.65, 0.6, 0.6, 0.5, 0.6, 0.6]
		}
	}`)))
	engine := scoring.NewEngine(scoring.DefaultConfig(), abilities, nil)

	router := NewRouter(
		DefaultConfig(),
		clf,
		features.NewExtractor(features.DefaultConfig()),
		resolver,
		snapshot,
		engine,
		sink,
		zap.NewNop(),
	)

	return &routerFixture{router: router, classifier: clf, resolver: resolver, sink: sink}
}

const codePrompt = "Write a Go function that reverses a linked list.\n```go\ntype Node struct {\n\tNext *Node\n}\n```"

func TestRouter_Route(t *testing.T) {
	fixture := newRouterFixture(t)

	decision, err := fixture.router.Route(context.Background(), RouteRequest{Prompt: codePrompt})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, decision.ID)
	assert.Len(t, decision.Candidates, 3)
	assert.Equal(t, decision.Candidates[0], decision.SelectedModel)
	assert.Equal(t, "programming", decision.Classification.Domain)
	assert.Equal(t, "code-generation", decision.Classification.Action)
	assert.False(t, decision.Classification.Fallback)
	assert.True(t, decision.Features.HasCode)

	// codex-mini is absent from the checkpoint and carries the penalty
	for _, candidate := range decision.Candidates {
		if candidate.ModelID == "codex-mini" {
			assert.True(t, candidate.AbilityMissing)
		} else {
			assert.False(t, candidate.AbilityMissing)
		}
		assert.Contains(t, candidate.Explanation, "programming/code-generation")
	}

	// The decision was logged with immutable decision fields
	records := fixture.sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, decision.ID, records[0].ID)
	assert.Equal(t, decision.SelectedModel.ModelID, records[0].SelectedModel)
	assert.Nil(t, records[0].Outcome)
}

func TestRouter_Route_Deterministic(t *testing.T) {
	fixture := newRouterFixture(t)
	req := RouteRequest{Prompt: codePrompt, Context: []string{"earlier turn"}}

	first, err := fixture.router.Route(context.Background(), req)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		next, err := fixture.router.Route(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first.SelectedModel.ModelID, next.SelectedModel.ModelID)
		assert.Equal(t, first.Candidates, next.Candidates)
		assert.Equal(t, first.Features, next.Features)
	}
}

func TestRouter_Route_EmptyPrompt(t *testing.T) {
	fixture := newRouterFixture(t)

	for _, prompt := range []string{"", "   ", "\n\t"} {
		_, err := fixture.router.Route(context.Background(), RouteRequest{Prompt: prompt})
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
	}
}

func TestRouter_Route_NoEligibleCandidates(t *testing.T) {
	t.Run("empty policy resolution", func(t *testing.T) {
		fixture := newRouterFixture(t)
		fixture.resolver.candidates = nil

		_, err := fixture.router.Route(context.Background(), RouteRequest{Prompt: codePrompt})
		assert.True(t, services.IsNoCandidatesError(err))
	})

	t.Run("no policy candidate is live", func(t *testing.T) {
		fixture := newRouterFixture(t)
		fixture.resolver.candidates = []string{"retired-model", "never-registered"}

		_, err := fixture.router.Route(context.Background(), RouteRequest{Prompt: codePrompt})
		assert.True(t, services.IsNoCandidatesError(err))
	})

	t.Run("every candidate excluded", func(t *testing.T) {
		fixture := newRouterFixture(t)

		_, err := fixture.router.Route(context.Background(), RouteRequest{
			Prompt:         codePrompt,
			ExcludedModels: []string{"gpt-4", "claude-3-haiku", "codex-mini"},
		})
		assert.True(t, services.IsNoCandidatesError(err))
	})
}

func TestRouter_Route_ExclusionSemantics(t *testing.T) {
	fixture := newRouterFixture(t)

	full, err := fixture.router.Route(context.Background(), RouteRequest{Prompt: codePrompt})
	require.NoError(t, err)
	winner := full.SelectedModel.ModelID

	reduced, err := fixture.router.Route(context.Background(), RouteRequest{
		Prompt:         codePrompt,
		ExcludedModels: []string{winner},
	})
	require.NoError(t, err)

	assert.Len(t, reduced.Candidates, 2)
	assert.NotEqual(t, winner, reduced.SelectedModel.ModelID)
	for _, candidate := range reduced.Candidates {
		assert.NotEqual(t, winner, candidate.ModelID)
	}
}

func TestRouter_Route_ClassifierFallback(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.classifier.err = services.WrapError(services.ErrorTypeClassification, "task classifier timed out", nil)

	decision, err := fixture.router.Route(context.Background(), RouteRequest{Prompt: codePrompt})
	require.NoError(t, err)

	assert.True(t, decision.Classification.Fallback)
	assert.Equal(t, "general", decision.Classification.Domain)
	assert.Equal(t, models.Wildcard, decision.Classification.Action)
	assert.Zero(t, decision.Classification.Confidence)

	// The fallback marker survives into the decision record
	records := fixture.sink.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Classification.Fallback)
}

func TestRouter_Route_CancellationNeverDegrades(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.classifier.err = services.WrapError(services.ErrorTypeCancelled, "classification cancelled", context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fixture.router.Route(ctx, RouteRequest{Prompt: codePrompt})
	require.Error(t, err)
	assert.True(t, services.IsCancelledError(err))
	assert.Empty(t, fixture.sink.Records())
}

func TestRouter_Route_PolicyUnavailable(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.resolver.err = services.WrapError(services.ErrorTypePolicyUnavailable, "policy store unavailable and no cached value", nil)

	_, err := fixture.router.Route(context.Background(), RouteRequest{Prompt: codePrompt})
	assert.True(t, services.IsPolicyUnavailableError(err))
}

func TestRouter_Route_SinkFailureDoesNotFailRouting(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.sink.err = services.ErrDecisionLogFull

	decision, err := fixture.router.Route(context.Background(), RouteRequest{Prompt: codePrompt})
	require.NoError(t, err)
	assert.NotEmpty(t, decision.Candidates)
}

func TestRouter_SelectNext(t *testing.T) {
	fixture := newRouterFixture(t)

	decision, err := fixture.router.Route(context.Background(), RouteRequest{Prompt: codePrompt})
	require.NoError(t, err)
	require.Len(t, decision.Candidates, 3)

	classifierCalls := fixture.classifier.calls

	first := decision.SelectedModel.ModelID

	second, err := fixture.router.SelectNext(decision, first)
	require.NoError(t, err)
	assert.NotEqual(t, first, second.ModelID)
	assert.Equal(t, decision.Candidates[1].ModelID, second.ModelID)

	third, err := fixture.router.SelectNext(decision, second.ModelID)
	require.NoError(t, err)
	assert.NotEqual(t, first, third.ModelID)
	assert.NotEqual(t, second.ModelID, third.ModelID)

	// Pool exhausted
	_, err = fixture.router.SelectNext(decision, third.ModelID)
	assert.True(t, services.IsNoCandidatesError(err))

	// Exclusions accumulate: the first winner never reappears
	_, err = fixture.router.SelectNext(decision)
	assert.True(t, services.IsNoCandidatesError(err))

	// SelectNext never reclassifies or rescores
	assert.Equal(t, classifierCalls, fixture.classifier.calls)
}

func TestRouter_SelectNext_HonorsRequestExclusions(t *testing.T) {
	fixture := newRouterFixture(t)

	decision, err := fixture.router.Route(context.Background(), RouteRequest{
		Prompt:         codePrompt,
		ExcludedModels: []string{"gpt-4"},
	})
	require.NoError(t, err)
	require.Len(t, decision.Candidates, 2)

	next, err := fixture.router.SelectNext(decision, decision.SelectedModel.ModelID)
	require.NoError(t, err)
	assert.NotEqual(t, "gpt-4", next.ModelID)

	_, err = fixture.router.SelectNext(decision, next.ModelID)
	assert.True(t, services.IsNoCandidatesError(err))
}

func TestRouter_Merge_PreservesPolicyOrder(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.resolver.candidates = []string{"codex-mini", "retired-model", "gpt-4"}

	decision, err := fixture.router.Route(context.Background(), RouteRequest{Prompt: codePrompt})
	require.NoError(t, err)
	require.Len(t, decision.Candidates, 2)

	ranks := map[string]int{}
	for _, candidate := range decision.Candidates {
		ranks[candidate.ModelID] = candidate.PolicyRank
	}
	assert.Equal(t, 0, ranks["codex-mini"])
	assert.Equal(t, 2, ranks["gpt-4"])
}
