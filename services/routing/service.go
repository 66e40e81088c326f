package routing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/services/classifier"
	"github.com/upb/llm-router/services/features"
	"github.com/upb/llm-router/services/registry"
	"github.com/upb/llm-router/services/scoring"
	"go.uber.org/zap"
)

// Snapshotter provides the live model view consumed at merge time
type Snapshotter interface {
	Snapshot() *registry.Snapshot
}

// CandidateResolver provides policy candidate lists
type CandidateResolver interface {
	GetCandidates(ctx context.Context, domain, action string) ([]string, error)
}

// DecisionSink receives decision records asynchronously
type DecisionSink interface {
	Append(record *models.DecisionRecord) error
}

// Config holds configuration for the router
type Config struct {
	// FallbackDomain is substituted when classification fails
	FallbackDomain string

	// FallbackAction is substituted when classification fails
	FallbackAction string
}

// DefaultConfig returns the default router configuration
func DefaultConfig() Config {
	return Config{
		FallbackDomain: "general",
		FallbackAction: models.Wildcard,
	}
}

// RouteRequest is one inbound routing request
type RouteRequest struct {
	// Prompt is the user's request text
	Prompt string `json:"prompt"`

	// Context holds recent conversation turns, oldest first
	Context []string `json:"context,omitempty"`

	// ExcludedModels are model ids that must not be selected, typically
	// because a previous attempt on them failed
	ExcludedModels []string `json:"excluded_models,omitempty"`
}

// Decision is the routing result returned to the gateway. The router never
// calls a backend itself; the caller executes the selected model.
type Decision struct {
	// ID identifies the decision record written for this request
	ID uuid.UUID `json:"id"`

	// SelectedModel is the winning candidate
	SelectedModel models.ScoredCandidate `json:"selected_model"`

	// Candidates is the full ranked pool, best first
	Candidates []models.ScoredCandidate `json:"candidates"`

	// Classification is the task label the decision was made under
	Classification models.Classification `json:"classification"`

	// Features is the difficulty feature vector used for scoring
	Features models.QueryFeatures `json:"features"`

	// Latency is the routing decision latency
	Latency time.Duration `json:"latency"`

	// excluded tracks ids ruled out for this request, including across
	// SelectNext calls
	excluded map[string]struct{}
}

// Router orchestrates one request through
// Classify → LookupPolicy → Merge → Score → Select → Log → Return.
// It holds no per-request mutable state: every call allocates its own
// ephemeral state and reads registry/policy snapshots without mutating
// them, so unlimited concurrent invocation is safe.
type Router struct {
	config     Config
	classifier classifier.Classifier
	extractor  *features.Extractor
	policies   CandidateResolver
	registry   Snapshotter
	engine     *scoring.Engine
	sink       DecisionSink
	logger     *zap.Logger
}

// NewRouter creates a router
func NewRouter(
	config Config,
	clf classifier.Classifier,
	extractor *features.Extractor,
	policies CandidateResolver,
	reg Snapshotter,
	engine *scoring.Engine,
	sink DecisionSink,
	logger *zap.Logger,
) *Router {
	if config.FallbackDomain == "" {
		config.FallbackDomain = DefaultConfig().FallbackDomain
	}
	if config.FallbackAction == "" {
		config.FallbackAction = DefaultConfig().FallbackAction
	}

	return &Router{
		config:     config,
		classifier: clf,
		extractor:  extractor,
		policies:   policies,
		registry:   reg,
		engine:     engine,
		sink:       sink,
		logger:     logger,
	}
}

// Route produces a routing decision for the request. An empty merged
// candidate pool is a terminal NoEligibleCandidates error, never a guessed
// default.
func (r *Router) Route(ctx context.Context, req RouteRequest) (*Decision, error) {
	started := time.Now()

	if strings.TrimSpace(req.Prompt) == "" {
		return nil, services.ErrEmptyPrompt
	}
	if err := ctx.Err(); err != nil {
		return nil, services.WrapError(services.ErrorTypeCancelled, "routing cancelled", err)
	}

	queryFeatures := r.extractor.Extract(req.Prompt, req.Context)

	classification, err := r.classify(ctx, req)
	if err != nil {
		return nil, err
	}

	candidateIDs, err := r.policies.GetCandidates(ctx, classification.Domain, classification.Action)
	if err != nil {
		return nil, err
	}

	snapshot := r.registry.Snapshot()
	merged := r.merge(candidateIDs, snapshot, req.ExcludedModels)
	if len(merged) == 0 {
		return nil, services.ErrNoEligibleCandidates
	}

	scored := r.engine.Score(classification, queryFeatures, merged)

	excluded := make(map[string]struct{}, len(req.ExcludedModels))
	for _, id := range req.ExcludedModels {
		excluded[id] = struct{}{}
	}

	decision := &Decision{
		ID:             uuid.New(),
		SelectedModel:  scored[0],
		Candidates:     scored,
		Classification: classification,
		Features:       queryFeatures,
		Latency:        time.Since(started),
		excluded:       excluded,
	}

	r.appendRecord(req, decision)

	r.logger.Debug("routing decision made",
		zap.String("decision_id", decision.ID.String()),
		zap.String("selected_model", decision.SelectedModel.ModelID),
		zap.String("domain", classification.Domain),
		zap.String("action", classification.Action),
		zap.Int("candidates", len(scored)),
		zap.Duration("latency", decision.Latency))

	return decision, nil
}

// SelectNext re-selects from an existing decision's ranked candidates,
// additionally excluding the given model ids. Classification and features
// are never recomputed, and an excluded id can never reappear for the same
// original request.
func (r *Router) SelectNext(decision *Decision, exclude ...string) (models.ScoredCandidate, error) {
	for _, id := range exclude {
		decision.excluded[id] = struct{}{}
	}

	for _, candidate := range decision.Candidates {
		if _, ruled := decision.excluded[candidate.ModelID]; ruled {
			continue
		}
		return candidate, nil
	}

	return models.ScoredCandidate{}, services.ErrNoEligibleCandidates
}

// classify runs the bounded classification call and degrades to the
// configured fallback label on classifier failure. Caller cancellation is
// never degraded: it propagates immediately.
func (r *Router) classify(ctx context.Context, req RouteRequest) (models.Classification, error) {
	classification, err := r.classifier.Classify(ctx, req.Prompt, req.Context)
	if err == nil {
		return classification, nil
	}

	if ctx.Err() != nil || services.IsCancelledError(err) {
		return models.Classification{}, services.WrapError(services.ErrorTypeCancelled, "routing cancelled during classification", err)
	}

	r.logger.Warn("classification failed, using fallback label",
		zap.String("fallback_domain", r.config.FallbackDomain),
		zap.Error(err))

	return models.Classification{
		Domain:     r.config.FallbackDomain,
		Action:     r.config.FallbackAction,
		Confidence: 0,
		Reasoning:  "classifier unavailable, fallback label substituted",
		Fallback:   true,
	}, nil
}

// merge intersects the policy candidate list with the live snapshot,
// preserving policy order, dropping unknown, unhealthy and excluded ids
func (r *Router) merge(candidateIDs []string, snapshot *registry.Snapshot, excludedIDs []string) []scoring.Candidate {
	excluded := make(map[string]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}

	merged := make([]scoring.Candidate, 0, len(candidateIDs))
	for rank, id := range candidateIDs {
		if _, ruled := excluded[id]; ruled {
			continue
		}
		model, live := snapshot.Lookup(id)
		if !live {
			continue
		}
		merged = append(merged, scoring.Candidate{
			Model:      model,
			PolicyRank: rank,
		})
	}
	return merged
}

// appendRecord writes the decision to the log, fire-and-forget
func (r *Router) appendRecord(req RouteRequest, decision *Decision) {
	record := &models.DecisionRecord{
		ID:             decision.ID,
		Prompt:         req.Prompt,
		Classification: decision.Classification,
		Features:       decision.Features,
		Candidates:     decision.Candidates,
		SelectedModel:  decision.SelectedModel.ModelID,
		LatencyMS:      decision.Latency.Milliseconds(),
		CreatedAt:      time.Now(),
	}

	if err := r.sink.Append(record); err != nil {
		r.logger.Warn("decision record dropped",
			zap.String("decision_id", decision.ID.String()),
			zap.Error(err))
	}
}
