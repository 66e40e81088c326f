package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/upb/llm-router/models"
)

// Config holds configuration for the scoring engine
type Config struct {
	// Weights scale each latent dimension's (ability − difficulty) gap.
	// When shorter than the checkpoint dimensions, missing weights are 1.
	Weights []float64

	// MissingAbilityPenalty is subtracted from the logit of candidates
	// whose model is absent from the checkpoint
	MissingAbilityPenalty float64

	// CostWeight scales the cost divisor: score = p / (1 + CostWeight·cost)
	CostWeight float64
}

// DefaultConfig returns the default scoring configuration
func DefaultConfig() Config {
	return Config{
		MissingAbilityPenalty: 1.0,
		CostWeight:            0.05,
	}
}

// Candidate is one merged, live candidate entering the scoring stage
type Candidate struct {
	Model models.Model

	// PolicyRank is the candidate's position in the resolved policy list
	PolicyRank int
}

// Engine ranks candidates by cost-weighted predicted success probability.
// Stateless per request; concurrent use is unrestricted.
type Engine struct {
	config    Config
	abilities *AbilityStore
	mapper    DifficultyMapper
}

// NewEngine creates a scoring engine
func NewEngine(config Config, abilities *AbilityStore, mapper DifficultyMapper) *Engine {
	if config.CostWeight < 0 {
		config.CostWeight = 0
	}
	if mapper == nil {
		mapper = NewHeuristicMapper()
	}
	return &Engine{
		config:    config,
		abilities: abilities,
		mapper:    mapper,
	}
}

// Score ranks the merged candidate pool. Every candidate in the input
// appears in the output: a model missing from the checkpoint is scored
// with the zero ability vector and the configured penalty, never dropped.
// Ordering is fully deterministic: weighted score descending, then policy
// rank ascending, then model id ascending.
func (e *Engine) Score(classification models.Classification, features models.QueryFeatures, candidates []Candidate) []models.ScoredCandidate {
	checkpoint := e.abilities.Checkpoint()
	difficulty := e.mapper.Map(features, checkpoint.Dimensions)

	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		ability, present := e.abilities.Ability(candidate.Model.ID)

		logit := e.weightedGap(ability, difficulty)
		if !present {
			logit -= e.config.MissingAbilityPenalty
		}

		p := sigmoid(logit)
		cost := math.Max(candidate.Model.CostPerMillionTokens, 0)
		score := p / (1 + e.config.CostWeight*cost)

		scored = append(scored, models.ScoredCandidate{
			ModelID:              candidate.Model.ID,
			SuccessProbability:   p,
			Score:                score,
			CostPerMillionTokens: cost,
			PolicyRank:           candidate.PolicyRank,
			AbilityMissing:       !present,
			Explanation:          explain(classification, candidate.Model.ID, p, cost, score, present),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].PolicyRank != scored[j].PolicyRank {
			return scored[i].PolicyRank < scored[j].PolicyRank
		}
		return scored[i].ModelID < scored[j].ModelID
	})

	return scored
}

// weightedGap computes w·(ability − difficulty); absent weights default to 1
func (e *Engine) weightedGap(ability, difficulty []float64) float64 {
	sum := 0.0
	for i := range ability {
		w := 1.0
		if i < len(e.config.Weights) {
			w = e.config.Weights[i]
		}
		d := 0.0
		if i < len(difficulty) {
			d = difficulty[i]
		}
		sum += w * (ability[i] - d)
	}
	return sum
}

// sigmoid is the logistic link mapping a logit to (0,1)
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// explain builds the human-readable scoring explanation for one candidate
func explain(c models.Classification, modelID string, p, cost, score float64, abilityPresent bool) string {
	base := fmt.Sprintf("classified %s/%s (confidence %.2f): %s p=%.3f cost=%.2f/Mtok score=%.4f",
		c.Domain, c.Action, c.Confidence, modelID, p, cost, score)
	if !abilityPresent {
		base += " (no ability data, penalized)"
	}
	return base
}
