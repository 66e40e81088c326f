package models

import (
	"time"

	"github.com/google/uuid"
)

// DecisionOutcome is the back-filled real-world result of a routing decision
type DecisionOutcome string

const (
	OutcomeSuccess DecisionOutcome = "success"
	OutcomeFailure DecisionOutcome = "failure"
	OutcomeTimeout DecisionOutcome = "timeout"
)

// ScoredCandidate is one candidate's scoring result within a decision
type ScoredCandidate struct {
	// ModelID identifies the candidate model
	ModelID string `json:"model_id"`

	// SuccessProbability is the predicted success probability in (0,1)
	SuccessProbability float64 `json:"success_probability"`

	// Score is the cost-weighted score used for ranking
	Score float64 `json:"score"`

	// CostPerMillionTokens is the cost used in the score
	CostPerMillionTokens float64 `json:"cost_per_million_tokens"`

	// PolicyRank is the candidate's position in the resolved policy list
	PolicyRank int `json:"policy_rank"`

	// AbilityMissing marks candidates scored with the default ability vector
	AbilityMissing bool `json:"ability_missing,omitempty"`

	// Explanation cites the classification and the compared numbers
	Explanation string `json:"explanation"`
}

// DecisionRecord is the append-only log entry for one routing decision.
// Decision fields are immutable once written; only Outcome may be set,
// exactly once, asynchronously.
type DecisionRecord struct {
	ID             uuid.UUID         `json:"id" db:"id"`
	Prompt         string            `json:"prompt" db:"prompt"`
	Classification Classification    `json:"classification" db:"classification"`
	Features       QueryFeatures     `json:"features" db:"features"`
	Candidates     []ScoredCandidate `json:"candidates" db:"candidates"`
	SelectedModel  string            `json:"selected_model" db:"selected_model"`
	LatencyMS      int64             `json:"latency_ms" db:"latency_ms"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	Outcome        *DecisionOutcome  `json:"outcome,omitempty" db:"outcome"`
}

// TableName returns the table name for the DecisionRecord model
func (DecisionRecord) TableName() string {
	return "decision_records"
}
