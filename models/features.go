package models

// QueryFeatures is the fixed-size difficulty feature vector derived from a
// prompt and its bounded conversation context. Ephemeral: it is never
// persisted outside a DecisionRecord.
type QueryFeatures struct {
	// TokenEstimate approximates the prompt length in tokens
	TokenEstimate int `json:"token_estimate"`

	// Complexity is a structural complexity heuristic in [0,1]
	Complexity float64 `json:"complexity"`

	// HasCode indicates the prompt contains source code
	HasCode bool `json:"has_code"`

	// CodeLines counts lines inside detected code regions
	CodeLines int `json:"code_lines"`

	// DomainKeywords are matched domain-indicator keywords, sorted
	DomainKeywords []string `json:"domain_keywords,omitempty"`

	// NeedsTools indicates the request likely requires tool use
	NeedsTools bool `json:"needs_tools"`

	// ConversationDepth counts prior turns in the bounded context
	ConversationDepth int `json:"conversation_depth"`

	// Ambiguity is an underspecification heuristic in [0,1]
	Ambiguity float64 `json:"ambiguity"`
}

// Classification is the task label produced by the external classifier
type Classification struct {
	// Domain is the task domain (e.g., "programming", "general")
	Domain string `json:"domain"`

	// Action is the task action (e.g., "code-generation")
	Action string `json:"action"`

	// Confidence is the classifier's confidence in [0,1]
	Confidence float64 `json:"confidence"`

	// Reasoning is the classifier's short justification
	Reasoning string `json:"reasoning,omitempty"`

	// Fallback marks a substituted classification after classifier failure
	Fallback bool `json:"fallback,omitempty"`
}
