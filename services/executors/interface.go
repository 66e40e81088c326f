package executors

import (
	"context"

	"github.com/upb/llm-router/models"
)

// Client is the two-method probe contract every executor transport must
// satisfy. The registry depends only on this interface; transport details
// (HTTP, subprocess, RPC) live in per-transport adapters.
type Client interface {
	// ID returns the executor id this client probes
	ID() string

	// ListModels queries the executor's current model list
	ListModels(ctx context.Context) ([]models.Model, error)

	// HealthCheck reports whether the executor is currently servable
	HealthCheck(ctx context.Context) error
}

// listModelsResponse is the wire shape both transports return for a
// model-list probe
type listModelsResponse struct {
	Models []modelPayload `json:"models"`
}

// modelPayload is one model entry on the probe wire
type modelPayload struct {
	ID                   string   `json:"id"`
	DisplayName          string   `json:"display_name,omitempty"`
	CostPerMillionTokens float64  `json:"cost_per_million_tokens"`
	ContextWindow        int      `json:"context_window"`
	Capabilities         []string `json:"capabilities,omitempty"`
	Healthy              *bool    `json:"healthy,omitempty"`
}

// toModels converts wire payloads into domain models owned by executorID.
// A model that omits the healthy flag is assumed healthy; the executor
// would not advertise it otherwise.
func (r *listModelsResponse) toModels(executorID string) []models.Model {
	out := make([]models.Model, 0, len(r.Models))
	for _, m := range r.Models {
		if m.ID == "" {
			continue
		}
		healthy := true
		if m.Healthy != nil {
			healthy = *m.Healthy
		}
		out = append(out, models.Model{
			ID:                   m.ID,
			ExecutorID:           executorID,
			DisplayName:          m.DisplayName,
			CostPerMillionTokens: m.CostPerMillionTokens,
			ContextWindow:        m.ContextWindow,
			Capabilities:         m.Capabilities,
			Healthy:              healthy,
		})
	}
	return out
}
