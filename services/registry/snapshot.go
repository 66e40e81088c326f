package registry

import (
	"time"

	"github.com/upb/llm-router/models"
)

// Snapshot is an immutable view of the currently healthy model set.
// Safe for unlimited concurrent readers; the probe loop replaces the whole
// snapshot rather than mutating it in place.
type Snapshot struct {
	// models maps model id to its current state; healthy models only
	models map[string]models.Model

	// Version increments with every publish
	Version int64

	// TakenAt is when the snapshot was built
	TakenAt time.Time
}

// NewSnapshot builds a standalone snapshot from a model list. Unhealthy
// models are dropped. Used by callers that substitute a fixed view for the
// live registry.
func NewSnapshot(modelList []models.Model) *Snapshot {
	byID := make(map[string]models.Model, len(modelList))
	for _, m := range modelList {
		if !m.Healthy {
			continue
		}
		byID[m.ID] = m
	}
	return &Snapshot{
		models:  byID,
		TakenAt: time.Now(),
	}
}

// Lookup returns the healthy model with the given id
func (s *Snapshot) Lookup(modelID string) (models.Model, bool) {
	m, ok := s.models[modelID]
	return m, ok
}

// Models returns all healthy models in the snapshot
func (s *Snapshot) Models() []models.Model {
	out := make([]models.Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	return out
}

// Len returns the number of healthy models in the snapshot
func (s *Snapshot) Len() int {
	return len(s.models)
}

// Snapshot returns the current immutable view of healthy models
func (r *Registry) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// publishSnapshot rebuilds the healthy model view from current executor
// state and swaps it in atomically. Models from unhealthy executors are
// excluded; per-model health flags are honored too. The publish mutex
// serializes build and store so concurrent publishers cannot overwrite a
// newer snapshot with an older view.
func (r *Registry) publishSnapshot() {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	byID := make(map[string]models.Model)

	r.mu.RLock()
	for _, state := range r.executors {
		if !state.healthy {
			continue
		}
		for _, m := range state.models {
			if !m.Healthy {
				continue
			}
			byID[m.ID] = m
		}
	}
	r.mu.RUnlock()

	r.snapshot.Store(&Snapshot{
		models:  byID,
		Version: r.version.Add(1),
		TakenAt: time.Now(),
	})
}
