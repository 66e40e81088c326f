package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/llm-router/app"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/utils"
)

// RegisterExecutorHandler handles POST /api/v1/executors: operator tooling
// adds or updates a backend. A malformed descriptor fails only this
// registration, never the registry.
func RegisterExecutorHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var descriptor models.ExecutorDescriptor
		if err := json.NewDecoder(r.Body).Decode(&descriptor); err != nil {
			_ = utils.WriteBadRequest(w, "invalid request body", nil)
			return
		}

		if err := deps.Registry.Register(r.Context(), descriptor); err != nil {
			if services.IsConfigError(err) {
				_ = utils.WriteBadRequest(w, err.Error(), services.GetErrorDetails(err))
				return
			}
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		_ = utils.WriteCreated(w, descriptor)
	}
}

// ListExecutorsHandler handles GET /api/v1/executors
func ListExecutorsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, deps.Registry.Executors())
	}
}

// DeregisterExecutorHandler handles DELETE /api/v1/executors/{id}.
// Idempotent: deregistering an unknown executor still returns 204.
func DeregisterExecutorHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Registry.Deregister(chi.URLParam(r, "id"))
		utils.WriteNoContent(w)
	}
}

// ReloadCheckpointHandler handles PUT /api/v1/scoring/checkpoint: the
// operator submits a new ability checkpoint artifact, swapped in
// atomically without interrupting in-flight scoring.
func ReloadCheckpointHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16<<20))
		if err != nil {
			_ = utils.WriteBadRequest(w, "failed to read checkpoint body", nil)
			return
		}

		if err := deps.Abilities.Load(body); err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}

		checkpoint := deps.Abilities.Checkpoint()
		_ = utils.WriteOK(w, map[string]interface{}{
			"version":    checkpoint.Version,
			"dimensions": checkpoint.Dimensions,
			"models":     len(checkpoint.Abilities),
		})
	}
}
