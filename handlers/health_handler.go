package handlers

import (
	"net/http"

	"github.com/upb/llm-router/app"
	"github.com/upb/llm-router/utils"
)

// HealthCheck handles GET /healthz: process liveness only
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck handles GET /readyz: reports database reachability and
// the size of the live model pool so orchestrators can hold traffic until
// the router can actually route.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.HealthCheck(r.Context()); err != nil {
			_ = utils.WriteServiceUnavailable(w, "database unavailable")
			return
		}

		snapshot := deps.Registry.Snapshot()
		_ = utils.WriteOK(w, map[string]interface{}{
			"status":           "ready",
			"live_models":      snapshot.Len(),
			"snapshot_version": snapshot.Version,
		})
	}
}
