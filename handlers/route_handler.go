package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/upb/llm-router/app"
	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/services/routing"
	"github.com/upb/llm-router/utils"
	"go.uber.org/zap"
)

// RouteHandler handles POST /api/v1/route: the gateway submits a prompt
// and receives a routing decision. The gateway executes the backend call
// itself; to retry after a backend failure it repeats the request with the
// failed model in excluded_models.
func RouteHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req routing.RouteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "invalid request body", nil)
			return
		}

		decision, err := deps.Router.Route(r.Context(), req)
		if err != nil {
			writeRoutingError(w, deps.Logger, err)
			return
		}

		_ = utils.WriteOK(w, decision)
	}
}

// writeRoutingError maps routing domain errors onto HTTP statuses
func writeRoutingError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case services.IsValidationError(err):
		_ = utils.WriteBadRequest(w, err.Error(), services.GetErrorDetails(err))
	case services.IsNoCandidatesError(err):
		_ = utils.WriteUnprocessable(w, err.Error(), services.GetErrorDetails(err))
	case services.IsPolicyUnavailableError(err):
		_ = utils.WriteServiceUnavailable(w, err.Error())
	case services.IsCancelledError(err):
		// Client went away; 499 is conventional but non-standard, use 408
		_ = utils.WriteJSON(w, http.StatusRequestTimeout, utils.ErrorResponse{
			Error:   "cancelled",
			Message: err.Error(),
		})
	default:
		logger.Error("routing failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
	}
}
