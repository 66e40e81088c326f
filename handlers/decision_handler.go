package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/llm-router/app"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/utils"
)

// outcomeRequest is the body for the outcome back-fill endpoint
type outcomeRequest struct {
	Outcome models.DecisionOutcome `json:"outcome"`
}

// RecordOutcomeHandler handles POST /api/v1/decisions/{id}/outcome:
// the gateway reports the real-world result of a decision, exactly once.
func RecordOutcomeHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid decision id", nil)
			return
		}

		var req outcomeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "invalid request body", nil)
			return
		}

		switch req.Outcome {
		case models.OutcomeSuccess, models.OutcomeFailure, models.OutcomeTimeout:
		default:
			_ = utils.WriteBadRequest(w, "outcome must be success, failure or timeout", nil)
			return
		}

		if err := deps.DecisionLog.RecordOutcome(r.Context(), id, req.Outcome); err != nil {
			switch {
			case services.IsNotFoundError(err):
				_ = utils.WriteNotFound(w, "decision not found")
			case err == services.ErrOutcomeAlreadySet:
				_ = utils.WriteConflict(w, "outcome already recorded", nil)
			default:
				_ = utils.WriteInternalServerError(w, "")
			}
			return
		}

		utils.WriteNoContent(w)
	}
}

// ListDecisionsHandler handles GET /api/v1/decisions: the offline query
// surface consumed by the retraining pipeline.
func ListDecisionsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 1000 {
				_ = utils.WriteBadRequest(w, "limit must be between 1 and 1000", nil)
				return
			}
			limit = parsed
		}

		records, err := deps.DecisionRepo.ListRecent(r.Context(), limit)
		if err != nil {
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		_ = utils.WriteOK(w, records)
	}
}
