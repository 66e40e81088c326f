package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/upb/llm-router/app"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/utils"
)

// policyRequest is the operator payload for creating/updating a policy
type policyRequest struct {
	Domain   string   `json:"domain" validate:"required"`
	Action   string   `json:"action" validate:"required"`
	Models   []string `json:"models" validate:"required,min=1,dive,required"`
	Priority int      `json:"priority"`
	Enabled  *bool    `json:"enabled"`
}

var policyValidator = validator.New()

// CreatePolicyHandler handles POST /api/v1/policies
func CreatePolicyHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req policyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "invalid request body", nil)
			return
		}
		if err := policyValidator.Struct(req); err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}

		policy := models.NewRoutingPolicy(req.Domain, req.Action, req.Models, req.Priority)
		if req.Enabled != nil {
			policy.Enabled = *req.Enabled
		}

		if err := deps.PolicyStore.Create(r.Context(), policy); err != nil {
			if services.IsValidationError(err) {
				_ = utils.WriteBadRequest(w, err.Error(), nil)
				return
			}
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		_ = utils.WriteCreated(w, policy)
	}
}

// ListPoliciesHandler handles GET /api/v1/policies
func ListPoliciesHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		policies, err := deps.PolicyStore.List(r.Context())
		if err != nil {
			_ = utils.WriteInternalServerError(w, "")
			return
		}
		_ = utils.WriteOK(w, policies)
	}
}

// GetPolicyHandler handles GET /api/v1/policies/{id}
func GetPolicyHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid policy id", nil)
			return
		}

		policy, err := deps.PolicyStore.Get(r.Context(), id)
		if err != nil {
			if services.IsNotFoundError(err) {
				_ = utils.WriteNotFound(w, "policy not found")
				return
			}
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		_ = utils.WriteOK(w, policy)
	}
}

// UpdatePolicyHandler handles PUT /api/v1/policies/{id}
func UpdatePolicyHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid policy id", nil)
			return
		}

		var req policyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "invalid request body", nil)
			return
		}
		if err := policyValidator.Struct(req); err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}

		existing, err := deps.PolicyStore.Get(r.Context(), id)
		if err != nil {
			if services.IsNotFoundError(err) {
				_ = utils.WriteNotFound(w, "policy not found")
				return
			}
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		existing.Domain = req.Domain
		existing.Action = req.Action
		existing.Models = req.Models
		existing.Priority = req.Priority
		if req.Enabled != nil {
			existing.Enabled = *req.Enabled
		}

		if err := deps.PolicyStore.Update(r.Context(), existing); err != nil {
			if services.IsValidationError(err) {
				_ = utils.WriteBadRequest(w, err.Error(), nil)
				return
			}
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		_ = utils.WriteOK(w, existing)
	}
}

// DeletePolicyHandler handles DELETE /api/v1/policies/{id}
func DeletePolicyHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid policy id", nil)
			return
		}

		if err := deps.PolicyStore.Delete(r.Context(), id); err != nil {
			if services.IsNotFoundError(err) {
				_ = utils.WriteNotFound(w, "policy not found")
				return
			}
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		utils.WriteNoContent(w)
	}
}
