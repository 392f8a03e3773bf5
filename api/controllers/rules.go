package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bomjesus/armazem-backend/api/responses"
	"github.com/bomjesus/armazem-backend/api/validators"
	"github.com/bomjesus/armazem-backend/internal/rules"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

type setRuleRequest struct {
	Value     string `json:"value" validate:"required"`
	UpdatedBy string `json:"updatedBy" validate:"required"`
}

// RulesList lists the configured validation thresholds.
func RulesList(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		configs, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, configs)
	}
}

// RulesSet updates one validation threshold by key.
func RulesSet(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req setRuleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		config, err := svc.Set(ctx, chi.URLParam(r, "key"), req.Value, req.UpdatedBy)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, config)
	}
}
