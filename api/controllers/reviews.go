package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bomjesus/armazem-backend/api/responses"
	"github.com/bomjesus/armazem-backend/api/validators"
	"github.com/bomjesus/armazem-backend/internal/reviews"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

type resolveIssueRequest struct {
	PerformedBy string `json:"performedBy" validate:"required"`
	Notes       string `json:"notes,omitempty"`
}

// ReviewsListIssues lists validation issues for the review queue.
func ReviewsListIssues(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		filter := reviews.ListIssuesFilter{
			IssueCode: strings.TrimSpace(r.URL.Query().Get("issueCode")),
		}

		resolved, err := validators.ParseQueryBool(r, "resolved")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter.Resolved = resolved

		if raw := strings.TrimSpace(r.URL.Query().Get("severity")); raw != "" {
			severity, err := enums.ParseAlertSeverity(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
				return
			}
			filter.Severity = &severity
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1000000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		pageSize, err := validators.ParseQueryInt(r, "pageSize", 0, 0, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListIssues(ctx, filter, page, pageSize)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ReviewsResolveIssue marks an issue resolved and appends the audit action.
func ReviewsResolveIssue(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid issue id"))
			return
		}

		var req resolveIssueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		issue, err := svc.ResolveIssue(ctx, id, req.PerformedBy, req.Notes)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, issue)
	}
}
