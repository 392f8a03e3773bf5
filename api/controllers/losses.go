package controllers

import (
	"net/http"

	"github.com/bomjesus/armazem-backend/api/responses"
	"github.com/bomjesus/armazem-backend/api/validators"
	"github.com/bomjesus/armazem-backend/internal/losses"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// LossesCreate registers a produce loss, synchronously.
func LossesCreate(svc losses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input losses.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := ingestStatus(result.Duplicated)
		if result.AcceptedForReview {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
