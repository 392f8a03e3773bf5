package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bomjesus/armazem-backend/api/responses"
	"github.com/bomjesus/armazem-backend/api/validators"
	"github.com/bomjesus/armazem-backend/internal/lots"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// LotsEntry registers a lot arriving at the warehouse, synchronously.
func LotsEntry(svc lots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input lots.EntryInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Entry(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, ingestStatus(result.Duplicated), result)
	}
}

// LotsMove moves quantity out of an existing lot, synchronously.
func LotsMove(svc lots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		lotID, err := uuid.Parse(chi.URLParam(r, "lotId"))
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid lot id"))
			return
		}

		var input lots.MoveInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Move(ctx, lotID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, ingestStatus(result.Duplicated), result)
	}
}
