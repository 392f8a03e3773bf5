package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bomjesus/armazem-backend/api/responses"
	"github.com/bomjesus/armazem-backend/api/validators"
	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/projection"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// eventTypeAliases maps the wire names accepted from devices to canonical
// event types. Older PWA builds send the short snake_case forms.
var eventTypeAliases = map[string]enums.RawEventType{
	"lot_received":          enums.RawEventTypeLotEntryRegistered,
	"lot_entry_registered":  enums.RawEventTypeLotEntryRegistered,
	"stock_moved":           enums.RawEventTypeLotMoved,
	"lot_moved":             enums.RawEventTypeLotMoved,
	"loss_recorded":         enums.RawEventTypeLossRegistered,
	"loss_registered":       enums.RawEventTypeLossRegistered,
	"return_recorded":       enums.RawEventTypeReturnRegistered,
	"return_registered":     enums.RawEventTypeReturnRegistered,
	"LOT_ENTRY_REGISTERED":  enums.RawEventTypeLotEntryRegistered,
	"LOT_MOVED":             enums.RawEventTypeLotMoved,
	"LOSS_REGISTERED":       enums.RawEventTypeLossRegistered,
	"RETURN_REGISTERED":     enums.RawEventTypeReturnRegistered,
}

// payloadKeyAliases renames the snake_case payload keys devices send to the
// canonical camelCase names. Unknown keys pass through untouched.
var payloadKeyAliases = map[string]string{
	"product_id":       "productId",
	"location_id":      "locationId",
	"lot_id":           "lotId",
	"from_location_id": "fromLocationId",
	"to_location_id":   "toLocationId",
	"client_id":        "clientId",
	"store_id":         "storeId",
	"photo_url":        "photoUrl",
	"user_id":          "userId",
	"qty_boxes":        "boxes",
	"qty_kg":           "kg",
}

type externalEventRequest struct {
	EventType      string         `json:"event_type" validate:"required"`
	IdempotencyKey string         `json:"idempotency_key" validate:"required"`
	EventTS        time.Time      `json:"event_ts" validate:"required"`
	DeviceID       *string        `json:"device_id,omitempty"`
	UserID         *string        `json:"user_id,omitempty"`
	Source         string         `json:"source,omitempty"`
	Payload        map[string]any `json:"payload"`
}

type ingestRequest struct {
	EventType      enums.RawEventType `json:"eventType" validate:"required"`
	IdempotencyKey string             `json:"idempotencyKey" validate:"required"`
	OccurredAt     time.Time          `json:"occurredAt" validate:"required"`
	DeviceID       *string            `json:"deviceId,omitempty"`
	UserID         *string            `json:"userId,omitempty"`
	Source         string             `json:"source,omitempty"`
	Data           map[string]any     `json:"data"`
}

// EventsIngestExternal accepts the device-facing wire shape: snake_case
// fields and legacy type aliases. An unknown event type is a 400, never a
// server error.
func EventsIngestExternal(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req externalEventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		eventType, ok := eventTypeAliases[strings.TrimSpace(req.EventType)]
		if !ok {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown event type").
					WithDetails(map[string]any{"event_type": req.EventType}))
			return
		}

		result, err := svc.Ingest(ctx, events.IngestInput{
			EventType:      eventType,
			IdempotencyKey: req.IdempotencyKey,
			OccurredAt:     req.EventTS,
			DeviceID:       req.DeviceID,
			UserID:         req.UserID,
			Source:         req.Source,
			Data:           canonicalPayload(req.Payload),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, ingestStatus(result.Duplicated), result)
	}
}

// EventsIngest accepts the canonical camelCase shape used by internal tools.
func EventsIngest(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req ingestRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !req.EventType.IsValid() {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown event type").
					WithDetails(map[string]any{"eventType": req.EventType}))
			return
		}

		result, err := svc.Ingest(ctx, events.IngestInput{
			EventType:      req.EventType,
			IdempotencyKey: req.IdempotencyKey,
			OccurredAt:     req.OccurredAt,
			DeviceID:       req.DeviceID,
			UserID:         req.UserID,
			Source:         req.Source,
			Data:           req.Data,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, ingestStatus(result.Duplicated), result)
	}
}

func EventsListRaw(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		params, err := rawListParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.ListRaw(ctx, *params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if rows == nil {
			rows = []models.RawEvent{}
		}
		responses.WriteSuccess(w, rows)
	}
}

func EventsExportCSV(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		params, err := rawListParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		csv, err := svc.ExportRawCSV(ctx, *params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="raw_events.csv"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(csv))
	}
}

func EventsMetrics(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		metrics, err := svc.GetPipelineMetrics(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, metrics)
	}
}

func EventsProcess(projector projection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 1000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := projector.ProcessPending(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func EventsReprocess(projector projection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid raw event id"))
			return
		}

		if err := projector.Reprocess(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rawEventId": id, "reprocessed": true})
	}
}

func EventsReprocessFailed(projector projection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 1000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := projector.ReprocessFailed(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func rawListParams(r *http.Request) (*events.ListRawParams, error) {
	params := events.ListRawParams{
		IdempotencyKey: strings.TrimSpace(r.URL.Query().Get("idempotencyKey")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.ProcessingStatus(raw)
		if !status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid processing status").
				WithDetails(map[string]any{"status": raw})
		}
		params.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("eventType")); raw != "" {
		eventType := enums.RawEventType(raw)
		if !eventType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid event type").
				WithDetails(map[string]any{"eventType": raw})
		}
		params.EventType = &eventType
	}

	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return nil, err
	}
	params.From = from

	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return nil, err
	}
	params.To = to

	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 1000)
	if err != nil {
		return nil, err
	}
	params.Limit = limit

	return &params, nil
}

func canonicalPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		if canonical, ok := payloadKeyAliases[key]; ok {
			out[canonical] = value
			continue
		}
		out[key] = value
	}
	return out
}

func ingestStatus(duplicated bool) int {
	if duplicated {
		return http.StatusOK
	}
	return http.StatusCreated
}
