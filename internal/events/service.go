package events

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/internal/rules"
	"github.com/bomjesus/armazem-backend/pkg/db"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

const idempotencyKeyConstraint = "idx_raw_events_idempotency_key"

// TxRunner abstracts the transactional boundary for ingest writes.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IngestInput is the internal shape of an event submission.
type IngestInput struct {
	EventType      enums.RawEventType
	IdempotencyKey string
	OccurredAt     time.Time
	DeviceID       *string
	UserID         *string
	Source         string
	Data           map[string]any
}

// IngestResult reports the ingestion outcome. Duplicated submissions return
// the original RawEvent id with no other fields set.
type IngestResult struct {
	Duplicated       bool                   `json:"duplicated"`
	RawEventID       uuid.UUID              `json:"rawEventId"`
	ValidationStatus enums.ValidationStatus `json:"validationStatus,omitempty"`
	ProcessingStatus enums.ProcessingStatus `json:"processingStatus,omitempty"`
}

// PipelineMetrics summarizes the state of the RAW pipeline.
type PipelineMetrics struct {
	Processing  ProcessingCounts `json:"processing"`
	Validation  ValidationCounts `json:"validation"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

type ProcessingCounts struct {
	Pending   int64 `json:"pending"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

type ValidationCounts struct {
	Valid       int64 `json:"valid"`
	NeedsReview int64 `json:"needsReview"`
}

// Service defines the ingestion-side operations over RAW events.
type Service interface {
	Ingest(ctx context.Context, input IngestInput) (*IngestResult, error)
	ListRaw(ctx context.Context, params ListRawParams) ([]models.RawEvent, error)
	GetPipelineMetrics(ctx context.Context) (*PipelineMetrics, error)
	ExportRawCSV(ctx context.Context, params ListRawParams) (string, error)
}

// ServiceParams carries the ingestion service dependencies.
type ServiceParams struct {
	Repo   Repository
	Rules  rules.Service
	Tx     TxRunner
	Logger *logger.Logger
}

type service struct {
	repo  Repository
	rules rules.Service
	tx    TxRunner
	logg  *logger.Logger
}

// NewService wires the ingestion service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if params.Rules == nil {
		return nil, fmt.Errorf("rules service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, rules: params.Rules, tx: params.Tx, logg: params.Logger}, nil
}

func (s *service) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if !input.EventType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid event type %q", input.EventType))
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if input.OccurredAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "occurredAt is required")
	}

	existing, err := s.repo.FindByIdempotencyKey(ctx, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &IngestResult{Duplicated: true, RawEventID: existing.ID}, nil
	}

	limits, err := s.rules.Limits(ctx)
	if err != nil {
		return nil, err
	}
	validation := Validate(input.EventType, input.OccurredAt, input.Data, limits, time.Now())

	payload, err := json.Marshal(input.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payload is not serializable")
	}

	source := input.Source
	if source == "" {
		source = "pwa"
	}

	event := &models.RawEvent{
		EventType:      input.EventType,
		IdempotencyKey: input.IdempotencyKey,
		OccurredAt:     input.OccurredAt,
		Payload:        payload,
		Source:         source,
		DeviceID:       input.DeviceID,
		UserID:         input.UserID,
	}

	var validationErrors json.RawMessage
	if len(validation.Errors) > 0 {
		validationErrors, err = json.Marshal(validation.Errors)
		if err != nil {
			return nil, err
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, event); err != nil {
			return err
		}
		return repo.CreateProcessingState(ctx, &models.RawEventProcessingState{
			RawEventID:       event.ID,
			ValidationStatus: validation.Status,
			ProcessingStatus: enums.ProcessingStatusPending,
			ValidationErrors: validationErrors,
		})
	})
	if err != nil {
		// A racing writer won the unique index: report the duplicate instead.
		if db.IsUniqueViolation(err, idempotencyKeyConstraint) {
			winner, lookupErr := s.repo.FindByIdempotencyKey(ctx, input.IdempotencyKey)
			if lookupErr == nil && winner != nil {
				return &IngestResult{Duplicated: true, RawEventID: winner.ID}, nil
			}
		}
		return nil, err
	}

	ctx = s.logg.WithRawEventID(ctx, event.ID.String())
	s.logg.Info(ctx, fmt.Sprintf("ingested %s event (%s)", event.EventType, validation.Status))

	return &IngestResult{
		Duplicated:       false,
		RawEventID:       event.ID,
		ValidationStatus: validation.Status,
		ProcessingStatus: enums.ProcessingStatusPending,
	}, nil
}

func (s *service) ListRaw(ctx context.Context, params ListRawParams) ([]models.RawEvent, error) {
	return s.repo.ListRaw(ctx, params)
}

func (s *service) GetPipelineMetrics(ctx context.Context) (*PipelineMetrics, error) {
	metrics := &PipelineMetrics{GeneratedAt: time.Now().UTC()}

	var err error
	if metrics.Processing.Pending, err = s.repo.CountByProcessingStatus(ctx, enums.ProcessingStatusPending); err != nil {
		return nil, err
	}
	if metrics.Processing.Processed, err = s.repo.CountByProcessingStatus(ctx, enums.ProcessingStatusProcessed); err != nil {
		return nil, err
	}
	if metrics.Processing.Failed, err = s.repo.CountByProcessingStatus(ctx, enums.ProcessingStatusFailed); err != nil {
		return nil, err
	}
	if metrics.Validation.Valid, err = s.repo.CountByValidationStatus(ctx, enums.ValidationStatusValid); err != nil {
		return nil, err
	}
	if metrics.Validation.NeedsReview, err = s.repo.CountByValidationStatus(ctx, enums.ValidationStatusNeedsReview); err != nil {
		return nil, err
	}
	return metrics, nil
}

func (s *service) ExportRawCSV(ctx context.Context, params ListRawParams) (string, error) {
	rows, err := s.repo.ListRaw(ctx, params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{
		"id", "event_type", "validation_status", "processing_status",
		"occurred_at", "ingested_at", "processed_at", "idempotency_key", "last_error",
	}); err != nil {
		return "", err
	}

	for _, row := range rows {
		fields := []string{
			row.ID.String(),
			string(row.EventType),
			"", "",
			row.OccurredAt.UTC().Format(time.RFC3339),
			"", "",
			row.IdempotencyKey,
			"",
		}
		if state := row.ProcessingState; state != nil {
			fields[2] = string(state.ValidationStatus)
			fields[3] = string(state.ProcessingStatus)
			fields[5] = state.IngestedAt.UTC().Format(time.RFC3339)
			if state.ProcessedAt != nil {
				fields[6] = state.ProcessedAt.UTC().Format(time.RFC3339)
			}
			if state.LastError != nil {
				fields[8] = *state.LastError
			}
		}
		if err := w.Write(fields); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}
