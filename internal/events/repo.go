package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// ListRawParams filters the RAW event listing.
type ListRawParams struct {
	Status         *enums.ProcessingStatus
	EventType      *enums.RawEventType
	IdempotencyKey string
	From           *time.Time
	To             *time.Time
	Limit          int
}

// Repository manages persistence for RAW events and their processing states.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.RawEvent) error
	CreateProcessingState(ctx context.Context, state *models.RawEventProcessingState) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.RawEvent, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.RawEvent, error)
	ListRaw(ctx context.Context, params ListRawParams) ([]models.RawEvent, error)
	ListPendingStates(ctx context.Context, limit int) ([]models.RawEventProcessingState, error)
	ListFailedStates(ctx context.Context, limit int) ([]models.RawEventProcessingState, error)
	UpdateState(ctx context.Context, rawEventID uuid.UUID, updates map[string]any) error
	CountByProcessingStatus(ctx context.Context, status enums.ProcessingStatus) (int64, error)
	CountByValidationStatus(ctx context.Context, status enums.ValidationStatus) (int64, error)
	OldestPendingIngestedAt(ctx context.Context) (*time.Time, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an events repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.RawEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) CreateProcessingState(ctx context.Context, state *models.RawEventProcessingState) error {
	return r.db.WithContext(ctx).Create(state).Error
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.RawEvent, error) {
	var event models.RawEvent
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RawEvent, error) {
	var event models.RawEvent
	err := r.db.WithContext(ctx).
		Preload("ProcessingState").
		Where("id = ?", id).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) ListRaw(ctx context.Context, params ListRawParams) ([]models.RawEvent, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 200
	}

	query := r.db.WithContext(ctx).Model(&models.RawEvent{}).Preload("ProcessingState")

	if params.Status != nil {
		query = query.Where(
			"id IN (?)",
			r.db.Model(&models.RawEventProcessingState{}).
				Select("raw_event_id").
				Where("processing_status = ?", *params.Status),
		)
	}
	if params.EventType != nil {
		query = query.Where("event_type = ?", *params.EventType)
	}
	if params.IdempotencyKey != "" {
		query = query.Where("idempotency_key ILIKE ?", "%"+params.IdempotencyKey+"%")
	}
	if params.From != nil {
		query = query.Where("occurred_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("occurred_at <= ?", *params.To)
	}

	var rows []models.RawEvent
	if err := query.Order("occurred_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListPendingStates(ctx context.Context, limit int) ([]models.RawEventProcessingState, error) {
	return r.listStatesByStatus(ctx, enums.ProcessingStatusPending, limit)
}

func (r *repository) ListFailedStates(ctx context.Context, limit int) ([]models.RawEventProcessingState, error) {
	return r.listStatesByStatus(ctx, enums.ProcessingStatusFailed, limit)
}

func (r *repository) listStatesByStatus(ctx context.Context, status enums.ProcessingStatus, limit int) ([]models.RawEventProcessingState, error) {
	if limit <= 0 {
		limit = 100
	}
	var states []models.RawEventProcessingState
	if err := r.db.WithContext(ctx).
		Where("processing_status = ?", status).
		Order("ingested_at ASC").
		Limit(limit).
		Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

func (r *repository) UpdateState(ctx context.Context, rawEventID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.RawEventProcessingState{}).
		Where("raw_event_id = ?", rawEventID).
		Updates(updates).Error
}

func (r *repository) CountByProcessingStatus(ctx context.Context, status enums.ProcessingStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RawEventProcessingState{}).
		Where("processing_status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *repository) CountByValidationStatus(ctx context.Context, status enums.ValidationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RawEventProcessingState{}).
		Where("validation_status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *repository) OldestPendingIngestedAt(ctx context.Context) (*time.Time, error) {
	var state models.RawEventProcessingState
	err := r.db.WithContext(ctx).
		Where("processing_status = ?", enums.ProcessingStatusPending).
		Order("ingested_at ASC").
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state.IngestedAt, nil
}
