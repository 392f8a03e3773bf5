package losses

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
)

// DailyTotal is the summed loss quantity for one calendar day.
type DailyTotal struct {
	Day   time.Time
	Boxes int
}

// Repository manages persistence for loss records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.LossRecord) error
	HasForSourceEvent(ctx context.Context, sourceRawEventID uuid.UUID) (bool, error)
	DailyBoxTotals(ctx context.Context, from, to time.Time) ([]DailyTotal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a losses repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.LossRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) HasForSourceEvent(ctx context.Context, sourceRawEventID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LossRecord{}).
		Where("source_raw_event_id = ?", sourceRawEventID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) DailyBoxTotals(ctx context.Context, from, to time.Time) ([]DailyTotal, error) {
	var totals []DailyTotal
	err := r.db.WithContext(ctx).
		Model(&models.LossRecord{}).
		Select("date_trunc('day', happened_at) AS day, COALESCE(SUM(boxes), 0) AS boxes").
		Where("happened_at >= ? AND happened_at < ?", from, to).
		Group("date_trunc('day', happened_at)").
		Order("day ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
