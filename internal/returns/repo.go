package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
)

// ClientTotal is the summed return quantity for one client over a window.
type ClientTotal struct {
	ClientID string
	Boxes    int
}

// Repository manages persistence for return records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.ReturnRecord) error
	HasForSourceEvent(ctx context.Context, sourceRawEventID uuid.UUID) (bool, error)
	ClientBoxTotals(ctx context.Context, from, to time.Time) ([]ClientTotal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a returns repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.ReturnRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) HasForSourceEvent(ctx context.Context, sourceRawEventID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReturnRecord{}).
		Where("source_raw_event_id = ?", sourceRawEventID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ClientBoxTotals(ctx context.Context, from, to time.Time) ([]ClientTotal, error) {
	var totals []ClientTotal
	err := r.db.WithContext(ctx).
		Model(&models.ReturnRecord{}).
		Select("client_id, COALESCE(SUM(boxes), 0) AS boxes").
		Where("happened_at >= ? AND happened_at < ?", from, to).
		Group("client_id").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
