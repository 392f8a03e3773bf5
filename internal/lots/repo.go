package lots

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// Repository manages persistence for lots and their stock ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, lot *models.Lot) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lot, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListAll(ctx context.Context) ([]models.Lot, error)
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	HasMovement(ctx context.Context, sourceRawEventID uuid.UUID, movementType enums.MovementType) (bool, error)
	UpsertSnapshot(ctx context.Context, snapshot *models.MaturationDailySnapshot) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a lots repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, lot *models.Lot) error {
	return r.db.WithContext(ctx).Create(lot).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListAll(ctx context.Context) ([]models.Lot, error) {
	var lots []models.Lot
	if err := r.db.WithContext(ctx).
		Order("entry_date ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) HasMovement(ctx context.Context, sourceRawEventID uuid.UUID, movementType enums.MovementType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Where("source_raw_event_id = ? AND movement_type = ?", sourceRawEventID, movementType).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) UpsertSnapshot(ctx context.Context, snapshot *models.MaturationDailySnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lot_id"}, {Name: "snapshot_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "boxes", "kg", "updated_at"}),
		}).
		Create(snapshot).Error
}
