package rules

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
)

// Repository manages persistence for validation rule configs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.ValidationRuleConfig, error)
	Upsert(ctx context.Context, cfg *models.ValidationRuleConfig) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a rule config repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.ValidationRuleConfig, error) {
	var configs []models.ValidationRuleConfig
	if err := r.db.WithContext(ctx).
		Order("key ASC").
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repository) Upsert(ctx context.Context, cfg *models.ValidationRuleConfig) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_by", "updated_at"}),
		}).
		Create(cfg).Error
}
