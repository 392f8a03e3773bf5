package alerts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// MaduraProductTotal is the summed MADURA stock for one product.
type MaduraProductTotal struct {
	ProductID string
	Boxes     int
}

// Repository manages alert rules, fired events, recipients and push
// subscriptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListRules(ctx context.Context) ([]models.AlertRule, error)
	ListEnabledRules(ctx context.Context) ([]models.AlertRule, error)
	FindRuleByKey(ctx context.Context, ruleKey string) (*models.AlertRule, error)
	CreateRule(ctx context.Context, rule *models.AlertRule) error
	UpdateRule(ctx context.Context, id uuid.UUID, updates map[string]any) error

	CreateEvent(ctx context.Context, event *models.AlertEvent) error
	UpdateEvent(ctx context.Context, id uuid.UUID, updates map[string]any) error
	LatestSentEvent(ctx context.Context, ruleKey string) (*models.AlertEvent, error)
	ListRecentEvents(ctx context.Context, limit int) ([]models.AlertEvent, error)

	ListActiveUsersByRoles(ctx context.Context, roles []enums.UserRole) ([]models.User, error)
	FindPushSubscription(ctx context.Context, userID uuid.UUID) (*models.PushSubscription, error)
	UpsertPushSubscription(ctx context.Context, sub *models.PushSubscription) error

	MaduraProductTotals(ctx context.Context) ([]MaduraProductTotal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an alerts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListRules(ctx context.Context) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	if err := r.db.WithContext(ctx).
		Order("rule_key ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) ListEnabledRules(ctx context.Context) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("rule_key ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) FindRuleByKey(ctx context.Context, ruleKey string) (*models.AlertRule, error) {
	var rule models.AlertRule
	err := r.db.WithContext(ctx).
		Where("rule_key = ?", ruleKey).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *repository) UpdateRule(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.AlertRule{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateEvent(ctx context.Context, event *models.AlertEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) UpdateEvent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.AlertEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) LatestSentEvent(ctx context.Context, ruleKey string) (*models.AlertEvent, error) {
	var event models.AlertEvent
	err := r.db.WithContext(ctx).
		Where("rule_key = ? AND delivery_status = ?", ruleKey, enums.AlertDeliveryStatusSent).
		Order("fired_at DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) ListRecentEvents(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.AlertEvent
	if err := r.db.WithContext(ctx).
		Order("fired_at DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListActiveUsersByRoles(ctx context.Context, roles []enums.UserRole) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("active = ? AND role IN ?", true, roles).
		Order("email ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) FindPushSubscription(ctx context.Context, userID uuid.UUID) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) UpsertPushSubscription(ctx context.Context, sub *models.PushSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"endpoint", "p256dh", "auth", "updated_at"}),
		}).
		Create(sub).Error
}

func (r *repository) MaduraProductTotals(ctx context.Context) ([]MaduraProductTotal, error) {
	var totals []MaduraProductTotal
	err := r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Select("product_id, COALESCE(SUM(boxes), 0) AS boxes").
		Where("maturity_state = ? AND boxes > 0", enums.MaturityStateMadura).
		Group("product_id").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
