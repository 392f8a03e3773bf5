package rules

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// Tunable limit keys. Values live in validation_rule_configs and fall back to
// the defaults below when absent or unparsable.
const (
	KeyQtyBoxesMax           = "QTY_BOXES_MAX"
	KeyQtyKgMax              = "QTY_KG_MAX"
	KeyEventFutureMinutesMax = "EVENT_FUTURE_MINUTES_MAX"
	KeyEventPastDaysMax      = "EVENT_PAST_DAYS_MAX"
	KeyMatureStockAlertBoxes = "MATURE_STOCK_ALERT_BOXES"
)

const (
	DefaultQtyBoxesMax           = 2000
	DefaultQtyKgMax              = 50000
	DefaultEventFutureMinutesMax = 5
	DefaultEventPastDaysMax      = 7
	DefaultMatureStockAlertBoxes = 300
)

var knownKeys = map[string]bool{
	KeyQtyBoxesMax:           true,
	KeyQtyKgMax:              true,
	KeyEventFutureMinutesMax: true,
	KeyEventPastDaysMax:      true,
	KeyMatureStockAlertBoxes: true,
}

// Limits is the resolved set of validation thresholds.
type Limits struct {
	QtyBoxesMax           int
	QtyKgMax              float64
	EventFutureMinutesMax int
	EventPastDaysMax      int
	MatureStockAlertBoxes int
}

// DefaultLimits returns the built-in thresholds.
func DefaultLimits() Limits {
	return Limits{
		QtyBoxesMax:           DefaultQtyBoxesMax,
		QtyKgMax:              DefaultQtyKgMax,
		EventFutureMinutesMax: DefaultEventFutureMinutesMax,
		EventPastDaysMax:      DefaultEventPastDaysMax,
		MatureStockAlertBoxes: DefaultMatureStockAlertBoxes,
	}
}

// Service exposes the tunable validation thresholds.
type Service interface {
	// Limits reads the current thresholds. Values are read fresh per call so
	// operator changes take effect without a restart.
	Limits(ctx context.Context) (Limits, error)
	List(ctx context.Context) ([]models.ValidationRuleConfig, error)
	Set(ctx context.Context, key, value, updatedBy string) (*models.ValidationRuleConfig, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires a rule config service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rules repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Limits(ctx context.Context) (Limits, error) {
	limits := DefaultLimits()

	configs, err := s.repo.List(ctx)
	if err != nil {
		return limits, err
	}

	for _, cfg := range configs {
		switch cfg.Key {
		case KeyQtyBoxesMax:
			s.applyInt(ctx, cfg, &limits.QtyBoxesMax)
		case KeyQtyKgMax:
			s.applyFloat(ctx, cfg, &limits.QtyKgMax)
		case KeyEventFutureMinutesMax:
			s.applyInt(ctx, cfg, &limits.EventFutureMinutesMax)
		case KeyEventPastDaysMax:
			s.applyInt(ctx, cfg, &limits.EventPastDaysMax)
		case KeyMatureStockAlertBoxes:
			s.applyInt(ctx, cfg, &limits.MatureStockAlertBoxes)
		}
	}
	return limits, nil
}

func (s *service) applyInt(ctx context.Context, cfg models.ValidationRuleConfig, dst *int) {
	parsed, err := strconv.Atoi(cfg.Value)
	if err != nil || parsed <= 0 {
		s.logg.Warn(ctx, fmt.Sprintf("ignoring invalid rule config %s=%q", cfg.Key, cfg.Value))
		return
	}
	*dst = parsed
}

func (s *service) applyFloat(ctx context.Context, cfg models.ValidationRuleConfig, dst *float64) {
	parsed, err := strconv.ParseFloat(cfg.Value, 64)
	if err != nil || parsed <= 0 {
		s.logg.Warn(ctx, fmt.Sprintf("ignoring invalid rule config %s=%q", cfg.Key, cfg.Value))
		return
	}
	*dst = parsed
}

func (s *service) List(ctx context.Context) ([]models.ValidationRuleConfig, error) {
	return s.repo.List(ctx)
}

func (s *service) Set(ctx context.Context, key, value, updatedBy string) (*models.ValidationRuleConfig, error) {
	if !knownKeys[key] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown rule config key %q", key))
	}
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule config %s requires a numeric value", key))
	}

	cfg := &models.ValidationRuleConfig{
		Key:   key,
		Value: value,
	}
	if updatedBy != "" {
		cfg.UpdatedBy = &updatedBy
	}

	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
