package rules

import (
	"context"
	"io"
	"testing"

	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

type fakeRepo struct {
	configs []models.ValidationRuleConfig
	upserts []*models.ValidationRuleConfig
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) List(ctx context.Context) ([]models.ValidationRuleConfig, error) {
	return f.configs, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, cfg *models.ValidationRuleConfig) error {
	f.upserts = append(f.upserts, cfg)
	return nil
}

func newTestService(t *testing.T, repo *fakeRepo) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestLimits_DefaultsWhenUnconfigured(t *testing.T) {
	svc := newTestService(t, &fakeRepo{})

	limits, err := svc.Limits(context.Background())
	if err != nil {
		t.Fatalf("Limits: %v", err)
	}
	if limits != DefaultLimits() {
		t.Fatalf("expected built-in defaults, got %+v", limits)
	}
}

func TestLimits_AppliesStoredOverrides(t *testing.T) {
	svc := newTestService(t, &fakeRepo{configs: []models.ValidationRuleConfig{
		{Key: KeyQtyBoxesMax, Value: "500"},
		{Key: KeyQtyKgMax, Value: "1234.5"},
	}})

	limits, err := svc.Limits(context.Background())
	if err != nil {
		t.Fatalf("Limits: %v", err)
	}
	if limits.QtyBoxesMax != 500 {
		t.Fatalf("expected QtyBoxesMax 500, got %d", limits.QtyBoxesMax)
	}
	if limits.QtyKgMax != 1234.5 {
		t.Fatalf("expected QtyKgMax 1234.5, got %v", limits.QtyKgMax)
	}
	if limits.EventPastDaysMax != DefaultEventPastDaysMax {
		t.Fatal("untouched keys must keep their defaults")
	}
}

func TestLimits_IgnoresInvalidValues(t *testing.T) {
	svc := newTestService(t, &fakeRepo{configs: []models.ValidationRuleConfig{
		{Key: KeyQtyBoxesMax, Value: "not-a-number"},
		{Key: KeyEventPastDaysMax, Value: "-3"},
	}})

	limits, err := svc.Limits(context.Background())
	if err != nil {
		t.Fatalf("Limits: %v", err)
	}
	if limits != DefaultLimits() {
		t.Fatalf("invalid stored values must fall back to defaults, got %+v", limits)
	}
}

func TestSet_UpsertsKnownKey(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo)

	cfg, err := svc.Set(context.Background(), KeyQtyBoxesMax, "800", "maria")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.Key != KeyQtyBoxesMax || cfg.Value != "800" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.UpdatedBy == nil || *cfg.UpdatedBy != "maria" {
		t.Fatal("updatedBy must be recorded")
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(repo.upserts))
	}
}

func TestSet_RejectsUnknownKey(t *testing.T) {
	svc := newTestService(t, &fakeRepo{})

	_, err := svc.Set(context.Background(), "NOT_A_KEY", "1", "maria")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestSet_RejectsNonNumericValue(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo)

	_, err := svc.Set(context.Background(), KeyQtyKgMax, "muito", "maria")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(repo.upserts) != 0 {
		t.Fatal("invalid value must not be persisted")
	}
}
