package losses

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/lots"
	"github.com/bomjesus/armazem-backend/internal/reviews"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

type fakeEventsRepo struct {
	events.Repository

	byKey  map[string]*models.RawEvent
	events []*models.RawEvent
	states []*models.RawEventProcessingState
}

func (f *fakeEventsRepo) WithTx(tx *gorm.DB) events.Repository { return f }

func (f *fakeEventsRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.RawEvent, error) {
	return f.byKey[key], nil
}

func (f *fakeEventsRepo) Create(ctx context.Context, event *models.RawEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventsRepo) CreateProcessingState(ctx context.Context, state *models.RawEventProcessingState) error {
	f.states = append(f.states, state)
	return nil
}

type fakeLotsRepo struct {
	lots.Repository

	byID      map[uuid.UUID]*models.Lot
	movements []*models.StockMovement
	updates   []map[string]any
}

func (f *fakeLotsRepo) WithTx(tx *gorm.DB) lots.Repository { return f }

func (f *fakeLotsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	return f.byID[id], nil
}

func (f *fakeLotsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.updates = append(f.updates, updates)
	return nil
}

func (f *fakeLotsRepo) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	f.movements = append(f.movements, movement)
	return nil
}

type fakeLossesRepo struct {
	Repository
	created []*models.LossRecord
}

func (f *fakeLossesRepo) WithTx(tx *gorm.DB) Repository { return f }
func (f *fakeLossesRepo) Create(ctx context.Context, record *models.LossRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.created = append(f.created, record)
	return nil
}

type fakeIssuesRepo struct {
	reviews.Repository
	created []*models.ValidationIssue
}

func (f *fakeIssuesRepo) WithTx(tx *gorm.DB) reviews.Repository { return f }
func (f *fakeIssuesRepo) CreateIssue(ctx context.Context, issue *models.ValidationIssue) error {
	f.created = append(f.created, issue)
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type fixture struct {
	events *fakeEventsRepo
	lots   *fakeLotsRepo
	losses *fakeLossesRepo
	issues *fakeIssuesRepo
	svc    Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events: &fakeEventsRepo{byKey: map[string]*models.RawEvent{}},
		lots:   &fakeLotsRepo{byID: map[uuid.UUID]*models.Lot{}},
		losses: &fakeLossesRepo{},
		issues: &fakeIssuesRepo{},
	}
	svc, err := NewService(ServiceParams{
		Repo:   f.losses,
		Lots:   f.lots,
		Events: f.events,
		Issues: f.issues,
		Tx:     fakeTx{},
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func intPtr(v int) *int { return &v }

func TestCreate_WithLotWritesLedger(t *testing.T) {
	f := newFixture(t)
	lot := &models.Lot{ID: uuid.New(), ProductID: "mamao-formosa", Boxes: 30}
	f.lots.byID[lot.ID] = lot

	result, err := f.svc.Create(context.Background(), CreateInput{
		IdempotencyKey: "dev-2:evt-1",
		LotID:          &lot.ID,
		LocationID:     "camara-2",
		Reason:         "fungo",
		Boxes:          intPtr(4),
		HappenedAt:     time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result.AcceptedForReview || result.Flagged {
		t.Fatalf("in-stock loss must apply directly, got %+v", result)
	}
	if result.LossID == nil {
		t.Fatal("loss record id expected")
	}
	if len(f.losses.created) != 1 || f.losses.created[0].ProductID != "mamao-formosa" {
		t.Fatalf("unexpected loss records: %+v", f.losses.created)
	}
	if len(f.lots.movements) != 1 || f.lots.movements[0].BoxesDelta != -4 {
		t.Fatalf("expected ledger delta -4, got %+v", f.lots.movements)
	}
	if f.lots.updates[0]["boxes"] != 26 {
		t.Fatalf("expected remaining balance 26, got %v", f.lots.updates[0]["boxes"])
	}
	if f.events.states[0].ValidationStatus != enums.ValidationStatusValid {
		t.Fatal("in-stock loss must land as VALID")
	}
}

func TestCreate_WithoutLotAcceptedForReview(t *testing.T) {
	f := newFixture(t)
	productID := "mamao-formosa"

	result, err := f.svc.Create(context.Background(), CreateInput{
		IdempotencyKey: "dev-2:evt-2",
		ProductID:      &productID,
		LocationID:     "camara-2",
		Reason:         "queda",
		Boxes:          intPtr(2),
		HappenedAt:     time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !result.AcceptedForReview {
		t.Fatal("loss without lot must be accepted for review")
	}
	if result.LossID != nil {
		t.Fatal("review-only loss must not create a loss record")
	}
	if len(f.losses.created) != 0 || len(f.lots.movements) != 0 {
		t.Fatal("review-only loss must not touch the ledger")
	}
	if len(f.issues.created) != 1 || f.issues.created[0].Code != enums.IssueCodeLossWithoutLot {
		t.Fatalf("expected LOSS_WITHOUT_LOT issue, got %+v", f.issues.created)
	}
	state := f.events.states[0]
	if state.ValidationStatus != enums.ValidationStatusNeedsReview || state.ProcessingStatus != enums.ProcessingStatusPending {
		t.Fatalf("review-only loss must stay NEEDS_REVIEW/PENDING, got %s/%s", state.ValidationStatus, state.ProcessingStatus)
	}
}

func TestCreate_OverStockClampsAndFlags(t *testing.T) {
	f := newFixture(t)
	lot := &models.Lot{ID: uuid.New(), ProductID: "mamao-formosa", Boxes: 3}
	f.lots.byID[lot.ID] = lot

	result, err := f.svc.Create(context.Background(), CreateInput{
		IdempotencyKey: "dev-2:evt-3",
		LotID:          &lot.ID,
		LocationID:     "camara-2",
		Reason:         "fungo",
		Boxes:          intPtr(10),
		HappenedAt:     time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !result.Flagged {
		t.Fatal("over-stock loss must be flagged")
	}
	updates := f.lots.updates[0]
	if updates["boxes"] != 0 || updates["inconsistent"] != true {
		t.Fatalf("over-stock loss must clamp and mark inconsistent, got %v", updates)
	}
	if len(f.issues.created) != 1 || f.issues.created[0].Code != enums.IssueCodeLossOverStock {
		t.Fatalf("expected LOSS_OVER_STOCK issue, got %+v", f.issues.created)
	}
	if f.events.states[0].ValidationStatus != enums.ValidationStatusNeedsReview {
		t.Fatal("over-stock loss must land as NEEDS_REVIEW")
	}
}

func TestCreate_DuplicateKeyShortCircuits(t *testing.T) {
	f := newFixture(t)
	existingID := uuid.New()
	f.events.byKey["dev-2:evt-4"] = &models.RawEvent{ID: existingID}
	lotID := uuid.New()

	result, err := f.svc.Create(context.Background(), CreateInput{
		IdempotencyKey: "dev-2:evt-4",
		LotID:          &lotID,
		LocationID:     "camara-2",
		Reason:         "fungo",
		Boxes:          intPtr(1),
		HappenedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !result.Duplicated || result.RawEventID != existingID {
		t.Fatalf("expected duplicate pointing at original event, got %+v", result)
	}
	if len(f.events.events) != 0 || len(f.losses.created) != 0 {
		t.Fatal("duplicate submission must not write anything")
	}
}

func TestCreate_RequiresLotOrProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		IdempotencyKey: "dev-2:evt-5",
		LocationID:     "camara-2",
		Reason:         "fungo",
		Boxes:          intPtr(1),
		HappenedAt:     time.Now(),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}
