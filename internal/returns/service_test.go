package returns

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/lots"
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
	movements []*models.StockMovement
}

func (f *fakeLotsRepo) WithTx(tx *gorm.DB) lots.Repository { return f }
func (f *fakeLotsRepo) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	f.movements = append(f.movements, movement)
	return nil
}

type fakeReturnsRepo struct {
	Repository
	created []*models.ReturnRecord
}

func (f *fakeReturnsRepo) WithTx(tx *gorm.DB) Repository { return f }
func (f *fakeReturnsRepo) Create(ctx context.Context, record *models.ReturnRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.created = append(f.created, record)
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type fixture struct {
	events  *fakeEventsRepo
	lots    *fakeLotsRepo
	returns *fakeReturnsRepo
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events:  &fakeEventsRepo{byKey: map[string]*models.RawEvent{}},
		lots:    &fakeLotsRepo{},
		returns: &fakeReturnsRepo{},
	}
	svc, err := NewService(ServiceParams{
		Repo:   f.returns,
		Lots:   f.lots,
		Events: f.events,
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

func createInput() CreateInput {
	return CreateInput{
		IdempotencyKey: "dev-3:evt-1",
		ClientID:       "mercado-central",
		StoreID:        "loja-3",
		Reason:         "madura demais",
		Boxes:          intPtr(3),
		HappenedAt:     time.Now().Add(-time.Hour),
	}
}

func TestCreate_PersistsReturnAndMovement(t *testing.T) {
	f := newFixture(t)
	lotID := uuid.New()
	input := createInput()
	input.LotID = &lotID

	result, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result.Duplicated {
		t.Fatal("fresh key must not report duplicated")
	}
	if len(f.returns.created) != 1 {
		t.Fatalf("expected 1 return record, got %d", len(f.returns.created))
	}
	record := f.returns.created[0]
	if record.ClientID != "mercado-central" || record.StoreID != "loja-3" {
		t.Fatalf("unexpected return record: %+v", record)
	}
	if result.ReturnID != record.ID {
		t.Fatal("result must reference the created return")
	}
	if len(f.lots.movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(f.lots.movements))
	}
	movement := f.lots.movements[0]
	if movement.MovementType != enums.MovementTypeReturn || movement.BoxesDelta != -3 {
		t.Fatalf("unexpected movement: %+v", movement)
	}
	if f.events.states[0].ValidationStatus != enums.ValidationStatusValid {
		t.Fatal("direct return must land as VALID")
	}
}

func TestCreate_WithoutLotSkipsMovement(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(f.returns.created) != 1 {
		t.Fatalf("expected 1 return record, got %d", len(f.returns.created))
	}
	if len(f.lots.movements) != 0 {
		t.Fatal("return without lot must not touch the stock ledger")
	}
	if result.ReturnID == uuid.Nil {
		t.Fatal("return id expected")
	}
}

func TestCreate_DuplicateKeyShortCircuits(t *testing.T) {
	f := newFixture(t)
	existingID := uuid.New()
	f.events.byKey["dev-3:evt-1"] = &models.RawEvent{ID: existingID}

	result, err := f.svc.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !result.Duplicated || result.RawEventID != existingID {
		t.Fatalf("expected duplicate pointing at original event, got %+v", result)
	}
	if len(f.events.events) != 0 || len(f.returns.created) != 0 {
		t.Fatal("duplicate submission must not write anything")
	}
}

func TestCreate_RequiresClientAndStore(t *testing.T) {
	f := newFixture(t)
	input := createInput()
	input.ClientID = ""

	_, err := f.svc.Create(context.Background(), input)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}
