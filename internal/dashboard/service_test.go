package dashboard

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

type fakeRepo struct {
	Repository

	stockRows      []StockRow
	maturationRows []MaturationRow
	returnRows     []ClientReturnRow
	lossRows       []MonthlyLossRow

	returnsFrom     time.Time
	returnsTo       time.Time
	returnsClientID string
	lossesSince     time.Time
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) StockRows(ctx context.Context) ([]StockRow, error) {
	return f.stockRows, nil
}

func (f *fakeRepo) MaturationRows(ctx context.Context) ([]MaturationRow, error) {
	return f.maturationRows, nil
}

func (f *fakeRepo) ClientReturnRows(ctx context.Context, from, to time.Time, clientID string) ([]ClientReturnRow, error) {
	f.returnsFrom = from
	f.returnsTo = to
	f.returnsClientID = clientID
	return f.returnRows, nil
}

func (f *fakeRepo) MonthlyLossRows(ctx context.Context, since time.Time) ([]MonthlyLossRow, error) {
	f.lossesSince = since
	return f.lossRows, nil
}

func newDashboard(t *testing.T) (*fakeRepo, Service) {
	t.Helper()
	repo := &fakeRepo{}
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return repo, svc
}

func TestStock_ReturnsEmptySliceNotNil(t *testing.T) {
	_, svc := newDashboard(t)

	rows, err := svc.Stock(context.Background())
	if err != nil {
		t.Fatalf("Stock: %v", err)
	}
	if rows == nil {
		t.Fatal("expected empty slice, got nil")
	}
}

func TestMaturation_TotalsEveryState(t *testing.T) {
	repo, svc := newDashboard(t)
	repo.maturationRows = []MaturationRow{
		{ProductID: "banana", MaturityState: "MADURA", Boxes: 30, Kg: decimal.NewFromInt(600)},
		{ProductID: "manga", MaturityState: "MADURA", Boxes: 10, Kg: decimal.NewFromInt(180)},
		{ProductID: "banana", MaturityState: "VERDE", Boxes: 5, Kg: decimal.NewFromInt(90)},
	}

	breakdown, err := svc.Maturation(context.Background())
	if err != nil {
		t.Fatalf("Maturation: %v", err)
	}

	madura := breakdown.Totals[enums.MaturityStateMadura]
	if madura.Boxes != 40 || !madura.Kg.Equal(decimal.NewFromInt(780)) {
		t.Fatalf("unexpected MADURA total %+v", madura)
	}
	if breakdown.Totals[enums.MaturityStateVerde].Boxes != 5 {
		t.Fatalf("unexpected VERDE total %+v", breakdown.Totals[enums.MaturityStateVerde])
	}
	// States with no stock still appear zeroed.
	if _, ok := breakdown.Totals[enums.MaturityStateDeVez]; !ok {
		t.Fatal("DE_VEZ must be present even when empty")
	}
	if len(breakdown.Products) != 3 {
		t.Fatalf("expected 3 product rows, got %d", len(breakdown.Products))
	}
}

func TestClientReturns_DefaultsToTrailingWeek(t *testing.T) {
	repo, svc := newDashboard(t)

	if _, err := svc.ClientReturns(context.Background(), ReturnsQuery{ClientID: "mercado-a"}); err != nil {
		t.Fatalf("ClientReturns: %v", err)
	}

	window := repo.returnsTo.Sub(repo.returnsFrom)
	if window != 7*24*time.Hour {
		t.Fatalf("expected a 7-day window, got %s", window)
	}
	if repo.returnsClientID != "mercado-a" {
		t.Fatalf("client filter not forwarded, got %q", repo.returnsClientID)
	}
}

func TestClientReturns_RejectsInvertedRange(t *testing.T) {
	_, svc := newDashboard(t)
	from := time.Now().UTC()
	to := from.AddDate(0, 0, -1)

	_, err := svc.ClientReturns(context.Background(), ReturnsQuery{From: &from, To: &to})
	if err == nil {
		t.Fatal("expected validation error for inverted range")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION error, got %v", err)
	}
}

func TestMonthlyLosses_WindowStartsOnMonthBoundary(t *testing.T) {
	repo, svc := newDashboard(t)

	if _, err := svc.MonthlyLosses(context.Background(), 3); err != nil {
		t.Fatalf("MonthlyLosses: %v", err)
	}

	if repo.lossesSince.Day() != 1 {
		t.Fatalf("window must start on the first of a month, got %s", repo.lossesSince)
	}
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if got := repo.lossesSince; !got.Equal(monthStart.AddDate(0, -2, 0)) {
		t.Fatalf("expected 3-month window from %s, got %s", monthStart.AddDate(0, -2, 0), got)
	}
}
