package alerts

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/bomjesus/armazem-backend/internal/losses"
	"github.com/bomjesus/armazem-backend/internal/returns"
	"github.com/bomjesus/armazem-backend/pkg/enums"
)

func TestEvaluateEstoqueMadura_AggregatesOffenders(t *testing.T) {
	h := newHarness(t)
	h.repo.maduraTotals = []MaduraProductTotal{
		{ProductID: "banana", Boxes: 25},
		{ProductID: "mamao", Boxes: 30},
		{ProductID: "manga", Boxes: 10},
	}

	firings, err := h.svc.(*service).evaluateEstoqueMadura(context.Background(), nil)
	if err != nil {
		t.Fatalf("evaluateEstoqueMadura: %v", err)
	}
	if len(firings) != 1 {
		t.Fatalf("offenders must collapse into one firing, got %d", len(firings))
	}
	if firings[0].Severity != enums.AlertSeverityWarning {
		t.Fatalf("no product over the critical line, expected WARNING, got %s", firings[0].Severity)
	}
	products, ok := firings[0].Context["products"].([]map[string]any)
	if !ok || len(products) != 2 {
		t.Fatalf("expected two offending products in context, got %v", firings[0].Context["products"])
	}
}

func dailyTotals(now time.Time, daysAgoToBoxes map[int]int) []losses.DailyTotal {
	today := now.UTC().Truncate(24 * time.Hour)
	var totals []losses.DailyTotal
	for daysAgo, boxes := range daysAgoToBoxes {
		totals = append(totals, losses.DailyTotal{Day: today.AddDate(0, 0, -daysAgo), Boxes: boxes})
	}
	return totals
}

func TestEvaluatePerdasDia_SpikeFires(t *testing.T) {
	h := newHarness(t)
	now := time.Now().UTC()
	h.losses.totals = dailyTotals(now, map[int]int{
		7: 10, 6: 12, 5: 11, 4: 9, 3: 13, 2: 10, 1: 11,
		0: 20,
	})

	firings, err := h.svc.(*service).evaluatePerdasDia(context.Background(), nil, now)
	if err != nil {
		t.Fatalf("evaluatePerdasDia: %v", err)
	}
	if len(firings) != 1 {
		t.Fatalf("expected one firing for a spike, got %d", len(firings))
	}

	// History mean 10.857, sample stdev 1.345, threshold ~13.55.
	threshold, ok := firings[0].Context["threshold"].(float64)
	if !ok || math.Abs(threshold-13.55) > 0.01 {
		t.Fatalf("unexpected threshold %v", firings[0].Context["threshold"])
	}
}

func TestEvaluatePerdasDia_NormalDayQuiet(t *testing.T) {
	h := newHarness(t)
	now := time.Now().UTC()
	h.losses.totals = dailyTotals(now, map[int]int{
		7: 10, 6: 12, 5: 11, 4: 9, 3: 13, 2: 10, 1: 11,
		0: 12,
	})

	firings, err := h.svc.(*service).evaluatePerdasDia(context.Background(), nil, now)
	if err != nil {
		t.Fatalf("evaluatePerdasDia: %v", err)
	}
	if len(firings) != 0 {
		t.Fatalf("no firing expected for a normal day, got %+v", firings)
	}
}

func TestEvaluatePerdasDia_TooLittleHistory(t *testing.T) {
	h := newHarness(t)
	now := time.Now().UTC()
	h.losses.totals = dailyTotals(now, map[int]int{
		2: 5, 1: 5,
		0: 500,
	})

	firings, err := h.svc.(*service).evaluatePerdasDia(context.Background(), nil, now)
	if err != nil {
		t.Fatalf("evaluatePerdasDia: %v", err)
	}
	if len(firings) != 0 {
		t.Fatal("fewer than three history days must never fire")
	}
}

func TestEvaluateDevolucoes_BaselineComparison(t *testing.T) {
	h := newHarness(t)
	now := time.Now().UTC()

	h.returns.last7 = []returns.ClientTotal{
		{ClientID: "mercado-a", Boxes: 30},
		{ClientID: "mercado-b", Boxes: 5},
		{ClientID: "mercado-novo", Boxes: 10},
	}
	h.returns.last28 = []returns.ClientTotal{
		{ClientID: "mercado-a", Boxes: 70},
		{ClientID: "mercado-b", Boxes: 20},
		{ClientID: "mercado-novo", Boxes: 10},
	}

	firings, err := h.svc.(*service).evaluateDevolucoes(context.Background(), nil, now)
	if err != nil {
		t.Fatalf("evaluateDevolucoes: %v", err)
	}

	// mercado-a: baseline (70-30)/4=10, 30 > 15 fires.
	// mercado-b: baseline 3.75, 5 <= 5.625 quiet.
	// mercado-novo: baseline 0, never fires.
	if len(firings) != 1 {
		t.Fatalf("expected exactly one firing, got %d", len(firings))
	}
	if firings[0].Context["topClientId"] != "mercado-a" {
		t.Fatalf("wrong top client: %v", firings[0].Context)
	}
	clients, ok := firings[0].Context["clients"].([]map[string]any)
	if !ok || len(clients) != 1 {
		t.Fatalf("expected one offending client in context, got %v", firings[0].Context["clients"])
	}
}

func TestEvaluateBacklog(t *testing.T) {
	cases := []struct {
		name      string
		pending   int64
		oldestAge time.Duration
		fires     bool
	}{
		{"quiet queue", 10, 5 * time.Minute, false},
		{"too many pending", 60, 5 * time.Minute, true},
		{"stale oldest", 10, 40 * time.Minute, true},
		{"empty queue", 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.events.pendingCount = tc.pending
			h.events.oldestAge = tc.oldestAge

			firings, err := h.svc.(*service).evaluateBacklog(context.Background(), nil, time.Now().UTC())
			if err != nil {
				t.Fatalf("evaluateBacklog: %v", err)
			}
			if (len(firings) > 0) != tc.fires {
				t.Fatalf("fires=%v, expected %v", len(firings) > 0, tc.fires)
			}
		})
	}
}

func TestMeanStdev(t *testing.T) {
	mean, stdev := meanStdev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Fatalf("expected mean 5, got %f", mean)
	}
	if math.Abs(stdev-2.138) > 0.001 {
		t.Fatalf("expected sample stdev ~2.138, got %f", stdev)
	}
}
