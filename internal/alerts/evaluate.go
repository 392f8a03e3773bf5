package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// Firing is one concrete alert produced by an evaluator, before fan-out to
// channels and recipients.
type Firing struct {
	Severity enums.AlertSeverity
	Title    string
	Body     string
	Context  map[string]any
}

type estoqueMaduraParams struct {
	WarningBoxes  int `json:"warningBoxes"`
	CriticalBoxes int `json:"criticalBoxes"`
}

type perdasDiaParams struct {
	WindowDays  int     `json:"windowDays"`
	MinDays     int     `json:"minDays"`
	StdevFactor float64 `json:"stdevFactor"`
}

type devolucoesParams struct {
	Factor float64 `json:"factor"`
}

type backlogParams struct {
	MaxPending       int `json:"maxPending"`
	MaxOldestMinutes int `json:"maxOldestMinutes"`
}

func decodeParams[T any](raw json.RawMessage, defaults T) T {
	out := defaults
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

// evaluateEstoqueMadura collects every product whose MADURA stock passed
// the warning or critical threshold into a single firing. Severity is
// CRITICAL when any product crossed the critical line.
func (s *service) evaluateEstoqueMadura(ctx context.Context, raw json.RawMessage) ([]Firing, error) {
	params := decodeParams(raw, estoqueMaduraParams{WarningBoxes: 20, CriticalBoxes: 50})

	totals, err := s.repo.MaduraProductTotals(ctx)
	if err != nil {
		return nil, err
	}

	severity := enums.AlertSeverityWarning
	var lines []string
	var products []map[string]any
	for _, total := range totals {
		switch {
		case total.Boxes > params.CriticalBoxes:
			severity = enums.AlertSeverityCritical
		case total.Boxes > params.WarningBoxes:
		default:
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %d caixas", total.ProductID, total.Boxes))
		products = append(products, map[string]any{
			"productId": total.ProductID,
			"boxes":     total.Boxes,
		})
	}
	if len(products) == 0 {
		return nil, nil
	}

	return []Firing{{
		Severity: severity,
		Title:    "Estoque madura acumulado",
		Body:     fmt.Sprintf("%d produtos com estoque MADURA acima do limite: %s", len(products), strings.Join(lines, "; ")),
		Context: map[string]any{
			"products": products,
		},
	}}, nil
}

// evaluatePerdasDia compares today's loss total against the trailing window
// mean plus stdevFactor sample standard deviations. Days without losses do
// not count toward the minimum history.
func (s *service) evaluatePerdasDia(ctx context.Context, raw json.RawMessage, now time.Time) ([]Firing, error) {
	params := decodeParams(raw, perdasDiaParams{WindowDays: 7, MinDays: 3, StdevFactor: 2})

	today := now.UTC().Truncate(24 * time.Hour)
	windowStart := today.AddDate(0, 0, -params.WindowDays)

	totals, err := s.losses.DailyBoxTotals(ctx, windowStart, now)
	if err != nil {
		return nil, err
	}

	var history []float64
	todayBoxes := 0
	for _, total := range totals {
		if total.Day.UTC().Truncate(24 * time.Hour).Equal(today) {
			todayBoxes = total.Boxes
			continue
		}
		history = append(history, float64(total.Boxes))
	}

	if len(history) < params.MinDays {
		return nil, nil
	}

	mean, stdev := meanStdev(history)
	threshold := mean + params.StdevFactor*stdev
	if threshold <= 0 || float64(todayBoxes) <= threshold {
		return nil, nil
	}

	return []Firing{{
		Severity: enums.AlertSeverityWarning,
		Title:    "Perdas do dia acima do padrao",
		Body:     fmt.Sprintf("%d caixas perdidas hoje, limite estatistico %.1f", todayBoxes, threshold),
		Context: map[string]any{
			"todayBoxes": todayBoxes,
			"mean":       mean,
			"stdev":      stdev,
			"threshold":  threshold,
		},
	}}, nil
}

// evaluateDevolucoes compares each client's last 7 days of returns against
// factor times their weekly baseline from the preceding 21 days, then rolls
// every offender into one firing that names the worst client.
func (s *service) evaluateDevolucoes(ctx context.Context, raw json.RawMessage, now time.Time) ([]Firing, error) {
	params := decodeParams(raw, devolucoesParams{Factor: 1.5})

	last7Start := now.AddDate(0, 0, -7)
	last28Start := now.AddDate(0, 0, -28)

	last7, err := s.returns.ClientBoxTotals(ctx, last7Start, now)
	if err != nil {
		return nil, err
	}
	last28, err := s.returns.ClientBoxTotals(ctx, last28Start, now)
	if err != nil {
		return nil, err
	}

	totals28 := make(map[string]int, len(last28))
	for _, total := range last28 {
		totals28[total.ClientID] = total.Boxes
	}

	var offenders []map[string]any
	topClient := ""
	topBoxes := 0
	for _, total := range last7 {
		baseline := float64(totals28[total.ClientID]-total.Boxes) / 4
		if baseline <= 0 {
			// New clients have no history to compare against.
			continue
		}
		if float64(total.Boxes) <= params.Factor*baseline {
			continue
		}
		offenders = append(offenders, map[string]any{
			"clientId":       total.ClientID,
			"last7Boxes":     total.Boxes,
			"weeklyBaseline": baseline,
		})
		if total.Boxes > topBoxes {
			topBoxes = total.Boxes
			topClient = total.ClientID
		}
	}
	if len(offenders) == 0 {
		return nil, nil
	}

	return []Firing{{
		Severity: enums.AlertSeverityWarning,
		Title:    "Devolucoes por cliente em alta",
		Body:     fmt.Sprintf("%d clientes acima do padrao, pior caso %s com %d caixas em 7 dias", len(offenders), topClient, topBoxes),
		Context: map[string]any{
			"clients":       offenders,
			"topClientId":   topClient,
			"topLast7Boxes": topBoxes,
		},
	}}, nil
}

// evaluateBacklog fires when the RAW pending queue grows past maxPending or
// the oldest pending event sits unprocessed for too long.
func (s *service) evaluateBacklog(ctx context.Context, raw json.RawMessage, now time.Time) ([]Firing, error) {
	params := decodeParams(raw, backlogParams{MaxPending: 50, MaxOldestMinutes: 30})

	pending, err := s.events.CountByProcessingStatus(ctx, enums.ProcessingStatusPending)
	if err != nil {
		return nil, err
	}
	oldest, err := s.events.OldestPendingIngestedAt(ctx)
	if err != nil {
		return nil, err
	}

	var oldestAge time.Duration
	if oldest != nil {
		oldestAge = now.Sub(*oldest)
	}

	maxAge := time.Duration(params.MaxOldestMinutes) * time.Minute
	if pending <= int64(params.MaxPending) && oldestAge <= maxAge {
		return nil, nil
	}

	return []Firing{{
		Severity: enums.AlertSeverityCritical,
		Title:    "Fila de eventos RAW represada",
		Body:     fmt.Sprintf("%d eventos pendentes, mais antigo ha %s", pending, oldestAge.Round(time.Minute)),
		Context: map[string]any{
			"pendingCount":     pending,
			"oldestAgeMinutes": int(oldestAge.Minutes()),
		},
	}}, nil
}

func meanStdev(values []float64) (float64, float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	if n < 2 {
		return mean, 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= n - 1
	return mean, math.Sqrt(variance)
}
