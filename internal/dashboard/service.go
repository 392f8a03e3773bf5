package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

const defaultReturnsWindowDays = 7

// QuantityTotal pairs summed boxes and kg.
type QuantityTotal struct {
	Boxes int             `json:"boxes"`
	Kg    decimal.Decimal `json:"kg"`
}

// MaturationBreakdown reports current stock per ripeness state, with the
// per-product rows behind the totals.
type MaturationBreakdown struct {
	Totals   map[enums.MaturityState]QuantityTotal `json:"totals"`
	Products []MaturationRow                       `json:"products"`
}

// ReturnsQuery filters the client returns read. Zero times default to the
// trailing week.
type ReturnsQuery struct {
	From     *time.Time
	To       *time.Time
	ClientID string
}

// Service exposes read-only views over the CLEAN read models. The data is as
// fresh as the last materialized view refresh.
type Service interface {
	Stock(ctx context.Context) ([]StockRow, error)
	Maturation(ctx context.Context) (*MaturationBreakdown, error)
	ClientReturns(ctx context.Context, query ReturnsQuery) ([]ClientReturnRow, error)
	MonthlyLosses(ctx context.Context, months int) ([]MonthlyLossRow, error)
}

// ServiceParams carries the dashboard dependencies.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the dashboard read service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) Stock(ctx context.Context) ([]StockRow, error) {
	rows, err := s.repo.StockRows(ctx)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []StockRow{}
	}
	return rows, nil
}

func (s *service) Maturation(ctx context.Context) (*MaturationBreakdown, error) {
	rows, err := s.repo.MaturationRows(ctx)
	if err != nil {
		return nil, err
	}

	totals := map[enums.MaturityState]QuantityTotal{
		enums.MaturityStateVerde:  {},
		enums.MaturityStateDeVez:  {},
		enums.MaturityStateMadura: {},
	}
	for _, row := range rows {
		state := enums.MaturityState(row.MaturityState)
		total := totals[state]
		total.Boxes += row.Boxes
		total.Kg = total.Kg.Add(row.Kg)
		totals[state] = total
	}

	if rows == nil {
		rows = []MaturationRow{}
	}
	return &MaturationBreakdown{Totals: totals, Products: rows}, nil
}

func (s *service) ClientReturns(ctx context.Context, query ReturnsQuery) ([]ClientReturnRow, error) {
	to := time.Now().UTC()
	if query.To != nil {
		to = *query.To
	}
	from := to.AddDate(0, 0, -defaultReturnsWindowDays)
	if query.From != nil {
		from = *query.From
	}
	if !from.Before(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}

	rows, err := s.repo.ClientReturnRows(ctx, from, to, query.ClientID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []ClientReturnRow{}
	}
	return rows, nil
}

func (s *service) MonthlyLosses(ctx context.Context, months int) ([]MonthlyLossRow, error) {
	if months <= 0 {
		months = 6
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	since := monthStart.AddDate(0, -(months - 1), 0)

	rows, err := s.repo.MonthlyLossRows(ctx, since)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []MonthlyLossRow{}
	}
	return rows, nil
}
