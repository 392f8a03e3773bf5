package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockRow is one product/location aggregate from clean.estoque_atual.
type StockRow struct {
	ProductID  string          `gorm:"column:product_id" json:"productId"`
	LocationID string          `gorm:"column:current_location_id" json:"locationId"`
	Boxes      int             `gorm:"column:boxes" json:"boxes"`
	Kg         decimal.Decimal `gorm:"column:kg" json:"kg"`
	LotCount   int             `gorm:"column:lot_count" json:"lotCount"`
}

// MaturationRow is one product/state aggregate from clean.maturacao_atual.
type MaturationRow struct {
	ProductID     string          `gorm:"column:product_id" json:"productId"`
	MaturityState string          `gorm:"column:maturity_state" json:"maturityState"`
	Boxes         int             `gorm:"column:boxes" json:"boxes"`
	Kg            decimal.Decimal `gorm:"column:kg" json:"kg"`
}

// ClientReturnRow is one client/day aggregate from clean.devolucoes_clientes.
type ClientReturnRow struct {
	ClientID string          `gorm:"column:client_id" json:"clientId"`
	Day      time.Time       `gorm:"column:dia" json:"day"`
	Boxes    int             `gorm:"column:boxes" json:"boxes"`
	Kg       decimal.Decimal `gorm:"column:kg" json:"kg"`
	Records  int             `gorm:"column:records" json:"records"`
}

// MonthlyLossRow is one product/month aggregate from clean.perdas_mensal.
type MonthlyLossRow struct {
	ProductID string          `gorm:"column:product_id" json:"productId"`
	Month     time.Time       `gorm:"column:mes" json:"month"`
	Boxes     int             `gorm:"column:boxes" json:"boxes"`
	Kg        decimal.Decimal `gorm:"column:kg" json:"kg"`
	Records   int             `gorm:"column:records" json:"records"`
}

// Repository reads the CLEAN materialized views.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	StockRows(ctx context.Context) ([]StockRow, error)
	MaturationRows(ctx context.Context) ([]MaturationRow, error)
	ClientReturnRows(ctx context.Context, from, to time.Time, clientID string) ([]ClientReturnRow, error)
	MonthlyLossRows(ctx context.Context, since time.Time) ([]MonthlyLossRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a dashboard repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) StockRows(ctx context.Context) ([]StockRow, error) {
	var rows []StockRow
	err := r.db.WithContext(ctx).
		Table("clean.estoque_atual").
		Select("product_id, current_location_id, boxes, COALESCE(kg, 0) AS kg, lot_count").
		Order("product_id, current_location_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MaturationRows(ctx context.Context) ([]MaturationRow, error) {
	var rows []MaturationRow
	err := r.db.WithContext(ctx).
		Table("clean.maturacao_atual").
		Select("product_id, maturity_state, boxes, COALESCE(kg, 0) AS kg").
		Order("product_id, maturity_state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ClientReturnRows(ctx context.Context, from, to time.Time, clientID string) ([]ClientReturnRow, error) {
	query := r.db.WithContext(ctx).
		Table("clean.devolucoes_clientes").
		Select("client_id, dia, boxes, COALESCE(kg, 0) AS kg, records").
		Where("dia >= ? AND dia < ?", from, to)
	if clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}

	var rows []ClientReturnRow
	if err := query.Order("dia DESC, boxes DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MonthlyLossRows(ctx context.Context, since time.Time) ([]MonthlyLossRow, error) {
	var rows []MonthlyLossRow
	err := r.db.WithContext(ctx).
		Table("clean.perdas_mensal").
		Select("product_id, mes, boxes, COALESCE(kg, 0) AS kg, records").
		Where("mes >= ?", since).
		Order("mes DESC, product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
