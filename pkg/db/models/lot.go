package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// Lot is a physical batch of product tracked through the CLEAN ledger.
type Lot struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID         string              `gorm:"column:product_id;type:text;not null" json:"productId"`
	CurrentLocationID *string             `gorm:"column:current_location_id;type:text" json:"currentLocationId,omitempty"`
	Boxes             int                 `gorm:"column:boxes;not null;default:0" json:"boxes"`
	Kg                *decimal.Decimal    `gorm:"column:kg;type:numeric(12,3)" json:"kg,omitempty"`
	EntryDate         time.Time           `gorm:"column:entry_date;type:timestamptz;not null" json:"entryDate"`
	MaturityState     enums.MaturityState `gorm:"column:maturity_state;type:maturity_state;not null;default:VERDE" json:"maturityState"`
	Inconsistent      bool                `gorm:"column:inconsistent;not null;default:false" json:"inconsistent"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// MaturationDailySnapshot records one lot's maturity and stock per day.
type MaturationDailySnapshot struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LotID        uuid.UUID           `gorm:"column:lot_id;type:uuid;not null;uniqueIndex:idx_maturation_lot_day" json:"lotId"`
	SnapshotDate time.Time           `gorm:"column:snapshot_date;type:date;not null;uniqueIndex:idx_maturation_lot_day" json:"snapshotDate"`
	State        enums.MaturityState `gorm:"column:state;type:maturity_state;not null" json:"state"`
	Boxes        int                 `gorm:"column:boxes;not null" json:"boxes"`
	Kg           *decimal.Decimal    `gorm:"column:kg;type:numeric(12,3)" json:"kg,omitempty"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
