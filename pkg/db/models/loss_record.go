package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LossRecord is an append-only derived fact for registered produce losses.
type LossRecord struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LotID            *uuid.UUID       `gorm:"column:lot_id;type:uuid" json:"lotId,omitempty"`
	ProductID        string           `gorm:"column:product_id;type:text;not null" json:"productId"`
	LocationID       *string          `gorm:"column:location_id;type:text" json:"locationId,omitempty"`
	Reason           string           `gorm:"column:reason;type:text;not null" json:"reason"`
	Boxes            int              `gorm:"column:boxes;not null;default:0" json:"boxes"`
	Kg               *decimal.Decimal `gorm:"column:kg;type:numeric(12,3)" json:"kg,omitempty"`
	HappenedAt       time.Time        `gorm:"column:happened_at;type:timestamptz;not null" json:"happenedAt"`
	UserID           *string          `gorm:"column:user_id;type:text" json:"userId,omitempty"`
	SourceRawEventID uuid.UUID        `gorm:"column:source_raw_event_id;type:uuid;not null;uniqueIndex" json:"sourceRawEventId"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
