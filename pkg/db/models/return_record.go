package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnRecord is an append-only derived fact for client returns.
type ReturnRecord struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LotID            *uuid.UUID       `gorm:"column:lot_id;type:uuid" json:"lotId,omitempty"`
	ClientID         string           `gorm:"column:client_id;type:text;not null" json:"clientId"`
	StoreID          string           `gorm:"column:store_id;type:text;not null" json:"storeId"`
	ProductID        *string          `gorm:"column:product_id;type:text" json:"productId,omitempty"`
	Reason           string           `gorm:"column:reason;type:text;not null" json:"reason"`
	Boxes            int              `gorm:"column:boxes;not null;default:0" json:"boxes"`
	Kg               *decimal.Decimal `gorm:"column:kg;type:numeric(12,3)" json:"kg,omitempty"`
	PhotoURL         *string          `gorm:"column:photo_url;type:text" json:"photoUrl,omitempty"`
	HappenedAt       time.Time        `gorm:"column:happened_at;type:timestamptz;not null" json:"happenedAt"`
	UserID           *string          `gorm:"column:user_id;type:text" json:"userId,omitempty"`
	SourceRawEventID uuid.UUID        `gorm:"column:source_raw_event_id;type:uuid;not null;uniqueIndex" json:"sourceRawEventId"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
