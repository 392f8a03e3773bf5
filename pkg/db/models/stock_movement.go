package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// StockMovement is an append-only ledger entry against a lot.
//
// The unique index over (source_raw_event_id, movement_type) is the
// concurrency safety net for projection replays: a second concurrent
// projection of the same RAW event fails the insert instead of double
// counting stock.
type StockMovement struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LotID            uuid.UUID          `gorm:"column:lot_id;type:uuid;not null" json:"lotId"`
	MovementType     enums.MovementType `gorm:"column:movement_type;type:movement_type;not null;uniqueIndex:idx_movement_source" json:"movementType"`
	BoxesDelta       int                `gorm:"column:boxes_delta;not null;default:0" json:"boxesDelta"`
	KgDelta          *decimal.Decimal   `gorm:"column:kg_delta;type:numeric(12,3)" json:"kgDelta,omitempty"`
	HappenedAt       time.Time          `gorm:"column:happened_at;type:timestamptz;not null" json:"happenedAt"`
	FromLocationID   *string            `gorm:"column:from_location_id;type:text" json:"fromLocationId,omitempty"`
	ToLocationID     *string            `gorm:"column:to_location_id;type:text" json:"toLocationId,omitempty"`
	UserID           *string            `gorm:"column:user_id;type:text" json:"userId,omitempty"`
	SourceRawEventID uuid.UUID          `gorm:"column:source_raw_event_id;type:uuid;not null;uniqueIndex:idx_movement_source" json:"sourceRawEventId"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
