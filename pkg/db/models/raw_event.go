package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// RawEvent is the immutable record of a warehouse occurrence prior to projection.
type RawEvent struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EventType      enums.RawEventType `gorm:"column:event_type;type:raw_event_type;not null" json:"eventType"`
	IdempotencyKey string             `gorm:"column:idempotency_key;type:text;not null;uniqueIndex" json:"idempotencyKey"`
	OccurredAt     time.Time          `gorm:"column:occurred_at;type:timestamptz;not null" json:"occurredAt"`
	IngestedAt     time.Time          `gorm:"column:ingested_at;type:timestamptz;autoCreateTime" json:"ingestedAt"`
	Payload        json.RawMessage    `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	Source         string             `gorm:"column:source;type:text;not null;default:pwa" json:"source"`
	DeviceID       *string            `gorm:"column:device_id;type:text" json:"deviceId,omitempty"`
	UserID         *string            `gorm:"column:user_id;type:text" json:"userId,omitempty"`

	ProcessingState *RawEventProcessingState `gorm:"foreignKey:RawEventID" json:"processingState,omitempty"`
}

// RawEventProcessingState is the 1:1 mutable companion of a RawEvent.
type RawEventProcessingState struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RawEventID       uuid.UUID              `gorm:"column:raw_event_id;type:uuid;not null;uniqueIndex" json:"rawEventId"`
	ValidationStatus enums.ValidationStatus `gorm:"column:validation_status;type:validation_status;not null" json:"validationStatus"`
	ProcessingStatus enums.ProcessingStatus `gorm:"column:processing_status;type:processing_status;not null;default:PENDING" json:"processingStatus"`
	ValidationErrors json.RawMessage        `gorm:"column:validation_errors;type:jsonb" json:"validationErrors,omitempty"`
	IngestedAt       time.Time              `gorm:"column:ingested_at;type:timestamptz;autoCreateTime" json:"ingestedAt"`
	ProcessedAt      *time.Time             `gorm:"column:processed_at;type:timestamptz" json:"processedAt,omitempty"`
	LastError        *string                `gorm:"column:last_error;type:text" json:"lastError,omitempty"`
}
