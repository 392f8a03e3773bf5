package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/bomjesus/armazem-backend/pkg/db/types"
	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// AlertRule is an operator-tunable alert definition keyed by rule_key.
type AlertRule struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RuleKey         string              `gorm:"column:rule_key;type:text;not null;uniqueIndex" json:"ruleKey"`
	Name            string              `gorm:"column:name;type:text;not null" json:"name"`
	Description     *string             `gorm:"column:description;type:text" json:"description,omitempty"`
	Enabled         bool                `gorm:"column:enabled;not null;default:true" json:"enabled"`
	Severity        enums.AlertSeverity `gorm:"column:severity;type:alert_severity;not null" json:"severity"`
	Params          json.RawMessage     `gorm:"column:params;type:jsonb;not null" json:"params"`
	Channels        dbtypes.StringArray `gorm:"column:channels;type:text[];not null" json:"channels"`
	CooldownMinutes int                 `gorm:"column:cooldown_minutes;not null;default:60" json:"cooldownMinutes"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// AlertEvent is one fired alert delivery, per channel and recipient.
type AlertEvent struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AlertRuleID    uuid.UUID                 `gorm:"column:alert_rule_id;type:uuid;not null;index" json:"alertRuleId"`
	RuleKey        string                    `gorm:"column:rule_key;type:text;not null;index" json:"ruleKey"`
	Severity       enums.AlertSeverity       `gorm:"column:severity;type:alert_severity;not null" json:"severity"`
	Title          string                    `gorm:"column:title;type:text;not null" json:"title"`
	Body           string                    `gorm:"column:body;type:text;not null" json:"body"`
	Context        json.RawMessage           `gorm:"column:context;type:jsonb" json:"context,omitempty"`
	Channel        enums.AlertChannel        `gorm:"column:channel;type:alert_channel;not null" json:"channel"`
	RecipientID    uuid.UUID                 `gorm:"column:recipient_id;type:uuid;not null" json:"recipientId"`
	DeliveryStatus enums.AlertDeliveryStatus `gorm:"column:delivery_status;type:alert_delivery_status;not null;default:PENDING" json:"deliveryStatus"`
	DeliveryError  *string                   `gorm:"column:delivery_error;type:text" json:"deliveryError,omitempty"`
	FiredAt        time.Time                 `gorm:"column:fired_at;type:timestamptz;not null;index" json:"firedAt"`
	DeliveredAt    *time.Time                `gorm:"column:delivered_at;type:timestamptz" json:"deliveredAt,omitempty"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// PushSubscription holds one user's Web Push endpoint and keys.
type PushSubscription struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"userId"`
	Endpoint  string    `gorm:"column:endpoint;type:text;not null" json:"endpoint"`
	P256dh    string    `gorm:"column:p256dh;type:text;not null" json:"-"`
	Auth      string    `gorm:"column:auth;type:text;not null" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
