package models

import (
	"time"

	"github.com/google/uuid"
)

// ValidationRuleConfig is a key/value store for tunable validation limits.
type ValidationRuleConfig struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Key         string    `gorm:"column:key;type:text;not null;uniqueIndex" json:"key"`
	Value       string    `gorm:"column:value;type:text;not null" json:"value"`
	Description *string   `gorm:"column:description;type:text" json:"description,omitempty"`
	UpdatedBy   *string   `gorm:"column:updated_by;type:text" json:"updatedBy,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
