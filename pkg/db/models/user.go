package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// User is a warehouse staff account. Alert recipients are selected by role.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"column:name;type:text;not null" json:"name"`
	Email     string         `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	Role      enums.UserRole `gorm:"column:role;type:user_role;not null" json:"role"`
	Active    bool           `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
