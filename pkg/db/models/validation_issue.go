package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// ValidationIssue is a review-queue entry raised by validation or projection.
type ValidationIssue struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RawEventID *uuid.UUID      `gorm:"column:raw_event_id;type:uuid;index" json:"rawEventId,omitempty"`
	LotID      *uuid.UUID      `gorm:"column:lot_id;type:uuid" json:"lotId,omitempty"`
	Code       string              `gorm:"column:code;type:text;not null" json:"code"`
	Severity   enums.AlertSeverity `gorm:"column:severity;type:alert_severity;not null;default:WARNING" json:"severity"`
	Message    string              `gorm:"column:message;type:text;not null" json:"message"`
	Details    json.RawMessage `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	Resolved   bool            `gorm:"column:resolved;not null;default:false;index" json:"resolved"`
	ResolvedAt *time.Time      `gorm:"column:resolved_at;type:timestamptz" json:"resolvedAt,omitempty"`
	ResolvedBy *string         `gorm:"column:resolved_by;type:text" json:"resolvedBy,omitempty"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// ReviewAction is the audit trail of a manual resolution in the review queue.
type ReviewAction struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ValidationIssueID uuid.UUID       `gorm:"column:validation_issue_id;type:uuid;not null;index" json:"validationIssueId"`
	Action            string          `gorm:"column:action;type:text;not null" json:"action"`
	Notes             *string         `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Payload           json.RawMessage `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	PerformedBy       string          `gorm:"column:performed_by;type:text;not null" json:"performedBy"`
	PerformedAt       time.Time       `gorm:"column:performed_at;autoCreateTime" json:"performedAt"`
}
