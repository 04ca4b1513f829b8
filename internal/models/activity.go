package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ActivityLog is the append-only audit trail. Rows are never updated or
// deleted after creation, except via cascade with the parent request.
type ActivityLog struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RequestID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"requestId"`
	Action        string         `gorm:"type:varchar(50);not null;index" json:"action"`
	ActorID       *uuid.UUID     `gorm:"type:uuid" json:"actorId,omitempty"`
	ActorName     string         `gorm:"type:varchar(255)" json:"actorName,omitempty"`
	ActorRole     string         `gorm:"type:varchar(50)" json:"actorRole,omitempty"`
	BeforeState   datatypes.JSON `gorm:"type:jsonb" json:"beforeState,omitempty"`
	AfterState    datatypes.JSON `gorm:"type:jsonb" json:"afterState,omitempty"`
	Remarks       string         `gorm:"type:text" json:"remarks,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for ActivityLog
func (ActivityLog) TableName() string {
	return "moc_activity_log"
}

// Action name constants
const (
	ActionDraftCreated   = "draft_created"
	ActionDraftUpdated   = "draft_updated"
	ActionSubmitted      = "submitted"
	ActionSlotCompleted  = "approver_slot_completed"
	ActionStageAdvanced  = "stage_advanced"
	ActionMarkedInactive = "marked_inactive"
	ActionReactivated    = "reactivated"
	ActionClosed         = "closed"
	ActionCancelled      = "cancelled"
	ActionRejected       = "rejected"
	ActionRestorationDue = "restoration_due"
)
