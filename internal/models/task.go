package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TaskItem is a derived work item tied to a pending workflow step. Its status
// is independent of the request's stage and status: a task can close while the
// request stays open for further steps.
type TaskItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RequestID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"requestId"`
	DedupeKey   string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	TargetRole  string     `gorm:"type:varchar(50);not null;index" json:"targetRole"`
	Status      string     `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy *uuid.UUID `gorm:"type:uuid" json:"completedBy,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for TaskItem
func (TaskItem) TableName() string {
	return "task_items"
}

// TaskStatus constants
const (
	TaskOpen      = "open"
	TaskCompleted = "completed"
	TaskCancelled = "cancelled"
)

// Notification is a role- or user-targeted message created by the event
// dispatcher. DedupeKey (request + event + target role) keeps creation
// idempotent under at-least-once event delivery.
type Notification struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RequestID   *uuid.UUID     `gorm:"type:uuid;index" json:"requestId,omitempty"`
	DedupeKey   string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	TargetRole  string         `gorm:"type:varchar(50);index" json:"targetRole,omitempty"`
	TargetUser  *uuid.UUID     `gorm:"type:uuid;index" json:"targetUser,omitempty"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Message     string         `gorm:"type:text" json:"message,omitempty"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	IsRead      bool           `gorm:"default:false" json:"isRead"`
	IsDismissed bool           `gorm:"default:false" json:"isDismissed"`
	ReadAt      *time.Time     `json:"readAt,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}
