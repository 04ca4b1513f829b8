package models

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalLevel is an admin-configured template step. The set of active levels,
// ordered ascending, defines the approver chain materialized at submission.
// Levels are templates only; editing them never alters in-flight requests.
type ApprovalLevel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Order     int       `gorm:"column:level_order;not null;index" json:"order"`
	RoleKey   string    `gorm:"type:varchar(50);not null" json:"roleKey"`
	GateStage string    `gorm:"type:varchar(30);not null;default:'validation'" json:"gateStage"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for ApprovalLevel
func (ApprovalLevel) TableName() string {
	return "approval_levels"
}

// GateStage constants. A slot's gate decides which stage transition it blocks.
const (
	GateValidation    = "validation"
	GateFinalApproval = "final_approval"
)

// MocApprover is a per-request approver slot generated from an ApprovalLevel at
// submission. RoleKey and GateStage are copied, not referenced, so later level
// edits cannot retroactively change an in-flight chain. A slot is mutated
// exactly once, from incomplete to completed.
type MocApprover struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RequestID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_approvers_request_order,priority:1" json:"requestId"`
	Order       int        `gorm:"column:chain_order;not null;index:idx_approvers_request_order,priority:2" json:"order"`
	RoleKey     string     `gorm:"type:varchar(50);not null" json:"roleKey"`
	GateStage   string     `gorm:"type:varchar(30);not null" json:"gateStage"`
	IsCompleted bool       `gorm:"default:false" json:"isCompleted"`
	IsApproved  *bool      `json:"isApproved,omitempty"`
	Remarks     string     `gorm:"type:text" json:"remarks,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy *uuid.UUID `gorm:"type:uuid" json:"completedBy,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for MocApprover
func (MocApprover) TableName() string {
	return "moc_approvers"
}

// IsRejection reports whether the slot was completed with a negative decision.
func (a *MocApprover) IsRejection() bool {
	return a.IsCompleted && a.IsApproved != nil && !*a.IsApproved
}

// FirstIncomplete returns the first incomplete slot in chain order, or nil when
// the chain is fully completed. Slots must already be sorted by Order.
func FirstIncomplete(slots []MocApprover) *MocApprover {
	for i := range slots {
		if !slots[i].IsCompleted {
			return &slots[i]
		}
	}
	return nil
}

// ChainApproved reports whether every slot in the chain is completed and
// approved. An empty chain counts as approved; the workflow policy decides
// whether that gates advancement.
func ChainApproved(slots []MocApprover) bool {
	for i := range slots {
		if !slots[i].IsCompleted || slots[i].IsApproved == nil || !*slots[i].IsApproved {
			return false
		}
	}
	return true
}

// ChainHalted reports whether any slot carries a rejection.
func ChainHalted(slots []MocApprover) bool {
	for i := range slots {
		if slots[i].IsRejection() {
			return true
		}
	}
	return false
}

// GateSatisfied reports whether every slot belonging to the given gate is
// completed and approved.
func GateSatisfied(slots []MocApprover, gate string) bool {
	for i := range slots {
		if slots[i].GateStage != gate {
			continue
		}
		if !slots[i].IsCompleted || slots[i].IsApproved == nil || !*slots[i].IsApproved {
			return false
		}
	}
	return true
}
