package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MocRequest represents a management-of-change request. A single schema covers
// all request types; RequestType discriminates them.
type MocRequest struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ControlNumber *string   `gorm:"type:varchar(50);uniqueIndex" json:"controlNumber,omitempty"`
	RequestType   string    `gorm:"type:varchar(30);not null;index" json:"requestType"`
	Status        string    `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`
	CurrentStage  int       `gorm:"not null;default:1" json:"currentStage"`
	Version       int       `gorm:"not null;default:1" json:"version"` // Optimistic locking

	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	RiskLevel   string `gorm:"type:varchar(10)" json:"riskLevel,omitempty"`

	// Classification (lookup references, copied codes used for control numbers)
	DivisionID    *uuid.UUID     `gorm:"type:uuid;index" json:"divisionId,omitempty"`
	DepartmentID  *uuid.UUID     `gorm:"type:uuid;index" json:"departmentId,omitempty"`
	SectionID     *uuid.UUID     `gorm:"type:uuid" json:"sectionId,omitempty"`
	CategoryID    *uuid.UUID     `gorm:"type:uuid;index" json:"categoryId,omitempty"`
	SubcategoryID *uuid.UUID     `gorm:"type:uuid" json:"subcategoryId,omitempty"`
	AffectedAreas pq.StringArray `gorm:"type:text[]" json:"affectedAreas,omitempty"`

	// Temporal fields. Temporary changes (bypass, DMOC) must carry a planned
	// restoration date within the configured policy window.
	IsTemporary              bool       `gorm:"default:false" json:"isTemporary"`
	TargetImplementationDate *time.Time `json:"targetImplementationDate,omitempty"`
	PlannedRestorationDate   *time.Time `json:"plannedRestorationDate,omitempty"`

	RequesterID   uuid.UUID `gorm:"type:uuid;not null;index" json:"requesterId"`
	RequesterName string    `gorm:"type:varchar(255)" json:"requesterName,omitempty"`

	// Workflow timestamps
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
	MarkedInactiveAt *time.Time `json:"markedInactiveAt,omitempty"`
	RejectedAt       *time.Time `json:"rejectedAt,omitempty"`
	RestoredAt       *time.Time `json:"restoredAt,omitempty"`
	ClosedAt         *time.Time `json:"closedAt,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations (cascade-deleted with the request)
	Approvers []MocApprover `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"approvers,omitempty"`
	Activity  []ActivityLog `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"activity,omitempty"`
}

// TableName returns the table name for MocRequest
func (MocRequest) TableName() string {
	return "moc_requests"
}

// RequestType constants
const (
	TypeStandardEmoc = "standard_emoc"
	TypeBypassEmoc   = "bypass_emoc"
	TypeOmoc         = "omoc"
	TypeDmoc         = "dmoc"
)

// Status constants
const (
	StatusDraft          = "draft"
	StatusSubmitted      = "submitted"
	StatusApproved       = "approved"
	StatusActive         = "active"
	StatusInactive       = "inactive"
	StatusForRestoration = "for_restoration"
	StatusRestored       = "restored"
	StatusClosed         = "closed"
	StatusRejected       = "rejected"
	StatusCancelled      = "cancelled"
)

// RiskLevel constants
const (
	RiskGreen  = "green"
	RiskYellow = "yellow"
	RiskRed    = "red"
)

// Stage constants. Stages are strictly ordered; a request never moves backward
// or skips a stage.
const (
	StageInitiation            = 1
	StageValidation            = 2
	StageEvaluation            = 3
	StageFinalApproval         = 4
	StagePreImplementation     = 5
	StageImplementation        = 6
	StageRestorationOrCloseout = 7
)

var stageNames = map[int]string{
	StageInitiation:            "initiation",
	StageValidation:            "validation",
	StageEvaluation:            "evaluation",
	StageFinalApproval:         "final_approval",
	StagePreImplementation:     "pre_implementation",
	StageImplementation:        "implementation",
	StageRestorationOrCloseout: "restoration_or_closeout",
}

// StageName returns the lowercase name of a stage, or "unknown".
func StageName(stage int) string {
	if name, ok := stageNames[stage]; ok {
		return name
	}
	return "unknown"
}

// IsValidType reports whether t is a known request type.
func IsValidType(t string) bool {
	switch t {
	case TypeStandardEmoc, TypeBypassEmoc, TypeOmoc, TypeDmoc:
		return true
	}
	return false
}

// IsTemporaryType reports whether a request type represents a temporary change
// that must be restored.
func IsTemporaryType(t string) bool {
	return t == TypeBypassEmoc || t == TypeDmoc
}

// HasStagePipeline reports whether the request type moves through the ordered
// stage pipeline. DMOC requests are gated by their approver chain only.
func (r *MocRequest) HasStagePipeline() bool {
	return r.RequestType != TypeDmoc
}

// IsTerminal returns true if the status is a terminal state
func (r *MocRequest) IsTerminal() bool {
	return r.Status == StatusClosed ||
		r.Status == StatusRejected ||
		r.Status == StatusCancelled
}

// ControlNumberPrefix returns the control-number prefix for a request type.
func ControlNumberPrefix(requestType string) string {
	switch requestType {
	case TypeStandardEmoc:
		return "EMOC"
	case TypeBypassEmoc:
		return "BMOC"
	case TypeOmoc:
		return "OMOC"
	case TypeDmoc:
		return "DMOC"
	}
	return "MOC"
}

// ControlSequence backs control-number assignment. One row per
// (request_type, year); the counter is incremented atomically at submit.
type ControlSequence struct {
	RequestType string `gorm:"type:varchar(30);primaryKey" json:"requestType"`
	Year        int    `gorm:"primaryKey" json:"year"`
	NextValue   int    `gorm:"not null;default:1" json:"nextValue"`
}

// TableName returns the table name for ControlSequence
func (ControlSequence) TableName() string {
	return "control_sequences"
}
