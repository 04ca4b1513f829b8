package events

import (
	"context"
	"fmt"
	"time"

	"moc-service/internal/models"
)

// Event types emitted by the workflow engine. One event per logically
// distinct cause; the dispatcher owns delivery and deduplication.
const (
	RequestSubmitted   = "request_submitted"
	StageEntered       = "stage_entered"
	SlotAwaitingAction = "slot_awaiting_action"
	RequestApproved    = "request_approved"
	RequestRejected    = "request_rejected"
	RequestClosed      = "request_closed"
	RequestCancelled   = "request_cancelled"
	RestorationDue     = "restoration_due"
)

// WorkflowEvent carries the request id, the new state and the responsible
// role key for a single workflow transition.
type WorkflowEvent struct {
	EventType     string    `json:"eventType"`
	RequestID     string    `json:"requestId"`
	ControlNumber string    `json:"controlNumber,omitempty"`
	RequestType   string    `json:"requestType"`
	Status        string    `json:"status"`
	Stage         int       `json:"stage,omitempty"`
	StageName     string    `json:"stageName,omitempty"`
	TargetRole    string    `json:"targetRole,omitempty"`
	ActorID       string    `json:"actorId,omitempty"`
	ActorName     string    `json:"actorName,omitempty"`
	Remarks       string    `json:"remarks,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// NewWorkflowEvent builds an event snapshot from a request's current state.
func NewWorkflowEvent(eventType string, request *models.MocRequest) *WorkflowEvent {
	event := &WorkflowEvent{
		EventType:   eventType,
		RequestID:   request.ID.String(),
		RequestType: request.RequestType,
		Status:      request.Status,
		OccurredAt:  time.Now().UTC(),
	}
	if request.ControlNumber != nil {
		event.ControlNumber = *request.ControlNumber
	}
	if request.HasStagePipeline() {
		event.Stage = request.CurrentStage
		event.StageName = models.StageName(request.CurrentStage)
	}
	return event
}

// DedupeKey identifies the logical cause of the event for idempotent
// downstream row creation.
func (e *WorkflowEvent) DedupeKey() string {
	return fmt.Sprintf("%s:%s:%d:%s", e.RequestID, e.EventType, e.Stage, e.TargetRole)
}

// Emitter is the side-effect contract of the workflow engine. The engine only
// emits; turning events into tasks and notifications is the dispatcher's job.
type Emitter interface {
	Emit(ctx context.Context, event *WorkflowEvent) error
}
