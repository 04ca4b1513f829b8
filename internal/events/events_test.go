package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"moc-service/internal/models"
)

func TestNewWorkflowEvent(t *testing.T) {
	controlNumber := "EMOC-OPS-PROC-2026-0003"
	request := &models.MocRequest{
		ID:            uuid.New(),
		ControlNumber: &controlNumber,
		RequestType:   models.TypeStandardEmoc,
		Status:        models.StatusSubmitted,
		CurrentStage:  models.StageValidation,
	}

	event := NewWorkflowEvent(RequestSubmitted, request)

	assert.Equal(t, RequestSubmitted, event.EventType)
	assert.Equal(t, request.ID.String(), event.RequestID)
	assert.Equal(t, controlNumber, event.ControlNumber)
	assert.Equal(t, models.StageValidation, event.Stage)
	assert.Equal(t, "validation", event.StageName)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestNewWorkflowEventOmitsStageWithoutPipeline(t *testing.T) {
	request := &models.MocRequest{
		ID:           uuid.New(),
		RequestType:  models.TypeDmoc,
		Status:       models.StatusSubmitted,
		CurrentStage: models.StageInitiation,
	}

	event := NewWorkflowEvent(RequestSubmitted, request)

	assert.Zero(t, event.Stage)
	assert.Empty(t, event.StageName)
}

func TestDedupeKeyDistinguishesLogicalCauses(t *testing.T) {
	requestID := uuid.New()
	request := &models.MocRequest{
		ID:           requestID,
		RequestType:  models.TypeStandardEmoc,
		Status:       models.StatusSubmitted,
		CurrentStage: models.StageValidation,
	}

	first := NewWorkflowEvent(SlotAwaitingAction, request)
	first.TargetRole = models.RoleSupervisor

	second := NewWorkflowEvent(SlotAwaitingAction, request)
	second.TargetRole = models.RoleDepartmentManager

	replay := NewWorkflowEvent(SlotAwaitingAction, request)
	replay.TargetRole = models.RoleSupervisor

	assert.NotEqual(t, first.DedupeKey(), second.DedupeKey())
	assert.Equal(t, first.DedupeKey(), replay.DedupeKey())

	request.CurrentStage = models.StageFinalApproval
	laterStage := NewWorkflowEvent(SlotAwaitingAction, request)
	laterStage.TargetRole = models.RoleSupervisor
	assert.NotEqual(t, first.DedupeKey(), laterStage.DedupeKey())
}
