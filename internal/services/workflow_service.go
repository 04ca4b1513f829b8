package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"moc-service/internal/events"
	"moc-service/internal/models"
	"moc-service/internal/repository"
)

var (
	ErrRequestNotFound  = errors.New("request not found")
	ErrSlotNotFound     = errors.New("approver slot not found")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidState     = errors.New("operation not allowed in current status or stage")
	ErrOutOfOrder       = errors.New("slot is not the first incomplete slot in the chain")
	ErrChainHalted      = errors.New("approver chain has been halted by a rejection")
	ErrUnauthorizedRole = errors.New("acting role does not match the required approver role")
	ErrNotRequester     = errors.New("only the requester can perform this operation")
)

// Rejection policy values. Cancel terminates the request outright; freeze
// keeps the status but blocks slot completion and stage advancement.
const (
	RejectionCancel = "cancel"
	RejectionFreeze = "freeze"
)

// WorkflowPolicy holds the product decisions the workflow engine is
// parameterized on.
type WorkflowPolicy struct {
	RejectionPolicy    string
	EmptyChainAdvances bool
	MaxTemporaryDays   int
}

// DefaultPolicy returns the stock policy set
func DefaultPolicy() WorkflowPolicy {
	return WorkflowPolicy{
		RejectionPolicy:    RejectionCancel,
		EmptyChainAdvances: true,
		MaxTemporaryDays:   90,
	}
}

// Actor identifies who is performing a workflow operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role string
}

// WorkflowService is the MOC workflow engine. Every operation validates input
// before touching state, checks the status/stage guard, and applies the
// mutation together with exactly one activity-log row inside a single
// transaction. Events are emitted only after the transaction commits.
type WorkflowService struct {
	repo    repository.RequestRepositoryInterface
	emitter events.Emitter
	policy  WorkflowPolicy
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(repo repository.RequestRepositoryInterface, emitter events.Emitter, policy WorkflowPolicy) *WorkflowService {
	if policy.RejectionPolicy == "" {
		policy.RejectionPolicy = RejectionCancel
	}
	if policy.MaxTemporaryDays <= 0 {
		policy.MaxTemporaryDays = 90
	}
	return &WorkflowService{repo: repo, emitter: emitter, policy: policy}
}

// DraftInput holds the editable fields of a request.
type DraftInput struct {
	RequestType              string     `json:"requestType"`
	Title                    string     `json:"title"`
	Description              string     `json:"description"`
	RiskLevel                string     `json:"riskLevel"`
	DivisionID               *uuid.UUID `json:"divisionId"`
	DepartmentID             *uuid.UUID `json:"departmentId"`
	SectionID                *uuid.UUID `json:"sectionId"`
	CategoryID               *uuid.UUID `json:"categoryId"`
	SubcategoryID            *uuid.UUID `json:"subcategoryId"`
	AffectedAreas            []string   `json:"affectedAreas"`
	TargetImplementationDate *time.Time `json:"targetImplementationDate"`
	PlannedRestorationDate   *time.Time `json:"plannedRestorationDate"`
}

// CreateDraft creates a request in draft status at the initiation stage.
// No control number is assigned until submission.
func (s *WorkflowService) CreateDraft(ctx context.Context, actor Actor, input DraftInput) (*models.MocRequest, error) {
	if !models.IsValidType(input.RequestType) {
		return nil, fmt.Errorf("%w: unknown request type %q", ErrValidation, input.RequestType)
	}
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := s.validateTemporal(input.RequestType, input.TargetImplementationDate, input.PlannedRestorationDate, false); err != nil {
		return nil, err
	}

	request := &models.MocRequest{
		RequestType:              input.RequestType,
		Status:                   models.StatusDraft,
		CurrentStage:             models.StageInitiation,
		Title:                    input.Title,
		Description:              input.Description,
		RiskLevel:                input.RiskLevel,
		DivisionID:               input.DivisionID,
		DepartmentID:             input.DepartmentID,
		SectionID:                input.SectionID,
		CategoryID:               input.CategoryID,
		SubcategoryID:            input.SubcategoryID,
		AffectedAreas:            input.AffectedAreas,
		IsTemporary:              models.IsTemporaryType(input.RequestType),
		TargetImplementationDate: input.TargetImplementationDate,
		PlannedRestorationDate:   input.PlannedRestorationDate,
		RequesterID:              actor.ID,
		RequesterName:            actor.Name,
	}

	err := s.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		if err := tx.CreateRequest(ctx, request); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		return s.writeActivity(ctx, tx, request, models.ActionDraftCreated, actor, nil, "")
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// UpdateDraft mutates the editable fields of a draft. Any other status is an
// invalid-state error; validation failures leave the request untouched.
func (s *WorkflowService) UpdateDraft(ctx context.Context, requestID uuid.UUID, actor Actor, input DraftInput) (*models.MocRequest, error) {
	var request *models.MocRequest

	err := s.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		var err error
		request, err = s.getRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request.Status != models.StatusDraft {
			return fmt.Errorf("%w: cannot update a %s request", ErrInvalidState, request.Status)
		}
		if input.RequestType != "" && input.RequestType != request.RequestType {
			return fmt.Errorf("%w: request type cannot be changed", ErrValidation)
		}
		if input.Title == "" {
			return fmt.Errorf("%w: title is required", ErrValidation)
		}
		if err := s.validateTemporal(request.RequestType, input.TargetImplementationDate, input.PlannedRestorationDate, false); err != nil {
			return err
		}

		before := snapshot(request)
		request.Title = input.Title
		request.Description = input.Description
		request.RiskLevel = input.RiskLevel
		request.DivisionID = input.DivisionID
		request.DepartmentID = input.DepartmentID
		request.SectionID = input.SectionID
		request.CategoryID = input.CategoryID
		request.SubcategoryID = input.SubcategoryID
		request.AffectedAreas = input.AffectedAreas
		request.TargetImplementationDate = input.TargetImplementationDate
		request.PlannedRestorationDate = input.PlannedRestorationDate

		if err := tx.UpdateRequestWithLock(ctx, request); err != nil {
			return err
		}
		return s.writeActivity(ctx, tx, request, models.ActionDraftUpdated, actor, before, "")
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Submit transitions a draft to submitted: assigns the control number, builds
// the approver chain from the active approval levels, and moves pipeline
// requests into the validation stage.
func (s *WorkflowService) Submit(ctx context.Context, requestID uuid.UUID, actor Actor) (*models.MocRequest, error) {
	var request *models.MocRequest
	var emitted []*events.WorkflowEvent

	err := s.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		var err error
		request, err = s.getRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request.Status != models.StatusDraft {
			return fmt.Errorf("%w: only drafts can be submitted", ErrInvalidState)
		}
		if err := s.validateTemporal(request.RequestType, request.TargetImplementationDate, request.PlannedRestorationDate, true); err != nil {
			return err
		}

		controlNumber, err := s.assignControlNumber(ctx, tx, request)
		if err != nil {
			return err
		}

		levels, err := tx.ListActiveLevels(ctx)
		if err != nil {
			return fmt.Errorf("failed to load approval levels: %w", err)
		}
		chain := BuildChain(request.ID, levels)
		if err := tx.CreateApprovers(ctx, chain); err != nil {
			return fmt.Errorf("failed to create approver chain: %w", err)
		}

		before := snapshot(request)
		now := time.Now()
		request.ControlNumber = &controlNumber
		request.Status = models.StatusSubmitted
		request.SubmittedAt = &now
		if request.HasStagePipeline() {
			request.CurrentStage = models.StageValidation
		}

		if err := tx.UpdateRequestWithLock(ctx, request); err != nil {
			return err
		}
		if err := s.writeActivity(ctx, tx, request, models.ActionSubmitted, actor, before, ""); err != nil {
			return err
		}

		request.Approvers = chain

		emitted = append(emitted, s.buildEvent(events.RequestSubmitted, request, actor, ""))
		if request.HasStagePipeline() {
			emitted = append(emitted, s.buildEvent(events.StageEntered, request, actor, ""))
		}
		if first := models.FirstIncomplete(chain); first != nil {
			awaiting := s.buildEvent(events.SlotAwaitingAction, request, actor, "")
			awaiting.TargetRole = first.RoleKey
			emitted = append(emitted, awaiting)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAll(ctx, emitted)
	return request, nil
}

// CompleteApproverSlot records one role's decision on the first incomplete
// slot of the chain. Out-of-order completion, role mismatch and repeat
// completion are rejected. A negative decision halts the whole chain per the
// configured rejection policy.
func (s *WorkflowService) CompleteApproverSlot(ctx context.Context, requestID, slotID uuid.UUID, approved bool, remarks string, actor Actor) (*models.MocRequest, error) {
	var request *models.MocRequest
	var emitted []*events.WorkflowEvent

	err := s.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		var err error
		request, err = s.getRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request.Status != models.StatusSubmitted {
			return fmt.Errorf("%w: approvals only run on submitted requests", ErrInvalidState)
		}
		if request.RejectedAt != nil || models.ChainHalted(request.Approvers) {
			return ErrChainHalted
		}

		var slot *models.MocApprover
		for i := range request.Approvers {
			if request.Approvers[i].ID == slotID {
				slot = &request.Approvers[i]
				break
			}
		}
		if slot == nil {
			return ErrSlotNotFound
		}
		if slot.IsCompleted {
			return fmt.Errorf("%w: slot already completed", ErrInvalidState)
		}
		first := models.FirstIncomplete(request.Approvers)
		if first == nil || first.ID != slot.ID {
			return ErrOutOfOrder
		}
		if actor.Role != slot.RoleKey {
			return ErrUnauthorizedRole
		}

		now := time.Now()
		slot.IsApproved = &approved
		slot.Remarks = remarks
		slot.CompletedAt = &now
		slot.CompletedBy = &actor.ID
		if err := tx.CompleteApprover(ctx, slot); err != nil {
			return err
		}
		slot.IsCompleted = true

		before := snapshot(request)
		action := models.ActionSlotCompleted

		if !approved {
			request.RejectedAt = &now
			if s.policy.RejectionPolicy == RejectionCancel {
				request.Status = models.StatusRejected
			}
			action = models.ActionRejected
		} else if !request.HasStagePipeline() && models.ChainApproved(request.Approvers) {
			// DMOC has no stage pipeline; full approval puts the change
			// into effect directly.
			request.Status = models.StatusActive
		}

		if err := tx.UpdateRequestWithLock(ctx, request); err != nil {
			return err
		}
		if err := s.writeActivity(ctx, tx, request, action, actor, before, remarks); err != nil {
			return err
		}

		if !approved {
			emitted = append(emitted, s.buildEvent(events.RequestRejected, request, actor, remarks))
		} else if next := models.FirstIncomplete(request.Approvers); next != nil {
			awaiting := s.buildEvent(events.SlotAwaitingAction, request, actor, "")
			awaiting.TargetRole = next.RoleKey
			emitted = append(emitted, awaiting)
		} else if !request.HasStagePipeline() {
			emitted = append(emitted, s.buildEvent(events.RequestApproved, request, actor, ""))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAll(ctx, emitted)
	return request, nil
}

// AdvanceStage moves a pipeline request to the next stage once the current
// stage's gates are satisfied. The stage value never decreases and never
// skips; the terminal stage cannot advance.
func (s *WorkflowService) AdvanceStage(ctx context.Context, requestID uuid.UUID, remarks string, actor Actor) (*models.MocRequest, error) {
	var request *models.MocRequest
	var emitted []*events.WorkflowEvent

	err := s.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		var err error
		request, err = s.getRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if !request.HasStagePipeline() {
			return fmt.Errorf("%w: %s requests have no stage pipeline", ErrInvalidState, request.RequestType)
		}
		if request.IsTerminal() || request.Status == models.StatusDraft {
			return fmt.Errorf("%w: cannot advance a %s request", ErrInvalidState, request.Status)
		}
		if request.Status == models.StatusInactive {
			return fmt.Errorf("%w: request is inactive", ErrInvalidState)
		}
		if request.RejectedAt != nil || models.ChainHalted(request.Approvers) {
			return ErrChainHalted
		}
		if request.CurrentStage >= models.StageRestorationOrCloseout {
			return fmt.Errorf("%w: already at the final stage", ErrInvalidState)
		}

		if len(request.Approvers) == 0 && !s.policy.EmptyChainAdvances {
			return fmt.Errorf("%w: no approver chain exists and policy blocks ungated advancement", ErrInvalidState)
		}

		switch request.CurrentStage {
		case models.StageValidation:
			if !models.GateSatisfied(request.Approvers, models.GateValidation) {
				return fmt.Errorf("%w: validation approvals are incomplete", ErrInvalidState)
			}
		case models.StageFinalApproval:
			if !models.ChainApproved(request.Approvers) {
				return fmt.Errorf("%w: the approver chain is not fully approved", ErrInvalidState)
			}
		}

		before := snapshot(request)
		request.CurrentStage++

		switch request.CurrentStage {
		case models.StagePreImplementation:
			// Leaving final approval with a fully approved chain.
			request.Status = models.StatusApproved
		case models.StageImplementation:
			request.Status = models.StatusActive
		case models.StageRestorationOrCloseout:
			if request.IsTemporary {
				request.Status = models.StatusForRestoration
			}
		}

		if err := tx.UpdateRequestWithLock(ctx, request); err != nil {
			return err
		}
		if err := s.writeActivity(ctx, tx, request, models.ActionStageAdvanced, actor, before, remarks); err != nil {
			return err
		}

		emitted = append(emitted, s.buildEvent(events.StageEntered, request, actor, remarks))
		if request.CurrentStage == models.StageFinalApproval {
			if next := models.FirstIncomplete(request.Approvers); next != nil {
				awaiting := s.buildEvent(events.SlotAwaitingAction, request, actor, "")
				awaiting.TargetRole = next.RoleKey
				emitted = append(emitted, awaiting)
			}
		}
		if request.Status == models.StatusApproved {
			emitted = append(emitted, s.buildEvent(events.RequestApproved, request, actor, ""))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAll(ctx, emitted)
	return request, nil
}

// MarkInactive pauses an active request without losing its place in the
// stage pipeline.
func (s *WorkflowService) MarkInactive(ctx context.Context, requestID uuid.UUID, actor Actor) (*models.MocRequest, error) {
	return s.flipActivation(ctx, requestID, actor, false)
}

// Reactivate resumes an inactive request.
func (s *WorkflowService) Reactivate(ctx context.Context, requestID uuid.UUID, actor Actor) (*models.MocRequest, error) {
	return s.flipActivation(ctx, requestID, actor, true)
}

func (s *WorkflowService) flipActivation(ctx context.Context, requestID uuid.UUID, actor Actor, toActive bool) (*models.MocRequest, error) {
	var request *models.MocRequest

	err := s.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		var err error
		request, err = s.getRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}

		before := snapshot(request)
		now := time.Now()
		action := models.ActionMarkedInactive

		if toActive {
			if request.Status != models.StatusInactive {
				return fmt.Errorf("%w: only inactive requests can be reactivated", ErrInvalidState)
			}
			request.Status = models.StatusActive
			request.MarkedInactiveAt = nil
			action = models.ActionReactivated
		} else {
			if request.Status != models.StatusActive {
				return fmt.Errorf("%w: only active requests can be marked inactive", ErrInvalidState)
			}
			request.Status = models.StatusInactive
			request.MarkedInactiveAt = &now
		}

		if err := tx.UpdateRequestWithLock(ctx, request); err != nil {
			return err
		}
		return s.writeActivity(ctx, tx, request, action, actor, before, "")
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Close finishes a request at the restoration/closeout stage. Temporary
// changes record their restoration on the way out.
func (s *WorkflowService) Close(ctx context.Context, requestID uuid.UUID, actor Actor) (*models.MocRequest, error) {
	var request *models.MocRequest
	var emitted []*events.WorkflowEvent

	err := s.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		var err error
		request, err = s.getRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request.IsTerminal() {
			return fmt.Errorf("%w: request is already %s", ErrInvalidState, request.Status)
		}
		if request.HasStagePipeline() {
			if request.CurrentStage != models.StageRestorationOrCloseout {
				return fmt.Errorf("%w: request has not reached the closeout stage", ErrInvalidState)
			}
		} else if !models.ChainApproved(request.Approvers) {
			return fmt.Errorf("%w: the approver chain is not fully approved", ErrInvalidState)
		}

		before := snapshot(request)
		now := time.Now()
		if request.IsTemporary && request.RestoredAt == nil {
			request.RestoredAt = &now
		}
		request.Status = models.StatusClosed
		request.ClosedAt = &now

		if err := tx.UpdateRequestWithLock(ctx, request); err != nil {
			return err
		}
		if err := s.writeActivity(ctx, tx, request, models.ActionClosed, actor, before, ""); err != nil {
			return err
		}

		emitted = append(emitted, s.buildEvent(events.RequestClosed, request, actor, ""))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAll(ctx, emitted)
	return request, nil
}

// Cancel short-circuits a request from any non-terminal status. Only the
// requester can cancel.
func (s *WorkflowService) Cancel(ctx context.Context, requestID uuid.UUID, actor Actor) (*models.MocRequest, error) {
	var request *models.MocRequest
	var emitted []*events.WorkflowEvent

	err := s.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		var err error
		request, err = s.getRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request.RequesterID != actor.ID {
			return ErrNotRequester
		}
		if request.IsTerminal() {
			return fmt.Errorf("%w: request is already %s", ErrInvalidState, request.Status)
		}

		before := snapshot(request)
		request.Status = models.StatusCancelled

		if err := tx.UpdateRequestWithLock(ctx, request); err != nil {
			return err
		}
		if err := s.writeActivity(ctx, tx, request, models.ActionCancelled, actor, before, ""); err != nil {
			return err
		}

		emitted = append(emitted, s.buildEvent(events.RequestCancelled, request, actor, ""))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAll(ctx, emitted)
	return request, nil
}

// GetRequest retrieves a request with its approver chain
func (s *WorkflowService) GetRequest(ctx context.Context, requestID uuid.UUID) (*models.MocRequest, error) {
	request, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

// ListRequests lists requests matching the filter
func (s *WorkflowService) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]models.MocRequest, int64, error) {
	return s.repo.ListRequests(ctx, filter)
}

// GetActivity retrieves the activity trail for a request
func (s *WorkflowService) GetActivity(ctx context.Context, requestID uuid.UUID) ([]models.ActivityLog, error) {
	return s.repo.ListActivity(ctx, requestID)
}

// --- Helpers ---

func (s *WorkflowService) getRequest(ctx context.Context, tx repository.RequestRepositoryInterface, id uuid.UUID) (*models.MocRequest, error) {
	request, err := tx.GetRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

// validateTemporal enforces the temporary-change policy window. At submit the
// planned restoration date becomes mandatory for temporary types.
func (s *WorkflowService) validateTemporal(requestType string, target, restoration *time.Time, submitting bool) error {
	if !models.IsTemporaryType(requestType) {
		return nil
	}
	if restoration == nil {
		if submitting {
			return fmt.Errorf("%w: temporary changes must specify a planned restoration date", ErrValidation)
		}
		return nil
	}
	start := time.Now()
	if target != nil {
		start = *target
	}
	if restoration.Before(start) {
		return fmt.Errorf("%w: planned restoration date precedes the implementation date", ErrValidation)
	}
	window := time.Duration(s.policy.MaxTemporaryDays) * 24 * time.Hour
	if restoration.Sub(start) > window {
		return fmt.Errorf("%w: planned restoration exceeds the %d-day policy window", ErrValidation, s.policy.MaxTemporaryDays)
	}
	return nil
}

// assignControlNumber composes {TYPE}-{DIVISION}-{CATEGORY}-{YEAR}-{SEQ}.
func (s *WorkflowService) assignControlNumber(ctx context.Context, tx repository.RequestRepositoryInterface, request *models.MocRequest) (string, error) {
	divisionCode := "GEN"
	if request.DivisionID != nil {
		division, err := tx.GetDivision(ctx, *request.DivisionID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return "", err
			}
		} else {
			divisionCode = division.Code
		}
	}

	categoryCode := "GEN"
	if request.CategoryID != nil {
		category, err := tx.GetCategory(ctx, *request.CategoryID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return "", err
			}
		} else {
			categoryCode = category.Code
		}
	}

	year := time.Now().Year()
	sequence, err := tx.NextControlSequence(ctx, request.RequestType, year)
	if err != nil {
		return "", fmt.Errorf("failed to claim control sequence: %w", err)
	}

	return fmt.Sprintf("%s-%s-%s-%d-%04d",
		models.ControlNumberPrefix(request.RequestType),
		divisionCode, categoryCode, year, sequence), nil
}

func (s *WorkflowService) writeActivity(ctx context.Context, tx repository.RequestRepositoryInterface, request *models.MocRequest, action string, actor Actor, before datatypes.JSON, remarks string) error {
	entry := &models.ActivityLog{
		RequestID:   request.ID,
		Action:      action,
		ActorName:   actor.Name,
		ActorRole:   actor.Role,
		BeforeState: before,
		AfterState:  snapshot(request),
		Remarks:     remarks,
	}
	if actor.ID != uuid.Nil {
		actorID := actor.ID
		entry.ActorID = &actorID
	}
	if err := tx.CreateActivityLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}

func (s *WorkflowService) buildEvent(eventType string, request *models.MocRequest, actor Actor, remarks string) *events.WorkflowEvent {
	event := events.NewWorkflowEvent(eventType, request)
	event.ActorID = actor.ID.String()
	event.ActorName = actor.Name
	event.Remarks = remarks
	return event
}

func (s *WorkflowService) emitAll(ctx context.Context, emitted []*events.WorkflowEvent) {
	if s.emitter == nil {
		return
	}
	for _, event := range emitted {
		_ = s.emitter.Emit(ctx, event)
	}
}

// snapshot serializes the request row (without child collections) for the
// activity log's before/after states.
func snapshot(request *models.MocRequest) datatypes.JSON {
	copy := *request
	copy.Approvers = nil
	copy.Activity = nil
	data, err := json.Marshal(copy)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
