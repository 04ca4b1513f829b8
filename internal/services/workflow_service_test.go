package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"moc-service/internal/events"
	"moc-service/internal/models"
	"moc-service/internal/repository"
)

// mockRequestRepository is a mock implementation of RequestRepositoryInterface
type mockRequestRepository struct {
	mock.Mock
}

var _ repository.RequestRepositoryInterface = (*mockRequestRepository)(nil)

// WithTransaction runs the callback against the mock itself, so expectations
// set on the mock cover in-transaction calls too.
func (m *mockRequestRepository) WithTransaction(ctx context.Context, fn func(txRepo repository.RequestRepositoryInterface) error) error {
	return fn(m)
}

func (m *mockRequestRepository) CreateRequest(ctx context.Context, request *models.MocRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *mockRequestRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*models.MocRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MocRequest), args.Error(1)
}

func (m *mockRequestRepository) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]models.MocRequest, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.MocRequest), args.Get(1).(int64), args.Error(2)
}

func (m *mockRequestRepository) UpdateRequestWithLock(ctx context.Context, request *models.MocRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *mockRequestRepository) CreateApprovers(ctx context.Context, approvers []models.MocApprover) error {
	args := m.Called(ctx, approvers)
	return args.Error(0)
}

func (m *mockRequestRepository) CompleteApprover(ctx context.Context, approver *models.MocApprover) error {
	args := m.Called(ctx, approver)
	return args.Error(0)
}

func (m *mockRequestRepository) ListActiveLevels(ctx context.Context) ([]models.ApprovalLevel, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.ApprovalLevel), args.Error(1)
}

func (m *mockRequestRepository) NextControlSequence(ctx context.Context, requestType string, year int) (int, error) {
	args := m.Called(ctx, requestType, year)
	return args.Int(0), args.Error(1)
}

func (m *mockRequestRepository) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockRequestRepository) ListActivity(ctx context.Context, requestID uuid.UUID) ([]models.ActivityLog, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).([]models.ActivityLog), args.Error(1)
}

func (m *mockRequestRepository) GetDivision(ctx context.Context, id uuid.UUID) (*models.Division, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Division), args.Error(1)
}

func (m *mockRequestRepository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

// captureEmitter records emitted events for assertions
type captureEmitter struct {
	emitted []*events.WorkflowEvent
}

func (c *captureEmitter) Emit(ctx context.Context, event *events.WorkflowEvent) error {
	c.emitted = append(c.emitted, event)
	return nil
}

func (c *captureEmitter) types() []string {
	var out []string
	for _, event := range c.emitted {
		out = append(out, event.EventType)
	}
	return out
}

// --- Fixtures ---

var (
	requesterID = uuid.New()
	requester   = Actor{ID: requesterID, Name: "R. Ortega", Role: models.RoleRequestor}
	supervisor  = Actor{ID: uuid.New(), Name: "S. Cruz", Role: models.RoleSupervisor}
	deptManager = Actor{ID: uuid.New(), Name: "D. Santos", Role: models.RoleDepartmentManager}
	avp         = Actor{ID: uuid.New(), Name: "A. Reyes", Role: models.RoleAVP}
)

func newService(repo repository.RequestRepositoryInterface, emitter events.Emitter, policy WorkflowPolicy) *WorkflowService {
	return NewWorkflowService(repo, emitter, policy)
}

func draftRequest(requestType string) *models.MocRequest {
	return &models.MocRequest{
		ID:           uuid.New(),
		RequestType:  requestType,
		Status:       models.StatusDraft,
		CurrentStage: models.StageInitiation,
		Title:        "Replace feed pump seals",
		IsTemporary:  models.IsTemporaryType(requestType),
		RequesterID:  requesterID,
	}
}

// threeLevelChain is supervisor and department manager gating validation, AVP
// gating final approval.
func threeLevelChain(requestID uuid.UUID) []models.MocApprover {
	return []models.MocApprover{
		{ID: uuid.New(), RequestID: requestID, Order: 1, RoleKey: models.RoleSupervisor, GateStage: models.GateValidation},
		{ID: uuid.New(), RequestID: requestID, Order: 2, RoleKey: models.RoleDepartmentManager, GateStage: models.GateValidation},
		{ID: uuid.New(), RequestID: requestID, Order: 3, RoleKey: models.RoleAVP, GateStage: models.GateFinalApproval},
	}
}

func submittedRequest(requestType string) *models.MocRequest {
	request := draftRequest(requestType)
	now := time.Now()
	controlNumber := fmt.Sprintf("%s-GEN-GEN-%d-0001", models.ControlNumberPrefix(requestType), now.Year())
	request.Status = models.StatusSubmitted
	request.ControlNumber = &controlNumber
	request.SubmittedAt = &now
	if request.HasStagePipeline() {
		request.CurrentStage = models.StageValidation
	}
	request.Approvers = threeLevelChain(request.ID)
	return request
}

func approve(slot *models.MocApprover, actor Actor) {
	approved := true
	now := time.Now()
	slot.IsCompleted = true
	slot.IsApproved = &approved
	slot.CompletedAt = &now
	slot.CompletedBy = &actor.ID
}

func expectMutation(repo *mockRequestRepository, request *models.MocRequest) {
	repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
	repo.On("UpdateRequestWithLock", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateActivityLog", mock.Anything, mock.Anything).Return(nil)
}

// --- CreateDraft ---

func TestCreateDraft(t *testing.T) {
	t.Run("creates draft at initiation with no control number", func(t *testing.T) {
		repo := new(mockRequestRepository)
		repo.On("CreateRequest", mock.Anything, mock.Anything).Return(nil)
		repo.On("CreateActivityLog", mock.Anything, mock.Anything).Return(nil)
		service := newService(repo, nil, DefaultPolicy())

		request, err := service.CreateDraft(context.Background(), requester, DraftInput{
			RequestType: models.TypeStandardEmoc,
			Title:       "Replace feed pump seals",
		})

		assert.NoError(t, err)
		assert.Equal(t, models.StatusDraft, request.Status)
		assert.Equal(t, models.StageInitiation, request.CurrentStage)
		assert.Nil(t, request.ControlNumber)
		repo.AssertNumberOfCalls(t, "CreateActivityLog", 1)
	})

	t.Run("rejects unknown request type", func(t *testing.T) {
		repo := new(mockRequestRepository)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.CreateDraft(context.Background(), requester, DraftInput{
			RequestType: "mystery",
			Title:       "x",
		})

		assert.ErrorIs(t, err, ErrValidation)
		repo.AssertNotCalled(t, "CreateRequest")
	})

	t.Run("rejects missing title", func(t *testing.T) {
		repo := new(mockRequestRepository)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.CreateDraft(context.Background(), requester, DraftInput{
			RequestType: models.TypeOmoc,
		})

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects restoration window beyond policy", func(t *testing.T) {
		repo := new(mockRequestRepository)
		service := newService(repo, nil, WorkflowPolicy{MaxTemporaryDays: 30})

		target := time.Now()
		restoration := target.Add(45 * 24 * time.Hour)
		_, err := service.CreateDraft(context.Background(), requester, DraftInput{
			RequestType:              models.TypeBypassEmoc,
			Title:                    "Bypass LT-201 interlock",
			TargetImplementationDate: &target,
			PlannedRestorationDate:   &restoration,
		})

		assert.ErrorIs(t, err, ErrValidation)
	})
}

// --- UpdateDraft ---

func TestUpdateDraft(t *testing.T) {
	t.Run("updates editable fields of a draft", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := draftRequest(models.TypeStandardEmoc)
		expectMutation(repo, request)
		service := newService(repo, nil, DefaultPolicy())

		updated, err := service.UpdateDraft(context.Background(), request.ID, requester, DraftInput{
			Title:       "Replace feed pump seals and couplings",
			Description: "Extended scope",
		})

		assert.NoError(t, err)
		assert.Equal(t, "Replace feed pump seals and couplings", updated.Title)
		assert.Equal(t, models.StatusDraft, updated.Status)
	})

	t.Run("rejects update after submission", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.UpdateDraft(context.Background(), request.ID, requester, DraftInput{Title: "x"})

		assert.ErrorIs(t, err, ErrInvalidState)
		repo.AssertNotCalled(t, "UpdateRequestWithLock")
	})

	t.Run("rejects request type change", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := draftRequest(models.TypeStandardEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.UpdateDraft(context.Background(), request.ID, requester, DraftInput{
			RequestType: models.TypeOmoc,
			Title:       "x",
		})

		assert.ErrorIs(t, err, ErrValidation)
	})
}

// --- Submit ---

func TestSubmit(t *testing.T) {
	activeLevels := []models.ApprovalLevel{
		{ID: uuid.New(), Order: 1, RoleKey: models.RoleSupervisor, GateStage: models.GateValidation, IsActive: true},
		{ID: uuid.New(), Order: 2, RoleKey: models.RoleDepartmentManager, GateStage: models.GateValidation, IsActive: true},
		{ID: uuid.New(), Order: 3, RoleKey: models.RoleAVP, GateStage: models.GateFinalApproval, IsActive: true},
	}

	t.Run("assigns control number, builds chain, enters validation", func(t *testing.T) {
		repo := new(mockRequestRepository)
		emitter := &captureEmitter{}
		request := draftRequest(models.TypeStandardEmoc)
		expectMutation(repo, request)
		repo.On("ListActiveLevels", mock.Anything).Return(activeLevels, nil)
		repo.On("NextControlSequence", mock.Anything, models.TypeStandardEmoc, time.Now().Year()).Return(7, nil)
		repo.On("CreateApprovers", mock.Anything, mock.Anything).Return(nil)
		service := newService(repo, emitter, DefaultPolicy())

		submitted, err := service.Submit(context.Background(), request.ID, requester)

		assert.NoError(t, err)
		assert.Equal(t, models.StatusSubmitted, submitted.Status)
		assert.Equal(t, models.StageValidation, submitted.CurrentStage)
		assert.NotNil(t, submitted.SubmittedAt)
		assert.Len(t, submitted.Approvers, len(activeLevels))

		expected := fmt.Sprintf("EMOC-GEN-GEN-%d-0007", time.Now().Year())
		assert.Equal(t, expected, *submitted.ControlNumber)

		assert.Equal(t, []string{
			events.RequestSubmitted,
			events.StageEntered,
			events.SlotAwaitingAction,
		}, emitter.types())
		assert.Equal(t, models.RoleSupervisor, emitter.emitted[2].TargetRole)
	})

	t.Run("uses division and category codes when set", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := draftRequest(models.TypeOmoc)
		divisionID := uuid.New()
		categoryID := uuid.New()
		request.DivisionID = &divisionID
		request.CategoryID = &categoryID
		expectMutation(repo, request)
		repo.On("GetDivision", mock.Anything, divisionID).Return(&models.Division{ID: divisionID, Code: "OPS"}, nil)
		repo.On("GetCategory", mock.Anything, categoryID).Return(&models.Category{ID: categoryID, Code: "PROC"}, nil)
		repo.On("ListActiveLevels", mock.Anything).Return(activeLevels, nil)
		repo.On("NextControlSequence", mock.Anything, models.TypeOmoc, time.Now().Year()).Return(12, nil)
		repo.On("CreateApprovers", mock.Anything, mock.Anything).Return(nil)
		service := newService(repo, nil, DefaultPolicy())

		submitted, err := service.Submit(context.Background(), request.ID, requester)

		assert.NoError(t, err)
		expected := fmt.Sprintf("OMOC-OPS-PROC-%d-0012", time.Now().Year())
		assert.Equal(t, expected, *submitted.ControlNumber)
	})

	t.Run("rejects double submission", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.Submit(context.Background(), request.ID, requester)

		assert.ErrorIs(t, err, ErrInvalidState)
		repo.AssertNotCalled(t, "NextControlSequence")
	})

	t.Run("temporary change requires restoration date at submit", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := draftRequest(models.TypeBypassEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.Submit(context.Background(), request.ID, requester)

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("dmoc submits without entering the stage pipeline", func(t *testing.T) {
		repo := new(mockRequestRepository)
		emitter := &captureEmitter{}
		request := draftRequest(models.TypeDmoc)
		restoration := time.Now().Add(10 * 24 * time.Hour)
		request.PlannedRestorationDate = &restoration
		expectMutation(repo, request)
		repo.On("ListActiveLevels", mock.Anything).Return(activeLevels, nil)
		repo.On("NextControlSequence", mock.Anything, models.TypeDmoc, time.Now().Year()).Return(1, nil)
		repo.On("CreateApprovers", mock.Anything, mock.Anything).Return(nil)
		service := newService(repo, emitter, DefaultPolicy())

		submitted, err := service.Submit(context.Background(), request.ID, requester)

		assert.NoError(t, err)
		assert.Equal(t, models.StatusSubmitted, submitted.Status)
		assert.Equal(t, models.StageInitiation, submitted.CurrentStage)
		assert.NotContains(t, emitter.types(), events.StageEntered)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(mockRequestRepository)
		missing := uuid.New()
		repo.On("GetRequestByID", mock.Anything, missing).Return(nil, repository.ErrNotFound)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.Submit(context.Background(), missing, requester)

		assert.ErrorIs(t, err, ErrRequestNotFound)
	})
}

// --- CompleteApproverSlot ---

func TestCompleteApproverSlot(t *testing.T) {
	t.Run("first slot approved in order", func(t *testing.T) {
		repo := new(mockRequestRepository)
		emitter := &captureEmitter{}
		request := submittedRequest(models.TypeStandardEmoc)
		expectMutation(repo, request)
		repo.On("CompleteApprover", mock.Anything, mock.Anything).Return(nil)
		service := newService(repo, emitter, DefaultPolicy())

		updated, err := service.CompleteApproverSlot(context.Background(), request.ID, request.Approvers[0].ID, true, "looks fine", supervisor)

		assert.NoError(t, err)
		assert.True(t, updated.Approvers[0].IsCompleted)
		assert.True(t, *updated.Approvers[0].IsApproved)
		assert.Equal(t, models.StatusSubmitted, updated.Status)
		assert.Equal(t, []string{events.SlotAwaitingAction}, emitter.types())
		assert.Equal(t, models.RoleDepartmentManager, emitter.emitted[0].TargetRole)
	})

	t.Run("out of order completion fails", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.CompleteApproverSlot(context.Background(), request.ID, request.Approvers[1].ID, true, "", deptManager)

		assert.ErrorIs(t, err, ErrOutOfOrder)
		repo.AssertNotCalled(t, "CompleteApprover")
	})

	t.Run("role mismatch fails", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.CompleteApproverSlot(context.Background(), request.ID, request.Approvers[0].ID, true, "", deptManager)

		assert.ErrorIs(t, err, ErrUnauthorizedRole)
	})

	t.Run("completed slot cannot be completed again", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		approve(&request.Approvers[0], supervisor)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.CompleteApproverSlot(context.Background(), request.ID, request.Approvers[0].ID, true, "", supervisor)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown slot id", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.CompleteApproverSlot(context.Background(), request.ID, uuid.New(), true, "", supervisor)

		assert.ErrorIs(t, err, ErrSlotNotFound)
	})

	t.Run("rejection under cancel policy terminates the request", func(t *testing.T) {
		repo := new(mockRequestRepository)
		emitter := &captureEmitter{}
		request := submittedRequest(models.TypeStandardEmoc)
		approve(&request.Approvers[0], supervisor)
		expectMutation(repo, request)
		repo.On("CompleteApprover", mock.Anything, mock.Anything).Return(nil)
		service := newService(repo, emitter, DefaultPolicy())

		updated, err := service.CompleteApproverSlot(context.Background(), request.ID, request.Approvers[1].ID, false, "insufficient hazard analysis", deptManager)

		assert.NoError(t, err)
		assert.Equal(t, models.StatusRejected, updated.Status)
		assert.NotNil(t, updated.RejectedAt)
		assert.Equal(t, []string{events.RequestRejected}, emitter.types())
		assert.Equal(t, "insufficient hazard analysis", emitter.emitted[0].Remarks)
	})

	t.Run("rejection under freeze policy keeps the status", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		expectMutation(repo, request)
		repo.On("CompleteApprover", mock.Anything, mock.Anything).Return(nil)
		service := newService(repo, nil, WorkflowPolicy{RejectionPolicy: RejectionFreeze})

		updated, err := service.CompleteApproverSlot(context.Background(), request.ID, request.Approvers[0].ID, false, "", supervisor)

		assert.NoError(t, err)
		assert.Equal(t, models.StatusSubmitted, updated.Status)
		assert.NotNil(t, updated.RejectedAt)
	})

	t.Run("halted chain blocks later slots", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		rejected := false
		now := time.Now()
		request.Approvers[0].IsCompleted = true
		request.Approvers[0].IsApproved = &rejected
		request.RejectedAt = &now
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, WorkflowPolicy{RejectionPolicy: RejectionFreeze})

		_, err := service.CompleteApproverSlot(context.Background(), request.ID, request.Approvers[1].ID, true, "", deptManager)

		assert.ErrorIs(t, err, ErrChainHalted)
	})

	t.Run("dmoc goes active on full chain approval", func(t *testing.T) {
		repo := new(mockRequestRepository)
		emitter := &captureEmitter{}
		request := submittedRequest(models.TypeDmoc)
		approve(&request.Approvers[0], supervisor)
		approve(&request.Approvers[1], deptManager)
		expectMutation(repo, request)
		repo.On("CompleteApprover", mock.Anything, mock.Anything).Return(nil)
		service := newService(repo, emitter, DefaultPolicy())

		updated, err := service.CompleteApproverSlot(context.Background(), request.ID, request.Approvers[2].ID, true, "", avp)

		assert.NoError(t, err)
		assert.Equal(t, models.StatusActive, updated.Status)
		assert.Equal(t, []string{events.RequestApproved}, emitter.types())
	})
}

// --- AdvanceStage ---

func TestAdvanceStage(t *testing.T) {
	t.Run("validation gate blocks until its slots approve", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.AdvanceStage(context.Background(), request.ID, "", supervisor)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("advances one stage at a time once the gate clears", func(t *testing.T) {
		repo := new(mockRequestRepository)
		emitter := &captureEmitter{}
		request := submittedRequest(models.TypeStandardEmoc)
		approve(&request.Approvers[0], supervisor)
		approve(&request.Approvers[1], deptManager)
		expectMutation(repo, request)
		service := newService(repo, emitter, DefaultPolicy())

		updated, err := service.AdvanceStage(context.Background(), request.ID, "", deptManager)

		assert.NoError(t, err)
		assert.Equal(t, models.StageEvaluation, updated.CurrentStage)
		assert.Equal(t, models.StatusSubmitted, updated.Status)
		assert.Equal(t, []string{events.StageEntered}, emitter.types())
	})

	t.Run("entering final approval notifies the pending gate slot", func(t *testing.T) {
		repo := new(mockRequestRepository)
		emitter := &captureEmitter{}
		request := submittedRequest(models.TypeStandardEmoc)
		approve(&request.Approvers[0], supervisor)
		approve(&request.Approvers[1], deptManager)
		request.CurrentStage = models.StageEvaluation
		expectMutation(repo, request)
		service := newService(repo, emitter, DefaultPolicy())

		updated, err := service.AdvanceStage(context.Background(), request.ID, "", deptManager)

		assert.NoError(t, err)
		assert.Equal(t, models.StageFinalApproval, updated.CurrentStage)
		assert.Equal(t, []string{events.StageEntered, events.SlotAwaitingAction}, emitter.types())
		assert.Equal(t, models.RoleAVP, emitter.emitted[1].TargetRole)
	})

	t.Run("leaving final approval requires the whole chain and approves the request", func(t *testing.T) {
		repo := new(mockRequestRepository)
		emitter := &captureEmitter{}
		request := submittedRequest(models.TypeStandardEmoc)
		approve(&request.Approvers[0], supervisor)
		approve(&request.Approvers[1], deptManager)
		request.CurrentStage = models.StageFinalApproval

		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, emitter, DefaultPolicy())

		_, err := service.AdvanceStage(context.Background(), request.ID, "", avp)
		assert.ErrorIs(t, err, ErrInvalidState)

		approve(&request.Approvers[2], avp)
		repo.On("UpdateRequestWithLock", mock.Anything, mock.Anything).Return(nil)
		repo.On("CreateActivityLog", mock.Anything, mock.Anything).Return(nil)

		updated, err := service.AdvanceStage(context.Background(), request.ID, "", avp)

		assert.NoError(t, err)
		assert.Equal(t, models.StagePreImplementation, updated.CurrentStage)
		assert.Equal(t, models.StatusApproved, updated.Status)
		assert.Contains(t, emitter.types(), events.RequestApproved)
	})

	t.Run("implementation stage activates the change", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		for i := range request.Approvers {
			approve(&request.Approvers[i], avp)
		}
		request.Status = models.StatusApproved
		request.CurrentStage = models.StagePreImplementation
		expectMutation(repo, request)
		service := newService(repo, nil, DefaultPolicy())

		updated, err := service.AdvanceStage(context.Background(), request.ID, "", avp)

		assert.NoError(t, err)
		assert.Equal(t, models.StageImplementation, updated.CurrentStage)
		assert.Equal(t, models.StatusActive, updated.Status)
	})

	t.Run("temporary change entering closeout awaits restoration", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeBypassEmoc)
		for i := range request.Approvers {
			approve(&request.Approvers[i], avp)
		}
		request.Status = models.StatusActive
		request.CurrentStage = models.StageImplementation
		expectMutation(repo, request)
		service := newService(repo, nil, DefaultPolicy())

		updated, err := service.AdvanceStage(context.Background(), request.ID, "", avp)

		assert.NoError(t, err)
		assert.Equal(t, models.StageRestorationOrCloseout, updated.CurrentStage)
		assert.Equal(t, models.StatusForRestoration, updated.Status)
	})

	t.Run("final stage cannot advance", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		for i := range request.Approvers {
			approve(&request.Approvers[i], avp)
		}
		request.Status = models.StatusActive
		request.CurrentStage = models.StageRestorationOrCloseout
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.AdvanceStage(context.Background(), request.ID, "", avp)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("dmoc has no pipeline to advance", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeDmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.AdvanceStage(context.Background(), request.ID, "", avp)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("inactive request cannot advance", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		request.Status = models.StatusInactive
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.AdvanceStage(context.Background(), request.ID, "", avp)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("empty chain advancement follows policy", func(t *testing.T) {
		request := submittedRequest(models.TypeStandardEmoc)
		request.Approvers = nil

		repo := new(mockRequestRepository)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		blocked := newService(repo, nil, WorkflowPolicy{EmptyChainAdvances: false})
		_, err := blocked.AdvanceStage(context.Background(), request.ID, "", avp)
		assert.ErrorIs(t, err, ErrInvalidState)

		repo2 := new(mockRequestRepository)
		expectMutation(repo2, request)
		allowed := newService(repo2, nil, DefaultPolicy())
		updated, err := allowed.AdvanceStage(context.Background(), request.ID, "", avp)
		assert.NoError(t, err)
		assert.Equal(t, models.StageEvaluation, updated.CurrentStage)
	})
}

// --- Inactivation ---

func TestInactivationRoundTrip(t *testing.T) {
	repo := new(mockRequestRepository)
	request := submittedRequest(models.TypeStandardEmoc)
	request.Status = models.StatusActive
	request.CurrentStage = models.StageImplementation
	expectMutation(repo, request)
	service := newService(repo, nil, DefaultPolicy())

	paused, err := service.MarkInactive(context.Background(), request.ID, requester)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusInactive, paused.Status)
	assert.NotNil(t, paused.MarkedInactiveAt)
	assert.Equal(t, models.StageImplementation, paused.CurrentStage)

	resumed, err := service.Reactivate(context.Background(), request.ID, requester)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusActive, resumed.Status)
	assert.Nil(t, resumed.MarkedInactiveAt)
	assert.Equal(t, models.StageImplementation, resumed.CurrentStage)
}

func TestInactivationGuards(t *testing.T) {
	t.Run("only active requests can be paused", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.MarkInactive(context.Background(), request.ID, requester)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("only inactive requests can be resumed", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.Reactivate(context.Background(), request.ID, requester)

		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

// --- Close ---

func TestClose(t *testing.T) {
	t.Run("closes at the closeout stage", func(t *testing.T) {
		repo := new(mockRequestRepository)
		emitter := &captureEmitter{}
		request := submittedRequest(models.TypeStandardEmoc)
		request.Status = models.StatusActive
		request.CurrentStage = models.StageRestorationOrCloseout
		expectMutation(repo, request)
		service := newService(repo, emitter, DefaultPolicy())

		closed, err := service.Close(context.Background(), request.ID, requester)

		assert.NoError(t, err)
		assert.Equal(t, models.StatusClosed, closed.Status)
		assert.NotNil(t, closed.ClosedAt)
		assert.Nil(t, closed.RestoredAt)
		assert.Equal(t, []string{events.RequestClosed}, emitter.types())
	})

	t.Run("temporary change records restoration on close", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeBypassEmoc)
		request.Status = models.StatusForRestoration
		request.CurrentStage = models.StageRestorationOrCloseout
		expectMutation(repo, request)
		service := newService(repo, nil, DefaultPolicy())

		closed, err := service.Close(context.Background(), request.ID, requester)

		assert.NoError(t, err)
		assert.Equal(t, models.StatusClosed, closed.Status)
		assert.NotNil(t, closed.RestoredAt)
	})

	t.Run("cannot close before the closeout stage", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		request.Status = models.StatusActive
		request.CurrentStage = models.StageImplementation
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.Close(context.Background(), request.ID, requester)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("dmoc closes on a fully approved chain", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeDmoc)
		for i := range request.Approvers {
			approve(&request.Approvers[i], avp)
		}
		request.Status = models.StatusActive
		expectMutation(repo, request)
		service := newService(repo, nil, DefaultPolicy())

		closed, err := service.Close(context.Background(), request.ID, requester)

		assert.NoError(t, err)
		assert.Equal(t, models.StatusClosed, closed.Status)
	})

	t.Run("closed request stays closed", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		request.Status = models.StatusClosed
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.Close(context.Background(), request.ID, requester)

		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

// --- Cancel ---

func TestCancel(t *testing.T) {
	t.Run("requester cancels a non-terminal request", func(t *testing.T) {
		repo := new(mockRequestRepository)
		emitter := &captureEmitter{}
		request := submittedRequest(models.TypeStandardEmoc)
		expectMutation(repo, request)
		service := newService(repo, emitter, DefaultPolicy())

		cancelled, err := service.Cancel(context.Background(), request.ID, requester)

		assert.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, cancelled.Status)
		assert.Equal(t, []string{events.RequestCancelled}, emitter.types())
	})

	t.Run("only the requester can cancel", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.Cancel(context.Background(), request.ID, deptManager)

		assert.ErrorIs(t, err, ErrNotRequester)
	})

	t.Run("terminal requests cannot be cancelled", func(t *testing.T) {
		repo := new(mockRequestRepository)
		request := submittedRequest(models.TypeStandardEmoc)
		request.Status = models.StatusClosed
		repo.On("GetRequestByID", mock.Anything, request.ID).Return(request, nil)
		service := newService(repo, nil, DefaultPolicy())

		_, err := service.Cancel(context.Background(), request.ID, requester)

		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

// --- Activity accounting ---

func TestEveryTransitionWritesOneActivityRow(t *testing.T) {
	repo := new(mockRequestRepository)
	request := submittedRequest(models.TypeStandardEmoc)
	expectMutation(repo, request)
	repo.On("CompleteApprover", mock.Anything, mock.Anything).Return(nil)
	service := newService(repo, nil, DefaultPolicy())

	_, err := service.CompleteApproverSlot(context.Background(), request.ID, request.Approvers[0].ID, true, "", supervisor)
	assert.NoError(t, err)
	repo.AssertNumberOfCalls(t, "CreateActivityLog", 1)

	_, err = service.CompleteApproverSlot(context.Background(), request.ID, request.Approvers[1].ID, true, "", deptManager)
	assert.NoError(t, err)
	repo.AssertNumberOfCalls(t, "CreateActivityLog", 2)

	_, err = service.AdvanceStage(context.Background(), request.ID, "", deptManager)
	assert.NoError(t, err)
	repo.AssertNumberOfCalls(t, "CreateActivityLog", 3)
}
