package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"moc-service/internal/middleware"
	"moc-service/internal/models"
	"moc-service/internal/repository"
	"moc-service/internal/services"
)

// RequestHandler handles HTTP requests for the MOC workflow
type RequestHandler struct {
	service *services.WorkflowService
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(service *services.WorkflowService) *RequestHandler {
	return &RequestHandler{service: service}
}

// statusFor maps workflow errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrRequestNotFound),
		errors.Is(err, services.ErrSlotNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorizedRole),
		errors.Is(err, services.ErrNotRequester):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrOutOfOrder),
		errors.Is(err, services.ErrChainHalted),
		errors.Is(err, repository.ErrVersionConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func abortWith(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "An internal error occurred"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// CreateDraft creates a new draft request
// @Summary Create draft change request
// @Tags Requests
// @Accept json
// @Produce json
// @Param request body services.DraftInput true "Draft fields"
// @Success 201 {object} models.MocRequest
// @Router /api/v1/requests [post]
func (h *RequestHandler) CreateDraft(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authenticated user is required"})
		return
	}

	var input services.DraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.service.CreateDraft(c.Request.Context(), actor, input)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// UpdateDraft updates an existing draft
// @Summary Update draft change request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body services.DraftInput true "Draft fields"
// @Success 200 {object} models.MocRequest
// @Router /api/v1/requests/{id} [put]
func (h *RequestHandler) UpdateDraft(c *gin.Context) {
	id, actor, ok := h.idAndActor(c)
	if !ok {
		return
	}

	var input services.DraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.service.UpdateDraft(c.Request.Context(), id, actor, input)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// Submit submits a draft, assigning its control number and approver chain
// @Summary Submit change request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.MocRequest
// @Router /api/v1/requests/{id}/submit [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	id, actor, ok := h.idAndActor(c)
	if !ok {
		return
	}

	request, err := h.service.Submit(c.Request.Context(), id, actor)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// CompleteSlot records an approver decision on a chain slot
// @Summary Complete approver slot
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param slotId path string true "Approver slot ID"
// @Param request body object true "Decision"
// @Success 200 {object} models.MocRequest
// @Router /api/v1/requests/{id}/approvers/{slotId}/complete [post]
func (h *RequestHandler) CompleteSlot(c *gin.Context) {
	id, actor, ok := h.idAndActor(c)
	if !ok {
		return
	}

	slotID, err := uuid.Parse(c.Param("slotId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot id"})
		return
	}

	var body struct {
		Approved *bool  `json:"approved" binding:"required"`
		Remarks  string `json:"remarks"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approved decision is required"})
		return
	}

	request, err := h.service.CompleteApproverSlot(c.Request.Context(), id, slotID, *body.Approved, body.Remarks, actor)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// AdvanceStage moves a request to the next workflow stage
// @Summary Advance workflow stage
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body object false "Remarks"
// @Success 200 {object} models.MocRequest
// @Router /api/v1/requests/{id}/advance-stage [post]
func (h *RequestHandler) AdvanceStage(c *gin.Context) {
	id, actor, ok := h.idAndActor(c)
	if !ok {
		return
	}

	var body struct {
		Remarks string `json:"remarks"`
	}
	_ = c.ShouldBindJSON(&body)

	request, err := h.service.AdvanceStage(c.Request.Context(), id, body.Remarks, actor)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// MarkInactive pauses an active request
// @Summary Mark request inactive
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.MocRequest
// @Router /api/v1/requests/{id}/inactivate [post]
func (h *RequestHandler) MarkInactive(c *gin.Context) {
	id, actor, ok := h.idAndActor(c)
	if !ok {
		return
	}

	request, err := h.service.MarkInactive(c.Request.Context(), id, actor)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// Reactivate resumes an inactive request
// @Summary Reactivate request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.MocRequest
// @Router /api/v1/requests/{id}/reactivate [post]
func (h *RequestHandler) Reactivate(c *gin.Context) {
	id, actor, ok := h.idAndActor(c)
	if !ok {
		return
	}

	request, err := h.service.Reactivate(c.Request.Context(), id, actor)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// Close finishes a request at the closeout stage
// @Summary Close request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.MocRequest
// @Router /api/v1/requests/{id}/close [post]
func (h *RequestHandler) Close(c *gin.Context) {
	id, actor, ok := h.idAndActor(c)
	if !ok {
		return
	}

	request, err := h.service.Close(c.Request.Context(), id, actor)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// Cancel cancels a request (requester only)
// @Summary Cancel request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.MocRequest
// @Router /api/v1/requests/{id} [delete]
func (h *RequestHandler) Cancel(c *gin.Context) {
	id, actor, ok := h.idAndActor(c)
	if !ok {
		return
	}

	request, err := h.service.Cancel(c.Request.Context(), id, actor)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// GetRequest retrieves a request with its approver chain
// @Summary Get change request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.MocRequest
// @Router /api/v1/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	request, err := h.service.GetRequest(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// ListRequests lists requests with optional filters
// @Summary List change requests
// @Tags Requests
// @Produce json
// @Param status query string false "Status filter"
// @Param type query string false "Request type filter"
// @Param mine query bool false "Only my requests"
// @Param awaiting query string false "Requests awaiting this role"
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := repository.RequestFilter{
		Status:       c.Query("status"),
		RequestType:  c.Query("type"),
		AwaitingRole: c.Query("awaiting"),
		Limit:        limit,
		Offset:       offset,
	}

	if c.Query("mine") == "true" {
		actor, ok := middleware.GetActor(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "authenticated user is required"})
			return
		}
		requesterID := actor.ID
		filter.RequesterID = &requesterID
	}

	requests, total, err := h.service.ListRequests(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   requests,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// ListPending lists requests whose next approver slot awaits the caller's role
// @Summary List requests pending my action
// @Tags Requests
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/requests/pending [get]
func (h *RequestHandler) ListPending(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authenticated user is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := repository.RequestFilter{
		Status:       models.StatusSubmitted,
		AwaitingRole: actor.Role,
		Limit:        limit,
		Offset:       offset,
	}

	requests, total, err := h.service.ListRequests(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   requests,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetActivity retrieves the activity trail for a request
// @Summary Get request activity log
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {array} models.ActivityLog
// @Router /api/v1/requests/{id}/activity [get]
func (h *RequestHandler) GetActivity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	activity, err := h.service.GetActivity(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, activity)
}

func (h *RequestHandler) idAndActor(c *gin.Context) (uuid.UUID, services.Actor, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return uuid.Nil, services.Actor{}, false
	}
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authenticated user is required"})
		return uuid.Nil, services.Actor{}, false
	}
	return id, actor, true
}
