package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"moc-service/internal/models"
	"moc-service/internal/repository"
)

// LevelHandler manages the approval-level templates used to build chains
type LevelHandler struct {
	repo *repository.LookupRepository
}

// NewLevelHandler creates a new LevelHandler
func NewLevelHandler(repo *repository.LookupRepository) *LevelHandler {
	return &LevelHandler{repo: repo}
}

type levelInput struct {
	Order     int    `json:"order" binding:"required,min=1"`
	RoleKey   string `json:"roleKey" binding:"required"`
	GateStage string `json:"gateStage"`
	IsActive  *bool  `json:"isActive"`
}

func (in levelInput) validate() error {
	if !models.KnownRole(in.RoleKey) {
		return errors.New("unknown role key")
	}
	switch in.GateStage {
	case "", models.GateValidation, models.GateFinalApproval:
		return nil
	}
	return errors.New("gate stage must be validation or final_approval")
}

// ListLevels lists approval level templates
// @Summary List approval levels
// @Tags Approval Levels
// @Produce json
// @Param includeInactive query bool false "Include inactive levels"
// @Success 200 {array} models.ApprovalLevel
// @Router /api/v1/approval-levels [get]
func (h *LevelHandler) ListLevels(c *gin.Context) {
	levels, err := h.repo.ListLevels(c.Request.Context(), c.Query("includeInactive") == "true")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}
	c.JSON(http.StatusOK, levels)
}

// CreateLevel creates an approval level template
// @Summary Create approval level
// @Tags Approval Levels
// @Accept json
// @Produce json
// @Param request body levelInput true "Level fields"
// @Success 201 {object} models.ApprovalLevel
// @Router /api/v1/approval-levels [post]
func (h *LevelHandler) CreateLevel(c *gin.Context) {
	var input levelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := input.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	level := models.ApprovalLevel{
		Order:     input.Order,
		RoleKey:   input.RoleKey,
		GateStage: input.GateStage,
		IsActive:  true,
	}
	if input.GateStage == "" {
		level.GateStage = models.GateValidation
	}
	if input.IsActive != nil {
		level.IsActive = *input.IsActive
	}

	if err := h.repo.CreateLevel(c.Request.Context(), &level); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}
	c.JSON(http.StatusCreated, level)
}

// UpdateLevel updates an approval level template. In-flight requests are not
// affected; their chains were copied at submission.
// @Summary Update approval level
// @Tags Approval Levels
// @Accept json
// @Produce json
// @Param id path string true "Level ID"
// @Param request body levelInput true "Level fields"
// @Success 200 {object} models.ApprovalLevel
// @Router /api/v1/approval-levels/{id} [put]
func (h *LevelHandler) UpdateLevel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid level id"})
		return
	}

	var input levelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := input.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	level, err := h.repo.GetLevel(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "approval level not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	level.Order = input.Order
	level.RoleKey = input.RoleKey
	if input.GateStage != "" {
		level.GateStage = input.GateStage
	}
	if input.IsActive != nil {
		level.IsActive = *input.IsActive
	}

	if err := h.repo.UpdateLevel(c.Request.Context(), level); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}
	c.JSON(http.StatusOK, level)
}

// DeleteLevel removes an approval level template
// @Summary Delete approval level
// @Tags Approval Levels
// @Produce json
// @Param id path string true "Level ID"
// @Success 204
// @Router /api/v1/approval-levels/{id} [delete]
func (h *LevelHandler) DeleteLevel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid level id"})
		return
	}

	if err := h.repo.DeleteLevel(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "approval level not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}
	c.Status(http.StatusNoContent)
}
