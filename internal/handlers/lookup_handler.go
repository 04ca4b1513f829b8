package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"moc-service/internal/models"
	"moc-service/internal/repository"
)

// LookupHandler serves the reference tables (divisions, departments,
// sections, categories, subcategories, units). All six share the same CRUD
// shape, so the routes are registered from one generic implementation.
type LookupHandler struct {
	repo *repository.LookupRepository
}

// NewLookupHandler creates a new LookupHandler
func NewLookupHandler(repo *repository.LookupRepository) *LookupHandler {
	return &LookupHandler{repo: repo}
}

type lookupInput struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	IsActive *bool  `json:"isActive"`
}

// RegisterRoutes mounts CRUD routes for every lookup table under the group.
// Writes require admin; reads are open to any authenticated caller.
func (h *LookupHandler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	registerLookup[models.Division](h, rg, admin, "divisions")
	registerLookup[models.Department](h, rg, admin, "departments")
	registerLookup[models.Section](h, rg, admin, "sections")
	registerLookup[models.Category](h, rg, admin, "categories")
	registerLookup[models.Subcategory](h, rg, admin, "subcategories")
	registerLookup[models.Unit](h, rg, admin, "units")
}

type lookupRow interface {
	SetFields(code, name string, isActive *bool)
}

func registerLookup[T any, PT interface {
	*T
	lookupRow
}](h *LookupHandler, rg *gin.RouterGroup, admin gin.HandlerFunc, path string) {
	db := h.repo.DB()

	rg.GET("/"+path, func(c *gin.Context) {
		rows, err := repository.ListLookup[T](c.Request.Context(), db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/"+path+"/:id", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		row, err := repository.GetLookup[T](c.Request.Context(), db, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
			return
		}
		c.JSON(http.StatusOK, row)
	})

	rg.POST("/"+path, admin, func(c *gin.Context) {
		var input lookupInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var row T
		PT(&row).SetFields(input.Code, input.Name, input.IsActive)
		if err := repository.CreateLookup(c.Request.Context(), db, &row); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
			return
		}
		c.JSON(http.StatusCreated, row)
	})

	rg.PUT("/"+path+"/:id", admin, func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var input lookupInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		row, err := repository.GetLookup[T](c.Request.Context(), db, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
			return
		}
		PT(row).SetFields(input.Code, input.Name, input.IsActive)
		if err := repository.UpdateLookup(c.Request.Context(), db, row); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
			return
		}
		c.JSON(http.StatusOK, row)
	})

	rg.DELETE("/"+path+"/:id", admin, func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		if err := repository.DeleteLookup[T](c.Request.Context(), db, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}
