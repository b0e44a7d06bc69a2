package handlers

import (
	"errors"
	"net/http"

	"crm-messaging-server/internal/db"

	"github.com/gin-gonic/gin"
)

// TemplateHandler handles bulk-messaging template management
type TemplateHandler struct {
	templateService TemplateServiceInterface
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateService TemplateServiceInterface) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

type createTemplateRequest struct {
	Name    string `json:"name"`
	Channel string `json:"channel"`
	Body    string `json:"body"`
}

// Create handles POST /api/templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	tpl, err := h.templateService.CreateTemplate(req.Name, req.Channel, req.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// Get handles GET /api/templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	tpl, err := h.templateService.GetTemplate(c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get template"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// List handles GET /api/templates
func (h *TemplateHandler) List(c *gin.Context) {
	limit, offset, ok := paginationParams(c)
	if !ok {
		return
	}

	templates, err := h.templateService.ListTemplates(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}
	c.JSON(http.StatusOK, templates)
}

// Delete handles DELETE /api/templates/:id
func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.templateService.DeleteTemplate(c.Param("id")); err != nil {
		if errors.Is(err, db.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template"})
		return
	}
	c.Status(http.StatusNoContent)
}
