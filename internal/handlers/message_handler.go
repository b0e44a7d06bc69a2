package handlers

import (
	"errors"
	"net/http"

	"crm-messaging-server/internal/db"
	"crm-messaging-server/internal/models"
	"crm-messaging-server/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageHandler handles the chat surface: sending, listing, mark-as-read,
// and bulk sends.
type MessageHandler struct {
	messageService  MessageServiceInterface
	templateService TemplateServiceInterface
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService MessageServiceInterface, templateService TemplateServiceInterface) *MessageHandler {
	return &MessageHandler{
		messageService:  messageService,
		templateService: templateService,
	}
}

// Send handles POST /api/messages
func (h *MessageHandler) Send(c *gin.Context) {
	userID := c.GetString("userID")

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	msg, err := h.messageService.Send(c.Request.Context(), userID, req)
	if err != nil {
		if msg != nil {
			// Stored but not accepted by the gateway; surface both facts.
			logger.Warn("Gateway rejected message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Gateway send failed", "message": msg})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// SendBulk handles POST /api/messages/bulk
func (h *MessageHandler) SendBulk(c *gin.Context) {
	userID := c.GetString("userID")

	var req models.BulkSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.TemplateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template ID is required"})
		return
	}

	tpl, err := h.templateService.GetTemplate(req.TemplateID)
	if err != nil {
		if errors.Is(err, db.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load template"})
		return
	}

	result, err := h.messageService.SendBulk(c.Request.Context(), userID, tpl, req.Recipients)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sent":    result.Sent,
		"failed":  result.Failed,
		"total":   result.Total,
	})
}

// ListConversations handles GET /api/conversations
func (h *MessageHandler) ListConversations(c *gin.Context) {
	limit, offset, ok := paginationParams(c)
	if !ok {
		return
	}

	conversations, err := h.messageService.ListConversations(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}
	c.JSON(http.StatusOK, conversations)
}

// ListMessages handles GET /api/conversations/:id/messages
func (h *MessageHandler) ListMessages(c *gin.Context) {
	limit, offset, ok := paginationParams(c)
	if !ok {
		return
	}

	messages, err := h.messageService.ListMessages(c.Param("id"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

// MarkRead handles POST /api/conversations/:id/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	updated, err := h.messageService.MarkRead(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark conversation read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
