package handlers

import (
	"io"

	"crm-messaging-server/internal/notify"

	"github.com/gin-gonic/gin"
)

// StreamHandler pushes message status changes to subscribed clients over
// server-sent events. Subscriptions are scoped to one conversation.
type StreamHandler struct {
	hub *notify.Hub
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hub *notify.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// Events handles GET /api/conversations/:id/events
func (h *StreamHandler) Events(c *gin.Context) {
	events, cancel := h.hub.Subscribe(c.Param("id"))
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("status", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
