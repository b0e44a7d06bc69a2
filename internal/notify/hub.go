package notify

import (
	"sync"

	"crm-messaging-server/internal/models"
	"crm-messaging-server/pkg/logger"

	"go.uber.org/zap"
)

// StatusEvent is pushed to subscribers when a message changes delivery state.
type StatusEvent struct {
	ConversationID string               `json:"conversation_id"`
	MessageID      string               `json:"messageId"`
	Status         models.MessageStatus `json:"status"`
}

// Notifier is the fan-out capability injected into the delivery service.
// Handlers never touch a process-wide registry.
type Notifier interface {
	Publish(event StatusEvent)
}

// Hub fans status events out to per-conversation subscribers over buffered
// channels. Publish never blocks; events to slow subscribers are dropped.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]chan StatusEvent
	buffer      int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subscribers: make(map[string][]chan StatusEvent),
		buffer:      buffer,
	}
}

// Subscribe registers interest in one conversation. The returned cancel
// func unregisters and closes the channel.
func (h *Hub) Subscribe(conversationID string) (<-chan StatusEvent, func()) {
	ch := make(chan StatusEvent, h.buffer)

	h.mu.Lock()
	h.subscribers[conversationID] = append(h.subscribers[conversationID], ch)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		subs := h.subscribers[conversationID]
		for i, sub := range subs {
			if sub == ch {
				h.subscribers[conversationID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
		if len(h.subscribers[conversationID]) == 0 {
			delete(h.subscribers, conversationID)
		}
	}

	return ch, cancel
}

// Publish delivers the event to every subscriber of its conversation.
func (h *Hub) Publish(event StatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[event.ConversationID] {
		select {
		case ch <- event:
		default:
			logger.Warn("Dropping status event for slow subscriber",
				zap.String("conversation_id", event.ConversationID),
				zap.String("message_id", event.MessageID),
			)
		}
	}
}
