package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-messaging-server/internal/gateway"
	"crm-messaging-server/internal/metrics"
	"crm-messaging-server/internal/models"
	"crm-messaging-server/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConversationStore is the conversation persistence contract.
type ConversationStore interface {
	GetByID(id string) (*models.Conversation, error)
	GetOrCreate(contactAddr, channel string) (*models.Conversation, error)
	TouchLastMessage(id string, ts int64) error
	List(limit, offset int) ([]*models.Conversation, error)
}

// Sender submits an outbound message to the vendor gateway.
type Sender interface {
	Send(ctx context.Context, req gateway.SendRequest) error
}

// MessageService owns outbound sends and the chat surface (listing,
// mark-as-read).
type MessageService struct {
	messages      MessageStore
	conversations ConversationStore
	sender        Sender
	source        string
	metrics       metrics.Sink
}

func NewMessageService(messages MessageStore, conversations ConversationStore, sender Sender, source string, sink metrics.Sink) *MessageService {
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		sender:        sender,
		source:        source,
		metrics:       sink,
	}
}

// Send persists an outbound message and submits it to the vendor. The
// message ID is the external identifier the vendor echoes back in delivery
// reports. A gateway failure leaves the message stored as failed.
func (s *MessageService) Send(ctx context.Context, userID string, req models.SendMessageRequest) (*models.Message, error) {
	if err := validateSendRequest(req); err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(req)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		UserID:         userID,
		Channel:        req.Channel,
		Direction:      models.DirectionOutbound,
		Destination:    req.Destination,
		Source:         s.source,
		Body:           req.Body,
		TemplateID:     req.TemplateID,
		Status:         models.StatusSent,
		Fragments:      fragmentCount(req.Body),
		CreatedAt:      now,
	}

	if err := s.messages.Create(msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	if err := s.conversations.TouchLastMessage(conv.ID, now); err != nil {
		logger.Warn("Failed to touch conversation",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
	}

	if err := s.sender.Send(ctx, gateway.SendRequest{
		ExternalID:  msg.ID,
		Destination: msg.Destination,
		Source:      msg.Source,
		Body:        msg.Body,
		Channel:     msg.Channel,
	}); err != nil {
		s.metrics.MessageSent("failed")
		if updateErr := s.messages.UpdateStatus(msg.ID, models.StatusFailed, "GATEWAY_ERROR", 0); updateErr != nil {
			logger.Error("Failed to mark message failed",
				zap.String("message_id", msg.ID),
				zap.Error(updateErr),
			)
		}
		msg.Status = models.StatusFailed
		return msg, fmt.Errorf("gateway send failed: %w", err)
	}

	s.metrics.MessageSent("sent")
	logger.Info("Message submitted to gateway",
		zap.String("message_id", msg.ID),
		zap.String("channel", msg.Channel),
		zap.String("destination", msg.Destination),
	)
	return msg, nil
}

// SendBulk renders a template per recipient and sends each message.
// Per-recipient failures are counted and do not abort the run, mirroring
// the delivery ingress' partial-failure bookkeeping.
func (s *MessageService) SendBulk(ctx context.Context, userID string, tpl *models.Template, recipients []models.BulkRecipient) (models.BulkSendResult, error) {
	result := models.BulkSendResult{Total: len(recipients)}
	if tpl == nil {
		return result, errors.New("template is required")
	}
	if len(recipients) == 0 {
		return result, errors.New("at least one recipient is required")
	}

	for _, recipient := range recipients {
		_, err := s.Send(ctx, userID, models.SendMessageRequest{
			Channel:     tpl.Channel,
			Destination: recipient.Destination,
			Body:        Render(tpl.Body, recipient.Variables),
			TemplateID:  &tpl.ID,
		})
		if err != nil {
			result.Failed++
			logger.Warn("Bulk send item failed",
				zap.String("template_id", tpl.ID),
				zap.String("destination", recipient.Destination),
				zap.Error(err),
			)
			continue
		}
		result.Sent++
	}
	return result, nil
}

// ListMessages returns a conversation's messages, newest first.
func (s *MessageService) ListMessages(conversationID string, limit, offset int) ([]*models.Message, error) {
	if conversationID == "" {
		return nil, errors.New("conversation ID is required")
	}
	return s.messages.ListByConversation(conversationID, limit, offset)
}

// ListConversations returns conversations ordered by recent activity.
func (s *MessageService) ListConversations(limit, offset int) ([]*models.Conversation, error) {
	return s.conversations.List(limit, offset)
}

// MarkRead flips a conversation's inbound messages to read and returns how
// many changed.
func (s *MessageService) MarkRead(conversationID string) (int64, error) {
	if conversationID == "" {
		return 0, errors.New("conversation ID is required")
	}
	return s.messages.MarkRead(conversationID)
}

func (s *MessageService) resolveConversation(req models.SendMessageRequest) (*models.Conversation, error) {
	if req.ConversationID != "" {
		return s.conversations.GetByID(req.ConversationID)
	}
	return s.conversations.GetOrCreate(req.Destination, req.Channel)
}

func validateSendRequest(req models.SendMessageRequest) error {
	if req.Destination == "" {
		return errors.New("destination is required")
	}
	if req.Body == "" {
		return errors.New("message body is required")
	}
	if req.Channel != models.ChannelSMS && req.Channel != models.ChannelWhatsApp {
		return fmt.Errorf("unsupported channel %q", req.Channel)
	}
	return nil
}

// fragmentCount estimates GSM-7 segments: 160 chars for a single segment,
// 153 per segment once concatenation headers are needed.
func fragmentCount(body string) int {
	n := len(body)
	if n <= 160 {
		return 1
	}
	return (n + 152) / 153
}
