package handlers

import (
	"context"

	"crm-messaging-server/internal/models"
)

// UserServiceInterface defines the contract for user service operations.
// This interface is used for dependency injection and testing.
type UserServiceInterface interface {
	CreateUser(username, email, password, role string) (*models.User, error)
	Authenticate(username, password, totpCode string) (*models.User, error)
	ChangePassword(id, oldPassword, newPassword string) error
	GetUser(id string) (*models.User, error)
	ListUsers(limit, offset int) ([]*models.User, error)
	UpdateUser(id string, req models.UpdateUserRequest) (*models.User, error)
	DeleteUser(id string) error

	GenerateTOTPSecret(userID string) (string, error)
	EnableTOTP(userID, code string) error
	DisableTOTP(userID string) error
}

// MessageServiceInterface defines the contract for message operations.
type MessageServiceInterface interface {
	Send(ctx context.Context, userID string, req models.SendMessageRequest) (*models.Message, error)
	SendBulk(ctx context.Context, userID string, tpl *models.Template, recipients []models.BulkRecipient) (models.BulkSendResult, error)
	ListMessages(conversationID string, limit, offset int) ([]*models.Message, error)
	ListConversations(limit, offset int) ([]*models.Conversation, error)
	MarkRead(conversationID string) (int64, error)
}

// TemplateServiceInterface defines the contract for template operations.
type TemplateServiceInterface interface {
	CreateTemplate(name, channel, body string) (*models.Template, error)
	GetTemplate(id string) (*models.Template, error)
	DeleteTemplate(id string) error
	ListTemplates(limit, offset int) ([]*models.Template, error)
}

// DeliveryServiceInterface defines the contract for the delivery-report
// reconciler.
type DeliveryServiceInterface interface {
	ProcessReports(ctx context.Context, reports []models.DeliveryReport) (models.DeliveryResult, error)
}
