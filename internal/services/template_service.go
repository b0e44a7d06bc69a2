package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-messaging-server/internal/models"

	"github.com/google/uuid"
)

// TemplateStore is the template persistence contract.
type TemplateStore interface {
	Create(tpl *models.Template) error
	GetByID(id string) (*models.Template, error)
	Delete(id string) error
	List(limit, offset int) ([]*models.Template, error)
}

// TemplateService manages bulk-messaging templates and renders their
// {{placeholder}} variables.
type TemplateService struct {
	templates TemplateStore
}

func NewTemplateService(templates TemplateStore) *TemplateService {
	return &TemplateService{templates: templates}
}

// CreateTemplate validates and stores a new template.
func (s *TemplateService) CreateTemplate(name, channel, body string) (*models.Template, error) {
	if name == "" {
		return nil, errors.New("template name is required")
	}
	if body == "" {
		return nil, errors.New("template body is required")
	}
	if channel != models.ChannelSMS && channel != models.ChannelWhatsApp {
		return nil, fmt.Errorf("unsupported channel %q", channel)
	}

	tpl := &models.Template{
		ID:        uuid.New().String(),
		Name:      name,
		Channel:   channel,
		Body:      body,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.templates.Create(tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// GetTemplate returns a template by ID.
func (s *TemplateService) GetTemplate(id string) (*models.Template, error) {
	return s.templates.GetByID(id)
}

// DeleteTemplate removes a template.
func (s *TemplateService) DeleteTemplate(id string) error {
	return s.templates.Delete(id)
}

// ListTemplates returns templates with pagination.
func (s *TemplateService) ListTemplates(limit, offset int) ([]*models.Template, error) {
	return s.templates.List(limit, offset)
}

// Render substitutes {{name}} placeholders with recipient variables.
// Placeholders without a variable are left in place so a bad bulk send is
// visible rather than silently blanked.
func Render(body string, variables map[string]string) string {
	for name, value := range variables {
		body = strings.ReplaceAll(body, "{{"+name+"}}", value)
	}
	return body
}
