package db

import (
	"errors"
	"testing"

	"crm-messaging-server/internal/models"

	"github.com/google/uuid"
)

func TestTemplateRepositoryCRUD(t *testing.T) {
	database := setupTestDB(t)
	repo := NewTemplateRepository(database.GetDB())

	tpl := &models.Template{
		ID:      uuid.New().String(),
		Name:    "welcome",
		Channel: models.ChannelSMS,
		Body:    "Hi {{name}}!",
	}
	if err := repo.Create(tpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := repo.GetByID(tpl.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Name != "welcome" || found.Body != "Hi {{name}}!" {
		t.Errorf("GetByID() = %+v", found)
	}

	templates, err := repo.List(10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(templates) != 1 {
		t.Errorf("template count = %d, want 1", len(templates))
	}

	if err := repo.Delete(tpl.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(tpl.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrTemplateNotFound", err)
	}
	if err := repo.Delete(tpl.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("second Delete() error = %v, want ErrTemplateNotFound", err)
	}
}

func TestTemplateRepositoryDuplicateName(t *testing.T) {
	database := setupTestDB(t)
	repo := NewTemplateRepository(database.GetDB())

	first := &models.Template{ID: uuid.New().String(), Name: "welcome", Channel: models.ChannelSMS, Body: "a"}
	second := &models.Template{ID: uuid.New().String(), Name: "welcome", Channel: models.ChannelSMS, Body: "b"}

	if err := repo.Create(first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(second); err == nil {
		t.Error("Create() duplicate name expected error")
	}
}
