package db

import (
	"database/sql"
	"errors"
	"time"

	"crm-messaging-server/internal/models"
)

// TemplateRepository persists bulk-messaging templates.
type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func scanTemplate(row interface{ Scan(...interface{}) error }) (*models.Template, error) {
	tpl := &models.Template{}
	err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Channel, &tpl.Body, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

// Create inserts a new template.
func (r *TemplateRepository) Create(tpl *models.Template) error {
	if tpl == nil {
		return errors.New("template cannot be nil")
	}

	now := time.Now().Unix()
	if tpl.CreatedAt == 0 {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	_, err := r.db.Exec(
		"INSERT INTO templates (id, name, channel, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		tpl.ID,
		tpl.Name,
		tpl.Channel,
		tpl.Body,
		tpl.CreatedAt,
		tpl.UpdatedAt,
	)
	return err
}

// GetByID returns a template by ID, or ErrTemplateNotFound.
func (r *TemplateRepository) GetByID(id string) (*models.Template, error) {
	if id == "" {
		return nil, errors.New("template ID is required")
	}

	row := r.db.QueryRow("SELECT id, name, channel, body, created_at, updated_at FROM templates WHERE id = ?", id)
	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	return tpl, err
}

// Delete removes a template.
func (r *TemplateRepository) Delete(id string) error {
	if id == "" {
		return errors.New("template ID is required")
	}

	res, err := r.db.Exec("DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// List returns templates with pagination.
func (r *TemplateRepository) List(limit, offset int) ([]*models.Template, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query("SELECT id, name, channel, body, created_at, updated_at FROM templates ORDER BY name LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}
