package db

import (
	"database/sql"
	"errors"
	"time"

	"crm-messaging-server/internal/models"

	"github.com/google/uuid"
)

// ConversationRepository persists conversations.
type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = "id, contact_addr, contact_name, channel, assigned_user_id, last_message_at, created_at"

func scanConversation(row interface{ Scan(...interface{}) error }) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var name sql.NullString
	err := row.Scan(
		&conv.ID,
		&conv.ContactAddr,
		&name,
		&conv.Channel,
		&conv.AssignedUserID,
		&conv.LastMessageAt,
		&conv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	conv.ContactName = name.String
	return conv, nil
}

// GetByID returns a conversation by ID, or ErrConversationNotFound.
func (r *ConversationRepository) GetByID(id string) (*models.Conversation, error) {
	if id == "" {
		return nil, errors.New("conversation ID is required")
	}

	row := r.db.QueryRow("SELECT "+conversationColumns+" FROM conversations WHERE id = ?", id)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	return conv, err
}

// GetOrCreate returns the conversation for a contact/channel pair, creating
// it on first contact.
func (r *ConversationRepository) GetOrCreate(contactAddr, channel string) (*models.Conversation, error) {
	if contactAddr == "" || channel == "" {
		return nil, errors.New("contact address and channel are required")
	}

	row := r.db.QueryRow(
		"SELECT "+conversationColumns+" FROM conversations WHERE contact_addr = ? AND channel = ?",
		contactAddr,
		channel,
	)
	conv, err := scanConversation(row)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	conv = &models.Conversation{
		ID:          uuid.New().String(),
		ContactAddr: contactAddr,
		Channel:     channel,
		CreatedAt:   time.Now().Unix(),
	}
	_, err = r.db.Exec(
		"INSERT INTO conversations (id, contact_addr, contact_name, channel, assigned_user_id, last_message_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		conv.ID,
		conv.ContactAddr,
		conv.ContactName,
		conv.Channel,
		conv.AssignedUserID,
		conv.LastMessageAt,
		conv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// TouchLastMessage bumps the conversation's last activity timestamp.
func (r *ConversationRepository) TouchLastMessage(id string, ts int64) error {
	if id == "" {
		return errors.New("conversation ID is required")
	}

	res, err := r.db.Exec("UPDATE conversations SET last_message_at = ? WHERE id = ?", ts, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// List returns conversations ordered by most recent activity.
func (r *ConversationRepository) List(limit, offset int) ([]*models.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(
		"SELECT "+conversationColumns+" FROM conversations ORDER BY last_message_at DESC LIMIT ? OFFSET ?",
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return conversations, nil
}
