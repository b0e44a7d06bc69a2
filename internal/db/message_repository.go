package db

import (
	"database/sql"
	"errors"
	"time"

	"crm-messaging-server/internal/models"
)

// MessageRepository persists messages. The message ID is the external
// identifier the vendor echoes back in delivery reports.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = "id, conversation_id, user_id, channel, direction, destination, source, body, template_id, status, status_cause, fragments, delivered_ts, created_at, updated_at"

func scanMessage(row interface{ Scan(...interface{}) error }) (*models.Message, error) {
	msg := &models.Message{}
	var userID, source, cause sql.NullString
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&userID,
		&msg.Channel,
		&msg.Direction,
		&msg.Destination,
		&source,
		&msg.Body,
		&msg.TemplateID,
		&msg.Status,
		&cause,
		&msg.Fragments,
		&msg.DeliveredTS,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	msg.UserID = userID.String
	msg.Source = source.String
	msg.StatusCause = cause.String
	return msg, nil
}

// Create inserts a new message.
func (r *MessageRepository) Create(msg *models.Message) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}
	if msg.ID == "" || msg.ConversationID == "" || msg.Destination == "" {
		return errors.New("message id, conversation id and destination are required")
	}

	now := time.Now().Unix()
	if msg.CreatedAt == 0 {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	_, err := r.db.Exec(
		"INSERT INTO messages ("+messageColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		msg.ID,
		msg.ConversationID,
		msg.UserID,
		msg.Channel,
		msg.Direction,
		msg.Destination,
		msg.Source,
		msg.Body,
		msg.TemplateID,
		msg.Status,
		msg.StatusCause,
		msg.Fragments,
		msg.DeliveredTS,
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	return err
}

// FindByExternalID looks up a message by the identifier the vendor echoes
// back in delivery reports. Returns ErrMessageNotFound when absent.
func (r *MessageRepository) FindByExternalID(externalID string) (*models.Message, error) {
	if externalID == "" {
		return nil, errors.New("external ID is required")
	}

	row := r.db.QueryRow("SELECT "+messageColumns+" FROM messages WHERE id = ?", externalID)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// UpdateStatus overwrites the stored status. The most recently received
// report wins; delivery timestamps are not compared.
func (r *MessageRepository) UpdateStatus(externalID string, status models.MessageStatus, cause string, deliveredTS int64) error {
	if externalID == "" {
		return errors.New("external ID is required")
	}
	if !status.IsValid() {
		return errors.New("invalid message status")
	}

	var ts interface{}
	if deliveredTS > 0 {
		ts = deliveredTS
	}

	res, err := r.db.Exec(
		"UPDATE messages SET status = ?, status_cause = ?, delivered_ts = COALESCE(?, delivered_ts), updated_at = ? WHERE id = ?",
		status,
		cause,
		ts,
		time.Now().Unix(),
		externalID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// ListByConversation returns messages for a conversation, newest first.
func (r *MessageRepository) ListByConversation(conversationID string, limit, offset int) ([]*models.Message, error) {
	if conversationID == "" {
		return nil, errors.New("conversation ID is required")
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(
		"SELECT "+messageColumns+" FROM messages WHERE conversation_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		conversationID,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead flips all delivered inbound messages of a conversation to read
// and returns how many rows changed. Read is only ever produced here, never
// by the delivery-report normalizer.
func (r *MessageRepository) MarkRead(conversationID string) (int64, error) {
	if conversationID == "" {
		return 0, errors.New("conversation ID is required")
	}

	res, err := r.db.Exec(
		"UPDATE messages SET status = ?, updated_at = ? WHERE conversation_id = ? AND direction = ? AND status != ?",
		models.StatusRead,
		time.Now().Unix(),
		conversationID,
		models.DirectionInbound,
		models.StatusRead,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Ping reports whether the store is reachable. The delivery service uses it
// to distinguish a whole-batch outage from per-item failures.
func (r *MessageRepository) Ping() error {
	return r.db.Ping()
}
