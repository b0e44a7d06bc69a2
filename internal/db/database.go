package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crm-messaging-server/internal/models"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors shared by the repositories.
var (
	ErrMessageNotFound      = errors.New("message not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrTemplateNotFound     = errors.New("template not found")
)

// Database wraps the SQLite connection and owns schema creation.
type Database struct {
	db *sql.DB
}

func NewDatabase(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Verify we can actually connect to the database
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	if err := createTables(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("create tables failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'agent',
			totp_secret TEXT,
			totp_enabled BOOLEAN DEFAULT 0,
			failed_login_attempts INTEGER DEFAULT 0,
			locked_until INTEGER,
			last_login INTEGER,
			active BOOLEAN DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			contact_addr TEXT NOT NULL,
			contact_name TEXT,
			channel TEXT NOT NULL,
			assigned_user_id TEXT,
			last_message_at INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL,
			UNIQUE(contact_addr, channel)
		);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			user_id TEXT,
			channel TEXT NOT NULL,
			direction TEXT NOT NULL,
			destination TEXT NOT NULL,
			source TEXT,
			body TEXT NOT NULL,
			template_id TEXT,
			status TEXT NOT NULL,
			status_cause TEXT,
			fragments INTEGER DEFAULT 1,
			delivered_ts INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
		CREATE INDEX IF NOT EXISTS idx_messages_status ON messages(status);

		CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			channel TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	return err
}

// GetDB exposes the underlying connection for the repositories.
func (d *Database) GetDB() *sql.DB {
	return d.db
}

// Ping verifies the store is reachable.
func (d *Database) Ping() error {
	if d == nil || d.db == nil {
		return errors.New("database is closed")
	}
	return d.db.Ping()
}

func (d *Database) Close() error {
	if d == nil {
		return errors.New("database is nil")
	}

	if d.db == nil {
		return errors.New("database already closed")
	}

	err := d.db.Close()
	d.db = nil
	return err
}

// SeedDatabase creates the initial admin user when no users exist.
func (d *Database) SeedDatabase(adminPassword string) error {
	if adminPassword == "" {
		return errors.New("admin password is required for seeding")
	}

	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now().Unix()
	_, err = d.db.Exec(
		"INSERT INTO users (id, username, email, password_hash, role, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, 1, ?, ?)",
		uuid.New().String(),
		"admin",
		"admin@localhost",
		string(hash),
		models.RoleAdmin,
		now,
		now,
	)
	return err
}
