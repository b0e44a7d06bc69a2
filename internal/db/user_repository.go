package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crm-messaging-server/internal/models"
)

// UserRepository persists CRM users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, username, email, password_hash, role, totp_secret, totp_enabled, failed_login_attempts, locked_until, last_login, active, created_at, updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.TOTPSecret,
		&user.TOTPEnabled,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.LastLogin,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}

	_, err := r.db.Exec(
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.TOTPSecret,
		user.TOTPEnabled,
		user.FailedLoginAttempts,
		user.LockedUntil,
		user.LastLogin,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns a user by ID, or ErrUserNotFound.
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	if id == "" {
		return nil, errors.New("user ID is required")
	}

	row := r.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// GetByUsername returns a user by username, or ErrUserNotFound.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}

	row := r.db.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// Update persists the mutable fields of a user.
func (r *UserRepository) Update(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}

	user.UpdatedAt = time.Now().Unix()
	res, err := r.db.Exec(
		"UPDATE users SET email = ?, password_hash = ?, role = ?, totp_secret = ?, totp_enabled = ?, failed_login_attempts = ?, locked_until = ?, last_login = ?, active = ?, updated_at = ? WHERE id = ?",
		user.Email,
		user.PasswordHash,
		user.Role,
		user.TOTPSecret,
		user.TOTPEnabled,
		user.FailedLoginAttempts,
		user.LockedUntil,
		user.LastLogin,
		user.Active,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(id string) error {
	if id == "" {
		return errors.New("user ID is required")
	}

	res, err := r.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns users with pagination.
func (r *UserRepository) List(limit, offset int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query("SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
