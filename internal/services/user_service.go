package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"crm-messaging-server/internal/models"
	"crm-messaging-server/pkg/logger"
	"crm-messaging-server/pkg/utils"

	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Account lockout policy.
const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
)

var (
	// ErrInvalidCredentials covers bad username, password, or TOTP code so
	// responses don't leak which part failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates too many failed login attempts
	ErrAccountLocked = errors.New("account is temporarily locked")
	// ErrAccountInactive indicates a disabled account
	ErrAccountInactive = errors.New("account is inactive")
	// ErrTOTPRequired indicates the user has 2FA enabled and no code was given
	ErrTOTPRequired = errors.New("TOTP code is required")
)

// UserStore is the user persistence contract.
type UserStore interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Update(user *models.User) error
	Delete(id string) error
	List(limit, offset int) ([]*models.User, error)
}

// UserService handles user accounts, authentication, and roles.
type UserService struct {
	users         UserStore
	encryptionKey string
}

func NewUserService(users UserStore, encryptionKey string) *UserService {
	return &UserService{users: users, encryptionKey: encryptionKey}
}

// CreateUser registers a new user. Role defaults to agent.
func (s *UserService) CreateUser(username, email, password, role string) (*models.User, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if err := validatePasswordStrength(password); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleAgent
	}
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(username, email, string(hash), role)
	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	logger.Info("User created",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", user.Role),
	)
	return user, nil
}

// Authenticate verifies credentials and the TOTP code when 2FA is enabled.
// Failed attempts count toward a temporary lockout.
func (s *UserService) Authenticate(username, password, totpCode string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.IsLocked() {
		return nil, ErrAccountLocked
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailedLogin(user)
		return nil, ErrInvalidCredentials
	}

	if user.TOTPEnabled {
		if totpCode == "" {
			return nil, ErrTOTPRequired
		}
		secret, err := s.totpSecret(user)
		if err != nil {
			return nil, err
		}
		if !totp.Validate(totpCode, secret) {
			s.recordFailedLogin(user)
			return nil, ErrInvalidCredentials
		}
	}

	now := time.Now().Unix()
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now
	if err := s.users.Update(user); err != nil {
		logger.Warn("Failed to record login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return user, nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *UserService) ChangePassword(id, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if err := validatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	return s.users.Update(user)
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(id string) (*models.User, error) {
	return s.users.GetByID(id)
}

// ListUsers returns users with pagination.
func (s *UserService) ListUsers(limit, offset int) ([]*models.User, error) {
	return s.users.List(limit, offset)
}

// UpdateUser applies the mutable fields of an update request.
func (s *UserService) UpdateUser(id string, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		if !strings.Contains(*req.Email, "@") {
			return nil, errors.New("a valid email is required")
		}
		user.Email = *req.Email
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Role != nil {
		if !models.IsValidRole(*req.Role) {
			return nil, fmt.Errorf("unknown role %q", *req.Role)
		}
		user.Role = *req.Role
	}

	if err := s.users.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user.
func (s *UserService) DeleteUser(id string) error {
	return s.users.Delete(id)
}

// GenerateTOTPSecret provisions a new TOTP secret for a user and stores it
// encrypted. 2FA stays disabled until EnableTOTP confirms a valid code.
func (s *UserService) GenerateTOTPSecret(userID string) (string, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "crm-messaging-server",
		AccountName: user.Username,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	encrypted, err := utils.EncryptSecret(key.Secret(), s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt TOTP secret: %w", err)
	}

	user.TOTPSecret = &encrypted
	user.TOTPEnabled = false
	if err := s.users.Update(user); err != nil {
		return "", err
	}

	return key.Secret(), nil
}

// EnableTOTP turns 2FA on after the user proves possession of the secret.
func (s *UserService) EnableTOTP(userID, code string) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return errors.New("no TOTP secret provisioned")
	}

	secret, err := s.totpSecret(user)
	if err != nil {
		return err
	}
	if !totp.Validate(code, secret) {
		return ErrInvalidCredentials
	}

	user.TOTPEnabled = true
	return s.users.Update(user)
}

// DisableTOTP turns 2FA off and discards the secret.
func (s *UserService) DisableTOTP(userID string) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}

	user.TOTPSecret = nil
	user.TOTPEnabled = false
	return s.users.Update(user)
}

func (s *UserService) totpSecret(user *models.User) (string, error) {
	if user.TOTPSecret == nil {
		return "", errors.New("no TOTP secret provisioned")
	}
	secret, err := utils.DecryptSecret(*user.TOTPSecret, s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt TOTP secret: %w", err)
	}
	return secret, nil
}

func (s *UserService) recordFailedLogin(user *models.User) {
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts >= maxFailedLoginAttempts {
		until := time.Now().Add(lockoutDuration).Unix()
		user.LockedUntil = &until
		logger.Warn("Account locked after repeated failed logins",
			zap.String("user_id", user.ID),
			zap.Int("attempts", user.FailedLoginAttempts),
		)
	}
	if err := s.users.Update(user); err != nil {
		logger.Warn("Failed to record failed login", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return errors.New("password must contain both letters and digits")
	}
	return nil
}
