package services

import (
	"errors"
	"testing"
	"time"

	"crm-messaging-server/internal/models"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

type mockUserStore struct {
	users map[string]*models.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]*models.User)}
}

func (m *mockUserStore) Create(user *models.User) error {
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return errors.New("username already exists")
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserStore) GetByID(id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserStore) GetByUsername(username string) (*models.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *mockUserStore) Update(user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return errors.New("user not found")
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserStore) Delete(id string) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserStore) List(limit, offset int) ([]*models.User, error) {
	var out []*models.User
	for _, user := range m.users {
		out = append(out, user)
	}
	return out, nil
}

func TestCreateUser(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		role     string
		wantErr  bool
	}{
		{"valid agent", "alice", "alice@example.com", "secret123", models.RoleAgent, false},
		{"default role", "bob", "bob@example.com", "secret123", "", false},
		{"missing username", "", "x@example.com", "secret123", "", true},
		{"bad email", "carol", "nope", "secret123", "", true},
		{"short password", "dave", "dave@example.com", "ab1", "", true},
		{"digits only password", "erin", "erin@example.com", "12345678", "", true},
		{"unknown role", "frank", "frank@example.com", "secret123", "boss", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewUserService(newMockUserStore(), testEncryptionKey)
			user, err := service.CreateUser(tt.username, tt.email, tt.password, tt.role)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateUser() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.role == "" && user.Role != models.RoleAgent {
				t.Errorf("default role = %q, want agent", user.Role)
			}
			if user.PasswordHash == tt.password {
				t.Error("password stored in plain text")
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	store := newMockUserStore()
	service := NewUserService(store, testEncryptionKey)

	user, err := service.CreateUser("alice", "alice@example.com", "secret123", models.RoleAgent)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		got, err := service.Authenticate("alice", "secret123", "")
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("user ID = %q, want %q", got.ID, user.ID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := service.Authenticate("alice", "wrong", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Authenticate() error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := service.Authenticate("nobody", "secret123", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Authenticate() error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("inactive account", func(t *testing.T) {
		stored, _ := store.GetByID(user.ID)
		stored.Active = false
		_ = store.Update(stored)
		defer func() {
			stored.Active = true
			_ = store.Update(stored)
		}()

		if _, err := service.Authenticate("alice", "secret123", ""); !errors.Is(err, ErrAccountInactive) {
			t.Errorf("Authenticate() error = %v, want ErrAccountInactive", err)
		}
	})
}

func TestAuthenticateLockout(t *testing.T) {
	store := newMockUserStore()
	service := NewUserService(store, testEncryptionKey)

	user, err := service.CreateUser("alice", "alice@example.com", "secret123", models.RoleAgent)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	for i := 0; i < maxFailedLoginAttempts; i++ {
		if _, err := service.Authenticate("alice", "wrong", ""); err == nil {
			t.Fatal("expected authentication failure")
		}
	}

	if _, err := service.Authenticate("alice", "secret123", ""); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("Authenticate() after lockout error = %v, want ErrAccountLocked", err)
	}

	stored, _ := store.GetByID(user.ID)
	if !stored.IsLocked() {
		t.Error("expected account to be locked")
	}
}

func TestTOTPLifecycle(t *testing.T) {
	store := newMockUserStore()
	service := NewUserService(store, testEncryptionKey)

	user, err := service.CreateUser("alice", "alice@example.com", "secret123", models.RoleAgent)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	secret, err := service.GenerateTOTPSecret(user.ID)
	if err != nil {
		t.Fatalf("GenerateTOTPSecret() error = %v", err)
	}

	stored, _ := store.GetByID(user.ID)
	if stored.TOTPSecret == nil || *stored.TOTPSecret == secret {
		t.Error("TOTP secret must be stored encrypted")
	}
	if stored.TOTPEnabled {
		t.Error("TOTP must stay disabled until confirmed")
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode() error = %v", err)
	}
	if err := service.EnableTOTP(user.ID, code); err != nil {
		t.Fatalf("EnableTOTP() error = %v", err)
	}

	// Login now requires a code.
	if _, err := service.Authenticate("alice", "secret123", ""); !errors.Is(err, ErrTOTPRequired) {
		t.Errorf("Authenticate() without code error = %v, want ErrTOTPRequired", err)
	}

	code, _ = totp.GenerateCode(secret, time.Now())
	if _, err := service.Authenticate("alice", "secret123", code); err != nil {
		t.Errorf("Authenticate() with code error = %v", err)
	}

	if err := service.DisableTOTP(user.ID); err != nil {
		t.Fatalf("DisableTOTP() error = %v", err)
	}
	if _, err := service.Authenticate("alice", "secret123", ""); err != nil {
		t.Errorf("Authenticate() after disable error = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := newMockUserStore()
	service := NewUserService(store, testEncryptionKey)

	user, err := service.CreateUser("alice", "alice@example.com", "secret123", models.RoleAgent)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if err := service.ChangePassword(user.ID, "wrong", "newsecret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("ChangePassword() with wrong password error = %v, want ErrInvalidCredentials", err)
	}

	if err := service.ChangePassword(user.ID, "secret123", "newsecret1"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	stored, _ := store.GetByID(user.ID)
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newsecret1")); err != nil {
		t.Error("new password not stored")
	}
}
