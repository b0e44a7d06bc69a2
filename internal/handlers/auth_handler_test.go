package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"crm-messaging-server/internal/config"
	"crm-messaging-server/internal/models"
	"crm-messaging-server/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// mockUserService implements UserServiceInterface for testing.
type mockUserService struct {
	createUserFunc         func(username, email, password, role string) (*models.User, error)
	authenticateFunc       func(username, password, totpCode string) (*models.User, error)
	changePasswordFunc     func(id, oldPassword, newPassword string) error
	getUserFunc            func(id string) (*models.User, error)
	listUsersFunc          func(limit, offset int) ([]*models.User, error)
	updateUserFunc         func(id string, req models.UpdateUserRequest) (*models.User, error)
	deleteUserFunc         func(id string) error
	generateTOTPSecretFunc func(userID string) (string, error)
	enableTOTPFunc         func(userID, code string) error
	disableTOTPFunc        func(userID string) error
}

func (m *mockUserService) CreateUser(username, email, password, role string) (*models.User, error) {
	return m.createUserFunc(username, email, password, role)
}

func (m *mockUserService) Authenticate(username, password, totpCode string) (*models.User, error) {
	return m.authenticateFunc(username, password, totpCode)
}

func (m *mockUserService) ChangePassword(id, oldPassword, newPassword string) error {
	return m.changePasswordFunc(id, oldPassword, newPassword)
}

func (m *mockUserService) GetUser(id string) (*models.User, error) {
	return m.getUserFunc(id)
}

func (m *mockUserService) ListUsers(limit, offset int) ([]*models.User, error) {
	return m.listUsersFunc(limit, offset)
}

func (m *mockUserService) UpdateUser(id string, req models.UpdateUserRequest) (*models.User, error) {
	return m.updateUserFunc(id, req)
}

func (m *mockUserService) DeleteUser(id string) error {
	return m.deleteUserFunc(id)
}

func (m *mockUserService) GenerateTOTPSecret(userID string) (string, error) {
	return m.generateTOTPSecretFunc(userID)
}

func (m *mockUserService) EnableTOTP(userID, code string) error {
	return m.enableTOTPFunc(userID, code)
}

func (m *mockUserService) DisableTOTP(userID string) error {
	return m.disableTOTPFunc(userID)
}

func setupAuthRouter(userService UserServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(config.DefaultConfig(), userService)
	router := gin.New()
	router.POST("/api/auth/login", handler.Login)
	return router
}

func postLogin(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginSuccess(t *testing.T) {
	user := &models.User{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@example.com",
		Role:     models.RoleAgent,
		Active:   true,
	}
	service := &mockUserService{
		authenticateFunc: func(username, password, totpCode string) (*models.User, error) {
			assert.Equal(t, "alice", username)
			assert.Equal(t, "secret123", password)
			return user, nil
		},
	}
	router := setupAuthRouter(service)

	w := postLogin(router, `{"username":"alice","password":"secret123"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.NotEmpty(t, response["token"])

	userData, ok := response["user"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "alice", userData["username"])
	// The response must not expose credential material.
	assert.NotContains(t, userData, "password_hash")
	assert.NotContains(t, userData, "totp_secret")
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		authErr    error
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid credentials",
			body:       `{"username":"alice","password":"wrong"}`,
			authErr:    services.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid credentials",
		},
		{
			name:       "locked account",
			body:       `{"username":"alice","password":"secret123"}`,
			authErr:    services.ErrAccountLocked,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Account is temporarily locked",
		},
		{
			name:       "inactive account",
			body:       `{"username":"alice","password":"secret123"}`,
			authErr:    services.ErrAccountInactive,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Account is inactive",
		},
		{
			name:       "totp required",
			body:       `{"username":"alice","password":"secret123"}`,
			authErr:    services.ErrTOTPRequired,
			wantStatus: http.StatusUnauthorized,
			wantError:  "TOTP code is required",
		},
		{
			name:       "missing password",
			body:       `{"username":"alice"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Username and password are required",
		},
		{
			name:       "malformed body",
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockUserService{
				authenticateFunc: func(string, string, string) (*models.User, error) {
					return nil, tt.authErr
				},
			}
			router := setupAuthRouter(service)

			w := postLogin(router, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantError, response["error"])
		})
	}
}
