package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"forex-signal-go/internal/auth"
	"forex-signal-go/internal/config"
	"forex-signal-go/internal/models"
	"forex-signal-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendTicketNotification(recipients []string, ticketID uint, subject, username string) error {
	args := m.Called(recipients, ticketID, subject, username)
	return args.Error(0)
}

func (m *MockMailer) SendReplyNotification(recipient string, ticketID uint, replierName string) error {
	args := m.Called(recipient, ticketID, replierName)
	return args.Error(0)
}

func (m *MockMailer) SendPasswordReset(recipient, resetURL string) error {
	args := m.Called(recipient, resetURL)
	return args.Error(0)
}

type serverFixture struct {
	server *Server
	db     *gorm.DB
	auth   *auth.Service
	users  *repository.UserRepository
	mailer *MockMailer
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.SignalRecord{},
		&models.SupportTicket{},
		&models.TicketReply{},
	))

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTLHours = 1
	cfg.Auth.ResetTTLHours = 1
	cfg.Server.Port = 0
	cfg.Server.UploadDir = t.TempDir()
	cfg.Server.AppURL = "http://localhost:3000"

	authSvc := auth.NewService(cfg.Auth)
	mockMailer := new(MockMailer)
	users := repository.NewUserRepository(db)

	srv := New(Deps{
		Config:  cfg,
		Logger:  zap.NewNop(),
		Auth:    authSvc,
		Users:   users,
		Signals: repository.NewSignalRepository(db),
		Tickets: repository.NewTicketRepository(db),
		Mailer:  mockMailer,
	})

	return &serverFixture{
		server: srv,
		db:     db,
		auth:   authSvc,
		users:  users,
		mailer: mockMailer,
	}
}

func (f *serverFixture) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Echo().ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) registerUser(t *testing.T, username, password string) string {
	t.Helper()

	rec := f.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": password,
		"email":    username + "@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func TestRegister_CreatesUserAndReturnsToken(t *testing.T) {
	// Arrange
	f := setupServer(t)

	// Act
	rec := f.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "secret123",
		"email":    "alice@example.com",
	})

	// Assert
	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)

	claims, err := f.auth.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegister_RejectsDuplicateUsername(t *testing.T) {
	// Arrange
	f := setupServer(t)
	f.registerUser(t, "alice", "secret123")

	// Act
	rec := f.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "secret123",
		"email":    "other@example.com",
	})

	// Assert
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already taken.")
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	// Arrange
	f := setupServer(t)

	// Act
	rec := f.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "abc",
		"email":    "alice@example.com",
	})

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_Succeeds(t *testing.T) {
	// Arrange
	f := setupServer(t)
	f.registerUser(t, "alice", "secret123")

	// Act
	rec := f.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "secret123",
	})

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func TestLogin_SameMessageForUnknownUserAndBadPassword(t *testing.T) {
	// Arrange
	f := setupServer(t)
	f.registerUser(t, "alice", "secret123")

	// Act
	unknown := f.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "nobody", "password": "secret123",
	})
	badPass := f.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong-password",
	})

	// Assert
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, badPass.Code)
	assert.Contains(t, unknown.Body.String(), "Invalid username or password.")
	assert.Contains(t, badPass.Body.String(), "Invalid username or password.")
}

func TestMe_RequiresToken(t *testing.T) {
	// Arrange
	f := setupServer(t)

	// Act
	rec := f.request(t, http.MethodGet, "/api/auth/me", "", nil)

	// Assert
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_ReturnsCurrentUser(t *testing.T) {
	// Arrange
	f := setupServer(t)
	token := f.registerUser(t, "alice", "secret123")

	// Act
	rec := f.request(t, http.MethodGet, "/api/auth/me", token, nil)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User.Username)
}

func TestChangePassword_RejectsWrongCurrentPassword(t *testing.T) {
	// Arrange
	f := setupServer(t)
	token := f.registerUser(t, "alice", "secret123")

	// Act
	rec := f.request(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"currentPassword": "wrong",
		"newPassword":     "newsecret",
	})

	// Assert
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect current password.")
}

func TestChangePassword_AllowsLoginWithNewPassword(t *testing.T) {
	// Arrange
	f := setupServer(t)
	token := f.registerUser(t, "alice", "secret123")

	// Act
	rec := f.request(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"currentPassword": "secret123",
		"newPassword":     "newsecret",
	})

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	login := f.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "newsecret",
	})
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestForgotPassword_NeverRevealsWhetherEmailExists(t *testing.T) {
	// Arrange
	f := setupServer(t)
	f.registerUser(t, "alice", "secret123")
	f.mailer.On("SendPasswordReset", "alice@example.com", mock.AnythingOfType("string")).Return(nil)

	// Act
	known := f.request(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "alice@example.com",
	})
	unknown := f.request(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "nobody@example.com",
	})

	// Assert
	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	f.mailer.AssertNumberOfCalls(t, "SendPasswordReset", 1)
}

func TestResetPassword_RoundTrip(t *testing.T) {
	// Arrange
	f := setupServer(t)
	f.registerUser(t, "alice", "secret123")
	user, err := f.users.FindByUsername("alice")
	require.NoError(t, err)
	resetToken, err := f.auth.GenerateResetToken(user.ID)
	require.NoError(t, err)

	// Act
	rec := f.request(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token":       resetToken,
		"newPassword": "resetsecret",
	})

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	login := f.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "resetsecret",
	})
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestResetPassword_RejectsSessionToken(t *testing.T) {
	// Arrange
	f := setupServer(t)
	sessionToken := f.registerUser(t, "alice", "secret123")

	// Act
	rec := f.request(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token":       sessionToken,
		"newPassword": "resetsecret",
	})

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired password reset token.")
}

func TestUpdateProfile_RejectsEmailOfAnotherAccount(t *testing.T) {
	// Arrange
	f := setupServer(t)
	f.registerUser(t, "alice", "secret123")
	bobToken := f.registerUser(t, "bob", "secret123")

	// Act
	rec := f.request(t, http.MethodPut, "/api/auth/me", bobToken, map[string]string{
		"email": "alice@example.com",
	})

	// Assert
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in use by another account")
}

func TestProtectedRoute_RejectsGarbageToken(t *testing.T) {
	// Arrange
	f := setupServer(t)

	// Act
	rec := f.request(t, http.MethodGet, "/api/auth/me", "not-a-jwt", nil)

	// Assert
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired token.")
}
