package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"forex-signal-go/internal/auth"
	"forex-signal-go/internal/mailer"
	"forex-signal-go/internal/models"
	"forex-signal-go/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type authHandler struct {
	logger    *zap.Logger
	auth      *auth.Service
	users     *repository.UserRepository
	mailer    mailer.MailerInterface
	uploadDir string
	appURL    string
}

func newAuthHandler(deps Deps) *authHandler {
	return &authHandler{
		logger:    deps.Logger,
		auth:      deps.Auth,
		users:     deps.Users,
		mailer:    deps.Mailer,
		uploadDir: deps.Config.Server.UploadDir,
		appURL:    deps.Config.Server.AppURL,
	}
}

func (h *authHandler) register(e *echo.Echo, authMW echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/register", h.registerUser)
	g.POST("/login", h.login)
	g.POST("/forgot-password", h.forgotPassword)
	g.POST("/reset-password", h.resetPassword)

	g.GET("/verify", h.verify, authMW)
	g.GET("/me", h.me, authMW)
	g.PUT("/me", h.updateProfile, authMW)
	g.POST("/change-password", h.changePassword, authMW)
	g.POST("/upload-profile-image", h.uploadProfileImage, authMW)
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"required,email"`
}

type sessionResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresIn int64        `json:"expiresIn"`
}

func (h *authHandler) registerUser(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Username, password, and email are required.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Username, email and a password of at least 6 characters are required.")
	}

	if _, err := h.users.FindByUsername(req.Username); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "Username already taken.")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := h.users.FindByEmail(req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "Email already in use.")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	user := &models.User{Username: req.Username, Email: req.Email, PasswordHash: hash}
	if err := h.users.Create(user); err != nil {
		return err
	}

	token, expiresIn, err := h.auth.GenerateToken(user)
	if err != nil {
		return err
	}
	h.logger.Info("User registered", zap.String("username", user.Username))
	return c.JSON(http.StatusCreated, sessionResponse{
		Message:   "User registered successfully.",
		Token:     token,
		User:      user,
		ExpiresIn: expiresIn,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *authHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Username and password are required.")
	}

	// A generic message for both unknown users and bad passwords keeps
	// account enumeration off the table.
	user, err := h.users.FindByUsername(req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid username or password.")
		}
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid username or password.")
	}

	token, expiresIn, err := h.auth.GenerateToken(user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{
		Message:   "Login successful.",
		Token:     token,
		User:      user,
		ExpiresIn: expiresIn,
	})
}

func (h *authHandler) verify(c echo.Context) error {
	user, err := h.users.FindByID(currentClaims(c).UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found.")
		}
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *authHandler) me(c echo.Context) error {
	user, err := h.users.FindByID(currentClaims(c).UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found.")
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"user": user})
}

type updateProfileRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *authHandler) updateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Email is required.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid email format.")
	}

	userID := currentClaims(c).UserID
	taken, err := h.users.EmailTaken(req.Email, userID)
	if err != nil {
		return err
	}
	if taken {
		return echo.NewHTTPError(http.StatusConflict, "This email is already in use by another account.")
	}
	if err := h.users.UpdateEmail(userID, req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Profile updated successfully.",
		"email":   req.Email,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

func (h *authHandler) changePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Current and new passwords are required.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "New password must be at least 6 characters long.")
	}

	userID := currentClaims(c).UserID
	user, err := h.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found.")
		}
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Incorrect current password.")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := h.users.UpdatePassword(userID, hash); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password changed successfully."})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *authHandler) forgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email is required.")
	}

	// The response never reveals whether the email exists.
	user, err := h.users.FindByEmail(req.Email)
	if err == nil {
		token, tokenErr := h.auth.GenerateResetToken(user.ID)
		if tokenErr != nil {
			return tokenErr
		}
		resetURL := fmt.Sprintf("%s/reset-password?token=%s", h.appURL, token)
		if mailErr := h.mailer.SendPasswordReset(user.Email, resetURL); mailErr != nil {
			h.logger.Error("Failed to send password reset email", zap.Error(mailErr))
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "If an account with that email exists, a password reset link has been sent.",
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (h *authHandler) resetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Token and new password are required.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 6 characters long.")
	}

	userID, err := h.auth.ParseResetToken(req.Token)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid or expired password reset token.")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := h.users.UpdatePassword(userID, hash); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password has been reset successfully."})
}

func (h *authHandler) uploadProfileImage(c echo.Context) error {
	file, err := c.FormFile("profileImage")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No file uploaded.")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	userID := currentClaims(c).UserID
	name := fmt.Sprintf("user-%d-%d%s", userID, time.Now().UnixNano(), filepath.Ext(file.Filename))
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write upload: %w", err)
	}

	imageURL := "/uploads/" + name
	if err := h.users.UpdateProfileImage(userID, imageURL); err != nil {
		return err
	}
	h.logger.Info("Profile image updated", zap.Uint("user_id", userID), zap.String("file", name))
	return c.JSON(http.StatusOK, map[string]string{
		"message":  "Profile image uploaded successfully!",
		"imageUrl": imageURL,
	})
}
