package auth

import (
	"fmt"
	"time"

	"forex-signal-go/internal/config"
	"forex-signal-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// resetPurpose stamps password reset tokens so the two token kinds signed
// with the same secret can never stand in for each other.
const resetPurpose = "password_reset"

// Claims is the session token payload.
type Claims struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
	Purpose  string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

type resetClaims struct {
	UserID  uint   `json:"id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Service issues and verifies the signed tokens used for sessions and
// password resets.
type Service struct {
	secret   []byte
	tokenTTL time.Duration
	resetTTL time.Duration
}

func NewService(cfg config.Auth) *Service {
	return &Service{
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: time.Duration(cfg.TokenTTLHours) * time.Hour,
		resetTTL: time.Duration(cfg.ResetTTLHours) * time.Hour,
	}
}

// GenerateToken mints a session token. The returned expiry is in seconds so
// clients can schedule their own renewal.
func (s *Service) GenerateToken(user *models.User) (string, int64, error) {
	expiresIn := int64(s.tokenTTL.Seconds())
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresIn, nil
}

// ParseToken validates a session token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Purpose != "" {
		return nil, fmt.Errorf("token is not a session token")
	}
	return claims, nil
}

// VerifyUserToken is the reduced form used by the websocket hub.
func (s *Service) VerifyUserToken(tokenString string) (uint, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// GenerateResetToken mints a short-lived password reset token.
func (s *Service) GenerateResetToken(userID uint) (string, error) {
	claims := resetClaims{
		UserID:  userID,
		Purpose: resetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.resetTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return token, nil
}

// ParseResetToken validates a reset token and returns the user it is for.
func (s *Service) ParseResetToken(tokenString string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenString, &resetClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("invalid or expired password reset token: %w", err)
	}
	claims, ok := token.Claims.(*resetClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid reset token claims")
	}
	if claims.Purpose != resetPurpose {
		return 0, fmt.Errorf("token is not a password reset token")
	}
	return claims.UserID, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
