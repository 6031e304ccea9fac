package server

import (
	"net/http"
	"strings"
	"time"

	"forex-signal-go/internal/auth"
	"forex-signal-go/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const claimsContextKey = "claims"

// requestLogger logs one structured line per request.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info("Request handled",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}

// requireAuth extracts and validates the bearer token.
func requireAuth(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication token required.")
			}

			claims, err := svc.ParseToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "Invalid or expired token.")
			}
			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// requireAdmin re-checks the admin flag against the database on every call,
// so a revoked role takes effect before the token expires.
func requireAdmin(users *repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := currentClaims(c)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication token required.")
			}
			user, err := users.FindByID(claims.UserID)
			if err != nil || !user.IsAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Admin access required.")
			}
			return next(c)
		}
	}
}

func currentClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsContextKey).(*auth.Claims)
	return claims
}
