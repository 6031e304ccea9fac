package server

import (
	"context"
	"fmt"

	"forex-signal-go/internal/analysis"
	"forex-signal-go/internal/auth"
	"forex-signal-go/internal/config"
	"forex-signal-go/internal/mailer"
	"forex-signal-go/internal/news"
	"forex-signal-go/internal/repository"
	"forex-signal-go/internal/ws"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps bundles everything the HTTP layer needs.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Auth     *auth.Service
	Users    *repository.UserRepository
	Signals  *repository.SignalRepository
	Tickets  *repository.TicketRepository
	Analysis *analysis.Service
	News     news.ClientInterface
	Mailer   mailer.MailerInterface
	Hub      *ws.Hub
}

// Server is the public HTTP surface of the platform.
type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
	port   int
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(400, err.Error())
	}
	return nil
}

// New builds the echo instance with all routes and middleware registered.
func New(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger(deps.Logger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if deps.Hub != nil {
		e.GET("/ws", func(c echo.Context) error {
			deps.Hub.HandleConnection(c.Response(), c.Request())
			return nil
		})
	}
	if deps.Config.Server.UploadDir != "" {
		e.Static("/uploads", deps.Config.Server.UploadDir)
	}

	authMW := requireAuth(deps.Auth)
	adminMW := requireAdmin(deps.Users)

	authHandler := newAuthHandler(deps)
	authHandler.register(e, authMW)

	signalsHandler := newSignalsHandler(deps)
	signalsHandler.register(e, authMW)

	statisticsHandler := newStatisticsHandler(deps)
	statisticsHandler.register(e, authMW)

	marketHandler := newMarketHandler(deps)
	marketHandler.register(e)

	supportHandler := newSupportHandler(deps)
	supportHandler.register(e, authMW)

	adminHandler := newAdminHandler(deps)
	adminHandler.register(e, authMW, adminMW)

	return &Server{
		echo:   e,
		logger: deps.Logger,
		port:   deps.Config.Server.Port,
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.Int("port", s.port))
	return s.echo.Start(fmt.Sprintf(":%d", s.port))
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
