package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forex-signal-go/internal/analysis"
	"forex-signal-go/internal/auth"
	"forex-signal-go/internal/config"
	"forex-signal-go/internal/database"
	"forex-signal-go/internal/logger"
	"forex-signal-go/internal/mailer"
	"forex-signal-go/internal/metrics"
	"forex-signal-go/internal/monitor"
	"forex-signal-go/internal/news"
	"forex-signal-go/internal/quotes"
	"forex-signal-go/internal/ratelimit"
	"forex-signal-go/internal/repository"
	"forex-signal-go/internal/server"
	"forex-signal-go/internal/twelvedata"
	"forex-signal-go/internal/ws"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database (migrates schema and seeds the admin account)
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Market data provider. A single interval limiter is shared by every
	// caller so the free-plan quota holds across worker, websocket and API.
	providerClient := twelvedata.NewClient(&cfg.Provider, log)
	limiter := ratelimit.NewIntervalLimiter(time.Duration(cfg.Provider.MinIntervalMs)*time.Millisecond, log)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	ticketRepo := repository.NewTicketRepository(db)

	recorder := metrics.New(prometheus.DefaultRegisterer)
	authSvc := auth.NewService(cfg.Auth)
	mailSvc := mailer.New(cfg.Mail, log)
	newsClient := news.NewClient(cfg.News, log)

	// Analysis pipeline: cached bars, external model, persisted signals.
	barProvider := analysis.NewBarProvider(providerClient, limiter, log)
	predictor := analysis.NewPredictor(cfg.AI, log)
	analysisSvc := analysis.NewService(barProvider, predictor, signalRepo, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Background signal monitor
	workerSource := quotes.NewSource(providerClient, limiter, log, "signal worker")
	worker := monitor.NewWorker(log, signalRepo, workerSource, recorder, time.Duration(cfg.Worker.PollIntervalSec)*time.Second)
	go worker.Run(ctx)

	// Live price broadcaster
	broadcastSource := quotes.NewSource(providerClient, limiter, log, "price broadcaster")
	hub := ws.NewHub(log, broadcastSource, authSvc.VerifyUserToken, analysis.SupportedPairs(),
		time.Duration(cfg.Worker.BroadcastIntervalSec)*time.Second)
	go hub.Run(ctx)

	srv := server.New(server.Deps{
		Config:   &cfg,
		Logger:   log,
		Auth:     authSvc,
		Users:    userRepo,
		Signals:  signalRepo,
		Tickets:  ticketRepo,
		Analysis: analysisSvc,
		News:     newsClient,
		Mailer:   mailSvc,
		Hub:      hub,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Start(); err != nil {
		log.Info("HTTP server stopped", zap.Error(err))
	}
	log.Info("Server has been shut down.")
}
