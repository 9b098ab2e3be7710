package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"settlement-form-backend/internal/api"
	"settlement-form-backend/internal/backend"
	"settlement-form-backend/internal/db"
	"settlement-form-backend/internal/derive"
	"settlement-form-backend/internal/notification"
	"settlement-form-backend/internal/sealed"
	"settlement-form-backend/internal/session"
	"settlement-form-backend/internal/store"
	"settlement-form-backend/internal/submit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	appStore := store.NewGormStore(gormDB)

	sealer, err := sealed.New(cfg.Crypto.Passphrase, cfg.Crypto.WorkFactor)
	if err != nil {
		return err
	}

	// Create a context that is cancelled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	var notifier submit.Notifier
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Warn("VAPID keys are not configured, push notifications are disabled")
	} else {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions, logger)
		pool.Start(ctx)
		notifier = pool
		logger.Info("notification worker pool started", zap.Int("size", cfg.WorkerPool.Size))
	}

	loc := cfg.Location()
	clock := func() time.Time { return time.Now().In(loc) }

	client := backend.NewClient(cfg.Backend, logger)
	pipeline := submit.NewPipeline(client, appStore, sealer, notifier, logger, cfg.Forms.LandingURL, clock)
	sessions := session.NewManager(session.Options{
		Profiles:  client,
		Drafts:    appStore,
		Deriver:   derive.NewEngine(client, logger),
		Submitter: pipeline,
		Notifier:  notifier,
		Logger:    logger,
		IdleTTL:   cfg.Forms.SessionTTL,
		Now:       clock,
	})

	// Initialize router
	handler := api.NewHandler(sessions, client, appStore, &webpushOptions, logger)
	router := api.NewRouter(cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received, stopping services")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	logger.Info("server gracefully stopped")
	return nil
}
