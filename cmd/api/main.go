package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/prospect-crm/internal/auth"
	"github.com/xavierca1/prospect-crm/internal/config"
	"github.com/xavierca1/prospect-crm/internal/infra/database"
	"github.com/xavierca1/prospect-crm/internal/infra/http/handlers"
	"github.com/xavierca1/prospect-crm/internal/infra/http/middleware"
	"github.com/xavierca1/prospect-crm/internal/infra/integration/kommo"
	"github.com/xavierca1/prospect-crm/internal/infra/mail"
	"github.com/xavierca1/prospect-crm/internal/infra/queue"
	"github.com/xavierca1/prospect-crm/internal/infra/worker"
	"github.com/xavierca1/prospect-crm/internal/usecase"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	// 1. Stores
	prospectStore := database.NewProspectStore(db, logger.Named("store"))
	activityStore := database.NewActivityStore(db)
	fileStore := database.NewFileStore(db)

	// 2. Audit transport, stage listeners, notices
	notices := handlers.NewNoticeHub()
	opts := []usecase.Option{
		usecase.WithNotifier(notices),
		usecase.WithObserver(middleware.PrometheusObserver{}),
	}

	var broker handlers.BrokerPinger
	if cfg.AuditMode == config.AuditRabbitMQ {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer rabbitMQ.Close()
		broker = rabbitMQ

		consumerCh, err := rabbitMQ.Conn.Channel()
		if err != nil {
			return fmt.Errorf("open consumer channel: %w", err)
		}
		activityWorker := queue.NewWorker(consumerCh, activityStore, logger.Named("activity-worker"))
		go func() {
			if err := activityWorker.Start(ctx, queue.QueueName); err != nil {
				logger.Error("activity worker stopped", zap.Error(err))
			}
		}()

		opts = append(opts, usecase.WithAuditLog(queue.NewProducer(rabbitMQ.Ch)))
	}

	if cfg.Mail.Enabled() {
		sender := mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Pass, cfg.Mail.From)
		opts = append(opts, usecase.WithStageListener(middleware.CountFailures("smtp", sender)))
	}
	if cfg.Kommo.Enabled() {
		client := kommo.NewClient(cfg.Kommo.BaseURL, cfg.Kommo.APIToken, cfg.Kommo.StatusID, logger.Named("kommo"))
		opts = append(opts, usecase.WithStageListener(middleware.CountFailures("kommo", client)))
	}

	// 3. Repository
	repo := usecase.NewProspectRepository(prospectStore, activityStore, fileStore, logger.Named("prospects"), opts...)

	if cfg.CacheRefreshInterval > 0 {
		refresher := worker.NewCacheRefresher(repo, cfg.CacheRefreshInterval, logger.Named("refresher"), middleware.RecordPipelineValue)
		go refresher.Start(ctx)
	} else if prospects, err := repo.List(ctx); err == nil {
		middleware.RecordPipelineValue(prospects)
	}

	// 4. Sessions
	authService := auth.NewService(auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpirationHours), auth.NewBroker())

	createLimit := middleware.NewRateLimiter(cfg.CreateRateLimit, time.Minute)
	go createLimit.Cleanup(ctx, 10*time.Minute)

	// 5. Router
	health := handlers.NewHealthHandler(db, broker, version)
	health.Mail = cfg.Mail.Enabled()
	health.Kommo = cfg.Kommo.Enabled()

	router := handlers.NewRouter(handlers.RouterConfig{
		Prospects:   handlers.NewProspectHandler(repo),
		Dashboard:   handlers.NewDashboardHandler(repo),
		Sessions:    handlers.NewSessionHandler(authService, notices, logger.Named("sessions")),
		Health:      health,
		Auth:        authService,
		CreateLimit: createLimit,
		CORSOrigins: cfg.CORSOrigins,
		RequestLog:  middleware.RequestLogger(logger.Named("http")),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// event streams would otherwise hold Shutdown until its deadline
	srv.RegisterOnShutdown(notices.Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("prospect CRM API listening", zap.String("addr", srv.Addr), zap.String("audit_mode", cfg.AuditMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	repo.Wait()
	return nil
}
