package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-crm/internal/config"
	"github.com/Dan9191/loan-crm/internal/handler"
	"github.com/Dan9191/loan-crm/internal/importer"
	"github.com/Dan9191/loan-crm/internal/integrations/refrate"
	"github.com/Dan9191/loan-crm/internal/migration"
	"github.com/Dan9191/loan-crm/internal/repository"
	"github.com/Dan9191/loan-crm/internal/service"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize database
	db, err := repository.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := repository.NewRepository(db)
	if err := repo.Ping(ctx); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	if err := repo.InitSchema(ctx); err != nil {
		logger.Fatalf("Failed to initialize schema: %v", err)
	}

	// Staged uploads need Redis; without it only one-step import is served
	var stage importer.Stage
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warnf("Redis unavailable at %s, two-step CSV upload disabled: %v", cfg.RedisAddr, err)
	} else {
		stage = importer.NewRedisStage(rdb)
	}

	var rates service.RateSource
	if cfg.RefRateURL != "" {
		rates = refrate.NewClient(cfg.RefRateURL, cfg.RefRateMargin, logger)
	}

	// Initialize layers
	svc := service.NewService(repo, logger, rates)
	imp := importer.NewImporter(repo, stage, cfg.UploadTTL, logger)
	h := handler.NewHandler(svc, imp, migration.NewMigrator(repo, logger), logger)

	// Nightly age refresh
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.AgeRefreshSchedule, func() {
		if _, err := svc.RefreshAges(ctx); err != nil {
			logger.WithError(err).Error("Age refresh failed")
		}
	}); err != nil {
		logger.Fatalf("Invalid AGE_REFRESH_SCHEDULE %q: %v", cfg.AgeRefreshSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, cfg.JWTSecret, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}
