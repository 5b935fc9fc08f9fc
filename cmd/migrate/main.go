// Command migrate folds legacy lead records into users and loan applications.
// It is safe to run repeatedly.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-crm/internal/config"
	"github.com/Dan9191/loan-crm/internal/migration"
	"github.com/Dan9191/loan-crm/internal/notify"
	"github.com/Dan9191/loan-crm/internal/repository"
)

func main() {
	initSchema := flag.Bool("init-schema", false, "create missing tables before migrating")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	db, err := repository.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := repository.NewRepository(db)
	if *initSchema {
		if err := repo.InitSchema(ctx); err != nil {
			logger.Fatalf("Failed to initialize schema: %v", err)
		}
	}

	report, err := migration.NewMigrator(repo, logger).Run(ctx)
	if err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
	} else {
		fmt.Print(report.Summary())
	}

	if cfg.MailEnabled() {
		if err := notify.NewSender(cfg, logger).SendMigrationReport(report); err != nil {
			logger.Errorf("Failed to mail migration report: %v", err)
		}
	}
}
