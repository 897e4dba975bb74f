package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/repository"
	"github.com/noah-isme/course-registration-api/internal/service"
	"github.com/noah-isme/course-registration-api/pkg/config"
	"github.com/noah-isme/course-registration-api/pkg/database"
	"github.com/noah-isme/course-registration-api/pkg/logger"
	"github.com/noah-isme/course-registration-api/pkg/phonecodec"
)

// phone-migrate encrypts every plaintext phone number in place and prints a
// JSON summary. Rows that already hold ciphertext are left alone, so the
// command can be re-run. It exits 2 when any row failed.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	summary, err := run(ctx, cfg, logr)
	stop()
	if err != nil {
		logr.Error("phone migration failed", zap.Error(err))
		_ = logr.Sync()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)
	_ = logr.Sync()
	if summary.Failed > 0 {
		os.Exit(2)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*service.MigrationSummary, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	codec, err := phonecodec.New(cfg.Phone.EncryptionKey, phonecodec.WithLegacyPassphrase(cfg.Phone.LegacyPassphrase))
	if err != nil {
		return nil, fmt.Errorf("init phone codec: %w", err)
	}

	metrics := service.NewMetricsService()
	phones := service.NewPhoneService(codec, metrics, logr)
	migration := service.NewPhoneMigrationService(repository.NewUserRepository(db), phones, metrics, service.PhoneMigrationConfig{
		Workers:    cfg.Migration.Workers,
		MaxRetries: cfg.Migration.MaxRetries,
		RetryDelay: cfg.Migration.RetryDelay,
	}, logr)
	return migration.Run(ctx)
}
