package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/guard"
	"github.com/noah-isme/course-registration-api/internal/handler"
	"github.com/noah-isme/course-registration-api/internal/middleware"
	"github.com/noah-isme/course-registration-api/internal/repository"
	"github.com/noah-isme/course-registration-api/internal/service"
	"github.com/noah-isme/course-registration-api/pkg/cache"
	"github.com/noah-isme/course-registration-api/pkg/config"
	"github.com/noah-isme/course-registration-api/pkg/database"
	"github.com/noah-isme/course-registration-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-registration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-registration-api/pkg/middleware/requestid"
	"github.com/noah-isme/course-registration-api/pkg/phonecodec"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	checks := map[string]handler.ReadinessCheck{}

	stores, closeStores, err := openStores(ctx, cfg, logr, checks)
	if err != nil {
		return err
	}
	defer closeStores()

	locker, closeLocker, err := openLocker(ctx, cfg, logr, checks)
	if err != nil {
		return err
	}
	defer closeLocker()

	codec, err := phonecodec.New(cfg.Phone.EncryptionKey, phonecodec.WithLegacyPassphrase(cfg.Phone.LegacyPassphrase))
	if err != nil {
		return fmt.Errorf("init phone codec: %w", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	phones := service.NewPhoneService(codec, metrics, logr)
	auth := service.NewAuthService(stores.Users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	users := service.NewUserService(stores.Users, phones, validate, logr)
	courses := service.NewCourseService(stores.Courses, validate, logr)
	enrollments := service.NewEnrollmentService(stores.Courses, stores.Registrations, locker, metrics, logr)
	roster := service.NewRosterService(stores.Registrations, phones, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:          handler.NewAuthHandler(auth),
		Courses:       handler.NewCourseHandler(courses),
		Registrations: handler.NewRegistrationHandler(enrollments, roster),
		Roster:        handler.NewRosterHandler(roster),
		Users:         handler.NewUserHandler(users),
		Metrics:       handler.NewMetricsHandler(metrics, checks),
	}, auth)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Database.Driver), zap.String("guard", cfg.Guard.Backend))
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

	logr.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, logr *zap.Logger, checks map[string]handler.ReadinessCheck) (repository.Stores, func(), error) {
	switch cfg.Database.Driver {
	case config.StoreDriverMemory:
		logr.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore().Stores(), func() {}, nil
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return repository.Stores{}, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db.DB); err != nil {
				_ = db.Close()
				return repository.Stores{}, nil, err
			}
			logr.Info("migrations applied")
		}
		checks["postgres"] = db.PingContext
		return repository.NewPostgresStores(db), func() { _ = db.Close() }, nil
	default:
		return repository.Stores{}, nil, fmt.Errorf("unknown store driver %q", cfg.Database.Driver)
	}
}

func openLocker(ctx context.Context, cfg *config.Config, logr *zap.Logger, checks map[string]handler.ReadinessCheck) (guard.Locker, func(), error) {
	switch cfg.Guard.Backend {
	case config.GuardBackendLocal:
		return guard.NewLocalLocker(), func() {}, nil
	case config.GuardBackendRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		locker := guard.NewRedisLocker(client, guard.RedisConfig{
			TTL:    cfg.Guard.LockTTL,
			Wait:   cfg.Guard.LockWait,
			Logger: logr,
		})
		return locker, closeRedis(client), nil
	default:
		return nil, nil, fmt.Errorf("unknown guard backend %q", cfg.Guard.Backend)
	}
}

func closeRedis(client *redis.Client) func() {
	return func() { _ = client.Close() }
}
