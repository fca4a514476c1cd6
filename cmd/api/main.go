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

	"github.com/joho/godotenv"
	"github.com/taskpulse-api/internal/config"
	"github.com/taskpulse-api/internal/infrastructure/dynamo"
	"github.com/taskpulse-api/internal/infrastructure/google"
	jwtinfra "github.com/taskpulse-api/internal/infrastructure/jwt"
	redisinfra "github.com/taskpulse-api/internal/infrastructure/redis"
	s3infra "github.com/taskpulse-api/internal/infrastructure/s3"
	"github.com/taskpulse-api/internal/infrastructure/smtp"
	"github.com/taskpulse-api/internal/infrastructure/sns"
	"github.com/taskpulse-api/internal/pkg/logger"
	transporthttp "github.com/taskpulse-api/internal/transport/http"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	if envErr != nil {
		zap.L().Info("no .env file found, reading from environment")
	}

	if err := run(cfg); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dynamodb client: %w", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}

	events, err := sns.NewPublisher(ctx, cfg)
	if err != nil {
		zap.L().Warn("report events disabled", zap.Error(err))
		events = sns.NopPublisher{}
	}

	deps := &transporthttp.Deps{
		UserRepo:       dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:    dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		OTPRepo:        dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.EmailOTPs),
		ReportRepo:     dynamo.NewReportRepo(dynamoClient, cfg.DynamoTables.Reports, cfg.DynamoTables.ReportDays),
		ExportStore:    s3infra.NewStore(s3Client, cfg.S3ExportBucket),
		Events:         events,
		Mailer:         smtp.NewMailer(cfg),
		JWTProvider:    jwtProvider,
		GoogleVerifier: google.NewVerifier(cfg.GoogleClientID),
		Now:            time.Now,
	}

	if cfg.RedisAddr != "" {
		rdb := redisinfra.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		defer func() { _ = rdb.Close() }()
		cache := redisinfra.NewCache(rdb, "taskpulse")
		if err := cache.Ping(ctx); err != nil {
			zap.L().Warn("redis unreachable at startup, throttle fails open until it recovers", zap.Error(err))
		}
		deps.Cache = cache
		deps.OTPThrottle = redisinfra.NewOTPThrottle(cache, cfg.OTPCooldown, cfg.OTPWindow, cfg.OTPMaxPerWindow)
	} else {
		zap.L().Info("REDIS_ADDR not set, OTP issuance throttle disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv), zap.String("timezone", cfg.Location().String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	zap.L().Info("server stopped")
	return nil
}
