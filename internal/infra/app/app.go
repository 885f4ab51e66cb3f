package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/port"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/config"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/database"
	kafkainfra "github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/kafka"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/logger"
	redisinfra "github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/redis"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/security"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/telemetry"
	postgresrepo "github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/repository/postgres"
	redisrepo "github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/repository/redis"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/transport/http/middleware"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/transport/http/routes"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	kafka  *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	if _, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log); err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(port.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("init argon2 hasher: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	lockout := domain.LockoutPolicy{
		MaxAttempts:  cfg.Lockout.MaxAttempts,
		LockDuration: cfg.Lockout.LockDuration,
	}

	accountRepo := postgresrepo.NewAccountRepository(pool, lockout)

	var kafkaProducer *kafkainfra.Producer
	var auditPublisher port.AuditPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka producer: %w", err)
		}
		auditPublisher = kafkainfra.NewAuditPublisher(kafkaProducer, cfg.App, log)
		log.Info("kafka audit publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		log.Info("kafka disabled, using stub audit publisher")
		auditPublisher = kafkainfra.NewStubPublisher(log)
	}

	passwordPolicy := security.NewPasswordPolicy().WithMinScore(cfg.Password.MinZxcvbnScore)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "accounts:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	registrationService := usecase.NewRegistrationService(accountRepo, hasher, passwordPolicy, auditPublisher, lockout).WithLogger(log)
	authService := usecase.NewAuthService(accountRepo, hasher, auditPublisher).WithLogger(log).WithMetrics(metrics)
	accountService := usecase.NewAccountService(accountRepo, auditPublisher).WithLogger(log)
	passwordService := usecase.NewPasswordService(accountRepo, hasher, passwordPolicy, auditPublisher).WithLogger(log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Accounts:     accountService,
			Passwords:    passwordService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		kafka:  kafkaProducer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.kafka != nil {
			_ = a.kafka.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting account API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
