package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/infra/config"
	"github.com/resumefoundry/auth-core/internal/infra/database"
	"github.com/resumefoundry/auth-core/internal/infra/geoip"
	kafkainfra "github.com/resumefoundry/auth-core/internal/infra/kafka"
	"github.com/resumefoundry/auth-core/internal/infra/logger"
	redisinfra "github.com/resumefoundry/auth-core/internal/infra/redis"
	"github.com/resumefoundry/auth-core/internal/infra/security"
	memoryrepo "github.com/resumefoundry/auth-core/internal/repository/memory"
	postgresrepo "github.com/resumefoundry/auth-core/internal/repository/postgres"
	redisrepo "github.com/resumefoundry/auth-core/internal/repository/redis"
	"github.com/resumefoundry/auth-core/internal/transport/http/middleware"
	"github.com/resumefoundry/auth-core/internal/transport/http/routes"
	"github.com/resumefoundry/auth-core/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	for _, warning := range cfg.Warnings() {
		log.Warn("configuration warning", zap.String("detail", warning))
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	// Redis backs the durable rate-limit buckets and remembered devices. An
	// unreachable Redis degrades to in-process state so logins keep working.
	var (
		redisClient    *redisinfra.Client
		rateLimitStore port.RateLimitStore
		deviceStore    port.RememberedDeviceStore
	)
	redisClient, err = redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		log.Warn("redis unavailable, rate limits degrade to in-process state", zap.Error(err))
		redisClient = nil
		rateLimitStore = memoryrepo.NewRateLimitStore()
	} else {
		rateLimitStore = redisrepo.NewRateLimitRepository(redisClient.Client(), cfg.Redis.RateLimitPrefix)
		deviceStore = redisrepo.NewRememberedDeviceRepository(redisClient.Client(), cfg.Redis.DevicePrefix, cfg.Redis.RememberedDeviceTTL)
	}

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	policyService := usecase.NewPolicyService(repos.Settings, log)

	sessionConfigService := usecase.NewSessionConfigService(repos.Settings, cfg.Session, cfg.App.IsProduction(), log)
	if err := sessionConfigService.Load(ctx); err != nil {
		log.Warn("session config unavailable, serving defaults", zap.Error(err))
	}

	limiter := usecase.NewLoginLimiter(rateLimitStore, cfg.RateLimit, log)
	lockout := usecase.NewLockoutTracker(repos.Users, policyService, eventPublisher, log)
	twoFactor := security.NewTOTPEvaluator(deviceStore)

	authService := usecase.NewAuthService(
		repos.Users,
		repos.Sessions,
		limiter,
		lockout,
		policyService,
		sessionConfigService,
		twoFactor,
		geoip.NewNoopResolver(),
		eventPublisher,
		cfg.Session.SessionTokenSize,
		log,
	)
	registrationService := usecase.NewRegistrationService(repos.Users, policyService, eventPublisher, log)
	passwordService := usecase.NewPasswordService(repos.Users, repos.Sessions, repos.ResetTokens, policyService, eventPublisher, log)

	var metrics *middleware.HTTPMetrics
	if cfg.Telemetry.MetricsEnabled {
		metrics, err = middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
			Namespace: cfg.Telemetry.Namespace,
		})
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
	}

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		Metrics:     metrics,
		Database:    pool,
		Services: routes.ServiceSet{
			Auth:          authService,
			Registration:  registrationService,
			Passwords:     passwordService,
			Policy:        policyService,
			SessionConfig: sessionConfigService,
		},
	}
	if redisClient != nil {
		deps.Cache = redisClient
	}

	engine := routes.Register(deps)

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
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

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
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
