package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/resumefoundry/auth-core/internal/infra/config"
	"github.com/resumefoundry/auth-core/internal/transport/http/handlers"
	"github.com/resumefoundry/auth-core/internal/transport/http/middleware"
	"github.com/resumefoundry/auth-core/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Registration  *usecase.RegistrationService
	Passwords     *usecase.PasswordService
	Policy        *usecase.PolicyService
	SessionConfig *usecase.SessionConfigService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	if deps.Config.Telemetry.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(
			deps.Services.Auth,
			deps.Services.Registration,
			deps.Services.SessionConfig,
			deps.Metrics,
		)
		authHandler.RegisterRoutes(api.Group("/auth"), registerMiddlewares(deps)...)

		isDev := deps.Config.App.Env == "development"
		passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords, isDev)

		passwordGroup := api.Group("/password")
		passwordGroup.POST("/change", authMiddleware, passwordHandler.ChangePassword)

		forgotHandlers := append(forgotMiddlewares(deps), passwordHandler.ForgotPassword)
		passwordGroup.POST("/forgot", forgotHandlers...)
		passwordGroup.POST("/reset", passwordHandler.ResetPassword)

		adminHandler := handlers.NewAdminHandler(deps.Services.Policy, deps.Services.SessionConfig)
		adminGroup := api.Group("/admin")
		adminGroup.Use(authMiddleware, middleware.RequireAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	return r
}

// registerMiddlewares throttles account creation per client IP.
func registerMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil {
		return nil
	}
	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       "register",
		Limit:      10,
		Window:     time.Hour,
		Identifier: middleware.ClientIPIdentifier(),
	})}
}

// forgotMiddlewares throttles reset requests per client IP.
func forgotMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil {
		return nil
	}
	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       "password-forgot",
		Limit:      5,
		Window:     15 * time.Minute,
		Identifier: middleware.ClientIPIdentifier(),
	})}
}
