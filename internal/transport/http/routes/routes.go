package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/config"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/transport/http/handlers"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/transport/http/middleware"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Accounts     *usecase.AccountService
	Passwords    *usecase.PasswordService
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
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Config != nil && len(deps.Config.App.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

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

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		tenant := api.Group("/tenants/:tenant_id")

		if deps.Services.Registration != nil {
			registrationGroup := tenant.Group("")
			if mw := rateLimitMiddleware(deps, "registration_ip", deps.Config.RateLimit.RegisterMaxAttempts); mw != nil {
				registrationGroup.Use(mw)
			}
			handlers.NewRegistrationHandler(deps.Services.Registration).RegisterRoutes(registrationGroup)
		}

		if deps.Services.Auth != nil {
			authGroup := tenant.Group("")
			if mw := rateLimitMiddleware(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts); mw != nil {
				authGroup.Use(mw)
			}
			handlers.NewAuthHandler(deps.Services.Auth).RegisterRoutes(authGroup)
		}

		if deps.Services.Accounts != nil {
			handlers.NewAccountHandler(deps.Services.Accounts).RegisterRoutes(tenant)
		}

		if deps.Services.Passwords != nil {
			passwordGroup := tenant.Group("")
			if mw := rateLimitMiddleware(deps, "password_change_ip", deps.Config.RateLimit.PasswordChangeMaxAttempts); mw != nil {
				passwordGroup.Use(mw)
			}
			handlers.NewPasswordHandler(deps.Services.Passwords).RegisterRoutes(passwordGroup)
		}
	}

	return r
}

func rateLimitMiddleware(deps Dependencies, name string, limit int) gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.TenantIPIdentifier(),
	}

	return deps.RateLimiter.RateLimit(rule)
}
