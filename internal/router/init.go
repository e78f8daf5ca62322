package router

import (
	"github.com/platformkit/auth-service/internal/application"
	"github.com/platformkit/auth-service/internal/container"
	pginfra "github.com/platformkit/auth-service/internal/infrastructure/postgres"
	"github.com/platformkit/auth-service/internal/infrastructure/redisstore"
	handlers "github.com/platformkit/auth-service/internal/interface/http"
	"github.com/platformkit/auth-service/internal/router/modules"
)

func buildAuthModule() *modules.AuthModule {
	cfg := container.GetConfig()

	repo := pginfra.NewUserRepository(container.GetPGPool())
	tokens := redisstore.NewVerificationTokens(container.GetRedis(), cfg.EmailTokenTTL, cfg.ResetTokenTTL)
	twoFactor := redisstore.NewTwoFactorStore(container.GetRedis(), cfg.TwoFactorTTL)
	lockout := application.LockoutPolicy{
		MaxFailedAttempts: cfg.MaxFailedAttempts,
		LockoutDuration:   cfg.LockoutDuration,
	}

	svc := application.NewService(repo, container.GetJWT(), tokens, twoFactor, lockout, container.GetLogger())
	handler := handlers.NewAuthHandler(svc, container.GetLogger(), cfg, container.GetRabbitPub())

	return modules.NewAuthModule(handler, container.GetJWT())
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	r.Add(buildAuthModule())
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
