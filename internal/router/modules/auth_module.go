package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformkit/auth-service/internal/container"
	handlers "github.com/platformkit/auth-service/internal/interface/http"
	"github.com/platformkit/auth-service/internal/interface/middleware"
	"github.com/platformkit/auth-service/pkg/helpers"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP-based rate limits. Login and forgot-password
	// are the enumeration/brute-force surfaces, so they get the tightest caps.
	registerLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), nil)
	verifyLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	forgotLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	twoFactorLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/register", registerLimiter, m.Handler.Register)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/verify-email", verifyLimiter, m.Handler.VerifyEmail)
	rg.POST("/auth/forgot-password", forgotLimiter, m.Handler.ForgotPassword)
	rg.POST("/auth/reset-password", resetLimiter, m.Handler.ResetPassword)
	rg.POST("/auth/verify-2fa", twoFactorLimiter, m.Handler.VerifyTwoFactor)

	// Protected endpoints with user-based rate limits
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/auth/setup-2fa", m.Handler.SetupTwoFactor)
		auth.POST("/auth/disable-2fa", m.Handler.DisableTwoFactor)
		auth.GET("/auth/profile", m.Handler.GetProfile)
	}
}
