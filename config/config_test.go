package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "auth-service", cfg.AppName)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.MaxFailedAttempts)
	assert.Equal(t, 5*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, 24*time.Hour, cfg.EmailTokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.TwoFactorTTL)
	assert.Equal(t, "platformkit", cfg.JWTIssuer)
	assert.Equal(t, "platformkit-users", cfg.JWTAudience)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_FAILED_ATTEMPTS", "3")
	t.Setenv("LOCKOUT_DURATION", "10m")
	t.Setenv("JWT_TOKEN_TTL", "1h")
	t.Setenv("MAIL_SEND_ENABLED", "false")

	cfg := Load()
	assert.Equal(t, 3, cfg.MaxFailedAttempts)
	assert.Equal(t, 10*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.MailSendEnabled)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_FAILED_ATTEMPTS", "lots")
	t.Setenv("LOCKOUT_DURATION", "soon")

	cfg := Load()
	assert.Equal(t, 5, cfg.MaxFailedAttempts)
	assert.Equal(t, 5*time.Minute, cfg.LockoutDuration)
}

func TestPostgresDSN(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "auth")
	t.Setenv("DB_SSLMODE", "require")

	cfg := Load()
	assert.Equal(t, "postgres://app:secret@db:5433/auth?sslmode=require", cfg.PostgresDSN())
}

func TestCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")

	cfg := Load()
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins())
}
