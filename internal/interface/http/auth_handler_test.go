package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformkit/auth-service/config"
	"github.com/platformkit/auth-service/internal/application"
	"github.com/platformkit/auth-service/internal/domain/entity"
	repo "github.com/platformkit/auth-service/internal/domain/repository"
	"github.com/platformkit/auth-service/pkg/helpers"
	"github.com/platformkit/auth-service/pkg/validation"
)

// stubRepo serves a single pre-seeded user; mutations apply in place.
type stubRepo struct {
	user *entity.User
}

func (s *stubRepo) Create(_ context.Context, u *entity.User) error {
	u.ID = "user-1"
	s.user = u
	return nil
}

func (s *stubRepo) match(ok bool) (*entity.User, error) {
	if s.user == nil || !ok {
		return nil, repo.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	return s.match(s.user != nil && s.user.ID == id)
}

func (s *stubRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return s.match(s.user != nil && s.user.Email == email)
}

func (s *stubRepo) GetByPhone(_ context.Context, phone string) (*entity.User, error) {
	return s.match(s.user != nil && s.user.Phone == phone)
}

func (s *stubRepo) IncrementFailedAccess(_ context.Context, _ string) (int, error) {
	s.user.FailedAccessCount++
	return s.user.FailedAccessCount, nil
}

func (s *stubRepo) ResetFailedAccess(context.Context, string) error {
	s.user.FailedAccessCount = 0
	return nil
}

func (s *stubRepo) SetLockoutEnd(_ context.Context, _ string, until time.Time) error {
	s.user.LockoutEnd = &until
	return nil
}

func (s *stubRepo) SetEmailConfirmed(context.Context, string) error {
	s.user.EmailConfirmed = true
	return nil
}

func (s *stubRepo) SetTwoFactorEnabled(_ context.Context, _ string, enabled bool) error {
	s.user.TwoFactorEnabled = enabled
	return nil
}

func (s *stubRepo) UpdatePassword(_ context.Context, _, hash string) error {
	s.user.Password = hash
	return nil
}

func (s *stubRepo) SetLastLogin(_ context.Context, _ string, at time.Time) error {
	s.user.LastLoginAt = &at
	return nil
}

type stubTokens struct{}

func (stubTokens) Issue(context.Context, string, string) (string, error) { return "tok", nil }
func (stubTokens) Consume(context.Context, string, string, string) error { return nil }

type stubTwoFactor struct{}

func (stubTwoFactor) IssueCode(context.Context, string) (string, error) { return "123456", nil }
func (stubTwoFactor) ConsumeCode(context.Context, string, string) error { return nil }
func (stubTwoFactor) IssueRecoveryCodes(_ context.Context, _ string, n int) ([]string, error) {
	return make([]string, n), nil
}
func (stubTwoFactor) ConsumeRecoveryCode(context.Context, string, string) error { return nil }

func seedUser(t *testing.T, r *stubRepo, confirmed, twoFactor bool) {
	t.Helper()
	hash, err := helpers.HashPassword("Str0ngPass!")
	require.NoError(t, err)
	r.user = &entity.User{
		ID:               "user-1",
		Email:            "ada@example.com",
		Password:         hash,
		FirstName:        "Ada",
		LastName:         "Lovelace",
		EmailConfirmed:   confirmed,
		PhoneConfirmed:   true,
		TwoFactorEnabled: twoFactor,
	}
}

func newTestRouter(t *testing.T, r *stubRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	jwt := helpers.NewJWTManager("test-secret", "platformkit", "platformkit-users", 24*time.Hour)
	svc := application.NewService(r, jwt, stubTokens{}, stubTwoFactor{}, application.DefaultLockoutPolicy(), logger)
	cfg := config.Load()
	h := NewAuthHandler(svc, logger, cfg, nil)

	e := gin.New()
	e.POST("/api/auth/login", h.Login)
	e.POST("/api/auth/forgot-password", h.ForgotPassword)
	e.POST("/api/auth/verify-2fa", h.VerifyTwoFactor)
	return e
}

func doJSON(t *testing.T, e *gin.Engine, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("missing fields rejected", func(t *testing.T) {
		e := newTestRouter(t, &stubRepo{})
		w, env := doJSON(t, e, "/api/auth/login", gin.H{"identifier": "a@b.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, false, env["success"])
	})

	t.Run("unknown account answers 401", func(t *testing.T) {
		e := newTestRouter(t, &stubRepo{})
		w, env := doJSON(t, e, "/api/auth/login", gin.H{"identifier": "a@b.com", "password": "x"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid credentials", env["message"])
	})

	t.Run("locked account answers 400", func(t *testing.T) {
		r := &stubRepo{}
		seedUser(t, r, true, false)
		end := time.Now().Add(5 * time.Minute)
		r.user.LockoutEnd = &end

		e := newTestRouter(t, r)
		w, env := doJSON(t, e, "/api/auth/login", gin.H{"identifier": "ada@example.com", "password": "Str0ngPass!"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "account locked due to multiple failed attempts", env["message"])
	})

	t.Run("unverified email never issues a token", func(t *testing.T) {
		r := &stubRepo{}
		seedUser(t, r, false, false)

		e := newTestRouter(t, r)
		w, env := doJSON(t, e, "/api/auth/login", gin.H{"identifier": "ada@example.com", "password": "Str0ngPass!"})
		assert.Equal(t, http.StatusOK, w.Code)
		data := env["data"].(map[string]any)
		assert.Equal(t, true, data["requires_email_verification"])
		assert.NotContains(t, data, "token")
	})

	t.Run("two-factor gate", func(t *testing.T) {
		r := &stubRepo{}
		seedUser(t, r, true, true)

		e := newTestRouter(t, r)
		w, env := doJSON(t, e, "/api/auth/login", gin.H{"identifier": "ada@example.com", "password": "Str0ngPass!"})
		assert.Equal(t, http.StatusOK, w.Code)
		data := env["data"].(map[string]any)
		assert.Equal(t, true, data["requires_two_factor"])
		assert.NotContains(t, data, "token")
		assert.NotContains(t, data, "code", "the 2FA code must never appear in the response")
	})

	t.Run("success returns token", func(t *testing.T) {
		r := &stubRepo{}
		seedUser(t, r, true, false)

		e := newTestRouter(t, r)
		w, env := doJSON(t, e, "/api/auth/login", gin.H{"identifier": "ada@example.com", "password": "Str0ngPass!"})
		assert.Equal(t, http.StatusOK, w.Code)
		data := env["data"].(map[string]any)
		assert.NotEmpty(t, data["token"])
		assert.Equal(t, "user-1", data["user_id"])
	})
}

func TestEmailLinks(t *testing.T) {
	t.Run("verify link carries both endpoint fields", func(t *testing.T) {
		link := verifyEmailLink("https://app.example.com/verify-email", "t0k+en", "user-1")
		assert.Equal(t, "https://app.example.com/verify-email?token=t0k%2Ben&user_id=user-1", link)

		u, err := url.Parse(link)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "t0k+en", q.Get("token"))
		assert.Equal(t, "user-1", q.Get("user_id"))
	})

	t.Run("reset link carries the token", func(t *testing.T) {
		link := resetPasswordLink("https://app.example.com/reset-password", "abc")
		assert.Equal(t, "https://app.example.com/reset-password?token=abc", link)
	})
}

func TestForgotPasswordEndpoint(t *testing.T) {
	const want = "if an account with this email exists, you will receive a password reset link"

	t.Run("unknown email gets the generic message", func(t *testing.T) {
		e := newTestRouter(t, &stubRepo{})
		w, env := doJSON(t, e, "/api/auth/forgot-password", gin.H{"email": "nobody@example.com"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, env["message"])
	})

	t.Run("known email gets the same message", func(t *testing.T) {
		r := &stubRepo{}
		seedUser(t, r, true, false)
		e := newTestRouter(t, r)
		w, env := doJSON(t, e, "/api/auth/forgot-password", gin.H{"email": "ada@example.com"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, env["message"])
	})
}

func TestVerifyTwoFactorEndpoint(t *testing.T) {
	r := &stubRepo{}
	seedUser(t, r, true, true)

	e := newTestRouter(t, r)
	w, env := doJSON(t, e, "/api/auth/verify-2fa", gin.H{"user_id": "user-1", "code": "123456"})
	assert.Equal(t, http.StatusOK, w.Code)
	data := env["data"].(map[string]any)
	assert.NotEmpty(t, data["token"])
}
