package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/platformkit/auth-service/config"
	"github.com/platformkit/auth-service/internal/application"
	"github.com/platformkit/auth-service/internal/interface/middleware"
	"github.com/platformkit/auth-service/pkg/helpers"
	"github.com/platformkit/auth-service/pkg/mailer"
	"github.com/platformkit/auth-service/pkg/response"
	"github.com/platformkit/auth-service/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
	Cfg    *config.Config
	Pub    *helpers.RabbitPublisher
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger, cfg *config.Config, pub *helpers.RabbitPublisher) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cfg: cfg, Pub: pub}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone" binding:"omitempty,phone"`
	Password    string `json:"password" binding:"required,strongpwd"`
	FirstName   string `json:"first_name" binding:"required,max=100"`
	LastName    string `json:"last_name" binding:"required,max=100"`
	AcceptTerms bool   `json:"accept_terms" binding:"required"`
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type verifyEmailRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,strongpwd"`
}

type twoFactorRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

type disableTwoFactorRequest struct {
	Password string `json:"password" binding:"required"`
}

const genericResetMessage = "if an account with this email exists, you will receive a password reset link"

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	res, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, application.ErrDuplicateAccount) {
			response.Error[any](c, http.StatusBadRequest, "user with this email already exists", nil)
			return
		}
		h.internalError(c, err, "registration failed")
		return
	}

	link := verifyEmailLink(h.Cfg.VerifyEmailURL, res.VerifyToken, res.User.ID)
	h.enqueueEmail(c, res.User.Email, "verify_email", map[string]any{
		"Name":      res.User.FullName(),
		"VerifyURL": link,
		"ExpiresIn": formatTTL(h.Cfg.EmailTokenTTL),
	})

	response.Success(c, http.StatusOK, gin.H{
		"user_id":                     res.User.ID,
		"requires_email_verification": true,
	}, "registration successful, please check your email for a verification link", nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidCredentials):
			response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		case errors.Is(err, application.ErrAccountLocked):
			response.Error[any](c, http.StatusBadRequest, "account locked due to multiple failed attempts", nil)
		default:
			h.internalError(c, err, "login failed")
		}
		return
	}

	switch res.Outcome {
	case application.LoginNeedsEmailVerification:
		response.Success(c, http.StatusOK, gin.H{
			"user_id":                     res.User.ID,
			"requires_email_verification": true,
		}, "email not verified, please check your email for a verification link", nil)

	case application.LoginNeedsTwoFactor:
		h.enqueueEmail(c, res.User.Email, "two_factor_code", map[string]any{
			"Name":      res.User.FullName(),
			"Code":      res.TwoFactorCode,
			"ExpiresIn": formatTTL(h.Cfg.TwoFactorTTL),
		})
		response.Success(c, http.StatusOK, gin.H{
			"user_id":             res.User.ID,
			"requires_two_factor": true,
		}, "two-factor authentication required", nil)

	default:
		h.tokenResponse(c, res)
	}
}

// VerifyEmail POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.VerifyEmail(c.Request.Context(), req.UserID, req.Token); err != nil {
		if errors.Is(err, application.ErrInvalidOrExpiredToken) {
			response.Error[any](c, http.StatusBadRequest, "invalid or expired token", nil)
			return
		}
		h.internalError(c, err, "email verification failed")
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"verified": true}, "email verified", nil)
}

// ForgotPassword POST /api/auth/forgot-password
// The response is identical whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, tok, err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		h.internalError(c, err, "password reset request failed")
		return
	}
	if u != nil {
		link := resetPasswordLink(h.Cfg.ResetPasswordURL, tok)
		h.enqueueEmail(c, u.Email, "reset_password", map[string]any{
			"Name":      u.FullName(),
			"ResetURL":  link,
			"ExpiresIn": formatTTL(h.Cfg.ResetTokenTTL),
		})
	}
	response.Success[any](c, http.StatusOK, nil, genericResetMessage, nil)
}

// ResetPassword POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, application.ErrInvalidOrExpiredToken) {
			response.Error[any](c, http.StatusBadRequest, "invalid or expired token", nil)
			return
		}
		h.internalError(c, err, "password reset failed")
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
}

// VerifyTwoFactor POST /api/auth/verify-2fa
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	var req twoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.VerifyTwoFactor(c.Request.Context(), req.UserID, req.Code)
	if err != nil {
		if errors.Is(err, application.ErrInvalidTwoFactorCode) {
			response.Error[any](c, http.StatusBadRequest, "invalid verification code", nil)
			return
		}
		h.internalError(c, err, "two-factor verification failed")
		return
	}
	h.tokenResponse(c, res)
}

// SetupTwoFactor POST /api/auth/setup-2fa (authenticated)
func (h *AuthHandler) SetupTwoFactor(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	codes, err := h.Svc.EnableTwoFactor(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.internalError(c, err, "enabling two-factor failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recovery_codes": codes}, "two-factor authentication enabled", nil)
}

// DisableTwoFactor POST /api/auth/disable-2fa (authenticated)
func (h *AuthHandler) DisableTwoFactor(c *gin.Context) {
	var req disableTwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.DisableTwoFactor(c.Request.Context(), uid, req.Password); err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidCredentials):
			response.Error[any](c, http.StatusBadRequest, "invalid password", nil)
		case errors.Is(err, application.ErrUserNotFound):
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
		default:
			h.internalError(c, err, "disabling two-factor failed")
		}
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"two_factor_enabled": false}, "two-factor authentication disabled", nil)
}

// GetProfile GET /api/auth/profile (authenticated)
func (h *AuthHandler) GetProfile(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Svc.Profile(c.Request.Context(), uid)
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"id":                 u.ID,
		"email":              u.Email,
		"phone":              u.Phone,
		"first_name":         u.FirstName,
		"last_name":          u.LastName,
		"email_verified":     u.EmailConfirmed,
		"phone_verified":     u.PhoneConfirmed,
		"two_factor_enabled": u.TwoFactorEnabled,
		"roles":              u.Roles,
		"created_at":         u.CreatedAt,
		"last_login_at":      u.LastLoginAt,
	}, "profile", nil)
}

func (h *AuthHandler) tokenResponse(c *gin.Context, res *application.LoginResult) {
	response.Success(c, http.StatusOK, gin.H{
		"token":      res.Token,
		"user_id":    res.User.ID,
		"first_name": res.User.FirstName,
		"last_name":  res.User.LastName,
		"email":      res.User.Email,
	}, "login successful", map[string]any{"expires_at": res.TokenExpiry})
}

func (h *AuthHandler) enqueueEmail(c *gin.Context, to, template string, data map[string]any) {
	if h.Pub == nil || h.Cfg == nil || !h.Cfg.MailSendEnabled {
		return
	}
	if h.Cfg.CompanyName != "" {
		data["CompanyName"] = h.Cfg.CompanyName
	}
	if h.Cfg.SupportURL != "" {
		data["SupportURL"] = h.Cfg.SupportURL
	}
	job := mailer.EmailJob{To: to, Template: template, Data: data}
	if err := h.Pub.PublishJSON(c.Request.Context(), job); err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("template", template).Warn("failed to publish email job")
	}
}

func (h *AuthHandler) internalError(c *gin.Context, err error, msg string) {
	if h.Logger != nil {
		h.Logger.WithError(err).Error(msg)
	}
	response.Error[any](c, http.StatusInternalServerError, "an error occurred", nil)
}

// verifyEmailLink carries both fields the verify-email endpoint binds,
// since the email is the recipient's only channel for them.
func verifyEmailLink(base, token, userID string) string {
	return base + "?token=" + url.QueryEscape(token) + "&user_id=" + url.QueryEscape(userID)
}

func resetPasswordLink(base, token string) string {
	return base + "?token=" + url.QueryEscape(token)
}

// formatTTL renders a duration the way an email should read it.
func formatTTL(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return strconv.Itoa(h) + " hours"
	case d >= time.Minute && d%time.Minute == 0:
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return strconv.Itoa(m) + " minutes"
	default:
		return d.String()
	}
}
