package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platformkit/auth-service/internal/domain/entity"
	repo "github.com/platformkit/auth-service/internal/domain/repository"
	"github.com/platformkit/auth-service/pkg/helpers"
)

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountLocked         = errors.New("account locked")
	ErrDuplicateAccount      = errors.New("account already exists")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidTwoFactorCode  = errors.New("invalid two-factor code")
	ErrUserNotFound          = errors.New("user not found")
)

// Verification token purposes. A token issued for one purpose is never
// valid for the other.
const (
	PurposeEmailConfirm  = "email-confirm"
	PurposePasswordReset = "password-reset"
)

// RecoveryCodeCount is how many one-time recovery codes are issued when
// two-factor auth is enabled.
const RecoveryCodeCount = 10

// VerificationTokens issues and redeems single-use, expiring tokens.
// Consume must check the user binding and invalidate the token in one
// atomic step: a successful redemption never validates again, and a
// failed one (wrong user, wrong purpose) leaves the token intact for
// its legitimate owner.
type VerificationTokens interface {
	Issue(ctx context.Context, userID, purpose string) (string, error)
	Consume(ctx context.Context, token, purpose, userID string) error
}

// TwoFactorChallenge issues and redeems short-lived 6-digit login codes
// plus the one-time recovery codes that can stand in for them.
type TwoFactorChallenge interface {
	IssueCode(ctx context.Context, userID string) (string, error)
	ConsumeCode(ctx context.Context, userID, code string) error
	IssueRecoveryCodes(ctx context.Context, userID string, n int) ([]string, error)
	ConsumeRecoveryCode(ctx context.Context, userID, code string) error
}

// Service is the authentication decision engine. It owns the ordered
// login checks, the lockout policy, the verification/reset token
// lifecycle and the two-factor flow, and issues the session token once
// every gate has passed.
type Service struct {
	Repo      repo.UserRepository
	JWT       *helpers.JWTManager
	Tokens    VerificationTokens
	TwoFactor TwoFactorChallenge
	Lockout   LockoutPolicy
	Logger    *logrus.Logger

	now func() time.Time
}

func NewService(r repo.UserRepository, jwt *helpers.JWTManager, tokens VerificationTokens, twoFactor TwoFactorChallenge, lockout LockoutPolicy, logger *logrus.Logger) *Service {
	return &Service{
		Repo:      r,
		JWT:       jwt,
		Tokens:    tokens,
		TwoFactor: twoFactor,
		Lockout:   lockout,
		Logger:    logger,
		now:       time.Now,
	}
}

type LoginOutcome int

const (
	// LoginSucceeded carries an issued session token.
	LoginSucceeded LoginOutcome = iota
	// LoginNeedsEmailVerification stops the flow before the 2FA check.
	LoginNeedsEmailVerification
	// LoginNeedsTwoFactor stops the flow before token issuance.
	LoginNeedsTwoFactor
)

// LoginResult is the tagged outcome of a login attempt that did not fail
// outright. TwoFactorCode is set only for LoginNeedsTwoFactor so the
// caller can deliver it to the user.
type LoginResult struct {
	Outcome       LoginOutcome
	User          *entity.User
	Token         string
	TokenExpiry   time.Time
	TwoFactorCode string
}

type RegisterInput struct {
	Email     string
	Phone     string
	Password  string
	FirstName string
	LastName  string
}

// RegistrationResult carries the new user and the email-confirmation
// token to be delivered out of band.
type RegistrationResult struct {
	User        *entity.User
	VerifyToken string
}

// Register creates an unconfirmed user and issues an email-confirmation
// token. A phone-less registration is considered phone-confirmed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegistrationResult, error) {
	email := normalizeEmail(in.Email)
	if existing, err := s.Repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrDuplicateAccount
	} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:          email,
		Phone:          strings.TrimSpace(in.Phone),
		Password:       hash,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		EmailConfirmed: false,
		PhoneConfirmed: strings.TrimSpace(in.Phone) == "",
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}

	tok, err := s.Tokens.Issue(ctx, u.ID, PurposeEmailConfirm)
	if err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user registered")
	return &RegistrationResult{User: u, VerifyToken: tok}, nil
}

// Login runs the ordered checks for an (identifier, password) pair.
// The order is load-bearing:
//
//  1. resolve the user ("@" means email, otherwise phone); a miss is
//     reported as invalid credentials, never as not-found
//  2. verify the password; a mismatch increments the failure counter
//     even while locked out, and is reported as invalid credentials
//  3. only then check the lockout window, so a correct password against
//     a locked account learns it is locked
//  4. reset the failure counter
//  5. gate on email confirmation
//  6. gate on two-factor, issuing a fresh code
//  7. issue the session token and stamp last login
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	u, err := s.resolve(ctx, identifier)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	now := s.now()

	if !helpers.CompareHashAndPassword(u.Password, password) {
		if err := s.recordFailure(ctx, u, now); err != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("recording failed attempt")
		}
		return nil, ErrInvalidCredentials
	}

	if s.Lockout.IsLockedOut(u.LockoutEnd, now) {
		s.Logger.WithField("user_id", u.ID).Warn("login attempt on locked account")
		return nil, ErrAccountLocked
	}

	if err := s.Repo.ResetFailedAccess(ctx, u.ID); err != nil {
		return nil, err
	}

	if !u.EmailConfirmed {
		return &LoginResult{Outcome: LoginNeedsEmailVerification, User: u}, nil
	}

	if u.TwoFactorEnabled {
		code, err := s.TwoFactor.IssueCode(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Outcome: LoginNeedsTwoFactor, User: u, TwoFactorCode: code}, nil
	}

	return s.finishLogin(ctx, u)
}

// VerifyTwoFactor completes a pending login with a 6-digit code, falling
// back to a one-time recovery code.
func (s *Service) VerifyTwoFactor(ctx context.Context, userID, code string) (*LoginResult, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrInvalidTwoFactorCode
	}
	if err := s.TwoFactor.ConsumeCode(ctx, u.ID, code); err != nil {
		if rerr := s.TwoFactor.ConsumeRecoveryCode(ctx, u.ID, code); rerr != nil {
			return nil, ErrInvalidTwoFactorCode
		}
	}
	return s.finishLogin(ctx, u)
}

// VerifyEmail redeems an email-confirmation token for the given user.
func (s *Service) VerifyEmail(ctx context.Context, userID, token string) error {
	if err := s.Tokens.Consume(ctx, token, PurposeEmailConfirm, userID); err != nil {
		return ErrInvalidOrExpiredToken
	}
	if err := s.Repo.SetEmailConfirmed(ctx, userID); err != nil {
		return err
	}
	s.Logger.WithField("user_id", userID).Info("email confirmed")
	return nil
}

// RequestPasswordReset issues a reset token when the account exists and
// returns nil either way; callers must answer with the same generic
// message so the response never reveals whether the email is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*entity.User, string, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil || u == nil {
		return nil, "", nil
	}
	tok, err := s.Tokens.Issue(ctx, u.ID, PurposePasswordReset)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

// ResetPassword redeems a reset token and replaces the password hash.
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil || u == nil {
		return ErrInvalidOrExpiredToken
	}
	if err := s.Tokens.Consume(ctx, token, PurposePasswordReset, u.ID); err != nil {
		return ErrInvalidOrExpiredToken
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.Logger.WithField("user_id", u.ID).Info("password reset")
	return nil
}

// EnableTwoFactor turns on 2FA for an authenticated user and returns a
// fresh batch of one-time recovery codes.
func (s *Service) EnableTwoFactor(ctx context.Context, userID string) ([]string, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if err := s.Repo.SetTwoFactorEnabled(ctx, u.ID, true); err != nil {
		return nil, err
	}
	codes, err := s.TwoFactor.IssueRecoveryCodes(ctx, u.ID, RecoveryCodeCount)
	if err != nil {
		return nil, err
	}
	s.Logger.WithField("user_id", u.ID).Info("two-factor enabled")
	return codes, nil
}

// DisableTwoFactor requires the current password before clearing the flag.
func (s *Service) DisableTwoFactor(ctx context.Context, userID, password string) error {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return ErrUserNotFound
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return ErrInvalidCredentials
	}
	if err := s.Repo.SetTwoFactorEnabled(ctx, u.ID, false); err != nil {
		return err
	}
	s.Logger.WithField("user_id", u.ID).Info("two-factor disabled")
	return nil
}

// Profile returns the user record for an authenticated subject.
func (s *Service) Profile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *Service) resolve(ctx context.Context, identifier string) (*entity.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return s.Repo.GetByEmail(ctx, strings.ToLower(identifier))
	}
	return s.Repo.GetByPhone(ctx, identifier)
}

func (s *Service) recordFailure(ctx context.Context, u *entity.User, now time.Time) error {
	count, err := s.Repo.IncrementFailedAccess(ctx, u.ID)
	if err != nil {
		return err
	}
	d := s.Lockout.RecordFailure(count, u.LockoutEnd, now)
	if d.NewLockoutEnd != nil {
		if err := s.Repo.SetLockoutEnd(ctx, u.ID, *d.NewLockoutEnd); err != nil {
			return err
		}
		// The counter restarts with each window; a single failure after
		// the window expires must not re-lock the account.
		if err := s.Repo.ResetFailedAccess(ctx, u.ID); err != nil {
			return err
		}
		s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "until": d.NewLockoutEnd}).Warn("account locked out")
	}
	return nil
}

func (s *Service) finishLogin(ctx context.Context, u *entity.User) (*LoginResult, error) {
	token, exp, err := s.JWT.Generate(helpers.TokenSubject{
		ID:        u.ID,
		Name:      u.Email,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     u.Roles,
	})
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("token issuance failed")
		return nil, err
	}
	if err := s.Repo.SetLastLogin(ctx, u.ID, s.now()); err != nil {
		return nil, err
	}
	return &LoginResult{Outcome: LoginSucceeded, User: u, Token: token, TokenExpiry: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
