package repository

import (
	"context"
	"errors"
	"time"

	"github.com/platformkit/auth-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned by lookups when no user matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned by Create when the email is already taken.
	ErrDuplicate = errors.New("duplicate")
)

// UserRepository is the credential store behind the authentication engine.
// Implementations must make IncrementFailedAccess a single atomic
// read-modify-write per user; two concurrent failed attempts may never
// observe the same counter value.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByPhone(ctx context.Context, phone string) (*entity.User, error)

	// IncrementFailedAccess bumps the failure counter and returns the new value.
	IncrementFailedAccess(ctx context.Context, id string) (int, error)
	ResetFailedAccess(ctx context.Context, id string) error
	SetLockoutEnd(ctx context.Context, id string, until time.Time) error

	SetEmailConfirmed(ctx context.Context, id string) error
	SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}
