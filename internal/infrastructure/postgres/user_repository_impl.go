package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/platformkit/auth-service/internal/domain/entity"
	"github.com/platformkit/auth-service/internal/domain/repository"
)

// DefaultRole is attached to every newly created user.
const DefaultRole = "user"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const selectUser = `
	SELECT u.id, u.email, coalesce(u.phone, ''), u.password_hash,
	       u.first_name, u.last_name,
	       u.email_confirmed, u.phone_confirmed, u.two_factor_enabled,
	       u.failed_access_count, u.lockout_end,
	       u.created_at, u.updated_at, u.last_login_at,
	       coalesce(array_agg(r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id
`

func (r *UserRepository) scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.Password,
		&u.FirstName, &u.LastName,
		&u.EmailConfirmed, &u.PhoneConfirmed, &u.TwoFactorEnabled,
		&u.FailedAccessCount, &u.LockoutEnd,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt, &u.Roles); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, phone, password_hash, first_name, last_name,
		                   email_confirmed, phone_confirmed)
		VALUES ($1, nullif($2, ''), $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Phone, u.Password, u.FirstName, u.LastName,
		u.EmailConfirmed, u.PhoneConfirmed)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return err
	}

	if _, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
		ON CONFLICT DO NOTHING
	`, u.ID, DefaultRole); err != nil {
		return err
	}
	u.Roles = []string{DefaultRole}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, selectUser+` WHERE u.id = $1 GROUP BY u.id`, id)
	return r.scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, selectUser+` WHERE lower(u.email) = lower($1) GROUP BY u.id`, email)
	return r.scanUser(row)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, selectUser+` WHERE u.phone = $1 GROUP BY u.id`, phone)
	return r.scanUser(row)
}

// IncrementFailedAccess is a single atomic read-modify-write; concurrent
// failed attempts each observe a distinct counter value.
func (r *UserRepository) IncrementFailedAccess(ctx context.Context, id string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET failed_access_count = failed_access_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING failed_access_count
	`, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	return count, err
}

func (r *UserRepository) ResetFailedAccess(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE users SET failed_access_count = 0, updated_at = now() WHERE id = $1
	`, id)
}

func (r *UserRepository) SetLockoutEnd(ctx context.Context, id string, until time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET lockout_end = $2, updated_at = now() WHERE id = $1
	`, id, until)
}

func (r *UserRepository) SetEmailConfirmed(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE users SET email_confirmed = true, updated_at = now() WHERE id = $1
	`, id)
}

func (r *UserRepository) SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error {
	return r.exec(ctx, `
		UPDATE users SET two_factor_enabled = $2, updated_at = now() WHERE id = $1
	`, id, enabled)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, passwordHash)
}

func (r *UserRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET last_login_at = $2, updated_at = now() WHERE id = $1
	`, id, at)
}

func (r *UserRepository) exec(ctx context.Context, sql string, args ...any) error {
	res, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
