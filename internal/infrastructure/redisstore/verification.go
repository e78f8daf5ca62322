package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/platformkit/auth-service/internal/application"
	"github.com/platformkit/auth-service/pkg/helpers"
)

var errTokenNotFound = errors.New("token not found or expired")

// Lua script: delete the token only when it belongs to the expected
// user, so a redemption attempt with the wrong user never burns the
// token and exactly one matching redemption can succeed.
var consumeTokenScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`)

// VerificationTokens stores single-use verification and reset tokens in
// Redis. The token string is the key, the user id the value; the TTL is
// the expiry, and redemption is an atomic compare-and-delete against
// the expected user.
type VerificationTokens struct {
	rdb      *redis.Client
	emailTTL time.Duration
	resetTTL time.Duration
}

func NewVerificationTokens(rdb *redis.Client, emailTTL, resetTTL time.Duration) *VerificationTokens {
	return &VerificationTokens{rdb: rdb, emailTTL: emailTTL, resetTTL: resetTTL}
}

func (s *VerificationTokens) key(token, purpose string) string {
	if purpose == application.PurposePasswordReset {
		return "pwd:reset:token:" + token
	}
	return "email:verify:token:" + token
}

func (s *VerificationTokens) ttl(purpose string) time.Duration {
	if purpose == application.PurposePasswordReset {
		return s.resetTTL
	}
	return s.emailTTL
}

func (s *VerificationTokens) Issue(ctx context.Context, userID, purpose string) (string, error) {
	tok, err := helpers.GenTokenString(32)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, s.key(tok, purpose), userID, s.ttl(purpose)).Err(); err != nil {
		return "", err
	}
	return tok, nil
}

func (s *VerificationTokens) Consume(ctx context.Context, token, purpose, userID string) error {
	res, err := consumeTokenScript.Run(ctx, s.rdb, []string{s.key(token, purpose)}, userID).Int()
	if err != nil {
		return err
	}
	if res != 1 {
		return errTokenNotFound
	}
	return nil
}

var _ application.VerificationTokens = (*VerificationTokens)(nil)
