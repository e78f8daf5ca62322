package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/platformkit/auth-service/internal/application"
	"github.com/platformkit/auth-service/pkg/helpers"
)

var errCodeMismatch = errors.New("code mismatch")

// Lua script: delete the code only when it matches, so exactly one
// validation of a given code can succeed.
var consumeCodeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`)

// TwoFactorStore keeps the pending 6-digit login code per user plus the
// set of unredeemed recovery codes.
type TwoFactorStore struct {
	rdb     *redis.Client
	codeTTL time.Duration
}

func NewTwoFactorStore(rdb *redis.Client, codeTTL time.Duration) *TwoFactorStore {
	return &TwoFactorStore{rdb: rdb, codeTTL: codeTTL}
}

func keyLoginOTP(uid string) string { return "login:otp:" + uid }
func keyRecovery(uid string) string { return "2fa:recovery:" + uid }

func (s *TwoFactorStore) IssueCode(ctx context.Context, userID string) (string, error) {
	code, err := helpers.GenOTPCode()
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, keyLoginOTP(userID), code, s.codeTTL).Err(); err != nil {
		return "", err
	}
	return code, nil
}

func (s *TwoFactorStore) ConsumeCode(ctx context.Context, userID, code string) error {
	if len(code) != 6 {
		return errCodeMismatch
	}
	res, err := consumeCodeScript.Run(ctx, s.rdb, []string{keyLoginOTP(userID)}, code).Int()
	if err != nil {
		return err
	}
	if res != 1 {
		return errCodeMismatch
	}
	return nil
}

// IssueRecoveryCodes replaces any previous batch with n fresh one-time codes.
func (s *TwoFactorStore) IssueRecoveryCodes(ctx context.Context, userID string, n int) ([]string, error) {
	codes := make([]string, 0, n)
	members := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		c, err := helpers.GenRecoveryCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
		members = append(members, c)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, keyRecovery(userID))
	pipe.SAdd(ctx, keyRecovery(userID), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return codes, nil
}

// ConsumeRecoveryCode removes the code from the user's set; SREM is
// atomic, so each code is redeemable exactly once.
func (s *TwoFactorStore) ConsumeRecoveryCode(ctx context.Context, userID, code string) error {
	removed, err := s.rdb.SRem(ctx, keyRecovery(userID), code).Result()
	if err != nil {
		return err
	}
	if removed != 1 {
		return errCodeMismatch
	}
	return nil
}

var _ application.TwoFactorChallenge = (*TwoFactorStore)(nil)
