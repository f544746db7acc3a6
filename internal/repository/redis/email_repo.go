package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultEmailCodeTTL = 5 * time.Minute
	EmailCodePrefix     = "email:code"

	// two-phase keys: pending until the mail is actually sent
	PendingSuffix   = "pending"
	ConfirmedSuffix = "confirmed"
)

var (
	ErrEmailCodeNotFound  = errors.New("email code not found")
	ErrEmailCodeDelFailed = errors.New("email code delete failed")
	ErrCodePendingFailed  = errors.New("code pending write failed")
	ErrCodeConfirmFailed  = errors.New("code confirm failed")
)

// EmailCodeRepository holds verification codes for register/reset flows.
// A code is written as pending first; only after the mail went out is it
// promoted to confirmed, so codes from failed sends can never verify.
type EmailCodeRepository struct{}

func (e *EmailCodeRepository) pendingKey(scope, email string) string {
	return fmt.Sprintf("%s:%s:%s:%s", EmailCodePrefix, scope, PendingSuffix, email)
}

func (e *EmailCodeRepository) confirmedKey(scope, email string) string {
	return fmt.Sprintf("%s:%s:%s:%s", EmailCodePrefix, scope, ConfirmedSuffix, email)
}

// PutPending writes the freshly generated code with its TTL.
func (e *EmailCodeRepository) PutPending(scope, email, code string) error {
	if err := Client.Set(context.Background(), e.pendingKey(scope, email), code, DefaultEmailCodeTTL).Err(); err != nil {
		return ErrCodePendingFailed
	}
	return nil
}

// Confirm promotes pending to confirmed atomically: read, copy with a fresh
// TTL, delete the source — all inside one Lua script.
func (e *EmailCodeRepository) Confirm(scope, email string) error {
	script := `
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`
	px := int64(DefaultEmailCodeTTL / time.Millisecond)
	res := Client.Eval(context.Background(), script,
		[]string{e.pendingKey(scope, email), e.confirmedKey(scope, email)}, px)
	if err := res.Err(); err != nil {
		return ErrCodeConfirmFailed
	}
	ok, _ := res.Int()
	if ok != 1 {
		return ErrCodeConfirmFailed
	}
	return nil
}

// DeletePending removes the pending key (idempotent); used when the mail
// send fails.
func (e *EmailCodeRepository) DeletePending(scope, email string) error {
	if err := Client.Del(context.Background(), e.pendingKey(scope, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}

// GetConfirmed returns the confirmed code for verification.
func (e *EmailCodeRepository) GetConfirmed(scope, email string) (string, error) {
	val, err := Client.Get(context.Background(), e.confirmedKey(scope, email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmailCodeNotFound
	}
	if err != nil {
		return "", ErrRedisUnavailable
	}
	return val, nil
}

// DeleteConfirmed burns a code after successful verification.
func (e *EmailCodeRepository) DeleteConfirmed(scope, email string) error {
	if err := Client.Del(context.Background(), e.confirmedKey(scope, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}
