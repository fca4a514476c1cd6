package redisinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/taskpulse-api/internal/domain"
)

type counterStore interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	IncrWithExpire(ctx context.Context, key string, window time.Duration) (int64, error)
}

// OTPThrottle limits how often codes can be issued for one email:
// one per cooldown, at most maxInWindow per window. Exceeding the window
// cap blocks the email for the rest of the window.
type OTPThrottle struct {
	store       counterStore
	cooldown    time.Duration
	window      time.Duration
	maxInWindow int
}

func NewOTPThrottle(store counterStore, cooldown, window time.Duration, maxInWindow int) *OTPThrottle {
	return &OTPThrottle{store: store, cooldown: cooldown, window: window, maxInWindow: maxInWindow}
}

// Allow records an issuance attempt for email or rejects it with ErrTooManyRequests.
func (t *OTPThrottle) Allow(ctx context.Context, email string) error {
	blockKey := "otp:block:" + email
	lastKey := "otp:last:" + email
	countKey := "otp:count:" + email

	if ttl, _ := t.store.TTL(ctx, blockKey); ttl > 0 {
		return fmt.Errorf("too many code requests, retry in %ds: %w", int(ttl.Seconds()), domain.ErrTooManyRequests)
	}
	if ttl, _ := t.store.TTL(ctx, lastKey); ttl > 0 {
		return fmt.Errorf("wait %ds before requesting another code: %w", int(ttl.Seconds()), domain.ErrTooManyRequests)
	}

	cnt, err := t.store.IncrWithExpire(ctx, countKey, t.window)
	if err != nil {
		return fmt.Errorf("otp throttle: %w", err)
	}
	if int(cnt) > t.maxInWindow {
		_ = t.store.Set(ctx, blockKey, "1", t.window)
		return fmt.Errorf("too many code requests, retry in %ds: %w", int(t.window.Seconds()), domain.ErrTooManyRequests)
	}
	_ = t.store.Set(ctx, lastKey, "1", t.cooldown)
	return nil
}
