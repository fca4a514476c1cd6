package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskpulse-api/internal/domain"
	"github.com/taskpulse-api/internal/pkg/metrics"
	pkgtoken "github.com/taskpulse-api/internal/pkg/token"
	"go.uber.org/zap"
)

const (
	// CodeTTL is how long an issued code stays usable.
	CodeTTL    = 5 * time.Minute
	codeDigits = 6
	// DefaultMaxAttempts caps verification attempts per issued code.
	DefaultMaxAttempts = 5
)

// Service issues and verifies single-use email codes. Each email has at most
// one active code; issuing a new one supersedes the previous.
type Service interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) error
}

type otpStore interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
	Get(ctx context.Context, email string) (*domain.OTPRecord, error)
	CountAttempt(ctx context.Context, email, issuedCode string, maxAttempts int) error
	MarkUsed(ctx context.Context, email, code string) error
	DeleteExpired(ctx context.Context, rec *domain.OTPRecord) error
}

type issueThrottle interface {
	Allow(ctx context.Context, email string) error
}

type service struct {
	store       otpStore
	throttle    issueThrottle
	maxAttempts int
	now         func() time.Time
}

type ServiceDeps struct {
	Store       otpStore
	Throttle    issueThrottle // optional
	MaxAttempts int           // zero means DefaultMaxAttempts
	Now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	maxAttempts := deps.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &service{store: deps.Store, throttle: deps.Throttle, maxAttempts: maxAttempts, now: now}
}

// NormalizeEmail is the key form used for OTP records and account lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Issue(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("email required: %w", domain.ErrBadRequest)
	}
	if s.throttle != nil {
		if err := s.throttle.Allow(ctx, email); err != nil {
			if errors.Is(err, domain.ErrTooManyRequests) {
				metrics.OTPIssued.WithLabelValues("throttled").Inc()
				return "", err
			}
			// Throttle backend errors fail open.
			zap.L().Warn("otp throttle unavailable", zap.Error(err))
		}
	}

	code, err := pkgtoken.NewNumericCode(codeDigits)
	if err != nil {
		metrics.OTPIssued.WithLabelValues("error").Inc()
		return "", err
	}
	now := s.now().UTC()
	rec := &domain.OTPRecord{
		Email:     email,
		Code:      code,
		Used:      false,
		CreatedAt: now,
		ExpiresAt: now.Add(CodeTTL),
		TTL:       now.Add(CodeTTL).Unix(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		metrics.OTPIssued.WithLabelValues("error").Inc()
		return "", fmt.Errorf("store otp: %w", err)
	}
	metrics.OTPIssued.WithLabelValues("issued").Inc()
	return code, nil
}

// Verify consumes code for email. Every rejection carries domain.ErrInvalidCode
// regardless of cause.
func (s *service) Verify(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)
	err := s.verify(ctx, email, strings.TrimSpace(code))
	switch {
	case err == nil:
		metrics.OTPVerified.WithLabelValues("ok").Inc()
	case errors.Is(err, domain.ErrInvalidCode):
		metrics.OTPVerified.WithLabelValues("rejected").Inc()
	default:
		metrics.OTPVerified.WithLabelValues("error").Inc()
	}
	return err
}

func (s *service) verify(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return invalidCode()
	}
	rec, err := s.store.Get(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return invalidCode()
	}
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	now := s.now()
	if !now.Before(rec.ExpiresAt) {
		if err := s.store.DeleteExpired(ctx, rec); err != nil {
			zap.L().Warn("failed to delete expired otp", zap.String("email", email), zap.Error(err))
		}
		return invalidCode()
	}
	if !rec.Usable(now, s.maxAttempts) {
		return invalidCode()
	}
	// Every attempt is counted before the comparison, so parallel guesses
	// cannot exceed the cap.
	if err := s.store.CountAttempt(ctx, email, rec.Code, s.maxAttempts); err != nil {
		if errors.Is(err, domain.ErrInvalidCode) {
			return invalidCode()
		}
		return fmt.Errorf("count otp attempt: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		return invalidCode()
	}
	if err := s.store.MarkUsed(ctx, email, code); err != nil {
		if errors.Is(err, domain.ErrInvalidCode) {
			return invalidCode()
		}
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

func invalidCode() error {
	return fmt.Errorf("otp rejected: %w", domain.ErrInvalidCode)
}
