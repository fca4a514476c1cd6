package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/taskpulse-api/internal/application/otp"
	"github.com/taskpulse-api/internal/domain"
	"github.com/taskpulse-api/internal/infrastructure/smtp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest carries the emailed code as the reset token.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

// Service covers the email-code flows: address verification and password reset.
// Methods that issue a code return it so non-production builds can echo it.
type Service interface {
	SendVerificationOTP(ctx context.Context, email string) (string, error)
	VerifyEmailOTP(ctx context.Context, email, code string) error
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type codeService interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionStore interface {
	DisableByUser(ctx context.Context, userID string) error
}

type service struct {
	codes       codeService
	userRepo    userStore
	sessionRepo sessionStore
	mailer      smtp.Mailer
	frontendURL string
}

type ServiceDeps struct {
	Codes       codeService
	UserRepo    userStore
	SessionRepo sessionStore
	Mailer      smtp.Mailer
	FrontendURL string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		codes:       deps.Codes,
		userRepo:    deps.UserRepo,
		sessionRepo: deps.SessionRepo,
		mailer:      deps.Mailer,
		frontendURL: deps.FrontendURL,
	}
}

func (s *service) SendVerificationOTP(ctx context.Context, email string) (string, error) {
	email = otp.NormalizeEmail(email)
	u, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil && u.EmailVerified:
		return "", fmt.Errorf("this email is already registered and verified: %w", domain.ErrConflict)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return "", err
	}

	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return "", err
	}
	body := fmt.Sprintf("Your TaskPulse verification code is %s.\n\nIt expires in %d minutes.", code, int(otp.CodeTTL/time.Minute))
	if err := s.mailer.SendEmail(email, "Your TaskPulse verification code", body); err != nil {
		return "", fmt.Errorf("send verification email: %w", err)
	}
	return code, nil
}

// VerifyEmailOTP consumes the code and, when an account exists for the
// address, marks it verified.
func (s *service) VerifyEmailOTP(ctx context.Context, email, code string) error {
	email = otp.NormalizeEmail(email)
	if err := s.codes.Verify(ctx, email, code); err != nil {
		return err
	}
	u, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return nil
	}
	return s.userRepo.Update(ctx, u.UserID, map[string]interface{}{"email_verified": true})
}

// ForgotPassword issues a reset code when the account exists. Callers must
// report success either way; the returned code is empty for unknown emails.
func (s *service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = otp.NormalizeEmail(email)
	if _, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			zap.L().Info("password reset requested for unknown email")
			return "", nil
		}
		return "", err
	}
	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return "", err
	}
	link := fmt.Sprintf("%s/reset-password?token=%s&email=%s", s.frontendURL, code, url.QueryEscape(email))
	body := fmt.Sprintf("Use this link to reset your TaskPulse password:\n\n%s\n\nOr enter the code %s. It expires in %d minutes.",
		link, code, int(otp.CodeTTL/time.Minute))
	if err := s.mailer.SendEmail(email, "Reset your TaskPulse password", body); err != nil {
		return "", fmt.Errorf("send reset email: %w", err)
	}
	return code, nil
}

// ResetPassword verifies the reset code, replaces the password and signs out
// every existing session.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	email := otp.NormalizeEmail(req.Email)
	if err := s.codes.Verify(ctx, email, req.Token); err != nil {
		return err
	}
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return err
	}
	if err := s.sessionRepo.DisableByUser(ctx, u.UserID); err != nil {
		zap.L().Warn("failed to disable sessions after password reset", zap.String("user_id", u.UserID), zap.Error(err))
	}
	return nil
}
