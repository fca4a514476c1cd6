package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskpulse-api/internal/domain"
	"github.com/taskpulse-api/internal/infrastructure/google"
	"github.com/taskpulse-api/internal/pkg/id"
	pkgtoken "github.com/taskpulse-api/internal/pkg/token"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GooglePayload = google.Payload

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*domain.AuthResult, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*domain.AuthResult, error)
	// Issue opens a new session for an already authenticated account.
	Issue(ctx context.Context, u *domain.User) (*domain.AuthResult, error)
	Logout(ctx context.Context, sessionID, userID string) error
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
	Disable(ctx context.Context, sessionID string) error
}

type jwtSigner interface {
	Sign(userID, role, sessionID string) (string, error)
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*GooglePayload, error)
}

type service struct {
	userRepo        userStore
	sessionRepo     sessionStore
	jwtProvider     jwtSigner
	googleVerifier  googleVerifier
	refreshTokenDur time.Duration
	now             func() time.Time
}

type ServiceDeps struct {
	UserRepo        userStore
	SessionRepo     sessionStore
	JWTProvider     jwtSigner
	GoogleVerifier  googleVerifier
	RefreshTokenDur time.Duration
	Now             func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		userRepo:        deps.UserRepo,
		sessionRepo:     deps.SessionRepo,
		jwtProvider:     deps.JWTProvider,
		googleVerifier:  deps.GoogleVerifier,
		refreshTokenDur: deps.RefreshTokenDur,
		now:             now,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*domain.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Active {
		return nil, fmt.Errorf("account is deactivated: %w", domain.ErrUnauthorized)
	}
	s.touchLastLogin(ctx, u)
	return s.Issue(ctx, u)
}

// LoginWithGoogle signs in with a Google ID token. An account is matched by
// Google subject first, then by email (linking it); otherwise one is created.
func (s *service) LoginWithGoogle(ctx context.Context, idToken string) (*domain.AuthResult, error) {
	p, err := s.googleVerifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if p.Sub == "" || p.Email == "" {
		return nil, fmt.Errorf("google token missing identity: %w", domain.ErrUnauthorized)
	}
	if !p.EmailVerified {
		return nil, fmt.Errorf("google email not verified: %w", domain.ErrUnauthorized)
	}

	u, err := s.userRepo.GetByGoogleSub(ctx, p.Sub)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.linkOrCreateGoogleUser(ctx, p)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !u.Active {
		return nil, fmt.Errorf("account is deactivated: %w", domain.ErrUnauthorized)
	}
	s.touchLastLogin(ctx, u)
	return s.Issue(ctx, u)
}

func (s *service) linkOrCreateGoogleUser(ctx context.Context, p *GooglePayload) (*domain.User, error) {
	u, err := s.userRepo.GetByEmail(ctx, p.Email)
	if err == nil {
		if u.GoogleSub != "" && u.GoogleSub != p.Sub {
			return nil, fmt.Errorf("account linked to another google identity: %w", domain.ErrUnauthorized)
		}
		if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{
			"google_sub":     p.Sub,
			"email_verified": true,
		}); err != nil {
			return nil, err
		}
		u.GoogleSub = p.Sub
		u.EmailVerified = true
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	name := p.Name
	if name == "" {
		name = strings.SplitN(p.Email, "@", 2)[0]
	}
	now := s.now().UTC()
	u = &domain.User{
		UserID:        id.New(),
		Name:          name,
		Email:         p.Email,
		Role:          domain.RoleEmployee,
		Department:    domain.DefaultDepartment,
		Active:        true,
		EmailVerified: true,
		AuthProvider:  domain.AuthProviderGoogle,
		GoogleSub:     p.Sub,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Issue(ctx context.Context, u *domain.User) (*domain.AuthResult, error) {
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &domain.AuthResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

// Logout disables the session. Only its owner may end it.
func (s *service) Logout(ctx context.Context, sessionID, userID string) error {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return fmt.Errorf("session belongs to another account: %w", domain.ErrForbidden)
	}
	return s.sessionRepo.Disable(ctx, sessionID)
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

// Refresh rotates the refresh token and mints a new access token.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
	}
	now := s.now()
	if sess.RefreshExpiresAt < now.Unix() {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, fmt.Errorf("account is deactivated: %w", domain.ErrUnauthorized)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	newExpiry := now.Add(s.refreshTokenDur).Unix()
	if err := s.sessionRepo.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.RefreshToken = newToken
	sess.RefreshExpiresAt = newExpiry
	sess.User = u
	return &domain.AuthResult{Bearer: bearer, RefreshToken: newToken, Session: sess}, nil
}

func (s *service) touchLastLogin(ctx context.Context, u *domain.User) {
	now := s.now().UTC()
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{"last_login_at": now}); err != nil {
		zap.L().Warn("failed to record last login", zap.String("user_id", u.UserID), zap.Error(err))
		return
	}
	u.LastLoginAt = &now
}
