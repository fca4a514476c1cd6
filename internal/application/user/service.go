package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskpulse-api/internal/domain"
	"github.com/taskpulse-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName         = "name"
	fieldDepartment   = "department"
	fieldRole         = "role"
	fieldActive       = "active"
	fieldPasswordHash = "password_hash"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.AuthResult, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error)
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error
	List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error)
	AdminUpdate(ctx context.Context, actorID, userID string, req domain.AdminUpdateUserRequest) (*domain.User, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionIssuer interface {
	Issue(ctx context.Context, u *domain.User) (*domain.AuthResult, error)
}

type service struct {
	repo     userStore
	sessions sessionIssuer
	now      func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	Sessions sessionIssuer
	Now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.UserRepo, sessions: deps.Sessions, now: now}
}

// Register creates a local employee account and signs it in.
func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("user with this email already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	dept := strings.TrimSpace(req.Department)
	if dept == "" {
		dept = domain.DefaultDepartment
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleEmployee,
		Department:   dept,
		Active:       true,
		AuthProvider: domain.AuthProviderLocal,
		LastLoginAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.sessions.Issue(ctx, u)
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("name must not be blank: %w", domain.ErrBadRequest)
		}
		updates[fieldName] = name
	}
	if req.Department != nil {
		updates[fieldDepartment] = strings.TrimSpace(*req.Department)
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

// AdminUpdate changes role or active flag. Admins cannot demote or
// deactivate themselves.
func (s *service) AdminUpdate(ctx context.Context, actorID, userID string, req domain.AdminUpdateUserRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	if req.Role != nil {
		if !domain.ValidRole(*req.Role) {
			return nil, fmt.Errorf("invalid role %q: %w", *req.Role, domain.ErrBadRequest)
		}
		if actorID == userID && *req.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("admins cannot change their own role: %w", domain.ErrBadRequest)
		}
		updates[fieldRole] = *req.Role
	}
	if req.Active != nil {
		if actorID == userID && !*req.Active {
			return nil, fmt.Errorf("admins cannot deactivate themselves: %w", domain.ErrBadRequest)
		}
		updates[fieldActive] = *req.Active
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrBadRequest)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}
