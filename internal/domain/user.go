package domain

import "time"

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

const (
	AuthProviderLocal  = "local"
	AuthProviderGoogle = "google"
)

const DefaultDepartment = "General"

type User struct {
	UserID        string     `json:"id" dynamodbav:"user_id"`
	Name          string     `json:"name" dynamodbav:"name"`
	Email         string     `json:"email" dynamodbav:"email"`
	PasswordHash  string     `json:"-" dynamodbav:"password_hash"`
	Role          string     `json:"role" dynamodbav:"role"`
	Department    string     `json:"department" dynamodbav:"department"`
	Active        bool       `json:"active" dynamodbav:"active"`
	EmailVerified bool       `json:"email_verified" dynamodbav:"email_verified"`
	AuthProvider  string     `json:"auth_provider,omitempty" dynamodbav:"auth_provider"` // "local" | "google"
	GoogleSub     string     `json:"-" dynamodbav:"google_sub,omitempty"`
	LastLoginAt   *time.Time `json:"last_login,omitempty" dynamodbav:"last_login_at"`
	CreatedAt     time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// IsReviewer reports whether the user may review other employees' reports.
func (u *User) IsReviewer() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

type CreateUserRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Department string `json:"department" validate:"omitempty,max=100"`
}

type UpdateProfileRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=100"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

// AdminUpdateUserRequest carries the fields only an admin may change.
type AdminUpdateUserRequest struct {
	Role   *string `json:"role" validate:"omitempty,oneof=employee manager admin"`
	Active *bool   `json:"active"`
}
