package entity

import (
	"net/http"
	"strings"
	"time"

	"memorymount/lib/validate"
)

// UserRole controls access to the admin console endpoints.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is an account record. Passwords are stored hashed and never
// serialized. Deletion is a soft marker; lookups must filter it out.
type User struct {
	Id         string     `json:"id" bson:"_id"`
	Email      string     `json:"email" bson:"email" validate:"required,email"`
	Password   string     `json:"-" bson:"password"`
	Name       string     `json:"name" bson:"name"`
	Role       UserRole   `json:"role" bson:"role"`
	IsVerified bool       `json:"is_verified" bson:"is_verified"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// NormalizeEmail folds an address to its stored form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupRequest binds a registration call.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=120"`
}

func (s *SignupRequest) Bind(_ *http.Request) error {
	s.Email = NormalizeEmail(s.Email)
	return validate.Struct(s)
}

// LoginRequest binds an authentication call.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (l *LoginRequest) Bind(_ *http.Request) error {
	l.Email = NormalizeEmail(l.Email)
	return validate.Struct(l)
}

// PasswordChangeRequest binds a password rotation call.
type PasswordChangeRequest struct {
	Current string `json:"current_password" validate:"required"`
	Next    string `json:"new_password" validate:"required"`
}

func (p *PasswordChangeRequest) Bind(_ *http.Request) error {
	return validate.Struct(p)
}

// UserUpdateRequest binds an admin profile edit. Zero values leave
// the stored field untouched.
type UserUpdateRequest struct {
	Name       string   `json:"name" validate:"omitempty,min=1,max=120"`
	Role       UserRole `json:"role" validate:"omitempty,oneof=user admin"`
	IsVerified *bool    `json:"is_verified" validate:"omitempty"`
}

func (u *UserUpdateRequest) Bind(_ *http.Request) error {
	return validate.Struct(u)
}
