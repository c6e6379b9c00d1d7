// Package identity manages clinic staff accounts: registration, login and
// the administrator-only user maintenance operations. Every committed
// mutation is handed to the audit recorder.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinicdesk.org/internal/auth"
)

var (
	ErrNotFound           = errors.New("identity: not found")
	ErrConflict           = errors.New("identity: conflict")
	ErrInvalidInput       = errors.New("identity: invalid input")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

// User is a staff account. PasswordHash never leaves the process.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the minimal identity attached to authenticated requests.
func (u *User) Identity() auth.Identity {
	return auth.Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}

// Store persists users. Implementations return ErrNotFound for missing rows
// and ErrConflict for duplicate usernames or emails.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id int64) error
}

// RegisterInput is the payload accepted when creating a user.
type RegisterInput struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"required,role"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// UpdateInput carries a partial update. Empty fields keep the stored value.
type UpdateInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email" validate:"omitempty,email"`
	Role      string `json:"role" validate:"omitempty,role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (in RegisterInput) normalize() RegisterInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	return in
}

func (in UpdateInput) normalize() UpdateInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	return in
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
