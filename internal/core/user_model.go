package core

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown user or a wrong password.
// The two cases are not distinguished.
var ErrInvalidCredentials = errors.New("invalid username or password")

// User represents an authenticated system user scoped to a company.
type User struct {
	ID           int       `json:"id"`
	CompanyID    int       `json:"company_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserService provides user lookup and password authentication.
type UserService interface {
	// GetByUsername finds an active user by username (usernames are globally unique).
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// Authenticate checks password against the stored bcrypt hash.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// Create adds a user with a bcrypt-hashed password.
	Create(ctx context.Context, companyID int, username, email, password, role string) (*User, error)

	// GetCompany returns the company a user belongs to.
	GetCompany(ctx context.Context, companyID int) (*Company, error)
}
