package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

const userColumns = `id, company_id, username, email, password_hash, role, is_active, created_at`

func (s *userService) GetByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 AND is_active = true
		LIMIT 1`,
		username,
	).Scan(&u.ID, &u.CompanyID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, lookupErr("user", username, err)
	}
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID int) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.CompanyID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, lookupErr("user", userID, err)
	}
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *userService) Create(ctx context.Context, companyID int, username, email, password, role string) (*User, error) {
	ve := NewValidationErrors()
	username = strings.TrimSpace(username)
	if username == "" {
		ve.Add("username", "cannot be empty")
	}
	if len(password) < 8 {
		ve.Add("password", "must be at least 8 characters")
	}
	if role == "" {
		role = "accountant"
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO users (company_id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		companyID, username, email, string(hash), role,
	).Scan(&u.ID, &u.CompanyID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q: %w", username, ErrConflict)
		}
		return nil, fmt.Errorf("create user %q: %w", username, err)
	}
	return u, nil
}

func (s *userService) GetCompany(ctx context.Context, companyID int) (*Company, error) {
	c := &Company{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, company_code, name, gstin, state_code, created_at FROM companies WHERE id = $1",
		companyID,
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.GSTIN, &c.StateCode, &c.CreatedAt)
	if err != nil {
		return nil, lookupErr("company", companyID, err)
	}
	return c, nil
}
