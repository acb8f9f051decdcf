package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/macrolog-backend/internal/models"
	"github.com/AnshRaj112/macrolog-backend/pkg/utils"
)

var (
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is inactive")
)

const MinPasswordLength = 8

// UserService manages accounts in the Postgres users table.
type UserService struct {
	db *sql.DB
}

func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// UsernameAvailable validates the username format and reports whether no
// account uses it yet.
func (s *UserService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if err := utils.ValidateUsername(username); err != nil {
		return false, err
	}

	var existing string
	err := s.db.QueryRowContext(ctx,
		"SELECT username FROM users WHERE LOWER(username) = $1",
		utils.NormalizeUsername(username),
	).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// CreateUser registers a new account with an Argon2id password hash.
func (s *UserService) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	available, err := s.UsernameAvailable(ctx, username)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrUsernameTaken
	}
	if len(password) < MinPasswordLength {
		return nil, &utils.ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     utils.NormalizeUsername(username),
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
		PasswordHash: hashedPassword,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
	`, user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Authenticate checks the credentials and returns the account.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, is_active
		FROM users
		WHERE LOWER(username) = $1
	`, utils.NormalizeUsername(username)).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	valid, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil || !valid {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
