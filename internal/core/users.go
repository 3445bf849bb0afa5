package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

var (
	// ErrUserNotFound is returned when a user cannot be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates a duplicate email registration.
	ErrUserExists = errors.New("user with this email already exists")
	// ErrInvalidUserPayload indicates the request payload failed validation.
	ErrInvalidUserPayload = errors.New("invalid user payload")
)

func requireUser(ctx context.Context, db *sqlite.DB, userID models.UserID) (*models.User, error) {
	user, err := db.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateUser registers a user in the directory. The timezone defaults to
// UTC and is verified loadable so snooze day boundaries never fail later.
func CreateUser(ctx context.Context, db *sqlite.DB, log *slog.Logger, req *models.CreateUserRequest, now time.Time) (*models.User, error) {
	if req == nil {
		return nil, ErrInvalidUserPayload
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidUserPayload)
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrInvalidUserPayload)
	}
	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidUserPayload, timezone)
	}

	if _, err := db.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	user := &models.User{
		Email:     email,
		FullName:  fullName,
		Timezone:  timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.CreateUser(ctx, user); err != nil {
		if sqlite.IsUniqueConstraintError(err) {
			return nil, ErrUserExists
		}
		log.Error("failed to create user", "email", email, "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Info("user created", "user_id", user.ID, "email", email)
	return user, nil
}

// GetUser retrieves a single user by ID.
func GetUser(ctx context.Context, db *sqlite.DB, userID models.UserID) (*models.User, error) {
	return requireUser(ctx, db, userID)
}

// ListUsers retrieves every directory user.
func ListUsers(ctx context.Context, db *sqlite.DB) ([]*models.User, error) {
	users, err := db.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
