package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

const (
	insertUserQuery = `INSERT INTO users (email, full_name, timezone, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

	selectUserBase = `SELECT id, email, full_name, timezone, created_at, updated_at FROM users`

	listUserIDsQuery = `SELECT id FROM users ORDER BY id`
)

type userRow struct {
	ID        int64  `db:"id"`
	Email     string `db:"email"`
	FullName  string `db:"full_name"`
	Timezone  string `db:"timezone"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r userRow) toModel() *models.User {
	return &models.User{
		ID:        models.UserID(r.ID),
		Email:     r.Email,
		FullName:  r.FullName,
		Timezone:  r.Timezone,
		CreatedAt: unixTime(r.CreatedAt),
		UpdatedAt: unixTime(r.UpdatedAt),
	}
}

// CreateUser inserts a new user record and populates the generated ID on the
// input model. Duplicate emails surface as a unique constraint error.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user payload is required")
	}

	var id int64
	err := db.writeDB.QueryRowContext(ctx, insertUserQuery,
		user.Email,
		user.FullName,
		user.Timezone,
		user.CreatedAt.Unix(),
		user.UpdatedAt.Unix(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = models.UserID(id)
	return nil
}

// GetUser retrieves a single user by ID.
func (db *DB) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	var row userRow
	query := selectUserBase + " WHERE id = ?"
	if err := db.readDB.GetContext(ctx, &row, query, int64(id)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toModel(), nil
}

// GetUserByEmail retrieves a single user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	query := selectUserBase + " WHERE email = ?"
	if err := db.readDB.GetContext(ctx, &row, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return row.toModel(), nil
}

// ListUsers retrieves all users ordered by ID.
func (db *DB) ListUsers(ctx context.Context) ([]*models.User, error) {
	var rows []userRow
	query := selectUserBase + " ORDER BY id"
	if err := db.readDB.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel())
	}
	return users, nil
}

// ListUserIDs returns every user ID in the directory. Used to resolve
// organization-wide visibility.
func (db *DB) ListUserIDs(ctx context.Context) ([]models.UserID, error) {
	var ids []int64
	if err := db.readDB.SelectContext(ctx, &ids, listUserIDsQuery); err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	userIDs := make([]models.UserID, 0, len(ids))
	for _, id := range ids {
		userIDs = append(userIDs, models.UserID(id))
	}
	return userIDs, nil
}
