package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
)

// ListUserNotifications returns a user's in-app inbox entries, newest
// first. The limit is clamped to a sane window.
func ListUserNotifications(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID, limit int) ([]*models.Notification, error) {
	if _, err := requireUser(ctx, db, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}

	notifications, err := db.ListUserNotifications(ctx, userID, limit)
	if err != nil {
		log.Error("failed to list notifications", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}
