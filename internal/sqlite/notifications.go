package sqlite

import (
	"context"
	"fmt"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

const (
	insertNotificationQuery = `INSERT INTO notifications (
    id, user_id, alert_id, kind, title, message, severity, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	listUserNotificationsQuery = `SELECT
    id,
    user_id,
    alert_id,
    kind,
    title,
    message,
    severity,
    created_at
FROM notifications
WHERE user_id = ?
ORDER BY created_at DESC, id
LIMIT ?`
)

type notificationRow struct {
	ID        string `db:"id"`
	UserID    int64  `db:"user_id"`
	AlertID   int64  `db:"alert_id"`
	Kind      string `db:"kind"`
	Title     string `db:"title"`
	Message   string `db:"message"`
	Severity  string `db:"severity"`
	CreatedAt int64  `db:"created_at"`
}

func (r notificationRow) toModel() *models.Notification {
	return &models.Notification{
		ID:        r.ID,
		UserID:    models.UserID(r.UserID),
		AlertID:   models.AlertID(r.AlertID),
		Kind:      models.NotificationKind(r.Kind),
		Title:     r.Title,
		Message:   r.Message,
		Severity:  models.AlertSeverity(r.Severity),
		CreatedAt: unixTime(r.CreatedAt),
	}
}

// InsertNotification appends an entry to a user's in-app inbox.
func (db *DB) InsertNotification(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return fmt.Errorf("notification payload is required")
	}
	_, err := db.writeDB.ExecContext(ctx, insertNotificationQuery,
		n.ID,
		int64(n.UserID),
		int64(n.AlertID),
		string(n.Kind),
		n.Title,
		n.Message,
		string(n.Severity),
		n.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListUserNotifications returns a user's inbox entries, newest first.
func (db *DB) ListUserNotifications(ctx context.Context, userID models.UserID, limit int) ([]*models.Notification, error) {
	var rows []notificationRow
	if err := db.readDB.SelectContext(ctx, &rows, listUserNotificationsQuery, int64(userID), limit); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	notifications := make([]*models.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, row.toModel())
	}
	return notifications, nil
}
