package sqlite

import (
	"context"
	"fmt"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

const (
	insertDeliveryAttemptQuery = `INSERT INTO delivery_attempts (
    alert_id, user_id, channel, kind, status, error, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?)`

	countDeliveriesQuery = `SELECT channel, status, COUNT(*) AS count
FROM delivery_attempts
GROUP BY channel, status`
)

// InsertDeliveryAttempt records the outcome of one channel send.
func (db *DB) InsertDeliveryAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	if attempt == nil {
		return fmt.Errorf("delivery attempt payload is required")
	}
	_, err := db.writeDB.ExecContext(ctx, insertDeliveryAttemptQuery,
		int64(attempt.AlertID),
		int64(attempt.UserID),
		string(attempt.Channel),
		string(attempt.Kind),
		string(attempt.Status),
		attempt.Error,
		attempt.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery attempt: %w", err)
	}
	return nil
}

// CountDeliveries aggregates attempt outcomes per channel.
func (db *DB) CountDeliveries(ctx context.Context) (map[models.ChannelName]models.DeliveryCounts, error) {
	var rows []struct {
		Channel string `db:"channel"`
		Status  string `db:"status"`
		Count   int    `db:"count"`
	}
	if err := db.readDB.SelectContext(ctx, &rows, countDeliveriesQuery); err != nil {
		return nil, fmt.Errorf("failed to count deliveries: %w", err)
	}

	counts := make(map[models.ChannelName]models.DeliveryCounts)
	for _, row := range rows {
		c := counts[models.ChannelName(row.Channel)]
		switch models.DeliveryStatus(row.Status) {
		case models.DeliveryStatusSent:
			c.Sent = row.Count
		case models.DeliveryStatusFailed:
			c.Failed = row.Count
		}
		counts[models.ChannelName(row.Channel)] = c
	}
	return counts, nil
}
