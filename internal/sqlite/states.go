package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

const (
	selectStateQuery = `SELECT
    user_id,
    alert_id,
    read_state,
    read_at,
    snoozed_until,
    last_notified_at,
    created_at,
    updated_at
FROM user_alert_states
WHERE user_id = ? AND alert_id = ?`

	updateStateReadQuery = `UPDATE user_alert_states
SET read_state = ?,
    read_at = ?,
    updated_at = ?
WHERE user_id = ? AND alert_id = ?`

	updateStateSnoozeQuery = `UPDATE user_alert_states
SET snoozed_until = ?,
    updated_at = ?
WHERE user_id = ? AND alert_id = ?`

	// claimReminderQuery stamps last_notified_at if and only if the pair is
	// still eligible at execution time: alert active and unexpired with
	// reminders on, snooze elapsed, and a full interval passed since the
	// previous notification. Joining alerts inside the UPDATE makes the
	// eligibility check and the stamp a single atomic statement, so two
	// concurrent passes can never both claim the same reminder.
	claimReminderQuery = `UPDATE user_alert_states
SET last_notified_at = ?,
    updated_at = ?
FROM alerts a
WHERE a.id = user_alert_states.alert_id
  AND user_alert_states.user_id = ?
  AND user_alert_states.alert_id = ?
  AND a.status = 'active'
  AND a.reminders_enabled = 1
  AND (a.expires_at IS NULL OR a.expires_at > ?)
  AND (user_alert_states.snoozed_until IS NULL OR user_alert_states.snoozed_until <= ?)
  AND (user_alert_states.last_notified_at IS NULL
       OR ? - user_alert_states.last_notified_at >= a.reminder_interval_seconds)`

	countStatesQuery = `SELECT
    COUNT(*) AS total,
    COALESCE(SUM(CASE WHEN read_state = 'read' THEN 1 ELSE 0 END), 0) AS read,
    COALESCE(SUM(CASE WHEN snoozed_until IS NOT NULL AND snoozed_until > ? THEN 1 ELSE 0 END), 0) AS snoozed
FROM user_alert_states`

	selectUserAlertsQuery = `SELECT
    a.id,
    a.title,
    a.message,
    a.severity,
    a.created_by,
    a.visibility_kind,
    a.visibility_ids,
    a.start_at,
    a.expires_at,
    a.reminders_enabled,
    a.reminder_interval_seconds,
    a.status,
    a.created_at,
    a.updated_at,
    s.read_state,
    s.read_at,
    s.snoozed_until,
    s.last_notified_at,
    s.created_at AS state_created_at,
    s.updated_at AS state_updated_at
FROM alerts a
JOIN alert_targets t ON t.alert_id = a.id AND t.user_id = ?
LEFT JOIN user_alert_states s ON s.alert_id = a.id AND s.user_id = ?
WHERE a.status = 'active'
ORDER BY a.id`
)

type stateRow struct {
	UserID         int64          `db:"user_id"`
	AlertID        int64          `db:"alert_id"`
	ReadState      string         `db:"read_state"`
	ReadAt         sql.NullInt64  `db:"read_at"`
	SnoozedUntil   sql.NullInt64  `db:"snoozed_until"`
	LastNotifiedAt sql.NullInt64  `db:"last_notified_at"`
	CreatedAt      int64          `db:"created_at"`
	UpdatedAt      int64          `db:"updated_at"`
}

func (r stateRow) toModel() *models.UserAlertState {
	return &models.UserAlertState{
		UserID:         models.UserID(r.UserID),
		AlertID:        models.AlertID(r.AlertID),
		Read:           models.ReadState(r.ReadState),
		ReadAt:         nullableUnixTime(r.ReadAt),
		SnoozedUntil:   nullableUnixTime(r.SnoozedUntil),
		LastNotifiedAt: nullableUnixTime(r.LastNotifiedAt),
		CreatedAt:      unixTime(r.CreatedAt),
		UpdatedAt:      unixTime(r.UpdatedAt),
	}
}

type userAlertRow struct {
	alertRow
	ReadState      sql.NullString `db:"read_state"`
	ReadAt         sql.NullInt64  `db:"read_at"`
	SnoozedUntil   sql.NullInt64  `db:"snoozed_until"`
	LastNotifiedAt sql.NullInt64  `db:"last_notified_at"`
	StateCreatedAt sql.NullInt64  `db:"state_created_at"`
	StateUpdatedAt sql.NullInt64  `db:"state_updated_at"`
}

// GetUserAlertState fetches the stored state for a (user, alert) pair.
// Returns sql.ErrNoRows when the pair has never been materialized.
func (db *DB) GetUserAlertState(ctx context.Context, userID models.UserID, alertID models.AlertID) (*models.UserAlertState, error) {
	var row stateRow
	if err := db.readDB.GetContext(ctx, &row, selectStateQuery, int64(userID), int64(alertID)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user alert state: %w", err)
	}
	return row.toModel(), nil
}

// EnsureUserAlertState materializes the state row for a pair if it does not
// exist yet and returns the stored row either way.
func (db *DB) EnsureUserAlertState(ctx context.Context, userID models.UserID, alertID models.AlertID, now time.Time) (*models.UserAlertState, error) {
	ts := now.Unix()
	if _, err := db.writeDB.ExecContext(ctx, insertStateIfAbsentQuery, int64(userID), int64(alertID), ts, ts); err != nil {
		return nil, fmt.Errorf("failed to ensure user alert state: %w", err)
	}
	return db.GetUserAlertState(ctx, userID, alertID)
}

// UpdateUserAlertRead sets the read flag and its timestamp for a pair.
func (db *DB) UpdateUserAlertRead(ctx context.Context, userID models.UserID, alertID models.AlertID, read models.ReadState, readAt *time.Time, now time.Time) error {
	res, err := db.writeDB.ExecContext(ctx, updateStateReadQuery,
		string(read),
		unixArg(readAt),
		now.Unix(),
		int64(userID),
		int64(alertID),
	)
	if err != nil {
		return fmt.Errorf("failed to update read state: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateUserAlertSnooze sets the snooze horizon for a pair.
func (db *DB) UpdateUserAlertSnooze(ctx context.Context, userID models.UserID, alertID models.AlertID, until time.Time, now time.Time) error {
	res, err := db.writeDB.ExecContext(ctx, updateStateSnoozeQuery,
		until.Unix(),
		now.Unix(),
		int64(userID),
		int64(alertID),
	)
	if err != nil {
		return fmt.Errorf("failed to update snooze state: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClaimReminder attempts to stamp a reminder notification for the pair,
// re-checking full eligibility in the same statement. Returns true when the
// claim succeeded and the caller should dispatch.
func (db *DB) ClaimReminder(ctx context.Context, alertID models.AlertID, userID models.UserID, now time.Time) (bool, error) {
	ts := now.Unix()
	res, err := db.writeDB.ExecContext(ctx, claimReminderQuery,
		ts, ts,
		int64(userID),
		int64(alertID),
		ts, ts, ts,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return rows == 1, nil
}

// CountStates aggregates read and snooze totals across all state rows.
func (db *DB) CountStates(ctx context.Context, now time.Time) (*models.StateCounts, error) {
	var row struct {
		Total   int `db:"total"`
		Read    int `db:"read"`
		Snoozed int `db:"snoozed"`
	}
	if err := db.readDB.GetContext(ctx, &row, countStatesQuery, now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to count states: %w", err)
	}
	return &models.StateCounts{
		Total:   row.Total,
		Read:    row.Read,
		Unread:  row.Total - row.Read,
		Snoozed: row.Snoozed,
	}, nil
}

// ListUserAlerts returns every non-archived alert targeting the user joined
// with the user's state. State is nil for pairs never materialized; callers
// present defaults without persisting anything.
func (db *DB) ListUserAlerts(ctx context.Context, userID models.UserID) ([]*models.UserAlert, error) {
	var rows []userAlertRow
	uid := int64(userID)
	if err := db.readDB.SelectContext(ctx, &rows, selectUserAlertsQuery, uid, uid); err != nil {
		return nil, fmt.Errorf("failed to list user alerts: %w", err)
	}

	userAlerts := make([]*models.UserAlert, 0, len(rows))
	for _, row := range rows {
		alert, err := row.alertRow.toModel()
		if err != nil {
			return nil, err
		}
		ua := &models.UserAlert{Alert: alert}
		if row.ReadState.Valid {
			ua.State = &models.UserAlertState{
				UserID:         userID,
				AlertID:        alert.ID,
				Read:           models.ReadState(row.ReadState.String),
				ReadAt:         nullableUnixTime(row.ReadAt),
				SnoozedUntil:   nullableUnixTime(row.SnoozedUntil),
				LastNotifiedAt: nullableUnixTime(row.LastNotifiedAt),
				CreatedAt:      unixTime(row.StateCreatedAt.Int64),
				UpdatedAt:      unixTime(row.StateUpdatedAt.Int64),
			}
		}
		userAlerts = append(userAlerts, ua)
	}
	return userAlerts, nil
}
