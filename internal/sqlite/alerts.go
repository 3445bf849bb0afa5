package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

const (
	insertAlertQuery = `INSERT INTO alerts (
    title,
    message,
    severity,
    created_by,
    visibility_kind,
    visibility_ids,
    start_at,
    expires_at,
    reminders_enabled,
    reminder_interval_seconds,
    status,
    created_at,
    updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

	updateAlertQuery = `UPDATE alerts
SET title = ?,
    message = ?,
    severity = ?,
    visibility_kind = ?,
    visibility_ids = ?,
    start_at = ?,
    expires_at = ?,
    reminders_enabled = ?,
    reminder_interval_seconds = ?,
    status = ?,
    updated_at = ?
WHERE id = ?`

	selectAlertBase = `SELECT
    id,
    title,
    message,
    severity,
    created_by,
    visibility_kind,
    visibility_ids,
    start_at,
    expires_at,
    reminders_enabled,
    reminder_interval_seconds,
    status,
    created_at,
    updated_at
FROM alerts`

	listReminderAlertsQuery = selectAlertBase + `
WHERE status = 'active'
  AND reminders_enabled = 1
  AND (expires_at IS NULL OR expires_at > ?)
ORDER BY id`

	insertAlertTargetQuery = `INSERT INTO alert_targets (alert_id, user_id, created_at)
VALUES (?, ?, ?)`

	deleteAlertTargetsQuery = `DELETE FROM alert_targets WHERE alert_id = ?`

	listAlertTargetsQuery = `SELECT user_id FROM alert_targets WHERE alert_id = ? ORDER BY user_id`

	alertTargetExistsQuery = `SELECT EXISTS (
    SELECT 1 FROM alert_targets WHERE alert_id = ? AND user_id = ?
)`

	// Rows created during fan-out carry the initial notification stamp so a
	// reminder pass never re-notifies a user the creation already reached.
	insertInitialStateQuery = `INSERT INTO user_alert_states (
    user_id, alert_id, read_state, last_notified_at, created_at, updated_at
) VALUES (?, ?, 'unread', ?, ?, ?)`

	insertStateIfAbsentQuery = `INSERT INTO user_alert_states (
    user_id, alert_id, read_state, created_at, updated_at
) VALUES (?, ?, 'unread', ?, ?)
ON CONFLICT (user_id, alert_id) DO NOTHING`

	countAlertsQuery = `SELECT
    COUNT(*) AS total,
    COALESCE(SUM(CASE WHEN status = 'archived' THEN 1 ELSE 0 END), 0) AS archived,
    COALESCE(SUM(CASE WHEN status = 'active' AND (expires_at IS NULL OR expires_at > ?) THEN 1 ELSE 0 END), 0) AS active,
    COALESCE(SUM(CASE WHEN status = 'active' AND expires_at IS NOT NULL AND expires_at <= ? THEN 1 ELSE 0 END), 0) AS expired
FROM alerts`

	countAlertsBySeverityQuery = `SELECT severity, COUNT(*) AS count FROM alerts GROUP BY severity`
)

// AlertCondition contributes an additional WHERE clause to an alert listing.
// Implementations receive the builder so bound arguments stay positional.
type AlertCondition interface {
	Apply(sb *sqlbuilder.SelectBuilder) (string, error)
}

type alertRow struct {
	ID                      int64         `db:"id"`
	Title                   string        `db:"title"`
	Message                 string        `db:"message"`
	Severity                string        `db:"severity"`
	CreatedBy               int64         `db:"created_by"`
	VisibilityKind          string        `db:"visibility_kind"`
	VisibilityIDs           string        `db:"visibility_ids"`
	StartAt                 int64         `db:"start_at"`
	ExpiresAt               sql.NullInt64 `db:"expires_at"`
	RemindersEnabled        int64         `db:"reminders_enabled"`
	ReminderIntervalSeconds int64         `db:"reminder_interval_seconds"`
	Status                  string        `db:"status"`
	CreatedAt               int64         `db:"created_at"`
	UpdatedAt               int64         `db:"updated_at"`
}

func (r alertRow) toModel() (*models.Alert, error) {
	visibility := models.Visibility{Kind: models.VisibilityKind(r.VisibilityKind)}
	switch visibility.Kind {
	case models.VisibilityTeam:
		if err := json.Unmarshal([]byte(r.VisibilityIDs), &visibility.TeamIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal visibility team ids: %w", err)
		}
	case models.VisibilityUser:
		if err := json.Unmarshal([]byte(r.VisibilityIDs), &visibility.UserIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal visibility user ids: %w", err)
		}
	}

	return &models.Alert{
		ID:               models.AlertID(r.ID),
		Title:            r.Title,
		Message:          r.Message,
		Severity:         models.AlertSeverity(r.Severity),
		CreatedBy:        models.UserID(r.CreatedBy),
		Visibility:       visibility,
		StartAt:          unixTime(r.StartAt),
		ExpiresAt:        nullableUnixTime(r.ExpiresAt),
		RemindersEnabled: r.RemindersEnabled == 1,
		ReminderInterval: time.Duration(r.ReminderIntervalSeconds) * time.Second,
		Status:           models.AlertStatus(r.Status),
		CreatedAt:        unixTime(r.CreatedAt),
		UpdatedAt:        unixTime(r.UpdatedAt),
	}, nil
}

func marshalVisibilityIDs(v models.Visibility) (string, error) {
	var (
		data []byte
		err  error
	)
	switch v.Kind {
	case models.VisibilityTeam:
		data, err = json.Marshal(v.TeamIDs)
	case models.VisibilityUser:
		data, err = json.Marshal(v.UserIDs)
	default:
		return "[]", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal visibility ids: %w", err)
	}
	return string(data), nil
}

// CreateAlert inserts a new alert together with its resolved target snapshot
// and the per-target state rows, all in one transaction. Every target row is
// stamped as notified at creation time because the caller dispatches the
// initial fan-out immediately after commit.
func (db *DB) CreateAlert(ctx context.Context, alert *models.Alert, targets []models.UserID) error {
	if alert == nil {
		return fmt.Errorf("alert payload is required")
	}

	idsJSON, err := marshalVisibilityIDs(alert.Visibility)
	if err != nil {
		return err
	}

	tx, err := db.writeDB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, insertAlertQuery,
		alert.Title,
		alert.Message,
		string(alert.Severity),
		int64(alert.CreatedBy),
		string(alert.Visibility.Kind),
		idsJSON,
		alert.StartAt.Unix(),
		unixArg(alert.ExpiresAt),
		boolToInt(alert.RemindersEnabled),
		int64(alert.ReminderInterval/time.Second),
		string(alert.Status),
		alert.CreatedAt.Unix(),
		alert.UpdatedAt.Unix(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	now := alert.CreatedAt.Unix()
	for _, userID := range targets {
		if _, err := tx.ExecContext(ctx, insertAlertTargetQuery, id, int64(userID), now); err != nil {
			return fmt.Errorf("failed to insert alert target: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertInitialStateQuery, int64(userID), id, now, now, now); err != nil {
			return fmt.Errorf("failed to insert user alert state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alert creation: %w", err)
	}
	alert.ID = models.AlertID(id)
	return nil
}

// UpdateAlert persists changes to an existing alert without touching its
// target snapshot.
func (db *DB) UpdateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert payload is required")
	}

	idsJSON, err := marshalVisibilityIDs(alert.Visibility)
	if err != nil {
		return err
	}

	res, err := db.writeDB.ExecContext(ctx, updateAlertQuery, alertUpdateArgs(alert, idsJSON)...)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateAlertWithTargets persists alert changes and replaces the resolved
// target snapshot in the same transaction. State rows for newly added
// targets are created unread and unstamped so the next reminder pass picks
// them up; rows for removed targets are kept as history.
func (db *DB) UpdateAlertWithTargets(ctx context.Context, alert *models.Alert, targets []models.UserID) error {
	if alert == nil {
		return fmt.Errorf("alert payload is required")
	}

	idsJSON, err := marshalVisibilityIDs(alert.Visibility)
	if err != nil {
		return err
	}

	tx, err := db.writeDB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, updateAlertQuery, alertUpdateArgs(alert, idsJSON)...)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, deleteAlertTargetsQuery, int64(alert.ID)); err != nil {
		return fmt.Errorf("failed to clear alert targets: %w", err)
	}

	now := alert.UpdatedAt.Unix()
	for _, userID := range targets {
		if _, err := tx.ExecContext(ctx, insertAlertTargetQuery, int64(alert.ID), int64(userID), now); err != nil {
			return fmt.Errorf("failed to insert alert target: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertStateIfAbsentQuery, int64(userID), int64(alert.ID), now, now); err != nil {
			return fmt.Errorf("failed to ensure user alert state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alert update: %w", err)
	}
	return nil
}

func alertUpdateArgs(alert *models.Alert, idsJSON string) []interface{} {
	return []interface{}{
		alert.Title,
		alert.Message,
		string(alert.Severity),
		string(alert.Visibility.Kind),
		idsJSON,
		alert.StartAt.Unix(),
		unixArg(alert.ExpiresAt),
		boolToInt(alert.RemindersEnabled),
		int64(alert.ReminderInterval / time.Second),
		string(alert.Status),
		alert.UpdatedAt.Unix(),
		int64(alert.ID),
	}
}

// GetAlert retrieves an alert by its identifier.
func (db *DB) GetAlert(ctx context.Context, alertID models.AlertID) (*models.Alert, error) {
	var row alertRow
	query := selectAlertBase + " WHERE id = ?"
	if err := db.readDB.GetContext(ctx, &row, query, int64(alertID)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return row.toModel()
}

// ListAlerts returns alerts matching the filter, oldest first. An optional
// condition contributes an extra WHERE clause built against the same
// statement.
func (db *DB) ListAlerts(ctx context.Context, filter models.AlertFilter, cond AlertCondition) ([]*models.Alert, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"id", "title", "message", "severity", "created_by",
		"visibility_kind", "visibility_ids", "start_at", "expires_at",
		"reminders_enabled", "reminder_interval_seconds", "status",
		"created_at", "updated_at",
	)
	sb.From("alerts")

	if filter.Severity != "" {
		sb.Where(sb.Equal("severity", string(filter.Severity)))
	}
	if filter.Status != "" {
		sb.Where(sb.Equal("status", string(filter.Status)))
	}
	if filter.VisibilityKind != "" {
		sb.Where(sb.Equal("visibility_kind", string(filter.VisibilityKind)))
	}
	if cond != nil {
		clause, err := cond.Apply(sb)
		if err != nil {
			return nil, err
		}
		sb.Where(clause)
	}
	sb.OrderBy("id")

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	var rows []alertRow
	if err := db.readDB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alertRowsToModels(rows)
}

// ListReminderAlerts returns active, unexpired alerts with reminders enabled.
// Per-user eligibility is decided later, at claim time.
func (db *DB) ListReminderAlerts(ctx context.Context, now time.Time) ([]*models.Alert, error) {
	var rows []alertRow
	if err := db.readDB.SelectContext(ctx, &rows, listReminderAlertsQuery, now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to list reminder alerts: %w", err)
	}
	return alertRowsToModels(rows)
}

func alertRowsToModels(rows []alertRow) ([]*models.Alert, error) {
	alerts := make([]*models.Alert, 0, len(rows))
	for _, row := range rows {
		alert, err := row.toModel()
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// ListAlertTargets returns the resolved recipient snapshot for an alert.
func (db *DB) ListAlertTargets(ctx context.Context, alertID models.AlertID) ([]models.UserID, error) {
	var ids []int64
	if err := db.readDB.SelectContext(ctx, &ids, listAlertTargetsQuery, int64(alertID)); err != nil {
		return nil, fmt.Errorf("failed to list alert targets: %w", err)
	}
	targets := make([]models.UserID, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, models.UserID(id))
	}
	return targets, nil
}

// IsAlertTarget reports whether a user is part of an alert's resolved
// audience snapshot.
func (db *DB) IsAlertTarget(ctx context.Context, alertID models.AlertID, userID models.UserID) (bool, error) {
	var exists int
	if err := db.readDB.GetContext(ctx, &exists, alertTargetExistsQuery, int64(alertID), int64(userID)); err != nil {
		return false, fmt.Errorf("failed to check alert target: %w", err)
	}
	return exists == 1, nil
}

// CountAlerts aggregates alert totals by lifecycle bucket and severity.
func (db *DB) CountAlerts(ctx context.Context, now time.Time) (*models.AlertCounts, error) {
	var row struct {
		Total    int `db:"total"`
		Archived int `db:"archived"`
		Active   int `db:"active"`
		Expired  int `db:"expired"`
	}
	ts := now.Unix()
	if err := db.readDB.GetContext(ctx, &row, countAlertsQuery, ts, ts); err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}

	counts := &models.AlertCounts{
		Total:      row.Total,
		Active:     row.Active,
		Expired:    row.Expired,
		Archived:   row.Archived,
		BySeverity: make(map[models.AlertSeverity]int),
	}

	var severityRows []struct {
		Severity string `db:"severity"`
		Count    int    `db:"count"`
	}
	if err := db.readDB.SelectContext(ctx, &severityRows, countAlertsBySeverityQuery); err != nil {
		return nil, fmt.Errorf("failed to count alerts by severity: %w", err)
	}
	for _, sr := range severityRows {
		counts.BySeverity[models.AlertSeverity(sr.Severity)] = sr.Count
	}
	return counts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
