package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// ErrAlertInactive indicates an operation that requires a live alert was
// attempted on an archived or expired one.
var ErrAlertInactive = errors.New("alert is archived or expired")

// requireVisibleAlert loads the alert and verifies it targets the user.
// Alerts outside the user's resolved audience surface as not found rather
// than leaking their existence.
func requireVisibleAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID, alertID models.AlertID) (*models.Alert, error) {
	if _, err := requireUser(ctx, db, userID); err != nil {
		return nil, err
	}
	alert, err := GetAlert(ctx, db, log, alertID)
	if err != nil {
		return nil, err
	}
	targeted, err := db.IsAlertTarget(ctx, alertID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check alert audience: %w", err)
	}
	if !targeted {
		return nil, ErrAlertNotFound
	}
	return alert, nil
}

// ListUserAlerts returns every non-archived alert targeting the user, each
// joined with the user's notification state. Pairs that were never touched
// get a default unread state without persisting anything.
func ListUserAlerts(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID) ([]*models.UserAlert, error) {
	if _, err := requireUser(ctx, db, userID); err != nil {
		return nil, err
	}

	userAlerts, err := db.ListUserAlerts(ctx, userID)
	if err != nil {
		log.Error("failed to list user alerts", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list user alerts: %w", err)
	}

	for _, ua := range userAlerts {
		if ua.State == nil {
			ua.State = &models.UserAlertState{
				UserID:    userID,
				AlertID:   ua.Alert.ID,
				Read:      models.ReadStateUnread,
				CreatedAt: ua.Alert.UpdatedAt,
				UpdatedAt: ua.Alert.UpdatedAt,
			}
		}
	}
	return userAlerts, nil
}

// MarkAlertRead marks the alert read for the user. Marking an already-read
// alert again is a no-op that preserves the original read timestamp. Read
// state never feeds reminder eligibility; it is bookkeeping for the user.
func MarkAlertRead(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID, alertID models.AlertID, now time.Time) (*models.UserAlertState, error) {
	if _, err := requireVisibleAlert(ctx, db, log, userID, alertID); err != nil {
		return nil, err
	}

	state, err := db.EnsureUserAlertState(ctx, userID, alertID, now)
	if err != nil {
		log.Error("failed to materialize user alert state", "user_id", userID, "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to load user alert state: %w", err)
	}
	if state.Read == models.ReadStateRead {
		return state, nil
	}

	if err := db.UpdateUserAlertRead(ctx, userID, alertID, models.ReadStateRead, &now, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to mark alert read", "user_id", userID, "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to mark alert read: %w", err)
	}

	state.Read = models.ReadStateRead
	state.ReadAt = &now
	state.UpdatedAt = now
	log.Debug("alert marked read", "user_id", userID, "alert_id", alertID)
	return state, nil
}

// MarkAlertUnread returns the alert to unread for the user, clearing the
// read timestamp. No other state field is touched.
func MarkAlertUnread(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID, alertID models.AlertID, now time.Time) (*models.UserAlertState, error) {
	if _, err := requireVisibleAlert(ctx, db, log, userID, alertID); err != nil {
		return nil, err
	}

	state, err := db.EnsureUserAlertState(ctx, userID, alertID, now)
	if err != nil {
		log.Error("failed to materialize user alert state", "user_id", userID, "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to load user alert state: %w", err)
	}
	if state.Read == models.ReadStateUnread {
		return state, nil
	}

	if err := db.UpdateUserAlertRead(ctx, userID, alertID, models.ReadStateUnread, nil, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to mark alert unread", "user_id", userID, "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to mark alert unread: %w", err)
	}

	state.Read = models.ReadStateUnread
	state.ReadAt = nil
	state.UpdatedAt = now
	log.Debug("alert marked unread", "user_id", userID, "alert_id", alertID)
	return state, nil
}

// SnoozeAlert suppresses reminders for the pair until the first instant of
// the next calendar day in the user's timezone. Snoozing an archived or
// expired alert is rejected. The suppression expires implicitly once the
// clock crosses the stored horizon; no reset job exists.
func SnoozeAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID, alertID models.AlertID, now time.Time) (*models.UserAlertState, error) {
	user, err := requireUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	alert, err := GetAlert(ctx, db, log, alertID)
	if err != nil {
		return nil, err
	}
	targeted, err := db.IsAlertTarget(ctx, alertID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check alert audience: %w", err)
	}
	if !targeted {
		return nil, ErrAlertNotFound
	}
	if !alert.IsActiveAt(now) {
		return nil, ErrAlertInactive
	}

	until := endOfDay(now, user.Timezone, log)

	state, err := db.EnsureUserAlertState(ctx, userID, alertID, now)
	if err != nil {
		log.Error("failed to materialize user alert state", "user_id", userID, "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to load user alert state: %w", err)
	}

	if err := db.UpdateUserAlertSnooze(ctx, userID, alertID, until, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to snooze alert", "user_id", userID, "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to snooze alert: %w", err)
	}

	state.SnoozedUntil = &until
	state.UpdatedAt = now
	log.Debug("alert snoozed", "user_id", userID, "alert_id", alertID, "until", until)
	return state, nil
}

// endOfDay returns the first instant of the day after now in the given
// timezone, in UTC. An unloadable timezone falls back to UTC.
func endOfDay(now time.Time, timezone string, log *slog.Logger) time.Time {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Warn("failed to load user timezone, using UTC", "timezone", timezone, "error", err)
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc).UTC()
}
