package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dikshakatiyar/alerting-system/internal/alertql"
	"github.com/dikshakatiyar/alerting-system/internal/metrics"
	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

var (
	// ErrAlertNotFound is returned when an alert cannot be located, or when
	// a user acts on an alert outside their resolved audience.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrInvalidAlertPayload indicates the request payload failed validation.
	ErrInvalidAlertPayload = errors.New("invalid alert payload")
	// ErrAlertArchived indicates a mutation on an archived alert. Archiving
	// is terminal, so these are rejected rather than silently ignored.
	ErrAlertArchived = errors.New("alert is archived")
	// ErrInvalidFilter indicates a malformed listing filter expression.
	ErrInvalidFilter = errors.New("invalid filter expression")
)

// Dispatcher fans a notification out to every configured channel for a set
// of target users. Implementations are best effort and never return errors.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *models.Alert, targets []models.UserID, kind models.NotificationKind)
}

var validSeverities = map[models.AlertSeverity]struct{}{
	models.AlertSeverityInfo:     {},
	models.AlertSeverityWarning:  {},
	models.AlertSeverityCritical: {},
}

func validateCreateAlertRequest(req *models.CreateAlertRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if _, ok := validSeverities[req.Severity]; !ok {
		return fmt.Errorf("invalid severity %q", req.Severity)
	}
	if req.CreatedBy <= 0 {
		return fmt.Errorf("created_by is required")
	}
	if err := validateVisibility(req.Visibility); err != nil {
		return err
	}
	if req.ReminderInterval < 0 {
		return fmt.Errorf("reminder_interval must not be negative")
	}
	return nil
}

// CreateAlert validates the request, resolves the audience, persists the
// alert with its target snapshot, and dispatches the initial notification to
// every resolved user. The snapshot is frozen at creation time; later
// directory changes do not retarget existing alerts.
func CreateAlert(ctx context.Context, db *sqlite.DB, dispatcher Dispatcher, log *slog.Logger, req *models.CreateAlertRequest, defaultInterval time.Duration, now time.Time) (*models.Alert, error) {
	if req == nil {
		return nil, ErrInvalidAlertPayload
	}
	if err := validateCreateAlertRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAlertPayload, err)
	}

	if _, err := db.GetUser(ctx, req.CreatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: unknown created_by user %d", ErrInvalidAlertPayload, req.CreatedBy)
		}
		return nil, fmt.Errorf("failed to verify alert creator: %w", err)
	}

	startAt := now
	if req.StartAt != nil {
		startAt = req.StartAt.UTC()
	}
	interval := req.ReminderInterval
	if interval == 0 {
		interval = defaultInterval
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(startAt) {
		return nil, fmt.Errorf("%w: expires_at must be after start_at", ErrInvalidAlertPayload)
	}

	alert := &models.Alert{
		Title:            strings.TrimSpace(req.Title),
		Message:          strings.TrimSpace(req.Message),
		Severity:         req.Severity,
		CreatedBy:        req.CreatedBy,
		Visibility:       req.Visibility,
		StartAt:          startAt,
		ExpiresAt:        req.ExpiresAt,
		RemindersEnabled: req.RemindersEnabled,
		ReminderInterval: interval,
		Status:           models.AlertStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	targets, err := ResolveVisibility(ctx, db, log, alert.Visibility)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alert visibility: %w", err)
	}

	if err := db.CreateAlert(ctx, alert, targets); err != nil {
		log.Error("failed to create alert", "title", alert.Title, "error", err)
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	metrics.RecordAlertCreated(string(alert.Severity))
	if len(targets) > 0 && dispatcher != nil {
		dispatcher.Dispatch(ctx, alert, targets, models.NotificationKindInitial)
	}

	log.Info("alert created", "alert_id", alert.ID, "severity", alert.Severity, "visibility", alert.Visibility.Kind, "targets", len(targets))
	return alert, nil
}

// GetAlert retrieves a single alert by ID.
func GetAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID) (*models.Alert, error) {
	alert, err := db.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to get alert", "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// UpdateAlert applies a partial update to a live alert. Updating an archived
// alert is rejected. When the visibility definition changes, the audience is
// re-resolved and the target snapshot replaced; users that drop out keep
// their state rows as history.
func UpdateAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID, req *models.UpdateAlertRequest, now time.Time) (*models.Alert, error) {
	if req == nil {
		return nil, ErrInvalidAlertPayload
	}

	existing, err := GetAlert(ctx, db, log, alertID)
	if err != nil {
		return nil, err
	}
	if existing.Status == models.AlertStatusArchived {
		return nil, ErrAlertArchived
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidAlertPayload)
		}
		existing.Title = strings.TrimSpace(*req.Title)
	}
	if req.Message != nil {
		if strings.TrimSpace(*req.Message) == "" {
			return nil, fmt.Errorf("%w: message is required", ErrInvalidAlertPayload)
		}
		existing.Message = strings.TrimSpace(*req.Message)
	}
	if req.Severity != nil {
		if _, ok := validSeverities[*req.Severity]; !ok {
			return nil, fmt.Errorf("%w: invalid severity %q", ErrInvalidAlertPayload, *req.Severity)
		}
		existing.Severity = *req.Severity
	}
	visibilityChanged := false
	if req.Visibility != nil {
		if err := validateVisibility(*req.Visibility); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAlertPayload, err)
		}
		existing.Visibility = *req.Visibility
		visibilityChanged = true
	}
	if req.StartAt != nil {
		existing.StartAt = req.StartAt.UTC()
	}
	if req.ExpiresAt != nil {
		existing.ExpiresAt = req.ExpiresAt
	}
	if existing.ExpiresAt != nil && !existing.ExpiresAt.After(existing.StartAt) {
		return nil, fmt.Errorf("%w: expires_at must be after start_at", ErrInvalidAlertPayload)
	}
	if req.RemindersEnabled != nil {
		existing.RemindersEnabled = *req.RemindersEnabled
	}
	if req.ReminderInterval != nil {
		if *req.ReminderInterval <= 0 {
			return nil, fmt.Errorf("%w: reminder_interval must be greater than zero", ErrInvalidAlertPayload)
		}
		existing.ReminderInterval = *req.ReminderInterval
	}
	existing.UpdatedAt = now

	if visibilityChanged {
		targets, err := ResolveVisibility(ctx, db, log, existing.Visibility)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve alert visibility: %w", err)
		}
		if err := db.UpdateAlertWithTargets(ctx, existing, targets); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrAlertNotFound
			}
			log.Error("failed to update alert", "alert_id", alertID, "error", err)
			return nil, fmt.Errorf("failed to update alert: %w", err)
		}
		log.Info("alert updated", "alert_id", alertID, "visibility", existing.Visibility.Kind, "targets", len(targets))
		return existing, nil
	}

	if err := db.UpdateAlert(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to update alert", "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	log.Info("alert updated", "alert_id", alertID)
	return existing, nil
}

// ArchiveAlert transitions an alert to its terminal state. Archiving an
// already-archived alert is a no-op success.
func ArchiveAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID, now time.Time) (*models.Alert, error) {
	existing, err := GetAlert(ctx, db, log, alertID)
	if err != nil {
		return nil, err
	}
	if existing.Status == models.AlertStatusArchived {
		log.Debug("alert already archived", "alert_id", alertID)
		return existing, nil
	}

	existing.Status = models.AlertStatusArchived
	existing.UpdatedAt = now
	if err := db.UpdateAlert(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to archive alert", "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to archive alert: %w", err)
	}
	log.Info("alert archived", "alert_id", alertID)
	return existing, nil
}

// ListAlerts returns alerts matching the filter. The optional filter
// expression is compiled into an extra WHERE clause before the query runs.
func ListAlerts(ctx context.Context, db *sqlite.DB, log *slog.Logger, filter models.AlertFilter) ([]*models.Alert, error) {
	if filter.Severity != "" {
		if _, ok := validSeverities[filter.Severity]; !ok {
			return nil, fmt.Errorf("%w: invalid severity %q", ErrInvalidFilter, filter.Severity)
		}
	}
	if filter.Status != "" && filter.Status != models.AlertStatusActive && filter.Status != models.AlertStatusArchived {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidFilter, filter.Status)
	}
	if filter.VisibilityKind != "" {
		if _, ok := validVisibilityKinds[filter.VisibilityKind]; !ok {
			return nil, fmt.Errorf("%w: invalid visibility kind %q", ErrInvalidFilter, filter.VisibilityKind)
		}
	}

	var cond sqlite.AlertCondition
	if strings.TrimSpace(filter.Expr) != "" {
		query, err := alertql.Parse(filter.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFilter, err)
		}
		cond = query
	}

	alerts, err := db.ListAlerts(ctx, filter, cond)
	if err != nil {
		log.Error("failed to list alerts", "error", err)
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}
