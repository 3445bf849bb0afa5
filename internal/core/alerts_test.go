package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

func TestCreateAlertValidation(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	user := mustCreateUser(t, db, "admin@example.com", "UTC", now)

	valid := func() *models.CreateAlertRequest {
		return &models.CreateAlertRequest{
			Title:      "Maintenance window",
			Message:    "The API will be briefly unavailable.",
			Severity:   models.AlertSeverityInfo,
			CreatedBy:  user.ID,
			Visibility: models.Visibility{Kind: models.VisibilityOrganization},
		}
	}

	past := now.Add(-time.Hour)
	tests := []struct {
		name   string
		mutate func(*models.CreateAlertRequest)
	}{
		{"empty title", func(r *models.CreateAlertRequest) { r.Title = "  " }},
		{"empty message", func(r *models.CreateAlertRequest) { r.Message = "" }},
		{"unknown severity", func(r *models.CreateAlertRequest) { r.Severity = "panic" }},
		{"unknown creator", func(r *models.CreateAlertRequest) { r.CreatedBy = 9999 }},
		{"unknown visibility kind", func(r *models.CreateAlertRequest) { r.Visibility.Kind = "everyone" }},
		{"expires before start", func(r *models.CreateAlertRequest) { r.ExpiresAt = &past }},
		{"negative interval", func(r *models.CreateAlertRequest) { r.ReminderInterval = -time.Hour }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			_, err := CreateAlert(context.Background(), db, nil, discardLogger(), req, models.DefaultReminderInterval, now)
			if !errors.Is(err, ErrInvalidAlertPayload) {
				t.Errorf("CreateAlert() error = %v, want ErrInvalidAlertPayload", err)
			}
		})
	}
}

func TestCreateAlertDefaultsInterval(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	user := mustCreateUser(t, db, "admin@example.com", "UTC", now)

	alert := mustCreateAlert(t, db, &models.CreateAlertRequest{
		Title:      "Default interval",
		Message:    "No interval given.",
		Severity:   models.AlertSeverityInfo,
		CreatedBy:  user.ID,
		Visibility: models.Visibility{Kind: models.VisibilityUser, UserIDs: []models.UserID{user.ID}},
	}, now)

	if alert.ReminderInterval != models.DefaultReminderInterval {
		t.Errorf("ReminderInterval = %v, want default %v", alert.ReminderInterval, models.DefaultReminderInterval)
	}
	if alert.Status != models.AlertStatusActive {
		t.Errorf("Status = %v, want active", alert.Status)
	}
	if !alert.StartAt.Equal(now) {
		t.Errorf("StartAt = %v, want creation instant %v", alert.StartAt, now)
	}
}

func TestCreateAlertSnapshotsOrganizationAudience(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	u1 := mustCreateUser(t, db, "u1@example.com", "UTC", now)
	u2 := mustCreateUser(t, db, "u2@example.com", "UTC", now)

	alert := mustCreateAlert(t, db, &models.CreateAlertRequest{
		Title:      "All hands",
		Message:    "Company meeting on Friday.",
		Severity:   models.AlertSeverityInfo,
		CreatedBy:  u1.ID,
		Visibility: models.Visibility{Kind: models.VisibilityOrganization},
	}, now)

	// A user joining after creation must not enter the audience.
	late := mustCreateUser(t, db, "late@example.com", "UTC", now.Add(time.Hour))

	targets, err := db.ListAlertTargets(ctx, alert.ID)
	if err != nil {
		t.Fatalf("ListAlertTargets() error = %v", err)
	}
	set := userIDs(targets)
	if len(set) != 2 || !set[u1.ID] || !set[u2.ID] {
		t.Errorf("targets = %v, want exactly {%d, %d}", targets, u1.ID, u2.ID)
	}
	if set[late.ID] {
		t.Errorf("late joiner %d entered the frozen audience snapshot", late.ID)
	}
}

func TestUpdateAlertPartialPatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	user := mustCreateUser(t, db, "admin@example.com", "UTC", now)

	alert := mustCreateAlert(t, db, &models.CreateAlertRequest{
		Title:      "Original title",
		Message:    "Original message.",
		Severity:   models.AlertSeverityInfo,
		CreatedBy:  user.ID,
		Visibility: models.Visibility{Kind: models.VisibilityUser, UserIDs: []models.UserID{user.ID}},
	}, now)

	newSeverity := models.AlertSeverityCritical
	updated, err := UpdateAlert(ctx, db, discardLogger(), alert.ID, &models.UpdateAlertRequest{
		Severity: &newSeverity,
	}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("UpdateAlert() error = %v", err)
	}
	if updated.Severity != models.AlertSeverityCritical {
		t.Errorf("Severity = %v, want critical", updated.Severity)
	}
	if updated.Title != "Original title" || updated.Message != "Original message." {
		t.Errorf("unrelated fields changed: title=%q message=%q", updated.Title, updated.Message)
	}
	if !updated.CreatedAt.Equal(alert.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", alert.CreatedAt, updated.CreatedAt)
	}

	stored, err := GetAlert(ctx, db, discardLogger(), alert.ID)
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if stored.Severity != models.AlertSeverityCritical {
		t.Errorf("stored severity = %v, want critical", stored.Severity)
	}
}

func TestUpdateAlertUnknownID(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	title := "whatever"
	_, err := UpdateAlert(context.Background(), db, discardLogger(), 404, &models.UpdateAlertRequest{Title: &title}, now)
	if !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("UpdateAlert() error = %v, want ErrAlertNotFound", err)
	}
}

func TestArchiveAlertIsTerminalAndIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	log := discardLogger()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	user := mustCreateUser(t, db, "admin@example.com", "UTC", now)

	alert := mustCreateAlert(t, db, &models.CreateAlertRequest{
		Title:      "Retired runbook",
		Message:    "No longer relevant.",
		Severity:   models.AlertSeverityInfo,
		CreatedBy:  user.ID,
		Visibility: models.Visibility{Kind: models.VisibilityUser, UserIDs: []models.UserID{user.ID}},
	}, now)

	archived, err := ArchiveAlert(ctx, db, log, alert.ID, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("ArchiveAlert() error = %v", err)
	}
	if archived.Status != models.AlertStatusArchived {
		t.Fatalf("Status = %v, want archived", archived.Status)
	}

	// Archiving again is a no-op success, not an error.
	again, err := ArchiveAlert(ctx, db, log, alert.ID, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("ArchiveAlert() second call error = %v", err)
	}
	if !again.UpdatedAt.Equal(archived.UpdatedAt) {
		t.Errorf("second archive mutated UpdatedAt: %v != %v", again.UpdatedAt, archived.UpdatedAt)
	}

	title := "new title"
	if _, err := UpdateAlert(ctx, db, log, alert.ID, &models.UpdateAlertRequest{Title: &title}, now.Add(3*time.Minute)); !errors.Is(err, ErrAlertArchived) {
		t.Errorf("UpdateAlert() on archived alert error = %v, want ErrAlertArchived", err)
	}
}

func TestListAlertsFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	log := discardLogger()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	user := mustCreateUser(t, db, "admin@example.com", "UTC", now)

	warn := mustCreateAlert(t, db, &models.CreateAlertRequest{
		Title:      "Disk almost full",
		Message:    "Volume /data above 90%.",
		Severity:   models.AlertSeverityWarning,
		CreatedBy:  user.ID,
		Visibility: models.Visibility{Kind: models.VisibilityOrganization},
	}, now)
	crit := mustCreateAlert(t, db, &models.CreateAlertRequest{
		Title:      "Primary database down",
		Message:    "Failover in progress.",
		Severity:   models.AlertSeverityCritical,
		CreatedBy:  user.ID,
		Visibility: models.Visibility{Kind: models.VisibilityUser, UserIDs: []models.UserID{user.ID}},
	}, now.Add(time.Minute))
	if _, err := ArchiveAlert(ctx, db, log, warn.ID, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("ArchiveAlert() error = %v", err)
	}

	t.Run("by severity", func(t *testing.T) {
		alerts, err := ListAlerts(ctx, db, log, models.AlertFilter{Severity: models.AlertSeverityCritical})
		if err != nil {
			t.Fatalf("ListAlerts() error = %v", err)
		}
		if len(alerts) != 1 || alerts[0].ID != crit.ID {
			t.Errorf("ListAlerts(severity=critical) = %v, want just alert %d", alerts, crit.ID)
		}
	})

	t.Run("by status", func(t *testing.T) {
		alerts, err := ListAlerts(ctx, db, log, models.AlertFilter{Status: models.AlertStatusArchived})
		if err != nil {
			t.Fatalf("ListAlerts() error = %v", err)
		}
		if len(alerts) != 1 || alerts[0].ID != warn.ID {
			t.Errorf("ListAlerts(status=archived) = %v, want just alert %d", alerts, warn.ID)
		}
	})

	t.Run("by expression", func(t *testing.T) {
		alerts, err := ListAlerts(ctx, db, log, models.AlertFilter{Expr: `severity=critical or title~"disk"`})
		if err != nil {
			t.Fatalf("ListAlerts() error = %v", err)
		}
		if len(alerts) != 2 {
			t.Errorf("ListAlerts(expr) returned %d alerts, want 2", len(alerts))
		}
	})

	t.Run("creation order", func(t *testing.T) {
		alerts, err := ListAlerts(ctx, db, log, models.AlertFilter{})
		if err != nil {
			t.Fatalf("ListAlerts() error = %v", err)
		}
		if len(alerts) != 2 || alerts[0].ID != warn.ID || alerts[1].ID != crit.ID {
			t.Errorf("ListAlerts() order = %v, want creation order [%d %d]", alerts, warn.ID, crit.ID)
		}
	})

	t.Run("invalid expression", func(t *testing.T) {
		if _, err := ListAlerts(ctx, db, log, models.AlertFilter{Expr: `severity=`}); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("ListAlerts(bad expr) error = %v, want ErrInvalidFilter", err)
		}
	})
}
