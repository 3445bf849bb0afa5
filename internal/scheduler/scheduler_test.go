package scheduler

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/dikshakatiyar/alerting-system/internal/config"
	"github.com/dikshakatiyar/alerting-system/internal/core"
	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(sqlite.Options{
		Logger: discardLogger(),
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "alertd.db")},
	})
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type dispatchCall struct {
	alertID models.AlertID
	kind    models.NotificationKind
	targets []models.UserID
}

type captureDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (c *captureDispatcher) Dispatch(_ context.Context, alert *models.Alert, targets []models.UserID, kind models.NotificationKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, dispatchCall{
		alertID: alert.ID,
		kind:    kind,
		targets: append([]models.UserID(nil), targets...),
	})
}

func (c *captureDispatcher) snapshot() []dispatchCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]dispatchCall(nil), c.calls...)
}

func createUser(t *testing.T, db *sqlite.DB, email, timezone string, now time.Time) *models.User {
	t.Helper()
	user, err := core.CreateUser(context.Background(), db, discardLogger(), &models.CreateUserRequest{
		Email:    email,
		FullName: "User " + email,
		Timezone: timezone,
	}, now)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func createAlert(t *testing.T, db *sqlite.DB, dispatcher core.Dispatcher, req *models.CreateAlertRequest, now time.Time) *models.Alert {
	t.Helper()
	alert, err := core.CreateAlert(context.Background(), db, dispatcher, discardLogger(), req, models.DefaultReminderInterval, now)
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}
	return alert
}

func newScheduler(db *sqlite.DB, dispatcher Dispatcher, mock *clock.Mock) *Scheduler {
	return New(Options{
		Config:     config.RemindersConfig{DefaultInterval: models.DefaultReminderInterval, DispatchTimeout: time.Second},
		DB:         db,
		Dispatcher: dispatcher,
		Clock:      mock,
		Logger:     discardLogger(),
	})
}

func runTick(t *testing.T, s *Scheduler, mock *clock.Mock, at time.Time) *models.TickReport {
	t.Helper()
	mock.Set(at)
	report, err := s.RunTick(context.Background())
	if err != nil {
		t.Fatalf("RunTick() error = %v", err)
	}
	return report
}

func TestRunTickClaimsOncePerInterval(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	user := createUser(t, db, "u1@example.com", "UTC", base)

	dispatcher := &captureDispatcher{}
	createAlert(t, db, dispatcher, &models.CreateAlertRequest{
		Title:            "Disk space low",
		Message:          "Volume /data is above 90%.",
		Severity:         models.AlertSeverityWarning,
		CreatedBy:        user.ID,
		Visibility:       models.Visibility{Kind: models.VisibilityUser, UserIDs: []models.UserID{user.ID}},
		RemindersEnabled: true,
		ReminderInterval: 2 * time.Hour,
	}, base)

	mock := clock.NewMock()
	s := newScheduler(db, dispatcher, mock)

	// Creation already notified the user, so a pass inside the interval
	// claims nothing.
	report := runTick(t, s, mock, base.Add(time.Hour))
	if report.Dispatched != 0 {
		t.Errorf("RunTick() inside interval dispatched = %d, want 0", report.Dispatched)
	}

	report = runTick(t, s, mock, base.Add(2*time.Hour))
	if report.Dispatched != 1 {
		t.Errorf("RunTick() after interval dispatched = %d, want 1", report.Dispatched)
	}

	// Re-running at the same instant must be a no-op.
	report = runTick(t, s, mock, base.Add(2*time.Hour))
	if report.Dispatched != 0 {
		t.Errorf("RunTick() repeated at same instant dispatched = %d, want 0", report.Dispatched)
	}

	report = runTick(t, s, mock, base.Add(4*time.Hour))
	if report.Dispatched != 1 {
		t.Errorf("RunTick() one interval later dispatched = %d, want 1", report.Dispatched)
	}
}

func TestRunTickSkipsArchivedAndExpiredAlerts(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	user := createUser(t, db, "u1@example.com", "UTC", base)

	dispatcher := &captureDispatcher{}
	expiry := base.Add(30 * time.Minute)
	expiring := createAlert(t, db, dispatcher, &models.CreateAlertRequest{
		Title:            "Expiring",
		Message:          "Short lived.",
		Severity:         models.AlertSeverityInfo,
		CreatedBy:        user.ID,
		Visibility:       models.Visibility{Kind: models.VisibilityUser, UserIDs: []models.UserID{user.ID}},
		ExpiresAt:        &expiry,
		RemindersEnabled: true,
		ReminderInterval: time.Minute,
	}, base)
	archived := createAlert(t, db, dispatcher, &models.CreateAlertRequest{
		Title:            "Archived",
		Message:          "Will be archived.",
		Severity:         models.AlertSeverityInfo,
		CreatedBy:        user.ID,
		Visibility:       models.Visibility{Kind: models.VisibilityUser, UserIDs: []models.UserID{user.ID}},
		RemindersEnabled: true,
		ReminderInterval: time.Minute,
	}, base)
	if _, err := core.ArchiveAlert(context.Background(), db, discardLogger(), archived.ID, base.Add(time.Minute)); err != nil {
		t.Fatalf("ArchiveAlert() error = %v", err)
	}

	mock := clock.NewMock()
	s := newScheduler(db, dispatcher, mock)

	report := runTick(t, s, mock, base.Add(time.Hour))
	if report.ScannedAlerts != 0 {
		t.Errorf("RunTick() scanned = %d, want 0 (alert %d expired, alert %d archived)", report.ScannedAlerts, expiring.ID, archived.ID)
	}
	if report.Dispatched != 0 {
		t.Errorf("RunTick() dispatched = %d, want 0", report.Dispatched)
	}
}

func TestRunTickMaterializesStatesForNewTargets(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	u1 := createUser(t, db, "u1@example.com", "UTC", base)
	u2 := createUser(t, db, "u2@example.com", "UTC", base)

	dispatcher := &captureDispatcher{}
	alert := createAlert(t, db, dispatcher, &models.CreateAlertRequest{
		Title:            "Rotation change",
		Message:          "On-call rotation updated.",
		Severity:         models.AlertSeverityInfo,
		CreatedBy:        u1.ID,
		Visibility:       models.Visibility{Kind: models.VisibilityUser, UserIDs: []models.UserID{u1.ID}},
		RemindersEnabled: true,
		ReminderInterval: 2 * time.Hour,
	}, base)

	// Widen visibility to include u2. The new pair has never been
	// notified, so the very next pass claims it.
	newVisibility := models.Visibility{Kind: models.VisibilityUser, UserIDs: []models.UserID{u1.ID, u2.ID}}
	if _, err := core.UpdateAlert(context.Background(), db, discardLogger(), alert.ID, &models.UpdateAlertRequest{
		Visibility: &newVisibility,
	}, base.Add(10*time.Minute)); err != nil {
		t.Fatalf("UpdateAlert() error = %v", err)
	}

	mock := clock.NewMock()
	s := newScheduler(db, dispatcher, mock)

	report := runTick(t, s, mock, base.Add(30*time.Minute))
	if report.Dispatched != 1 {
		t.Fatalf("RunTick() dispatched = %d, want 1", report.Dispatched)
	}
	calls := dispatcher.snapshot()
	last := calls[len(calls)-1]
	if last.kind != models.NotificationKindReminder {
		t.Errorf("dispatch kind = %q, want %q", last.kind, models.NotificationKindReminder)
	}
	if len(last.targets) != 1 || last.targets[0] != u2.ID {
		t.Errorf("dispatch targets = %v, want [%d]", last.targets, u2.ID)
	}
}

// TestReminderFlow drives the full lifecycle: creation fan-out, interval
// reminders, read having no effect on eligibility, snooze suppressing
// until the user's next local midnight, and analytics reflecting it all.
func TestReminderFlow(t *testing.T) {
	db := newTestDB(t)
	log := discardLogger()
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	u1 := createUser(t, db, "u1@example.com", "America/New_York", base)
	u2 := createUser(t, db, "u2@example.com", "UTC", base)
	team, err := core.CreateTeam(ctx, db, log, &models.CreateTeamRequest{Name: "platform"}, base)
	if err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}
	for _, id := range []models.UserID{u1.ID, u2.ID} {
		if err := core.AddTeamMember(ctx, db, log, team.ID, id, base); err != nil {
			t.Fatalf("AddTeamMember() error = %v", err)
		}
	}

	dispatcher := &captureDispatcher{}
	alert := createAlert(t, db, dispatcher, &models.CreateAlertRequest{
		Title:            "Database failover drill",
		Message:          "Failover drill runs today.",
		Severity:         models.AlertSeverityWarning,
		CreatedBy:        u1.ID,
		Visibility:       models.Visibility{Kind: models.VisibilityTeam, TeamIDs: []models.TeamID{team.ID}},
		RemindersEnabled: true,
		ReminderInterval: 2 * time.Hour,
	}, base)

	calls := dispatcher.snapshot()
	if len(calls) != 1 || calls[0].kind != models.NotificationKindInitial {
		t.Fatalf("creation dispatched %v, want one initial notification", calls)
	}
	if len(calls[0].targets) != 2 {
		t.Fatalf("initial notification targets = %v, want both team members", calls[0].targets)
	}

	mock := clock.NewMock()
	s := newScheduler(db, dispatcher, mock)

	// Three hours in, one interval has elapsed for both members.
	report := runTick(t, s, mock, base.Add(3*time.Hour))
	if report.Dispatched != 2 {
		t.Errorf("tick at +3h dispatched = %d, want 2", report.Dispatched)
	}

	if _, err := core.MarkAlertRead(ctx, db, log, u1.ID, alert.ID, base.Add(4*time.Hour)); err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}

	// Reading an alert does not affect reminder eligibility, so both
	// members are re-notified once the next interval elapses.
	report = runTick(t, s, mock, base.Add(5*time.Hour))
	if report.Dispatched != 2 {
		t.Errorf("tick at +5h dispatched = %d, want 2 (read state must not suppress reminders)", report.Dispatched)
	}

	snoozed, err := core.SnoozeAlert(ctx, db, log, u2.ID, alert.ID, base.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("SnoozeAlert() error = %v", err)
	}
	wantUntil := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	if snoozed.SnoozedUntil == nil || !snoozed.SnoozedUntil.Equal(wantUntil) {
		t.Fatalf("SnoozeAlert() until = %v, want %v", snoozed.SnoozedUntil, wantUntil)
	}

	// One hour later nobody is eligible: u2 is snoozed and u1 is inside
	// the interval.
	report = runTick(t, s, mock, base.Add(6*time.Hour))
	if report.Dispatched != 0 {
		t.Errorf("tick at +6h dispatched = %d, want 0", report.Dispatched)
	}
	if report.EvaluatedPairs != 2 {
		t.Errorf("tick at +6h evaluated pairs = %d, want 2", report.EvaluatedPairs)
	}

	analytics, err := core.BuildAnalyticsReport(ctx, db, log, base.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("BuildAnalyticsReport() error = %v", err)
	}
	if analytics.Alerts.Total != 1 || analytics.Alerts.Active != 1 {
		t.Errorf("analytics alerts = %+v, want 1 total / 1 active", analytics.Alerts)
	}
	if analytics.States.Read != 1 || analytics.States.Unread != 1 {
		t.Errorf("analytics states = %+v, want 1 read / 1 unread", analytics.States)
	}
	if analytics.States.Snoozed != 1 {
		t.Errorf("analytics snoozed = %d, want 1", analytics.States.Snoozed)
	}

	// After u2's local midnight the snooze lapses on its own and both
	// members are overdue.
	report = runTick(t, s, mock, time.Date(2024, 3, 16, 1, 0, 0, 0, time.UTC))
	if report.Dispatched != 2 {
		t.Errorf("tick after snooze lapsed dispatched = %d, want 2", report.Dispatched)
	}
}

func TestStartDisabledWithoutInterval(t *testing.T) {
	db := newTestDB(t)
	dispatcher := &captureDispatcher{}
	mock := clock.NewMock()
	s := New(Options{
		Config:     config.RemindersConfig{TickInterval: 0},
		DB:         db,
		Dispatcher: dispatcher,
		Clock:      mock,
		Logger:     discardLogger(),
	})

	s.Start(context.Background())
	s.Stop()

	if calls := dispatcher.snapshot(); len(calls) != 0 {
		t.Errorf("disabled runner dispatched %v, want nothing", calls)
	}
}

func TestStartRunsScheduledPasses(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	user := createUser(t, db, "u1@example.com", "UTC", base)

	dispatcher := &captureDispatcher{}
	createAlert(t, db, dispatcher, &models.CreateAlertRequest{
		Title:            "Cert renewal",
		Message:          "Renew the edge certificate.",
		Severity:         models.AlertSeverityCritical,
		CreatedBy:        user.ID,
		Visibility:       models.Visibility{Kind: models.VisibilityUser, UserIDs: []models.UserID{user.ID}},
		RemindersEnabled: true,
		ReminderInterval: time.Hour,
	}, base)
	initialCalls := len(dispatcher.snapshot())

	mock := clock.NewMock()
	mock.Set(base)
	s := New(Options{
		Config:     config.RemindersConfig{TickInterval: time.Hour, DefaultInterval: time.Hour, DispatchTimeout: time.Second},
		DB:         db,
		Dispatcher: dispatcher,
		Clock:      mock,
		Logger:     discardLogger(),
	})

	s.Start(context.Background())
	// Let the runner register its ticker before advancing the clock.
	time.Sleep(50 * time.Millisecond)
	mock.Add(time.Hour)

	deadline := time.Now().Add(2 * time.Second)
	for len(dispatcher.snapshot()) <= initialCalls && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()

	calls := dispatcher.snapshot()
	if len(calls) <= initialCalls {
		t.Fatalf("runner dispatched %d calls, want a reminder after one interval", len(calls)-initialCalls)
	}
	last := calls[len(calls)-1]
	if last.kind != models.NotificationKindReminder {
		t.Errorf("runner dispatch kind = %q, want %q", last.kind, models.NotificationKindReminder)
	}
}
