package dispatch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/dikshakatiyar/alerting-system/internal/config"
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

func createTestUser(t *testing.T, db *sqlite.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:     email,
		FullName:  "Test User",
		Timezone:  "UTC",
		CreatedAt: time.Unix(1000, 0).UTC(),
		UpdatedAt: time.Unix(1000, 0).UTC(),
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func createTestAlert(t *testing.T, db *sqlite.DB, createdBy models.UserID, targets []models.UserID) *models.Alert {
	t.Helper()
	alert := &models.Alert{
		Title:            "Maintenance window",
		Message:          "The API will be briefly unavailable.",
		Severity:         models.AlertSeverityWarning,
		CreatedBy:        createdBy,
		Visibility:       models.Visibility{Kind: models.VisibilityUser, UserIDs: targets},
		StartAt:          time.Unix(2000, 0).UTC(),
		RemindersEnabled: true,
		ReminderInterval: time.Hour,
		Status:           models.AlertStatusActive,
		CreatedAt:        time.Unix(2000, 0).UTC(),
		UpdatedAt:        time.Unix(2000, 0).UTC(),
	}
	if err := db.CreateAlert(context.Background(), alert, targets); err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}
	return alert
}

type stubChannel struct {
	name models.ChannelName
	err  error

	mu        sync.Mutex
	delivered []models.UserID
}

func (s *stubChannel) Name() models.ChannelName { return s.name }

func (s *stubChannel) Deliver(_ context.Context, _ *models.Alert, user *models.User, _ models.NotificationKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, user.ID)
	return s.err
}

func (s *stubChannel) deliveredTo() []models.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UserID(nil), s.delivered...)
}

func TestDispatcherChannelIsolation(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "isolation@example.com")
	alert := createTestAlert(t, db, user.ID, []models.UserID{user.ID})

	good := &stubChannel{name: models.ChannelName("good")}
	bad := &stubChannel{name: models.ChannelName("bad"), err: fmt.Errorf("endpoint down")}
	d := &Dispatcher{
		db:       db,
		clock:    clock.NewMock(),
		log:      discardLogger(),
		channels: []Channel{good, bad},
		timeout:  time.Second,
	}

	d.Dispatch(context.Background(), alert, []models.UserID{user.ID}, models.NotificationKindReminder)
	d.Drain()

	if got := good.deliveredTo(); len(got) != 1 || got[0] != user.ID {
		t.Errorf("good channel delivered to %v, want [%d]", got, user.ID)
	}
	if got := bad.deliveredTo(); len(got) != 1 || got[0] != user.ID {
		t.Errorf("bad channel delivered to %v, want [%d]", got, user.ID)
	}

	counts, err := db.CountDeliveries(context.Background())
	if err != nil {
		t.Fatalf("CountDeliveries() error = %v", err)
	}
	if counts[models.ChannelName("good")].Sent != 1 {
		t.Errorf("good channel sent count = %d, want 1", counts[models.ChannelName("good")].Sent)
	}
	if counts[models.ChannelName("bad")].Failed != 1 {
		t.Errorf("bad channel failed count = %d, want 1", counts[models.ChannelName("bad")].Failed)
	}
}

func TestDispatcherSkipsUnresolvableUsers(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "known@example.com")
	alert := createTestAlert(t, db, user.ID, []models.UserID{user.ID})

	ch := &stubChannel{name: models.ChannelInApp}
	d := &Dispatcher{
		db:       db,
		clock:    clock.NewMock(),
		log:      discardLogger(),
		channels: []Channel{ch},
		timeout:  time.Second,
	}

	d.Dispatch(context.Background(), alert, []models.UserID{user.ID, 9999}, models.NotificationKindInitial)
	d.Drain()

	if got := ch.deliveredTo(); len(got) != 1 || got[0] != user.ID {
		t.Errorf("delivered to %v, want only [%d]", got, user.ID)
	}
}

func TestInAppChannelDeliver(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "inbox@example.com")
	alert := createTestAlert(t, db, user.ID, []models.UserID{user.ID})

	mock := clock.NewMock()
	mock.Set(time.Unix(5000, 0))
	ch := NewInAppChannel(db, mock, discardLogger())

	if err := ch.Deliver(context.Background(), alert, user, models.NotificationKindInitial); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	notifications, err := db.ListUserNotifications(context.Background(), user.ID, 10)
	if err != nil {
		t.Fatalf("ListUserNotifications() error = %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("ListUserNotifications() returned %d entries, want 1", len(notifications))
	}
	n := notifications[0]
	if n.AlertID != alert.ID {
		t.Errorf("notification AlertID = %d, want %d", n.AlertID, alert.ID)
	}
	if n.Title != alert.Title {
		t.Errorf("notification Title = %q, want %q", n.Title, alert.Title)
	}
	if n.Kind != models.NotificationKindInitial {
		t.Errorf("notification Kind = %q, want %q", n.Kind, models.NotificationKindInitial)
	}
	if n.ID == "" {
		t.Error("notification ID is empty, want a generated identifier")
	}
	if !n.CreatedAt.Equal(time.Unix(5000, 0).UTC()) {
		t.Errorf("notification CreatedAt = %v, want %v", n.CreatedAt, time.Unix(5000, 0).UTC())
	}
}

func TestNewBuildsEnabledChannels(t *testing.T) {
	db := newTestDB(t)

	d, err := New(Options{
		DB:     db,
		Logger: discardLogger(),
		Channels: config.ChannelsConfig{
			InApp: config.InAppChannelConfig{Enabled: true},
		},
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(d.channels) != 1 {
		t.Errorf("New() built %d channels, want 1", len(d.channels))
	}
	if d.channels[0].Name() != models.ChannelInApp {
		t.Errorf("channel name = %q, want %q", d.channels[0].Name(), models.ChannelInApp)
	}
}

func TestNewRejectsUnknownEmailPlaceholder(t *testing.T) {
	_, err := New(Options{
		Logger: discardLogger(),
		Channels: config.ChannelsConfig{
			Email: config.EmailChannelConfig{
				Enabled:         true,
				SubjectTemplate: "{{not_a_placeholder}}",
				BodyTemplate:    "hello",
			},
		},
		Timeout: time.Second,
	})
	if err == nil {
		t.Fatal("New() expected error for unknown template placeholder")
	}
}
