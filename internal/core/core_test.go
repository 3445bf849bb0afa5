package core

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"log/slog"

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

func mustCreateUser(t *testing.T, db *sqlite.DB, email, timezone string, now time.Time) *models.User {
	t.Helper()
	user, err := CreateUser(context.Background(), db, discardLogger(), &models.CreateUserRequest{
		Email:    email,
		FullName: "User " + email,
		Timezone: timezone,
	}, now)
	if err != nil {
		t.Fatalf("CreateUser(%s) error = %v", email, err)
	}
	return user
}

func mustCreateTeam(t *testing.T, db *sqlite.DB, name string, members []models.UserID, now time.Time) *models.Team {
	t.Helper()
	team, err := CreateTeam(context.Background(), db, discardLogger(), &models.CreateTeamRequest{Name: name}, now)
	if err != nil {
		t.Fatalf("CreateTeam(%s) error = %v", name, err)
	}
	for _, userID := range members {
		if err := AddTeamMember(context.Background(), db, discardLogger(), team.ID, userID, now); err != nil {
			t.Fatalf("AddTeamMember(%d, %d) error = %v", team.ID, userID, err)
		}
	}
	return team
}

func mustCreateAlert(t *testing.T, db *sqlite.DB, req *models.CreateAlertRequest, now time.Time) *models.Alert {
	t.Helper()
	alert, err := CreateAlert(context.Background(), db, nil, discardLogger(), req, models.DefaultReminderInterval, now)
	if err != nil {
		t.Fatalf("CreateAlert(%s) error = %v", req.Title, err)
	}
	return alert
}

func userIDs(targets []models.UserID) map[models.UserID]bool {
	set := make(map[models.UserID]bool, len(targets))
	for _, id := range targets {
		set[id] = true
	}
	return set
}
