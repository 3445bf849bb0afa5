package core

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

func TestResolveVisibilityOrganization(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	u1 := mustCreateUser(t, db, "u1@example.com", "UTC", now)
	u2 := mustCreateUser(t, db, "u2@example.com", "UTC", now)
	u3 := mustCreateUser(t, db, "u3@example.com", "UTC", now)

	targets, err := ResolveVisibility(context.Background(), db, discardLogger(), models.Visibility{
		Kind: models.VisibilityOrganization,
	})
	if err != nil {
		t.Fatalf("ResolveVisibility() error = %v", err)
	}
	want := []models.UserID{u1.ID, u2.ID, u3.ID}
	if !reflect.DeepEqual(targets, want) {
		t.Errorf("ResolveVisibility() = %v, want %v", targets, want)
	}
}

func TestResolveVisibilityTeamIgnoresUnknownTeams(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	u1 := mustCreateUser(t, db, "u1@example.com", "UTC", now)
	u2 := mustCreateUser(t, db, "u2@example.com", "UTC", now)
	mustCreateUser(t, db, "outsider@example.com", "UTC", now)
	team := mustCreateTeam(t, db, "platform", []models.UserID{u1.ID, u2.ID}, now)

	targets, err := ResolveVisibility(context.Background(), db, discardLogger(), models.Visibility{
		Kind:    models.VisibilityTeam,
		TeamIDs: []models.TeamID{team.ID, 9999},
	})
	if err != nil {
		t.Fatalf("ResolveVisibility() error = %v", err)
	}
	want := []models.UserID{u1.ID, u2.ID}
	if !reflect.DeepEqual(targets, want) {
		t.Errorf("ResolveVisibility() = %v, want members of the valid team %v", targets, want)
	}
}

func TestResolveVisibilityTeamDeduplicatesOverlap(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	u1 := mustCreateUser(t, db, "u1@example.com", "UTC", now)
	u2 := mustCreateUser(t, db, "u2@example.com", "UTC", now)
	t1 := mustCreateTeam(t, db, "alpha", []models.UserID{u1.ID, u2.ID}, now)
	t2 := mustCreateTeam(t, db, "beta", []models.UserID{u2.ID}, now)

	targets, err := ResolveVisibility(context.Background(), db, discardLogger(), models.Visibility{
		Kind:    models.VisibilityTeam,
		TeamIDs: []models.TeamID{t1.ID, t2.ID},
	})
	if err != nil {
		t.Fatalf("ResolveVisibility() error = %v", err)
	}
	want := []models.UserID{u1.ID, u2.ID}
	if !reflect.DeepEqual(targets, want) {
		t.Errorf("ResolveVisibility() = %v, want deduplicated %v", targets, want)
	}
}

func TestResolveVisibilityUserDropsUnknownIDs(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	u1 := mustCreateUser(t, db, "u1@example.com", "UTC", now)

	targets, err := ResolveVisibility(context.Background(), db, discardLogger(), models.Visibility{
		Kind:    models.VisibilityUser,
		UserIDs: []models.UserID{u1.ID, 4242},
	})
	if err != nil {
		t.Fatalf("ResolveVisibility() error = %v", err)
	}
	want := []models.UserID{u1.ID}
	if !reflect.DeepEqual(targets, want) {
		t.Errorf("ResolveVisibility() = %v, want %v", targets, want)
	}
}

func TestResolveVisibilityEmptyAudienceIsValid(t *testing.T) {
	db := newTestDB(t)

	targets, err := ResolveVisibility(context.Background(), db, discardLogger(), models.Visibility{
		Kind:    models.VisibilityTeam,
		TeamIDs: []models.TeamID{77},
	})
	if err != nil {
		t.Fatalf("ResolveVisibility() error = %v, want empty audience to succeed", err)
	}
	if len(targets) != 0 {
		t.Errorf("ResolveVisibility() = %v, want empty", targets)
	}
}

func TestResolveVisibilityRejectsUnknownKind(t *testing.T) {
	db := newTestDB(t)

	if _, err := ResolveVisibility(context.Background(), db, discardLogger(), models.Visibility{
		Kind: "everyone",
	}); err == nil {
		t.Error("ResolveVisibility() accepted an unknown kind, want error")
	}
}
