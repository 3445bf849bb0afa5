package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

var (
	// ErrTeamNotFound is returned when a team cannot be located.
	ErrTeamNotFound = errors.New("team not found")
	// ErrTeamExists indicates a duplicate team name.
	ErrTeamExists = errors.New("team with this name already exists")
	// ErrTeamMemberNotFound is returned when removing a user who is not a
	// member of the team.
	ErrTeamMemberNotFound = errors.New("team member not found")
	// ErrInvalidTeamPayload indicates the request payload failed validation.
	ErrInvalidTeamPayload = errors.New("invalid team payload")
)

// CreateTeam registers a new team in the directory.
func CreateTeam(ctx context.Context, db *sqlite.DB, log *slog.Logger, req *models.CreateTeamRequest, now time.Time) (*models.Team, error) {
	if req == nil {
		return nil, ErrInvalidTeamPayload
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTeamPayload)
	}

	team := &models.Team{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.CreateTeam(ctx, team); err != nil {
		if sqlite.IsUniqueConstraintError(err) {
			return nil, ErrTeamExists
		}
		log.Error("failed to create team", "name", name, "error", err)
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	log.Info("team created", "team_id", team.ID, "name", name)
	return team, nil
}

// GetTeam retrieves a single team by ID.
func GetTeam(ctx context.Context, db *sqlite.DB, teamID models.TeamID) (*models.Team, error) {
	team, err := db.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListTeams retrieves all teams with their member counts.
func ListTeams(ctx context.Context, db *sqlite.DB) ([]*models.Team, error) {
	teams, err := db.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// AddTeamMember adds a user to a team. Adding an existing member is a
// no-op success.
func AddTeamMember(ctx context.Context, db *sqlite.DB, log *slog.Logger, teamID models.TeamID, userID models.UserID, now time.Time) error {
	if _, err := GetTeam(ctx, db, teamID); err != nil {
		return err
	}
	if _, err := requireUser(ctx, db, userID); err != nil {
		return err
	}
	if err := db.AddTeamMember(ctx, teamID, userID, now); err != nil {
		log.Error("failed to add team member", "team_id", teamID, "user_id", userID, "error", err)
		return fmt.Errorf("failed to add team member: %w", err)
	}
	log.Info("team member added", "team_id", teamID, "user_id", userID)
	return nil
}

// RemoveTeamMember removes a user from a team.
func RemoveTeamMember(ctx context.Context, db *sqlite.DB, log *slog.Logger, teamID models.TeamID, userID models.UserID) error {
	if _, err := GetTeam(ctx, db, teamID); err != nil {
		return err
	}
	if err := db.RemoveTeamMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamMemberNotFound
		}
		log.Error("failed to remove team member", "team_id", teamID, "user_id", userID, "error", err)
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	log.Info("team member removed", "team_id", teamID, "user_id", userID)
	return nil
}

// ListTeamMembers returns the users belonging to a team.
func ListTeamMembers(ctx context.Context, db *sqlite.DB, teamID models.TeamID) ([]*models.User, error) {
	if _, err := GetTeam(ctx, db, teamID); err != nil {
		return nil, err
	}
	members, err := db.ListTeamMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}
