package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

const (
	insertTeamQuery = `INSERT INTO teams (name, description, created_at, updated_at)
VALUES (?, ?, ?, ?)
RETURNING id`

	selectTeamBase = `SELECT id, name, description, created_at, updated_at FROM teams`

	listTeamsQuery = `SELECT
    t.id,
    t.name,
    t.description,
    t.created_at,
    t.updated_at,
    COUNT(m.user_id) AS member_count
FROM teams t
LEFT JOIN team_members m ON m.team_id = t.id
GROUP BY t.id
ORDER BY t.id`

	insertTeamMemberQuery = `INSERT INTO team_members (team_id, user_id, created_at)
VALUES (?, ?, ?)
ON CONFLICT (team_id, user_id) DO NOTHING`

	deleteTeamMemberQuery = `DELETE FROM team_members WHERE team_id = ? AND user_id = ?`

	listTeamMembersQuery = `SELECT
    u.id,
    u.email,
    u.full_name,
    u.timezone,
    u.created_at,
    u.updated_at
FROM users u
JOIN team_members m ON m.user_id = u.id
WHERE m.team_id = ?
ORDER BY u.id`

	listTeamMemberIDsQuery = `SELECT user_id FROM team_members WHERE team_id = ? ORDER BY user_id`
)

type teamRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	MemberCount int    `db:"member_count"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r teamRow) toModel() *models.Team {
	return &models.Team{
		ID:          models.TeamID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		MemberCount: r.MemberCount,
		CreatedAt:   unixTime(r.CreatedAt),
		UpdatedAt:   unixTime(r.UpdatedAt),
	}
}

// CreateTeam inserts a new team record and populates the generated ID on the
// input model. Duplicate names surface as a unique constraint error.
func (db *DB) CreateTeam(ctx context.Context, team *models.Team) error {
	if team == nil {
		return fmt.Errorf("team payload is required")
	}

	var id int64
	err := db.writeDB.QueryRowContext(ctx, insertTeamQuery,
		team.Name,
		team.Description,
		team.CreatedAt.Unix(),
		team.UpdatedAt.Unix(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	team.ID = models.TeamID(id)
	return nil
}

// GetTeam retrieves a single team by its ID.
func (db *DB) GetTeam(ctx context.Context, teamID models.TeamID) (*models.Team, error) {
	var row teamRow
	query := selectTeamBase + " WHERE id = ?"
	if err := db.readDB.GetContext(ctx, &row, query, int64(teamID)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return row.toModel(), nil
}

// ListTeams retrieves all teams along with their member counts.
func (db *DB) ListTeams(ctx context.Context) ([]*models.Team, error) {
	var rows []teamRow
	if err := db.readDB.SelectContext(ctx, &rows, listTeamsQuery); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	teams := make([]*models.Team, 0, len(rows))
	for _, row := range rows {
		teams = append(teams, row.toModel())
	}
	return teams, nil
}

// AddTeamMember adds a user to a team. Adding an existing member is a no-op.
func (db *DB) AddTeamMember(ctx context.Context, teamID models.TeamID, userID models.UserID, now time.Time) error {
	if _, err := db.writeDB.ExecContext(ctx, insertTeamMemberQuery, int64(teamID), int64(userID), now.Unix()); err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

// RemoveTeamMember removes a user from a team.
func (db *DB) RemoveTeamMember(ctx context.Context, teamID models.TeamID, userID models.UserID) error {
	res, err := db.writeDB.ExecContext(ctx, deleteTeamMemberQuery, int64(teamID), int64(userID))
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTeamMembers returns the users belonging to a team.
func (db *DB) ListTeamMembers(ctx context.Context, teamID models.TeamID) ([]*models.User, error) {
	var rows []userRow
	if err := db.readDB.SelectContext(ctx, &rows, listTeamMembersQuery, int64(teamID)); err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	users := make([]*models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel())
	}
	return users, nil
}

// ListTeamMemberIDs returns the member IDs for a team. Used to resolve
// team-scoped visibility.
func (db *DB) ListTeamMemberIDs(ctx context.Context, teamID models.TeamID) ([]models.UserID, error) {
	var ids []int64
	if err := db.readDB.SelectContext(ctx, &ids, listTeamMemberIDsQuery, int64(teamID)); err != nil {
		return nil, fmt.Errorf("failed to list team member ids: %w", err)
	}
	userIDs := make([]models.UserID, 0, len(ids))
	for _, id := range ids {
		userIDs = append(userIDs, models.UserID(id))
	}
	return userIDs, nil
}
