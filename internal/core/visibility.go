package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// Directory provides the user and team lookups visibility resolution
// depends on. *sqlite.DB satisfies it.
type Directory interface {
	ListUserIDs(ctx context.Context) ([]models.UserID, error)
	ListTeamMemberIDs(ctx context.Context, teamID models.TeamID) ([]models.UserID, error)
}

var validVisibilityKinds = map[models.VisibilityKind]struct{}{
	models.VisibilityOrganization: {},
	models.VisibilityTeam:         {},
	models.VisibilityUser:         {},
}

func validateVisibility(v models.Visibility) error {
	if _, ok := validVisibilityKinds[v.Kind]; !ok {
		return fmt.Errorf("invalid visibility kind %q", v.Kind)
	}
	return nil
}

// ResolveVisibility expands a visibility definition into the concrete set of
// user IDs it targets, deduplicated and sorted. Unknown team or user IDs are
// skipped silently; a definition may legitimately resolve to an empty
// audience.
func ResolveVisibility(ctx context.Context, dir Directory, log *slog.Logger, v models.Visibility) ([]models.UserID, error) {
	if err := validateVisibility(v); err != nil {
		return nil, err
	}

	seen := make(map[models.UserID]struct{})

	switch v.Kind {
	case models.VisibilityOrganization:
		ids, err := dir.ListUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve organization visibility: %w", err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}

	case models.VisibilityTeam:
		for _, teamID := range v.TeamIDs {
			members, err := dir.ListTeamMemberIDs(ctx, teamID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve team %d visibility: %w", teamID, err)
			}
			if len(members) == 0 {
				log.Debug("team visibility entry resolved to no members", "team_id", teamID)
				continue
			}
			for _, id := range members {
				seen[id] = struct{}{}
			}
		}

	case models.VisibilityUser:
		known, err := dir.ListUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user visibility: %w", err)
		}
		knownSet := make(map[models.UserID]struct{}, len(known))
		for _, id := range known {
			knownSet[id] = struct{}{}
		}
		for _, id := range v.UserIDs {
			if _, ok := knownSet[id]; !ok {
				log.Debug("skipping unknown user in visibility", "user_id", id)
				continue
			}
			seen[id] = struct{}{}
		}
	}

	targets := make([]models.UserID, 0, len(seen))
	for id := range seen {
		targets = append(targets, id)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets, nil
}
