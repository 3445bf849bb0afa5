package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// BuildAnalyticsReport aggregates alert, state and delivery counts into a
// single report. Reads only; an empty database yields a report full of
// zeros, not an error.
func BuildAnalyticsReport(ctx context.Context, db *sqlite.DB, log *slog.Logger, now time.Time) (*models.AnalyticsReport, error) {
	alertCounts, err := db.CountAlerts(ctx, now)
	if err != nil {
		log.Error("failed to aggregate alert counts", "error", err)
		return nil, fmt.Errorf("failed to aggregate alert counts: %w", err)
	}
	for _, severity := range []models.AlertSeverity{
		models.AlertSeverityInfo,
		models.AlertSeverityWarning,
		models.AlertSeverityCritical,
	} {
		if _, ok := alertCounts.BySeverity[severity]; !ok {
			alertCounts.BySeverity[severity] = 0
		}
	}

	stateCounts, err := db.CountStates(ctx, now)
	if err != nil {
		log.Error("failed to aggregate state counts", "error", err)
		return nil, fmt.Errorf("failed to aggregate state counts: %w", err)
	}

	deliveryCounts, err := db.CountDeliveries(ctx)
	if err != nil {
		log.Error("failed to aggregate delivery counts", "error", err)
		return nil, fmt.Errorf("failed to aggregate delivery counts: %w", err)
	}

	return &models.AnalyticsReport{
		GeneratedAt: now,
		Alerts:      *alertCounts,
		States:      *stateCounts,
		Deliveries:  deliveryCounts,
	}, nil
}
