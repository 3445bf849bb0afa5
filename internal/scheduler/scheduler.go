// Package scheduler runs reminder passes over active alerts. A pass can
// be triggered by the internal runner or externally over the API; both
// paths share RunTick and claims make concurrent passes safe.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync"

	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/dikshakatiyar/alerting-system/internal/config"
	"github.com/dikshakatiyar/alerting-system/internal/metrics"
	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// Dispatcher sends reminder notifications to the claimed recipients.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *models.Alert, targets []models.UserID, kind models.NotificationKind)
}

// Options encapsulates the dependencies required to run the scheduler.
type Options struct {
	Config     config.RemindersConfig
	DB         *sqlite.DB
	Dispatcher Dispatcher
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Scheduler owns the reminder loop.
type Scheduler struct {
	cfg        config.RemindersConfig
	db         *sqlite.DB
	dispatcher Dispatcher
	clock      clock.Clock
	log        *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// New constructs a Scheduler.
func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		cfg:        opts.Config,
		db:         opts.DB,
		dispatcher: opts.Dispatcher,
		clock:      clk,
		log:        logger.With("component", "scheduler"),
		stop:       make(chan struct{}),
	}
}

// Start launches the internal runner. It is a no-op when no tick interval
// is configured; passes can still be triggered over the API.
func (s *Scheduler) Start(ctx context.Context) {
	interval := s.cfg.TickInterval
	if interval <= 0 {
		s.log.Info("reminder runner disabled; passes must be triggered externally")
		return
	}
	s.log.Info("starting reminder runner", "interval", interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := s.clock.Ticker(interval)
		defer ticker.Stop()

		// Run an initial pass so reminders catch up soon after startup.
		s.runScheduled(ctx)

		for {
			select {
			case <-ticker.C:
				s.runScheduled(ctx)
			case <-s.stop:
				s.log.Info("reminder runner stopping")
				return
			case <-ctx.Done():
				s.log.Info("reminder runner context cancelled")
				return
			}
		}
	}()
}

// Stop signals the runner to exit and waits for the in-flight pass.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	report, err := s.RunTick(ctx)
	if err != nil {
		s.log.Error("reminder pass failed", "error", err)
		return
	}
	s.log.Debug("reminder pass finished",
		"scanned_alerts", report.ScannedAlerts,
		"evaluated_pairs", report.EvaluatedPairs,
		"dispatched", report.Dispatched,
		"duration", report.Duration,
	)
}

// RunTick executes one reminder pass at the current instant. For every
// active reminder-enabled alert it walks the resolved targets, claims the
// pairs whose interval elapsed outside a snooze window and dispatches one
// reminder per alert to the claimed users. Claims are atomic row updates,
// so a pair is never dispatched twice for the same interval no matter how
// many passes run concurrently.
func (s *Scheduler) RunTick(ctx context.Context) (*models.TickReport, error) {
	startedAt := s.clock.Now().UTC()

	alerts, err := s.db.ListReminderAlerts(ctx, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts for reminder pass: %w", err)
	}

	report := &models.TickReport{
		StartedAt:     startedAt,
		ScannedAlerts: len(alerts),
	}
	for _, alert := range alerts {
		targets, err := s.db.ListAlertTargets(ctx, alert.ID)
		if err != nil {
			s.log.Error("failed to list alert targets", "alert_id", alert.ID, "error", err)
			continue
		}

		var claimed []models.UserID
		for _, userID := range targets {
			report.EvaluatedPairs++
			if _, err := s.db.EnsureUserAlertState(ctx, userID, alert.ID, startedAt); err != nil {
				s.log.Error("failed to materialize user alert state", "alert_id", alert.ID, "user_id", userID, "error", err)
				continue
			}
			ok, err := s.db.ClaimReminder(ctx, alert.ID, userID, startedAt)
			if err != nil {
				s.log.Error("failed to claim reminder", "alert_id", alert.ID, "user_id", userID, "error", err)
				continue
			}
			if ok {
				claimed = append(claimed, userID)
			}
		}
		if len(claimed) > 0 && s.dispatcher != nil {
			s.dispatcher.Dispatch(ctx, alert, claimed, models.NotificationKindReminder)
		}
		report.Dispatched += len(claimed)
	}

	report.Duration = s.clock.Since(startedAt)
	metrics.RecordReminderTick(report.Duration)
	metrics.RecordRemindersClaimed(report.Dispatched)
	return report, nil
}
