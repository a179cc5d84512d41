package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/worldhost/internal/logfields"
)

// maintenanceHour is the local hour at which the daily job runs; early
// morning keeps the archive I/O away from peak player activity.
const maintenanceHour = 4

// Scheduler wraps gocron for the periodic maintenance tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
	daemon    *Daemon
}

// NewScheduler creates a scheduler bound to the daemon.
func NewScheduler(d *Daemon) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, daemon: d}, nil
}

// Start registers the daily maintenance job and begins the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(maintenanceHour, 0, 0))),
		gocron.NewTask(s.runDailyMaintenance, ctx),
		gocron.WithName("daily-maintenance"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule daily maintenance: %w", err)
	}

	slog.Info("Starting scheduler")
	s.scheduler.Start()
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// runDailyMaintenance rolls the visitor windows and archives every world
// whose expiration date has passed.
func (s *Scheduler) runDailyMaintenance(ctx context.Context) {
	start := time.Now()
	slog.Info("Running daily maintenance")

	s.daemon.rollVisitorWindows()
	report := s.daemon.queue.RunExpired(ctx, time.Now())

	slog.Info("Daily maintenance finished",
		"archived", report.Succeeded,
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}
