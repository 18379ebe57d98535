package fx

import (
	"context"
	"fmt"
	"time"

	"tradeLedger/internal/ports"
)

// Refresher is the work the scheduler fires.
type Refresher interface {
	Refresh(ctx context.Context) bool
}

// Scheduler runs a refresh once a day at a fixed wall-clock time in a zone.
// A failed run is not retried until the next day.
type Scheduler struct {
	refresher Refresher
	hour      int
	minute    int
	zone      *time.Location
	logger    ports.Logger
	now       func() time.Time
	after     func(time.Duration) <-chan time.Time
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Refresher Refresher
	At        string // HH:MM
	Zone      *time.Location
	Logger    ports.Logger
}

// NewScheduler creates a scheduler for the daily refresh.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for scheduler")
	}
	if cfg.Refresher == nil {
		return nil, fmt.Errorf("refresher is required for scheduler")
	}
	hour, minute, err := ParseClock(cfg.At)
	if err != nil {
		return nil, err
	}
	zone := cfg.Zone
	if zone == nil {
		zone = time.UTC
	}
	return &Scheduler{
		refresher: cfg.Refresher,
		hour:      hour,
		minute:    minute,
		zone:      zone,
		logger:    cfg.Logger,
		now:       time.Now,
		after:     time.After,
	}, nil
}

// ParseClock parses an HH:MM time of day.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid time of day %q", ports.ErrConfigurationError, s)
	}
	return t.Hour(), t.Minute(), nil
}

// Run blocks until ctx is cancelled, firing the refresher at every daily tick.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := NextRun(s.now(), s.hour, s.minute, s.zone)
		s.logger.Debug(ctx, "Next exchange rate refresh scheduled", map[string]interface{}{
			"at": next.Format(time.RFC3339),
		})
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Exchange rate scheduler stopped")
			return
		case <-s.after(next.Sub(s.now())):
			s.tick(ctx)
		}
	}
}

// tick is the failure boundary of one scheduled run.
func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, fmt.Errorf("panic: %v", r), "Scheduled exchange rate refresh panicked")
		}
	}()
	s.refresher.Refresh(ctx)
}

// NextRun returns the first hour:minute in zone strictly after now.
func NextRun(now time.Time, hour, minute int, zone *time.Location) time.Time {
	local := now.In(zone)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, zone)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, zone)
	}
	return next
}
