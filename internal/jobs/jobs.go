// internal/jobs/jobs.go
package jobs

import (
	"context"
	"time"

	"notary-service/internal/domain/license"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	JobPurgeResets   = "purge_resets"
	JobLicenseExpiry = "license_expiry"
	JobPerformance   = "performance_snapshot"

	expiryWindow    = 30 * 24 * time.Hour
	resetRetention  = 24 * time.Hour
	jobRunTimeLimit = 2 * time.Minute
)

type ResetPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type ExpiringLicenses interface {
	ExpiringBetween(ctx context.Context, from, to time.Time) ([]license.Expiring, error)
}

type ExpiryNotifier interface {
	NotifyLicenseExpiring(ctx context.Context, expiring []license.Expiring) (int, error)
}

type PerformanceSnapshotter interface {
	SnapshotPerformance(ctx context.Context) error
}

// Observer receives the outcome of each run. *obs.Metrics satisfies it.
type Observer interface {
	ObserveJob(job string, err error)
}

// Scheduler runs the housekeeping jobs on a cron schedule.
type Scheduler struct {
	cron        *cron.Cron
	resets      ResetPurger
	licenses    ExpiringLicenses
	notifier    ExpiryNotifier
	performance PerformanceSnapshotter
	observer    Observer
	now         func() time.Time
	logger      *zap.Logger
}

func NewScheduler(
	loc *time.Location,
	resets ResetPurger,
	licenses ExpiringLicenses,
	notifier ExpiryNotifier,
	performance PerformanceSnapshotter,
	observer Observer,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		resets:      resets,
		licenses:    licenses,
		notifier:    notifier,
		performance: performance,
		observer:    observer,
		now:         time.Now,
		logger:      logger,
	}
}

// Start registers the jobs and starts the scheduler in its own goroutine.
func (s *Scheduler) Start() error {
	entries := []struct {
		spec string
		name string
		fn   func(context.Context) error
	}{
		{"@hourly", JobPurgeResets, s.PurgeResets},
		{"0 7 * * *", JobLicenseExpiry, s.LicenseExpiry},
		{"30 23 * * *", JobPerformance, s.performance.SnapshotPerformance},
	}
	for _, e := range entries {
		e := e
		if _, err := s.cron.AddFunc(e.spec, func() { s.run(e.name, e.fn) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.logger.Info("housekeeping scheduler started", zap.Int("jobs", len(entries)))
	return nil
}

// Stop waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("housekeeping jobs still running at shutdown")
	}
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobRunTimeLimit)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	if s.observer != nil {
		s.observer.ObserveJob(name, err)
	}
	if err != nil {
		s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Debug("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

// PurgeResets deletes reset tokens that expired more than a day ago.
func (s *Scheduler) PurgeResets(ctx context.Context) error {
	n, err := s.resets.PurgeExpired(ctx, s.now().Add(-resetRetention))
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("purged password resets", zap.Int64("count", n))
	}
	return nil
}

// LicenseExpiry notifies holders of active licenses expiring within 30
// days. Notifications are deduplicated per license and day.
func (s *Scheduler) LicenseExpiry(ctx context.Context) error {
	now := s.now()
	expiring, err := s.licenses.ExpiringBetween(ctx, now, now.Add(expiryWindow))
	if err != nil {
		return err
	}
	if len(expiring) == 0 {
		return nil
	}
	n, err := s.notifier.NotifyLicenseExpiring(ctx, expiring)
	if err != nil {
		return err
	}
	s.logger.Info("license expiry notifications created",
		zap.Int("expiring", len(expiring)),
		zap.Int("created", n),
	)
	return nil
}
