// Package scheduler runs periodic maintenance jobs. Each tick is guarded by a
// database lease so only one instance does the work.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/pkg/logger"
)

const (
	// DefaultSchedule is used when no cron spec is configured.
	DefaultSchedule = "@every 5m"
	// DefaultLeaseTTL bounds how long a crashed instance can block the sweep.
	DefaultLeaseTTL = 2 * time.Minute
	// DefaultTimeout bounds one sweep.
	DefaultTimeout = time.Minute
)

// Expirer flips subscriptions whose period has ended.
type Expirer interface {
	ExpireDue(ctx context.Context) (int64, error)
}

type Scheduler struct {
	logger *logger.Logger
	cron   *cron.Cron

	locks      models.LockRepository
	expirer    Expirer
	instanceID string
	leaseTTL   time.Duration
	timeout    time.Duration
}

func New(schedule string, locks models.LockRepository, expirer Expirer, instanceID string, logger *logger.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	log := logger.Named("scheduler")
	cronLog := cronLogger{log}

	s := &Scheduler{
		logger: log,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		locks:      locks,
		expirer:    expirer,
		instanceID: instanceID,
		leaseTTL:   DefaultLeaseTTL,
		timeout:    DefaultTimeout,
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("failed to schedule expiry sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Infow("Scheduler started", "instance_id", s.instanceID)
	s.cron.Start()
}

// Stop prevents new ticks and waits for a running one until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out while a sweep was running")
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, _, err := s.RunExpirySweep(ctx); err != nil {
		s.logger.Errorw("Expiry sweep failed", "error", err)
	}
}

// RunExpirySweep expires due subscriptions if this instance wins the lease. It
// reports whether the sweep ran and how many subscriptions it expired.
func (s *Scheduler) RunExpirySweep(ctx context.Context) (bool, int64, error) {
	ok, err := s.locks.AcquireLock(ctx, models.LockSubscriptionExpiry, s.instanceID, s.leaseTTL)
	if err != nil {
		return false, 0, err
	}
	if !ok {
		s.logger.Debug("Expiry sweep lease held by another instance")
		return false, 0, nil
	}
	defer func() {
		if err := s.locks.ReleaseLock(context.WithoutCancel(ctx), models.LockSubscriptionExpiry, s.instanceID); err != nil {
			s.logger.Warnw("Failed to release expiry sweep lease", "error", err)
		}
	}()

	n, err := s.expirer.ExpireDue(ctx)
	if err != nil {
		return true, 0, err
	}
	s.logger.Debugw("Expiry sweep finished", "expired", n)
	return true, n, nil
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
