package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/internal/repository/repotest"
	"github.com/carelink/carewallet/pkg/logger"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) ExpireDue(context.Context) (int64, error) {
	e.calls.Add(1)
	return 3, e.err
}

func TestRunExpirySweepTakesLease(t *testing.T) {
	db := repotest.New(t)
	expirer := &countingExpirer{}
	s, err := New("", db, expirer, "instance-a", logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ran, n, err := s.RunExpirySweep(context.Background())
	if err != nil || !ran || n != 3 {
		t.Fatalf("sweep = %v %d %v", ran, n, err)
	}

	// The lease is released after the sweep, so another instance may run next.
	ok, err := db.AcquireLock(context.Background(), models.LockSubscriptionExpiry, "instance-b", time.Minute)
	if err != nil || !ok {
		t.Fatalf("lease not released: %v %v", ok, err)
	}
}

func TestRunExpirySweepSkipsWhenLeaseHeld(t *testing.T) {
	db := repotest.New(t)
	if ok, err := db.AcquireLock(context.Background(), models.LockSubscriptionExpiry, "instance-b", time.Minute); err != nil || !ok {
		t.Fatalf("acquire: %v %v", ok, err)
	}

	expirer := &countingExpirer{}
	s, err := New("", db, expirer, "instance-a", logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ran, _, err := s.RunExpirySweep(context.Background())
	if err != nil || ran {
		t.Fatalf("sweep ran while lease held: %v %v", ran, err)
	}
	if expirer.calls.Load() != 0 {
		t.Fatalf("expirer called %d times", expirer.calls.Load())
	}
}

func TestRunExpirySweepReleasesLeaseOnError(t *testing.T) {
	db := repotest.New(t)
	boom := errors.New("boom")
	s, err := New("", db, &countingExpirer{err: boom}, "instance-a", logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, _, err := s.RunExpirySweep(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	ok, err := db.AcquireLock(context.Background(), models.LockSubscriptionExpiry, "instance-b", time.Minute)
	if err != nil || !ok {
		t.Fatalf("lease not released after failure: %v %v", ok, err)
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	if _, err := New("every now and then", repotest.New(t), &countingExpirer{}, "a", logger.NewNop()); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestStartStop(t *testing.T) {
	s, err := New("@every 1h", repotest.New(t), &countingExpirer{}, "a", logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
