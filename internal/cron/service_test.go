package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bomjesus/armazem-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	denied   bool
	released int
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) {
	if f.denied {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.released++
	return nil
}

type countingJob struct {
	name     string
	interval time.Duration
	runs     int
	err      error
}

func (j *countingJob) Name() string            { return j.name }
func (j *countingJob) Interval() time.Duration { return j.interval }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   discardLogger(),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Tick:     time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRunCycle_RespectsPerJobIntervals(t *testing.T) {
	fast := &countingJob{name: "fast", interval: time.Minute}
	slow := &countingJob{name: "slow", interval: time.Hour}
	svc := newTestService(t, &fakeLock{}, fast, slow)

	start := time.Now()
	if err := svc.runCycle(context.Background(), start); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if err := svc.runCycle(context.Background(), start.Add(time.Minute)); err != nil {
		t.Fatalf("runCycle: %v", err)
	}

	if fast.runs != 2 {
		t.Fatalf("fast job should run every cycle, got %d", fast.runs)
	}
	if slow.runs != 1 {
		t.Fatalf("slow job should run once within its interval, got %d", slow.runs)
	}
}

func TestRunCycle_SkipsWhenLockDenied(t *testing.T) {
	job := &countingJob{name: "job", interval: time.Minute}
	svc := newTestService(t, &fakeLock{denied: true}, job)

	if err := svc.runCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("jobs must not run without the lock")
	}
}

func TestRunCycle_FailingJobDoesNotBlockPeers(t *testing.T) {
	bad := &countingJob{name: "bad", interval: time.Minute, err: errors.New("boom")}
	good := &countingJob{name: "good", interval: time.Minute}
	lock := &fakeLock{}
	svc := newTestService(t, lock, bad, good)

	if err := svc.runCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if bad.runs != 1 || good.runs != 1 {
		t.Fatalf("both jobs should have run, got %d/%d", bad.runs, good.runs)
	}
	if lock.released != 1 {
		t.Fatalf("lock must be released after the cycle, got %d", lock.released)
	}
}

func TestRunCycle_NoDueJobsSkipsLock(t *testing.T) {
	slow := &countingJob{name: "slow", interval: time.Hour}
	lock := &fakeLock{}
	svc := newTestService(t, lock, slow)

	start := time.Now()
	if err := svc.runCycle(context.Background(), start); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if err := svc.runCycle(context.Background(), start.Add(time.Minute)); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if lock.released != 1 {
		t.Fatalf("idle cycle must not touch the lock, got %d releases", lock.released)
	}
}

func TestRegistry_SkipsNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &countingJob{name: "a"}, nil)
	registry.Register(nil)
	registry.Register(&countingJob{name: "b"})

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Name() != "a" || jobs[1].Name() != "b" {
		t.Fatal("registration order must be preserved")
	}
}
