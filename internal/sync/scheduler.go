package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"sync/atomic"
	"time"
)

// SchedulerOptions configures the periodic sync scheduler.
type SchedulerOptions struct {
	Interval     time.Duration // shallow sync cadence
	DeepInterval time.Duration // deep sync cadence; zero disables deep runs
	AutoFix      bool
	IncludeNew   bool
}

func (o SchedulerOptions) withDefaults() SchedulerOptions {
	if o.Interval <= 0 {
		o.Interval = 15 * time.Minute
	}
	return o
}

// Scheduler runs Manager.GenerateSyncReport on a ticker, suppressing
// concurrent runs: a sync already in flight when a tick fires is skipped
// rather than queued.
type Scheduler struct {
	manager *Manager
	opts    SchedulerOptions

	running int32 // atomic flag, guards against overlapping runs

	mu         stdsync.Mutex
	lastSync   time.Time
	lastCounts map[string]int
	lastErr    error
	stopCh     chan struct{}
	stopped    int32
}

func NewScheduler(manager *Manager, opts SchedulerOptions) *Scheduler {
	return &Scheduler{
		manager: manager,
		opts:    opts.withDefaults(),
		stopCh:  make(chan struct{}),
	}
}

// Run blocks, ticking shallow (and, when configured, deep) syncs until ctx
// is cancelled or Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	shallow := time.NewTicker(s.opts.Interval)
	defer shallow.Stop()

	var deep *time.Ticker
	var deepC <-chan time.Time
	if s.opts.DeepInterval > 0 {
		deep = time.NewTicker(s.opts.DeepInterval)
		defer deep.Stop()
		deepC = deep.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-shallow.C:
			s.tick(ctx, false)
		case <-deepC:
			s.tick(ctx, true)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, deep bool) {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		slog.Warn("sync tick skipped, previous run still in flight", slog.Bool("deep", deep))
		return
	}
	defer atomic.StoreInt32(&s.running, 0)

	report, err := s.manager.GenerateSyncReport(ctx, deep, true, s.opts.AutoFix)

	s.mu.Lock()
	s.lastSync = time.Now()
	s.lastErr = err
	if report != nil {
		counts := make(map[string]int, len(report.IssueCounts))
		for k, v := range report.IssueCounts {
			counts[string(k)] = v
		}
		s.lastCounts = counts
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("scheduled sync failed", slog.String("error", err.Error()), slog.Bool("deep", deep))
		return
	}
	slog.Info("scheduled sync complete", slog.Bool("deep", deep), slog.Int("issues", len(report.Issues)))
}

// LastResult returns the timestamp and issue counts from the most recent
// completed tick.
func (s *Scheduler) LastResult() (time.Time, map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync, s.lastCounts, s.lastErr
}

// Stop ends the scheduler's Run loop.
func (s *Scheduler) Stop() {
	if atomic.CompareAndSwapInt32(&s.stopped, 0, 1) {
		close(s.stopCh)
	}
}
