package study

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is the default interval between cleanup runs.
const DefaultCleanupInterval = 5 * time.Minute

// Cleaner removes expired in-memory state and reports how much was dropped.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CleanerFunc adapts a function to Cleaner.
type CleanerFunc func(ctx context.Context) (int64, error)

// CleanupExpired calls f.
func (f CleanerFunc) CleanupExpired(ctx context.Context) (int64, error) {
	return f(ctx)
}

// CleanupJob periodically runs a set of cleaners.
type CleanupJob struct {
	cleaners []Cleaner
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewCleanupJob creates a new cleanup job.
func NewCleanupJob(interval time.Duration, cleaners ...Cleaner) *CleanupJob {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupJob{cleaners: cleaners, interval: interval}
}

// Start begins the periodic cleanup in a goroutine.
func (j *CleanupJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}
	j.running = true
	j.stopChan = make(chan struct{})
	j.done = make(chan struct{})

	go j.run(ctx, j.stopChan, j.done)

	slog.Info("study cleanup job started", "interval", j.interval)
}

// Stop stops the job and waits for the loop to exit.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopChan)
	done := j.done
	j.running = false
	j.mu.Unlock()

	<-done
	slog.Info("study cleanup job stopped")
}

// RunOnce executes a single cleanup run immediately.
func (j *CleanupJob) RunOnce(ctx context.Context) (int64, error) {
	var total int64
	for _, c := range j.cleaners {
		n, err := c.CleanupExpired(ctx)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// IsRunning returns whether the cleanup job is currently running.
func (j *CleanupJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *CleanupJob) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if removed, err := j.RunOnce(ctx); err != nil {
				slog.Error("study cleanup failed", "error", err)
			} else if removed > 0 {
				slog.Info("study cleanup completed", "removed", removed)
			}
		}
	}
}
