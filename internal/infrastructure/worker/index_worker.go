package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/application/port"
)

// DefaultIndexRefreshInterval is used when no interval is configured.
const DefaultIndexRefreshInterval = 5 * time.Minute

// IndexWorker periodically rebuilds the manager index from the store so
// that membership edits made outside this process are picked up.
type IndexWorker struct {
	index    port.ManagerIndex
	interval time.Duration
	logger   *zap.Logger

	mu          sync.RWMutex
	isRunning   bool
	cancel      context.CancelFunc
	done        chan struct{}
	lastRebuild time.Time
	failures    int
	lastError   error
}

// NewIndexWorker creates a new index reconciliation worker
func NewIndexWorker(index port.ManagerIndex, interval time.Duration, logger *zap.Logger) *IndexWorker {
	if interval <= 0 {
		interval = DefaultIndexRefreshInterval
	}
	return &IndexWorker{
		index:    index,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the refresh loop
func (w *IndexWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("index worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("IndexWorker started", zap.Duration("interval", w.interval))

	go w.loop(loopCtx, w.done)
	return nil
}

// Stop terminates the loop and waits for an in-flight rebuild
func (w *IndexWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("IndexWorker stopped", zap.Int("failures", w.Failures()))
	return nil
}

// Name returns the worker name for identification
func (w *IndexWorker) Name() string {
	return "IndexWorker"
}

// LastRebuild returns the time of the last successful rebuild
func (w *IndexWorker) LastRebuild() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRebuild
}

// Failures returns the number of failed rebuilds
func (w *IndexWorker) Failures() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.failures
}

func (w *IndexWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Index refresh loop cancelled")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *IndexWorker) refresh(ctx context.Context) {
	err := w.index.Rebuild(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.failures++
		w.lastError = err
		w.logger.Error("Failed to rebuild manager index", zap.Error(err))
		return
	}
	w.lastRebuild = time.Now()
	w.lastError = nil
}
