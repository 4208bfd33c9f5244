package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ReportFacade exposes the subset of application functionality required by the worker.
type ReportFacade interface {
	Producers(ctx context.Context) ([]string, error)
	RefreshReport(ctx context.Context, producerID string) error
}

// ReportRefresher periodically recomputes every producer's revenue report on
// a pool of workers. A refresh cut short by cancellation publishes nothing.
type ReportRefresher struct {
	facade   ReportFacade
	interval time.Duration
	workers  int
	logger   *slog.Logger

	jobs   chan string
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewReportRefresher constructs the refresher worker pool.
func NewReportRefresher(facade ReportFacade, interval time.Duration, workers int, logger *slog.Logger) *ReportRefresher {
	if workers <= 0 {
		workers = 1
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReportRefresher{
		facade:   facade,
		interval: interval,
		workers:  workers,
		logger:   logger,
		jobs:     make(chan string, workers),
	}
}

// Start launches background refreshing. The first round runs immediately.
func (r *ReportRefresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx)
}

// Stop cancels in-flight refreshes and waits for all workers to finish.
func (r *ReportRefresher) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *ReportRefresher) dispatch(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.jobs)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.fetchAndDispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fetchAndDispatch(ctx)
		}
	}
}

func (r *ReportRefresher) fetchAndDispatch(ctx context.Context) {
	producers, err := r.facade.Producers(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("list producers failed", slog.String("error", err.Error()))
		}
		return
	}
	for _, id := range producers {
		select {
		case <-ctx.Done():
			return
		case r.jobs <- id:
		}
	}
}

func (r *ReportRefresher) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-r.jobs:
			if !ok {
				return
			}
			r.refresh(ctx, id)
		}
	}
}

func (r *ReportRefresher) refresh(ctx context.Context, producerID string) {
	started := time.Now()
	err := r.facade.RefreshReport(ctx, producerID)
	switch {
	case err == nil:
		r.logger.Debug("revenue report refreshed",
			slog.String("producer", producerID),
			slog.Duration("took", time.Since(started)),
		)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		r.logger.Debug("revenue refresh abandoned", slog.String("producer", producerID))
	default:
		r.logger.Error("revenue refresh failed", slog.String("producer", producerID), slog.String("error", err.Error()))
	}
}
