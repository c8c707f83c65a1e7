package logging

import (
	"log/slog"
	"sync"
)

// BatchProgress counts finished sessions and logs "batch progress" each
// time the completed share crosses a bucket boundary. It is safe for use by
// concurrent workers.
type BatchProgress struct {
	mu         sync.Mutex
	logger     *slog.Logger
	total      int
	done       int
	failed     int
	bucketSize float64
	lastBucket int
}

// NewBatchProgress tracks total sessions, logging every bucketSize percent
// (10 when non-positive).
func NewBatchProgress(logger *slog.Logger, total int, bucketSize float64) *BatchProgress {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &BatchProgress{logger: logger, total: total, bucketSize: bucketSize, lastBucket: -1}
}

// Done records one finished session and reports whether a progress line was
// emitted.
func (p *BatchProgress) Done(failed bool) bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if failed {
		p.failed++
	}
	percent := 100.0
	if p.total > 0 {
		percent = min(100*float64(p.done)/float64(p.total), 100)
	}
	bucket := int(percent / p.bucketSize)
	if bucket <= p.lastBucket {
		return false
	}
	p.lastBucket = bucket
	if p.logger != nil {
		p.logger.Info("batch progress",
			String(FieldEventType, "batch_progress"),
			Int("done", p.done),
			Int("failed", p.failed),
			Int("total", p.total),
			Float64("percent", percent),
		)
	}
	return true
}

// Counts returns finished and failed session counts.
func (p *BatchProgress) Counts() (done, failed int) {
	if p == nil {
		return 0, 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}
