package queue

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/lucasgoveia/paymentgateway/internal/payments"
)

// MaxAttempts caps the number of total dispatch attempts (initial plus
// retries) made for a single correlation identifier.
const MaxAttempts = 3

// Retry is a bounded FIFO of payments whose first dispatch attempt
// failed. A per-correlation-identifier attempt counter, evicted on
// inactivity, enforces MaxAttempts.
type Retry struct {
	ch       chan payments.RetryEntry
	attempts *lru.LRU[string, int]
	logger   *slog.Logger
}

// NewRetry builds a Retry queue with the given capacity. attemptsTTL
// bounds how long an inactive correlation identifier's attempt count is
// remembered before eviction.
func NewRetry(capacity int, attemptsTTL time.Duration, logger *slog.Logger) *Retry {
	return &Retry{
		ch:       make(chan payments.RetryEntry, capacity),
		attempts: lru.NewLRU[string, int](capacity*4, nil, attemptsTTL),
		logger:   logger,
	}
}

// Offer enqueues p for retry if its attempt count is still under
// MaxAttempts. It returns false, with a critical log record, when the
// cap is exceeded or the queue is full.
func (q *Retry) Offer(p payments.Payment) bool {
	id := p.CorrelationID.String()
	n, _ := q.attempts.Get(id)
	n++
	if n >= MaxAttempts {
		q.logger.Error("retry attempts exhausted, dropping payment", "correlationId", id, "attempts", n)
		q.attempts.Remove(id)
		return false
	}
	q.attempts.Add(id, n)

	select {
	case q.ch <- payments.RetryEntry{Payment: p, Attempts: n}:
		return true
	default:
		q.logger.Error("retry queue full, dropping payment", "correlationId", id)
		return false
	}
}

// Get waits up to timeout for a retry entry to become available.
func (q *Retry) Get(ctx context.Context, timeout time.Duration) (payments.RetryEntry, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e := <-q.ch:
		return e, true
	case <-timer.C:
		return payments.RetryEntry{}, false
	case <-ctx.Done():
		return payments.RetryEntry{}, false
	}
}
