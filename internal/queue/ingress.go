// Package queue implements the bounded ingress and retry FIFOs that sit
// between ingestion and the worker pool.
package queue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lucasgoveia/paymentgateway/internal/payments"
)

// Ingress is a bounded, non-blocking FIFO of pending payments. It
// supports a join/drain barrier: Join blocks until every item accepted
// by Add has been acknowledged with Done, or it times out.
type Ingress struct {
	ch      chan payments.Payment
	pending atomic.Int64
	logger  *slog.Logger
}

// NewIngress builds an Ingress queue with the given capacity.
func NewIngress(capacity int, logger *slog.Logger) *Ingress {
	return &Ingress{
		ch:     make(chan payments.Payment, capacity),
		logger: logger,
	}
}

// Add enqueues a payment without blocking. If the queue is full, the
// payment is dropped and a warning is logged.
func (q *Ingress) Add(p payments.Payment) bool {
	select {
	case q.ch <- p:
		q.pending.Add(1)
		return true
	default:
		q.logger.Warn("ingress queue full, dropping payment", "correlationId", p.CorrelationID)
		return false
	}
}

// Get waits up to timeout for a payment to become available.
func (q *Ingress) Get(ctx context.Context, timeout time.Duration) (payments.Payment, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p := <-q.ch:
		return p, true
	case <-timer.C:
		return payments.Payment{}, false
	case <-ctx.Done():
		return payments.Payment{}, false
	}
}

// Done acknowledges that one item handed out by Get (directly, or
// indirectly via the retry queue) has finished processing.
func (q *Ingress) Done() {
	q.pending.Add(-1)
}

// Len reports the number of items still pending acknowledgement,
// including items currently in-flight in the retry path.
func (q *Ingress) Len() int64 {
	return q.pending.Load()
}

// Join waits until every enqueued item has been acknowledged via Done,
// or until timeout elapses. It returns false on timeout, with the
// residual count still available via Len.
func (q *Ingress) Join(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	const pollInterval = 20 * time.Millisecond

	for {
		if q.pending.Load() <= 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
}
