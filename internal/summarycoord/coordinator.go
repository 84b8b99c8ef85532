// Package summarycoord implements the drain/flush barrier that makes
// the summary endpoint return an accurate point-in-time report.
package summarycoord

import (
	"context"
	"log/slog"
	"time"

	"github.com/lucasgoveia/paymentgateway/internal/payments"
)

const (
	// JoinTimeout bounds how long the coordinator waits for the ingress
	// queue to drain before computing a summary anyway.
	JoinTimeout = 15 * time.Second
	// SettleDelay lets any just-issued storage writes commit before the
	// store is read.
	SettleDelay = 100 * time.Millisecond
)

// IngressQueue is the subset of queue.Ingress the coordinator depends on.
type IngressQueue interface {
	Join(ctx context.Context, timeout time.Duration) bool
	Len() int64
}

// WriteBuffer is the subset of writebuffer.Buffer the coordinator depends on.
type WriteBuffer interface {
	ForceFlush(ctx context.Context)
}

// Store is the subset of payments.Store the coordinator depends on.
type Store interface {
	GetAll(ctx context.Context) []payments.ProcessedPayment
}

// Coordinator drains the ingress queue, flushes the write buffer, and
// then computes a summary from whatever is durably persisted.
type Coordinator struct {
	ingress IngressQueue
	buffer  WriteBuffer
	store   Store
	logger  *slog.Logger
}

// New builds a Coordinator.
func New(ingress IngressQueue, buffer WriteBuffer, store Store, logger *slog.Logger) *Coordinator {
	return &Coordinator{ingress: ingress, buffer: buffer, store: store, logger: logger}
}

// Summarize drains in-flight work, flushes the buffer, waits for writes
// to settle, then reads, filters and partitions the persisted payments.
// from and to are inclusive; a nil from means -inf, a nil to means now.
func (c *Coordinator) Summarize(ctx context.Context, from, to *time.Time) payments.Summary {
	if !c.ingress.Join(ctx, JoinTimeout) {
		c.logger.Warn("summary drain timed out, reporting from whatever is already persisted", "residualQueueSize", c.ingress.Len())
	}

	c.buffer.ForceFlush(ctx)
	time.Sleep(SettleDelay)

	all := c.store.GetAll(ctx)

	fromDT, toDT := resolveWindow(from, to)

	var summary payments.Summary
	for _, p := range all {
		if p.RequestedAt.Before(fromDT) || p.RequestedAt.After(toDT) {
			continue
		}
		switch p.Processor {
		case payments.ProcessorDefault:
			summary.Default.TotalRequests++
			summary.Default.TotalAmount += p.Amount
		case payments.ProcessorFallback:
			summary.Fallback.TotalRequests++
			summary.Fallback.TotalAmount += p.Amount
		}
	}
	return summary
}

func resolveWindow(from, to *time.Time) (time.Time, time.Time) {
	fromDT := time.Unix(0, 0).UTC().AddDate(-1000, 0, 0) // effectively -inf
	if from != nil {
		fromDT = *from
	}
	toDT := time.Now().UTC()
	if to != nil {
		toDT = *to
	}
	return fromDT, toDT
}
