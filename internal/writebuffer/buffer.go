// Package writebuffer batches successfully dispatched payments before
// handing them to durable storage.
package writebuffer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lucasgoveia/paymentgateway/internal/payments"
)

// Store is the durable batch writer the buffer flushes into.
type Store interface {
	SaveBatch(ctx context.Context, batch []payments.ProcessedPayment) error
}

// Buffer accumulates ProcessedPayments in memory and flushes them to a
// Store in batches, by size or by age. Only one flush runs at a time;
// Add serializes on mu but the storage write happens outside the
// critical section.
type Buffer struct {
	mu         sync.Mutex
	flushMu    sync.Mutex
	buffer     []payments.ProcessedPayment
	lastFlush  time.Time
	batchSize  int
	flushAfter time.Duration
	store      Store
	logger     *slog.Logger
}

// New builds a Buffer with the given batch size and flush interval.
func New(store Store, batchSize int, flushInterval time.Duration, logger *slog.Logger) *Buffer {
	return &Buffer{
		buffer:     make([]payments.ProcessedPayment, 0, batchSize),
		lastFlush:  time.Now(),
		batchSize:  batchSize,
		flushAfter: flushInterval,
		store:      store,
		logger:     logger,
	}
}

// Add appends p to the buffer, flushing immediately if the batch is now
// at or over size, or if it has aged past flushAfter.
func (b *Buffer) Add(ctx context.Context, p payments.ProcessedPayment) {
	b.mu.Lock()
	b.buffer = append(b.buffer, p)
	shouldFlush := len(b.buffer) >= b.batchSize || time.Since(b.lastFlush) > b.flushAfter
	var batch []payments.ProcessedPayment
	if shouldFlush {
		batch = b.snapshotAndClearLocked()
	}
	b.mu.Unlock()

	if batch != nil {
		b.flush(ctx, batch)
	}
}

// RunAgeFlush periodically flushes the buffer purely on age, so a
// buffer that stops receiving Add calls still flushes. It checks every
// flushAfter and flushes when more than flushAfter has passed since the
// last flush, so an item can wait up to about twice flushAfter. Runs
// until ctx is cancelled.
func (b *Buffer) RunAgeFlush(ctx context.Context) {
	ticker := time.NewTicker(b.flushAfter)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.flushIfAged(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Buffer) flushIfAged(ctx context.Context) {
	b.mu.Lock()
	var batch []payments.ProcessedPayment
	if len(b.buffer) > 0 && time.Since(b.lastFlush) > b.flushAfter {
		batch = b.snapshotAndClearLocked()
	}
	b.mu.Unlock()

	if batch != nil {
		b.flush(ctx, batch)
	}
}

// ForceFlush unconditionally flushes whatever is currently buffered.
// Used by shutdown and by the Summary Coordinator.
func (b *Buffer) ForceFlush(ctx context.Context) {
	b.mu.Lock()
	batch := b.snapshotAndClearLocked()
	b.mu.Unlock()

	if batch != nil {
		b.flush(ctx, batch)
	}
}

// snapshotAndClearLocked swaps out the accumulated slice and resets
// lastFlush. Must be called with mu held.
func (b *Buffer) snapshotAndClearLocked() []payments.ProcessedPayment {
	if len(b.buffer) == 0 {
		return nil
	}
	batch := b.buffer
	b.buffer = make([]payments.ProcessedPayment, 0, b.batchSize)
	b.lastFlush = time.Now()
	return batch
}

// flush writes batch to the store. On failure, the batch is prepended
// back onto the buffer so it is retried on a later flush, preserving
// latency for the already-waiting items.
func (b *Buffer) flush(ctx context.Context, batch []payments.ProcessedPayment) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	if err := b.store.SaveBatch(ctx, batch); err != nil {
		b.logger.Error("failed to flush payment batch, re-queueing", "batchSize", len(batch), "error", err)
		b.mu.Lock()
		b.buffer = append(batch, b.buffer...)
		b.mu.Unlock()
	}
}
