// Package workerpool runs the fixed set of concurrent consumers that
// pull from the ingress and retry queues and invoke the Dispatcher.
package workerpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lucasgoveia/paymentgateway/internal/payments"
	"github.com/lucasgoveia/paymentgateway/internal/queue"
	"github.com/lucasgoveia/paymentgateway/internal/writebuffer"
)

const (
	pollTimeout  = time.Second
	retryBackoffMin = 100 * time.Millisecond
	retryBackoffMax = time.Second
)

// DefaultPoolSize is the number of concurrent ingress workers.
const DefaultPoolSize = 10

// Dispatcher is the subset of payments.Dispatcher the pool depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, p payments.Payment) (payments.ProcessedPayment, error)
}

// Pool runs size ingress workers plus one retry worker, all
// sharing one Dispatcher and one outbound HTTP client via it.
type Pool struct {
	ingress    *queue.Ingress
	retry      *queue.Retry
	dispatcher Dispatcher
	buffer     *writebuffer.Buffer
	logger     *slog.Logger
	size       int

	backoff func(attempts int) time.Duration
}

// New builds a Pool of the given size (DefaultPoolSize if size <= 0).
func New(ingress *queue.Ingress, retry *queue.Retry, dispatcher Dispatcher, buffer *writebuffer.Buffer, logger *slog.Logger, size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{
		ingress:    ingress,
		retry:      retry,
		dispatcher: dispatcher,
		buffer:     buffer,
		logger:     logger,
		size:       size,
		backoff:    linearBackoff,
	}
}

func linearBackoff(attempts int) time.Duration {
	d := retryBackoffMin * time.Duration(attempts)
	if d > retryBackoffMax {
		return retryBackoffMax
	}
	if d < retryBackoffMin {
		return retryBackoffMin
	}
	return d
}

// Run starts the ingress workers and the retry worker, blocking until
// ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runIngressWorker(ctx, id)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.runRetryWorker(ctx)
	}()

	wg.Wait()
}

func (p *Pool) runIngressWorker(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}
		payment, ok := p.ingress.Get(ctx, pollTimeout)
		if !ok {
			continue
		}
		if p.process(ctx, payment) {
			p.ingress.Done()
		}
	}
}

func (p *Pool) runRetryWorker(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		entry, ok := p.retry.Get(ctx, pollTimeout)
		if !ok {
			continue
		}
		select {
		case <-time.After(p.backoff(entry.Attempts)):
		case <-ctx.Done():
			return
		}
		if p.process(ctx, entry.Payment) {
			p.ingress.Done()
		}
	}
}

// process dispatches one payment and reports whether it reached a
// terminal state: successfully buffered, or permanently dropped because
// the retry queue rejected it (attempts exhausted or queue full). When
// it returns false the payment has been handed to the retry queue and
// remains in flight, so the caller must not mark it done yet.
func (p *Pool) process(ctx context.Context, payment payments.Payment) bool {
	processed, err := p.dispatcher.Dispatch(ctx, payment)
	if err != nil {
		if !errors.Is(err, payments.ErrDispatchFailed) {
			p.logger.Error("unexpected dispatch error", "correlationId", payment.CorrelationID, "error", err)
		}
		return !p.retry.Offer(payment)
	}
	p.buffer.Add(ctx, processed)
	return true
}
