// Package health tracks upstream processor health and mirrors it to an
// external cache for observability.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lucasgoveia/paymentgateway/internal/payments"
)

// Snapshot is the latest observed health of one processor.
type Snapshot struct {
	Failing         bool    `json:"failing"`
	MinResponseTime float64 `json:"minResponseTime"`
}

func unknownSnapshot() Snapshot {
	return Snapshot{Failing: true, MinResponseTime: math.Inf(1)}
}

type table struct {
	snapshots map[payments.Processor]Snapshot
}

// Monitor probes both upstream processors on a timer and exposes a
// non-blocking, lock-free selector of the best processor for the
// Dispatcher to use.
type Monitor struct {
	httpClient *http.Client
	cache      *redis.Client
	logger     *slog.Logger

	probeInterval time.Duration
	probeTimeout  time.Duration

	urls map[payments.Processor]string

	current atomic.Pointer[table]
}

// NewMonitor builds a Monitor with both snapshots unknown until the
// first probe completes.
func NewMonitor(httpClient *http.Client, cache *redis.Client, logger *slog.Logger, defaultURL, fallbackURL string, probeInterval, probeTimeout time.Duration) *Monitor {
	m := &Monitor{
		httpClient:    httpClient,
		cache:         cache,
		logger:        logger,
		probeInterval: probeInterval,
		probeTimeout:  probeTimeout,
		urls: map[payments.Processor]string{
			payments.ProcessorDefault:  defaultURL,
			payments.ProcessorFallback: fallbackURL,
		},
	}
	m.current.Store(&table{snapshots: map[payments.Processor]Snapshot{
		payments.ProcessorDefault:  unknownSnapshot(),
		payments.ProcessorFallback: unknownSnapshot(),
	}})
	return m
}

// Run probes both processors immediately and then every probeInterval,
// until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.probeAll(ctx)

	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probeAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probeAll(ctx context.Context) {
	m.probeOne(ctx, payments.ProcessorDefault)
	m.probeOne(ctx, payments.ProcessorFallback)
}

func (m *Monitor) probeOne(ctx context.Context, proc payments.Processor) {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	snapshot := m.probe(probeCtx, proc)
	m.update(proc, snapshot)
	m.mirror(ctx, proc, snapshot)
}

func (m *Monitor) probe(ctx context.Context, proc payments.Processor) Snapshot {
	url := m.urls[proc] + "/payments/service-health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		m.logger.Error("failed to build health probe request", "processor", proc, "error", err)
		return unknownSnapshot()
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return unknownSnapshot()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unknownSnapshot()
	}

	var snapshot Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		m.logger.Error("failed to decode health probe response", "processor", proc, "error", err)
		return unknownSnapshot()
	}
	return snapshot
}

func (m *Monitor) update(proc payments.Processor, snapshot Snapshot) {
	prev := m.current.Load()
	next := &table{snapshots: map[payments.Processor]Snapshot{
		payments.ProcessorDefault:  prev.snapshots[payments.ProcessorDefault],
		payments.ProcessorFallback: prev.snapshots[payments.ProcessorFallback],
	}}
	next.snapshots[proc] = snapshot
	m.current.Store(next)
}

func (m *Monitor) mirror(ctx context.Context, proc payments.Processor, snapshot Snapshot) {
	if m.cache == nil {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := m.cache.Set(ctx, "health_"+string(proc), data, 0).Err(); err != nil {
		m.logger.Debug("failed to mirror health snapshot to cache", "processor", proc, "error", err)
	}
}

// Snapshot returns the current in-memory health of one processor. A
// stale read is acceptable; the call never blocks.
func (m *Monitor) Snapshot(proc payments.Processor) Snapshot {
	return m.current.Load().snapshots[proc]
}

// ChooseBestProcessor is a pure function of the current snapshot table:
// it returns "default" when default is healthy and at least as fast as
// fallback (or fallback is failing), "fallback" when only fallback is
// healthy, and "default" otherwise as an optimistic retry through the
// preferred processor.
func (m *Monitor) ChooseBestProcessor() payments.Processor {
	t := m.current.Load()
	def := t.snapshots[payments.ProcessorDefault]
	fallback := t.snapshots[payments.ProcessorFallback]

	if !def.Failing && (fallback.Failing || def.MinResponseTime <= fallback.MinResponseTime) {
		return payments.ProcessorDefault
	}
	if !fallback.Failing {
		return payments.ProcessorFallback
	}
	return payments.ProcessorDefault
}
