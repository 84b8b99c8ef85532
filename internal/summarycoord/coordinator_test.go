package summarycoord

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lucasgoveia/paymentgateway/internal/payments"
)

type fakeIngress struct {
	joinResult bool
	residual   int64
}

func (f fakeIngress) Join(context.Context, time.Duration) bool { return f.joinResult }
func (f fakeIngress) Len() int64                               { return f.residual }

type fakeBuffer struct{ flushed int }

func (f *fakeBuffer) ForceFlush(context.Context) { f.flushed++ }

type fakeStore struct{ payments []payments.ProcessedPayment }

func (f fakeStore) GetAll(context.Context) []payments.ProcessedPayment { return f.payments }

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func processedAt(proc payments.Processor, amount float64, when string) payments.ProcessedPayment {
	t, _ := time.Parse(time.RFC3339, when)
	return payments.ProcessedPayment{
		Payment:   payments.Payment{CorrelationID: uuid.New(), Amount: amount, RequestedAt: t},
		Processor: proc,
	}
}

func TestSummarize_PartitionsByProcessor(t *testing.T) {
	store := fakeStore{payments: []payments.ProcessedPayment{
		processedAt(payments.ProcessorDefault, 100, "2024-01-01T00:00:00Z"),
		processedAt(payments.ProcessorFallback, 50, "2024-01-01T00:00:00Z"),
	}}
	buf := &fakeBuffer{}
	c := New(fakeIngress{joinResult: true}, buf, store, testLogger())

	summary := c.Summarize(context.Background(), nil, nil)

	assert.Equal(t, int64(1), summary.Default.TotalRequests)
	assert.Equal(t, 100.0, summary.Default.TotalAmount)
	assert.Equal(t, int64(1), summary.Fallback.TotalRequests)
	assert.Equal(t, 50.0, summary.Fallback.TotalAmount)
	assert.Equal(t, 1, buf.flushed)
}

func TestSummarize_FiltersByInclusiveWindow(t *testing.T) {
	store := fakeStore{payments: []payments.ProcessedPayment{
		processedAt(payments.ProcessorDefault, 10, "2024-01-01T00:00:00Z"),
		processedAt(payments.ProcessorDefault, 20, "2024-01-03T00:00:00Z"),
	}}
	c := New(fakeIngress{joinResult: true}, &fakeBuffer{}, store, testLogger())

	from, _ := time.Parse(time.RFC3339, "2024-01-02T00:00:00Z")
	to, _ := time.Parse(time.RFC3339, "2024-01-04T00:00:00Z")

	summary := c.Summarize(context.Background(), &from, &to)

	assert.Equal(t, int64(1), summary.Default.TotalRequests)
	assert.Equal(t, 20.0, summary.Default.TotalAmount)
}

func TestSummarize_BoundaryTimestampsAreIncluded(t *testing.T) {
	store := fakeStore{payments: []payments.ProcessedPayment{
		processedAt(payments.ProcessorDefault, 5, "2024-01-02T00:00:00Z"),
	}}
	c := New(fakeIngress{joinResult: true}, &fakeBuffer{}, store, testLogger())

	from, _ := time.Parse(time.RFC3339, "2024-01-02T00:00:00Z")
	to, _ := time.Parse(time.RFC3339, "2024-01-02T00:00:00Z")

	summary := c.Summarize(context.Background(), &from, &to)

	assert.Equal(t, int64(1), summary.Default.TotalRequests)
}

func TestSummarize_ProceedsAfterJoinTimeout(t *testing.T) {
	store := fakeStore{payments: []payments.ProcessedPayment{
		processedAt(payments.ProcessorDefault, 5, "2024-01-01T00:00:00Z"),
	}}
	c := New(fakeIngress{joinResult: false, residual: 3}, &fakeBuffer{}, store, testLogger())

	summary := c.Summarize(context.Background(), nil, nil)

	assert.Equal(t, int64(1), summary.Default.TotalRequests)
}

func TestSummarize_EmptyStoreYieldsZeroes(t *testing.T) {
	c := New(fakeIngress{joinResult: true}, &fakeBuffer{}, fakeStore{}, testLogger())

	summary := c.Summarize(context.Background(), nil, nil)

	assert.Equal(t, payments.Summary{}, summary)
}
