package queue

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgoveia/paymentgateway/internal/payments"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngress_AddAndGet(t *testing.T) {
	q := NewIngress(2, testLogger())

	p := payments.Payment{CorrelationID: uuid.New(), Amount: 10}
	require.True(t, q.Add(p))

	got, ok := q.Get(context.Background(), time.Second)
	require.True(t, ok)
	assert.Equal(t, p.CorrelationID, got.CorrelationID)
}

func TestIngress_DropsOnOverflow(t *testing.T) {
	q := NewIngress(1, testLogger())

	require.True(t, q.Add(payments.Payment{CorrelationID: uuid.New()}))
	require.False(t, q.Add(payments.Payment{CorrelationID: uuid.New()}))
}

func TestIngress_GetTimesOutWhenEmpty(t *testing.T) {
	q := NewIngress(1, testLogger())

	_, ok := q.Get(context.Background(), 10*time.Millisecond)
	assert.False(t, ok)
}

func TestIngress_JoinWaitsForDone(t *testing.T) {
	q := NewIngress(4, testLogger())
	q.Add(payments.Payment{CorrelationID: uuid.New()})
	q.Add(payments.Payment{CorrelationID: uuid.New()})

	go func() {
		for i := 0; i < 2; i++ {
			q.Get(context.Background(), time.Second)
			time.Sleep(5 * time.Millisecond)
			q.Done()
		}
	}()

	joined := q.Join(context.Background(), time.Second)
	assert.True(t, joined)
	assert.Equal(t, int64(0), q.Len())
}

func TestIngress_JoinTimesOutWithResidual(t *testing.T) {
	q := NewIngress(4, testLogger())
	q.Add(payments.Payment{CorrelationID: uuid.New()})

	joined := q.Join(context.Background(), 30*time.Millisecond)
	assert.False(t, joined)
	assert.Equal(t, int64(1), q.Len())
}
