// Package payments holds the domain types shared across ingestion,
// dispatch and persistence.
package payments

import (
	"time"

	"github.com/google/uuid"
)

type Processor string

const (
	ProcessorDefault  Processor = "default"
	ProcessorFallback Processor = "fallback"
)

// Other returns the processor on the other side of the pair.
func (p Processor) Other() Processor {
	if p == ProcessorDefault {
		return ProcessorFallback
	}
	return ProcessorDefault
}

type Payment struct {
	CorrelationID uuid.UUID `json:"correlationId"`
	Amount        float64   `json:"amount"`
	RequestedAt   time.Time `json:"requestedAt"`
}

type ProcessedPayment struct {
	Payment
	Processor Processor
}

// RetryEntry carries the attempt count alongside the payment so the
// retry backoff can key off it. The attempts cap is enforced by the
// retry queue's own per-correlation-identifier counter.
type RetryEntry struct {
	Payment
	Attempts int
}
