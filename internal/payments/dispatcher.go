package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrDispatchFailed means neither processor accepted the payment.
var ErrDispatchFailed = errors.New("both processors rejected the payment")

// HealthSelector chooses which processor to try first.
type HealthSelector interface {
	ChooseBestProcessor() Processor
}

// DispatchTimeout bounds a single upstream POST attempt.
const DispatchTimeout = 10 * time.Second

// Dispatcher sends one payment to the upstream processors, preferring
// whichever the HealthSelector currently favors and falling back to the
// other on failure. It never retries internally; retry is the worker's
// responsibility.
type Dispatcher struct {
	httpClient *http.Client
	health     HealthSelector
	urls       map[Processor]string
}

// NewDispatcher builds a Dispatcher over the two processor base URLs.
func NewDispatcher(httpClient *http.Client, health HealthSelector, defaultURL, fallbackURL string) *Dispatcher {
	return &Dispatcher{
		httpClient: httpClient,
		health:     health,
		urls: map[Processor]string{
			ProcessorDefault:  defaultURL,
			ProcessorFallback: fallbackURL,
		},
	}
}

// Dispatch attempts the preferred processor first, then the other one
// on failure. It returns the ProcessedPayment on success, or
// ErrDispatchFailed if both processors rejected the payment.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payment) (ProcessedPayment, error) {
	tracer := otel.Tracer("dispatcher")
	ctx, span := tracer.Start(ctx, "dispatch-payment", trace.WithAttributes(
		attribute.String("payment.correlation_id", p.CorrelationID.String()),
	))
	defer span.End()

	primary := d.health.ChooseBestProcessor()
	if d.send(ctx, primary, p) {
		span.SetAttributes(attribute.String("processor.used", string(primary)))
		return ProcessedPayment{Payment: p, Processor: primary}, nil
	}

	alternate := primary.Other()
	if d.send(ctx, alternate, p) {
		span.SetAttributes(attribute.String("processor.used", string(alternate)))
		return ProcessedPayment{Payment: p, Processor: alternate}, nil
	}

	span.SetStatus(codes.Error, "both processors rejected the payment")
	return ProcessedPayment{}, ErrDispatchFailed
}

// send POSTs p to proc's /payments endpoint. Only HTTP 200 counts as
// success; any other status or transport error is a failure.
func (d *Dispatcher) send(ctx context.Context, proc Processor, p Payment) bool {
	ctx, cancel := context.WithTimeout(ctx, DispatchTimeout)
	defer cancel()

	tracer := otel.Tracer("dispatcher")
	ctx, span := tracer.Start(ctx, "call-processor", trace.WithAttributes(
		attribute.String("processor", string(proc)),
	))
	defer span.End()

	body, err := json.Marshal(p)
	if err != nil {
		span.RecordError(err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.urls[proc]+"/payments", bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return false
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "non-200 response")
		return false
	}

	span.SetStatus(codes.Ok, "")
	return true
}
