// Package handlers holds the echo HTTP handlers for the client-facing
// API: ingesting payments, reporting a summary, and purging storage.
package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lucasgoveia/paymentgateway/internal/payments"
)

// Ingress is the subset of queue.Ingress the payment handler depends on.
type Ingress interface {
	Add(p payments.Payment) bool
}

// PaymentHandler accepts payment requests and enqueues them for
// asynchronous processing.
type PaymentHandler struct {
	ingress Ingress
}

func NewPaymentHandler(ingress Ingress) *PaymentHandler {
	return &PaymentHandler{ingress: ingress}
}

type paymentRequest struct {
	CorrelationID uuid.UUID  `json:"correlationId"`
	Amount        float64    `json:"amount"`
	RequestedAt   *time.Time `json:"requestedAt"`
}

// Handle enqueues the payment. The client gets no per-payment
// completion signal; the "queued" response is returned optimistically
// even when the ingress queue happens to be full and the payment gets
// dropped.
func (h *PaymentHandler) Handle(c echo.Context) error {
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment payload"})
	}

	requestedAt := time.Now().UTC()
	if req.RequestedAt != nil {
		requestedAt = req.RequestedAt.UTC()
	}

	h.ingress.Add(payments.Payment{
		CorrelationID: req.CorrelationID,
		Amount:        req.Amount,
		RequestedAt:   requestedAt,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Payment queued"})
}
