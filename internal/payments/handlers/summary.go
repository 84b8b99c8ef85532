package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/lucasgoveia/paymentgateway/internal/payments"
)

// Coordinator is the subset of summarycoord.Coordinator the handler
// depends on.
type Coordinator interface {
	Summarize(ctx context.Context, from, to *time.Time) payments.Summary
}

// SummaryHandler serves GET /payments-summary.
type SummaryHandler struct {
	coordinator Coordinator
}

func NewSummaryHandler(coordinator Coordinator) *SummaryHandler {
	return &SummaryHandler{coordinator: coordinator}
}

func (h *SummaryHandler) Handle(c echo.Context) error {
	from, err := parseWindowParam(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid 'from' timestamp"})
	}
	to, err := parseWindowParam(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid 'to' timestamp"})
	}

	summary := h.coordinator.Summarize(c.Request().Context(), from, to)

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c.Response().WriteHeader(http.StatusOK)
	return sonic.ConfigFastest.NewEncoder(c.Response()).Encode(summary)
}

// parseWindowParam parses an ISO-8601 timestamp, treating a trailing
// "Z" as UTC. An empty string yields a nil bound.
func parseWindowParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
