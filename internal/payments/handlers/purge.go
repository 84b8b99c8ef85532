package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Purger is the subset of payments.Store the handler depends on.
type Purger interface {
	Purge(ctx context.Context) int64
}

// PurgeHandler serves POST /purge-payments.
type PurgeHandler struct {
	store Purger
}

func NewPurgeHandler(store Purger) *PurgeHandler {
	return &PurgeHandler{store: store}
}

func (h *PurgeHandler) Handle(c echo.Context) error {
	h.store.Purge(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"message": "Payments purged"})
}
