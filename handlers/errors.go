package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stocks-simulator/ledger"
	"stocks-simulator/middleware"
	"stocks-simulator/quotes"
)

// statusOf maps a ledger error to the HTTP status reported for it.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quotes.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error. Only rejections of the request are
// described to the client.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	switch {
	case ledger.IsUserError(err):
		c.JSON(status, gin.H{"error": err.Error()})
	case status == http.StatusServiceUnavailable:
		c.Header("Retry-After", "5")
		c.JSON(status, gin.H{"error": "quote service unavailable, please try again"})
	default:
		middleware.RequestLogEntry(c, h.logger).Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error": "internal server error"})
	}
}
