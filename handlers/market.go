package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocks-simulator/models"
)

func (h *Handler) GetQuote(c *gin.Context) {
	q, err := h.ledger.Quote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":        q.Symbol,
		"name":          q.Name,
		"price":         q.Price.StringFixed(2),
		"price_display": models.FormatUSD(q.Price),
	})
}
