package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"

	"stocks-simulator/ledger"
	"stocks-simulator/middleware"
	"stocks-simulator/models"
)

type TradeInput struct {
	Symbol string `form:"symbol" json:"symbol"`
	// Shares is kept as text so the ledger reports malformed counts.
	Shares ShareCount `form:"shares" json:"shares"`
}

// ShareCount holds the raw share count from a form field, a JSON string or
// a JSON number.
type ShareCount string

func (s *ShareCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = ShareCount(text)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = ShareCount(n)
	return nil
}

type positionResponse struct {
	Symbol       string `json:"symbol"`
	CompanyName  string `json:"company_name"`
	Shares       int64  `json:"shares"`
	Price        string `json:"price"`
	PriceDisplay string `json:"price_display"`
	Total        string `json:"total"`
	TotalDisplay string `json:"total_display"`
	Stale        bool   `json:"stale"`
}

type portfolioResponse struct {
	Username        string             `json:"username"`
	Positions       []positionResponse `json:"positions"`
	Cash            string             `json:"cash"`
	CashDisplay     string             `json:"cash_display"`
	NetWorth        string             `json:"net_worth"`
	NetWorthDisplay string             `json:"net_worth_display"`
}

func newPortfolioResponse(s ledger.Summary) portfolioResponse {
	resp := portfolioResponse{
		Username:        s.Username,
		Positions:       make([]positionResponse, 0, len(s.Positions)),
		Cash:            s.Cash.StringFixed(2),
		CashDisplay:     models.FormatUSD(s.Cash),
		NetWorth:        s.NetWorth.StringFixed(2),
		NetWorthDisplay: models.FormatUSD(s.NetWorth),
	}
	for _, p := range s.Positions {
		resp.Positions = append(resp.Positions, positionResponse{
			Symbol:       p.Symbol,
			CompanyName:  p.CompanyName,
			Shares:       p.Shares,
			Price:        p.Price.StringFixed(2),
			PriceDisplay: models.FormatUSD(p.Price),
			Total:        p.TotalValue.StringFixed(2),
			TotalDisplay: models.FormatUSD(p.TotalValue),
			Stale:        p.Stale,
		})
	}
	return resp
}

type transactionResponse struct {
	ID           uint   `json:"id"`
	Type         string `json:"type"`
	Symbol       string `json:"symbol"`
	CompanyName  string `json:"company_name"`
	Shares       int64  `json:"shares"`
	Price        string `json:"price"`
	PriceDisplay string `json:"price_display"`
	Total        string `json:"total"`
	TotalDisplay string `json:"total_display"`
	Time         string `json:"time"`
}

func newTransactionResponse(t models.Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		Type:         string(t.Type),
		Symbol:       t.Symbol,
		CompanyName:  t.CompanyName,
		Shares:       t.Shares,
		Price:        t.Price.StringFixed(2),
		PriceDisplay: models.FormatUSD(t.Price),
		Total:        t.Total().StringFixed(2),
		TotalDisplay: models.FormatUSD(t.Total()),
		Time:         t.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	summary, err := h.ledger.Portfolio(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPortfolioResponse(summary))
}

func (h *Handler) Buy(c *gin.Context) {
	h.trade(c, h.ledger.Buy, "Bought!")
}

func (h *Handler) Sell(c *gin.Context) {
	h.trade(c, h.ledger.Sell, "Sold!")
}

type tradeFunc func(ctx context.Context, accountID uint, symbol, shares string) (models.Transaction, error)

func (h *Handler) trade(c *gin.Context, do tradeFunc, message string) {
	var input TradeInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := do(c.Request.Context(), middleware.AccountID(c), input.Symbol, string(input.Shares))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     message,
		"transaction": newTransactionResponse(record),
	})
}

func (h *Handler) GetHistory(c *gin.Context) {
	records, err := h.ledger.History(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]transactionResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, newTransactionResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

// GetHistoryCSV sends the transaction history as a CSV attachment.
func (h *Handler) GetHistoryCSV(c *gin.Context) {
	records, err := h.ledger.History(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	body, err := gocsv.MarshalBytes(&records)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="history.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}
