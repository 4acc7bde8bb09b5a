package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a portfolio entry: how many shares of Symbol an account owns.
// A holding exists only while Shares >= 1.
type Holding struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"uniqueIndex:idx_portfolio_user_symbol;not null" json:"-"`
	CompanyName string          `gorm:"not null" json:"company_name"`
	Symbol      string          `gorm:"uniqueIndex:idx_portfolio_user_symbol;size:16;not null" json:"symbol"`
	Shares      int64           `gorm:"not null" json:"shares"`
	Price       decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"price"`
	TotalValue  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_value"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Holding) TableName() string {
	return "portfolio"
}

// Revalue sets the last known price and recomputes the total value.
func (h *Holding) Revalue(price decimal.Decimal) {
	h.Price = price
	h.TotalValue = price.Mul(decimal.NewFromInt(h.Shares))
}

type TransactionType string

const (
	Buy  TransactionType = "Buy"
	Sell TransactionType = "Sell"
)

// Transaction is an append-only record of a completed trade.
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id" csv:"id"`
	UserID      uint            `gorm:"index;not null" json:"-" csv:"-"`
	CompanyName string          `gorm:"not null" json:"company_name" csv:"company_name"`
	Symbol      string          `gorm:"size:16;not null" json:"symbol" csv:"symbol"`
	Shares      int64           `gorm:"not null" json:"shares" csv:"shares"`
	Price       decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"price" csv:"price"`
	Type        TransactionType `gorm:"size:8;not null" json:"type" csv:"type"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at" csv:"created_at"`
}

func (Transaction) TableName() string {
	return "transaction_history"
}

// Total is the cash moved by the trade.
func (t Transaction) Total() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares))
}
