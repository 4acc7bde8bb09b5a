package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockPrice is a price snapshot taken when a portfolio is revalued.
type StockPrice struct {
	ID        uint            `gorm:"primaryKey"`
	Symbol    string          `gorm:"index;size:16;not null"`
	Price     decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Timestamp time.Time       `gorm:"index;not null"`
}
