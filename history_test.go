package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocks-simulator/models"
)

var testRecords = []models.Transaction{
	{ID: 2, Symbol: "AAPL", CompanyName: "Apple Inc", Shares: 10, Price: decimal.NewFromInt(160), Type: models.Sell,
		CreatedAt: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)},
	{ID: 1, Symbol: "AAPL", CompanyName: "Apple Inc", Shares: 10, Price: decimal.NewFromInt(150), Type: models.Buy,
		CreatedAt: time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)},
}

func TestWriteHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	writeHistoryTable(&buf, testRecords)

	out := buf.String()
	assert.Contains(t, out, "Symbol")
	assert.Contains(t, out, "$1,600.00")
	assert.Contains(t, out, "$150.00")
	assert.Contains(t, out, "2024-03-01 15:30:00")
	assert.Less(t, strings.Index(out, "Sell"), strings.Index(out, "Buy"))
}

func TestWriteHistoryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHistoryCSV(&buf, testRecords))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,company_name,symbol,shares,price,type,created_at", lines[0])
	assert.Equal(t, "1,Apple Inc,AAPL,10,150,Buy,2024-03-01T15:30:00Z", lines[2])
}
