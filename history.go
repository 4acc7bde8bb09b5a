package main

import (
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"

	"stocks-simulator/models"
)

func writeHistoryTable(w io.Writer, records []models.Transaction) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Type", "Symbol", "Name", "Shares", "Price", "Total", "Time"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, r := range records {
		table.Append([]string{
			string(r.Type),
			r.Symbol,
			r.CompanyName,
			strconv.FormatInt(r.Shares, 10),
			models.FormatUSD(r.Price),
			models.FormatUSD(r.Total()),
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

func writeHistoryCSV(w io.Writer, records []models.Transaction) error {
	return gocsv.Marshal(&records, w)
}
