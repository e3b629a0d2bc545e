// Package sheets defines the spreadsheet export ports used by the worker
// and the row layouts shared by every adapter.
package sheets

import (
	"context"
	"time"

	"expenses/internal/core"
)

// Ports for outbound adapters.
type (
	// JournalWriter appends ledger activity rows.
	JournalWriter interface {
		AppendJournal(ctx context.Context, rows []JournalRow) error
	}

	// SummaryWriter replaces the summary tab with a fresh report.
	SummaryWriter interface {
		WriteSummary(ctx context.Context, summary core.Summary, generatedAt time.Time) error
	}

	Exporter interface {
		JournalWriter
		SummaryWriter
	}
)

// JournalHeader names the journal columns in order.
var JournalHeader = []any{"Timestamp", "Event", "Transaction", "Date", "Description", "Amount", "Category", "Detail"}

// JournalRow is one ledger event flattened for a spreadsheet.
type JournalRow struct {
	Timestamp     time.Time
	Event         string
	TransactionID string
	Date          string
	Description   string
	Amount        string
	CategoryID    string
	Detail        string
}

// Values returns the row cells in JournalHeader order.
func (r JournalRow) Values() []any {
	return []any{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Event,
		r.TransactionID,
		r.Date,
		r.Description,
		r.Amount,
		r.CategoryID,
		r.Detail,
	}
}

// SummaryValues lays a summary out as a header, one row per group and a
// trailing totals row.
func SummaryValues(summary core.Summary, generatedAt time.Time) [][]any {
	rows := make([][]any, 0, len(summary.Items)+3)
	rows = append(rows, []any{"Generated", generatedAt.UTC().Format(time.RFC3339)})
	rows = append(rows, []any{"Category", "Count", "Total"})
	for _, g := range summary.Items {
		rows = append(rows, []any{LiteralText(g.CategoryName), g.Count, g.Total.String()})
	}
	rows = append(rows, []any{"Total", summary.Totals.TxCount, summary.Totals.GrandTotal.String()})
	return rows
}

// LiteralText keeps user text from being evaluated as a formula when the
// summary is written with USER_ENTERED input. Text starting with a formula
// trigger gets a leading apostrophe, which Sheets hides.
func LiteralText(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
