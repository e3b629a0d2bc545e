package sheets

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

func TestJournalRowValues(t *testing.T) {
	at := time.Date(2024, 1, 5, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	row := JournalRow{Timestamp: at, Event: "transaction.created", Amount: "12.30"}

	values := row.Values()
	if len(values) != len(JournalHeader) {
		t.Fatalf("got %d cells, header has %d", len(values), len(JournalHeader))
	}
	if values[0] != "2024-01-05T09:00:00Z" {
		t.Errorf("timestamp = %v", values[0])
	}
	if values[5] != "12.30" {
		t.Errorf("amount = %v", values[5])
	}
}

func TestSummaryValues(t *testing.T) {
	id := uuid.New()
	s := core.Summary{
		Items: []core.SummaryGroup{
			{CategoryID: &id, CategoryName: "Food", Count: 1, Total: decimal.RequireFromString("50000")},
			{CategoryName: core.UncategorizedName, Count: 2, Total: decimal.RequireFromString("0.30")},
		},
		Totals: core.SummaryTotals{GrandTotal: decimal.RequireFromString("50000.30"), TxCount: 3},
	}

	rows := SummaryValues(s, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if len(rows) != 5 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[2][0] != "Food" || rows[2][2] != "50000" {
		t.Errorf("food row = %v", rows[2])
	}
	if rows[3][0] != core.UncategorizedName {
		t.Errorf("uncategorized row = %v", rows[3])
	}
	if rows[4][1] != 3 || rows[4][2] != "50000.3" {
		t.Errorf("totals row = %v", rows[4])
	}
}

func TestSummaryValuesEscapesFormulaNames(t *testing.T) {
	s := core.Summary{
		Items: []core.SummaryGroup{
			{CategoryName: `=IMPORTXML("http://x", "//a")`, Count: 1, Total: decimal.RequireFromString("1")},
			{CategoryName: "+1", Count: 1, Total: decimal.RequireFromString("-2")},
			{CategoryName: "Food", Count: 1, Total: decimal.RequireFromString("3")},
		},
	}

	rows := SummaryValues(s, time.Now())
	if rows[2][0] != `'=IMPORTXML("http://x", "//a")` {
		t.Errorf("formula name not escaped: %v", rows[2][0])
	}
	if rows[3][0] != "'+1" {
		t.Errorf("plus name not escaped: %v", rows[3][0])
	}
	if rows[3][2] != "-2" {
		t.Errorf("negative total must stay numeric text: %v", rows[3][2])
	}
	if rows[4][0] != "Food" {
		t.Errorf("plain name changed: %v", rows[4][0])
	}
}

func TestLiteralText(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"Food":     "Food",
		"-refunds": "'-refunds",
		"@handle":  "'@handle",
		"a=b":      "a=b",
		"\t=cmd":   "'\t=cmd",
	}
	for in, want := range tests {
		if got := LiteralText(in); got != want {
			t.Errorf("LiteralText(%q) = %q, want %q", in, got, want)
		}
	}
}
