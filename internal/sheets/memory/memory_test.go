package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
	"expenses/internal/sheets"
)

func TestStore_AppendJournal(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.AppendJournal(ctx, []sheets.JournalRow{{Event: "transaction.created"}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendJournal(ctx, []sheets.JournalRow{{Event: "category.deleted"}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows := s.Journal()
	if len(rows) != 2 || rows[1].Event != "category.deleted" {
		t.Fatalf("unexpected journal %+v", rows)
	}
	rows[0].Event = "mutated"
	if s.Journal()[0].Event != "transaction.created" {
		t.Fatal("Journal must return a copy")
	}
}

func TestStore_WriteSummaryReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)

	first := core.Summary{
		Items:  []core.SummaryGroup{{CategoryName: "Food", Count: 2, Total: decimal.RequireFromString("12.50")}},
		Totals: core.SummaryTotals{GrandTotal: decimal.RequireFromString("12.50"), TxCount: 2},
	}
	if err := s.WriteSummary(ctx, first, at); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteSummary(ctx, core.Summary{Totals: core.SummaryTotals{GrandTotal: decimal.Zero}}, at); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, writes := s.Summary()
	if writes != 2 {
		t.Errorf("writes = %d", writes)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header rows and totals only, got %v", rows)
	}
	if rows[2][0] != "Total" || rows[2][2] != "0" {
		t.Errorf("unexpected totals row %v", rows[2])
	}
}
