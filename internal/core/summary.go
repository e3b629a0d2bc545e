package core

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UncategorizedName labels the group of transactions without a category.
const UncategorizedName = "Uncategorized"

type (
	SummaryGroup struct {
		CategoryID   *uuid.UUID      `json:"category_id"`
		CategoryName string          `json:"category_name"`
		Count        int             `json:"count"`
		Total        decimal.Decimal `json:"total"`
	}

	SummaryTotals struct {
		GrandTotal decimal.Decimal `json:"grand_total"`
		TxCount    int             `json:"tx_count"`
	}

	// Summary is the per-category aggregation over a date range.
	Summary struct {
		Items  []SummaryGroup `json:"items"`
		Totals SummaryTotals  `json:"totals"`
	}

	DailyTotal struct {
		Date  Date            `json:"date"`
		Total decimal.Decimal `json:"total"`
		Count int             `json:"count"`
	}

	// CategoryUsage counts the transactions referencing one category.
	CategoryUsage struct {
		CategoryID uuid.UUID `json:"category_id"`
		Name       string    `json:"name"`
		Count      int       `json:"count"`
	}
)

// DeletedCategoryName labels a group whose category no longer resolves.
func DeletedCategoryName(id uuid.UUID) string {
	return "(deleted:" + id.String() + ")"
}

type accumulator struct {
	count int
	total decimal.Decimal
}

func (a *accumulator) add(amount decimal.Decimal) {
	a.count++
	a.total = a.total.Add(amount)
}

// SummaryBuilder accumulates transactions into category groups with exact sums.
type SummaryBuilder struct {
	groups        map[uuid.UUID]*accumulator
	uncategorized *accumulator
}

func NewSummaryBuilder() *SummaryBuilder {
	return &SummaryBuilder{groups: make(map[uuid.UUID]*accumulator)}
}

func (b *SummaryBuilder) Add(t Transaction) {
	if t.CategoryID == nil {
		if b.uncategorized == nil {
			b.uncategorized = &accumulator{}
		}
		b.uncategorized.add(t.Amount)
		return
	}
	acc, ok := b.groups[*t.CategoryID]
	if !ok {
		acc = &accumulator{}
		b.groups[*t.CategoryID] = acc
	}
	acc.add(t.Amount)
}

// Build resolves group names and orders groups by name ascending
// (case-insensitive, then by id). The Uncategorized group always comes last.
func (b *SummaryBuilder) Build(names map[uuid.UUID]string) Summary {
	items := make([]SummaryGroup, 0, len(b.groups)+1)
	for id, acc := range b.groups {
		name, ok := names[id]
		if !ok {
			name = DeletedCategoryName(id)
		}
		items = append(items, SummaryGroup{
			CategoryID:   &id,
			CategoryName: name,
			Count:        acc.count,
			Total:        acc.total,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		li, lj := strings.ToLower(items[i].CategoryName), strings.ToLower(items[j].CategoryName)
		if li != lj {
			return li < lj
		}
		if items[i].CategoryName != items[j].CategoryName {
			return items[i].CategoryName < items[j].CategoryName
		}
		return items[i].CategoryID.String() < items[j].CategoryID.String()
	})
	if b.uncategorized != nil {
		items = append(items, SummaryGroup{
			CategoryName: UncategorizedName,
			Count:        b.uncategorized.count,
			Total:        b.uncategorized.total,
		})
	}

	totals := SummaryTotals{GrandTotal: decimal.Zero}
	for _, g := range items {
		totals.GrandTotal = totals.GrandTotal.Add(g.Total)
		totals.TxCount += g.Count
	}
	return Summary{Items: items, Totals: totals}
}

// DailyBuilder accumulates per-date totals.
type DailyBuilder struct {
	days map[string]*dailyAccumulator
}

type dailyAccumulator struct {
	accumulator
	date Date
}

func NewDailyBuilder() *DailyBuilder {
	return &DailyBuilder{days: make(map[string]*dailyAccumulator)}
}

func (b *DailyBuilder) Add(t Transaction) {
	key := t.Date.String()
	acc, ok := b.days[key]
	if !ok {
		acc = &dailyAccumulator{date: t.Date}
		b.days[key] = acc
	}
	acc.add(t.Amount)
}

// Build returns one entry per date, ascending.
func (b *DailyBuilder) Build() []DailyTotal {
	out := make([]DailyTotal, 0, len(b.days))
	for _, acc := range b.days {
		out = append(out, DailyTotal{Date: acc.date, Total: acc.total, Count: acc.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Compare(out[j].Date) < 0 })
	return out
}
