// Package memory is an in-process export target for tests and local runs
// without spreadsheet credentials.
package memory

import (
	"context"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/sheets"
)

var _ sheets.Exporter = (*Store)(nil)

type Store struct {
	mu          sync.Mutex
	journal     []sheets.JournalRow
	summary     [][]any
	generatedAt time.Time
	writes      int
}

func New() *Store {
	return &Store{}
}

func (s *Store) AppendJournal(_ context.Context, rows []sheets.JournalRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, rows...)
	return nil
}

// WriteSummary replaces the stored summary rows.
func (s *Store) WriteSummary(_ context.Context, summary core.Summary, generatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = sheets.SummaryValues(summary, generatedAt)
	s.generatedAt = generatedAt
	s.writes++
	return nil
}

// Journal returns a copy of the appended rows.
func (s *Store) Journal() []sheets.JournalRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.JournalRow(nil), s.journal...)
}

// Summary returns the last written summary rows and how many writes happened.
func (s *Store) Summary() ([][]any, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.summary...), s.writes
}
