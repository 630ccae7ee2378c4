// Package memory is an in-memory ReportWriter for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.CycleReport
}

func New() *Store {
	return &Store{}
}

// Append stores the report and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r core.CycleReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Reports returns a copy of everything appended so far.
func (s *Store) Reports() []core.CycleReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.CycleReport(nil), s.items...)
}
