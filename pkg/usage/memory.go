package usage

import (
	"context"
	"sync"

	"github.com/weiche-dev/weiche/pkg/api"
)

// MemoryLedger keeps usage records in process memory. Intended for
// tests, demos, and single-binary deployments.
type MemoryLedger struct {
	mu      sync.Mutex
	records []Record
}

// Ensure MemoryLedger implements Ledger at compile time.
var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Record implements Ledger.
func (l *MemoryLedger) Record(ctx context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

// ProviderTotals implements Ledger.
func (l *MemoryLedger) ProviderTotals(ctx context.Context) (map[string]api.Usage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	totals := make(map[string]api.Usage)
	for _, rec := range l.records {
		u := totals[rec.Provider]
		u.InputTokens += rec.InputTokens
		u.OutputTokens += rec.OutputTokens
		u.TotalTokens += rec.TotalTokens
		totals[rec.Provider] = u
	}
	return totals, nil
}

// Records returns a copy of all recorded entries, in insertion order.
func (l *MemoryLedger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}
