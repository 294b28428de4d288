package quota

import (
	"context"
	"sync"
	"time"

	"github.com/avelikov/echogate/internal/domain"
)

// MemoryLedger is an in-process Ledger. Used for store=memory mode and
// in tests; counts do not survive a restart.
type MemoryLedger struct {
	mu      sync.Mutex
	cap     int
	records map[domain.Identity]*domain.UsageRecord
}

// NewMemoryLedger creates an empty ledger with the given prompt cap for
// new records.
func NewMemoryLedger(cap int) *MemoryLedger {
	if cap <= 0 {
		cap = domain.DefaultPromptCap
	}
	return &MemoryLedger{
		cap:     cap,
		records: make(map[domain.Identity]*domain.UsageRecord),
	}
}

func (l *MemoryLedger) Get(ctx context.Context, id domain.Identity) (domain.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.getOrCreate(id)
	rec.LastSeenAt = time.Now()
	return *rec, nil
}

func (l *MemoryLedger) Exists(ctx context.Context, id domain.Identity) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[id]
	return ok, nil
}

func (l *MemoryLedger) CanSendPrompt(ctx context.Context, id domain.Identity) (bool, domain.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.getOrCreate(id)
	return rec.PromptCount < rec.Cap, *rec, nil
}

func (l *MemoryLedger) Increment(ctx context.Context, id domain.Identity) (domain.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.getOrCreate(id)
	if rec.PromptCount >= rec.Cap {
		return *rec, ErrQuotaExceeded
	}
	rec.PromptCount++
	rec.LastSeenAt = time.Now()
	return *rec, nil
}

// getOrCreate must be called with the mutex held.
func (l *MemoryLedger) getOrCreate(id domain.Identity) *domain.UsageRecord {
	if rec, ok := l.records[id]; ok {
		return rec
	}
	now := time.Now()
	rec := &domain.UsageRecord{
		Identity:   id,
		Cap:        l.cap,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	l.records[id] = rec
	return rec
}
