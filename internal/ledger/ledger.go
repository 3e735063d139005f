// Package ledger persists the append-only record of completed uploads. The
// production store is an embedded SQLite database; MemoryStore backs tests.
// Records are immutable once appended and there is no deletion path — the
// ledger is the bot's sole history.
package ledger

import (
	"context"
	"sync"
	"time"
)

// Record is one completed upload. FileID is the provider-assigned
// identifier; Link is the shareable URL returned to the chat user.
type Record struct {
	ID         int64
	Name       string
	FileID     string
	Link       string
	Size       int64
	UploadedAt time.Time
}

// Store is the upload ledger. Append must be called only after the upload
// and the share grant both succeeded. ListAll returns the full history in
// insertion order.
type Store interface {
	Append(ctx context.Context, rec Record) error
	ListAll(ctx context.Context) ([]Record, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	nextID  int64
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, rec)

	return nil
}

// ListAll implements Store. The returned slice is a copy.
func (m *MemoryStore) ListAll(context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, len(m.records))
	copy(out, m.records)

	return out, nil
}

// Count implements Store.
func (m *MemoryStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.records)), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}
