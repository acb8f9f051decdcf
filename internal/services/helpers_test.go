package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/macrolog-backend/internal/models"
	"github.com/AnshRaj112/macrolog-backend/internal/store"
)

var errBoom = errors.New("boom")

// plainStore hides the Incrementer of the wrapped store so the ledger falls
// back to read-modify-write.
type plainStore struct {
	store.Store
}

// faultyStore fails reads or writes for the listed collections.
type faultyStore struct {
	store.Store
	failGet map[string]bool
	failSet map[string]bool
}

func (f *faultyStore) Get(ctx context.Context, key store.Key) (store.Document, error) {
	if f.failGet[key.Collection] {
		return nil, errBoom
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyStore) Set(ctx context.Context, key store.Key, fields store.Document, merge bool) error {
	if f.failSet[key.Collection] {
		return errBoom
	}
	return f.Store.Set(ctx, key, fields, merge)
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []models.DailyMacroRecord
	err     error
}

func (p *recordingPublisher) PublishLedgerUpdate(_ context.Context, _ string, rec models.DailyMacroRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return p.err
}

// testClock is advanced by tests to check createdAt and updatedAt.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func newTestLedger(t *testing.T, st store.Store) (*Ledger, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	l := NewLedger(st, nil, time.UTC)
	l.now = clock.now
	return l, clock
}

// storeModes runs fn against a store with atomic increments and one without.
func storeModes(t *testing.T, fn func(t *testing.T, st store.Store)) {
	t.Run("Increment", func(t *testing.T) {
		fn(t, store.NewMemoryStore())
	})
	t.Run("ReadModifyWrite", func(t *testing.T) {
		fn(t, plainStore{store.NewMemoryStore()})
	})
}
