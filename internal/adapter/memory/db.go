// Package memory is an in-process letter store for tests and demos. One
// writer lock covers the whole database; RunInTx holds it for the duration
// of the callback and restores a snapshot when the callback fails.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// DB holds the tables.
type DB struct {
	mu sync.RWMutex

	letters  map[int64]*domain.Letter
	audit    []domain.AuditEntry
	sponsees map[int64]domain.Sponsee

	// Sequences are never rolled back, so ids are not reused after an
	// aborted transaction.
	nextLetterID  int64
	nextLogID     int64
	nextSponseeID int64
}

// New creates an empty database.
func New() *DB {
	return &DB{
		letters:  make(map[int64]*domain.Letter),
		sponsees: make(map[int64]domain.Sponsee),
	}
}

// Ping always succeeds.
func (d *DB) Ping(context.Context) error { return nil }

type txKey struct{}

// inTx reports whether ctx carries a transaction opened on d.
func (d *DB) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*DB)
	return owner == d
}

func (d *DB) read(ctx context.Context, fn func()) {
	if !d.inTx(ctx) {
		d.mu.RLock()
		defer d.mu.RUnlock()
	}
	fn()
}

func (d *DB) write(ctx context.Context, fn func() error) error {
	if !d.inTx(ctx) {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	return fn()
}

type snapshot struct {
	letters  map[int64]*domain.Letter
	auditLen int
	sponsees map[int64]domain.Sponsee
}

// snapshot relies on stored letters never being modified in place: every
// write replaces the map value with a fresh clone.
func (d *DB) snapshot() snapshot {
	return snapshot{
		letters:  maps.Clone(d.letters),
		auditLen: len(d.audit),
		sponsees: maps.Clone(d.sponsees),
	}
}

func (d *DB) restore(s snapshot) {
	d.letters = s.letters
	d.audit = d.audit[:s.auditLen]
	d.sponsees = s.sponsees
}

// ---------------------------------------------------------------------------
// TxManager
// ---------------------------------------------------------------------------

// TxManager serializes transactions on a DB.
type TxManager struct {
	db *DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx executes fn while holding the writer lock. Any error or panic
// restores the state from before the call. Nested calls join the outer
// transaction.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if m.db.inTx(ctx) {
		return fn(ctx)
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	snap := m.db.snapshot()
	defer func() {
		if r := recover(); r != nil {
			m.db.restore(snap)
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, m.db)); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}
