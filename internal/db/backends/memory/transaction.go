package memory

import (
	"context"
	"sync"
)

// Transaction snapshots every table when it begins and restores the
// snapshot on rollback
type Transaction struct {
	mu         sync.RWMutex
	db         *Database
	snapshot   map[string]*table
	committed  bool
	rolledBack bool
}

// NewTransaction creates a new in-memory transaction
func NewTransaction(db *Database) *Transaction {
	tx := &Transaction{
		db:       db,
		snapshot: make(map[string]*table),
	}

	db.mu.RLock()
	for name, t := range db.tables {
		tx.snapshot[name] = t.clone()
	}
	db.mu.RUnlock()

	return tx
}

// Commit commits the transaction
func (tx *Transaction) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.committed || tx.rolledBack {
		return ErrTransactionCompleted
	}

	tx.committed = true
	return nil
}

// Rollback restores the snapshot
func (tx *Transaction) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.committed || tx.rolledBack {
		return ErrTransactionCompleted
	}

	tx.db.mu.Lock()
	tx.db.tables = tx.snapshot
	tx.db.mu.Unlock()

	tx.rolledBack = true
	return nil
}

// IsCompleted returns true if the transaction has been committed or rolled back
func (tx *Transaction) IsCompleted() bool {
	tx.mu.RLock()
	defer tx.mu.RUnlock()

	return tx.committed || tx.rolledBack
}
