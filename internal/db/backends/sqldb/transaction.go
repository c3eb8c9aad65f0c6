package sqldb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/recordsdir/directory-backend/internal/db/interfaces"
)

type txKey struct{}

// Transaction wraps a *sql.Tx
type Transaction struct {
	mu         sync.Mutex
	tx         *sql.Tx
	committed  bool
	rolledBack bool
}

// Commit commits the transaction
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.committed || t.rolledBack {
		return interfaces.ErrTransactionCompleted
	}
	if err := t.tx.Commit(); err != nil {
		t.rolledBack = true
		return &interfaces.DatabaseError{Op: "commit", Err: err}
	}
	t.committed = true
	return nil
}

// Rollback rolls back the transaction
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.committed || t.rolledBack {
		return interfaces.ErrTransactionCompleted
	}
	t.rolledBack = true
	if err := t.tx.Rollback(); err != nil {
		return &interfaces.DatabaseError{Op: "rollback", Err: err}
	}
	return nil
}

// IsCompleted returns true if the transaction has been committed or rolled back
func (t *Transaction) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.committed || t.rolledBack
}
