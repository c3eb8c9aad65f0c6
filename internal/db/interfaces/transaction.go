package interfaces

import "context"

// Transaction is the handle passed to Database.Transaction callbacks. The
// callback's error decides the outcome, so callers rarely invoke Commit or
// Rollback themselves; both fail with ErrTransactionCompleted once either ran.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// IsCompleted reports whether Commit or Rollback has run
	IsCompleted() bool
}
