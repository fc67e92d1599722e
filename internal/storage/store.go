// Package storage defines the persistence port for expenses.
package storage

import (
	"context"

	"expensetracker/internal/core"
)

// Store is the expense collection. Implementations must be safe for
// concurrent use; each call is a single independent storage operation.
type Store interface {
	// Insert persists e as a new record. e.ID must already be set.
	Insert(ctx context.Context, e core.Expense) error

	// List returns every expense ordered by date, most recent first.
	List(ctx context.Context) ([]core.Expense, error)

	// DeleteByDescription removes at most one expense whose description
	// equals desc exactly. Which one is unspecified when several match.
	// It reports whether a record was removed.
	DeleteByDescription(ctx context.Context, desc string) (bool, error)

	// DeleteByID removes the expense with the given id and reports whether
	// it existed.
	DeleteByID(ctx context.Context, id string) (bool, error)

	// CategoryTotals sums amounts per category. Order is unspecified.
	CategoryTotals(ctx context.Context) ([]core.CategoryTotal, error)

	// Ping checks that the backing engine is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
