// Package store implements the persistence and workflow layer: catalog,
// accounts, notifications, the order workflow, and dashboard aggregates.
// Every function takes its database handle explicitly; multi-row writes
// run inside a transaction the caller can see the boundary of.
package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func newID() string {
	return uuid.New().String()
}
