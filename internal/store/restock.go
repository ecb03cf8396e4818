package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// RestockPolicy decides what happens to inventory when a PROCEEDED order is
// cancelled. It runs inside the cancellation transaction, once per line
// item.
type RestockPolicy interface {
	Restore(ctx context.Context, tx *sql.Tx, productID string, quantity int) error
}

// SkipMissingRestock returns the quantity to stock but silently skips
// products that no longer exist: a deleted product makes the restock a
// no-op for that line, not a failed cancellation. Skips are logged.
type SkipMissingRestock struct {
	Logger *log.Logger
}

func DefaultRestockPolicy() RestockPolicy {
	return SkipMissingRestock{Logger: log.Default()}
}

func (p SkipMissingRestock) Restore(ctx context.Context, tx *sql.Tx, productID string, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock + $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("restore stock for product %s: %w", productID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 && p.Logger != nil {
		p.Logger.Printf("restock: product %s no longer exists, skipping %d unit(s)", productID, quantity)
	}

	return nil
}
