package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"
	"github.com/safar/storefront-api/internal/apperr"
	"github.com/safar/storefront-api/internal/database"
	"github.com/safar/storefront-api/internal/models"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	UserID string
	Items  []OrderItemRequest
}

// OrderItemRequest uses pointer fields so a missing productId or quantity
// is distinguishable from a zero value.
type OrderItemRequest struct {
	ProductID *string `json:"productId"`
	Quantity  *int    `json:"quantity"`
}

// lineTotal is price at placement times quantity, rounded to cents.
func lineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// idPrefix is the short order reference used in notification messages.
func idPrefix(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// CreateOrder validates and persists a new order in one transaction.
//
// Items are validated in list order, failing fast on the first violation:
// both fields present, positive quantity, product exists, product visible,
// enough stock. The line price is frozen to the product's current sale
// price. Stock is NOT decremented here; that happens at ProceedOrder, and
// the stock check is repeated there.
func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validationf("order must contain at least one item")
	}

	var orderID string

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
			req.UserID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if !exists {
			return apperr.NotFoundf("user %s not found", req.UserID)
		}

		totalAmount := decimal.Zero

		type pricedItem struct {
			productID string
			quantity  int
			price     decimal.Decimal
		}
		pricedItems := make([]pricedItem, 0, len(req.Items))

		for _, item := range req.Items {
			if item.ProductID == nil || *item.ProductID == "" || item.Quantity == nil || *item.Quantity == 0 {
				return apperr.Validationf("invalid order item: productId and quantity are required")
			}
			if *item.Quantity < 0 {
				return apperr.Validationf("invalid quantity for product %s: must be a positive number", *item.ProductID)
			}

			var name string
			var salePrice decimal.Decimal
			var stock int
			var isVisible bool

			err := tx.QueryRowContext(ctx,
				`SELECT name, sale_price, stock, is_visible
				 FROM products
				 WHERE id = $1`,
				*item.ProductID).Scan(&name, &salePrice, &stock, &isVisible)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return apperr.NotFoundf(
						"product with id %q not found; it may have been removed or the id is incorrect, refresh the product list and try again",
						*item.ProductID)
				}
				return fmt.Errorf("get product %s: %w", *item.ProductID, err)
			}

			if !isVisible {
				return apperr.Conflictf("product %q is not available for purchase", name)
			}
			if stock < *item.Quantity {
				return apperr.Conflictf("insufficient stock for product %s", name)
			}

			totalAmount = totalAmount.Add(lineTotal(salePrice, *item.Quantity))
			pricedItems = append(pricedItems, pricedItem{
				productID: *item.ProductID,
				quantity:  *item.Quantity,
				price:     salePrice,
			})
		}

		orderID = newID()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO orders (id, user_id, status, total_amount, created_at)
			 VALUES ($1, $2, $3, $4, NOW())`,
			orderID, req.UserID, models.OrderStatusPlaced, totalAmount)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range pricedItems {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (id, order_id, product_id, quantity, price)
				 VALUES ($1, $2, $3, $4, $5)`,
				newID(), orderID, item.productID, item.quantity, item.price)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}

		_, err = CreateNotification(ctx, tx, "New Order Placed",
			fmt.Sprintf("Order #%s has been placed with total amount of $%s",
				idPrefix(orderID), totalAmount.StringFixed(2)))
		return err
	})

	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, orderID)
}

// GetOrder returns one order hydrated with its items, per-item product
// snapshots and the owning user's summary. A since-deleted product leaves
// the snapshot nil; the frozen item price and quantity survive regardless.
func GetOrder(ctx context.Context, db *sql.DB, id string) (*models.Order, error) {
	order := &models.Order{User: &models.UserSummary{}}

	err := db.QueryRowContext(ctx,
		`SELECT o.id, o.user_id, o.status, o.total_amount, o.created_at,
		        u.id, u.name, u.email
		 FROM orders o
		 JOIN users u ON u.id = o.user_id
		 WHERE o.id = $1`,
		id).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.User.ID,
		&order.User.Name,
		&order.User.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("order not found")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	itemsByOrder, err := loadOrderItems(ctx, db, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = itemsByOrder[order.ID]

	return order, nil
}

// loadOrderItems fetches the items of every given order in one query,
// left-joined to products for the embedded snapshot.
func loadOrderItems(ctx context.Context, q querier, orderIDs []string) (map[string][]models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return map[string][]models.OrderItem{}, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, p.name
		 FROM order_items oi
		 LEFT JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = ANY($1)
		 ORDER BY oi.order_id, oi.id`,
		pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	itemsByOrder := make(map[string][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var item models.OrderItem
		var productName sql.NullString

		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&productName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}

		if productName.Valid {
			item.Product = &models.ProductSummary{ID: item.ProductID, Name: productName.String}
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return itemsByOrder, nil
}

// ListOrders pages through all orders newest first, optionally filtered by
// status, each hydrated like GetOrder. Read-only.
func ListOrders(ctx context.Context, db *sql.DB, page, limit int, status *models.OrderStatus) (*OffsetPage, error) {
	where := ""
	args := []any{}

	if status != nil {
		where = " WHERE o.status = $1"
		args = append(args, *status)
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := `
		SELECT o.id, o.user_id, o.status, o.total_amount, o.created_at,
		       u.id, u.name, u.email
		FROM orders o
		JOIN users u ON u.id = o.user_id` + where + `
		ORDER BY o.created_at DESC
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	var orderIDs []string
	for rows.Next() {
		order := models.Order{User: &models.UserSummary{}}
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Status,
			&order.TotalAmount,
			&order.CreatedAt,
			&order.User.ID,
			&order.User.Name,
			&order.User.Email,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	itemsByOrder, err := loadOrderItems(ctx, db, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
	}

	return newOffsetPage(orders, total, page, limit), nil
}

// getOrderForUpdate locks the order row for the duration of the
// transaction so concurrent transitions on the same order serialize.
func getOrderForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Order, error) {
	order := &models.Order{}

	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, status, total_amount, created_at
		 FROM orders
		 WHERE id = $1
		 FOR UPDATE`,
		id).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TotalAmount,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("order not found")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

// ProceedOrder transitions a PLACED order to PROCEEDED, decrementing stock
// for every line item. Stock was not reserved at placement, so each
// decrement re-checks availability as part of one conditional UPDATE; any
// failure rolls back every decrement and the status change together.
func ProceedOrder(ctx context.Context, db *sql.DB, id string) (*models.Order, error) {
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		order, err := getOrderForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if !order.Status.CanTransitionTo(models.OrderStatusProceeded) {
			return apperr.Conflictf("only PLACED orders can be proceeded")
		}

		items, err := loadOrderItems(ctx, tx, []string{order.ID})
		if err != nil {
			return err
		}

		for _, item := range items[order.ID] {
			if err := decrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $1 WHERE id = $2`,
			models.OrderStatusProceeded, order.ID)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		_, err = CreateNotification(ctx, tx, "Order Proceeded",
			fmt.Sprintf("Order #%s has been proceeded", idPrefix(order.ID)))
		return err
	})

	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, id)
}

// CancelOrder transitions a PLACED or PROCEEDED order to CANCELLED. Not
// idempotent: cancelling a CANCELLED order is a conflict. Stock is
// restored through policy only when the prior status was PROCEEDED; a
// PLACED order never decremented any.
func CancelOrder(ctx context.Context, db *sql.DB, id string, policy RestockPolicy) (*models.Order, error) {
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		order, err := getOrderForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if !order.Status.CanTransitionTo(models.OrderStatusCancelled) {
			return apperr.Conflictf("order is already cancelled")
		}

		if order.Status == models.OrderStatusProceeded {
			items, err := loadOrderItems(ctx, tx, []string{order.ID})
			if err != nil {
				return err
			}
			for _, item := range items[order.ID] {
				if err := policy.Restore(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $1 WHERE id = $2`,
			models.OrderStatusCancelled, order.ID)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		_, err = CreateNotification(ctx, tx, "Order Cancelled",
			fmt.Sprintf("Order #%s has been cancelled", idPrefix(order.ID)))
		return err
	})

	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, id)
}
