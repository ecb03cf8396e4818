package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type DashboardSummary struct {
	TotalOrders  int64           `json:"total_orders"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	TotalLoss    decimal.Decimal `json:"total_loss"`
}

// DailyPoint is one day of the dashboard chart series.
type DailyPoint struct {
	Day     time.Time       `json:"day"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// GetDashboardSummary aggregates over the whole order history. Revenue and
// profit count PROCEEDED orders only; loss is the total of cancelled
// orders. Profit subtracts the purchase cost of each line from its frozen
// sale price; items whose product has since been deleted contribute their
// full line total.
func GetDashboardSummary(ctx context.Context, db *sql.DB) (*DashboardSummary, error) {
	summary := &DashboardSummary{}

	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount) FILTER (WHERE status = 'PROCEEDED'), 0),
		       COALESCE(SUM(total_amount) FILTER (WHERE status = 'CANCELLED'), 0)
		FROM orders`).Scan(
		&summary.TotalOrders,
		&summary.TotalRevenue,
		&summary.TotalLoss,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}

	err = db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM((oi.price - COALESCE(p.purchase_price, 0)) * oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.status = 'PROCEEDED'`).Scan(&summary.TotalProfit)
	if err != nil {
		return nil, fmt.Errorf("dashboard profit: %w", err)
	}

	return summary, nil
}

// GetDashboardCharts returns one point per day over the trailing window,
// oldest first. Days without orders are absent from the result.
func GetDashboardCharts(ctx context.Context, db *sql.DB, days int) ([]DailyPoint, error) {
	if days <= 0 {
		days = 30
	}

	rows, err := db.QueryContext(ctx, `
		SELECT date_trunc('day', o.created_at) AS day,
		       COUNT(DISTINCT o.id),
		       COALESCE(SUM(o.total_amount) FILTER (WHERE o.status = 'PROCEEDED'), 0)
		FROM orders o
		WHERE o.created_at >= NOW() - make_interval(days => $1)
		GROUP BY day
		ORDER BY day`, days)
	if err != nil {
		return nil, fmt.Errorf("dashboard charts: %w", err)
	}
	defer rows.Close()

	var points []DailyPoint
	index := make(map[time.Time]int)
	for rows.Next() {
		var p DailyPoint
		if err := rows.Scan(&p.Day, &p.Orders, &p.Revenue); err != nil {
			return nil, fmt.Errorf("scan chart point: %w", err)
		}
		p.Profit = decimal.Zero
		index[p.Day.UTC()] = len(points)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	profitRows, err := db.QueryContext(ctx, `
		SELECT date_trunc('day', o.created_at) AS day,
		       COALESCE(SUM((oi.price - COALESCE(p.purchase_price, 0)) * oi.quantity), 0)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.status = 'PROCEEDED'
		  AND o.created_at >= NOW() - make_interval(days => $1)
		GROUP BY day`, days)
	if err != nil {
		return nil, fmt.Errorf("dashboard profit charts: %w", err)
	}
	defer profitRows.Close()

	for profitRows.Next() {
		var day time.Time
		var profit decimal.Decimal
		if err := profitRows.Scan(&day, &profit); err != nil {
			return nil, fmt.Errorf("scan profit point: %w", err)
		}
		if i, ok := index[day.UTC()]; ok {
			points[i].Profit = profit
		}
	}
	if err := profitRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return points, nil
}
