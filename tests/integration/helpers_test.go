package integration

import (
	"context"
	"database/sql"
	"testing"

	"github.com/safar/storefront-api/internal/models"
	"github.com/safar/storefront-api/internal/store"
	"github.com/shopspring/decimal"
)

func createTestUser(t *testing.T, ctx context.Context, db *sql.DB, email string) *models.User {
	t.Helper()

	user, err := store.CreateUser(ctx, db, "Test User", email, models.UserRoleUser)
	if err != nil {
		t.Fatalf("Create user %s: %v", email, err)
	}
	return user
}

func createTestProduct(t *testing.T, ctx context.Context, db *sql.DB, name, salePrice string, stock int) *models.Product {
	t.Helper()

	sale := decimal.RequireFromString(salePrice)
	product, err := store.CreateProduct(ctx, db, store.CreateProductParams{
		Name:          name,
		Description:   "test product",
		PurchasePrice: sale.Div(decimal.NewFromInt(2)).Round(2),
		SalePrice:     sale,
		Stock:         stock,
	})
	if err != nil {
		t.Fatalf("Create product %s: %v", name, err)
	}
	return product
}

func orderItem(productID string, quantity int) store.OrderItemRequest {
	return store.OrderItemRequest{ProductID: &productID, Quantity: &quantity}
}

func productStock(t *testing.T, ctx context.Context, db *sql.DB, id string) int {
	t.Helper()

	product, err := store.GetProduct(ctx, db, id)
	if err != nil {
		t.Fatalf("Get product %s: %v", id, err)
	}
	return product.Stock
}

func orderCount(t *testing.T, ctx context.Context, db *sql.DB) int64 {
	t.Helper()

	page, err := store.ListOrders(ctx, db, 1, 1, nil)
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	return page.Total
}

func notificationCount(t *testing.T, ctx context.Context, db *sql.DB) int64 {
	t.Helper()

	page, err := store.ListNotifications(ctx, db, 1, 1, nil)
	if err != nil {
		t.Fatalf("List notifications: %v", err)
	}
	return page.Total
}
