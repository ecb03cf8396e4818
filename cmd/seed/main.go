// Command seed wipes the database and loads a demo dataset: a couple of
// admins, a handful of shoppers, a small catalog, and orders in every
// workflow state. Orders go through the real workflow so totals, frozen
// prices, stock levels and notifications all line up.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/safar/storefront-api/internal/config"
	"github.com/safar/storefront-api/internal/database"
	"github.com/safar/storefront-api/internal/models"
	"github.com/safar/storefront-api/internal/store"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if err := reset(ctx, db); err != nil {
		log.Fatalf("Reset database: %v", err)
	}
	log.Printf("Cleared existing data")

	if err := seed(ctx, db); err != nil {
		log.Fatalf("Seed database: %v", err)
	}
	log.Printf("Seed complete")
}

// reset truncates everything in one transaction; TRUNCATE takes exclusive
// locks, so retry on lock conflicts with anything else touching the tables.
func reset(ctx context.Context, db *sql.DB) error {
	return database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`TRUNCATE order_items, orders, notifications, products, users`)
		return err
	})
}

func seed(ctx context.Context, db *sql.DB) error {
	admins := []struct{ name, email string }{
		{"Admin User", "admin@example.com"},
		{"Second Admin", "admin2@example.com"},
	}
	for _, a := range admins {
		if _, err := store.CreateUser(ctx, db, a.name, a.email, models.UserRoleAdmin); err != nil {
			return fmt.Errorf("create admin %s: %w", a.email, err)
		}
	}

	var shoppers []*models.User
	for _, u := range []struct{ name, email string }{
		{"Alice Example", "alice@example.com"},
		{"Bob Example", "bob@example.com"},
		{"Carol Example", "carol@example.com"},
	} {
		user, err := store.CreateUser(ctx, db, u.name, u.email, models.UserRoleUser)
		if err != nil {
			return fmt.Errorf("create user %s: %w", u.email, err)
		}
		shoppers = append(shoppers, user)
	}
	log.Printf("Created %d users", len(admins)+len(shoppers))

	hidden := false
	catalog := []store.CreateProductParams{
		{Name: "Espresso Machine", Description: "Single-boiler espresso machine", PurchasePrice: decimal.NewFromFloat(180.00), SalePrice: decimal.NewFromFloat(299.99), Stock: 12},
		{Name: "Burr Grinder", Description: "Conical burr grinder", PurchasePrice: decimal.NewFromFloat(55.50), SalePrice: decimal.NewFromFloat(89.00), Stock: 25},
		{Name: "Pour-Over Kettle", Description: "Gooseneck kettle, 1L", PurchasePrice: decimal.NewFromFloat(22.00), SalePrice: decimal.NewFromFloat(39.95), Stock: 40},
		{Name: "Ceramic Dripper", Description: "V-shaped ceramic dripper", PurchasePrice: decimal.NewFromFloat(8.10), SalePrice: decimal.NewFromFloat(18.50), Stock: 60},
		{Name: "Paper Filters", Description: "Pack of 100 filters", PurchasePrice: decimal.NewFromFloat(2.40), SalePrice: decimal.NewFromFloat(5.99), Stock: 200},
		{Name: "Discontinued Scale", Description: "Old stock, not for sale", PurchasePrice: decimal.NewFromFloat(14.00), SalePrice: decimal.NewFromFloat(24.00), Stock: 3, IsVisible: &hidden},
		{Name: "Demo Tamper", Description: "Out of stock demo item", PurchasePrice: decimal.NewFromFloat(9.00), SalePrice: decimal.NewFromFloat(19.00), Stock: 0},
	}

	var products []*models.Product
	for _, p := range catalog {
		product, err := store.CreateProduct(ctx, db, p)
		if err != nil {
			return fmt.Errorf("create product %s: %w", p.Name, err)
		}
		products = append(products, product)
	}
	log.Printf("Created %d products", len(products))

	item := func(p *models.Product, qty int) store.OrderItemRequest {
		return store.OrderItemRequest{ProductID: &p.ID, Quantity: &qty}
	}

	orders := []struct {
		user    *models.User
		items   []store.OrderItemRequest
		proceed bool
		cancel  bool
	}{
		{user: shoppers[0], items: []store.OrderItemRequest{item(products[0], 1), item(products[4], 2)}},
		{user: shoppers[0], items: []store.OrderItemRequest{item(products[1], 1)}, proceed: true},
		{user: shoppers[1], items: []store.OrderItemRequest{item(products[2], 2), item(products[3], 2)}, proceed: true},
		{user: shoppers[1], items: []store.OrderItemRequest{item(products[4], 10)}, proceed: true, cancel: true},
		{user: shoppers[2], items: []store.OrderItemRequest{item(products[3], 1)}, cancel: true},
	}

	for i, o := range orders {
		order, err := createOrderWithRetry(ctx, db, store.CreateOrderRequest{
			UserID: o.user.ID,
			Items:  o.items,
		})
		if err != nil {
			return fmt.Errorf("create order %d: %w", i, err)
		}

		if o.proceed {
			if _, err := store.ProceedOrder(ctx, db, order.ID); err != nil {
				return fmt.Errorf("proceed order %d: %w", i, err)
			}
		}
		if o.cancel {
			if _, err := store.CancelOrder(ctx, db, order.ID, store.DefaultRestockPolicy()); err != nil {
				return fmt.Errorf("cancel order %d: %w", i, err)
			}
		}
	}
	log.Printf("Created %d orders", len(orders))

	return nil
}

// createOrderWithRetry retries placement when the failure is contention
// rather than a domain error; the workflow itself never retries.
func createOrderWithRetry(ctx context.Context, db *sql.DB, req store.CreateOrderRequest) (*models.Order, error) {
	const maxAttempts = 3

	var order *models.Order
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		order, err = store.CreateOrder(ctx, db, req)
		if err == nil || !database.IsRetryable(err) {
			return order, err
		}
	}
	return nil, err
}
