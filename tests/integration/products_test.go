package integration

import (
	"context"
	"testing"

	"github.com/safar/storefront-api/internal/apperr"
	"github.com/safar/storefront-api/internal/models"
	"github.com/safar/storefront-api/internal/store"
	"github.com/shopspring/decimal"
)

func TestCreateProductComputesMargin(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, store.CreateProductParams{
		Name:          "Grinder",
		Description:   "Burr grinder",
		PurchasePrice: decimal.RequireFromString("55.50"),
		SalePrice:     decimal.RequireFromString("89.00"),
		Stock:         10,
		Images:        []string{"grinder.jpg"},
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	if !product.Margin.Equal(decimal.RequireFromString("33.50")) {
		t.Errorf("Expected margin 33.50, got %s", product.Margin)
	}
	if !product.IsVisible {
		t.Error("Products should default to visible")
	}
	if len(product.Images) != 1 || product.Images[0] != "grinder.jpg" {
		t.Errorf("Expected images [grinder.jpg], got %v", product.Images)
	}
}

func TestUpdateProductRecomputesMargin(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product := createTestProduct(t, ctx, db, "Kettle", "40.00", 10)

	newSale := decimal.RequireFromString("50.00")
	updated, err := store.UpdateProduct(ctx, db, product.ID, store.UpdateProductParams{
		SalePrice: &newSale,
	})
	if err != nil {
		t.Fatalf("Update product: %v", err)
	}

	wantMargin := newSale.Sub(product.PurchasePrice)
	if !updated.Margin.Equal(wantMargin) {
		t.Errorf("Expected margin %s, got %s", wantMargin, updated.Margin)
	}

	// A non-price update leaves the margin alone.
	name := "Gooseneck Kettle"
	updated, err = store.UpdateProduct(ctx, db, product.ID, store.UpdateProductParams{
		Name: &name,
	})
	if err != nil {
		t.Fatalf("Update product name: %v", err)
	}
	if !updated.Margin.Equal(wantMargin) {
		t.Errorf("Margin changed on name update: %s", updated.Margin)
	}
	if updated.Name != name {
		t.Errorf("Expected name %q, got %q", name, updated.Name)
	}
}

func TestListProductsSearchAndVisibility(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	createTestProduct(t, ctx, db, "Espresso Machine", "299.99", 5)
	createTestProduct(t, ctx, db, "Espresso Cups", "12.00", 50)
	hidden := createTestProduct(t, ctx, db, "Espresso Sampler", "9.00", 5)
	createTestProduct(t, ctx, db, "Tea Pot", "25.00", 5)

	if _, err := store.UpdateProductVisibility(ctx, db, hidden.ID, false); err != nil {
		t.Fatalf("Hide product: %v", err)
	}

	page, err := store.ListProducts(ctx, db, 1, 10, "espresso", nil)
	if err != nil {
		t.Fatalf("Search products: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("Expected 3 espresso products, got %d", page.Total)
	}

	visible := true
	page, err = store.ListProducts(ctx, db, 1, 10, "espresso", &visible)
	if err != nil {
		t.Fatalf("Search visible products: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Expected 2 visible espresso products, got %d", page.Total)
	}

	page, err = store.ListProducts(ctx, db, 1, 10, "", nil)
	if err != nil {
		t.Fatalf("List all products: %v", err)
	}
	if page.Total != 4 {
		t.Errorf("Expected 4 products, got %d", page.Total)
	}
}

func TestUpdateProductStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product := createTestProduct(t, ctx, db, "Widget", "10.00", 5)

	updated, err := store.UpdateProductStock(ctx, db, product.ID, 42)
	if err != nil {
		t.Fatalf("Update stock: %v", err)
	}
	if updated.Stock != 42 {
		t.Errorf("Expected stock 42, got %d", updated.Stock)
	}

	if _, err := store.UpdateProductStock(ctx, db, product.ID, -1); !apperr.IsValidation(err) {
		t.Errorf("Expected validation error for negative stock, got %v", err)
	}

	if _, err := store.UpdateProductStock(ctx, db, "00000000-0000-0000-0000-000000000000", 1); !apperr.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestAddProductImage(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product := createTestProduct(t, ctx, db, "Widget", "10.00", 5)

	updated, err := store.AddProductImage(ctx, db, product.ID, "uploads/widget-front.jpg")
	if err != nil {
		t.Fatalf("Add image: %v", err)
	}
	updated, err = store.AddProductImage(ctx, db, updated.ID, "uploads/widget-back.jpg")
	if err != nil {
		t.Fatalf("Add second image: %v", err)
	}

	if len(updated.Images) != 2 {
		t.Fatalf("Expected 2 images, got %v", updated.Images)
	}
	if updated.Images[1] != "uploads/widget-back.jpg" {
		t.Errorf("Images out of order: %v", updated.Images)
	}
}

func TestDeleteProduct(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product := createTestProduct(t, ctx, db, "Ephemeral", "10.00", 5)

	if err := store.DeleteProduct(ctx, db, product.ID); err != nil {
		t.Fatalf("Delete product: %v", err)
	}
	if _, err := store.GetProduct(ctx, db, product.ID); !apperr.IsNotFound(err) {
		t.Errorf("Expected not found after delete, got %v", err)
	}
	if err := store.DeleteProduct(ctx, db, product.ID); !apperr.IsNotFound(err) {
		t.Errorf("Expected not found on double delete, got %v", err)
	}
}

func TestUserCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, err := store.CreateUser(ctx, db, "Dana", "dana@example.com", models.UserRoleAdmin)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	if user.Role != models.UserRoleAdmin || !user.IsActive {
		t.Errorf("Unexpected user defaults: %+v", user)
	}

	if _, err := store.CreateUser(ctx, db, "Dupe", "dana@example.com", models.UserRoleUser); !apperr.IsConflict(err) {
		t.Errorf("Expected conflict for duplicate email, got %v", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, db, "dana@example.com")
	if err != nil {
		t.Fatalf("Get user by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("Expected user %s, got %s", user.ID, byEmail.ID)
	}

	inactive := false
	updated, err := store.UpdateUser(ctx, db, user.ID, store.UpdateUserParams{IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update user: %v", err)
	}
	if updated.IsActive {
		t.Error("Expected user deactivated")
	}

	if err := store.DeleteUser(ctx, db, user.ID); err != nil {
		t.Fatalf("Delete user: %v", err)
	}
	if _, err := store.GetUser(ctx, db, user.ID); !apperr.IsNotFound(err) {
		t.Errorf("Expected not found after delete, got %v", err)
	}
}
