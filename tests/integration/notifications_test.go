package integration

import (
	"context"
	"testing"

	"github.com/safar/storefront-api/internal/apperr"
	"github.com/safar/storefront-api/internal/models"
	"github.com/safar/storefront-api/internal/store"
)

func TestWorkflowEmitsNotifications(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, ctx, db, "events@example.com")
	product := createTestProduct(t, ctx, db, "Widget", "10.00", 10)

	order, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID: user.ID,
		Items:  []store.OrderItemRequest{orderItem(product.ID, 1)},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}
	if _, err := store.ProceedOrder(ctx, db, order.ID); err != nil {
		t.Fatalf("Proceed order: %v", err)
	}
	if _, err := store.CancelOrder(ctx, db, order.ID, store.DefaultRestockPolicy()); err != nil {
		t.Fatalf("Cancel order: %v", err)
	}

	page, err := store.ListNotifications(ctx, db, 1, 10, nil)
	if err != nil {
		t.Fatalf("List notifications: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("Expected 3 notifications, got %d", page.Total)
	}

	// Newest first.
	notifications := page.Items.([]models.Notification)
	titles := []string{notifications[0].Title, notifications[1].Title, notifications[2].Title}
	want := []string{"Order Cancelled", "Order Proceeded", "New Order Placed"}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("Notification %d: expected %q, got %q", i, want[i], titles[i])
		}
	}
}

func TestMarkNotificationRead(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, ctx, db, "read@example.com")
	product := createTestProduct(t, ctx, db, "Widget", "10.00", 10)

	for i := 0; i < 2; i++ {
		if _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
			UserID: user.ID,
			Items:  []store.OrderItemRequest{orderItem(product.ID, 1)},
		}); err != nil {
			t.Fatalf("Create order %d: %v", i, err)
		}
	}

	count, err := store.UnreadNotificationCount(ctx, db)
	if err != nil {
		t.Fatalf("Unread count: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 unread, got %d", count)
	}

	page, err := store.ListNotifications(ctx, db, 1, 10, nil)
	if err != nil {
		t.Fatalf("List notifications: %v", err)
	}
	first := page.Items.([]models.Notification)[0]

	marked, err := store.MarkNotificationRead(ctx, db, first.ID)
	if err != nil {
		t.Fatalf("Mark read: %v", err)
	}
	if !marked.IsRead {
		t.Error("Expected notification marked read")
	}

	count, err = store.UnreadNotificationCount(ctx, db)
	if err != nil {
		t.Fatalf("Unread count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 unread, got %d", count)
	}

	unread := false
	filtered, err := store.ListNotifications(ctx, db, 1, 10, &unread)
	if err != nil {
		t.Fatalf("List unread: %v", err)
	}
	if filtered.Total != 1 {
		t.Errorf("Expected 1 unread in filtered list, got %d", filtered.Total)
	}

	if _, err := store.MarkNotificationRead(ctx, db, "00000000-0000-0000-0000-000000000000"); !apperr.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}
