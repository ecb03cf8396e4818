package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSummary is the slice of a user embedded in hydrated orders.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Product carries both prices; Margin is always SalePrice - PurchasePrice
// and is recomputed by the store whenever either price changes.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Margin        decimal.Decimal `json:"margin"`
	Stock         int             `json:"stock"`
	IsVisible     bool            `json:"is_visible"`
	Images        []string        `json:"images"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductSummary is the snapshot embedded in hydrated order items.
type ProductSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []OrderItem     `json:"items,omitempty"`
	User        *UserSummary    `json:"user,omitempty"`
}

// OrderItem freezes the sale price at placement time; later catalog price
// changes never touch Price.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Product   *ProductSummary `json:"product,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
