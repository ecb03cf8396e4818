package models

import "github.com/safar/storefront-api/internal/apperr"

// OrderStatus is a closed enumeration. Raw strings are validated once at
// the boundary via ParseOrderStatus and flow through the rest of the
// system as this type.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusProceeded OrderStatus = "PROCEEDED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPlaced, OrderStatusProceeded, OrderStatusCancelled:
		return OrderStatus(s), nil
	}
	return "", apperr.Validationf("invalid order status %q", s)
}

// CanTransitionTo encodes the state machine:
// PLACED -> PROCEEDED | CANCELLED, PROCEEDED -> CANCELLED,
// CANCELLED is terminal. Nothing re-enters PLACED.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPlaced:
		return next == OrderStatusProceeded || next == OrderStatusCancelled
	case OrderStatusProceeded:
		return next == OrderStatusCancelled
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled
}

type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(s) {
	case UserRoleAdmin, UserRoleUser:
		return UserRole(s), nil
	}
	return "", apperr.Validationf("invalid user role %q", s)
}
