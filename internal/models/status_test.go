package models

import (
	"testing"

	"github.com/safar/storefront-api/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, s := range []string{"PLACED", "PROCEEDED", "CANCELLED"} {
		status, err := ParseOrderStatus(s)
		require.NoError(t, err)
		require.Equal(t, OrderStatus(s), status)
	}

	for _, s := range []string{"", "placed", "SHIPPED", "PLACED "} {
		_, err := ParseOrderStatus(s)
		require.Error(t, err)
		require.True(t, apperr.IsValidation(err))
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPlaced, OrderStatusProceeded, true},
		{OrderStatusPlaced, OrderStatusCancelled, true},
		{OrderStatusProceeded, OrderStatusCancelled, true},
		{OrderStatusProceeded, OrderStatusPlaced, false},
		{OrderStatusCancelled, OrderStatusPlaced, false},
		{OrderStatusCancelled, OrderStatusProceeded, false},
		{OrderStatusCancelled, OrderStatusCancelled, false},
		{OrderStatusPlaced, OrderStatusPlaced, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}

	require.True(t, OrderStatusCancelled.Terminal())
	require.False(t, OrderStatusPlaced.Terminal())
	require.False(t, OrderStatusProceeded.Terminal())
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("ADMIN")
	require.NoError(t, err)
	require.Equal(t, UserRoleAdmin, role)

	_, err = ParseUserRole("root")
	require.True(t, apperr.IsValidation(err))
}
