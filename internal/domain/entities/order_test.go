package entities

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "finstack-p2p.backend/internal/domain/errors"
)

func TestParseOrderStatus(t *testing.T) {
	cases := map[string]OrderStatus{
		"pending_payment":            OrderStatusPendingPayment,
		"PENDING_PAYMENT":            OrderStatusPendingPayment,
		"awaiting_release":           OrderStatusAwaitingRelease,
		"PAYMENT_CONFIRMED_BY_BUYER": OrderStatusAwaitingRelease,
		"payment_confirmed_by_buyer": OrderStatusAwaitingRelease,
		"completed":                  OrderStatusCompleted,
		"canceled":                   OrderStatusCancelled,
		" disputed ":                 OrderStatusDisputed,
	}
	for in, want := range cases {
		got, err := ParseOrderStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOrderStatus("refunded")
	assert.Error(t, err)
}

func TestOrderStatus_JSON(t *testing.T) {
	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"id":"o1","status":"PAYMENT_CONFIRMED_BY_BUYER"}`), &o))
	assert.Equal(t, OrderStatusAwaitingRelease, o.Status)

	out, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"status":"awaiting_release"`)
	assert.NotContains(t, string(out), "PAYMENT_CONFIRMED_BY_BUYER")

	assert.Error(t, json.Unmarshal([]byte(`{"status":"nope"}`), &o))
	assert.Error(t, json.Unmarshal([]byte(`{"status":5}`), &o))
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]OrderStatus{
		{OrderStatusPendingPayment, OrderStatusAwaitingRelease},
		{OrderStatusPendingPayment, OrderStatusCancelled},
		{OrderStatusAwaitingRelease, OrderStatusCompleted},
		{OrderStatusAwaitingRelease, OrderStatusDisputed},
	}
	for _, edge := range allowed {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}

	denied := [][2]OrderStatus{
		{OrderStatusPendingPayment, OrderStatusCompleted},
		{OrderStatusPendingPayment, OrderStatusDisputed},
		{OrderStatusAwaitingRelease, OrderStatusCancelled},
		{OrderStatusCompleted, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusPendingPayment},
		{OrderStatusDisputed, OrderStatusCompleted},
	}
	for _, edge := range denied {
		assert.False(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}

	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusDisputed.IsTerminal())
}

func TestOrder_TransitionTo(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := &Order{Status: OrderStatusPendingPayment}

	require.NoError(t, o.TransitionTo(OrderStatusAwaitingRelease, now))
	assert.True(t, o.PaidAt.Valid)
	assert.Equal(t, now, o.UpdatedAt)

	err := o.TransitionTo(OrderStatusCancelled, now)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidTransition))
	assert.Equal(t, OrderStatusAwaitingRelease, o.Status)

	require.NoError(t, o.TransitionTo(OrderStatusCompleted, now.Add(time.Minute)))
	assert.True(t, o.ReleasedAt.Valid)
	assert.True(t, o.CompletedAt.Valid)

	d := &Order{Status: OrderStatusAwaitingRelease}
	require.NoError(t, d.TransitionTo(OrderStatusDisputed, now))
	assert.True(t, d.DisputedAt.Valid)

	c := &Order{Status: OrderStatusPendingPayment}
	require.NoError(t, c.TransitionTo(OrderStatusCancelled, now))
	assert.True(t, c.CancelledAt.Valid)
}

func TestOrder_ExpiryAndFilter(t *testing.T) {
	now := time.Now()
	o := &Order{BuyerID: "b", MerchantID: "m", Status: OrderStatusPendingPayment, ExpiresAt: now}
	assert.False(t, o.IsExpired(now))
	assert.True(t, o.IsExpired(now.Add(time.Second)))

	o.Status = OrderStatusAwaitingRelease
	assert.False(t, o.IsExpired(now.Add(time.Hour)))

	assert.True(t, o.IsParticipant("b"))
	assert.False(t, o.IsParticipant(""))
	assert.True(t, OrderFilter{UserID: "m", Role: OrderRoleMerchant}.Matches(o))
	assert.False(t, OrderFilter{UserID: "m", Role: OrderRoleBuyer}.Matches(o))
	assert.True(t, OrderFilter{UserID: "b"}.Matches(o))
	assert.False(t, OrderFilter{UserID: "x"}.Matches(o))
	assert.False(t, OrderFilter{UserID: "b", Status: OrderStatusCompleted}.Matches(o))
}
