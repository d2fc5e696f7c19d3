package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	domainerrors "finstack-p2p.backend/internal/domain/errors"
)

// OrderStatus is the canonical order lifecycle status
type OrderStatus string

const (
	OrderStatusPendingPayment  OrderStatus = "pending_payment"
	OrderStatusAwaitingRelease OrderStatus = "awaiting_release"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusDisputed        OrderStatus = "disputed"
)

// legacyPaymentConfirmed is read as awaiting_release and never written.
const legacyPaymentConfirmed = "PAYMENT_CONFIRMED_BY_BUYER"

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment:  {OrderStatusAwaitingRelease, OrderStatusCancelled},
	OrderStatusAwaitingRelease: {OrderStatusCompleted, OrderStatusDisputed},
}

// ParseOrderStatus decodes a status string, accepting upper-case and legacy spellings.
func ParseOrderStatus(s string) (OrderStatus, error) {
	v := strings.TrimSpace(s)
	if strings.EqualFold(v, legacyPaymentConfirmed) {
		return OrderStatusAwaitingRelease, nil
	}
	st := OrderStatus(strings.ToLower(v))
	switch st {
	case OrderStatusPendingPayment, OrderStatusAwaitingRelease, OrderStatusCompleted,
		OrderStatusCancelled, OrderStatusDisputed:
		return st, nil
	case "canceled":
		return OrderStatusCancelled, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// UnmarshalJSON routes every decoded status through ParseOrderStatus.
func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// IsTerminal reports whether no further transition exists
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is created when a buyer accepts an ad. Orders are never hard-deleted.
type Order struct {
	ID             string          `json:"id"`
	AdID           string          `json:"adId"`
	BuyerID        string          `json:"buyerId"`
	MerchantID     string          `json:"merchantId"`
	Type           AdType          `json:"type"`
	CryptoCurrency string          `json:"cryptoCurrency"`
	FiatCurrency   string          `json:"fiatCurrency"`
	CryptoAmount   decimal.Decimal `json:"cryptoAmount"`
	FiatAmount     decimal.Decimal `json:"fiatAmount"`
	Price          decimal.Decimal `json:"price"`
	Status         OrderStatus     `json:"status"`
	PaymentMethod  string          `json:"paymentMethod"`
	PaymentWindow  int             `json:"paymentWindow"`
	PaymentProof   null.String     `json:"paymentProof"`
	CancelReason   null.String     `json:"cancelReason"`
	DisputeReason  null.String     `json:"disputeReason"`
	Rating         null.Int        `json:"rating"`
	CreatedAt      time.Time       `json:"createdAt"`
	ExpiresAt      time.Time       `json:"expiresAt"`
	PaidAt         null.Time       `json:"paidAt"`
	ReleasedAt     null.Time       `json:"releasedAt"`
	CompletedAt    null.Time       `json:"completedAt"`
	CancelledAt    null.Time       `json:"cancelledAt"`
	DisputedAt     null.Time       `json:"disputedAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// CreateOrderInput is what a buyer submits to accept an ad
type CreateOrderInput struct {
	AdID          string          `json:"adId" binding:"required"`
	FiatAmount    decimal.Decimal `json:"fiatAmount"`
	PaymentMethod string          `json:"paymentMethod"`
}

// OrderRole selects which side of an order a listing is for
type OrderRole string

const (
	OrderRoleAny      OrderRole = ""
	OrderRoleBuyer    OrderRole = "buyer"
	OrderRoleMerchant OrderRole = "merchant"
)

// OrderFilter narrows ListOrders
type OrderFilter struct {
	UserID string
	Role   OrderRole
	Status OrderStatus
}

// Matches reports whether the order passes the filter
func (f OrderFilter) Matches(o *Order) bool {
	switch f.Role {
	case OrderRoleBuyer:
		if o.BuyerID != f.UserID {
			return false
		}
	case OrderRoleMerchant:
		if o.MerchantID != f.UserID {
			return false
		}
	default:
		if f.UserID != "" && !o.IsParticipant(f.UserID) {
			return false
		}
	}
	return f.Status == "" || o.Status == f.Status
}

// IsParticipant reports whether userID is the buyer or the merchant
func (o *Order) IsParticipant(userID string) bool {
	return userID != "" && (o.BuyerID == userID || o.MerchantID == userID)
}

// IsExpired reports whether a pending order's payment window has elapsed at now.
func (o *Order) IsExpired(now time.Time) bool {
	return o.Status == OrderStatusPendingPayment && now.After(o.ExpiresAt)
}

// TransitionTo moves the order to the next status and stamps the matching timestamp.
func (o *Order) TransitionTo(to OrderStatus, at time.Time) error {
	if !CanTransition(o.Status, to) {
		return domainerrors.InvalidState(
			fmt.Sprintf("order cannot move from %s to %s", o.Status, to),
			domainerrors.ErrInvalidTransition,
		)
	}
	switch to {
	case OrderStatusAwaitingRelease:
		o.PaidAt = null.TimeFrom(at)
	case OrderStatusCompleted:
		o.ReleasedAt = null.TimeFrom(at)
		o.CompletedAt = null.TimeFrom(at)
	case OrderStatusCancelled:
		o.CancelledAt = null.TimeFrom(at)
	case OrderStatusDisputed:
		o.DisputedAt = null.TimeFrom(at)
	}
	o.Status = to
	o.UpdatedAt = at
	return nil
}
