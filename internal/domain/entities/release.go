package entities

import "time"

// ReleaseChallenge is returned when a merchant starts releasing an order.
// Code is populated only by the local authorizer in demo mode.
type ReleaseChallenge struct {
	OrderID   string    `json:"orderId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Code      string    `json:"code,omitempty"`
}
