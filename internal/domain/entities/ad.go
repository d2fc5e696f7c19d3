package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	domainerrors "finstack-p2p.backend/internal/domain/errors"
)

// AdType is the side the merchant takes on an ad
type AdType string

const (
	AdTypeBuy  AdType = "buy"
	AdTypeSell AdType = "sell"
)

// DefaultPaymentWindow is applied when an ad omits its payment window (minutes).
const DefaultPaymentWindow = 15

// Opposite returns the side a taker of this ad trades on.
func (t AdType) Opposite() AdType {
	if t == AdTypeBuy {
		return AdTypeSell
	}
	return AdTypeBuy
}

// Valid reports whether the type is buy or sell
func (t AdType) Valid() bool {
	return t == AdTypeBuy || t == AdTypeSell
}

// Ad represents a merchant-authored buy/sell offer
type Ad struct {
	ID             string          `json:"id"`
	MerchantID     string          `json:"merchantId"`
	Type           AdType          `json:"type"`
	CryptoCurrency string          `json:"cryptoCurrency"`
	FiatCurrency   string          `json:"fiatCurrency"`
	Price          decimal.Decimal `json:"price"`
	Available      decimal.Decimal `json:"available"`
	MinLimit       decimal.Decimal `json:"minLimit"`
	MaxLimit       decimal.Decimal `json:"maxLimit"`
	PaymentMethods []string        `json:"paymentMethods"`
	PaymentWindow  int             `json:"paymentWindow"`
	Instructions   null.String     `json:"instructions"`
	IsActive       bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// AdInput is the merchant-editable part of an ad
type AdInput struct {
	Type           AdType          `json:"type" binding:"required"`
	CryptoCurrency string          `json:"cryptoCurrency" binding:"required"`
	FiatCurrency   string          `json:"fiatCurrency" binding:"required"`
	Price          decimal.Decimal `json:"price"`
	Available      decimal.Decimal `json:"available"`
	MinLimit       decimal.Decimal `json:"minLimit"`
	MaxLimit       decimal.Decimal `json:"maxLimit"`
	PaymentMethods []string        `json:"paymentMethods"`
	PaymentWindow  int             `json:"paymentWindow"`
	Instructions   string          `json:"instructions"`
	IsActive       *bool           `json:"isActive"`
}

// Apply copies the input onto the ad, normalizing currencies and defaults.
func (in AdInput) Apply(ad *Ad) {
	ad.Type = AdType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	ad.CryptoCurrency = strings.ToUpper(strings.TrimSpace(in.CryptoCurrency))
	ad.FiatCurrency = strings.ToUpper(strings.TrimSpace(in.FiatCurrency))
	ad.Price = in.Price
	ad.Available = in.Available
	ad.MinLimit = in.MinLimit
	ad.MaxLimit = in.MaxLimit

	methods := make([]string, 0, len(in.PaymentMethods))
	for _, m := range in.PaymentMethods {
		if m = strings.TrimSpace(m); m != "" {
			methods = append(methods, m)
		}
	}
	ad.PaymentMethods = methods

	ad.PaymentWindow = in.PaymentWindow
	if ad.PaymentWindow == 0 {
		ad.PaymentWindow = DefaultPaymentWindow
	}
	ad.Instructions = null.NewString(strings.TrimSpace(in.Instructions), strings.TrimSpace(in.Instructions) != "")
	if in.IsActive != nil {
		ad.IsActive = *in.IsActive
	}
}

// Validate checks the invariants an ad must satisfy before it is saved
func (a *Ad) Validate() error {
	switch {
	case !a.Type.Valid():
		return domainerrors.BadRequest("ad type must be buy or sell")
	case a.CryptoCurrency == "":
		return domainerrors.BadRequest("crypto currency is required")
	case a.FiatCurrency == "":
		return domainerrors.BadRequest("fiat currency is required")
	case !a.Price.IsPositive():
		return domainerrors.BadRequest("price must be greater than zero")
	case a.Available.IsNegative():
		return domainerrors.BadRequest("available amount cannot be negative")
	case a.MinLimit.IsNegative():
		return domainerrors.BadRequest("minimum limit cannot be negative")
	case !a.MinLimit.LessThan(a.MaxLimit):
		return domainerrors.BadRequest("minimum limit must be less than maximum limit")
	case len(a.PaymentMethods) == 0:
		return domainerrors.BadRequest("select at least one payment method")
	case a.PaymentWindow <= 0:
		return domainerrors.BadRequest("payment window must be positive")
	}
	return nil
}

// OffersPaymentMethod matches case-insensitively
func (a *Ad) OffersPaymentMethod(method string) bool {
	for _, m := range a.PaymentMethods {
		if strings.EqualFold(m, strings.TrimSpace(method)) {
			return true
		}
	}
	return false
}

// PaymentWindowDuration returns the payment window as a duration
func (a *Ad) PaymentWindowDuration() time.Duration {
	return time.Duration(a.PaymentWindow) * time.Minute
}
