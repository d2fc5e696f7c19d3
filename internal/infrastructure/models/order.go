package models

import (
	"time"
)

type Order struct {
	ID             string  `gorm:"type:varchar(64);primaryKey"`
	AdID           string  `gorm:"type:varchar(64);not null;index"`
	BuyerID        string  `gorm:"type:varchar(64);not null;index"`
	MerchantID     string  `gorm:"type:varchar(64);not null;index"`
	Type           string  `gorm:"type:varchar(8);not null"`
	CryptoCurrency string  `gorm:"type:varchar(16);not null"`
	FiatCurrency   string  `gorm:"type:varchar(16);not null"`
	CryptoAmount   string  `gorm:"type:varchar(64);not null"`
	FiatAmount     string  `gorm:"type:varchar(64);not null"`
	Price          string  `gorm:"type:varchar(64);not null"`
	Status         string  `gorm:"type:varchar(32);not null;index"`
	PaymentMethod  string  `gorm:"type:varchar(64);not null"`
	PaymentWindow  int     `gorm:"not null"`
	PaymentProof   *string `gorm:"type:text"`
	CancelReason   *string `gorm:"type:text"`
	DisputeReason  *string `gorm:"type:text"`
	Rating         *int
	CreatedAt      time.Time
	ExpiresAt      time.Time `gorm:"not null;index"`
	PaidAt         *time.Time
	ReleasedAt     *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	DisputedAt     *time.Time
	UpdatedAt      time.Time
}

func (Order) TableName() string {
	return "p2p_orders"
}
