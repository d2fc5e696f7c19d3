package models

import (
	"time"
)

type Ad struct {
	ID             string   `gorm:"type:varchar(64);primaryKey"`
	MerchantID     string   `gorm:"type:varchar(64);not null;index"`
	Type           string   `gorm:"type:varchar(8);not null"`
	CryptoCurrency string   `gorm:"type:varchar(16);not null;index:idx_ads_pair"`
	FiatCurrency   string   `gorm:"type:varchar(16);not null;index:idx_ads_pair"`
	Price          string   `gorm:"type:varchar(64);not null"`
	Available      string   `gorm:"type:varchar(64);not null"`
	MinLimit       string   `gorm:"type:varchar(64);not null"`
	MaxLimit       string   `gorm:"type:varchar(64);not null"`
	PaymentMethods []string `gorm:"serializer:json;type:text"`
	PaymentWindow  int      `gorm:"not null;default:15"`
	Instructions   *string  `gorm:"type:text"`
	IsActive       bool     `gorm:"not null;default:true;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Ad) TableName() string {
	return "p2p_ads"
}
