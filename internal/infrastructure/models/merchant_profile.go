package models

type MerchantProfile struct {
	ID             string  `gorm:"type:varchar(64);primaryKey"`
	DisplayName    string  `gorm:"type:varchar(255);not null"`
	Country        string  `gorm:"type:varchar(64);index"`
	Rating         float64 `gorm:"default:0"`
	TradeCount     int     `gorm:"default:0"`
	CompletionRate float64 `gorm:"default:0"`
	IsVerified     bool    `gorm:"default:false"`
}

func (MerchantProfile) TableName() string {
	return "p2p_merchant_profiles"
}

// All returns every model the sql store migrates.
func All() []interface{} {
	return []interface{}{&Ad{}, &Order{}, &MerchantProfile{}}
}
