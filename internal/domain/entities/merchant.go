package entities

// MerchantProfile is read-only reference data joined into marketplace listings
type MerchantProfile struct {
	ID             string  `json:"id"`
	DisplayName    string  `json:"displayName"`
	Country        string  `json:"country"`
	Rating         float64 `json:"rating"`
	TradeCount     int     `json:"tradeCount"`
	CompletionRate float64 `json:"completionRate"`
	IsVerified     bool    `json:"isVerified"`
}

// MarketplaceListing is an ad joined with its merchant's profile
type MarketplaceListing struct {
	Ad
	Merchant *MerchantProfile `json:"merchant,omitempty"`
}
