package entities

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// Dispute is the canonical admin dispute record
type Dispute struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"orderId"`
	RaisedBy   string          `json:"raisedBy"`
	Reason     string          `json:"reason"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"createdAt"`
	ResolvedAt null.Time       `json:"resolvedAt"`
}

// AdminMerchant is the canonical admin merchant record
type AdminMerchant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Status     string    `json:"status"`
	IsVerified bool      `json:"isVerified"`
	Rating     float64   `json:"rating"`
	TradeCount int       `json:"tradeCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// KYCRecord is the canonical admin KYC record
type KYCRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
	ReviewedAt  null.Time `json:"reviewedAt"`
}

// Transaction is the canonical admin transaction / ledger record
type Transaction struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	User      string          `json:"user"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
}

// DisputeStats summarizes a dispute list
type DisputeStats struct {
	Total          int             `json:"total"`
	Open           int             `json:"open"`
	Resolved       int             `json:"resolved"`
	Escalated      int             `json:"escalated"`
	DisputedAmount decimal.Decimal `json:"disputedAmount"`
}

// MerchantStats summarizes a merchant list
type MerchantStats struct {
	Total         int     `json:"total"`
	Active        int     `json:"active"`
	Suspended     int     `json:"suspended"`
	Verified      int     `json:"verified"`
	AverageRating float64 `json:"averageRating"`
}

// KYCStats summarizes a KYC list
type KYCStats struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	Approved     int     `json:"approved"`
	Rejected     int     `json:"rejected"`
	ApprovalRate float64 `json:"approvalRate"`
}

// TransactionStats summarizes a transaction list
type TransactionStats struct {
	Count       int             `json:"count"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
	Completed   int             `json:"completed"`
	Failed      int             `json:"failed"`
	SuccessRate float64         `json:"successRate"`
}
