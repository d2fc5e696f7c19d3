package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"finstack-p2p.backend/internal/domain/entities"
	"finstack-p2p.backend/internal/infrastructure/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func newMigratedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(models.All()...), "auto migrate")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func sampleAd(id, merchantID string, created time.Time) *entities.Ad {
	return &entities.Ad{
		ID:             id,
		MerchantID:     merchantID,
		Type:           entities.AdTypeSell,
		CryptoCurrency: "USDT",
		FiatCurrency:   "NGN",
		Price:          decimal.RequireFromString("1650.25"),
		Available:      decimal.NewFromInt(1000),
		MinLimit:       decimal.NewFromInt(10000),
		MaxLimit:       decimal.NewFromInt(500000),
		PaymentMethods: []string{"Bank Transfer", "OPay"},
		PaymentWindow:  15,
		IsActive:       true,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func sampleOrder(id, buyerID, merchantID string, status entities.OrderStatus, created time.Time) *entities.Order {
	return &entities.Order{
		ID:             id,
		AdID:           "ad-1",
		BuyerID:        buyerID,
		MerchantID:     merchantID,
		Type:           entities.AdTypeSell,
		CryptoCurrency: "USDT",
		FiatCurrency:   "NGN",
		CryptoAmount:   decimal.NewFromInt(20000).Div(decimal.NewFromInt(1650)),
		FiatAmount:     decimal.NewFromInt(20000),
		Price:          decimal.NewFromInt(1650),
		Status:         status,
		PaymentMethod:  "Bank Transfer",
		PaymentWindow:  15,
		CreatedAt:      created,
		ExpiresAt:      created.Add(15 * time.Minute),
		UpdatedAt:      created,
	}
}
