package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finstack-p2p.backend/internal/domain/entities"
	"finstack-p2p.backend/internal/usecases"
)

func listingIDs(ls []entities.MarketplaceListing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

func marketAd(id, merchant string, typ entities.AdType, price int64, created time.Time) *entities.Ad {
	ad := seededAd(id, merchant, true)
	ad.Type = typ
	ad.Price = decimal.NewFromInt(price)
	ad.CreatedAt = created
	return ad
}

func TestFilterListings_TakerSideAndPriceSort(t *testing.T) {
	ads := []*entities.Ad{
		marketAd("s1", "m1", entities.AdTypeSell, 1660, t0),
		marketAd("s2", "m2", entities.AdTypeSell, 1640, t0),
		marketAd("s3", "m1", entities.AdTypeSell, 1650, t0),
		marketAd("b1", "m2", entities.AdTypeBuy, 1600, t0),
		marketAd("b2", "m1", entities.AdTypeBuy, 1620, t0),
	}

	buying := usecases.FilterListings(ads, nil, usecases.MarketplaceFilter{Side: entities.AdTypeBuy, Sort: usecases.SortByPrice})
	assert.Equal(t, []string{"s2", "s3", "s1"}, listingIDs(buying))

	selling := usecases.FilterListings(ads, nil, usecases.MarketplaceFilter{Side: entities.AdTypeSell, Sort: usecases.SortByPrice})
	assert.Equal(t, []string{"b2", "b1"}, listingIDs(selling))
}

func TestFilterListings_SkipsInactiveAndAppliesFilters(t *testing.T) {
	inactive := marketAd("x", "m1", entities.AdTypeSell, 1650, t0)
	inactive.IsActive = false
	other := marketAd("eth", "m1", entities.AdTypeSell, 1650, t0)
	other.CryptoCurrency = "ETH"
	cash := marketAd("cash", "m2", entities.AdTypeSell, 1650, t0)
	cash.PaymentMethods = []string{"Cash"}

	ads := []*entities.Ad{inactive, other, cash, marketAd("ok", "m1", entities.AdTypeSell, 1650, t0)}
	profiles := map[string]*entities.MerchantProfile{
		"m1": {ID: "m1", Country: "Nigeria", IsVerified: true, Rating: 4.5},
		"m2": {ID: "m2", Country: "Ghana", Rating: 4.9},
	}

	got := usecases.FilterListings(ads, profiles, usecases.MarketplaceFilter{
		Side:          entities.AdTypeBuy,
		Crypto:        "usdt",
		Fiat:          "NGN",
		PaymentMethod: "bank transfer",
	})
	assert.Equal(t, []string{"ok"}, listingIDs(got))
	require.NotNil(t, got[0].Merchant)
	assert.Equal(t, "Nigeria", got[0].Merchant.Country)

	got = usecases.FilterListings(ads, profiles, usecases.MarketplaceFilter{Country: "ghana"})
	assert.Equal(t, []string{"cash"}, listingIDs(got))

	got = usecases.FilterListings(ads, profiles, usecases.MarketplaceFilter{VerifiedOnly: true, Crypto: "USDT"})
	assert.Equal(t, []string{"ok"}, listingIDs(got))
}

func TestFilterListings_PriceRange(t *testing.T) {
	ads := []*entities.Ad{
		marketAd("p1", "m1", entities.AdTypeSell, 1600, t0),
		marketAd("p2", "m1", entities.AdTypeSell, 1650, t0),
		marketAd("p3", "m1", entities.AdTypeSell, 1700, t0),
	}
	got := usecases.FilterListings(ads, nil, usecases.MarketplaceFilter{
		MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(1610)),
		MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(1700)),
	})
	assert.Equal(t, []string{"p2", "p3"}, listingIDs(got))
}

func TestFilterListings_RatingSortWithTieBreak(t *testing.T) {
	ads := []*entities.Ad{
		marketAd("late", "m1", entities.AdTypeSell, 1650, t0.Add(time.Hour)),
		marketAd("b-early", "m1", entities.AdTypeSell, 1650, t0),
		marketAd("a-early", "m1", entities.AdTypeSell, 1650, t0),
		marketAd("top", "m2", entities.AdTypeSell, 1650, t0.Add(2*time.Hour)),
	}
	profiles := map[string]*entities.MerchantProfile{
		"m1": {ID: "m1", Rating: 4.0},
		"m2": {ID: "m2", Rating: 4.8},
	}
	got := usecases.FilterListings(ads, profiles, usecases.MarketplaceFilter{Sort: usecases.SortByRating})
	assert.Equal(t, []string{"top", "a-early", "b-early", "late"}, listingIDs(got))
}

func TestMarketplaceUsecase_Search(t *testing.T) {
	ads := newMemAdRepo(marketAd("s1", "m1", entities.AdTypeSell, 1650, t0))
	profiles := &memProfileRepo{profiles: []*entities.MerchantProfile{{ID: "m1", DisplayName: "Ada", IsVerified: true}}}

	got, err := usecases.NewMarketplaceUsecase(ads, profiles).Search(context.Background(), usecases.MarketplaceFilter{Side: entities.AdTypeBuy})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ada", got[0].Merchant.DisplayName)
}
