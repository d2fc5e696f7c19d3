package usecases

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"finstack-p2p.backend/internal/domain/entities"
	"finstack-p2p.backend/internal/domain/repositories"
)

const (
	SortByPrice  = "price"
	SortByRating = "rating"
)

// MarketplaceFilter selects marketplace listings. Side is the taker's side:
// a taker who buys sees sell ads and vice versa.
type MarketplaceFilter struct {
	Side          entities.AdType
	Crypto        string
	Fiat          string
	PaymentMethod string
	Country       string
	VerifiedOnly  bool
	MinPrice      decimal.NullDecimal
	MaxPrice      decimal.NullDecimal
	Sort          string
}

// MarketplaceUsecase lists active ads joined with merchant profiles
type MarketplaceUsecase struct {
	adRepo      repositories.AdRepository
	profileRepo repositories.MerchantProfileRepository
}

func NewMarketplaceUsecase(adRepo repositories.AdRepository, profileRepo repositories.MerchantProfileRepository) *MarketplaceUsecase {
	return &MarketplaceUsecase{adRepo: adRepo, profileRepo: profileRepo}
}

// Search loads ads and profiles and applies FilterListings
func (u *MarketplaceUsecase) Search(ctx context.Context, f MarketplaceFilter) ([]entities.MarketplaceListing, error) {
	ads, err := u.adRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	profiles, err := u.profileRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list merchant profiles: %w", err)
	}
	byID := make(map[string]*entities.MerchantProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	return FilterListings(ads, byID, f), nil
}

// FilterListings filters and sorts ads. Inactive ads are never returned.
func FilterListings(ads []*entities.Ad, profiles map[string]*entities.MerchantProfile, f MarketplaceFilter) []entities.MarketplaceListing {
	out := make([]entities.MarketplaceListing, 0, len(ads))
	for _, ad := range ads {
		if !ad.IsActive {
			continue
		}
		profile := profiles[ad.MerchantID]
		if !f.matches(ad, profile) {
			continue
		}
		out = append(out, entities.MarketplaceListing{Ad: *ad, Merchant: profile})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		switch f.Sort {
		case SortByPrice:
			if c := a.Price.Cmp(b.Price); c != 0 {
				if f.Side == entities.AdTypeSell {
					return c > 0
				}
				return c < 0
			}
		case SortByRating:
			ra, rb := rating(a.Merchant), rating(b.Merchant)
			if ra != rb {
				return ra > rb
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

func (f MarketplaceFilter) matches(ad *entities.Ad, profile *entities.MerchantProfile) bool {
	if f.Side != "" && ad.Type != f.Side.Opposite() {
		return false
	}
	if f.Crypto != "" && !strings.EqualFold(ad.CryptoCurrency, f.Crypto) {
		return false
	}
	if f.Fiat != "" && !strings.EqualFold(ad.FiatCurrency, f.Fiat) {
		return false
	}
	if f.PaymentMethod != "" && !ad.OffersPaymentMethod(f.PaymentMethod) {
		return false
	}
	if f.Country != "" && (profile == nil || !strings.EqualFold(profile.Country, f.Country)) {
		return false
	}
	if f.VerifiedOnly && (profile == nil || !profile.IsVerified) {
		return false
	}
	if f.MinPrice.Valid && ad.Price.LessThan(f.MinPrice.Decimal) {
		return false
	}
	if f.MaxPrice.Valid && ad.Price.GreaterThan(f.MaxPrice.Decimal) {
		return false
	}
	return true
}

func rating(p *entities.MerchantProfile) float64 {
	if p == nil {
		return 0
	}
	return p.Rating
}
