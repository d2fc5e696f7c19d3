package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/domain/repositories"
	"finstack-p2p.backend/pkg/utils"
)

// ReferenceCatalog validates ad fields against the supported reference data
type ReferenceCatalog interface {
	HasPaymentMethod(method string) bool
	HasCrypto(code string) bool
	HasFiat(code string) bool
}

// BulkStatusResult reports what BulkSetActive changed
type BulkStatusResult struct {
	Updated []string `json:"updated"`
	// Unknown lists ids that matched no ad owned by the caller.
	Unknown []string `json:"unknown"`
}

// AdUsecase handles merchant ad management
type AdUsecase struct {
	adRepo  repositories.AdRepository
	uow     repositories.UnitOfWork
	catalog ReferenceCatalog
	now     func() time.Time
}

// NewAdUsecase creates a new ad usecase. catalog may be nil to skip reference validation.
func NewAdUsecase(adRepo repositories.AdRepository, uow repositories.UnitOfWork, catalog ReferenceCatalog) *AdUsecase {
	return &AdUsecase{
		adRepo:  adRepo,
		uow:     uow,
		catalog: catalog,
		now:     time.Now,
	}
}

// CreateAd validates and stores a new active ad owned by merchantID
func (u *AdUsecase) CreateAd(ctx context.Context, merchantID string, input *entities.AdInput) (*entities.Ad, error) {
	now := u.now().UTC()
	ad := &entities.Ad{
		ID:         utils.NewID(),
		MerchantID: merchantID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	input.Apply(ad)

	if err := u.validate(ad); err != nil {
		return nil, err
	}
	if err := u.adRepo.Create(ctx, ad); err != nil {
		return nil, fmt.Errorf("create ad: %w", err)
	}
	return ad, nil
}

// UpdateAd replaces every editable field of an ad the caller owns. The read
// and write share one unit of work so a reservation committed meanwhile is
// never overwritten with a stale copy.
func (u *AdUsecase) UpdateAd(ctx context.Context, merchantID, id string, input *entities.AdInput) (*entities.Ad, error) {
	var ad *entities.Ad
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		var err error
		ad, err = u.ownedAd(u.uow.WithLock(txCtx), merchantID, id)
		if err != nil {
			return err
		}

		input.Apply(ad)
		ad.UpdatedAt = u.now().UTC()
		if err := u.validate(ad); err != nil {
			return err
		}
		if err := u.adRepo.Update(txCtx, ad); err != nil {
			return fmt.Errorf("update ad: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ad, nil
}

// DeleteAd removes an ad. Deleting an absent ad succeeds.
func (u *AdUsecase) DeleteAd(ctx context.Context, merchantID, id string) error {
	return u.uow.Do(ctx, func(txCtx context.Context) error {
		ad, err := u.adRepo.GetByID(u.uow.WithLock(txCtx), id)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("get ad: %w", err)
		}
		if ad.MerchantID != merchantID {
			return domainerrors.Forbidden("you do not own this ad")
		}
		if err := u.adRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("delete ad: %w", err)
		}
		return nil
	})
}

// ToggleAd flips isActive
func (u *AdUsecase) ToggleAd(ctx context.Context, merchantID, id string) (*entities.Ad, error) {
	var ad *entities.Ad
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		var err error
		ad, err = u.ownedAd(u.uow.WithLock(txCtx), merchantID, id)
		if err != nil {
			return err
		}
		ad.IsActive = !ad.IsActive
		ad.UpdatedAt = u.now().UTC()
		if err := u.adRepo.Update(txCtx, ad); err != nil {
			return fmt.Errorf("toggle ad: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ad, nil
}

// BulkSetActive sets isActive on the listed ads the caller owns. Other ads
// are left untouched and unmatched ids are reported back.
func (u *AdUsecase) BulkSetActive(ctx context.Context, merchantID string, ids []string, active bool) (*BulkStatusResult, error) {
	if len(ids) == 0 {
		return nil, domainerrors.BadRequest("select at least one ad")
	}

	var result *BulkStatusResult
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		result = &BulkStatusResult{Updated: []string{}, Unknown: []string{}}
		mine, err := u.adRepo.ListByMerchant(u.uow.WithLock(txCtx), merchantID)
		if err != nil {
			return fmt.Errorf("list ads: %w", err)
		}
		byID := make(map[string]*entities.Ad, len(mine))
		for _, ad := range mine {
			byID[ad.ID] = ad
		}

		now := u.now().UTC()
		seen := map[string]bool{}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true

			ad, ok := byID[id]
			if !ok {
				result.Unknown = append(result.Unknown, id)
				continue
			}
			if ad.IsActive != active {
				ad.IsActive = active
				ad.UpdatedAt = now
				if err := u.adRepo.Update(txCtx, ad); err != nil {
					return fmt.Errorf("update ad %s: %w", id, err)
				}
			}
			result.Updated = append(result.Updated, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListMyAds returns every ad the merchant owns, active or not
func (u *AdUsecase) ListMyAds(ctx context.Context, merchantID string) ([]*entities.Ad, error) {
	ads, err := u.adRepo.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	return ads, nil
}

// GetAd returns a single ad
func (u *AdUsecase) GetAd(ctx context.Context, id string) (*entities.Ad, error) {
	ad, err := u.adRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("ad not found")
		}
		return nil, fmt.Errorf("get ad: %w", err)
	}
	return ad, nil
}

func (u *AdUsecase) ownedAd(ctx context.Context, merchantID, id string) (*entities.Ad, error) {
	ad, err := u.GetAd(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad.MerchantID != merchantID {
		return nil, domainerrors.Forbidden("you do not own this ad")
	}
	return ad, nil
}

func (u *AdUsecase) validate(ad *entities.Ad) error {
	if err := ad.Validate(); err != nil {
		return err
	}
	if u.catalog == nil {
		return nil
	}
	if !u.catalog.HasCrypto(ad.CryptoCurrency) {
		return domainerrors.BadRequest("unsupported crypto currency: " + ad.CryptoCurrency)
	}
	if !u.catalog.HasFiat(ad.FiatCurrency) {
		return domainerrors.BadRequest("unsupported fiat currency: " + ad.FiatCurrency)
	}
	for _, m := range ad.PaymentMethods {
		if !u.catalog.HasPaymentMethod(m) {
			return domainerrors.BadRequest("unsupported payment method: " + m)
		}
	}
	return nil
}
