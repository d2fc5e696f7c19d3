package kvstore

import (
	"context"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/domain/repositories"
)

type adRepo struct {
	s *Store
}

// NewAdRepository creates an ad repository over the p2p_merchant_ads key
func NewAdRepository(s *Store) repositories.AdRepository {
	return &adRepo{s: s}
}

func (r *adRepo) Create(ctx context.Context, ad *entities.Ad) error {
	return update(ctx, r.s, KeyAds, func(items []entities.Ad) ([]entities.Ad, error) {
		for _, it := range items {
			if it.ID == ad.ID {
				return nil, domainerrors.ErrAlreadyExists
			}
		}
		return append(items, *ad), nil
	})
}

func (r *adRepo) GetByID(ctx context.Context, id string) (*entities.Ad, error) {
	items, err := load[entities.Ad](ctx, r.s, KeyAds)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *adRepo) Update(ctx context.Context, ad *entities.Ad) error {
	return update(ctx, r.s, KeyAds, func(items []entities.Ad) ([]entities.Ad, error) {
		for i := range items {
			if items[i].ID == ad.ID {
				items[i] = *ad
				return items, nil
			}
		}
		return nil, domainerrors.ErrNotFound
	})
}

func (r *adRepo) Delete(ctx context.Context, id string) error {
	return update(ctx, r.s, KeyAds, func(items []entities.Ad) ([]entities.Ad, error) {
		out := items[:0]
		for _, it := range items {
			if it.ID != id {
				out = append(out, it)
			}
		}
		return out, nil
	})
}

func (r *adRepo) List(ctx context.Context) ([]*entities.Ad, error) {
	items, err := load[entities.Ad](ctx, r.s, KeyAds)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Ad, 0, len(items))
	for i := range items {
		out = append(out, &items[i])
	}
	return out, nil
}

func (r *adRepo) ListByMerchant(ctx context.Context, merchantID string) ([]*entities.Ad, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Ad, 0, len(all))
	for _, ad := range all {
		if ad.MerchantID == merchantID {
			out = append(out, ad)
		}
	}
	return out, nil
}
