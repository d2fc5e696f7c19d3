package kvstore

import (
	"context"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/domain/repositories"
)

type merchantProfileRepo struct {
	s *Store
}

// NewMerchantProfileRepository creates a profile repository over the p2p_merchants key
func NewMerchantProfileRepository(s *Store) repositories.MerchantProfileRepository {
	return &merchantProfileRepo{s: s}
}

func (r *merchantProfileRepo) GetByID(ctx context.Context, id string) (*entities.MerchantProfile, error) {
	items, err := load[entities.MerchantProfile](ctx, r.s, KeyMerchants)
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

func (r *merchantProfileRepo) List(ctx context.Context) ([]*entities.MerchantProfile, error) {
	items, err := load[entities.MerchantProfile](ctx, r.s, KeyMerchants)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.MerchantProfile, 0, len(items))
	for i := range items {
		out = append(out, &items[i])
	}
	return out, nil
}

func (r *merchantProfileRepo) Upsert(ctx context.Context, p *entities.MerchantProfile) error {
	return update(ctx, r.s, KeyMerchants, func(items []entities.MerchantProfile) ([]entities.MerchantProfile, error) {
		for i := range items {
			if items[i].ID == p.ID {
				items[i] = *p
				return items, nil
			}
		}
		return append(items, *p), nil
	})
}
