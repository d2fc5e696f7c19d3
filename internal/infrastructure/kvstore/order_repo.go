package kvstore

import (
	"context"
	"sort"
	"time"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/domain/repositories"
)

type orderRepo struct {
	s *Store
}

// NewOrderRepository creates an order repository over the p2p_orders key
func NewOrderRepository(s *Store) repositories.OrderRepository {
	return &orderRepo{s: s}
}

func (r *orderRepo) Create(ctx context.Context, order *entities.Order) error {
	return update(ctx, r.s, KeyOrders, func(items []entities.Order) ([]entities.Order, error) {
		for _, it := range items {
			if it.ID == order.ID {
				return nil, domainerrors.ErrAlreadyExists
			}
		}
		return append(items, *order), nil
	})
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*entities.Order, error) {
	items, err := load[entities.Order](ctx, r.s, KeyOrders)
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

func (r *orderRepo) Update(ctx context.Context, order *entities.Order) error {
	return update(ctx, r.s, KeyOrders, func(items []entities.Order) ([]entities.Order, error) {
		for i := range items {
			if items[i].ID == order.ID {
				items[i] = *order
				return items, nil
			}
		}
		return nil, domainerrors.ErrNotFound
	})
}

func (r *orderRepo) List(ctx context.Context, filter entities.OrderFilter) ([]*entities.Order, error) {
	items, err := load[entities.Order](ctx, r.s, KeyOrders)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Order, 0, len(items))
	for i := range items {
		if filter.Matches(&items[i]) {
			out = append(out, &items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *orderRepo) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entities.Order, error) {
	items, err := load[entities.Order](ctx, r.s, KeyOrders)
	if err != nil {
		return nil, err
	}
	var out []*entities.Order
	for i := range items {
		if items[i].IsExpired(now) {
			out = append(out, &items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
