package repositories

import (
	"context"
	"time"

	"finstack-p2p.backend/internal/domain/entities"
)

// OrderRepository defines order data operations. Orders are never deleted.
type OrderRepository interface {
	Create(ctx context.Context, order *entities.Order) error
	GetByID(ctx context.Context, id string) (*entities.Order, error)
	Update(ctx context.Context, order *entities.Order) error
	List(ctx context.Context, filter entities.OrderFilter) ([]*entities.Order, error)
	GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entities.Order, error)
}
