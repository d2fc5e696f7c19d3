package repositories

import (
	"context"

	"finstack-p2p.backend/internal/domain/entities"
)

// AdRepository defines ad data operations
type AdRepository interface {
	Create(ctx context.Context, ad *entities.Ad) error
	GetByID(ctx context.Context, id string) (*entities.Ad, error)
	Update(ctx context.Context, ad *entities.Ad) error
	// Delete is a no-op when the ad does not exist.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*entities.Ad, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]*entities.Ad, error)
}
