package repositories

import (
	"context"

	"finstack-p2p.backend/internal/domain/entities"
)

// MerchantProfileRepository defines merchant profile data operations
type MerchantProfileRepository interface {
	GetByID(ctx context.Context, id string) (*entities.MerchantProfile, error)
	List(ctx context.Context) ([]*entities.MerchantProfile, error)
	Upsert(ctx context.Context, profile *entities.MerchantProfile) error
}
