package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/domain/repositories"
	"finstack-p2p.backend/internal/infrastructure/models"
)

// merchantProfileRepo implements repositories.MerchantProfileRepository
type merchantProfileRepo struct {
	db *gorm.DB
}

// NewMerchantProfileRepository creates a new merchant profile repository
func NewMerchantProfileRepository(db *gorm.DB) repositories.MerchantProfileRepository {
	return &merchantProfileRepo{db: db}
}

func (r *merchantProfileRepo) GetByID(ctx context.Context, id string) (*entities.MerchantProfile, error) {
	var m models.MerchantProfile
	if err := GetDB(ctx, r.db).WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toProfileEntity(&m), nil
}

func (r *merchantProfileRepo) List(ctx context.Context) ([]*entities.MerchantProfile, error) {
	var ms []models.MerchantProfile
	if err := GetDB(ctx, r.db).WithContext(ctx).Order("id").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.MerchantProfile, 0, len(ms))
	for i := range ms {
		out = append(out, toProfileEntity(&ms[i]))
	}
	return out, nil
}

func (r *merchantProfileRepo) Upsert(ctx context.Context, p *entities.MerchantProfile) error {
	m := models.MerchantProfile{
		ID:             p.ID,
		DisplayName:    p.DisplayName,
		Country:        p.Country,
		Rating:         p.Rating,
		TradeCount:     p.TradeCount,
		CompletionRate: p.CompletionRate,
		IsVerified:     p.IsVerified,
	}
	return GetDB(ctx, r.db).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
}

func toProfileEntity(m *models.MerchantProfile) *entities.MerchantProfile {
	return &entities.MerchantProfile{
		ID:             m.ID,
		DisplayName:    m.DisplayName,
		Country:        m.Country,
		Rating:         m.Rating,
		TradeCount:     m.TradeCount,
		CompletionRate: m.CompletionRate,
		IsVerified:     m.IsVerified,
	}
}
