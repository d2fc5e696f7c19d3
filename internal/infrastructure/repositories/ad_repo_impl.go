package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/domain/repositories"
	"finstack-p2p.backend/internal/infrastructure/models"
)

// adRepo implements repositories.AdRepository
type adRepo struct {
	db *gorm.DB
}

// NewAdRepository creates a new ad repository
func NewAdRepository(db *gorm.DB) repositories.AdRepository {
	return &adRepo{db: db}
}

func (r *adRepo) Create(ctx context.Context, ad *entities.Ad) error {
	return GetDB(ctx, r.db).WithContext(ctx).Create(r.toModel(ad)).Error
}

func (r *adRepo) GetByID(ctx context.Context, id string) (*entities.Ad, error) {
	var m models.Ad
	if err := GetDB(ctx, r.db).WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *adRepo) Update(ctx context.Context, ad *entities.Ad) error {
	m := r.toModel(ad)
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Ad{ID: m.ID}).
		Select("*").Omit("id", "merchant_id", "created_at").
		Updates(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *adRepo) Delete(ctx context.Context, id string) error {
	return GetDB(ctx, r.db).WithContext(ctx).Delete(&models.Ad{}, "id = ?", id).Error
}

func (r *adRepo) List(ctx context.Context) ([]*entities.Ad, error) {
	var ms []models.Ad
	if err := GetDB(ctx, r.db).WithContext(ctx).Order("created_at, id").Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

func (r *adRepo) ListByMerchant(ctx context.Context, merchantID string) ([]*entities.Ad, error) {
	var ms []models.Ad
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at, id").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

func (r *adRepo) toEntities(ms []models.Ad) []*entities.Ad {
	ads := make([]*entities.Ad, 0, len(ms))
	for i := range ms {
		ads = append(ads, r.toEntity(&ms[i]))
	}
	return ads
}

func (r *adRepo) toModel(ad *entities.Ad) *models.Ad {
	return &models.Ad{
		ID:             ad.ID,
		MerchantID:     ad.MerchantID,
		Type:           string(ad.Type),
		CryptoCurrency: ad.CryptoCurrency,
		FiatCurrency:   ad.FiatCurrency,
		Price:          ad.Price.String(),
		Available:      ad.Available.String(),
		MinLimit:       ad.MinLimit.String(),
		MaxLimit:       ad.MaxLimit.String(),
		PaymentMethods: ad.PaymentMethods,
		PaymentWindow:  ad.PaymentWindow,
		Instructions:   stringPtr(ad.Instructions),
		IsActive:       ad.IsActive,
		CreatedAt:      ad.CreatedAt,
		UpdatedAt:      ad.UpdatedAt,
	}
}

func (r *adRepo) toEntity(m *models.Ad) *entities.Ad {
	methods := m.PaymentMethods
	if methods == nil {
		methods = []string{}
	}
	return &entities.Ad{
		ID:             m.ID,
		MerchantID:     m.MerchantID,
		Type:           entities.AdType(m.Type),
		CryptoCurrency: m.CryptoCurrency,
		FiatCurrency:   m.FiatCurrency,
		Price:          decimalOrZero(m.Price),
		Available:      decimalOrZero(m.Available),
		MinLimit:       decimalOrZero(m.MinLimit),
		MaxLimit:       decimalOrZero(m.MaxLimit),
		PaymentMethods: methods,
		PaymentWindow:  m.PaymentWindow,
		Instructions:   nullString(m.Instructions),
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
