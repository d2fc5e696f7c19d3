package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/domain/repositories"
	"finstack-p2p.backend/internal/infrastructure/models"
)

// orderRepo implements repositories.OrderRepository
type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) repositories.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *entities.Order) error {
	return GetDB(ctx, r.db).WithContext(ctx).Create(r.toModel(order)).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*entities.Order, error) {
	var m models.Order
	if err := GetDB(ctx, r.db).WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *orderRepo) Update(ctx context.Context, order *entities.Order) error {
	m := r.toModel(order)
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Order{ID: m.ID}).
		Select("*").Omit("id", "ad_id", "buyer_id", "merchant_id", "created_at").
		Updates(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *orderRepo) List(ctx context.Context, filter entities.OrderFilter) ([]*entities.Order, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Order{})

	switch filter.Role {
	case entities.OrderRoleBuyer:
		query = query.Where("buyer_id = ?", filter.UserID)
	case entities.OrderRoleMerchant:
		query = query.Where("merchant_id = ?", filter.UserID)
	default:
		if filter.UserID != "" {
			query = query.Where("buyer_id = ? OR merchant_id = ?", filter.UserID, filter.UserID)
		}
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var ms []models.Order
	if err := query.Order("created_at DESC, id").Find(&ms).Error; err != nil {
		return nil, err
	}

	orders := make([]*entities.Order, 0, len(ms))
	for i := range ms {
		orders = append(orders, r.toEntity(&ms[i]))
	}
	return orders, nil
}

func (r *orderRepo) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entities.Order, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).
		Where("status = ? AND expires_at < ?", string(entities.OrderStatusPendingPayment), now.UTC()).
		Order("expires_at")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ms []models.Order
	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}

	orders := make([]*entities.Order, 0, len(ms))
	for i := range ms {
		orders = append(orders, r.toEntity(&ms[i]))
	}
	return orders, nil
}

func (r *orderRepo) toModel(o *entities.Order) *models.Order {
	return &models.Order{
		ID:             o.ID,
		AdID:           o.AdID,
		BuyerID:        o.BuyerID,
		MerchantID:     o.MerchantID,
		Type:           string(o.Type),
		CryptoCurrency: o.CryptoCurrency,
		FiatCurrency:   o.FiatCurrency,
		CryptoAmount:   o.CryptoAmount.String(),
		FiatAmount:     o.FiatAmount.String(),
		Price:          o.Price.String(),
		Status:         string(o.Status),
		PaymentMethod:  o.PaymentMethod,
		PaymentWindow:  o.PaymentWindow,
		PaymentProof:   stringPtr(o.PaymentProof),
		CancelReason:   stringPtr(o.CancelReason),
		DisputeReason:  stringPtr(o.DisputeReason),
		Rating:         intPtr(o.Rating),
		CreatedAt:      o.CreatedAt.UTC(),
		ExpiresAt:      o.ExpiresAt.UTC(),
		PaidAt:         timePtr(o.PaidAt),
		ReleasedAt:     timePtr(o.ReleasedAt),
		CompletedAt:    timePtr(o.CompletedAt),
		CancelledAt:    timePtr(o.CancelledAt),
		DisputedAt:     timePtr(o.DisputedAt),
		UpdatedAt:      o.UpdatedAt.UTC(),
	}
}

func (r *orderRepo) toEntity(m *models.Order) *entities.Order {
	status, err := entities.ParseOrderStatus(m.Status)
	if err != nil {
		status = entities.OrderStatus(m.Status)
	}
	return &entities.Order{
		ID:             m.ID,
		AdID:           m.AdID,
		BuyerID:        m.BuyerID,
		MerchantID:     m.MerchantID,
		Type:           entities.AdType(m.Type),
		CryptoCurrency: m.CryptoCurrency,
		FiatCurrency:   m.FiatCurrency,
		CryptoAmount:   decimalOrZero(m.CryptoAmount),
		FiatAmount:     decimalOrZero(m.FiatAmount),
		Price:          decimalOrZero(m.Price),
		Status:         status,
		PaymentMethod:  m.PaymentMethod,
		PaymentWindow:  m.PaymentWindow,
		PaymentProof:   nullString(m.PaymentProof),
		CancelReason:   nullString(m.CancelReason),
		DisputeReason:  nullString(m.DisputeReason),
		Rating:         nullInt(m.Rating),
		CreatedAt:      m.CreatedAt,
		ExpiresAt:      m.ExpiresAt,
		PaidAt:         nullTime(m.PaidAt),
		ReleasedAt:     nullTime(m.ReleasedAt),
		CompletedAt:    nullTime(m.CompletedAt),
		CancelledAt:    nullTime(m.CancelledAt),
		DisputedAt:     nullTime(m.DisputedAt),
		UpdatedAt:      m.UpdatedAt,
	}
}
