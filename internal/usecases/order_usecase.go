package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/domain/repositories"
	"finstack-p2p.backend/pkg/logger"
	"finstack-p2p.backend/pkg/utils"
)

const (
	// ReasonPaymentWindowExpired is stored on orders cancelled by the expiry sweep.
	ReasonPaymentWindowExpired = "payment window expired"

	expiryBatchSize = 100
)

// OrderUsecase drives the P2P order state machine
type OrderUsecase struct {
	orderRepo repositories.OrderRepository
	adRepo    repositories.AdRepository
	uow       repositories.UnitOfWork
	events    OrderEventPublisher
	metrics   TransitionRecorder
	now       func() time.Time
}

// NewOrderUsecase creates a new order usecase. events and metrics may be nil.
func NewOrderUsecase(
	orderRepo repositories.OrderRepository,
	adRepo repositories.AdRepository,
	uow repositories.UnitOfWork,
	events OrderEventPublisher,
	metrics TransitionRecorder,
) *OrderUsecase {
	return &OrderUsecase{
		orderRepo: orderRepo,
		adRepo:    adRepo,
		uow:       uow,
		events:    events,
		metrics:   metrics,
		now:       time.Now,
	}
}

// CreateOrder accepts an ad and reserves the crypto amount on it in the same unit of work.
func (u *OrderUsecase) CreateOrder(ctx context.Context, buyerID string, input *entities.CreateOrderInput) (*entities.Order, error) {
	if !input.FiatAmount.IsPositive() {
		return nil, domainerrors.BadRequest("amount must be greater than zero")
	}

	orderID := utils.NewID()
	var order *entities.Order
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		ad, err := u.adRepo.GetByID(u.uow.WithLock(txCtx), input.AdID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return domainerrors.NotFound("ad not found")
			}
			return fmt.Errorf("get ad: %w", err)
		}
		if !ad.IsActive {
			return domainerrors.InvalidState("ad is not active", domainerrors.ErrAdInactive)
		}
		if ad.MerchantID == buyerID {
			return domainerrors.BadRequest("you cannot trade on your own ad")
		}
		if input.FiatAmount.LessThan(ad.MinLimit) || input.FiatAmount.GreaterThan(ad.MaxLimit) {
			return domainerrors.BadRequest(fmt.Sprintf("amount must be between %s and %s %s",
				ad.MinLimit.String(), ad.MaxLimit.String(), ad.FiatCurrency))
		}

		cryptoAmount := input.FiatAmount.Div(ad.Price)
		if cryptoAmount.GreaterThan(ad.Available) {
			return domainerrors.InvalidState("insufficient available amount", domainerrors.ErrInsufficientFunds)
		}

		method := strings.TrimSpace(input.PaymentMethod)
		if method == "" {
			method = ad.PaymentMethods[0]
		} else if !ad.OffersPaymentMethod(method) {
			return domainerrors.BadRequest("payment method not offered by this ad")
		}

		now := u.now().UTC()
		ad.Available = ad.Available.Sub(cryptoAmount)
		ad.UpdatedAt = now
		if err := u.adRepo.Update(txCtx, ad); err != nil {
			return fmt.Errorf("reserve ad amount: %w", err)
		}

		order = &entities.Order{
			ID:             orderID,
			AdID:           ad.ID,
			BuyerID:        buyerID,
			MerchantID:     ad.MerchantID,
			Type:           ad.Type,
			CryptoCurrency: ad.CryptoCurrency,
			FiatCurrency:   ad.FiatCurrency,
			CryptoAmount:   cryptoAmount,
			FiatAmount:     input.FiatAmount,
			Price:          ad.Price,
			Status:         entities.OrderStatusPendingPayment,
			PaymentMethod:  method,
			PaymentWindow:  ad.PaymentWindow,
			CreatedAt:      now,
			ExpiresAt:      now.Add(ad.PaymentWindowDuration()),
			UpdatedAt:      now,
		}
		if err := u.orderRepo.Create(txCtx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordTransition(u.metrics, "", order.Status)
	publishOrder(u.events, EventOrderCreated, order, order.CreatedAt)
	logger.Info(ctx, "Order created",
		zap.String("order_id", order.ID),
		zap.String("ad_id", order.AdID),
		zap.String("crypto_amount", order.CryptoAmount.String()),
	)
	return order, nil
}

// MarkPaid records the buyer's payment proof. An order whose window has
// elapsed is cancelled instead and ErrOrderExpired is returned.
func (u *OrderUsecase) MarkPaid(ctx context.Context, actorID, orderID, proof string) (*entities.Order, error) {
	proof = strings.TrimSpace(proof)
	if proof == "" {
		return nil, domainerrors.BadRequest("payment proof is required")
	}

	var order *entities.Order
	var expired bool
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		var err error
		order, err = u.loadOrder(u.uow.WithLock(txCtx), orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actorID {
			return domainerrors.Forbidden("only the buyer can mark an order as paid")
		}

		now := u.now().UTC()
		expired = order.IsExpired(now)
		if expired {
			return u.cancel(txCtx, order, ReasonPaymentWindowExpired, now)
		}
		if err := order.TransitionTo(entities.OrderStatusAwaitingRelease, now); err != nil {
			return err
		}
		order.PaymentProof = null.StringFrom(proof)
		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired {
		recordTransition(u.metrics, entities.OrderStatusPendingPayment, entities.OrderStatusCancelled)
		publishOrder(u.events, EventOrderCancelled, order, order.UpdatedAt)
		return nil, domainerrors.InvalidState(domainerrors.ErrOrderExpired.Error(), domainerrors.ErrOrderExpired)
	}
	recordTransition(u.metrics, entities.OrderStatusPendingPayment, entities.OrderStatusAwaitingRelease)
	publishOrder(u.events, EventOrderPaid, order, order.UpdatedAt)
	return order, nil
}

// CancelOrder cancels a pending order and returns its reservation to the ad
func (u *OrderUsecase) CancelOrder(ctx context.Context, actorID, orderID, reason string) (*entities.Order, error) {
	var order *entities.Order
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		var err error
		order, err = u.participantOrder(u.uow.WithLock(txCtx), actorID, orderID)
		if err != nil {
			return err
		}
		return u.cancel(txCtx, order, strings.TrimSpace(reason), u.now().UTC())
	})
	if err != nil {
		return nil, err
	}

	recordTransition(u.metrics, entities.OrderStatusPendingPayment, entities.OrderStatusCancelled)
	publishOrder(u.events, EventOrderCancelled, order, order.UpdatedAt)
	return order, nil
}

// DisputeOrder moves an awaiting_release order to disputed
func (u *OrderUsecase) DisputeOrder(ctx context.Context, actorID, orderID, reason string) (*entities.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domainerrors.BadRequest("dispute reason is required")
	}

	var order *entities.Order
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		var err error
		order, err = u.participantOrder(u.uow.WithLock(txCtx), actorID, orderID)
		if err != nil {
			return err
		}
		if err := order.TransitionTo(entities.OrderStatusDisputed, u.now().UTC()); err != nil {
			return err
		}
		order.DisputeReason = null.StringFrom(reason)
		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordTransition(u.metrics, entities.OrderStatusAwaitingRelease, entities.OrderStatusDisputed)
	publishOrder(u.events, EventOrderDisputed, order, order.UpdatedAt)
	logger.Warn(ctx, "Order disputed", zap.String("order_id", order.ID), zap.String("actor_id", actorID))
	return order, nil
}

// ExpireOverdue cancels every pending order whose window elapsed before now.
// It keeps going past individual failures and reports them joined.
func (u *OrderUsecase) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := u.orderRepo.GetExpiredPending(ctx, now, expiryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired orders: %w", err)
	}

	var expired int
	var errs []error
	for _, candidate := range overdue {
		var order *entities.Order
		var changed bool
		err := u.uow.Do(ctx, func(txCtx context.Context) error {
			var err error
			order, err = u.loadOrder(u.uow.WithLock(txCtx), candidate.ID)
			if err != nil {
				return err
			}
			// another request may have moved it since the listing
			changed = order.IsExpired(now)
			if !changed {
				return nil
			}
			return u.cancel(txCtx, order, ReasonPaymentWindowExpired, now.UTC())
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", candidate.ID, err))
			continue
		}
		if !changed {
			continue
		}
		expired++
		recordTransition(u.metrics, entities.OrderStatusPendingPayment, entities.OrderStatusCancelled)
		publishOrder(u.events, EventOrderCancelled, order, order.UpdatedAt)
	}
	return expired, errors.Join(errs...)
}

// RateOrder lets the buyer rate a completed order once
func (u *OrderUsecase) RateOrder(ctx context.Context, actorID, orderID string, rating int) (*entities.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, domainerrors.BadRequest("rating must be between 1 and 5")
	}

	var order *entities.Order
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		var err error
		order, err = u.loadOrder(u.uow.WithLock(txCtx), orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actorID {
			return domainerrors.Forbidden("only the buyer can rate an order")
		}
		if order.Status != entities.OrderStatusCompleted {
			return domainerrors.InvalidState("only completed orders can be rated", domainerrors.ErrInvalidTransition)
		}
		if order.Rating.Valid {
			return domainerrors.Conflict("order has already been rated")
		}
		order.Rating = null.IntFrom(rating)
		order.UpdatedAt = u.now().UTC()
		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishOrder(u.events, EventOrderRated, order, order.UpdatedAt)
	return order, nil
}

// GetOrder returns an order the actor participates in
func (u *OrderUsecase) GetOrder(ctx context.Context, actorID, orderID string) (*entities.Order, error) {
	return u.participantOrder(ctx, actorID, orderID)
}

// ListOrders lists the actor's orders, newest first
func (u *OrderUsecase) ListOrders(ctx context.Context, actorID string, role entities.OrderRole, status entities.OrderStatus) ([]*entities.Order, error) {
	orders, err := u.orderRepo.List(ctx, entities.OrderFilter{UserID: actorID, Role: role, Status: status})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// cancel transitions a pending order to cancelled and restores the ad's
// available amount. Must run inside a unit of work.
func (u *OrderUsecase) cancel(ctx context.Context, order *entities.Order, reason string, at time.Time) error {
	if err := order.TransitionTo(entities.OrderStatusCancelled, at); err != nil {
		return err
	}
	order.CancelReason = null.NewString(reason, reason != "")

	ad, err := u.adRepo.GetByID(u.uow.WithLock(ctx), order.AdID)
	switch {
	case err == nil:
		ad.Available = ad.Available.Add(order.CryptoAmount)
		ad.UpdatedAt = at
		if err := u.adRepo.Update(ctx, ad); err != nil {
			return fmt.Errorf("restore ad amount: %w", err)
		}
	case errors.Is(err, domainerrors.ErrNotFound):
		// ad deleted since the order was placed; nothing to restore
	default:
		return fmt.Errorf("get ad: %w", err)
	}

	if err := u.orderRepo.Update(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func (u *OrderUsecase) loadOrder(ctx context.Context, orderID string) (*entities.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("order not found")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (u *OrderUsecase) participantOrder(ctx context.Context, actorID, orderID string) (*entities.Order, error) {
	order, err := u.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(actorID) {
		return nil, domainerrors.Forbidden("you are not a participant in this order")
	}
	return order, nil
}
