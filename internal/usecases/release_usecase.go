package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/domain/repositories"
	"finstack-p2p.backend/pkg/logger"
)

var releaseCodePattern = regexp.MustCompile(`^\d{6}$`)

// ReleaseAuthorizer issues and verifies the code that gates completing an order
type ReleaseAuthorizer interface {
	Initiate(ctx context.Context, token string, order *entities.Order) (*entities.ReleaseChallenge, error)
	Verify(ctx context.Context, token string, order *entities.Order, code string) error
}

// ReleaseRecorder counts release attempts by outcome
type ReleaseRecorder interface {
	TransitionRecorder
	ObserveRelease(result string)
}

// ReleaseUsecase is the only path to a completed order
type ReleaseUsecase struct {
	orderRepo  repositories.OrderRepository
	uow        repositories.UnitOfWork
	authorizer ReleaseAuthorizer
	events     OrderEventPublisher
	metrics    ReleaseRecorder
	now        func() time.Time
}

func NewReleaseUsecase(
	orderRepo repositories.OrderRepository,
	uow repositories.UnitOfWork,
	authorizer ReleaseAuthorizer,
	events OrderEventPublisher,
	metrics ReleaseRecorder,
) *ReleaseUsecase {
	return &ReleaseUsecase{
		orderRepo:  orderRepo,
		uow:        uow,
		authorizer: authorizer,
		events:     events,
		metrics:    metrics,
		now:        time.Now,
	}
}

// InitiateRelease asks the authorizer to deliver a release code to the merchant
func (u *ReleaseUsecase) InitiateRelease(ctx context.Context, actorID, token, orderID string) (*entities.ReleaseChallenge, error) {
	order, err := u.releasableOrder(ctx, actorID, orderID)
	if err != nil {
		return nil, err
	}
	challenge, err := u.authorizer.Initiate(ctx, token, order)
	if err != nil {
		u.observe("initiate_failed")
		return nil, err
	}
	u.observe("initiated")
	return challenge, nil
}

// ConfirmRelease verifies the code and completes the order. On a failed
// verification the order is left unchanged. Verify consumes the code, so a
// completion that fails after it asks the merchant for a new code.
func (u *ReleaseUsecase) ConfirmRelease(ctx context.Context, actorID, token, orderID, code string) (*entities.Order, error) {
	if !releaseCodePattern.MatchString(code) {
		return nil, domainerrors.BadRequest("invalid OTP format")
	}

	order, err := u.releasableOrder(ctx, actorID, orderID)
	if err != nil {
		return nil, err
	}
	if err := u.authorizer.Verify(ctx, token, order, code); err != nil {
		u.observe("rejected")
		logger.Warn(ctx, "Release code rejected", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		current, err := u.orderRepo.GetByID(u.uow.WithLock(txCtx), orderID)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if err := current.TransitionTo(entities.OrderStatusCompleted, u.now().UTC()); err != nil {
			return err
		}
		if err := u.orderRepo.Update(txCtx, current); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		order = current
		return nil
	})
	if err != nil {
		u.observe("failed")
		logger.Error(ctx, "Release verified but not completed", zap.String("order_id", orderID), zap.Error(err))
		return nil, releaseNotCompleted(err)
	}

	u.observe("completed")
	recordTransition(u.metrics, entities.OrderStatusAwaitingRelease, entities.OrderStatusCompleted)
	publishOrder(u.events, EventOrderCompleted, order, order.UpdatedAt)
	logger.Info(ctx, "Order released", zap.String("order_id", order.ID))
	return order, nil
}

// releaseNotCompleted keeps state errors as they are. Anything else means the
// used code is gone while the order still awaits release.
func releaseNotCompleted(err error) error {
	if appErr, ok := domainerrors.As(err); ok && !errors.Is(err, domainerrors.ErrConflict) {
		return appErr
	}
	status := http.StatusInternalServerError
	code := domainerrors.CodeInternalError
	if errors.Is(err, domainerrors.ErrConflict) {
		status, code = http.StatusConflict, domainerrors.CodeConflict
	}
	return domainerrors.NewAppError(status, code, "release could not be completed, please request a new code", err)
}

func (u *ReleaseUsecase) releasableOrder(ctx context.Context, actorID, orderID string) (*entities.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("order not found")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.MerchantID != actorID {
		return nil, domainerrors.Forbidden("only the merchant can release this order")
	}
	if order.Status != entities.OrderStatusAwaitingRelease {
		return nil, domainerrors.InvalidState("order is not awaiting release", domainerrors.ErrInvalidTransition)
	}
	return order, nil
}

func (u *ReleaseUsecase) observe(result string) {
	if u.metrics != nil {
		u.metrics.ObserveRelease(result)
	}
}
