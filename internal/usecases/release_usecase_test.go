package usecases_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/usecases"
)

func awaitingOrder() *entities.Order {
	return &entities.Order{
		ID:           "o-1",
		AdID:         "ad-1",
		BuyerID:      "buyer-1",
		MerchantID:   "merchant-1",
		Status:       entities.OrderStatusAwaitingRelease,
		CryptoAmount: decimal.NewFromInt(12),
		CreatedAt:    t0,
		ExpiresAt:    t0.Add(15 * time.Minute),
	}
}

func newReleaseUsecase(orders *memOrderRepo, auth *MockReleaseAuthorizer, pub *recordingPublisher, rec *transitionCounter) *usecases.ReleaseUsecase {
	u := usecases.NewReleaseUsecase(orders, &fakeUnitOfWork{}, auth, pub, rec)
	u.SetNow(func() time.Time { return t0.Add(20 * time.Minute) })
	return u
}

func TestReleaseUsecase_InitiateRelease(t *testing.T) {
	orders := newMemOrderRepo(awaitingOrder())
	auth := new(MockReleaseAuthorizer)
	challenge := &entities.ReleaseChallenge{OrderID: "o-1", ExpiresAt: t0.Add(time.Hour)}
	auth.On("Initiate", mock.Anything, "tok", mock.MatchedBy(func(o *entities.Order) bool { return o.ID == "o-1" })).Return(challenge, nil)
	rec := &transitionCounter{}

	got, err := newReleaseUsecase(orders, auth, nil, rec).InitiateRelease(context.Background(), "merchant-1", "tok", "o-1")
	require.NoError(t, err)
	assert.Equal(t, challenge, got)
	assert.Equal(t, []string{"initiated"}, rec.releases)
	auth.AssertExpectations(t)
}

func TestReleaseUsecase_InitiateRelease_Guards(t *testing.T) {
	pending := awaitingOrder()
	pending.Status = entities.OrderStatusPendingPayment
	orders := newMemOrderRepo(pending)
	auth := new(MockReleaseAuthorizer)
	u := newReleaseUsecase(orders, auth, nil, nil)

	_, err := u.InitiateRelease(context.Background(), "buyer-1", "tok", "o-1")
	assert.True(t, errors.Is(err, domainerrors.ErrForbidden))

	_, err = u.InitiateRelease(context.Background(), "merchant-1", "tok", "o-1")
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidTransition))

	_, err = u.InitiateRelease(context.Background(), "merchant-1", "tok", "missing")
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound))
	auth.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything, mock.Anything)
}

func TestReleaseUsecase_ConfirmRelease_Completes(t *testing.T) {
	orders := newMemOrderRepo(awaitingOrder())
	auth := new(MockReleaseAuthorizer)
	auth.On("Verify", mock.Anything, "tok", mock.Anything, "123456").Return(nil)
	pub := &recordingPublisher{}
	rec := &transitionCounter{}

	order, err := newReleaseUsecase(orders, auth, pub, rec).ConfirmRelease(context.Background(), "merchant-1", "tok", "o-1", "123456")
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusCompleted, order.Status)
	assert.True(t, order.ReleasedAt.Valid)
	assert.True(t, order.CompletedAt.Valid)
	assert.Equal(t, entities.OrderStatusCompleted, orders.get("o-1").Status)
	assert.Equal(t, []string{usecases.EventOrderCompleted}, pub.types())
	assert.Equal(t, []string{"completed"}, rec.releases)
	assert.Equal(t, []string{"awaiting_release->completed"}, rec.edges)
}

func TestReleaseUsecase_ConfirmRelease_BadFormat(t *testing.T) {
	orders := newMemOrderRepo(awaitingOrder())
	auth := new(MockReleaseAuthorizer)
	u := newReleaseUsecase(orders, auth, nil, nil)

	for _, code := range []string{"", "12345", "1234567", "12a456", " 123456"} {
		_, err := u.ConfirmRelease(context.Background(), "merchant-1", "tok", "o-1", code)
		appErr, ok := domainerrors.As(err)
		require.True(t, ok, code)
		assert.Equal(t, "invalid OTP format", appErr.Message)
	}
	auth.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, entities.OrderStatusAwaitingRelease, orders.get("o-1").Status)
}

func TestReleaseUsecase_ConfirmRelease_VerificationFailureLeavesStatus(t *testing.T) {
	orders := newMemOrderRepo(awaitingOrder())
	auth := new(MockReleaseAuthorizer)
	rejected := domainerrors.NewAppError(http.StatusUnprocessableEntity, domainerrors.CodeInvalidInput, "invalid or expired OTP", domainerrors.ErrInvalidOTP)
	auth.On("Verify", mock.Anything, "tok", mock.Anything, "000000").Return(rejected)
	rec := &transitionCounter{}

	_, err := newReleaseUsecase(orders, auth, nil, rec).ConfirmRelease(context.Background(), "merchant-1", "tok", "o-1", "000000")
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidOTP))
	assert.Equal(t, entities.OrderStatusAwaitingRelease, orders.get("o-1").Status)
	assert.Equal(t, []string{"rejected"}, rec.releases)
	assert.Empty(t, rec.edges)
}

func TestReleaseUsecase_ConfirmRelease_DisputedMeanwhile(t *testing.T) {
	orders := newMemOrderRepo(awaitingOrder())
	auth := new(MockReleaseAuthorizer)
	auth.On("Verify", mock.Anything, "tok", mock.Anything, "123456").Run(func(mock.Arguments) {
		o := orders.get("o-1")
		o.Status = entities.OrderStatusDisputed
		_ = orders.Update(context.Background(), &o)
	}).Return(nil)

	_, err := newReleaseUsecase(orders, auth, nil, nil).ConfirmRelease(context.Background(), "merchant-1", "tok", "o-1", "123456")
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidTransition))
	assert.Equal(t, entities.OrderStatusDisputed, orders.get("o-1").Status)
}

type conflictingUnitOfWork struct{ fakeUnitOfWork }

func (u *conflictingUnitOfWork) Do(context.Context, func(context.Context) error) error {
	return domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeConflict,
		"the record was modified concurrently, please retry", domainerrors.ErrConflict)
}

func TestReleaseUsecase_ConfirmRelease_CommitFailureAsksForNewCode(t *testing.T) {
	orders := newMemOrderRepo(awaitingOrder())
	auth := new(MockReleaseAuthorizer)
	auth.On("Verify", mock.Anything, "tok", mock.Anything, "123456").Return(nil).Once()
	rec := &transitionCounter{}
	u := usecases.NewReleaseUsecase(orders, &conflictingUnitOfWork{}, auth, nil, rec)

	_, err := u.ConfirmRelease(context.Background(), "merchant-1", "tok", "o-1", "123456")
	appErr, ok := domainerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Contains(t, appErr.Message, "request a new code")
	assert.True(t, errors.Is(err, domainerrors.ErrConflict))
	assert.Equal(t, entities.OrderStatusAwaitingRelease, orders.get("o-1").Status)
	assert.Equal(t, []string{"failed"}, rec.releases)
	assert.Empty(t, rec.edges)
}
