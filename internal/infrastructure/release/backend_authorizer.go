package release

import (
	"context"
	"time"

	"finstack-p2p.backend/internal/domain/entities"
)

// ReleaseBackend is the part of the backend client the authorizer calls
type ReleaseBackend interface {
	InitiateRelease(ctx context.Context, token, orderID string) error
	ConfirmRelease(ctx context.Context, token, orderID, code string) error
}

// BackendAuthorizer delegates code delivery and verification to the external
// backend using the merchant's bearer token.
type BackendAuthorizer struct {
	backend ReleaseBackend
	ttl     time.Duration
	now     func() time.Time
}

func NewBackendAuthorizer(backend ReleaseBackend, ttl time.Duration) *BackendAuthorizer {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &BackendAuthorizer{backend: backend, ttl: ttl, now: time.Now}
}

func (a *BackendAuthorizer) Initiate(ctx context.Context, token string, order *entities.Order) (*entities.ReleaseChallenge, error) {
	if err := a.backend.InitiateRelease(ctx, token, order.ID); err != nil {
		return nil, err
	}
	return &entities.ReleaseChallenge{
		OrderID:   order.ID,
		ExpiresAt: a.now().Add(a.ttl).UTC(),
	}, nil
}

func (a *BackendAuthorizer) Verify(ctx context.Context, token string, order *entities.Order, code string) error {
	return a.backend.ConfirmRelease(ctx, token, order.ID, code)
}
