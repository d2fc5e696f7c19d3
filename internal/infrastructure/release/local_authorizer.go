// Package release issues and verifies the codes that gate releasing an order's crypto.
package release

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/pkg/crypto"
	"finstack-p2p.backend/pkg/logger"
	"finstack-p2p.backend/pkg/redis"
)

const (
	codeKeyPrefix     = "release_otp:"
	attemptsKeyPrefix = "release_otp_attempts:"
	codeDigits        = 6

	DefaultCodeTTL     = 5 * time.Minute
	DefaultMaxAttempts = 5
)

// ErrInvalidCode is returned for a wrong, expired or never-issued code.
var ErrInvalidCode = domainerrors.NewAppError(http.StatusUnprocessableEntity, domainerrors.CodeInvalidInput, domainerrors.ErrInvalidOTP.Error(), domainerrors.ErrInvalidOTP)

// ErrAttemptsExhausted is returned once the attempt limit for a code is reached.
var ErrAttemptsExhausted = domainerrors.NewAppError(http.StatusTooManyRequests, domainerrors.CodeTooManyAttempts, domainerrors.ErrTooManyAttempts.Error(), domainerrors.ErrTooManyAttempts)

// LocalConfig configures the redis-backed authorizer
type LocalConfig struct {
	CodeTTL     time.Duration
	MaxAttempts int
	// ExposeCode returns the code in the challenge. Demo environments only.
	ExposeCode bool
}

// LocalAuthorizer stores bcrypt-hashed single-use codes in redis
type LocalAuthorizer struct {
	cfg      LocalConfig
	now      func() time.Time
	generate func(digits int) (string, error)
}

func NewLocalAuthorizer(cfg LocalConfig) *LocalAuthorizer {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultCodeTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &LocalAuthorizer{
		cfg:      cfg,
		now:      time.Now,
		generate: crypto.GenerateNumericCode,
	}
}

// Initiate issues a fresh code for the order, replacing any previous one and
// resetting the attempt counter.
func (a *LocalAuthorizer) Initiate(ctx context.Context, _ string, order *entities.Order) (*entities.ReleaseChallenge, error) {
	code, err := a.generate(codeDigits)
	if err != nil {
		return nil, domainerrors.InternalError(err)
	}
	hash, err := crypto.HashCode(code)
	if err != nil {
		return nil, domainerrors.InternalError(err)
	}

	if err := redis.Set(ctx, codeKeyPrefix+order.ID, hash, a.cfg.CodeTTL); err != nil {
		return nil, domainerrors.InternalError(fmt.Errorf("store release code: %w", err))
	}
	if err := redis.Del(ctx, attemptsKeyPrefix+order.ID); err != nil {
		return nil, domainerrors.InternalError(fmt.Errorf("reset release attempts: %w", err))
	}

	// Delivery is out of band; the log line stands in for the message channel.
	logger.Info(ctx, "Release code issued",
		zap.String("order_id", order.ID),
		zap.String("merchant_id", order.MerchantID),
	)

	challenge := &entities.ReleaseChallenge{
		OrderID:   order.ID,
		ExpiresAt: a.now().Add(a.cfg.CodeTTL).UTC(),
	}
	if a.cfg.ExposeCode {
		challenge.Code = code
	}
	return challenge, nil
}

// Verify checks the code. A successful check consumes it.
func (a *LocalAuthorizer) Verify(ctx context.Context, _ string, order *entities.Order, code string) error {
	attempts, err := redis.Incr(ctx, attemptsKeyPrefix+order.ID, a.cfg.CodeTTL)
	if err != nil {
		return domainerrors.InternalError(fmt.Errorf("count release attempts: %w", err))
	}
	if attempts > int64(a.cfg.MaxAttempts) {
		return ErrAttemptsExhausted
	}

	hash, err := redis.Get(ctx, codeKeyPrefix+order.ID)
	if err != nil {
		if redis.IsNil(err) {
			return ErrInvalidCode
		}
		return domainerrors.InternalError(fmt.Errorf("load release code: %w", err))
	}
	if !crypto.CheckCode(code, hash) {
		return ErrInvalidCode
	}

	if err := redis.Del(ctx, codeKeyPrefix+order.ID); err != nil {
		return domainerrors.InternalError(fmt.Errorf("consume release code: %w", err))
	}
	_ = redis.Del(ctx, attemptsKeyPrefix+order.ID)
	return nil
}
