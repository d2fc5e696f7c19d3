// Package kvstore keeps ads, orders and merchant profiles as JSON arrays in
// Redis, one key per collection, in the same shape the web client persists.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	domainerrors "finstack-p2p.backend/internal/domain/errors"
)

const (
	KeyAds       = "p2p_merchant_ads"
	KeyOrders    = "p2p_orders"
	KeyMerchants = "p2p_merchants"
)

// DefaultMaxRetries bounds optimistic transaction retries before ErrConflict.
const DefaultMaxRetries = 8

var allKeys = []string{KeyAds, KeyOrders, KeyMerchants}

type contextKey string

const txKey contextKey = "kv_tx"

// Store is the Redis-backed UnitOfWork shared by the kv repositories.
type Store struct {
	client     *redis.Client
	maxRetries int
}

// NewStore creates a store over client
func NewStore(client *redis.Client) *Store {
	return &Store{client: client, maxRetries: DefaultMaxRetries}
}

// WithMaxRetries overrides the optimistic retry bound
func (s *Store) WithMaxRetries(n int) *Store {
	if n > 0 {
		s.maxRetries = n
	}
	return s
}

type kvTx struct {
	rtx   *redis.Tx
	cache map[string][]byte
	dirty map[string]bool
}

func txFrom(ctx context.Context) *kvTx {
	t, _ := ctx.Value(txKey).(*kvTx)
	return t
}

// Do runs fn with every collection key WATCHed. Writes are buffered and
// committed in one MULTI/EXEC; a concurrent change to any key reruns fn.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			t := &kvTx{rtx: rtx, cache: map[string][]byte{}, dirty: map[string]bool{}}
			if err := fn(context.WithValue(ctx, txKey, t)); err != nil {
				return err
			}
			if len(t.dirty) == 0 {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for key := range t.dirty {
					pipe.Set(ctx, key, t.cache[key], 0)
				}
				return nil
			})
			return err
		}, allKeys...)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeConflict,
		"the record was modified concurrently, please retry", domainerrors.ErrConflict)
}

// WithLock is a no-op: every read inside Do is already WATCHed.
func (s *Store) WithLock(ctx context.Context) context.Context {
	return ctx
}

func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	t := txFrom(ctx)
	if t == nil {
		b, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return b, err
	}

	if b, ok := t.cache[key]; ok {
		return b, nil
	}
	b, err := t.rtx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		b, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.cache[key] = b
	return b, nil
}

// mutate applies fn to the raw collection value inside a transaction.
func (s *Store) mutate(ctx context.Context, key string, fn func(raw []byte) ([]byte, error)) error {
	return s.Do(ctx, func(ctx context.Context) error {
		raw, err := s.read(ctx, key)
		if err != nil {
			return err
		}
		out, err := fn(raw)
		if err != nil {
			return err
		}
		t := txFrom(ctx)
		t.cache[key] = out
		t.dirty[key] = true
		return nil
	})
}

func load[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	raw, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}
	return decode[T](key, raw)
}

func decode[T any](key string, raw []byte) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return items, nil
}

// update decodes the collection, lets fn edit it and writes it back.
func update[T any](ctx context.Context, s *Store, key string, fn func(items []T) ([]T, error)) error {
	return s.mutate(ctx, key, func(raw []byte) ([]byte, error) {
		items, err := decode[T](key, raw)
		if err != nil {
			return nil, err
		}
		items, err = fn(items)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		return json.Marshal(items)
	})
}
