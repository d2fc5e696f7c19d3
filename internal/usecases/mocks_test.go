package usecases_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/infrastructure/backend"
	"finstack-p2p.backend/internal/infrastructure/events"
	"finstack-p2p.backend/internal/infrastructure/jobs"
)

// fakeUnitOfWork runs fn directly and counts calls
type fakeUnitOfWork struct {
	mu     sync.Mutex
	calls  int
	locked int
}

func (u *fakeUnitOfWork) Do(ctx context.Context, fn func(context.Context) error) error {
	u.mu.Lock()
	u.calls++
	u.mu.Unlock()
	return fn(ctx)
}

func (u *fakeUnitOfWork) WithLock(ctx context.Context) context.Context {
	u.mu.Lock()
	u.locked++
	u.mu.Unlock()
	return ctx
}

// memAdRepo stores copies so callers only change state through Update
type memAdRepo struct {
	mu        sync.Mutex
	ads       map[string]entities.Ad
	updateErr error
}

func newMemAdRepo(ads ...*entities.Ad) *memAdRepo {
	r := &memAdRepo{ads: map[string]entities.Ad{}}
	for _, a := range ads {
		r.ads[a.ID] = *a
	}
	return r
}

func (r *memAdRepo) Create(_ context.Context, ad *entities.Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ads[ad.ID]; ok {
		return domainerrors.ErrAlreadyExists
	}
	r.ads[ad.ID] = *ad
	return nil
}

func (r *memAdRepo) GetByID(_ context.Context, id string) (*entities.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad, ok := r.ads[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return &ad, nil
}

func (r *memAdRepo) Update(_ context.Context, ad *entities.Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.ads[ad.ID]; !ok {
		return domainerrors.ErrNotFound
	}
	r.ads[ad.ID] = *ad
	return nil
}

func (r *memAdRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ads, id)
	return nil
}

func (r *memAdRepo) List(_ context.Context) ([]*entities.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Ad, 0, len(r.ads))
	for _, a := range r.ads {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAdRepo) ListByMerchant(ctx context.Context, merchantID string) ([]*entities.Ad, error) {
	all, _ := r.List(ctx)
	out := make([]*entities.Ad, 0, len(all))
	for _, a := range all {
		if a.MerchantID == merchantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAdRepo) get(id string) entities.Ad {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ads[id]
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]entities.Order
}

func newMemOrderRepo(orders ...*entities.Order) *memOrderRepo {
	r := &memOrderRepo{orders: map[string]entities.Order{}}
	for _, o := range orders {
		r.orders[o.ID] = *o
	}
	return r
}

func (r *memOrderRepo) Create(_ context.Context, o *entities.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = *o
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return &o, nil
}

func (r *memOrderRepo) Update(_ context.Context, o *entities.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return domainerrors.ErrNotFound
	}
	r.orders[o.ID] = *o
	return nil
}

func (r *memOrderRepo) List(_ context.Context, f entities.OrderFilter) ([]*entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Order
	for _, o := range r.orders {
		o := o
		if f.Matches(&o) {
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memOrderRepo) GetExpiredPending(_ context.Context, now time.Time, limit int) ([]*entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Order
	for _, o := range r.orders {
		o := o
		if o.IsExpired(now) {
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memOrderRepo) get(id string) entities.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id]
}

type memProfileRepo struct {
	profiles []*entities.MerchantProfile
}

func (r *memProfileRepo) GetByID(_ context.Context, id string) (*entities.MerchantProfile, error) {
	for _, p := range r.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memProfileRepo) List(_ context.Context) ([]*entities.MerchantProfile, error) {
	return r.profiles, nil
}

func (r *memProfileRepo) Upsert(_ context.Context, p *entities.MerchantProfile) error {
	r.profiles = append(r.profiles, p)
	return nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(evt events.OrderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// MockReleaseAuthorizer
type MockReleaseAuthorizer struct {
	mock.Mock
}

func (m *MockReleaseAuthorizer) Initiate(ctx context.Context, token string, order *entities.Order) (*entities.ReleaseChallenge, error) {
	args := m.Called(ctx, token, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ReleaseChallenge), args.Error(1)
}

func (m *MockReleaseAuthorizer) Verify(ctx context.Context, token string, order *entities.Order, code string) error {
	args := m.Called(ctx, token, order, code)
	return args.Error(0)
}

// MockCollectionFetcher
type MockCollectionFetcher struct {
	mock.Mock
}

func (m *MockCollectionFetcher) FetchCollection(ctx context.Context, path, token string) ([]backend.Record, error) {
	args := m.Called(ctx, path, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]backend.Record), args.Error(1)
}

type staticKYCSnapshot struct {
	records []backend.Record
	fresh   bool
}

func (s staticKYCSnapshot) Fresh(time.Duration) (jobs.Snapshot[[]backend.Record], bool) {
	if !s.fresh {
		return jobs.Snapshot[[]backend.Record]{}, false
	}
	return jobs.Snapshot[[]backend.Record]{Value: s.records, Generation: 1, FetchedAt: time.Now()}, true
}

// MockUpstream
type MockUpstream struct {
	mock.Mock
}

func (m *MockUpstream) Do(ctx context.Context, req backend.Request) (*backend.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.Response), args.Error(1)
}

type transitionCounter struct {
	mu       sync.Mutex
	edges    []string
	releases []string
}

func (c *transitionCounter) ObserveTransition(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges = append(c.edges, from+"->"+to)
}

func (c *transitionCounter) ObserveRelease(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases = append(c.releases, result)
}
