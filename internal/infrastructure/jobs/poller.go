package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"finstack-p2p.backend/pkg/logger"
)

// Snapshot is the latest accepted poll result
type Snapshot[T any] struct {
	Value      T
	Generation uint64
	FetchedAt  time.Time
}

// Poller refreshes a value on an interval. Each tick cancels the fetch still
// in flight from the previous tick, and a result is kept only when its
// generation is newer than the stored snapshot's.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) (T, error)
	onResult func(result string)
	now      func() time.Time

	mu         sync.Mutex
	generation uint64
	cancelPrev context.CancelFunc
	snapshot   *Snapshot[T]

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// NewPoller creates a poller; onResult may be nil.
func NewPoller[T any](name string, interval time.Duration, fetch func(ctx context.Context) (T, error), onResult func(result string)) *Poller[T] {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if onResult == nil {
		onResult = func(string) {}
	}
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		onResult: onResult,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Interval returns the poll interval
func (p *Poller[T]) Interval() time.Duration {
	return p.interval
}

// Start polls immediately and then on every tick until ctx is done or Stop is called.
func (p *Poller[T]) Start(ctx context.Context) {
	logger.Info(ctx, "Starting poller", zap.String("poller", p.name), zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.cancelInFlight()
			p.wg.Wait()
			logger.Info(ctx, "Poller stopped (context cancelled)", zap.String("poller", p.name))
			return
		case <-p.stop:
			p.cancelInFlight()
			p.wg.Wait()
			logger.Info(ctx, "Poller stopped", zap.String("poller", p.name))
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Stop ends Start; safe to call more than once
func (p *Poller[T]) Stop() {
	p.once.Do(func() { close(p.stop) })
}

// Tick supersedes any in-flight fetch and starts a new one in the background.
func (p *Poller[T]) Tick(ctx context.Context) {
	fetchCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancelPrev != nil {
		p.cancelPrev()
	}
	p.cancelPrev = cancel
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		value, err := p.fetch(fetchCtx)
		if err != nil {
			if fetchCtx.Err() != nil {
				p.onResult("cancelled")
				return
			}
			p.onResult("error")
			logger.Warn(ctx, "Poll failed", zap.String("poller", p.name), zap.Uint64("generation", gen), zap.Error(err))
			return
		}
		if p.store(value, gen) {
			p.onResult("ok")
		} else {
			p.onResult("stale")
		}
	}()
}

func (p *Poller[T]) store(value T, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot != nil && p.snapshot.Generation >= gen {
		return false
	}
	p.snapshot = &Snapshot[T]{Value: value, Generation: gen, FetchedAt: p.now()}
	return true
}

func (p *Poller[T]) cancelInFlight() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelPrev != nil {
		p.cancelPrev()
		p.cancelPrev = nil
	}
}

// Snapshot returns the latest accepted result
func (p *Poller[T]) Snapshot() (Snapshot[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot == nil {
		return Snapshot[T]{}, false
	}
	return *p.snapshot, true
}

// Fresh returns the snapshot when it is younger than maxAge
func (p *Poller[T]) Fresh(maxAge time.Duration) (Snapshot[T], bool) {
	snap, ok := p.Snapshot()
	if !ok || p.now().Sub(snap.FetchedAt) > maxAge {
		return Snapshot[T]{}, false
	}
	return snap, true
}

// Wait blocks until every started fetch has returned
func (p *Poller[T]) Wait() {
	p.wg.Wait()
}
