// Package events fans order changes out to in-process subscribers.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"finstack-p2p.backend/internal/domain/entities"
	"finstack-p2p.backend/internal/infrastructure/metrics"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// OrderEvent is published after an order change is committed
type OrderEvent struct {
	Type  string          `json:"type"`
	Order *entities.Order `json:"order"`
	At    time.Time       `json:"at"`
}

// Hub is a publish/subscribe broker keyed by order id
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	dropped atomic.Int64
	metrics *metrics.Metrics
}

// NewHub creates a hub. buffer <= 0 uses DefaultBuffer.
func NewHub(buffer int, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:    make(map[string]map[*Subscription]struct{}),
		buffer:  buffer,
		metrics: m,
	}
}

// Subscription receives events for one order until Close
type Subscription struct {
	hub     *Hub
	orderID string
	ch      chan OrderEvent
	once    sync.Once
}

// Events is closed when the subscription is closed
func (s *Subscription) Events() <-chan OrderEvent {
	return s.ch
}

// Close unsubscribes; safe to call more than once
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.orderID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.orderID)
			}
		}
		close(s.ch)
		h.mu.Unlock()
		h.metrics.SubscriberRemoved()
	})
}

// Subscribe registers for events on orderID
func (h *Hub) Subscribe(orderID string) *Subscription {
	s := &Subscription{hub: h, orderID: orderID, ch: make(chan OrderEvent, h.buffer)}
	h.mu.Lock()
	set, ok := h.subs[orderID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[orderID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	h.metrics.SubscriberAdded()
	return s
}

// Publish delivers evt to every subscriber of its order without blocking;
// subscribers whose buffer is full miss the event.
func (h *Hub) Publish(evt OrderEvent) {
	if h == nil || evt.Order == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[evt.Order.ID] {
		select {
		case s.ch <- evt:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped for slow subscribers
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// SubscriberCount returns the number of open subscriptions for orderID
func (h *Hub) SubscriberCount(orderID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[orderID])
}
