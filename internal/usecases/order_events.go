package usecases

import (
	"time"

	"finstack-p2p.backend/internal/domain/entities"
	"finstack-p2p.backend/internal/infrastructure/events"
)

// Order event types
const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
	EventOrderDisputed  = "order.disputed"
	EventOrderCompleted = "order.completed"
	EventOrderRated     = "order.rated"
)

// OrderEventPublisher receives committed order changes
type OrderEventPublisher interface {
	Publish(evt events.OrderEvent)
}

// TransitionRecorder counts order status transitions
type TransitionRecorder interface {
	ObserveTransition(from, to string)
}

func publishOrder(pub OrderEventPublisher, eventType string, order *entities.Order, at time.Time) {
	if pub == nil || order == nil {
		return
	}
	snapshot := *order
	pub.Publish(events.OrderEvent{Type: eventType, Order: &snapshot, At: at})
}

func recordTransition(rec TransitionRecorder, from, to entities.OrderStatus) {
	if rec == nil {
		return
	}
	if from == "" {
		from = "new"
	}
	rec.ObserveTransition(string(from), string(to))
}
