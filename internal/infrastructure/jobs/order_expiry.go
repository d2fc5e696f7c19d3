package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"finstack-p2p.backend/pkg/logger"
)

// OrderExpirer cancels pending orders whose payment window has elapsed
type OrderExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// OrderExpiryJob periodically cancels overdue pending_payment orders
type OrderExpiryJob struct {
	expirer  OrderExpirer
	interval time.Duration
	now      func() time.Time
	stop     chan struct{}
}

func NewOrderExpiryJob(expirer OrderExpirer, interval time.Duration) *OrderExpiryJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &OrderExpiryJob{
		expirer:  expirer,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (j *OrderExpiryJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting order expiry job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Order expiry job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Order expiry job stopped")
			return
		case <-ticker.C:
			j.processExpiredOrders(ctx)
		}
	}
}

func (j *OrderExpiryJob) Stop() {
	close(j.stop)
}

func (j *OrderExpiryJob) processExpiredOrders(ctx context.Context) {
	n, err := j.expirer.ExpireOverdue(ctx, j.now())
	if err != nil {
		logger.Error(ctx, "Error expiring overdue orders", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info(ctx, "Expired overdue orders", zap.Int("count", n))
	}
}
