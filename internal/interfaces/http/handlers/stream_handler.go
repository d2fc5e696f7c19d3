package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"finstack-p2p.backend/internal/domain/entities"
	"finstack-p2p.backend/internal/infrastructure/events"
	"finstack-p2p.backend/internal/interfaces/http/middleware"
	"finstack-p2p.backend/internal/interfaces/http/response"
	"finstack-p2p.backend/pkg/logger"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// OrderReader loads an order the caller participates in
type OrderReader interface {
	GetOrder(ctx context.Context, actorID, orderID string) (*entities.Order, error)
}

// StreamHandler pushes order events to websocket clients
type StreamHandler struct {
	orders   OrderReader
	hub      *events.Hub
	upgrader websocket.Upgrader
}

// NewStreamHandler creates the websocket handler. checkOrigin may be nil to
// accept same-host requests only.
func NewStreamHandler(orders OrderReader, hub *events.Hub, checkOrigin func(r *http.Request) bool) *StreamHandler {
	return &StreamHandler{
		orders: orders,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Stream sends the current order as a "snapshot" event, then every change.
// An order that has already settled gets the snapshot and a normal closure.
// GET /api/p2p/orders/:id/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	// subscribe before loading the snapshot so no change is lost in between
	sub := h.hub.Subscribe(c.Param("id"))
	defer sub.Close()

	order, err := h.orders.GetOrder(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		logger.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := context.WithValue(c.Request.Context(), logger.OrderIDKey, order.ID)
	logger.Debug(ctx, "order stream opened")

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	if err := writeEvent(conn, events.OrderEvent{Type: "snapshot", Order: order, At: time.Now().UTC()}); err != nil {
		return
	}
	if order.Status.IsTerminal() {
		closeSettled(conn)
		return
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			// already covered by the snapshot
			if evt.Order != nil && evt.Order.UpdatedAt.Before(order.UpdatedAt) {
				continue
			}
			if err := writeEvent(conn, evt); err != nil {
				logger.Debug(ctx, "order stream write failed", zap.Error(err))
				return
			}
			if evt.Order != nil && evt.Order.Status.IsTerminal() {
				closeSettled(conn)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			logger.Debug(ctx, "order stream closed by client")
			return
		case <-ctx.Done():
			return
		}
	}
}

// readPump drains client frames so pongs and close frames are processed
func (h *StreamHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeSettled(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "order settled"),
		time.Now().Add(streamWriteWait))
}

func writeEvent(conn *websocket.Conn, evt events.OrderEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(evt)
}
