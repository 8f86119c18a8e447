package wshub

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/pkg/logger"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/metrics"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// Hub tracks active websocket connections by user id. A new connection
// for the same user replaces the old one.
type Hub struct {
	clients map[uuid.UUID]*Conn
	l       logger.Logger
	mu      sync.Mutex
}

func NewHub(l logger.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Conn),
		l:       l,
	}
}

func (h *Hub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "add_ws_connection")

	if existing, ok := h.clients[newConn.userID]; ok {
		h.l.Warn(ctx, "replacing existing connection", "user_id", existing.userID)
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx, "failed to close existing conn", "user_id", existing.userID, "err", err.Error())
		}
		metrics.WebSocketConnectionsGauge.Dec()
	}

	h.clients[newConn.userID] = newConn
	metrics.WebSocketConnectionsGauge.Inc()

	return nil
}

func (h *Hub) Delete(userID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[userID]
	if !ok {
		return ErrConnIsNotFound
	}

	if err := conn.Close(); err != nil {
		ctx := wrap.WithAction(context.Background(), "ws_connection_delete")
		h.l.Warn(ctx, "failed to close conn", "user_id", conn.userID, "err", err.Error())
	}

	delete(h.clients, userID)
	metrics.WebSocketConnectionsGauge.Dec()

	return nil
}

// SendTo delivers msg to one connected client. Returns ErrConnIsNotFound
// when the user has no live connection.
func (h *Hub) SendTo(id uuid.UUID, msg any) error {
	h.mu.Lock()
	conn, ok := h.clients[id]
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	return conn.Send(msg)
}

// Close closes every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Conn, 0, len(h.clients))
	for _, conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()

	for _, conn := range clients {
		_ = h.Delete(conn.userID)
	}

	ctx := wrap.WithAction(context.Background(), "hub_close")
	h.l.Info(ctx, "all websocket connections closed")
}
