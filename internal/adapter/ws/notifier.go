package ws

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/pkg/logger"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/wshub"
)

// Notifier pushes request lifecycle updates to connected requesters and
// couriers. A client that is not connected simply misses the push; the
// message bus remains the durable channel.
type Notifier struct {
	hub *wshub.Hub
	l   logger.Logger
}

func NewNotifier(hub *wshub.Hub, l logger.Logger) *Notifier {
	return &Notifier{hub: hub, l: l}
}

func (n *Notifier) NotifyRequestStatus(ctx context.Context, msg models.RequestStatusMessage) {
	ctx = wrap.WithAction(ctx, "ws_notify_request_status")

	n.send(ctx, msg.RequesterID, msg)
	if msg.CourierID != nil {
		n.send(ctx, *msg.CourierID, msg)
	}
}

func (n *Notifier) send(ctx context.Context, userID uuid.UUID, msg models.RequestStatusMessage) {
	if err := n.hub.SendTo(userID, msg); err != nil {
		if errors.Is(err, wshub.ErrConnIsNotFound) {
			return
		}
		n.l.Warn(ctx, "failed to push status update", "user_id", userID, "err", err.Error())
	}
}
