package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/marketfleet/dispatch/internal/domain/models"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/metrics"
)

// LocationUpdateHandler receives courier location updates from the bus.
type LocationUpdateHandler func(ctx context.Context, msg models.CourierLocationMessage) error

// ConsumeCourierLocations reads courier location updates until the
// context is cancelled, reconnecting on broker failures.
func (b *DispatchBroker) ConsumeCourierLocations(ctx context.Context, handler LocationUpdateHandler) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_courier_location")

	for {
		if ctx.Err() != nil {
			b.l.Debug(ctx, "courier location consumer stopped by context")
			return nil
		}

		if err := b.client.EnsureConnection(ctx); err != nil {
			b.l.Error(ctx, "ensure connection failed", err)
			time.Sleep(2 * time.Second)
			continue
		}

		msgs, err := b.client.Channel.Consume(QueueCourierLocation, "", false, false, false, false, nil)
		if err != nil {
			b.l.Error(ctx, "consume failed", err)
			time.Sleep(2 * time.Second)
			continue
		}

		b.l.Info(ctx, "start consuming courier locations", "queue", QueueCourierLocation)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				b.l.Info(ctx, "courier location consumer shutting down")
				return nil

			case msg, ok := <-msgs:
				if !ok {
					b.l.Warn(ctx, "message channel closed, reconnecting...")
					time.Sleep(2 * time.Second)
					continue consumeLoop
				}

				go func(d amqp091.Delivery) {
					var update models.CourierLocationMessage
					if err := json.Unmarshal(d.Body, &update); err != nil {
						b.l.Error(ctx, "failed to unmarshal courier location", err)
						metrics.RecordBrokerConsume(QueueCourierLocation, err)
						_ = d.Nack(false, false)
						return
					}

					ctxx := wrap.WithRequestID(ctx, d.CorrelationId)

					err := handler(ctxx, update)
					metrics.RecordBrokerConsume(QueueCourierLocation, err)
					if err != nil {
						b.l.Error(wrap.ErrorCtx(ctx, err), "failed to handle courier location", err)
						if isRecoverableError(err) {
							_ = d.Nack(false, true)
						} else {
							_ = d.Nack(false, false)
						}
						return
					}

					if err := d.Ack(false); err != nil {
						b.l.Error(ctx, "failed to ack message", err)
					}
				}(msg)
			}
		}
	}
}
