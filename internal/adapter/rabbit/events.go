package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/pkg/logger"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/metrics"
	"github.com/marketfleet/dispatch/pkg/rabbit"
)

const (
	DispatchExchange = "dispatch_topic"

	QueueRequestStatus   = "request_status"
	QueueCourierLocation = "courier_locations"
)

// DispatchBroker publishes request lifecycle events and consumes courier
// location updates over the dispatch topic exchange.
type DispatchBroker struct {
	client   *rabbit.RabbitMQ
	exchange string

	l logger.Logger
}

func NewDispatchBroker(client *rabbit.RabbitMQ, log logger.Logger) *DispatchBroker {
	return &DispatchBroker{
		client:   client,
		exchange: DispatchExchange,
		l:        log,
	}
}

// Setup declares the exchange and queues. Declarations are idempotent,
// so every instance can run it at startup.
func (b *DispatchBroker) Setup(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_setup")

	if err := b.client.EnsureConnection(ctx); err != nil {
		return wrap.Error(ctx, err)
	}

	if err := b.client.Channel.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to declare exchange: %w", err))
	}

	queues := map[string]string{
		QueueRequestStatus:   "request.status.*",
		QueueCourierLocation: "courier.location.*",
	}
	for queue, key := range queues {
		if _, err := b.client.Channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to declare queue %s: %w", queue, err))
		}
		if err := b.client.Channel.QueueBind(queue, key, b.exchange, false, nil); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to bind queue %s: %w", queue, err))
		}
	}

	return nil
}

// PublishRequestStatus publishes a lifecycle event with the routing key
// 'request.status.{status}'.
func (b *DispatchBroker) PublishRequestStatus(ctx context.Context, msg models.RequestStatusMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_request_status")

	if err := b.client.EnsureConnection(ctx); err != nil {
		b.l.Error(ctx, "ensure connection failed", err)
		metrics.RecordBrokerPublish(b.exchange, err)
		return wrap.Error(ctx, err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	key := fmt.Sprintf("request.status.%s", msg.Status)

	err = retry(5, time.Second, func() error {
		return b.client.Channel.PublishWithContext(
			ctx,
			b.exchange,
			key,
			false, // mandatory
			false, // immediate
			amqp091.Publishing{
				ContentType:   "application/json",
				CorrelationId: msg.CorrelationID,
				Body:          body,
				Timestamp:     time.Now(),
			},
		)
	})
	metrics.RecordBrokerPublish(b.exchange, err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to publish request status: %w", err))
	}

	return nil
}
