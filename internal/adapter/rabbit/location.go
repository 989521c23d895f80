package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/pkg/logger"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
	"github.com/hayago/tracking-service/pkg/metrics"
	"github.com/hayago/tracking-service/pkg/rabbit"
)

const (
	ExchangeLocationFanout = "location_fanout"

	serviceName = "tracking"
)

// LocationBroker fans freshly ingested location events out to live
// consumers. Publishing is best effort and never gates ingestion.
type LocationBroker struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewLocationBroker(client *rabbit.RabbitMQ, l logger.Logger) *LocationBroker {
	return &LocationBroker{
		client: client,
		l:      l,
	}
}

func (r *LocationBroker) publish(ctx context.Context, exchange, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		Timestamp:     time.Now(),
		CorrelationId: wrap.GetRequestID(ctx),
	}

	err = retry(5, time.Second*2,
		func() error {
			if err := r.client.EnsureConnection(ctx); err != nil {
				return err
			}
			return r.client.Channel.PublishWithContext(
				ctx,
				exchange,
				routingKey,
				false,
				false,
				pub,
			)
		})

	metrics.RecordRabbitMQPublish(serviceName, exchange, err)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

func (r *LocationBroker) PublishLocationUpdate(ctx context.Context, msg models.LocationUpdateMessage) error {
	ctx = wrap.WithAction(ctx, "publish_location_update")

	if err := r.publish(ctx, ExchangeLocationFanout, "", msg); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}

// DeclareExchanges sets up the exchanges this broker publishes to.
func (r *LocationBroker) DeclareExchanges() error {
	return r.client.Channel.ExchangeDeclare(
		ExchangeLocationFanout,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for range n {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(sleep)
	}
	return err
}
