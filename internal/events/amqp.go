package events

import (
	"context"
	"encoding/json"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher forwards dispatched events to a RabbitMQ topic exchange so
// downstream consumers (notification delivery, reporting) can react without
// coupling to this service. Routing key is the event type.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *zap.Logger
}

// NewAMQPPublisher connects and declares the exchange.
func NewAMQPPublisher(url, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

// Attach subscribes the publisher to every event type on the dispatcher.
func (p *AMQPPublisher) Attach(d Dispatcher) {
	handler := func(ctx context.Context, event Event) error {
		return p.publish(ctx, event)
	}
	for _, eventType := range []EventType{
		EventStatusChanged, EventSLAPaused, EventSLAResumed, EventSLABreached, EventSLAEscalated,
	} {
		d.Subscribe(eventType, handler)
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		p.logger.Warn("amqp publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
	return err
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.logger.Warn("close amqp channel", zap.Error(err))
	}
	return p.conn.Close()
}
