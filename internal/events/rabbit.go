// Package events announces cart changes on RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/ahinestrog/gomarketplace/internal/cart"
)

// channel is the slice of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	log      zerolog.Logger
	now      func() time.Time
}

// NewPublisher dials rabbitURL and declares exchange as a durable topic
// exchange.
func NewPublisher(rabbitURL, exchange string, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(rabbitURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, channel: ch, exchange: exchange, log: log, now: time.Now}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Publish sends payload wrapped in an Envelope with routing key eventType.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := json.Marshal(Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: p.now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return err
	}
	p.log.Debug().Str("type", eventType).Str("exchange", p.exchange).Msg("publish event")
	return p.channel.PublishWithContext(ctx,
		p.exchange, eventType, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
}

func (p *Publisher) CartUpdated(ctx context.Context, s cart.State) error {
	return p.Publish(ctx, TypeCartUpdated, newCartUpdated(s))
}

// Nop stands in when RabbitMQ is not reachable.
type Nop struct{}

func (Nop) CartUpdated(context.Context, cart.State) error { return nil }
