package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/chama-ledger/ledger/internal/domain/event"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher implements event.Publisher on a topic exchange, routing by event type.
type Publisher struct {
	channel  Channel
	exchange string
	logger   zerolog.Logger
}

// NewPublisher creates a publisher bound to exchange.
func NewPublisher(ch Channel, exchange string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger.With().Str("component", "rabbitmq").Logger(),
	}
}

func (p *Publisher) Publish(ctx context.Context, evt *event.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, evt.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    evt.EventID.String(),
		Timestamp:    evt.OccurredAt,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", evt.Type, err)
	}
	p.logger.Debug().Str("routingKey", evt.Type).Str("transactionId", evt.TransactionID.String()).Msg("event published")
	return nil
}

// Connection owns the AMQP connection and channel behind a Publisher.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects, opens a channel and declares a durable topic exchange.
func Dial(url, exchange, connectionName string) (*Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Properties: amqp.Table{"connection_name": connectionName},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &Connection{conn: conn, channel: ch}, nil
}

// Channel returns the open channel.
func (c *Connection) Channel() *amqp.Channel {
	return c.channel
}

// Close closes the channel and the connection.
func (c *Connection) Close() error {
	_ = c.channel.Close()
	return c.conn.Close()
}
