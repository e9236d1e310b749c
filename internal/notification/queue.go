package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// publishChannel is the part of *amqp091.Channel the sender needs.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// QueueSender hands messages to RabbitMQ; the notification worker delivers
// them.
type QueueSender struct {
	channel  publishChannel
	exchange string
	queue    string
	timeout  time.Duration
}

func NewQueueSender(channel publishChannel, exchange, queue string) *QueueSender {
	return &QueueSender{
		channel:  channel,
		exchange: exchange,
		queue:    queue,
		timeout:  5 * time.Second,
	}
}

func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.channel.PublishWithContext(ctx, s.exchange, s.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// AMQPClient owns the connection and the declared exchange/queue pair.
type AMQPClient struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
	logger   *slog.Logger
}

func NewAMQPClient(url, exchange, queue string, logger *slog.Logger) (*AMQPClient, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &AMQPClient{conn: conn, channel: channel, exchange: exchange, queue: queue, logger: logger}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *AMQPClient) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queue, c.queue, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *AMQPClient) Sender() *QueueSender {
	return NewQueueSender(c.channel, c.exchange, c.queue)
}

// Consume delivers queued messages through sender until ctx ends. Malformed
// messages are dropped; failed sends are requeued.
func (c *AMQPClient) Consume(ctx context.Context, sender Sender) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "consuming notifications", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, sender, delivery)
		}
	}
}

func (c *AMQPClient) handle(ctx context.Context, sender Sender, delivery amqp091.Delivery) {
	var msg Message
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		c.logger.ErrorContext(ctx, "dropping malformed notification", "error", err)
		delivery.Nack(false, false)
		return
	}

	if err := sender.Send(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "failed to deliver notification", "error", err, "to", msg.To, "kind", msg.Kind)
		// placeholder credentials will never succeed, so don't spin on them
		delivery.Nack(false, !errors.Is(err, ErrPlaceholderCredentials))
		return
	}
	delivery.Ack(false)
}

func (c *AMQPClient) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
