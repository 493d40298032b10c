package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/edrive/ride-hailing/pkg/logger"
)

// Config holds RabbitMQ configuration
type Config struct {
	URL        string
	Exchange   string
	Queue      string
	RoutingKey string
	Prefetch   int
}

// Handler processes one message body. A nil error acks the delivery.
type Handler func(ctx context.Context, body []byte) error

var ErrClosed = errors.New("rabbitmq connection is closed")

// RabbitMQ publishes and consumes JSON jobs on one durable queue
type RabbitMQ struct {
	cfg    Config
	conn   *amqp.Connection
	ch     *amqp.Channel
	mu     sync.Mutex
	logger *logger.Logger
}

// Dial connects and declares the exchange, queue and binding
func Dial(cfg Config, log *logger.Logger) (*RabbitMQ, error) {
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = cfg.Queue
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}
	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	return &RabbitMQ{cfg: cfg, conn: conn, ch: ch, logger: log}, nil
}

// Publish sends v as a persistent JSON message
func (r *RabbitMQ) Publish(ctx context.Context, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isAlive() {
		return ErrClosed
	}
	return r.ch.PublishWithContext(ctx, r.cfg.Exchange, r.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume runs handler for every delivery until ctx is done or the channel
// closes. Failed deliveries are requeued once, then dropped.
func (r *RabbitMQ) Consume(ctx context.Context, consumer string, handler Handler) error {
	deliveries, err := r.ch.ConsumeWithContext(ctx, r.cfg.Queue, consumer, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrClosed
			}
			if err := handler(ctx, d.Body); err != nil {
				r.logger.Warn("Job failed",
					logger.String("queue", r.cfg.Queue),
					logger.Bool("redelivered", d.Redelivered),
					logger.Err(err),
				)
				if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
					r.logger.Error("Failed to nack delivery", logger.Err(nackErr))
				}
				continue
			}
			if err := d.Ack(false); err != nil {
				r.logger.Error("Failed to ack delivery", logger.Err(err))
			}
		}
	}
}

// IsAlive reports whether both connection and channel are open
func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isAlive()
}

func (r *RabbitMQ) isAlive() bool {
	return r.conn != nil && !r.conn.IsClosed() && r.ch != nil && !r.ch.IsClosed()
}

// Close closes the channel and connection
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
