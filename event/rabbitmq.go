// Package event moves messages between this service and RabbitMQ. Every
// message carries its action in the x-action header.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chat-service/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type EventChannelData struct {
	Queue  string
	Action string
	Data   []byte
}

const RabbitMQActionHeader string = "x-action"

const publishTimeout = 5 * time.Second

var ErrUnknownQueue = errors.New("queue not declared")

type Broker struct {
	conn *amqp.Connection
	log  *logger.Logger

	// amqp channels are not safe for concurrent publishing
	mu      sync.Mutex
	channel *amqp.Channel
	queues  map[string]amqp.Queue
}

// Connect dials url, opens a channel and declares queues.
func Connect(url string, queues []string, log *logger.Logger) (*Broker, error) {
	if log == nil {
		log = logger.Nop()
	}

	// Connect to RabbitMQ server
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	log.Info("connection opened to RabbitMQ server")

	// Open a RabbitMQ channel
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open RabbitMQ channel: %w", err)
	}

	b := &Broker{
		conn:    conn,
		log:     log,
		channel: channel,
		queues:  make(map[string]amqp.Queue),
	}

	// Declare queues
	for _, name := range queues {
		queue, err := channel.QueueDeclare(
			name,  // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("declare RabbitMQ queue %s: %w", name, err)
		}
		b.queues[name] = queue
		log.Info("declared RabbitMQ queue", "queue", name)
	}
	return b, nil
}

// Subscribe forwards every message of queue to out until ctx is done or the
// connection closes. Messages without an action are dropped.
func (b *Broker) Subscribe(ctx context.Context, queue string, out chan<- EventChannelData) error {
	if _, ok := b.queues[queue]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQueue, queue)
	}

	b.mu.Lock()
	msgs, err := b.channel.ConsumeWithContext(
		ctx,
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}
	b.log.Info("subscribed to RabbitMQ queue", "queue", queue)

	go func() {
		for msg := range msgs {
			if !b.forward(ctx, queue, msg, out) {
				return
			}
		}
	}()
	return nil
}

// forward hands msg to out and acks it once out has taken it. A message still
// pending when ctx ends is requeued. It reports whether consuming should go on.
func (b *Broker) forward(ctx context.Context, queue string, msg amqp.Delivery, out chan<- EventChannelData) bool {
	action, _ := msg.Headers[RabbitMQActionHeader].(string)
	if action == "" {
		b.log.Warn("dropping event without action", "queue", queue)
		if err := msg.Nack(false, false); err != nil {
			b.log.Warn("nack event", "queue", queue, "error", err)
		}
		return true
	}

	select {
	case out <- EventChannelData{Queue: queue, Action: action, Data: msg.Body}:
		if err := msg.Ack(false); err != nil {
			b.log.Warn("ack event", "queue", queue, "action", action, "error", err)
		}
		return true
	case <-ctx.Done():
		if err := msg.Nack(false, true); err != nil {
			b.log.Warn("requeue event", "queue", queue, "action", action, "error", err)
		}
		return false
	}
}

// Publish sends body to queue through the default exchange.
func (b *Broker) Publish(ctx context.Context, queue, action string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now(),
			Headers: amqp.Table{
				RabbitMQActionHeader: action,
			},
			Body: body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", action, queue, err)
	}
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	if b.channel != nil {
		errs = append(errs, b.channel.Close())
	}
	if b.conn != nil && !b.conn.IsClosed() {
		errs = append(errs, b.conn.Close())
	}
	return errors.Join(errs...)
}
