// Package broker wraps a RabbitMQ connection for durable, confirmed
// publishing to named queues and manual-ack consumption from them.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNacked is returned when the broker refuses responsibility for a message.
var ErrNacked = errors.New("broker nacked publish")

// Client holds one connection with a confirm-mode publishing channel and at
// most one consuming channel. Publishes are serialized on the shared channel.
type Client struct {
	url string

	mu        sync.Mutex
	conn      *amqp.Connection
	pubCh     *amqp.Channel
	consumeCh *amqp.Channel
	declared  map[string]bool
}

// Dial connects to the broker at url.
func Dial(url string) (*Client, error) {
	c := &Client{url: url}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	if c.conn != nil {
		_ = c.conn.Close()
	}

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open publish channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("enable publisher confirms: %w", err)
	}

	c.conn = conn
	c.pubCh = ch
	c.consumeCh = nil
	c.declared = map[string]bool{}
	return nil
}

func (c *Client) ensureConnectedLocked() error {
	if c.conn == nil || c.conn.IsClosed() || c.pubCh == nil || c.pubCh.IsClosed() {
		return c.connectLocked()
	}
	return nil
}

// DeclareQueue declares a durable, non-exclusive, non-auto-delete queue.
// Declaring an existing queue with the same arguments is a no-op.
func (c *Client) DeclareQueue(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnectedLocked(); err != nil {
		return err
	}
	return c.declareLocked(c.pubCh, name)
}

func (c *Client) declareLocked(ch *amqp.Channel, name string) error {
	if c.declared[name] {
		return nil
	}
	if _, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	c.declared[name] = true
	return nil
}

// Publish sends body to queue as a persistent JSON message and returns once
// the broker has confirmed it. A publish that fails because the connection
// dropped is retried once on a fresh connection.
func (c *Client) Publish(ctx context.Context, queue string, body []byte, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.publishLocked(ctx, queue, body, messageID)
	if err == nil || !errors.Is(err, amqp.ErrClosed) || ctx.Err() != nil {
		return err
	}

	if err := c.connectLocked(); err != nil {
		return err
	}
	return c.publishLocked(ctx, queue, body, messageID)
}

func (c *Client) publishLocked(ctx context.Context, queue string, body []byte, messageID string) error {
	if err := c.ensureConnectedLocked(); err != nil {
		return err
	}
	if err := c.declareLocked(c.pubCh, queue); err != nil {
		return err
	}

	confirm, err := c.pubCh.PublishWithDeferredConfirmWithContext(ctx,
		"",    // default exchange routes by queue name
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm from %s: %w", queue, err)
	}
	if !acked {
		return fmt.Errorf("publish to %s: %w", queue, ErrNacked)
	}
	return nil
}

// Consume starts a manual-ack consumer on queue, allowing at most prefetch
// unacknowledged deliveries in flight. The returned channel closes when the
// connection or channel is lost, or after Close.
func (c *Client) Consume(queue, consumerTag string, prefetch int) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnectedLocked(); err != nil {
		return nil, err
	}

	if c.consumeCh != nil && !c.consumeCh.IsClosed() {
		_ = c.consumeCh.Close()
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consume channel: %w", err)
	}
	if err := c.declareLocked(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}

	deliveries, err := ch.Consume(
		queue,
		consumerTag,
		false, // auto-ack is false; the worker acks after a terminal outcome
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}

	c.consumeCh = ch
	return deliveries, nil
}

// Healthy reports whether the connection is open.
func (c *Client) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close shuts down both channels and the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consumeCh != nil {
		_ = c.consumeCh.Close()
	}
	if c.pubCh != nil {
		_ = c.pubCh.Close()
	}
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
