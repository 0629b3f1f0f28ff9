package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// ErrCircuitOpen is returned while the broker is considered unavailable.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Client publishes and consumes ledger events on a direct exchange. The
// connection is opened lazily and re-dialed after connection errors;
// publishing goes through a circuit breaker so an unavailable broker does not
// stall request handling.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	dial    func(url string) (*amqp091.Connection, error)
	breaker *gobreaker.CircuitBreaker

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func newClient(url, exchangeName, queueName string) *Client {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		dial:         amqp091.Dial,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "amqp-publish",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isConnectionError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("AMQP circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// NewClient connects to the broker and declares the exchange and queue.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := newClient(url, exchangeName, queueName)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.channelLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

// channelLocked returns the open channel, dialing first when needed.
func (c *Client) channelLocked() (*amqp091.Channel, error) {
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.resetLocked()

	conn, err := c.dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn, c.channel = conn, channel
	return channel, nil
}

func (c *Client) resetLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name for the direct exchange.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishEvent publishes a ledger event.
func (c *Client) PublishEvent(ctx context.Context, msg *LedgerEventMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.publish(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published ledger event",
		"event_id", msg.ID,
		"type", msg.Type,
		"series_id", msg.SeriesID,
		"instances", len(msg.InstanceIDs),
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.channelLocked()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.resetLocked()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// BreakerState reports the publish circuit state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// EventHandler processes one ledger event. Returning an error requeues it.
type EventHandler func(ctx context.Context, msg *LedgerEventMessage) error

// ConsumeEvents delivers ledger events to handler until ctx is done. Lost
// connections are re-dialed with exponential backoff.
func (c *Client) ConsumeEvents(ctx context.Context, handler EventHandler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !isConnectionError(err) {
			return err
		}
		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP consumer disconnected, retrying", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler EventHandler, connected func()) error {
	c.mu.Lock()
	ch, err := c.channelLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	slog.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				c.mu.Lock()
				c.resetLocked()
				c.mu.Unlock()
				return errors.New("message channel closed")
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

func handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler EventHandler) {
	msg, err := LedgerEventMessageFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to decode ledger event", "error", err)
		delivery.Nack(false, false) // reject and don't requeue
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle ledger event",
			"error", err,
			"event_id", msg.ID,
			"type", msg.Type)
		delivery.Nack(false, !delivery.Redelivered)
		return
	}

	delivery.Ack(false)
	slog.DebugContext(ctx, "Processed ledger event", "event_id", msg.ID, "type", msg.Type)
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "connection reset", "eof", "broken pipe", "closed network connection", "channel closed", "dial amqp", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.channel != nil {
		err = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = errors.Join(err, c.conn.Close())
		c.conn = nil
	}
	return err
}
