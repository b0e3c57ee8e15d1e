package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

type Client struct {
	url          string
	exchangeName string
	queueName    string
	routingKey   string
	// transient clients consume from a server-named queue that lives as
	// long as their connection.
	transient bool

	// mu guards the connection and serializes publishes so sequences
	// reach the broker in order.
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	sequence int64

	failureCount int64
	state        int32
	breakerMu    sync.Mutex
	lastFailure  time.Time
}

// NewClient publishes to and consumes from the durable queue queueName,
// which is also the routing key of every event.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		routingKey:   queueName,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

// NewSubscriber receives a copy of every event published with routingKey
// through its own exclusive queue, leaving the durable queue's deliveries
// to its consumer. The queue is dropped with the connection.
func NewSubscriber(url, exchangeName, routingKey string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		transient:    true,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

// connect dials the broker and declares the topology. Callers hold mu or
// own the client exclusively.
func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = channel

	if err := c.setup(); err != nil {
		c.closeConn()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	name := c.queueName
	if c.transient {
		name = "" // the broker picks a fresh name on every connect
	}
	queue, err := c.channel.QueueDeclare(
		name,         // name
		!c.transient, // durable
		c.transient,  // delete when unused
		c.transient,  // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	c.queueName = queue.Name

	// Bind queue to exchange
	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.routingKey,   // routing key
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) reconnect(ctx context.Context) error {
	c.closeConn()
	for attempt := 0; attempt < maxFailures; attempt++ {
		if err := c.connect(); err == nil {
			slog.InfoContext(ctx, "Reconnected to AMQP broker", "attempt", attempt+1)
			return nil
		} else {
			slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}
	return fmt.Errorf("reconnect to AMQP broker: gave up after %d attempts", maxFailures)
}

// nextSequence returns a value larger than every sequence published
// before, including by earlier runs of the process.
func (c *Client) nextSequence() int64 {
	seq := time.Now().UnixNano()
	if seq <= c.sequence {
		seq = c.sequence + 1
	}
	return seq
}

// PublishTransactionEvent publishes one event for the transaction.
func (c *Client) PublishTransactionEvent(ctx context.Context, eventType EventType, transactionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, dropping %s event for %s", eventType, transactionID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msg := NewTransactionEvent(eventType, transactionID, c.nextSequence())
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if c.channel == nil || c.channel.IsClosed() {
		if err := c.reconnect(ctx); err != nil {
			c.recordFailure()
			return err
		}
	}

	err = c.publish(ctx, body)
	if err != nil && isConnectionError(err) {
		if rerr := c.reconnect(ctx); rerr == nil {
			err = c.publish(ctx, body)
		}
	}
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}

	c.sequence = msg.Sequence
	c.recordSuccess()

	slog.InfoContext(ctx, "Published transaction event",
		"type", string(eventType),
		"transaction_id", transactionID,
		"sequence", msg.Sequence,
		"exchange", c.exchangeName,
		"routing_key", c.routingKey)

	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// EventHandler processes one decoded event. Returning an error requeues it
// after a delay that grows with every consecutive failure.
type EventHandler func(ctx context.Context, event *TransactionEvent) error

// ConsumeTransactionEvents delivers events one at a time until ctx is
// cancelled, reconnecting when the broker drops the channel.
func (c *Client) ConsumeTransactionEvents(ctx context.Context, handler EventHandler) error {
	d := newDispatcher(handler)
	for attempt := 0; ; {
		err := c.consume(ctx, d)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.WarnContext(ctx, "AMQP consumer stopped, reconnecting", "error", err)

		c.mu.Lock()
		rerr := c.reconnect(ctx)
		c.mu.Unlock()
		if rerr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt)):
			}
			attempt++
			continue
		}
		attempt = 0
	}
}

func (c *Client) consume(ctx context.Context, d *dispatcher) error {
	c.mu.Lock()
	channel := c.channel
	queueName := c.queueName
	c.mu.Unlock()
	if channel == nil {
		return errors.New("no open channel")
	}

	// One unacknowledged delivery at a time keeps events in publish order.
	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := channel.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack (we want manual ack)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming transaction events", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			d.dispatch(ctx, delivery.Body, delivery)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// dispatcher hands deliveries to the handler and acknowledges them. With a
// prefetch of one a failing event would be redelivered at once, so each
// requeue waits longer than the one before until the handler succeeds again.
type dispatcher struct {
	handler  EventHandler
	failures int
	sleep    func(ctx context.Context, d time.Duration) error
}

func newDispatcher(handler EventHandler) *dispatcher {
	return &dispatcher{handler: handler, sleep: sleepContext}
}

// dispatch decodes body and acknowledges it: malformed bodies are dropped,
// handler errors are requeued after the backoff.
func (d *dispatcher) dispatch(ctx context.Context, body []byte, ack acknowledger) {
	msg, err := TransactionEventFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		_ = ack.Nack(false, false) // reject and don't requeue
		return
	}

	if err := d.handler(ctx, msg); err != nil {
		d.failures++
		delay := exponentialBackoff(d.failures - 1)
		slog.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"transaction_id", msg.TransactionID,
			"sequence", msg.Sequence,
			"consecutive_failures", d.failures,
			"retry_in", delay.String())
		// Requeued even when ctx ends mid-wait so the event survives shutdown.
		_ = d.sleep(ctx, delay)
		_ = ack.Nack(false, true) // reject and requeue
		return
	}
	d.failures = 0

	_ = ack.Ack(false) // acknowledge successful processing
	slog.DebugContext(ctx, "Processed transaction event",
		"type", string(msg.Type),
		"transaction_id", msg.TransactionID,
		"sequence", msg.Sequence)
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.breakerMu.Lock()
		since := time.Since(c.lastFailure)
		c.breakerMu.Unlock()
		if since > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.breakerMu.Lock()
	c.lastFailure = time.Now()
	c.breakerMu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection closed", "EOF", "broken pipe", "use of closed network connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeConn() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
