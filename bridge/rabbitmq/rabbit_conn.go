package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	herr "github.com/next-trace/scg-service-host/contract/errors"
)

// Concrete AMQP-backed publisher. The connection is owned by a background
// goroutine that redials whenever the broker drops it, so the forwarder
// survives broker restarts without the host noticing.

const (
	lifecycleExchange   = "lifecycle"
	lifecycleExchangeTy = "topic"

	initialRedialDelay = time.Second
	maxRedialDelay     = 30 * time.Second
	defaultDialTimeout = 30 * time.Second
)

type Config struct {
	URL         string
	ConnTimeout time.Duration
}

// redialPublisher holds one channel open against RabbitMQ for the life of
// the host. Publish blocks until the first channel is up or the caller's
// context ends; after a connection loss, publishes fail until the redial
// loop re-establishes the channel.
type redialPublisher struct {
	cfg    Config
	logger *slog.Logger

	mu sync.RWMutex
	ch *amqp.Channel

	ready    chan struct{} // closed once the first channel is up
	done     chan struct{}
	stopOnce sync.Once
}

func newRedialPublisher(cfg Config, logger *slog.Logger) (*redialPublisher, func()) {
	p := &redialPublisher{
		cfg:    cfg,
		logger: logger,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.run()

	return p, p.stop
}

func (p *redialPublisher) Publish(ctx context.Context, m PubMsg) error {
	select {
	case <-p.ready:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return fmt.Errorf("%w: rabbitmq publisher closed", herr.ErrForwardFailed)
	}

	p.mu.RLock()
	ch := p.ch
	p.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("%w: rabbitmq not connected", herr.ErrForwardFailed)
	}

	var h amqp.Table
	if len(m.Headers) > 0 {
		h = amqp.Table{}
		for k, v := range m.Headers {
			h[k] = v
		}
	}

	return ch.PublishWithContext(
		ctx,
		m.Exchange,
		m.RoutingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Headers:      h,
			ContentType:  "application/json",
			Body:         m.Body,
		},
	)
}

// run dials, parks on the connection's close notification, and redials on
// loss. Every failed dial and every lost connection is logged; a down broker
// is never silent.
func (p *redialPublisher) run() {
	var readyOnce sync.Once

	attempt := 0

	for {
		select {
		case <-p.done:
			return
		default:
		}

		conn, ch, err := p.dial()
		if err != nil {
			attempt++
			delay := redialDelay(attempt)

			p.logger.Warn("rabbitmq dial failed",
				"attempt", attempt,
				"retry_in", delay,
				"err", err,
			)

			select {
			case <-p.done:
				return
			case <-time.After(delay):
			}

			continue
		}

		attempt = 0

		p.mu.Lock()
		p.ch = ch
		p.mu.Unlock()

		readyOnce.Do(func() { close(p.ready) })
		p.logger.Info("rabbitmq connected", "exchange", lifecycleExchange)

		closed := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-p.done:
			_ = ch.Close()
			_ = conn.Close()

			return
		case reason := <-closed:
			p.logger.Warn("rabbitmq connection lost", "reason", reason)

			p.mu.Lock()
			p.ch = nil
			p.mu.Unlock()
		}
	}
}

// dial opens a connection and channel and ensures the lifecycle exchange
// exists.
func (p *redialPublisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	timeout := p.cfg.ConnTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "scg-service-host"},
		Dial:       amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, nil, err
	}

	if err := ch.ExchangeDeclare(
		lifecycleExchange,
		lifecycleExchangeTy,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, nil, err
	}

	return conn, ch, nil
}

func (p *redialPublisher) stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

// redialDelay returns the wait before the nth consecutive redial: capped
// exponential growth from initialRedialDelay, plus up to 25% jitter.
func redialDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := initialRedialDelay
	for i := 1; i < attempt && d < maxRedialDelay; i++ {
		d *= 2
	}

	if d > maxRedialDelay {
		d = maxRedialDelay
	}

	return d + time.Duration(rand.Int63n(int64(d/4))) //nolint:gosec // non-crypto jitter
}

// NewWithAMQPConn starts a redialing AMQP publisher and returns a Forwarder
// and a cleanup that closes the connection.
func NewWithAMQPConn(cfg Config, logger *slog.Logger) (*Forwarder, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq url required", herr.ErrBridgeNotConfigured)
	}

	if logger == nil {
		logger = slog.Default()
	}

	pub, cleanup := newRedialPublisher(cfg, logger)
	fw := New(pub, logger)

	return fw, cleanup, nil
}
