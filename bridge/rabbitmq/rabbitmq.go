// Package rabbitmq forwards bus events to RabbitMQ. Events land on a topic
// exchange with the bus event name as routing key, and the package includes
// an auto-reconnect publisher for long-running hosts.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	cbus "github.com/next-trace/scg-service-host/contract/bus"
	herr "github.com/next-trace/scg-service-host/contract/errors"
	"github.com/next-trace/scg-service-host/registry"
)

// ModuleName is the registry name the forwarder claims.
const ModuleName = "rabbitmq"

// PubMsg is one message handed to a Publisher.
type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
}

// Publisher is the minimal AMQP publish surface the forwarder needs.
type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

// Forwarder mirrors bus events onto the lifecycle exchange.
type Forwarder struct {
	pub    Publisher
	logger *slog.Logger
	off    func()
}

// New creates a Forwarder with the provided publisher. A nil logger falls
// back to slog.Default().
func New(p Publisher, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Forwarder{pub: p, logger: logger}
}

// Attach registers the forwarder as the "rabbitmq" module and subscribes
// its wildcard listener.
func (fw *Forwarder) Attach(reg *registry.Registry) error {
	if fw.pub == nil {
		return fmt.Errorf("rabbitmq attach: %w", herr.ErrBridgeNotConfigured)
	}

	mod, err := reg.GetOrCreate(ModuleName, nil)
	if err != nil {
		return err
	}

	fw.off = mod.On(cbus.Wildcard, fw.forward)

	return nil
}

// Detach unsubscribes the wildcard listener. Idempotent.
func (fw *Forwarder) Detach() {
	if fw.off != nil {
		fw.off()
		fw.off = nil
	}
}

func (fw *Forwarder) forward(args ...any) {
	if len(args) == 0 {
		return
	}

	event, ok := args[0].(string)
	if !ok {
		return
	}

	body, err := marshalEnvelope(event, args[1:])
	if err != nil {
		fw.logger.Error("rabbitmq forward serialize",
			"event", event,
			"err", errors.Join(herr.ErrSerializationFailed, err),
		)

		return
	}

	msg := PubMsg{
		Exchange:   lifecycleExchange,
		RoutingKey: event,
		Body:       body,
	}

	if err := fw.pub.Publish(context.Background(), msg); err != nil {
		fw.logger.Error("rabbitmq forward publish",
			"event", event,
			"err", errors.Join(herr.ErrForwardFailed, err),
		)
	}
}

type envelope struct {
	Event string `json:"event"`
	Args  []any  `json:"args,omitempty"`
}

func marshalEnvelope(event string, args []any) ([]byte, error) {
	return json.Marshal(envelope{Event: event, Args: args})
}
