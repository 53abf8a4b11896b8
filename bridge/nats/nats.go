// Package nats forwards bus events to NATS. The forwarder registers as the
// "nats" module and mirrors every bus event onto a subject derived from the
// event name, so external observers see the same wire-format names as
// in-process modules.
package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	cbus "github.com/next-trace/scg-service-host/contract/bus"
	herr "github.com/next-trace/scg-service-host/contract/errors"
	"github.com/next-trace/scg-service-host/registry"
)

// ModuleName is the registry name the forwarder claims.
const ModuleName = "nats"

// DefaultSubjectPrefix prefixes the bus event name to form the subject.
const DefaultSubjectPrefix = "servicehost"

// Client is a minimal NATS-like publisher interface decoupled from any
// concrete library. Users can provide a wrapper around their NATS
// connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
}

// Forwarder mirrors bus events onto NATS subjects.
type Forwarder struct {
	client Client
	prefix string
	logger *slog.Logger
	off    func()
}

// New creates a Forwarder with the provided client. An empty prefix falls
// back to DefaultSubjectPrefix; a nil logger to slog.Default().
func New(c Client, prefix string, logger *slog.Logger) *Forwarder {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Forwarder{client: c, prefix: prefix, logger: logger}
}

// Attach registers the forwarder as the "nats" module and subscribes its
// wildcard listener. Forwarding failures are logged, never propagated to
// the emitter.
func (fw *Forwarder) Attach(reg *registry.Registry) error {
	if fw.client == nil {
		return fmt.Errorf("nats attach: %w", herr.ErrBridgeNotConfigured)
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
		fw.logger.Error("nats forward serialize",
			"event", event,
			"err", errors.Join(herr.ErrSerializationFailed, err),
		)

		return
	}

	subject := fw.prefix + "." + event
	if err := fw.client.Publish(subject, body, nil); err != nil {
		fw.logger.Error("nats forward publish",
			"event", event,
			"subject", subject,
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
