// Package kafka forwards bus events to Kafka. All events land on one topic
// keyed by the bus event name, so per-event ordering is preserved within a
// partition.
package kafka

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
const ModuleName = "kafka"

// DefaultTopic receives forwarded events when none is configured.
const DefaultTopic = "servicehost.events"

// Writer is a minimal Kafka-like writer interface. Users can adapt any
// client to this; a franz-go backed implementation is available behind the
// franz build tag.
type Writer interface {
	Write(topic string, key, value []byte, headers map[string]string) error
}

// Forwarder mirrors bus events onto a Kafka topic.
type Forwarder struct {
	writer Writer
	topic  string
	logger *slog.Logger
	off    func()
}

// New creates a Forwarder with the provided writer. An empty topic falls
// back to DefaultTopic; a nil logger to slog.Default().
func New(w Writer, topic string, logger *slog.Logger) *Forwarder {
	if topic == "" {
		topic = DefaultTopic
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Forwarder{writer: w, topic: topic, logger: logger}
}

// Attach registers the forwarder as the "kafka" module and subscribes its
// wildcard listener.
func (fw *Forwarder) Attach(reg *registry.Registry) error {
	if fw.writer == nil {
		return fmt.Errorf("kafka attach: %w", herr.ErrBridgeNotConfigured)
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
		fw.logger.Error("kafka forward serialize",
			"event", event,
			"err", errors.Join(herr.ErrSerializationFailed, err),
		)

		return
	}

	if err := fw.writer.Write(fw.topic, []byte(event), body, nil); err != nil {
		fw.logger.Error("kafka forward write",
			"event", event,
			"topic", fw.topic,
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
