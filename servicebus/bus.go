package servicebus

import (
	"log/slog"
	"sync"

	cbus "github.com/next-trace/scg-service-host/contract/bus"
)

// Bus is the process-wide publish/subscribe hub. One instance is built at
// start-up, handed to every module, and lives for the life of the process;
// there is no teardown API.
//
// Dispatch semantics: Emit invokes, synchronously and in registration
// order, every listener registered for the event name at the moment Emit
// is called (snapshot-at-dispatch). Listeners registered during dispatch
// do not receive the in-flight event. Named listeners run before Wildcard
// listeners; within each group registration order holds.
type Bus struct {
	mu        sync.Mutex
	seq       int
	listeners map[string][]entry
	logger    *slog.Logger
}

type entry struct {
	id    int
	owner string
	fn    cbus.Listener
}

var _ cbus.Dispatcher = (*Bus)(nil)

// New constructs a Bus. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bus{
		listeners: make(map[string][]entry),
		logger:    logger,
	}
}

// On registers a listener for the given event name and returns an
// idempotent unregister func. The reserved name bus.Wildcard subscribes
// to every event.
func (b *Bus) On(event string, fn cbus.Listener) func() {
	return b.OnOwned(event, "", fn)
}

// OnOwned registers a listener stamped with an owner identity. The owner
// appears in the error log when the listener panics during dispatch.
func (b *Bus) OnOwned(event, owner string, fn cbus.Listener) func() {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.listeners[event] = append(b.listeners[event], entry{id: id, owner: owner, fn: fn})
	b.mu.Unlock()

	return func() { b.off(event, id) }
}

func (b *Bus) off(event string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.listeners[event]
	for i, e := range list {
		if e.id != id {
			continue
		}

		// Copy-on-remove keeps any in-flight dispatch snapshot intact.
		next := make([]entry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		b.listeners[event] = next

		return
	}
}

// Emit dispatches the event to every listener currently registered for its
// name, then to every wildcard listener with the event name prepended to
// the arguments. Emit does not return until all of them have run. A
// panicking listener is logged and skipped; it never reaches the emitter.
func (b *Bus) Emit(event string, args ...any) {
	b.mu.Lock()

	var named []entry
	if event != cbus.Wildcard {
		named = b.listeners[event]
	}

	wild := b.listeners[cbus.Wildcard]
	b.mu.Unlock()

	for _, e := range named {
		b.invoke(event, e, args)
	}

	if len(wild) == 0 {
		return
	}

	wargs := make([]any, 0, len(args)+1)
	wargs = append(wargs, event)
	wargs = append(wargs, args...)

	for _, e := range wild {
		b.invoke(event, e, wargs)
	}
}

// ListenerCount reports how many listeners are registered for an event
// name. Intended for diagnostics and tests.
func (b *Bus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.listeners[event])
}

func (b *Bus) invoke(event string, e entry, args []any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("servicebus: listener panic",
				"event", event,
				"owner", e.owner,
				"panic", r,
			)
		}
	}()

	e.fn(args...)
}
