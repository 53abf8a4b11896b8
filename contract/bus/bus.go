package bus

// Listener receives the positional arguments carried by a bus event.
// Listeners registered under Wildcard receive the event name as the
// first argument, followed by the event's own arguments.
type Listener func(args ...any)

// Wildcard is the reserved event name that matches every emitted event.
const Wildcard = "*"

// Emitter publishes named events to the process-wide bus.
type Emitter interface {
	Emit(event string, args ...any)
}

// Dispatcher is the minimal bus surface that modules and adapters depend
// on while remaining decoupled from the concrete servicebus implementation.
//
// On registers a listener and returns an idempotent unregister func.
// OnOwned additionally stamps an owner identity used when a listener
// failure is logged at the bus boundary.
type Dispatcher interface {
	Emitter

	On(event string, fn Listener) (off func())
	OnOwned(event, owner string, fn Listener) (off func())
}
