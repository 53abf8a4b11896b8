// Package registry owns the process-wide mapping from module name to module
// instance. Modules are created lazily, never removed, and each one carries
// an Emit bound to its own namespace.
package registry

import (
	"fmt"
	"sync"

	cbus "github.com/next-trace/scg-service-host/contract/bus"
	herr "github.com/next-trace/scg-service-host/contract/errors"
)

// Registry is the only owner of Module instances. At most one instance
// exists per name for the process lifetime; re-requesting an existing name
// returns the same instance.
type Registry struct {
	mu      sync.Mutex
	bus     cbus.Dispatcher
	modules map[string]*Module
}

// New constructs a Registry bound to the given dispatcher.
func New(d cbus.Dispatcher) *Registry {
	return &Registry{
		bus:     d,
		modules: make(map[string]*Module),
	}
}

// GetOrCreate returns the module registered under name, creating it on
// first call. The payload is stored only on creation; on subsequent calls
// it is silently ignored (idempotent, first-writer-wins). A nil payload
// on creation becomes an empty record.
func (r *Registry) GetOrCreate(name string, payload map[string]any) (*Module, error) {
	if name == "" {
		return nil, fmt.Errorf("registry get-or-create: %w", herr.ErrModuleNameRequired)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[name]; ok {
		return m, nil
	}

	if payload == nil {
		payload = make(map[string]any)
	}

	m := &Module{name: name, payload: payload, bus: r.bus}
	r.modules[name] = m

	return m, nil
}

// Get returns the module registered under name, if any.
func (r *Registry) Get(name string) (*Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.modules[name]

	return m, ok
}

// Names returns the registered module names in unspecified order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.modules))
	for n := range r.modules {
		names = append(names, n)
	}

	return names
}

// Module is a named subsystem handle owned by the Registry. Its Emit
// applies the namespacing rule: module X emitting E yields bus event
// "X.E", except the distinguished "service" module, which emits bare "E".
type Module struct {
	name    string
	payload map[string]any
	bus     cbus.Dispatcher
}

var _ cbus.Module = (*Module)(nil)

// Name returns the unique module name.
func (m *Module) Name() string { return m.name }

// Payload returns the record stored at first creation. Mutations are
// visible to every holder of the module; the single-dispatch-path model
// makes that safe for modules that coordinate through it.
func (m *Module) Payload() map[string]any { return m.payload }

// Emit publishes event under this module's namespace.
func (m *Module) Emit(event string, args ...any) {
	m.bus.Emit(cbus.Namespaced(m.name, event), args...)
}

// On registers a listener for the given bus-level event name (already
// namespaced by its producer), stamped with this module as owner for
// failure diagnostics.
func (m *Module) On(event string, fn cbus.Listener) func() {
	return m.bus.OnOwned(event, m.name, fn)
}
