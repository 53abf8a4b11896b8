package bus

// Module is the capability every registered subsystem receives from the
// registry: a stable name and an Emit bound to that name's namespace.
// Concrete modules implement or compose this rather than attaching
// behavior to untyped records at runtime.
type Module interface {
	Name() string
	Emitter
}
