package bus

// Published event names are the stable wire format of the internal bus.
// Third-party modules key on them literally; do not change without versioning.
const (
	// EventStart is emitted once the lifecycle controller reaches Running.
	EventStart = "start"

	// EventStop is emitted before the OS facility is asked to stop the process.
	EventStop = "stop"

	// ControlEventPrefix prefixes events translated from OS control codes,
	// e.g. "svc-sessionchange".
	ControlEventPrefix = "svc-"

	// ServiceModule is the distinguished module name whose events are
	// emitted under their bare name.
	ServiceModule = "service"
)

// ControlEvent returns the bus event name for an OS control code.
func ControlEvent(code string) string { return ControlEventPrefix + code }

// Namespaced returns the bus-visible name for an event emitted by a module.
// Events from the distinguished "service" module keep their bare name; any
// other module's events are prefixed with the module name.
func Namespaced(module, event string) string {
	if module == ServiceModule {
		return event
	}

	return module + "." + event
}
