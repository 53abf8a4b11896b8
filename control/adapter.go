// Package control translates raw OS service-control notifications into bus
// events. It is a pure translation layer: no business logic, no filtering
// beyond the fixed allow-list registered at start-up.
package control

import (
	"log/slog"

	cbus "github.com/next-trace/scg-service-host/contract/bus"
	"github.com/next-trace/scg-service-host/contract/svc"
	"github.com/next-trace/scg-service-host/registry"
)

// allowList is the fixed set of control codes the host registers for,
// in registration order. Populated at start-up, immutable thereafter.
var allowList = []svc.ControlCode{
	svc.Start,
	svc.Stop,
	svc.Shutdown,
	svc.SessionChange,
	svc.Pause,
	svc.Continue,
}

// Adapter converts facility notifications into "svc-<code>" bus events
// emitted through the distinguished "service" module (so the bus-visible
// name stays bare per the namespacing rule).
type Adapter struct {
	service *registry.Module
	allowed map[svc.ControlCode]struct{}
	logger  *slog.Logger
}

// New constructs an Adapter bound to the "service" module. A nil logger
// falls back to slog.Default().
func New(service *registry.Module, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make(map[svc.ControlCode]struct{}, len(allowList))
	for _, c := range allowList {
		allowed[c] = struct{}{}
	}

	return &Adapter{service: service, allowed: allowed, logger: logger}
}

// Codes returns a copy of the allow-list in registration order.
func (a *Adapter) Codes() []svc.ControlCode {
	out := make([]svc.ControlCode, len(allowList))
	copy(out, allowList)

	return out
}

// Ingress is the single entry point bound to the facility's push callback.
// It logs the raw notification at debug level, then emits the translated
// bus event with the notification detail as its argument. Codes outside
// the allow-list are logged and dropped, never an error.
func (a *Adapter) Ingress(n svc.Notification) {
	a.logger.Debug("control notification", "code", n.Code, "detail", n.Detail)

	if _, ok := a.allowed[n.Code]; !ok {
		a.logger.Warn("control code outside allow-list dropped", "code", n.Code)

		return
	}

	a.service.Emit(cbus.ControlEvent(string(n.Code)), n.Detail)
}
