// Package host wires a bus, a registry, and a lifecycle controller into a
// ready-to-start unit.
package host

import (
	"log/slog"

	"github.com/next-trace/scg-service-host/adapters/inmemory"
	"github.com/next-trace/scg-service-host/contract/svc"
	"github.com/next-trace/scg-service-host/lifecycle"
	"github.com/next-trace/scg-service-host/registry"
	"github.com/next-trace/scg-service-host/servicebus"
)

// Host bundles the process-wide core: one bus, one registry, one
// controller. Construct it once at start-up, before any module registers.
type Host struct {
	Bus        *servicebus.Bus
	Registry   *registry.Registry
	Controller *lifecycle.Controller
}

// New wires the core over the given facility. Sessions may be nil; a nil
// logger falls back to slog.Default().
func New(fac svc.Facility, sessions svc.SessionDetector, logger *slog.Logger) (*Host, error) {
	bus := servicebus.New(logger)
	reg := registry.New(bus)

	ctrl, err := lifecycle.New(lifecycle.Options{
		Facility: fac,
		Sessions: sessions,
		Registry: reg,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return &Host{Bus: bus, Registry: reg, Controller: ctrl}, nil
}

// NewInMemory wires the core over a recording in-memory facility, for tests
// and examples. The facility is returned so callers can deliver control
// notifications and inspect call order.
func NewInMemory(logger *slog.Logger) (*Host, *inmemory.Facility, error) {
	fac := inmemory.New(svc.StateRunning)

	h, err := New(fac, &inmemory.Sessions{}, logger)
	if err != nil {
		return nil, nil, err
	}

	return h, fac, nil
}
