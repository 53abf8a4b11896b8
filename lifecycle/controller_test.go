package lifecycle_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/next-trace/scg-service-host/adapters/inmemory"
	cbus "github.com/next-trace/scg-service-host/contract/bus"
	herr "github.com/next-trace/scg-service-host/contract/errors"
	"github.com/next-trace/scg-service-host/contract/svc"
	"github.com/next-trace/scg-service-host/lifecycle"
	"github.com/next-trace/scg-service-host/registry"
	"github.com/next-trace/scg-service-host/servicebus"
)

type fixture struct {
	bus  *servicebus.Bus
	reg  *registry.Registry
	fac  *inmemory.Facility
	ctrl *lifecycle.Controller
}

func newFixture(t *testing.T, sessions svc.SessionDetector) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := servicebus.New(logger)
	reg := registry.New(bus)
	fac := inmemory.New(svc.StateRunning)

	ctrl, err := lifecycle.New(lifecycle.Options{
		Facility: fac,
		Sessions: sessions,
		Registry: reg,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	return &fixture{bus: bus, reg: reg, fac: fac, ctrl: ctrl}
}

func Test_NewRequiresFacilityAndRegistry(t *testing.T) {
	_, err := lifecycle.New(lifecycle.Options{Registry: registry.New(servicebus.New(nil))})
	if !errors.Is(err, herr.ErrFacilityRequired) {
		t.Fatalf("want ErrFacilityRequired, got %v", err)
	}

	_, err = lifecycle.New(lifecycle.Options{Facility: inmemory.New(svc.StateRunning)})
	if !errors.Is(err, herr.ErrRegistryRequired) {
		t.Fatalf("want ErrRegistryRequired, got %v", err)
	}
}

func Test_StartRegistersControlsAndEmitsStart(t *testing.T) {
	f := newFixture(t, nil)

	started := 0
	f.bus.On(cbus.EventStart, func(...any) { started++ })

	if err := f.ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	if f.ctrl.State() != lifecycle.Running {
		t.Fatalf("want Running, got %s", f.ctrl.State())
	}

	if started != 1 {
		t.Fatalf("want start emitted once, got %d", started)
	}

	accepted := f.fac.Accepted()
	if len(accepted) == 0 {
		t.Fatalf("want control codes registered")
	}

	if calls := f.fac.Calls(); calls[0] != "accept" || calls[1] != "notify" {
		t.Fatalf("want accept before notify, got %v", calls)
	}

	if f.ctrl.Module() == nil || f.ctrl.Module().Name() != cbus.ServiceModule {
		t.Fatalf("controller must own the service module")
	}
}

func Test_StartTwiceIsInvalid(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	err := f.ctrl.Start()
	if !errors.Is(err, herr.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func Test_StartFailsWhenAcceptControlFails(t *testing.T) {
	f := newFixture(t, nil)
	f.fac.AcceptErr = errors.New("scm unavailable")

	err := f.ctrl.Start()
	if !errors.Is(err, herr.ErrControlRegistration) {
		t.Fatalf("want ErrControlRegistration, got %v", err)
	}

	if f.ctrl.State() != lifecycle.Uninitialized {
		t.Fatalf("failed start must roll back, got %s", f.ctrl.State())
	}
}

func Test_StartSynthesizesSessionChange(t *testing.T) {
	f := newFixture(t, &inmemory.Sessions{Active: true})

	var got []any

	hits := 0

	f.bus.On("svc-sessionchange", func(args ...any) {
		hits++

		got = args
	})

	if err := f.ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	if hits != 1 {
		t.Fatalf("want synthesized session-change, got %d", hits)
	}

	if len(got) != 1 || got[0] != svc.SessionLogon {
		t.Fatalf("want session-logon reason, got %v", got)
	}
}

func Test_NoSessionSynthesisWithoutActiveSession(t *testing.T) {
	f := newFixture(t, &inmemory.Sessions{Active: false})

	hits := 0
	f.bus.On("svc-sessionchange", func(...any) { hits++ })

	if err := f.ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	if hits != 0 {
		t.Fatalf("want no synthesis, got %d", hits)
	}
}

func Test_StopEmitsBeforeFacilityStop(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Record the stop event in the facility call log so ordering against
	// RequestStop is observable in one list.
	f.bus.On(cbus.EventStop, func(...any) { f.fac.Record("stop-event") })

	if err := f.ctrl.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	calls := f.fac.Calls()
	if len(calls) != 4 || calls[2] != "stop-event" || calls[3] != "stop" {
		t.Fatalf("stop event must precede facility stop, got %v", calls)
	}

	if f.ctrl.State() != lifecycle.Stopped {
		t.Fatalf("want Stopped, got %s", f.ctrl.State())
	}
}

func Test_StopViaControlCode(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	stopped := 0
	f.bus.On(cbus.EventStop, func(...any) { stopped++ })

	f.fac.Deliver(svc.Stop, "")

	if f.ctrl.State() != lifecycle.Stopped {
		t.Fatalf("want Stopped after control code, got %s", f.ctrl.State())
	}

	if stopped != 1 {
		t.Fatalf("want stop emitted once, got %d", stopped)
	}

	// A second delivery is a no-op on a stopped controller.
	f.fac.Deliver(svc.Stop, "")

	if stopped != 1 {
		t.Fatalf("stop must be idempotent, got %d", stopped)
	}
}

// eagerStopFacility delivers a stop control the moment the ingress is
// bound, before the controller reaches Running.
type eagerStopFacility struct {
	*inmemory.Facility
}

func (f *eagerStopFacility) Notify(in svc.Ingress) {
	f.Facility.Notify(in)
	in(svc.Notification{Code: svc.Stop})
}

func Test_StopDuringStartupIsDeferred(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := servicebus.New(logger)
	reg := registry.New(bus)
	fac := &eagerStopFacility{Facility: inmemory.New(svc.StateRunning)}

	ctrl, err := lifecycle.New(lifecycle.Options{
		Facility: fac,
		Registry: reg,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	stopped := 0
	bus.On(cbus.EventStop, func(...any) { stopped++ })

	if err := ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	if ctrl.State() != lifecycle.Stopped {
		t.Fatalf("early stop must be honored after start-up, got %s", ctrl.State())
	}

	if stopped != 1 {
		t.Fatalf("want stop emitted once, got %d", stopped)
	}

	if calls := fac.Calls(); calls[len(calls)-1] != "stop" {
		t.Fatalf("facility stop must still be requested, got %v", calls)
	}
}

func Test_AccessorsBeforeStart(t *testing.T) {
	f := newFixture(t, nil)

	if f.ctrl.Module() != nil {
		t.Fatalf("module must be nil before start")
	}

	if f.ctrl.IsService() || f.ctrl.IsBundled() {
		t.Fatalf("identity flags must be false before start")
	}
}

func Test_StopBeforeStartIsInvalid(t *testing.T) {
	f := newFixture(t, nil)

	err := f.ctrl.Stop()
	if !errors.Is(err, herr.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func Test_StopPropagatesFacilityError(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.fac.StopErr = errors.New("scm refused")

	err := f.ctrl.Stop()
	if !errors.Is(err, herr.ErrStopRequestFailed) {
		t.Fatalf("want ErrStopRequestFailed, got %v", err)
	}

	if f.ctrl.State() != lifecycle.Stopped {
		t.Fatalf("controller still reaches Stopped, got %s", f.ctrl.State())
	}
}

func Test_IdentityFlagsComputedAtStart(t *testing.T) {
	f := newFixture(t, nil)
	f.fac.InteractiveMode = true

	if err := f.ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	if f.ctrl.IsService() {
		t.Fatalf("interactive facility must not report service mode")
	}
}
