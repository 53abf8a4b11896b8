// Package lifecycle orchestrates process start-up and orderly stop. The
// controller is itself registered as the "service" module and is both a
// producer and consumer of bus events.
package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	cbus "github.com/next-trace/scg-service-host/contract/bus"
	herr "github.com/next-trace/scg-service-host/contract/errors"
	"github.com/next-trace/scg-service-host/contract/svc"
	"github.com/next-trace/scg-service-host/control"
	"github.com/next-trace/scg-service-host/registry"
)

// State is the controller's position in the lifecycle machine.
type State int

const (
	Uninitialized State = iota
	Starting
	Running
	Stopping
	Stopped // terminal
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a Controller. Facility and Registry are required;
// Sessions is optional (no session synthesis when nil); a nil Logger falls
// back to slog.Default().
type Options struct {
	Facility svc.Facility
	Sessions svc.SessionDetector
	Registry *registry.Registry
	Logger   *slog.Logger
}

// Controller drives Uninitialized -> Starting -> Running -> Stopping ->
// Stopped. Stop may be invoked by an internal decision or by the OS
// delivering a stop control code; both funnel into the same transition.
type Controller struct {
	mu       sync.Mutex
	state    State
	fac      svc.Facility
	sessions svc.SessionDetector
	reg      *registry.Registry
	mod      *registry.Module
	adapter  *control.Adapter
	logger   *slog.Logger
	offStop  func()

	// stopPending records a stop requested while still Starting; Start
	// honors it once Running.
	stopPending bool

	isService bool
	isBundled bool
}

// New validates options and returns an Uninitialized controller.
func New(opts Options) (*Controller, error) {
	if opts.Facility == nil {
		return nil, fmt.Errorf("lifecycle: %w", herr.ErrFacilityRequired)
	}

	if opts.Registry == nil {
		return nil, fmt.Errorf("lifecycle: %w", herr.ErrRegistryRequired)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		state:    Uninitialized,
		fac:      opts.Facility,
		sessions: opts.Sessions,
		reg:      opts.Registry,
		logger:   logger,
	}, nil
}

// Start performs the Starting -> Running transition: compute identity
// flags, register the control-code allow-list with the OS facility, bind
// the control adapter ingress, subscribe the stop handler, emit "start",
// and synthesize a session-change notification when a user session is
// already active. A stop requested while still Starting is honored once
// Running; Start then returns the Stop result.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.state != Uninitialized {
		state := c.state
		c.mu.Unlock()

		return fmt.Errorf("lifecycle start from %s: %w", state, herr.ErrInvalidTransition)
	}

	c.state = Starting
	c.mu.Unlock()

	isService := !c.fac.Interactive()
	isBundled := bundled()

	mod, err := c.reg.GetOrCreate(cbus.ServiceModule, nil)
	if err != nil {
		c.rollback()

		return err
	}

	adapter := control.New(mod, c.logger)

	if err := c.fac.AcceptControl(adapter.Codes(), true); err != nil {
		c.rollback()

		return fmt.Errorf("lifecycle accept control: %w", errors.Join(herr.ErrControlRegistration, err))
	}

	// The stop handler is in place before the ingress is bound, so a stop
	// control arriving during start-up lands in stopPending instead of
	// being dropped.
	offStop := mod.On(cbus.ControlEvent(string(svc.Stop)), func(...any) {
		if err := c.Stop(); err != nil {
			c.logger.Warn("stop control ignored", "err", err)
		}
	})

	c.mu.Lock()
	c.mod = mod
	c.adapter = adapter
	c.offStop = offStop
	c.isService = isService
	c.isBundled = isBundled
	c.mu.Unlock()

	c.fac.Notify(adapter.Ingress)

	c.mu.Lock()
	c.state = Running
	c.mu.Unlock()

	mod.Emit(cbus.EventStart)
	c.logger.Info("service started",
		"service", isService,
		"bundled", isBundled,
		"facility_state", c.fac.State(),
	)

	// A session that predates service start never produces an OS
	// notification; synthesize one so session-dependent modules
	// initialize anyway.
	if c.sessions != nil && c.sessions.ActiveSession() {
		adapter.Ingress(svc.Notification{Code: svc.SessionChange, Detail: svc.SessionLogon})
	}

	c.mu.Lock()
	pending := c.stopPending
	c.stopPending = false
	c.mu.Unlock()

	if pending {
		return c.Stop()
	}

	return nil
}

func (c *Controller) rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Uninitialized
	c.stopPending = false
}

// Stop performs Running -> Stopping -> Stopped: emit "stop" first so
// modules clean up synchronously, then ask the OS facility to stop the
// service process. Calling Stop on a stopped controller is a no-op; calling
// it while still Starting defers the stop until Running.
func (c *Controller) Stop() error {
	c.mu.Lock()
	switch c.state {
	case Stopping, Stopped:
		c.mu.Unlock()

		return nil
	case Starting:
		c.stopPending = true
		c.mu.Unlock()

		return nil
	case Running:
		c.state = Stopping
	default:
		state := c.state
		c.mu.Unlock()

		return fmt.Errorf("lifecycle stop from %s: %w", state, herr.ErrInvalidTransition)
	}

	mod := c.mod
	offStop := c.offStop
	c.offStop = nil
	c.mu.Unlock()

	mod.Emit(cbus.EventStop)
	c.logger.Info("service stopping")

	err := c.fac.RequestStop()

	c.mu.Lock()
	c.state = Stopped
	c.mu.Unlock()

	if offStop != nil {
		offStop()
	}

	if err != nil {
		return fmt.Errorf("lifecycle request stop: %w", errors.Join(herr.ErrStopRequestFailed, err))
	}

	return nil
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Module returns the "service" module handle, nil before Start.
func (c *Controller) Module() *registry.Module {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mod
}

// IsService reports whether the process runs under OS service supervision.
// False before Start.
func (c *Controller) IsService() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.isService
}

// IsBundled reports whether the process runs from an installed executable
// rather than a scratch build. False before Start.
func (c *Controller) IsBundled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.isBundled
}
