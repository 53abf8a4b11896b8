// Package signalsvc implements the service facility contract over process
// signals for interactive runs and platforms without a native service
// manager. Interrupt and termination signals are translated into stop
// control notifications.
package signalsvc

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/next-trace/scg-service-host/contract/svc"
)

// Facility delivers stop notifications on SIGINT/SIGTERM and blocks in Run
// until RequestStop is called or the context is canceled. On Windows the Go
// runtime maps CTRL_BREAK_EVENT and console-close events to os.Interrupt,
// so the same coverage holds there for interactive runs.
type Facility struct {
	mu       sync.Mutex
	ingress  svc.Ingress
	accepted map[svc.ControlCode]struct{}
	state    svc.State
	logger   *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ svc.Facility = (*Facility)(nil)

// New constructs a Facility. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Facility {
	if logger == nil {
		logger = slog.Default()
	}

	return &Facility{
		accepted: make(map[svc.ControlCode]struct{}),
		state:    svc.StateRunning,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (f *Facility) AcceptControl(codes []svc.ControlCode, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range codes {
		if enabled {
			f.accepted[c] = struct{}{}
		} else {
			delete(f.accepted, c)
		}
	}

	return nil
}

func (f *Facility) Notify(in svc.Ingress) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ingress = in
}

func (f *Facility) State() svc.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

// RequestStop unblocks Run. Safe to call more than once.
func (f *Facility) RequestStop() error {
	f.stopOnce.Do(func() { close(f.stopCh) })

	f.mu.Lock()
	f.state = svc.StateStopped
	f.mu.Unlock()

	return nil
}

// Interactive always reports true; this facility exists for runs outside
// service supervision.
func (f *Facility) Interactive() bool { return true }

// Run blocks until RequestStop is called or ctx is canceled. Each received
// signal is translated into a stop notification through the ingress; the
// actual shutdown is driven by whoever handles that notification.
func (f *Facility) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return f.RequestStop()
		case <-f.stopCh:
			return nil
		case sig := <-sigCh:
			f.logger.Debug("signal received", "signal", sig.String())
			f.deliver(svc.Stop, sig.String())
		}
	}
}

func (f *Facility) deliver(code svc.ControlCode, detail string) {
	f.mu.Lock()
	in := f.ingress
	_, ok := f.accepted[code]
	f.mu.Unlock()

	if in == nil || !ok {
		return
	}

	in(svc.Notification{Code: code, Detail: detail})
}
