// Package inmemory provides a recording fake of the OS service facility
// for tests and examples.
package inmemory

import (
	"sync"

	"github.com/next-trace/scg-service-host/contract/svc"
)

// Facility is a thread-safe in-memory implementation of svc.Facility.
// It records the call order and accepted codes, and lets tests push
// notifications through the registered ingress with Deliver.
type Facility struct {
	mu       sync.Mutex
	ingress  svc.Ingress
	accepted []svc.ControlCode
	enabled  bool
	state    svc.State
	calls    []string

	// InteractiveMode is reported by Interactive. Zero value means the
	// process pretends to run under service supervision.
	InteractiveMode bool

	// AcceptErr and StopErr, when set, are returned by AcceptControl and
	// RequestStop respectively.
	AcceptErr error
	StopErr   error
}

var _ svc.Facility = (*Facility)(nil)

// New creates a facility that reports the given initial state.
func New(state svc.State) *Facility {
	return &Facility{state: state}
}

func (f *Facility) AcceptControl(codes []svc.ControlCode, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "accept")

	if f.AcceptErr != nil {
		return f.AcceptErr
	}

	f.accepted = append([]svc.ControlCode(nil), codes...)
	f.enabled = enabled

	return nil
}

func (f *Facility) Notify(in svc.Ingress) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "notify")
	f.ingress = in
}

func (f *Facility) State() svc.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

func (f *Facility) RequestStop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "stop")

	if f.StopErr != nil {
		return f.StopErr
	}

	f.state = svc.StateStopped

	return nil
}

func (f *Facility) Interactive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.InteractiveMode
}

// Deliver pushes a notification through the registered ingress, as the OS
// would. It is a no-op before Notify has been called.
func (f *Facility) Deliver(code svc.ControlCode, detail string) {
	f.mu.Lock()
	in := f.ingress
	f.mu.Unlock()

	if in != nil {
		in(svc.Notification{Code: code, Detail: detail})
	}
}

// Accepted returns the codes registered by the last AcceptControl call.
func (f *Facility) Accepted() []svc.ControlCode {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]svc.ControlCode(nil), f.accepted...)
}

// Calls returns the ordered facility call log ("accept", "notify", "stop").
func (f *Facility) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// Record appends a marker to the facility call log. Tests use it to verify
// ordering between bus dispatch and facility calls.
func (f *Facility) Record(marker string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, marker)
}

// Sessions is a fixed-answer svc.SessionDetector.
type Sessions struct {
	Active bool
}

var _ svc.SessionDetector = (*Sessions)(nil)

func (s *Sessions) ActiveSession() bool { return s.Active }
