//go:build windows

// Package winsvc implements the service facility contract over the Windows
// service control manager.
package winsvc

import (
	"log/slog"
	"sync"

	"golang.org/x/sys/windows"
	wsvc "golang.org/x/sys/windows/svc"

	"github.com/next-trace/scg-service-host/contract/svc"
)

// Facility adapts the Windows SCM handler loop to svc.Facility. Run blocks
// inside wsvc.Run for the life of the service; control requests are pushed
// through the registered ingress.
type Facility struct {
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	ingress  svc.Ingress
	accepted map[svc.ControlCode]struct{}
	state    svc.State

	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ svc.Facility = (*Facility)(nil)

// New constructs a Facility for the named Windows service. A nil logger
// falls back to slog.Default().
func New(name string, logger *slog.Logger) *Facility {
	if logger == nil {
		logger = slog.Default()
	}

	return &Facility{
		name:     name,
		logger:   logger,
		accepted: make(map[svc.ControlCode]struct{}),
		state:    svc.StateStopped,
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

// RequestStop unblocks the handler loop, which reports StopPending to the
// SCM and returns. Safe to call more than once.
func (f *Facility) RequestStop() error {
	f.stopOnce.Do(func() { close(f.stopCh) })

	return nil
}

func (f *Facility) Interactive() bool {
	isService, err := wsvc.IsWindowsService()
	if err != nil {
		f.logger.Warn("winsvc: service detection failed, assuming interactive", "err", err)

		return true
	}

	return !isService
}

// Run enters the SCM handler loop and blocks until the service stops.
func (f *Facility) Run() error {
	return wsvc.Run(f.name, handler{f: f})
}

func (f *Facility) setState(s svc.State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = s
}

func (f *Facility) deliver(code svc.ControlCode, detail string) {
	f.mu.Lock()
	in := f.ingress
	_, ok := f.accepted[code]
	f.mu.Unlock()

	if in == nil {
		return
	}

	if !ok {
		f.logger.Debug("winsvc: control not accepted, dropped", "code", code)

		return
	}

	in(svc.Notification{Code: code, Detail: detail})
}

func (f *Facility) acceptMask() wsvc.Accepted {
	f.mu.Lock()
	defer f.mu.Unlock()

	var mask wsvc.Accepted

	if _, ok := f.accepted[svc.Stop]; ok {
		mask |= wsvc.AcceptStop
	}

	if _, ok := f.accepted[svc.Shutdown]; ok {
		mask |= wsvc.AcceptShutdown
	}

	if _, ok := f.accepted[svc.SessionChange]; ok {
		mask |= wsvc.AcceptSessionChange
	}

	_, pause := f.accepted[svc.Pause]
	_, cont := f.accepted[svc.Continue]

	if pause || cont {
		mask |= wsvc.AcceptPauseAndContinue
	}

	return mask
}

type handler struct {
	f *Facility
}

func (h handler) Execute(_ []string, r <-chan wsvc.ChangeRequest, changes chan<- wsvc.Status) (bool, uint32) {
	f := h.f

	changes <- wsvc.Status{State: wsvc.StartPending}

	accepts := f.acceptMask()
	changes <- wsvc.Status{State: wsvc.Running, Accepts: accepts}
	f.setState(svc.StateRunning)

loop:
	for {
		select {
		case <-f.stopCh:
			break loop
		case cr := <-r:
			switch cr.Cmd {
			case wsvc.Interrogate:
				changes <- cr.CurrentStatus
			case wsvc.Stop:
				f.deliver(svc.Stop, "")
			case wsvc.Shutdown:
				f.deliver(svc.Shutdown, "")
				f.deliver(svc.Stop, "")
			case wsvc.Pause:
				f.deliver(svc.Pause, "")
				changes <- wsvc.Status{State: wsvc.Paused, Accepts: accepts}
				f.setState(svc.StatePaused)
			case wsvc.Continue:
				f.deliver(svc.Continue, "")
				changes <- wsvc.Status{State: wsvc.Running, Accepts: accepts}
				f.setState(svc.StateRunning)
			case wsvc.SessionChange:
				f.deliver(svc.SessionChange, sessionReason(cr.EventType))
			default:
				f.logger.Warn("winsvc: unexpected control request dropped", "cmd", uint32(cr.Cmd))
			}
		}
	}

	changes <- wsvc.Status{State: wsvc.StopPending}
	f.setState(svc.StateStopped)

	return false, 0
}

func sessionReason(eventType uint32) string {
	switch eventType {
	case windows.WTS_SESSION_LOGON:
		return svc.SessionLogon
	case windows.WTS_SESSION_LOGOFF:
		return svc.SessionLogoff
	case windows.WTS_SESSION_LOCK:
		return svc.SessionLock
	case windows.WTS_SESSION_UNLOCK:
		return svc.SessionUnlock
	default:
		return ""
	}
}

// ConsoleSessions reports an active session when a user is logged on to
// the physical console.
type ConsoleSessions struct{}

var _ svc.SessionDetector = (*ConsoleSessions)(nil)

func (ConsoleSessions) ActiveSession() bool {
	const noSession = 0xFFFFFFFF

	return windows.WTSGetActiveConsoleSessionId() != noSession
}
