// Package svc defines the contract the host core expects from an operating
// system's service-management facility. The core depends only on this shape,
// never on a particular OS's native API; concrete facilities live under
// adapters/.
package svc

// ControlCode identifies an OS-delivered lifecycle notification.
type ControlCode string

// Control codes the host understands. The allow-list registered at start-up
// is a subset of what an OS might someday send; anything outside it is
// logged and dropped rather than failed on.
const (
	Start         ControlCode = "start"
	Stop          ControlCode = "stop"
	Shutdown      ControlCode = "shutdown"
	SessionChange ControlCode = "sessionchange"
	Pause         ControlCode = "pause"
	Continue      ControlCode = "continue"
)

// State is the facility-reported run state of the service process.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StatePaused  State = "paused"
)

// Session-change reasons carried as the detail of a sessionchange
// notification. SessionLogon is also synthesized by the lifecycle
// controller when a user session predates service start.
const (
	SessionLogon  = "session-logon"
	SessionLogoff = "session-logoff"
	SessionLock   = "session-lock"
	SessionUnlock = "session-unlock"
)

// Notification is one raw control delivery from the OS facility.
// Detail is optional, e.g. the session-change reason.
type Notification struct {
	Code   ControlCode
	Detail string
}

// Ingress is the single push entry point a facility delivers notifications
// through. Facilities call it from their own callback goroutine; the
// receiver serializes onto the bus dispatch path.
type Ingress func(n Notification)

// Facility is the OS service-management surface the host core requires.
type Facility interface {
	// AcceptControl subscribes (or unsubscribes) the process to the given
	// control codes. Called once at start-up; failure is fatal to the host.
	AcceptControl(codes []ControlCode, enabled bool) error

	// Notify registers the ingress invoked for every accepted control code.
	Notify(in Ingress)

	// State reports the facility's view of the service process.
	State() State

	// RequestStop asks the OS facility to stop the service process.
	RequestStop() error

	// Interactive reports whether the process runs attached to a user
	// session rather than under service supervision.
	Interactive() bool
}

// SessionDetector reports whether an OS user session is already active.
// Checked once at start-up so session-dependent modules initialize even
// when the service launched after the user logged on.
type SessionDetector interface {
	ActiveSession() bool
}
