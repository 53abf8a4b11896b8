package errors

// Error codes for the host contracts. Keep stable; used across packages.
const (
	ErrCodeConfigInvalid       = "servicehost.config_invalid"
	ErrCodeFacilityRequired    = "servicehost.facility_required"
	ErrCodeRegistryRequired    = "servicehost.registry_required"
	ErrCodeControlRegistration = "servicehost.control_registration_failed"
	ErrCodeInvalidTransition   = "servicehost.invalid_transition"
	ErrCodeModuleNameRequired  = "servicehost.module_name_required"
	ErrCodeStopRequestFailed   = "servicehost.stop_request_failed"
	ErrCodeForwardFailed       = "servicehost.forward_failed"
	ErrCodeSerializationFailed = "servicehost.serialization_failed"
	ErrCodeBridgeNotConfigured = "servicehost.bridge_not_configured"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrConfigInvalid       = Code(ErrCodeConfigInvalid)
	ErrFacilityRequired    = Code(ErrCodeFacilityRequired)
	ErrRegistryRequired    = Code(ErrCodeRegistryRequired)
	ErrControlRegistration = Code(ErrCodeControlRegistration)
	ErrInvalidTransition   = Code(ErrCodeInvalidTransition)
	ErrModuleNameRequired  = Code(ErrCodeModuleNameRequired)
	ErrStopRequestFailed   = Code(ErrCodeStopRequestFailed)
	ErrForwardFailed       = Code(ErrCodeForwardFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
	ErrBridgeNotConfigured = Code(ErrCodeBridgeNotConfigured)
)
