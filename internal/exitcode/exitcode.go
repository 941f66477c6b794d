// Package exitcode defines the stable numeric exit-code taxonomy shared by
// every adapter and handler in CLEO.
package exitcode

// Code is a stable numeric exit/response code. Once assigned a value is
// never reused for a different meaning.
type Code int

const (
	Success              Code = 0
	GeneralError         Code = 1
	InvalidInput         Code = 2
	FileError            Code = 3
	NotFound             Code = 4
	DependencyError      Code = 5
	ValidationError      Code = 6

	ProtocolResearch       Code = 60
	ProtocolImplementation Code = 61
	ProtocolTesting        Code = 62
	ProtocolValidation     Code = 63

	IdempotentBase Code = 100
)

// ErrorKind is the closed set of error kinds a handler or the pipeline may
// report, independent of the numeric code assigned to each occurrence.
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation"
	KindNotFound               ErrorKind = "not-found"
	KindInvalidDomain          ErrorKind = "invalid-domain"
	KindInvalidOperation       ErrorKind = "invalid-operation"
	KindDependency             ErrorKind = "dependency"
	KindFileError              ErrorKind = "file-error"
	KindLockTimeout            ErrorKind = "lock-timeout"
	KindChecksumMismatch       ErrorKind = "checksum-mismatch"
	KindConcurrentModification ErrorKind = "concurrent-modification"
	KindIDCollision            ErrorKind = "id-collision"
	KindProtocolViolation      ErrorKind = "protocol-violation"
	KindLifecycleGateFailed    ErrorKind = "lifecycle-gate-failed"
	KindLifecycleTransition    ErrorKind = "lifecycle-transition-invalid"
	KindProvenanceRequired     ErrorKind = "provenance-required"
	KindVerificationLocked     ErrorKind = "verification-locked"
	KindCascadeFailed          ErrorKind = "cascade-failed"
	KindCircularReference      ErrorKind = "circular-reference"
	KindTimeout                ErrorKind = "timeout"
	KindContextWarning         ErrorKind = "context-warning"
	KindContextCritical        ErrorKind = "context-critical"
	KindInternal               ErrorKind = "internal"
)

// ForKind returns the exit code conventionally associated with a kind.
// Several kinds share a code on purpose (spec.md assigns a code range per
// category, not one code per kind); handlers that need a distinct code for
// a specific case set it explicitly instead of relying on this mapping.
func ForKind(k ErrorKind) Code {
	switch k {
	case KindValidation, KindCircularReference:
		return ValidationError
	case KindNotFound:
		return NotFound
	case KindInvalidDomain, KindInvalidOperation:
		return InvalidInput
	case KindDependency:
		return DependencyError
	case KindFileError:
		return FileError
	case KindLockTimeout, KindChecksumMismatch, KindConcurrentModification, KindIDCollision:
		return GeneralError
	case KindProtocolViolation:
		return ProtocolImplementation
	case KindLifecycleGateFailed, KindLifecycleTransition, KindProvenanceRequired,
		KindVerificationLocked, KindCascadeFailed:
		return GeneralError
	case KindTimeout:
		return GeneralError
	case KindContextWarning, KindContextCritical:
		return GeneralError
	default:
		return GeneralError
	}
}

// RetryableKinds is the closed set of kinds the client-side retry helper
// will retry.
var RetryableKinds = map[ErrorKind]bool{
	KindLockTimeout:            true,
	KindChecksumMismatch:       true,
	KindConcurrentModification: true,
	KindIDCollision:            true,
	KindProtocolViolation:      true,
}

// NeverRetryKinds documents the kinds that must never be retried even if a
// caller's own policy would otherwise allow it.
var NeverRetryKinds = map[ErrorKind]bool{
	KindLifecycleGateFailed:   true,
	KindLifecycleTransition:   true,
	KindProvenanceRequired:    true,
	KindVerificationLocked:    true,
	KindCascadeFailed:         true,
	KindCircularReference:     true,
	KindFileError:             true,
	KindContextWarning:        true,
	KindContextCritical:       true,
}

// Idempotent reports whether code marks an "already in desired state"
// outcome rather than a fresh change (spec.md: idempotent success >= 100).
func Idempotent(c Code) bool {
	return c >= IdempotentBase
}
