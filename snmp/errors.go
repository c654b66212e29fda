package snmp

import (
	"github.com/pkg/errors"
)

// ErrorKind is a machine-readable error tag from the taxonomy in §7.
// Errors raised by this package carry one; OS-level socket errors and
// context cancellation errors are returned as they are, and Kind reports
// "" for them.
type ErrorKind string

const (
	// Transport
	ErrInvalidPort              ErrorKind = "invalid_port"
	ErrInvalidAddressFormat     ErrorKind = "invalid_address_format"
	ErrHostnameResolutionFailed ErrorKind = "hostname_resolution_failed"
	ErrInvalidData              ErrorKind = "invalid_data"
	ErrSocketOpenFailed         ErrorKind = "socket_open_failed"

	// Protocol
	ErrDecodeFailed         ErrorKind = "decode_failed"
	ErrTypeInformationLost  ErrorKind = "type_information_lost"
	ErrNoSuchName           ErrorKind = "no_such_name"
	ErrBadValue             ErrorKind = "bad_value"
	ErrReadOnly             ErrorKind = "read_only"
	ErrGenErr               ErrorKind = "gen_err"
	ErrAuthorizationError   ErrorKind = "authorization_error"

	// Timing
	ErrTimeout    ErrorKind = "timeout"
	ErrTaskFailed ErrorKind = "task_failed"

	// Semantic
	ErrGetBulkRequiresV2c  ErrorKind = "get_bulk_requires_v2c"
	ErrInvalidOID          ErrorKind = "invalid_oid"
	ErrInvalidInstance     ErrorKind = "invalid_instance"
	ErrDuplicateRequestID  ErrorKind = "duplicate_request_id"
	ErrEndOfMibView        ErrorKind = "end_of_mib_view"
	ErrNoSuchObject        ErrorKind = "no_such_object"
	ErrNoSuchInstance      ErrorKind = "no_such_instance"

	// Operational
	ErrCircuitBreakerOpen    ErrorKind = "circuit_breaker_open"
	ErrNoAvailableConns      ErrorKind = "no_available_connections"
	ErrNoSuccessfulBenchmark ErrorKind = "no_successful_benchmarks"
)

// kindError attaches an ErrorKind to a wrapped cause so callers can switch
// on Kind(err) without losing the original error via errors.Cause.
type kindError struct {
	kind  ErrorKind
	cause error
}

func (e *kindError) Error() string {
	if e.cause == nil {
		return string(e.kind)
	}
	return string(e.kind) + ": " + e.cause.Error()
}

func (e *kindError) Cause() error { return e.cause }
func (e *kindError) Unwrap() error { return e.cause }

// newKind builds a tagged error whose cause is the formatted message,
// created with github.com/pkg/errors so it carries a stack trace.
func newKind(kind ErrorKind, format string, args ...interface{}) error {
	return &kindError{kind: kind, cause: errors.Errorf(format, args...)}
}

// wrapKind is the same as newKind: it tags a formatted message with kind.
func wrapKind(kind ErrorKind, format string, args ...interface{}) error {
	return newKind(kind, format, args...)
}

// wrapErr tags an existing error with kind without losing it.
func wrapErr(kind ErrorKind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, cause: errors.Wrap(err, msg)}
}

// Kind extracts the ErrorKind tagged onto err, walking wrapped causes. It
// returns "" if err was never tagged by this package.
func Kind(err error) ErrorKind {
	for err != nil {
		if ke, ok := err.(*kindError); ok {
			return ke.kind
		}
		cause := errors.Unwrap(err)
		if cause == nil {
			type causer interface{ Cause() error }
			if c, ok := err.(causer); ok {
				cause = c.Cause()
			}
		}
		if cause == err || cause == nil {
			break
		}
		err = cause
	}
	return ""
}

// Is reports whether err is tagged with kind.
func Is(err error, kind ErrorKind) bool {
	return Kind(err) == kind
}
