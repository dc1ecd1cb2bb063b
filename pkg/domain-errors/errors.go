// Package domainerrors carries the error taxonomy shared by every auditor and
// service. Stores return sentinel errors (pkg/platform/sentinel); services and
// auditors translate them into coded domain errors so the transport layer can
// map codes to HTTP statuses in one place.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeRequiredMissing: a mandatory field was omitted.
	CodeRequiredMissing Code = "required_missing"
	// CodeFormatInvalid: a value is present but malformed or out of range.
	CodeFormatInvalid Code = "format_invalid"
	// CodeUniqueness: code/name/role/number collision.
	CodeUniqueness Code = "uniqueness_violation"
	// CodeStateConflict: operation not permitted in the current event or
	// consent state (registration disabled, boundaries frozen, ...).
	CodeStateConflict Code = "state_conflict"
	// CodeReferenceInvalid: country/location/role name not recognized.
	CodeReferenceInvalid Code = "reference_invalid"
	// CodePermissionDenied: actor lacks the capability for this mutation.
	CodePermissionDenied Code = "permission_denied"
	// CodeRaceCondition: bulk-import commit-time conflict; aborts only the
	// remaining rows of a batch.
	CodeRaceCondition Code = "race_condition"
	// CodeNotFound: the record does not exist.
	CodeNotFound Code = "not_found"
)

// DomainError is a coded, human-readable error. The message is surfaced to the
// caller verbatim.
type DomainError struct {
	Code    Code
	Message string
	wrapped error
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.wrapped }

// New builds a domain error with the given code and message.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, message string, err error) error {
	return &DomainError{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether err is (or wraps) a domain error with the code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of err, or the empty code for non-domain errors.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
