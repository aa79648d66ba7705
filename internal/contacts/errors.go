package contacts

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeInitFailed indicates the backend or index could not be loaded.
	ErrCodeInitFailed ErrorCode = "INIT_FAILED"

	// ErrCodeNotFound indicates the uid or phone is not in the index.
	// No backend call is made before this is reported.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidRecord indicates a record missing the fields the index needs.
	ErrCodeInvalidRecord ErrorCode = "INVALID_RECORD"

	// ErrCodeStopped indicates the operation was submitted after Stop or
	// was still queued when Run returned.
	ErrCodeStopped ErrorCode = "STOPPED"
)

// Error is a failure raised by the store itself. Backend failures are never
// wrapped in an Error; they reach the caller unchanged.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// UID identifies the affected record, if any.
	UID string

	// Err is the underlying cause (for INIT_FAILED and INVALID_RECORD).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.UID != "" {
		msg = fmt.Sprintf("%s (uid=%s)", msg, e.UID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NOT_FOUND store error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsInitError reports whether err is an INIT_FAILED store error.
func IsInitError(err error) bool {
	return hasCode(err, ErrCodeInitFailed)
}

// IsStopped reports whether err is a STOPPED store error.
func IsStopped(err error) bool {
	return hasCode(err, ErrCodeStopped)
}

// IsInvalidRecord reports whether err is an INVALID_RECORD store error.
func IsInvalidRecord(err error) bool {
	return hasCode(err, ErrCodeInvalidRecord)
}

func newNotFoundError(uid, message string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: message, UID: uid}
}

func newInitError(cause error) *Error {
	return &Error{
		Code:    ErrCodeInitFailed,
		Message: "could not load contacts index",
		Err:     cause,
	}
}

func newStoppedError(op string) *Error {
	return &Error{
		Code:    ErrCodeStopped,
		Message: fmt.Sprintf("%s: store is not running", op),
	}
}

func newInvalidRecordError(uid string, cause error) *Error {
	return &Error{
		Code:    ErrCodeInvalidRecord,
		Message: "record cannot be indexed",
		UID:     uid,
		Err:     cause,
	}
}
