package rproc

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrorCode is the closed set of error kinds the framework surfaces.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "not found"
	ErrCodeExists            ErrorCode = "exists"
	ErrCodeBusy              ErrorCode = "busy"
	ErrCodeMissingFirmware   ErrorCode = "missing firmware"
	ErrCodeTooSmall          ErrorCode = "too small"
	ErrCodeBadMagic          ErrorCode = "bad magic"
	ErrCodeTruncated         ErrorCode = "truncated"
	ErrCodeInvalidAddress    ErrorCode = "invalid address"
	ErrCodeMappingFailed     ErrorCode = "mapping failed"
	ErrCodeTooMany           ErrorCode = "too many"
	ErrCodeBackendError      ErrorCode = "backend error"
	ErrCodeAsymmetricRelease ErrorCode = "asymmetric release"
	ErrCodeInterrupted       ErrorCode = "interrupted"
)

// Error is a structured error carrying the failing operation, the processor
// name it concerns (if any), a closed error code, and an optional wrapped
// cause.
type Error struct {
	Op    string
	Name  string
	Code  ErrorCode
	Errno syscall.Errno
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Name != "" {
		parts = append(parts, fmt.Sprintf("name=%s", e.Name))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("rproc: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("rproc: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// NewError creates a structured error not tied to any specific processor.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewProcessorError creates a structured error for a named processor.
func NewProcessorError(op, name string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Name: name, Code: code, Msg: msg}
}

// WrapError wraps an existing error with rproc context. An *Error keeps its
// code, a raw syscall.Errno is classified by mapErrnoToCode, and any other
// error becomes BackendError.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if re, ok := inner.(*Error); ok {
		return &Error{Op: op, Name: re.Name, Code: re.Code, Errno: re.Errno, Msg: re.Msg, Inner: re.Inner}
	}

	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}

	return &Error{Op: op, Code: ErrCodeBackendError, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.ENOENT:
		return ErrCodeNotFound
	case syscall.EBUSY:
		return ErrCodeBusy
	case syscall.EINVAL, syscall.ERANGE:
		return ErrCodeInvalidAddress
	case syscall.ENOMEM, syscall.ENOSPC:
		return ErrCodeMappingFailed
	case syscall.EINTR:
		return ErrCodeInterrupted
	default:
		return ErrCodeBackendError
	}
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
