// Package errs provides the unified error type used across pgmeta.
//
// The postgres driver wraps every native pgx/pgconn error into *errs.Error
// before it leaves the data-access layer. Callers (service, HTTP transport,
// CLI) use the Is* predicates and never import driver packages to decide how
// to react.
//
// Usage:
//
//	// In the driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindQuery, "query failed: "+pgErr.Message, pgErr)
//
//	// In a handler, check the error kind:
//	if errs.IsConnection(err) {
//	    http.Error(w, err.Error(), http.StatusServiceUnavailable)
//	}
//
// An absent schema or table is never an error: introspection returns an
// empty result and callers inspect its length. ErrKindNotFound is reserved
// for the snapshot archive.
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing driver-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindConnection               // cannot establish, or has lost, a database session
	ErrKindQuery                    // a submitted statement failed server-side
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindInvalidInput             // bad arguments or configuration from the caller
	ErrKindNotFound                 // archived object or bucket does not exist
	ErrKindPermissionDenied         // object storage rejected the credentials
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConnection:
		return "connection"
	case ErrKindQuery:
		return "query"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by pgmeta's data-access layer.
type Error struct {
	Kind    ErrKind
	Message string
	Code    string // SQLSTATE, when the server reported one
	Cause   error  // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// WithCode returns a copy of e carrying the given SQLSTATE.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// --- Predicates ---

// IsConnection reports whether err means no usable database session exists
// (unreachable host, rejected credentials, missing database, dropped link).
func IsConnection(err error) bool {
	return kindOf(err) == ErrKindConnection
}

// IsQuery reports whether err is a server-side statement failure.
func IsQuery(err error) bool {
	return kindOf(err) == ErrKindQuery
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsNotFound reports whether err means a stored object does not exist.
// Catalog lookups never produce it: an absent schema or table is an empty
// result.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsPermissionDenied reports whether err was an authorization failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	return kindOf(err)
}

// CodeOf returns the SQLSTATE attached to err, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
