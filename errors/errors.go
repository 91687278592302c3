// Package errors classifies the failures the data layer can surface.
//
// Callers branch on the Kind, never on message text:
//
//	if apperrors.IsNotFound(err) {
//	    // the identifier is stale, refresh the list
//	}
package errors

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind string

const (
	// KindTransport covers network failures and an open circuit breaker.
	KindTransport Kind = "transport"

	// KindStatus is a non-2xx answer other than 404.
	KindStatus Kind = "status"

	// KindNotFound is a 404, usually a stale identifier.
	KindNotFound Kind = "not_found"

	// KindValidation is a payload rejected before any I/O.
	KindValidation Kind = "validation"

	// KindUnsupported is an entity kind that has no endpoint for the operation.
	KindUnsupported Kind = "unsupported"
)

// Error is the error type returned across package boundaries.
type Error struct {
	Kind Kind

	// Op names the failing operation, e.g. "remote.DeleteEvent".
	Op string

	// Status is the HTTP status code for KindStatus and KindNotFound.
	Status int

	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport wraps a network-level failure.
func Transport(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Message: "request failed", Err: err}
}

// Status builds the error for a non-2xx answer. 404 becomes KindNotFound.
func Status(op string, status int, body string) error {
	kind := KindStatus
	msg := "unexpected status"
	if status == 404 {
		kind = KindNotFound
		msg = "not found"
	}
	if body != "" {
		msg = msg + ": " + body
	}
	return &Error{Kind: kind, Op: op, Status: status, Message: msg}
}

// Validation reports a payload rejected before it reached the network.
func Validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Message: "invalid payload", Err: err}
}

// Unsupported reports an operation the entity kind has no endpoint for.
func Unsupported(op string, what string) error {
	return &Error{Kind: KindUnsupported, Op: op, Message: what}
}

// KindOf returns the Kind of the first *Error in the chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

func IsTransport(err error) bool   { return KindOf(err) == KindTransport }
func IsStatus(err error) bool      { return KindOf(err) == KindStatus }
func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsUnsupported(err error) bool { return KindOf(err) == KindUnsupported }
