package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so the API layer can choose a response status.
type Kind string

const (
	KindValidation             Kind = "validation_error"
	KindNotFound               Kind = "not_found"
	KindForbidden              Kind = "forbidden"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindInsufficientBalance    Kind = "insufficient_balance"
	KindOrderMismatch          Kind = "order_mismatch"
	KindInvalidSignature       Kind = "invalid_signature"
	KindInvalidAmount          Kind = "invalid_amount"
	KindConfiguration          Kind = "configuration_error"
	KindInternal               Kind = "internal_error"
)

// Error is the structured error returned by the wallet and subscription core.
type Error struct {
	Kind    Kind
	Message string
	// Current and Requested are set for state transition failures.
	Current   string
	Requested string
}

func (e *Error) Error() string {
	if e.Current != "" || e.Requested != "" {
		return fmt.Sprintf("%s: %s (current=%s requested=%s)", e.Kind, e.Message, e.Current, e.Requested)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation             = &Error{Kind: KindValidation}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrForbidden              = &Error{Kind: KindForbidden}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrInsufficientBalance    = &Error{Kind: KindInsufficientBalance}
	ErrOrderMismatch          = &Error{Kind: KindOrderMismatch}
	ErrInvalidSignature       = &Error{Kind: KindInvalidSignature}
	ErrInvalidAmount          = &Error{Kind: KindInvalidAmount}
	ErrConfiguration          = &Error{Kind: KindConfiguration}
)

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func InvalidStateTransition(current, requested, message string) error {
	return &Error{Kind: KindInvalidStateTransition, Message: message, Current: current, Requested: requested}
}

func InsufficientBalance(message string) error {
	return &Error{Kind: KindInsufficientBalance, Message: message}
}

func OrderMismatch(message string) error {
	return &Error{Kind: KindOrderMismatch, Message: message}
}

func InvalidSignature(message string) error {
	return &Error{Kind: KindInvalidSignature, Message: message}
}

func InvalidAmount(message string) error {
	return &Error{Kind: KindInvalidAmount, Message: message}
}

func Configuration(message string) error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// KindOf returns the kind of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
