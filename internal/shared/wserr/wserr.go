// Package wserr carries the error taxonomy shared by the dispatcher and the
// per-action handlers. Every handler failure is one of these kinds; the
// dispatcher turns whatever it catches into a single error-status envelope.
package wserr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	// KindValidation is a malformed or missing payload field, rejected
	// before any state mutation.
	KindValidation
	// KindDecode is an unparseable envelope or payload body.
	KindDecode
	// KindState is an operation inconsistent with the current
	// connection/game/party state.
	KindState
	// KindSize is a party or team size constraint violation.
	KindSize
	// KindNotFound is a referenced party/player/connection being absent.
	KindNotFound
	// KindStore is a failed persistence call.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDecode:
		return "decode"
	case KindState:
		return "state"
	case KindSize:
		return "size"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store"
	default:
		return "internal"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Decode(msg string, err error) *Error {
	return &Error{Kind: KindDecode, Msg: msg, Err: err}
}

func State(msg string) *Error {
	return &Error{Kind: KindState, Msg: msg}
}

func Size(msg string) *Error {
	return &Error{Kind: KindSize, Msg: msg}
}

func Sizef(format string, args ...any) *Error {
	return &Error{Kind: KindSize, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Store(msg string, err error) *Error {
	return &Error{Kind: KindStore, Msg: msg, Err: err}
}

// KindOf classifies an arbitrary error, defaulting to KindInternal for
// anything that did not originate from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
