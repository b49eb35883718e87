package catalog

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindNetwork Kind = iota
	KindNotFound
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server_error"
	default:
		return "network_error"
	}
}

var (
	ErrNotFound = &Error{Kind: KindNotFound}
	ErrServer   = &Error{Kind: KindServer}
	ErrNetwork  = &Error{Kind: KindNetwork}
)

type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("catalog ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, ErrNotFound) works for any status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf classifies any error; anything that is not a *Error is a network failure.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindNetwork
}

func statusError(status int, message string) *Error {
	kind := KindNetwork
	switch {
	case status == 404:
		kind = KindNotFound
	case status >= 500:
		kind = KindServer
	}
	return &Error{Kind: kind, Status: status, Message: message}
}
