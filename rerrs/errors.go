// Package rerrs is the error taxonomy of spec §4.H: the closed set of kinds
// a caller of this library can switch on, plus a small multi-error
// collector (Errs) used when draining a queue produces more than one
// failure at once.
package rerrs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the closed set of error kinds spec §4.H names.
type Kind int

const (
	ProtocolError Kind = iota
	UnexpectedType
	NestedUnsupported
	EmptyRange
	TransportLost
	OperationCancelled
	ServerError
	HandshakeFailed
	HealthTimeout
)

func (k Kind) String() string {
	switch k {
	case ProtocolError:
		return "protocol_error"
	case UnexpectedType:
		return "unexpected_type"
	case NestedUnsupported:
		return "nested_unsupported"
	case EmptyRange:
		return "empty_range"
	case TransportLost:
		return "transport_lost"
	case OperationCancelled:
		return "operation_cancelled"
	case ServerError:
		return "server_error"
	case HandshakeFailed:
		return "handshake_failed"
	case HealthTimeout:
		return "health_timeout"
	default:
		return "unknown_error"
	}
}

// Error is the concrete error type carried across the library's API
// surface. Offset is meaningful only for ProtocolError; Payload is
// meaningful only for ServerError (the server's verbatim error reply).
type Error struct {
	Kind    Kind
	Msg     string
	Offset  int64
	Payload []byte
	cause   error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, &rerrs.Error{Kind: rerrs.ProtocolError}) work by
// matching on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

func AtOffset(kind Kind, offset int64, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Offset: offset}
}

func ServerReply(payload []byte) *Error {
	return &Error{Kind: ServerError, Msg: string(payload), Payload: payload}
}

// KindOf reports the Kind of err if it (or something it wraps) is an *Error,
// and false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Errs collects up to maxErrs distinct errors, the same shape as the
// teacher's cmn/cos.Errs: used by queue.DrainOnDisconnect to report every
// cancellation reason produced while tearing down a connection, without
// unbounded growth under a pathological backlog.
type Errs struct {
	errs []error
}

const maxErrs = 8

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Empty() bool { return len(e.errs) == 0 }

func (e *Errs) Error() string {
	if len(e.errs) == 0 {
		return ""
	}
	if len(e.errs) == 1 {
		return e.errs[0].Error()
	}
	s := fmt.Sprintf("%d errors: %s", len(e.errs), e.errs[0].Error())
	for _, err := range e.errs[1:] {
		s += "; " + err.Error()
	}
	return s
}

func (e *Errs) AsError() error {
	if e.Empty() {
		return nil
	}
	return e
}
