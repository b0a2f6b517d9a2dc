// Package model holds the core types shared across QuicPulse's request,
// auth, grpc, script, and workflow packages.
package model

import (
	"errors"
	"fmt"
)

// Kind tags a QuicPulse error with the category named in the error-handling
// design: user input and format errors fail fast at parse time, transport
// errors distinguish timeout from connection failure, and auth errors
// always carry a remediation hint.
type Kind string

const (
	KindArgument         Kind = "Argument"
	KindParse            Kind = "Parse"
	KindIO               Kind = "Io"
	KindJSON             Kind = "Json"
	KindURL              Kind = "Url"
	KindRequest          Kind = "Request"
	KindConnection       Kind = "Connection"
	KindSSL              Kind = "Ssl"
	KindAuth             Kind = "Auth"
	KindTimeout          Kind = "Timeout"
	KindTooManyRedirects Kind = "TooManyRedirects"
	KindDownload         Kind = "Download"
	KindContentRange     Kind = "ContentRange"
	KindSession          Kind = "Session"
	KindConfig           Kind = "Config"
	KindScript           Kind = "Script"
	KindGrpc             Kind = "Grpc"
	KindPipeline         Kind = "Pipeline"
	KindWebSocket        Kind = "WebSocket"
)

// Error is the single tagged error type that bubbles up through every
// QuicPulse subsystem.
type Error struct {
	Kind  Kind
	Msg   string
	Hint  string
	Cause error

	// RedirectCount carries the attempted redirect count for
	// KindTooManyRedirects, distinguishing it from a plain transport error.
	RedirectCount int
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	if e.Hint != "" {
		s += " (hint: " + e.Hint + ")"
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// Errorf builds a tagged Error, wrapping cause with fmt-style formatting.
func Errorf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// WithHint attaches a remediation hint, required for every auth provider error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// Is lets errors.Is match on Kind alone, so callers can write
// errors.Is(err, &model.Error{Kind: model.KindTimeout}).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}
