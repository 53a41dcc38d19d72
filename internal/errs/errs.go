// Package errs implements the error taxonomy used across the runtime.
//
// Every component-facing error carries a Kind so that callers can decide
// policy (retry, drop, fatal) without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the runtime policy it implies.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindConnection
	KindDisconnection
	KindRead
	KindProcess
	KindTimeout
	KindEOF
	KindIO
	KindSerialization
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindConnection:
		return "connection"
	case KindDisconnection:
		return "disconnection"
	case KindRead:
		return "read"
	case KindProcess:
		return "process"
	case KindTimeout:
		return "timeout"
	case KindEOF:
		return "eof"
	case KindIO:
		return "io"
	case KindSerialization:
		return "serialization"
	default:
		return "unknown"
	}
}

// Typed is an error annotated with a Kind.
type Typed struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Typed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Typed) Unwrap() error { return e.Err }

func new(kind Kind, msg string, err error) *Typed {
	return &Typed{Kind: kind, Msg: msg, Err: err}
}

// Config reports a misconfiguration. Fatal at startup, terminates ingest
// if raised at runtime.
func Config(msg string, args ...any) error {
	return new(KindConfig, fmt.Sprintf(msg, args...), nil)
}

// Connection reports a failed or lost external link. Fatal at connect(),
// logged-and-not-acked at write().
func Connection(err error, msg string, args ...any) error {
	return new(KindConnection, fmt.Sprintf(msg, args...), err)
}

// Disconnection reports a transient link loss. Inputs reconnect, outputs
// retry internally.
func Disconnection(err error) error {
	return new(KindDisconnection, "connection lost", err)
}

// Read reports malformed data on read. The caller logs and retries the
// read loop.
func Read(err error, msg string, args ...any) error {
	return new(KindRead, fmt.Sprintf(msg, args...), err)
}

// Process reports a processor failure. The caller drops the batch,
// unacked.
func Process(err error, msg string, args ...any) error {
	return new(KindProcess, fmt.Sprintf(msg, args...), err)
}

// Timeout reports a deadline exceeded. Treated as Disconnection if
// raised from I/O, else as Process.
func Timeout(err error) error {
	return new(KindTimeout, "operation timed out", err)
}

// EOF is the clean-shutdown sentinel returned once a source is
// exhausted.
var EOF = new(KindEOF, "source exhausted", nil)

// IO reports an uncategorised I/O failure.
func IO(err error, msg string, args ...any) error {
	return new(KindIO, fmt.Sprintf(msg, args...), err)
}

// Serialization reports a marshal/unmarshal failure.
func Serialization(err error, msg string, args ...any) error {
	return new(KindSerialization, fmt.Sprintf(msg, args...), err)
}

// Unknown wraps an error of unrecognised kind.
func Unknown(err error) error {
	return new(KindUnknown, "unknown error", err)
}

// KindOf extracts the Kind of err, defaulting to KindUnknown for plain
// errors so callers always get a dispatchable value.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var t *Typed
	if errors.As(err, &t) {
		return t.Kind
	}
	return KindUnknown
}

// IsEOF reports whether err is (or wraps) the EOF sentinel.
func IsEOF(err error) bool { return KindOf(err) == KindEOF }

// IsDisconnection reports whether err is (or wraps) a Disconnection.
func IsDisconnection(err error) bool { return KindOf(err) == KindDisconnection }

// IsConfig reports whether err is (or wraps) a Config error.
func IsConfig(err error) bool { return KindOf(err) == KindConfig }
