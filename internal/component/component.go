// Package component defines the four fixed contracts of the runtime:
// Input, Output, Processor and Buffer. Concrete adapters live under
// internal/impl and are looked up through internal/registry.
package component

import (
	"context"

	"github.com/ark-flow/arkflow/internal/message"
)

// Input produces (Batch, Ack) pairs from an external source.
//
// Lifecycle: Build -> Connect -> Read* -> Close. Close is called exactly
// once and must be safe to call after any prior method failed.
type Input interface {
	// Connect establishes whatever external resource is needed. It is
	// idempotent. Returns an errs.Connection on unrecoverable failure.
	Connect(ctx context.Context) error

	// Read blocks until a batch is available or a terminal condition is
	// reached. Terminal conditions are reported via errs.Kind: EOF
	// (clean shutdown), Disconnection (reconnect), Config (fatal),
	// anything else (logged, retried).
	Read(ctx context.Context) (message.Batch, message.Ack, error)

	// Close releases resources. After Close, further Reads return EOF.
	Close(ctx context.Context) error
}

// Output writes batches to an external sink.
type Output interface {
	// Connect establishes whatever external resource is needed. It is
	// idempotent.
	Connect(ctx context.Context) error

	// Write writes one batch. On transient errors the output may retry
	// internally with bounded backoff; on final failure it returns an
	// error and the caller does not ack.
	Write(ctx context.Context, batch message.Batch) error

	// Close flushes pending work and releases resources.
	Close(ctx context.Context) error
}

// Processor transforms one input Batch into zero or more output
// Batches. Zero-length output is legal and means "drop". Per-processor
// state (e.g. window buffers) is private to that processor and must be
// safe for concurrent use, since one Processor instance is shared by
// every worker.
type Processor interface {
	Process(ctx context.Context, batch message.Batch) ([]message.Batch, error)
	Close(ctx context.Context) error
}

// Buffer is the optional coalescing stage between workers and the sink.
type Buffer interface {
	// Write is non-blocking best-effort and never drops.
	Write(ctx context.Context, batch message.Batch, ack message.Ack) error

	// Read blocks until a merged batch is ready or EndOfInput has been
	// called and the buffer is depleted, in which case it returns
	// errs.EOF.
	Read(ctx context.Context) (message.Batch, message.Ack, error)

	// Flush requests an immediate drain.
	Flush(ctx context.Context) error

	// EndOfInput indicates that no more Writes will occur; once the
	// buffer is depleted Read should return errs.EOF. Idempotent, may be
	// called more than once.
	EndOfInput()

	Close(ctx context.Context) error
}

// Decoder lazily decodes a component's raw configuration fragment into
// v, the concrete shape the component's own Builder expects.
// *config.ComponentConfig implements this.
type Decoder interface {
	Decode(v any) error
}

// Builder constructs a component of kind T from a raw configuration
// fragment, decoded lazily by the Builder itself via Decoder.Decode.
type Builder[T any] func(rawConfig Decoder) (T, error)
