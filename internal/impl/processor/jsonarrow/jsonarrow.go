// Package jsonarrow implements the "json_to_arrow" and "arrow_to_json"
// processor type tags, converting between the binary (JSON payload) and
// columnar representations of message.Batch. The name keeps the
// original system's Apache Arrow framing, but the columnar side is this
// runtime's own native representation; no Arrow or DataFusion binding
// is in scope (see DESIGN.md).
package jsonarrow

import (
	"context"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the (empty) configuration fragment shared by both
// conversion directions.
type Config struct{}

// ToColumnar converts a binary batch of JSON payloads into a columnar
// batch, inferring a schema from the union of keys present.
type ToColumnar struct{}

// Process implements component.Processor.
func (ToColumnar) Process(_ context.Context, b message.Batch) ([]message.Batch, error) {
	out, err := b.ToColumnar()
	if err != nil {
		return nil, errs.Serialization(err, "json_to_arrow: converting batch")
	}
	return []message.Batch{out}, nil
}

// Close is a no-op; this processor holds no resources.
func (ToColumnar) Close(context.Context) error { return nil }

// ToJSON converts a columnar batch back into a binary batch of one JSON
// payload per row.
type ToJSON struct{}

// Process implements component.Processor.
func (ToJSON) Process(_ context.Context, b message.Batch) ([]message.Batch, error) {
	out, err := b.ToJSON()
	if err != nil {
		return nil, errs.Serialization(err, "arrow_to_json: converting batch")
	}
	return []message.Batch{out}, nil
}

// Close is a no-op; this processor holds no resources.
func (ToJSON) Close(context.Context) error { return nil }

func init() {
	registry.Processors.MustRegister("json_to_arrow", func(raw component.Decoder) (component.Processor, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("json_to_arrow: %v", err)
		}
		return ToColumnar{}, nil
	})
	registry.Processors.MustRegister("arrow_to_json", func(raw component.Decoder) (component.Processor, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("arrow_to_json: %v", err)
		}
		return ToJSON{}, nil
	})
}
