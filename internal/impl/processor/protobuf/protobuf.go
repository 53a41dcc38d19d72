// Package protobuf registers the "protobuf" processor type tag as a
// contract-only stub. google.golang.org/protobuf sits in the module's
// indirect closure (pulled in by prometheus/client_golang) but no
// concrete protobuf schema or UDF semantics are specified; this stub
// gives the type tag a clear, actionable error until a schema registry
// is designed.
package protobuf

import (
	"context"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "protobuf" processor's configuration fragment.
type Config struct {
	MessageType string `yaml:"message_type"`
}

// Processor is a stub: Process always fails with a clear error.
type Processor struct{ cfg Config }

// New constructs the stub Processor from cfg.
func New(cfg Config) (*Processor, error) {
	if cfg.MessageType == "" {
		return nil, errs.Config("protobuf processor: message_type is required")
	}
	return &Processor{cfg: cfg}, nil
}

// Process always fails: no protobuf schema registry is implemented.
func (p *Processor) Process(context.Context, message.Batch) ([]message.Batch, error) {
	return nil, errs.Process(nil, "protobuf processor: message type %q not implemented, no schema registry is available", p.cfg.MessageType)
}

// Close is a no-op.
func (p *Processor) Close(context.Context) error { return nil }

func init() {
	registry.Processors.MustRegister("protobuf", func(raw component.Decoder) (component.Processor, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("protobuf processor: %v", err)
		}
		return New(cfg)
	})
}
