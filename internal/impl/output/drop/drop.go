// Package drop implements the "drop" output type tag: discards every
// batch, always succeeding. Trivial by definition, useful for
// pipelines whose only purpose is side effects performed by a processor
// upstream.
package drop

import (
	"context"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "drop" output's (empty) configuration fragment.
type Config struct{}

// Output discards every batch written to it.
type Output struct{}

// New constructs a drop Output.
func New(Config) (*Output, error) { return &Output{}, nil }

// Connect is a no-op.
func (Output) Connect(context.Context) error { return nil }

// Write always succeeds without doing anything.
func (Output) Write(context.Context, message.Batch) error { return nil }

// Close is a no-op.
func (Output) Close(context.Context) error { return nil }

func init() {
	registry.Outputs.MustRegister("drop", func(raw component.Decoder) (component.Output, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("drop output: %v", err)
		}
		return New(cfg)
	})
}
