// Package modbus registers the "modbus" input type tag as a
// contract-only stub. No Modbus client library is grounded anywhere in
// the example pack (see DESIGN.md); the type tag is kept so
// configuration documents can name it and receive a clear error rather
// than an "unknown type" registry miss.
package modbus

import (
	"context"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "modbus" input's configuration fragment.
type Config struct {
	Address string `yaml:"address"`
	UnitID  byte   `yaml:"unit_id"`
}

// Input is a stub: Connect always fails with a clear, actionable error.
type Input struct{ cfg Config }

// New constructs the stub Input from cfg.
func New(cfg Config) (*Input, error) {
	if cfg.Address == "" {
		return nil, errs.Config("modbus input: address is required")
	}
	return &Input{cfg: cfg}, nil
}

// Connect always fails: no Modbus transport is implemented.
func (in *Input) Connect(context.Context) error {
	return errs.Config("modbus input: not implemented, no grounded Modbus client is available")
}

// Read is unreachable since Connect always fails.
func (in *Input) Read(context.Context) (message.Batch, message.Ack, error) {
	return message.Batch{}, nil, errs.EOF
}

// Close is a no-op.
func (in *Input) Close(context.Context) error { return nil }

func init() {
	registry.Inputs.MustRegister("modbus", func(raw component.Decoder) (component.Input, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("modbus input: %v", err)
		}
		return New(cfg)
	})
}
