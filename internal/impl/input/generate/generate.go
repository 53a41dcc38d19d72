// Package generate implements the "generate" input type tag: a
// synthetic batch source that emits one payload per interval, used for
// examples, load testing and pipeline smoke tests without any external
// dependency.
package generate

import (
	"context"
	"time"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "generate" input's configuration fragment.
type Config struct {
	Interval time.Duration `yaml:"interval"`
	Mapping  string        `yaml:"mapping"`
	Count    int           `yaml:"count"` // 0 means unbounded
}

// Input emits a batch every Interval until Count batches have been
// produced (or forever, if Count is 0).
type Input struct {
	interval time.Duration
	mapping  string
	count    int

	ticker *time.Ticker
	n      int
}

// New constructs a generate Input from cfg.
func New(cfg Config) (*Input, error) {
	if cfg.Interval <= 0 {
		return nil, errs.Config("generate input: interval must be > 0")
	}
	return &Input{interval: cfg.Interval, mapping: cfg.Mapping, count: cfg.Count}, nil
}

// Connect starts the interval ticker.
func (in *Input) Connect(context.Context) error {
	in.ticker = time.NewTicker(in.interval)
	return nil
}

// Read blocks until the next tick and emits one synthetic payload.
// There is no upstream delivery tracking, so the Ack is a no-op.
func (in *Input) Read(ctx context.Context) (message.Batch, message.Ack, error) {
	if in.count > 0 && in.n >= in.count {
		return message.Batch{}, nil, errs.EOF
	}

	select {
	case <-in.ticker.C:
	case <-ctx.Done():
		return message.Batch{}, nil, ctx.Err()
	}

	in.n++
	payload := in.mapping
	if payload == "" {
		payload = "{}"
	}
	return message.FromString(payload), message.Noop, nil
}

// Close stops the ticker.
func (in *Input) Close(context.Context) error {
	if in.ticker != nil {
		in.ticker.Stop()
	}
	return nil
}

func init() {
	registry.Inputs.MustRegister("generate", func(raw component.Decoder) (component.Input, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("generate input: %v", err)
		}
		return New(cfg)
	})
}
