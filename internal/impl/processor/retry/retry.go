// Package retry implements the "retry" processor type tag: wraps a list
// of child processors and re-attempts them, with exponential backoff,
// whenever they return an error, grounded on the Benthos retry
// processor, using github.com/cenkalti/backoff/v4 for the backoff
// schedule.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/config"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/pipeline"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "retry" processor's configuration fragment.
type Config struct {
	Processors      []config.ComponentConfig `yaml:"processors"`
	InitialInterval time.Duration            `yaml:"initial_interval"`
	MaxInterval     time.Duration            `yaml:"max_interval"`
	MaxElapsedTime  time.Duration            `yaml:"max_elapsed_time"` // 0 means unbounded
	MaxRetries      int                       `yaml:"max_retries"`     // 0 means unbounded
}

// Processor re-attempts its child Pipeline, with exponential backoff,
// until it succeeds, MaxRetries is reached, or MaxElapsedTime elapses.
// Any mutation performed during a failed attempt is discarded: every
// retry reprocesses the original batch unchanged.
type Processor struct {
	children   *pipeline.Pipeline
	initial    time.Duration
	max        time.Duration
	maxElapsed time.Duration
	maxRetries int
}

// New constructs a retry Processor from cfg and its already-built child
// processors.
func New(cfg Config, children []component.Processor) (*Processor, error) {
	if len(children) == 0 {
		return nil, errs.Config("retry processor: at least one child processor is required")
	}
	initial := cfg.InitialInterval
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	maxInterval := cfg.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 30 * time.Second
	}
	return &Processor{
		children:   pipeline.New(children),
		initial:    initial,
		max:        maxInterval,
		maxElapsed: cfg.MaxElapsedTime,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Process attempts the child pipeline, retrying on error per the
// configured backoff schedule.
func (p *Processor) Process(ctx context.Context, batch message.Batch) ([]message.Batch, error) {
	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = p.initial
	boff.MaxInterval = p.max
	boff.MaxElapsedTime = p.maxElapsed
	boff.Reset()

	var lastErr error
	for attempt := 0; ; attempt++ {
		out, err := p.children.Process(ctx, batch)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if p.maxRetries > 0 && attempt >= p.maxRetries {
			return nil, errs.Process(lastErr, "retry processor: max_retries (%d) reached", p.maxRetries)
		}

		wait := boff.NextBackOff()
		if wait == backoff.Stop {
			return nil, errs.Process(lastErr, "retry processor: max_elapsed_time reached")
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close closes every child processor.
func (p *Processor) Close(ctx context.Context) error {
	return p.children.Close(ctx)
}

func init() {
	registry.Processors.MustRegister("retry", func(raw component.Decoder) (component.Processor, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("retry processor: %v", err)
		}

		children := make([]component.Processor, 0, len(cfg.Processors))
		for i, childCfg := range cfg.Processors {
			childCfg := childCfg
			child, err := registry.Processors.Build(childCfg.Type, &childCfg)
			if err != nil {
				return nil, errs.Config("retry processor: building child processor[%d]: %v", i, err)
			}
			children = append(children, child)
		}
		return New(cfg, children)
	})
}
