// Package stdout implements the "stdout" output type tag: writes each
// payload as one line to os.Stdout. Trivial by definition; no
// third-party dependency applies.
package stdout

import (
	"bufio"
	"context"
	"os"
	"sync"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "stdout" output's (empty) configuration fragment.
type Config struct{}

// Output writes one line per payload to os.Stdout.
type Output struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// New constructs a stdout Output.
func New(Config) (*Output, error) {
	return &Output{w: bufio.NewWriter(os.Stdout)}, nil
}

// Connect is a no-op.
func (o *Output) Connect(context.Context) error { return nil }

// Write prints every payload in batch, one per line, then flushes.
func (o *Output) Write(_ context.Context, batch message.Batch) error {
	b := batch
	if b.IsColumnar() {
		var err error
		b, err = b.ToJSON()
		if err != nil {
			return errs.Serialization(err, "stdout output: encoding columnar batch")
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range b.Binary() {
		if _, err := o.w.Write(p); err != nil {
			return errs.IO(err, "stdout output: write")
		}
		if err := o.w.WriteByte('\n'); err != nil {
			return errs.IO(err, "stdout output: write")
		}
	}
	return o.w.Flush()
}

// Close flushes any buffered output.
func (o *Output) Close(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Flush()
}

func init() {
	registry.Outputs.MustRegister("stdout", func(raw component.Decoder) (component.Output, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("stdout output: %v", err)
		}
		return New(cfg)
	})
}
