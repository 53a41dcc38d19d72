// Package file implements the "file" output type tag: appends each
// payload as one newline-delimited line to a local file.
package file

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

// Config is the "file" output's configuration fragment.
type Config struct {
	Path string `yaml:"path"`
}

// Output appends one line per payload to Path.
type Output struct {
	path string

	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

// New constructs a file Output from cfg.
func New(cfg Config) (*Output, error) {
	if cfg.Path == "" {
		return nil, errs.Config("file output: path is required")
	}
	return &Output{path: cfg.Path}, nil
}

// Connect opens Path for appending, creating it if necessary.
func (o *Output) Connect(context.Context) error {
	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Connection(err, "file output: open %s", o.path)
	}
	o.f = f
	o.w = bufio.NewWriter(f)
	return nil
}

// Write appends every payload in batch, one per line, then flushes.
func (o *Output) Write(_ context.Context, batch message.Batch) error {
	b := batch
	if b.IsColumnar() {
		var err error
		b, err = b.ToJSON()
		if err != nil {
			return errs.Serialization(err, "file output: encoding columnar batch")
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range b.Binary() {
		if _, err := o.w.Write(p); err != nil {
			return errs.IO(err, "file output: write")
		}
		if err := o.w.WriteByte('\n'); err != nil {
			return errs.IO(err, "file output: write")
		}
	}
	return o.w.Flush()
}

// Close flushes buffered output and releases the file handle.
func (o *Output) Close(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.w != nil {
		if err := o.w.Flush(); err != nil {
			return err
		}
	}
	if o.f == nil {
		return nil
	}
	return o.f.Close()
}

func init() {
	registry.Outputs.MustRegister("file", func(raw component.Decoder) (component.Output, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("file output: %v", err)
		}
		return New(cfg)
	})
}
