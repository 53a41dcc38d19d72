// Package file implements the "file" input type tag: a newline-delimited
// record reader over a local file, built on bufio/os (no third-party
// dependency is warranted for sequential line reading).
package file

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "file" input's configuration fragment.
type Config struct {
	Path string `yaml:"path"`
}

// Input reads one line at a time from Path, each line becoming a
// one-payload binary Batch.
type Input struct {
	path string

	f       *os.File
	scanner *bufio.Scanner
}

// New constructs a file Input from cfg.
func New(cfg Config) (*Input, error) {
	if cfg.Path == "" {
		return nil, errs.Config("file input: path is required")
	}
	return &Input{path: cfg.Path}, nil
}

// Connect opens the file for sequential reading.
func (in *Input) Connect(context.Context) error {
	f, err := os.Open(in.path)
	if err != nil {
		return errs.Connection(err, "file input: open %s", in.path)
	}
	in.f = f
	in.scanner = bufio.NewScanner(f)
	in.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return nil
}

// Read returns the next line as a batch, or errs.EOF once the file is
// exhausted.
func (in *Input) Read(context.Context) (message.Batch, message.Ack, error) {
	if in.scanner.Scan() {
		return message.FromString(in.scanner.Text()), message.Noop, nil
	}
	if err := in.scanner.Err(); err != nil && err != io.EOF {
		return message.Batch{}, nil, errs.Read(err, "file input: scan %s", in.path)
	}
	return message.Batch{}, nil, errs.EOF
}

// Close releases the underlying file handle.
func (in *Input) Close(context.Context) error {
	if in.f == nil {
		return nil
	}
	return in.f.Close()
}

func init() {
	registry.Inputs.MustRegister("file", func(raw component.Decoder) (component.Input, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("file input: %v", err)
		}
		return New(cfg)
	})
}
