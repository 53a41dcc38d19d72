// Package http implements the "http" input type tag: periodic polling of
// an HTTP endpoint, built on net/http (a bound HTTP client library is
// not warranted for a fixed poll loop; see DESIGN.md).
package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "http" input's configuration fragment.
type Config struct {
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Input polls URL every Interval and emits the response body as one
// payload per batch.
type Input struct {
	url      string
	interval time.Duration

	client *http.Client
	ticker *time.Ticker
}

// New constructs an http Input from cfg.
func New(cfg Config) (*Input, error) {
	if cfg.URL == "" {
		return nil, errs.Config("http input: url is required")
	}
	if cfg.Interval <= 0 {
		return nil, errs.Config("http input: interval must be > 0")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Input{url: cfg.URL, interval: cfg.Interval, client: &http.Client{Timeout: timeout}}, nil
}

// Connect starts the poll ticker.
func (in *Input) Connect(context.Context) error {
	in.ticker = time.NewTicker(in.interval)
	return nil
}

// Read blocks until the next tick, issues a GET, and returns the
// response body as a one-payload binary batch.
func (in *Input) Read(ctx context.Context) (message.Batch, message.Ack, error) {
	select {
	case <-in.ticker.C:
	case <-ctx.Done():
		return message.Batch{}, nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.url, nil)
	if err != nil {
		return message.Batch{}, nil, errs.Config("http input: building request: %v", err)
	}
	resp, err := in.client.Do(req)
	if err != nil {
		return message.Batch{}, nil, errs.Disconnection(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return message.Batch{}, nil, errs.IO(err, "http input: reading response body")
	}
	if resp.StatusCode >= 500 {
		return message.Batch{}, nil, errs.Disconnection(errStatus(resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return message.Batch{}, nil, errs.Read(errStatus(resp.StatusCode), "http input: unexpected status")
	}

	return message.NewBinary([][]byte{body}), message.Noop, nil
}

// Close releases the poll ticker.
func (in *Input) Close(context.Context) error {
	if in.ticker != nil {
		in.ticker.Stop()
	}
	return nil
}

type errStatus int

func (e errStatus) Error() string { return http.StatusText(int(e)) }

func init() {
	registry.Inputs.MustRegister("http", func(raw component.Decoder) (component.Input, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("http input: %v", err)
		}
		return New(cfg)
	})
}
