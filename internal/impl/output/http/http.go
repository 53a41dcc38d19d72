// Package http implements the "http" output type tag: a POST sink built
// on net/http.
package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "http" output's configuration fragment.
type Config struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Output POSTs each batch payload to URL, one request per payload.
type Output struct {
	url    string
	client *http.Client
}

// New constructs an http Output from cfg.
func New(cfg Config) (*Output, error) {
	if cfg.URL == "" {
		return nil, errs.Config("http output: url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Output{url: cfg.URL, client: &http.Client{Timeout: timeout}}, nil
}

// Connect is a no-op; the client pools connections lazily.
func (o *Output) Connect(context.Context) error { return nil }

// Write POSTs every payload in batch in order, aborting on the first
// failure.
func (o *Output) Write(ctx context.Context, batch message.Batch) error {
	b := batch
	if b.IsColumnar() {
		var err error
		b, err = b.ToJSON()
		if err != nil {
			return errs.Serialization(err, "http output: encoding columnar batch")
		}
	}

	for _, payload := range b.Binary() {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
		if err != nil {
			return errs.Config("http output: building request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			return errs.Disconnection(err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			return errs.Disconnection(errStatus(resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return errs.IO(errStatus(resp.StatusCode), "http output: unexpected status")
		}
	}
	return nil
}

// Close is a no-op; http.Client owns its own connection lifecycle.
func (o *Output) Close(context.Context) error { return nil }

type errStatus int

func (e errStatus) Error() string { return http.StatusText(int(e)) }

func init() {
	registry.Outputs.MustRegister("http", func(raw component.Decoder) (component.Output, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("http output: %v", err)
		}
		return New(cfg)
	})
}
