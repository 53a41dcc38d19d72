// Package redis implements the "redis" output type tag: an XADD sink
// over a Redis Stream, built on github.com/redis/go-redis/v9.
package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "redis" output's configuration fragment.
type Config struct {
	Addr   string `yaml:"addr"`
	Stream string `yaml:"stream"`
}

// Output XADDs each batch payload to Stream under a "payload" field.
type Output struct {
	cfg    Config
	client *goredis.Client
}

// New constructs a redis Output from cfg.
func New(cfg Config) (*Output, error) {
	if cfg.Addr == "" {
		return nil, errs.Config("redis output: addr is required")
	}
	if cfg.Stream == "" {
		return nil, errs.Config("redis output: stream is required")
	}
	return &Output{cfg: cfg}, nil
}

// Connect dials Redis.
func (o *Output) Connect(ctx context.Context) error {
	o.client = goredis.NewClient(&goredis.Options{Addr: o.cfg.Addr})
	if err := o.client.Ping(ctx).Err(); err != nil {
		return errs.Connection(err, "redis output: ping %s", o.cfg.Addr)
	}
	return nil
}

// Write XADDs every payload in batch.
func (o *Output) Write(ctx context.Context, batch message.Batch) error {
	b := batch
	if b.IsColumnar() {
		var err error
		b, err = b.ToJSON()
		if err != nil {
			return errs.Serialization(err, "redis output: encoding columnar batch")
		}
	}

	for _, payload := range b.Binary() {
		err := o.client.XAdd(ctx, &goredis.XAddArgs{
			Stream: o.cfg.Stream,
			Values: map[string]any{"payload": payload},
		}).Err()
		if err != nil {
			return errs.Disconnection(err)
		}
	}
	return nil
}

// Close disconnects the Redis client.
func (o *Output) Close(context.Context) error {
	if o.client == nil {
		return nil
	}
	return o.client.Close()
}

func init() {
	registry.Outputs.MustRegister("redis", func(raw component.Decoder) (component.Output, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("redis output: %v", err)
		}
		return New(cfg)
	})
}
