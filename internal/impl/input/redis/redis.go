// Package redis implements the "redis" input type tag: a consumer-group
// reader over a Redis Stream (XREADGROUP), acknowledging via XACK from
// the batch's Ack, built on github.com/redis/go-redis/v9.
package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// encodeFields renders a stream entry's field/value map as one JSON
// payload so it can travel through the runtime as a binary Batch.
func encodeFields(values map[string]any) ([]byte, error) {
	return json.Marshal(values)
}

// Config is the "redis" input's configuration fragment.
type Config struct {
	Addr     string `yaml:"addr"`
	Stream   string `yaml:"stream"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"`
}

// Input reads from a Redis Stream consumer group, XACKing each entry's
// ID when the returned Ack fires.
type Input struct {
	cfg    Config
	client *goredis.Client
}

// New constructs a redis Input from cfg.
func New(cfg Config) (*Input, error) {
	if cfg.Addr == "" {
		return nil, errs.Config("redis input: addr is required")
	}
	if cfg.Stream == "" {
		return nil, errs.Config("redis input: stream is required")
	}
	if cfg.Group == "" {
		return nil, errs.Config("redis input: group is required")
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "arkflow"
	}
	return &Input{cfg: cfg}, nil
}

// Connect dials Redis and ensures the consumer group exists.
func (in *Input) Connect(ctx context.Context) error {
	in.client = goredis.NewClient(&goredis.Options{Addr: in.cfg.Addr})
	if err := in.client.Ping(ctx).Err(); err != nil {
		return errs.Connection(err, "redis input: ping %s", in.cfg.Addr)
	}
	err := in.client.XGroupCreateMkStream(ctx, in.cfg.Stream, in.cfg.Group, "$").Err()
	if err != nil && !isBusyGroup(err) {
		return errs.Connection(err, "redis input: create group %s", in.cfg.Group)
	}
	return nil
}

// Read blocks for the next stream entry via XREADGROUP and returns an
// Ack that issues XACK.
func (in *Input) Read(ctx context.Context) (message.Batch, message.Ack, error) {
	res, err := in.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    in.cfg.Group,
		Consumer: in.cfg.Consumer,
		Streams:  []string{in.cfg.Stream, ">"},
		Count:    1,
		Block:    5 * time.Second,
	}).Result()
	if err != nil {
		if ctx.Err() != nil {
			return message.Batch{}, nil, ctx.Err()
		}
		if err == goredis.Nil {
			return message.Batch{}, nil, errs.Timeout(err)
		}
		return message.Batch{}, nil, errs.Disconnection(err)
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return message.Batch{}, nil, errs.Timeout(errNoEntries)
	}

	entry := res[0].Messages[0]
	payload, err := encodeFields(entry.Values)
	if err != nil {
		return message.Batch{}, nil, errs.Serialization(err, "redis input: encoding entry %s", entry.ID)
	}

	id := entry.ID
	ack := message.AckFunc(func() {
		in.client.XAck(context.Background(), in.cfg.Stream, in.cfg.Group, id)
	})
	return message.NewBinary([][]byte{payload}), ack, nil
}

// Close disconnects the Redis client.
func (in *Input) Close(context.Context) error {
	if in.client == nil {
		return nil
	}
	return in.client.Close()
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 8 && err.Error()[:8] == "BUSYGROU"
}

type strErr string

func (e strErr) Error() string { return string(e) }

const errNoEntries = strErr("redis input: no entries available")

func init() {
	registry.Inputs.MustRegister("redis", func(raw component.Decoder) (component.Input, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("redis input: %v", err)
		}
		return New(cfg)
	})
}
