// Package kafka implements the "kafka" input type tag: a consumer-group
// reader built on github.com/segmentio/kafka-go, deferring offset commit
// to the Ack returned from Read.
package kafka

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "kafka" input's configuration fragment.
type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// Input reads from a Kafka consumer group, committing the offset only
// when the returned Ack fires.
type Input struct {
	cfg    Config
	reader *kafkago.Reader
}

// New constructs a kafka Input from cfg.
func New(cfg Config) (*Input, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errs.Config("kafka input: brokers is required")
	}
	if cfg.Topic == "" {
		return nil, errs.Config("kafka input: topic is required")
	}
	if cfg.GroupID == "" {
		return nil, errs.Config("kafka input: group_id is required")
	}
	return &Input{cfg: cfg}, nil
}

// Connect constructs the underlying consumer-group reader. kafka-go
// dials lazily on the first FetchMessage, so Connect only validates
// configuration and wires the reader.
func (in *Input) Connect(context.Context) error {
	in.reader = kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: in.cfg.Brokers,
		Topic:   in.cfg.Topic,
		GroupID: in.cfg.GroupID,
	})
	return nil
}

// Read fetches the next message and returns an Ack that commits its
// offset.
func (in *Input) Read(ctx context.Context) (message.Batch, message.Ack, error) {
	msg, err := in.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return message.Batch{}, nil, ctx.Err()
		}
		return message.Batch{}, nil, errs.Disconnection(err)
	}

	ack := message.AckFunc(func() {
		_ = in.reader.CommitMessages(context.Background(), msg)
	})
	return message.NewBinary([][]byte{msg.Value}), ack, nil
}

// Close releases the reader's connections.
func (in *Input) Close(context.Context) error {
	if in.reader == nil {
		return nil
	}
	return in.reader.Close()
}

func init() {
	registry.Inputs.MustRegister("kafka", func(raw component.Decoder) (component.Input, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("kafka input: %v", err)
		}
		return New(cfg)
	})
}
