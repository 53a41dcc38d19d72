// Package kafka implements the "kafka" output type tag: a producer built
// on github.com/segmentio/kafka-go.
package kafka

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "kafka" output's configuration fragment.
type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Output writes each batch's payloads as individual Kafka messages.
type Output struct {
	cfg    Config
	writer *kafkago.Writer
}

// New constructs a kafka Output from cfg.
func New(cfg Config) (*Output, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errs.Config("kafka output: brokers is required")
	}
	if cfg.Topic == "" {
		return nil, errs.Config("kafka output: topic is required")
	}
	return &Output{cfg: cfg}, nil
}

// Connect constructs the underlying writer.
func (o *Output) Connect(context.Context) error {
	o.writer = &kafkago.Writer{
		Addr:     kafkago.TCP(o.cfg.Brokers...),
		Topic:    o.cfg.Topic,
		Balancer: &kafkago.LeastBytes{},
	}
	return nil
}

// Write publishes every payload in batch as one Kafka message.
func (o *Output) Write(ctx context.Context, batch message.Batch) error {
	b := batch
	if b.IsColumnar() {
		var err error
		b, err = b.ToJSON()
		if err != nil {
			return errs.Serialization(err, "kafka output: encoding columnar batch")
		}
	}

	msgs := make([]kafkago.Message, len(b.Binary()))
	for i, p := range b.Binary() {
		msgs[i] = kafkago.Message{Value: p}
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := o.writer.WriteMessages(ctx, msgs...); err != nil {
		return errs.Disconnection(err)
	}
	return nil
}

// Close flushes and releases the writer.
func (o *Output) Close(context.Context) error {
	if o.writer == nil {
		return nil
	}
	return o.writer.Close()
}

func init() {
	registry.Outputs.MustRegister("kafka", func(raw component.Decoder) (component.Output, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("kafka output: %v", err)
		}
		return New(cfg)
	})
}
