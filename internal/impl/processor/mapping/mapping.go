// Package mapping implements the "mapping" processor type tag: a field
// rename/set/drop transform over the columnar batch model. It needs no
// external dependency (pure data shuffling) and gives the Processor
// contract a concrete, always-available implementation so a pipeline
// can be built and tested without the SQL or protobuf integrations.
package mapping

import (
	"context"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "mapping" processor's configuration fragment.
type Config struct {
	Rename map[string]string `yaml:"rename"` // old name -> new name
	Drop   []string          `yaml:"drop"`
	Set    map[string]any    `yaml:"set"` // new column name -> constant value for every row
}

// Processor applies Config's rename/drop/set rules to every batch it
// sees, converting binary input to columnar first.
type Processor struct {
	cfg Config
}

// New constructs a mapping Processor from cfg.
func New(cfg Config) (*Processor, error) {
	return &Processor{cfg: cfg}, nil
}

// Process converts the input to columnar form and applies drop, rename
// and set in that order. Drop matches the original column names, so a
// column renamed by Rename cannot be dropped under its new name.
func (p *Processor) Process(_ context.Context, b message.Batch) ([]message.Batch, error) {
	columnar, err := b.ToColumnar()
	if err != nil {
		return nil, errs.Process(err, "mapping processor: converting batch to columnar")
	}

	dropped := map[string]bool{}
	for _, name := range p.cfg.Drop {
		dropped[name] = true
	}

	var columns []message.Column
	for _, c := range columnar.Columns() {
		if dropped[c.Field.Name] {
			continue
		}
		if newName, ok := p.cfg.Rename[c.Field.Name]; ok {
			c.Field.Name = newName
		}
		columns = append(columns, c)
	}

	n := columnar.Len()
	for name, v := range p.cfg.Set {
		values := make([]any, n)
		for i := range values {
			values[i] = v
		}
		columns = append(columns, message.Column{
			Field:  message.Field{Name: name, Type: inferConstType(v)},
			Values: values,
		})
	}

	fields := make([]message.Field, len(columns))
	for i, c := range columns {
		fields[i] = c.Field
	}
	out, err := message.NewColumnar(message.Schema{Fields: fields}, columns)
	if err != nil {
		return nil, errs.Process(err, "mapping processor: building result batch")
	}
	return []message.Batch{out}, nil
}

func inferConstType(v any) message.ColumnType {
	switch v.(type) {
	case float64, int, int64:
		return message.ColumnFloat64
	case bool:
		return message.ColumnBool
	default:
		return message.ColumnString
	}
}

// Close is a no-op; this processor holds no resources.
func (p *Processor) Close(context.Context) error { return nil }

func init() {
	registry.Processors.MustRegister("mapping", func(raw component.Decoder) (component.Processor, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("mapping processor: %v", err)
		}
		return New(cfg)
	})
}
