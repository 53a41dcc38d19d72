// Package sqlproc implements the "sql" processor type tag: a minimal
// projection/equality-filter evaluator over the native columnar batch
// model. The original system's "sql" processor delegates to DataFusion,
// which is out of scope here; this is the smallest real SQL-shaped
// processor that still lets a pipeline be built and tested against the
// columnar representation without that integration.
package sqlproc

import (
	"context"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "sql" processor's configuration fragment: a column
// projection list and an optional single equality filter.
type Config struct {
	Select    []string `yaml:"select"`     // empty means "all columns"
	FilterCol string   `yaml:"filter_col"` // empty means "no filter"
	FilterEq  any      `yaml:"filter_eq"`
}

// Processor projects and filters columnar batches per Config.
type Processor struct {
	cfg Config
}

// New constructs a sql Processor from cfg.
func New(cfg Config) (*Processor, error) {
	return &Processor{cfg: cfg}, nil
}

// Process converts binary input to columnar (if needed), applies the
// configured filter and projection, and returns the result.
func (p *Processor) Process(_ context.Context, b message.Batch) ([]message.Batch, error) {
	columnar, err := b.ToColumnar()
	if err != nil {
		return nil, errs.Process(err, "sql processor: converting batch to columnar")
	}

	rows := p.matchingRows(columnar)
	projected, err := p.project(columnar, rows)
	if err != nil {
		return nil, errs.Process(err, "sql processor: projecting columns")
	}
	return []message.Batch{projected}, nil
}

// matchingRows returns the row indices satisfying the configured
// filter, or every row index if no filter is configured.
func (p *Processor) matchingRows(b message.Batch) []int {
	n := b.Len()
	if p.cfg.FilterCol == "" {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}

	col, ok := b.Column(p.cfg.FilterCol)
	if !ok {
		return nil
	}
	var rows []int
	for i, v := range col.Values {
		if equal(v, p.cfg.FilterEq) {
			rows = append(rows, i)
		}
	}
	return rows
}

func (p *Processor) project(b message.Batch, rows []int) (message.Batch, error) {
	schema := b.Schema()
	names := p.cfg.Select
	if len(names) == 0 {
		for _, f := range schema.Fields {
			names = append(names, f.Name)
		}
	}

	columns := make([]message.Column, 0, len(names))
	fields := make([]message.Field, 0, len(names))
	for _, name := range names {
		src, ok := b.Column(name)
		if !ok {
			continue
		}
		values := make([]any, len(rows))
		for i, r := range rows {
			values[i] = src.Values[r]
		}
		fields = append(fields, src.Field)
		columns = append(columns, message.Column{Field: src.Field, Values: values})
	}
	return message.NewColumnar(message.Schema{Fields: fields}, columns)
}

func equal(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Close is a no-op; this processor holds no resources.
func (p *Processor) Close(context.Context) error { return nil }

func init() {
	registry.Processors.MustRegister("sql", func(raw component.Decoder) (component.Processor, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("sql processor: %v", err)
		}
		return New(cfg)
	})
}
