// Package message implements the Batch and Ack data model shared by every
// component in the runtime.
package message

import (
	"encoding/json"
	"fmt"
)

// ColumnType is the primitive type carried by a Column.
type ColumnType int

const (
	ColumnInt64 ColumnType = iota
	ColumnFloat64
	ColumnString
	ColumnBool
	ColumnList // list of any of the above, element type recorded per-value
)

// Schema describes the named, typed columns of a columnar Batch.
type Schema struct {
	Fields []Field
}

// Field is one named column in a Schema.
type Field struct {
	Name string
	Type ColumnType
}

// IndexOf returns the position of name in the schema, or -1.
func (s Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Column is one column's worth of values, one entry per row.
type Column struct {
	Field  Field
	Values []any
}

// Batch is the unit of data flow: either a columnar record batch (schema +
// columns) or a vector of opaque byte payloads, never both.
type Batch struct {
	schema  *Schema
	columns []Column
	binary  [][]byte
}

// NewColumnar builds a columnar Batch. All columns must have equal length;
// that length is the batch's row count.
func NewColumnar(schema Schema, columns []Column) (Batch, error) {
	n := -1
	for _, c := range columns {
		if n == -1 {
			n = len(c.Values)
		} else if len(c.Values) != n {
			return Batch{}, fmt.Errorf("message: column %q has %d rows, want %d", c.Field.Name, len(c.Values), n)
		}
	}
	return Batch{schema: &schema, columns: columns}, nil
}

// NewBinary builds a binary Batch from opaque payloads.
func NewBinary(payloads [][]byte) Batch {
	cp := make([][]byte, len(payloads))
	copy(cp, payloads)
	return Batch{binary: cp}
}

// FromJSON encodes a single value as one binary-batch payload, mirroring
// arkflow-core::MessageBatch::from_json.
func FromJSON(v any) (Batch, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Batch{}, fmt.Errorf("message: marshal json: %w", err)
	}
	return NewBinary([][]byte{b}), nil
}

// FromString wraps a single string as a one-element binary batch.
func FromString(s string) Batch {
	return NewBinary([][]byte{[]byte(s)})
}

// IsColumnar reports whether the batch carries a columnar record batch.
func (b Batch) IsColumnar() bool { return b.schema != nil }

// Schema returns the batch's schema. Panics if the batch is binary.
func (b Batch) Schema() Schema {
	if b.schema == nil {
		panic("message: Schema called on a binary batch")
	}
	return *b.schema
}

// Columns returns the batch's columns. Panics if the batch is binary.
func (b Batch) Columns() []Column {
	if b.schema == nil {
		panic("message: Columns called on a binary batch")
	}
	return b.columns
}

// Column returns the named column, or false if absent.
func (b Batch) Column(name string) (Column, bool) {
	if b.schema == nil {
		return Column{}, false
	}
	i := b.schema.IndexOf(name)
	if i < 0 {
		return Column{}, false
	}
	return b.columns[i], true
}

// Binary returns the batch's opaque payloads. Panics if the batch is
// columnar.
func (b Batch) Binary() [][]byte {
	if b.schema != nil {
		panic("message: Binary called on a columnar batch")
	}
	return b.binary
}

// Len returns the row count (columnar) or payload count (binary). An
// empty batch (Len() == 0) is legal and must traverse the pipeline
// without producing downstream work.
func (b Batch) Len() int {
	if b.schema != nil {
		if len(b.columns) == 0 {
			return 0
		}
		return len(b.columns[0].Values)
	}
	return len(b.binary)
}

// IsEmpty reports whether Len() == 0.
func (b Batch) IsEmpty() bool { return b.Len() == 0 }

// AsStrings decodes a binary batch's payloads as UTF-8 strings.
func (b Batch) AsStrings() ([]string, error) {
	if b.schema != nil {
		return nil, fmt.Errorf("message: cannot decode a columnar batch as strings")
	}
	out := make([]string, len(b.binary))
	for i, p := range b.binary {
		out[i] = string(p)
	}
	return out, nil
}

// ToColumnar parses each binary payload as a JSON object and produces a
// columnar batch, inferring a schema from the union of object keys seen
// across all payloads. Downstream stages that require columns call this
// to convert a binary batch on demand.
func (b Batch) ToColumnar() (Batch, error) {
	if b.schema != nil {
		return b, nil
	}
	if len(b.binary) == 0 {
		return NewColumnar(Schema{}, nil)
	}

	rows := make([]map[string]any, len(b.binary))
	var order []string
	seen := map[string]bool{}
	for i, p := range b.binary {
		var row map[string]any
		if err := json.Unmarshal(p, &row); err != nil {
			return Batch{}, fmt.Errorf("message: payload %d is not a JSON object: %w", i, err)
		}
		rows[i] = row
		for k := range row {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
	}

	columns := make([]Column, len(order))
	fields := make([]Field, len(order))
	for ci, name := range order {
		values := make([]any, len(rows))
		typ := ColumnString
		for ri, row := range rows {
			v := row[name]
			values[ri] = v
			typ = inferType(v)
		}
		fields[ci] = Field{Name: name, Type: typ}
		columns[ci] = Column{Field: fields[ci], Values: values}
	}
	return NewColumnar(Schema{Fields: fields}, columns)
}

func inferType(v any) ColumnType {
	switch v.(type) {
	case float64:
		return ColumnFloat64
	case bool:
		return ColumnBool
	case []any:
		return ColumnList
	case nil:
		return ColumnString
	default:
		return ColumnString
	}
}

// ToJSON renders a columnar batch back out as one binary payload per row,
// the inverse of ToColumnar.
func (b Batch) ToJSON() (Batch, error) {
	if b.schema == nil {
		return b, nil
	}
	n := b.Len()
	payloads := make([][]byte, n)
	for row := 0; row < n; row++ {
		obj := make(map[string]any, len(b.columns))
		for _, c := range b.columns {
			obj[c.Field.Name] = c.Values[row]
		}
		enc, err := json.Marshal(obj)
		if err != nil {
			return Batch{}, fmt.Errorf("message: marshal row %d: %w", row, err)
		}
		payloads[row] = enc
	}
	return NewBinary(payloads), nil
}

// Concat concatenates batches that share a schema (columnar) or are all
// binary, as performed by the memory buffer when merging. Columnar
// batches with incompatible schemas return an error.
func Concat(batches []Batch) (Batch, error) {
	if len(batches) == 0 {
		return NewBinary(nil), nil
	}
	if !batches[0].IsColumnar() {
		var all [][]byte
		for _, b := range batches {
			if b.IsColumnar() {
				return Batch{}, fmt.Errorf("message: cannot concat a binary batch with a columnar batch")
			}
			all = append(all, b.binary...)
		}
		return NewBinary(all), nil
	}

	schema := batches[0].Schema()
	merged := make([]Column, len(schema.Fields))
	for i, f := range schema.Fields {
		merged[i] = Column{Field: f}
	}
	for _, b := range batches {
		if !b.IsColumnar() {
			return Batch{}, fmt.Errorf("message: cannot concat a binary batch with a columnar batch")
		}
		if !schemaEqual(schema, b.Schema()) {
			return Batch{}, fmt.Errorf("message: incompatible schemas in concat")
		}
		for i, c := range b.Columns() {
			merged[i].Values = append(merged[i].Values, c.Values...)
		}
	}
	return NewColumnar(schema, merged)
}

func schemaEqual(a, b Schema) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	return true
}
