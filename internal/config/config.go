// Package config parses the stream configuration document with
// gopkg.in/yaml.v3, deferring decode of each component's type-specific
// fields to that component's own Builder.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the top-level configuration document: a list of streams.
type Document struct {
	Streams []StreamConfig `yaml:"streams"`
}

// StreamConfig is one stream's wiring: one input, one pipeline, one
// output, and an optional buffer.
type StreamConfig struct {
	Input    ComponentConfig  `yaml:"input"`
	Buffer   *ComponentConfig `yaml:"buffer,omitempty"`
	Pipeline PipelineConfig   `yaml:"pipeline"`
	Output   ComponentConfig  `yaml:"output"`
}

// ComponentConfig is the common shape of every XConfig: a type tag plus
// a type-specific fragment, decoded lazily by the owning Builder.
type ComponentConfig struct {
	Type string `yaml:"type"`

	// Raw carries every other field verbatim so that the component's own
	// Builder can re-decode it into a concrete struct. This is the
	// standard two-phase decode idiom for yaml.v3: first unmarshal into
	// a generic shape to read the discriminator, then re-unmarshal the
	// full node into the type it names. Populated by UnmarshalYAML, not
	// by the default struct decode path.
	Raw yaml.Node `yaml:"-"`
}

// UnmarshalYAML implements custom decoding so that Raw captures the full
// mapping node (including "type"), letting Builders read fields the
// ComponentConfig struct doesn't know about.
func (c *ComponentConfig) UnmarshalYAML(node *yaml.Node) error {
	type shape struct {
		Type string `yaml:"type"`
	}
	var s shape
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("config: decoding component type: %w", err)
	}
	c.Type = s.Type
	c.Raw = *node
	return nil
}

// Decode re-decodes the component's full configuration fragment into v,
// the shape expected by its registered Builder.
func (c *ComponentConfig) Decode(v any) error {
	return c.Raw.Decode(v)
}

// PipelineConfig carries the worker count and ordered processor list.
type PipelineConfig struct {
	ThreadNum  uint32            `yaml:"thread_num"`
	Processors []ComponentConfig `yaml:"processors"`
}

// Load reads and parses a configuration document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the invariants required of every StreamConfig
// (thread_num >= 1, non-empty type tags).
func (d *Document) Validate() error {
	for i, s := range d.Streams {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("config: stream[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks one StreamConfig.
func (s StreamConfig) Validate() error {
	if s.Input.Type == "" {
		return fmt.Errorf("input.type is required")
	}
	if s.Output.Type == "" {
		return fmt.Errorf("output.type is required")
	}
	if s.Pipeline.ThreadNum < 1 {
		return fmt.Errorf("pipeline.thread_num must be >= 1, got %d", s.Pipeline.ThreadNum)
	}
	for i, p := range s.Pipeline.Processors {
		if p.Type == "" {
			return fmt.Errorf("pipeline.processors[%d].type is required", i)
		}
	}
	if s.Buffer != nil && s.Buffer.Type == "" {
		return fmt.Errorf("buffer.type is required when buffer is present")
	}
	return nil
}
