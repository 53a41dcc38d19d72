package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDoc = `
streams:
  - input:
      type: generate
      interval: 1s
      mapping: "{}"
    pipeline:
      thread_num: 4
      processors:
        - type: mapping
          drop: ["secret"]
    output:
      type: stdout
  - input:
      type: file
      path: /tmp/in.log
    buffer:
      type: memory
      capacity: 100
      timeout: 1s
    pipeline:
      thread_num: 1
    output:
      type: drop
`

func TestLoadParsesStreamsAndDefersComponentDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streams.yaml")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Streams) != 2 {
		t.Fatalf("len(Streams) = %d, want 2", len(doc.Streams))
	}

	s0 := doc.Streams[0]
	if s0.Input.Type != "generate" {
		t.Fatalf("stream[0].input.type = %q, want generate", s0.Input.Type)
	}
	if s0.Pipeline.ThreadNum != 4 {
		t.Fatalf("stream[0].pipeline.thread_num = %d, want 4", s0.Pipeline.ThreadNum)
	}

	var genCfg struct {
		Interval string `yaml:"interval"`
		Mapping  string `yaml:"mapping"`
	}
	if err := s0.Input.Decode(&genCfg); err != nil {
		t.Fatalf("decoding generate fragment: %v", err)
	}
	if genCfg.Mapping != "{}" {
		t.Fatalf("mapping = %q, want {}", genCfg.Mapping)
	}

	s1 := doc.Streams[1]
	if s1.Buffer == nil || s1.Buffer.Type != "memory" {
		t.Fatalf("stream[1].buffer = %+v, want type memory", s1.Buffer)
	}
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	cases := []StreamConfig{
		{Output: ComponentConfig{Type: "drop"}, Pipeline: PipelineConfig{ThreadNum: 1}},
		{Input: ComponentConfig{Type: "generate"}, Pipeline: PipelineConfig{ThreadNum: 1}},
		{Input: ComponentConfig{Type: "generate"}, Output: ComponentConfig{Type: "drop"}},
	}
	for i, sc := range cases {
		if err := sc.Validate(); err == nil {
			t.Errorf("case %d: expected validation error, got nil", i)
		}
	}
}

func TestValidateRequiresBufferTypeWhenPresent(t *testing.T) {
	sc := StreamConfig{
		Input:    ComponentConfig{Type: "generate"},
		Output:   ComponentConfig{Type: "drop"},
		Buffer:   &ComponentConfig{},
		Pipeline: PipelineConfig{ThreadNum: 1},
	}
	if err := sc.Validate(); err == nil {
		t.Fatal("expected validation error for buffer with empty type")
	}
}
