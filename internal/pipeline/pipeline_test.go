package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/message"
)

type fnProcessor struct {
	fn func(message.Batch) ([]message.Batch, error)
}

func (f fnProcessor) Process(_ context.Context, b message.Batch) ([]message.Batch, error) {
	return f.fn(b)
}
func (f fnProcessor) Close(context.Context) error { return nil }

func TestPipelineFlattensAcrossStages(t *testing.T) {
	split := fnProcessor{fn: func(b message.Batch) ([]message.Batch, error) {
		return []message.Batch{b, b}, nil
	}}
	identity := fnProcessor{fn: func(b message.Batch) ([]message.Batch, error) {
		return []message.Batch{b}, nil
	}}

	p := New([]component.Processor{split, identity})
	out, err := p.Process(context.Background(), message.FromString("x"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func TestPipelineDropIsLegal(t *testing.T) {
	drop := fnProcessor{fn: func(message.Batch) ([]message.Batch, error) {
		return nil, nil
	}}
	p := New([]component.Processor{drop})
	out, err := p.Process(context.Background(), message.FromString("x"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("len(out) = %d, want 0", len(out))
	}
}

func TestPipelineAbortsOnError(t *testing.T) {
	boom := fnProcessor{fn: func(message.Batch) ([]message.Batch, error) {
		return nil, errors.New("boom")
	}}
	p := New([]component.Processor{boom})
	if _, err := p.Process(context.Background(), message.FromString("x")); err == nil {
		t.Fatalf("expected error")
	}
}
