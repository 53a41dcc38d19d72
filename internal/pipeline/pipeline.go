// Package pipeline threads a Batch through an ordered list of
// Processors.
package pipeline

import (
	"context"
	"fmt"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/message"
)

// Pipeline is an ordered, stateless-across-batches sequence of
// Processors. Per-processor state is private to that processor.
type Pipeline struct {
	processors []component.Processor
}

// New builds a Pipeline from an ordered processor list.
func New(processors []component.Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Process threads batch through every processor in order, flattening
// each processor's output list before handing it to the next processor.
// If any processor returns an error, processing aborts immediately and
// the error is returned to the caller (the worker), which does not ack
// the original input batch.
func (p *Pipeline) Process(ctx context.Context, batch message.Batch) ([]message.Batch, error) {
	batches := []message.Batch{batch}
	for i, proc := range p.processors {
		var next []message.Batch
		for _, b := range batches {
			out, err := proc.Process(ctx, b)
			if err != nil {
				return nil, fmt.Errorf("pipeline: processor %d: %w", i, err)
			}
			next = append(next, out...)
		}
		batches = next
		if len(batches) == 0 {
			// Every processor upstream dropped their input; nothing
			// left to feed downstream processors, which is legal.
			break
		}
	}
	return batches, nil
}

// Close closes every processor in order, continuing even if one fails,
// and returns the first error encountered (if any).
func (p *Pipeline) Close(ctx context.Context) error {
	var first error
	for _, proc := range p.processors {
		if err := proc.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
