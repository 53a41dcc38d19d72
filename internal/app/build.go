// Package app wires a parsed configuration document into runnable
// stream.Stream values, looking up each component's Builder in the
// global registries.
package app

import (
	"fmt"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/config"
	"github.com/ark-flow/arkflow/internal/log"
	"github.com/ark-flow/arkflow/internal/metrics"
	"github.com/ark-flow/arkflow/internal/pipeline"
	"github.com/ark-flow/arkflow/internal/registry"
	"github.com/ark-flow/arkflow/internal/stream"
	"github.com/prometheus/client_golang/prometheus"
)

// BuildStreams constructs one stream.Stream per entry in doc.Streams,
// in document order. Streams are named "stream-0", "stream-1", ... for
// logging and metric labels.
func BuildStreams(doc *config.Document, baseLog log.Modular, reg prometheus.Registerer) ([]*stream.Stream, error) {
	streams := make([]*stream.Stream, 0, len(doc.Streams))
	for i, sc := range doc.Streams {
		name := fmt.Sprintf("stream-%d", i)
		s, err := buildStream(name, sc, baseLog, reg)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", name, err)
		}
		streams = append(streams, s)
	}
	return streams, nil
}

func buildStream(name string, sc config.StreamConfig, baseLog log.Modular, reg prometheus.Registerer) (*stream.Stream, error) {
	in, err := registry.Inputs.Build(sc.Input.Type, &sc.Input)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}

	out, err := registry.Outputs.Build(sc.Output.Type, &sc.Output)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	procs := make([]component.Processor, 0, len(sc.Pipeline.Processors))
	for i, pc := range sc.Pipeline.Processors {
		pc := pc
		p, err := registry.Processors.Build(pc.Type, &pc)
		if err != nil {
			return nil, fmt.Errorf("pipeline.processors[%d]: %w", i, err)
		}
		procs = append(procs, p)
	}

	var buf component.Buffer
	if sc.Buffer != nil {
		buf, err = registry.Buffers.Build(sc.Buffer.Type, sc.Buffer)
		if err != nil {
			return nil, fmt.Errorf("buffer: %w", err)
		}
	}

	return &stream.Stream{
		Name:      name,
		Input:     in,
		Pipeline:  pipeline.New(procs),
		Output:    out,
		Buffer:    buf,
		ThreadNum: sc.Pipeline.ThreadNum,
		Log:       baseLog.With(log.Fields{"stream": name}),
		Metrics:   metrics.New(reg, name),
	}, nil
}
