// Package stream implements the runtime orchestrator: one Input fanned
// into N worker tasks through a Pipeline, optionally coalesced by a
// Buffer, and drained by a single Output sink loop.
package stream

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/log"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/metrics"
	"github.com/ark-flow/arkflow/internal/pipeline"
)

// ReconnectInterval is the delay between connect() retries after the
// Input reports Disconnection. Exported as a var, not a const, so tests
// can shrink it.
var ReconnectInterval = 5 * time.Second

// Stream is the top-level runtime unit: one Input, a Pipeline, an
// optional Buffer, and one Output.
type Stream struct {
	Name      string
	Input     component.Input
	Pipeline  *pipeline.Pipeline
	Output    component.Output
	Buffer    component.Buffer // nil if not configured
	ThreadNum uint32
	Log       log.Modular
	Metrics   *metrics.Metrics

	state stateBox
}

type inEntry struct {
	batch message.Batch
	ack   message.Ack
}

type outEntry struct {
	batches []message.Batch
	ack     message.Ack
}

// State reports the Stream's current lifecycle state.
func (s *Stream) State() State { return s.state.get() }

// Run executes the stream until ctx is cancelled or the input is
// exhausted (EOF), then performs an orderly shutdown. It returns once
// the Closed state has been reached.
func (s *Stream) Run(ctx context.Context) error {
	if s.Log == nil {
		s.Log = log.Noop()
	}
	if s.Metrics == nil {
		s.Metrics = metrics.Noop()
	}
	if s.ThreadNum == 0 {
		s.ThreadNum = 1
	}

	s.state.set(StateBuilding)

	if err := s.Input.Connect(ctx); err != nil {
		s.state.set(StateClosed)
		return fmt.Errorf("stream %s: connect input: %w", s.Name, err)
	}
	if err := s.Output.Connect(ctx); err != nil {
		_ = s.Input.Close(ctx)
		s.state.set(StateClosed)
		return fmt.Errorf("stream %s: connect output: %w", s.Name, err)
	}

	s.state.set(StateRunning)

	capacity := int(4 * s.ThreadNum)
	inCh := make(chan inEntry, capacity)

	var outCh chan outEntry
	if s.Buffer == nil {
		outCh = make(chan outEntry, capacity)
	}

	ingestDone := make(chan struct{})
	go func() {
		defer close(ingestDone)
		s.ingestLoop(ctx, inCh)
	}()

	var workers errgroup.Group
	for i := uint32(0); i < s.ThreadNum; i++ {
		id := i + 1
		workers.Go(func() error {
			s.workerLoop(id, inCh, outCh)
			return nil
		})
	}

	workersDone := make(chan struct{})
	go func() {
		_ = workers.Wait()
		if outCh != nil {
			close(outCh)
		} else if s.Buffer != nil {
			s.Buffer.EndOfInput()
		}
		close(workersDone)
	}()

	if outCh != nil {
		s.sinkLoopQueue(ctx, outCh)
	} else {
		s.sinkLoopBuffer(ctx)
	}

	<-ingestDone
	<-workersDone

	s.state.set(StateDraining)
	s.closeAll(ctx)
	s.state.set(StateClosed)

	return nil
}

// ingestLoop reads (Batch, Ack) pairs from the Input and forwards them
// to inCh, closing inCh on every exit path.
func (s *Stream) ingestLoop(ctx context.Context, inCh chan<- inEntry) {
	log := s.Log.With(log.Fields{"stream": s.Name, "role": "ingest"})
	defer close(inCh)

	for {
		select {
		case <-ctx.Done():
			log.Infof("shutdown signal received, stopping ingest")
			return
		default:
		}

		batch, ack, err := s.Input.Read(ctx)
		if err != nil {
			switch errs.KindOf(err) {
			case errs.KindEOF:
				log.Infof("input exhausted, stopping ingest")
				return
			case errs.KindDisconnection, errs.KindTimeout:
				log.Warnf("input disconnected: %v", err)
				if !s.reconnect(ctx, log) {
					return
				}
				continue
			case errs.KindConfig:
				log.Errorf("fatal configuration error, terminating ingest: %v", err)
				return
			default:
				log.Warnf("input read error, retrying: %v", err)
				continue
			}
		}

		s.Metrics.BatchesIn.Inc()
		s.Metrics.RowsIn.Add(float64(batch.Len()))
		s.Metrics.InFlight.Inc()

		select {
		case inCh <- inEntry{batch: batch, ack: ack}:
		case <-ctx.Done():
			log.Infof("shutdown signal received while queueing input batch")
			return
		}
	}
}

// reconnect retries Input.Connect every ReconnectInterval until it
// succeeds or ctx is cancelled, returning false in the latter case.
func (s *Stream) reconnect(ctx context.Context, log log.Modular) bool {
	for {
		if err := s.Input.Connect(ctx); err == nil {
			log.Infof("input reconnected")
			return true
		} else {
			log.Errorf("reconnect failed: %v", err)
		}
		select {
		case <-time.After(ReconnectInterval):
		case <-ctx.Done():
			return false
		}
	}
}

// workerLoop drains inCh, runs the Pipeline over each batch, and routes
// the result either to outCh (no buffer configured) or directly into
// the Buffer.
func (s *Stream) workerLoop(id uint32, inCh <-chan inEntry, outCh chan<- outEntry) {
	log := s.Log.With(log.Fields{"stream": s.Name, "role": "worker", "worker_id": id})
	log.Debugf("worker started")
	defer log.Debugf("worker stopped")

	ctx := context.Background() // in-flight batches are never cancelled mid-pipeline

	for entry := range inCh {
		started := time.Now()
		outBatches, err := s.Pipeline.Process(ctx, entry.batch)
		s.Metrics.ProcessSeconds.Observe(time.Since(started).Seconds())
		if err != nil {
			log.Errorf("pipeline error, dropping batch unacked: %v", err)
			s.Metrics.BatchesDropped.Inc()
			s.Metrics.InFlight.Dec()
			continue
		}

		if outCh != nil {
			outCh <- outEntry{batches: outBatches, ack: entry.ack}
			continue
		}

		if len(outBatches) == 0 {
			// Vacuous success: nothing to carry into the buffer, so the
			// original batch is acked immediately rather than stranded.
			entry.ack.Ack()
			s.Metrics.Acks.Inc()
			s.Metrics.InFlight.Dec()
			continue
		}
		shared := message.NewShared(entry.ack)
		for _, b := range outBatches {
			releaseAck := message.AckFunc(func() { shared.Release(true) })
			if err := s.Buffer.Write(ctx, b, releaseAck); err != nil {
				log.Errorf("buffer write error, dropping batch: %v", err)
			}
		}
		// The batch's fate downstream is now owned by the buffer and the
		// eventual sink write; in-flight accounting for it ends here, once
		// per input batch, matching ingestLoop's single Inc.
		s.Metrics.InFlight.Dec()
	}
}

// sinkLoopQueue is the unbuffered sink: drains outCh, writes every
// batch in each entry, and acks only if every write succeeded.
func (s *Stream) sinkLoopQueue(ctx context.Context, outCh <-chan outEntry) {
	log := s.Log.With(log.Fields{"stream": s.Name, "role": "sink"})
	for entry := range outCh {
		total := len(entry.batches)
		success := 0
		for _, b := range entry.batches {
			started := time.Now()
			err := s.Output.Write(ctx, b)
			s.Metrics.WriteSeconds.Observe(time.Since(started).Seconds())
			if err != nil {
				log.Errorf("output write failed: %v", err)
				continue
			}
			success++
		}

		s.Metrics.InFlight.Dec()
		if success == total {
			// total == 0 counts as a vacuous full success: a pipeline that
			// filters out every output batch has nothing left to fail, so
			// the input batch is acked rather than left stranded.
			entry.ack.Ack()
			s.Metrics.Acks.Inc()
			s.Metrics.BatchesOut.Add(float64(total))
		} else {
			log.Warnf("partial output failure (%d/%d succeeded), input batch left unacked", success, total)
			s.Metrics.BatchesDropped.Add(float64(total - success))
		}
	}
	log.Debugf("sink stopped")
}

// sinkLoopBuffer is the buffered sink: drains the Buffer instead of
// outCh, writing each merged batch and acking it on success.
func (s *Stream) sinkLoopBuffer(ctx context.Context) {
	log := s.Log.With(log.Fields{"stream": s.Name, "role": "sink"})
	for {
		batch, ack, err := s.Buffer.Read(ctx)
		if err != nil {
			if errs.IsEOF(err) {
				log.Infof("buffer drained, stopping sink")
				return
			}
			if ctx.Err() != nil {
				return
			}
			log.Errorf("buffer read error: %v", err)
			continue
		}

		started := time.Now()
		writeErr := s.Output.Write(ctx, batch)
		s.Metrics.WriteSeconds.Observe(time.Since(started).Seconds())
		if writeErr != nil {
			log.Warnf("output write failed, merged batch left unacked: %v", writeErr)
			s.Metrics.BatchesDropped.Inc()
			continue
		}
		ack.Ack()
		s.Metrics.Acks.Inc()
		s.Metrics.BatchesOut.Inc()
	}
}

// closeAll closes input, pipeline, buffer (if present), then output, in
// that order. Each error is logged but does not abort the remaining
// closes.
func (s *Stream) closeAll(ctx context.Context) {
	log := s.Log.With(log.Fields{"stream": s.Name})

	if err := s.Input.Close(ctx); err != nil {
		log.Errorf("error closing input: %v", err)
	}
	if err := s.Pipeline.Close(ctx); err != nil {
		log.Errorf("error closing pipeline: %v", err)
	}
	if s.Buffer != nil {
		if err := s.Buffer.Close(ctx); err != nil {
			log.Errorf("error closing buffer: %v", err)
		}
	}
	if err := s.Output.Close(ctx); err != nil {
		log.Errorf("error closing output: %v", err)
	}
}
