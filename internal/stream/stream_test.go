package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/impl/buffer/memory"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/metrics"
	"github.com/ark-flow/arkflow/internal/pipeline"
)

// fakeInput plays back a scripted sequence of reads and returns errs.EOF
// once the script is exhausted.
type fakeInput struct {
	mu           sync.Mutex
	connectCalls int32
	connectErrs  []error // nth call returns connectErrs[n], empty => always nil
	reads        []readResult
	idx          int
	closed       int32
}

type readResult struct {
	batch message.Batch
	ack   message.Ack
	err   error
}

func (f *fakeInput) Connect(context.Context) error {
	n := atomic.AddInt32(&f.connectCalls, 1) - 1
	if int(n) < len(f.connectErrs) {
		return f.connectErrs[n]
	}
	return nil
}

func (f *fakeInput) Read(ctx context.Context) (message.Batch, message.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.reads) {
		return message.Batch{}, nil, errs.EOF
	}
	r := f.reads[f.idx]
	f.idx++
	return r.batch, r.ack, r.err
}

func (f *fakeInput) Close(context.Context) error {
	atomic.AddInt32(&f.closed, 1)
	return nil
}

// fakeOutput records every batch written, optionally failing writes
// matching a predicate.
type fakeOutput struct {
	mu      sync.Mutex
	written []message.Batch
	failFn  func(message.Batch) bool
	closed  int32
}

func (f *fakeOutput) Connect(context.Context) error { return nil }

func (f *fakeOutput) Write(_ context.Context, b message.Batch) error {
	if f.failFn != nil && f.failFn(b) {
		return errors.New("simulated write failure")
	}
	f.mu.Lock()
	f.written = append(f.written, b)
	f.mu.Unlock()
	return nil
}

func (f *fakeOutput) Close(context.Context) error {
	atomic.AddInt32(&f.closed, 1)
	return nil
}

func (f *fakeOutput) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

// fnProcessor adapts a function to component.Processor.
type fnProcessor struct {
	fn func(message.Batch) ([]message.Batch, error)
}

func (p fnProcessor) Process(_ context.Context, b message.Batch) ([]message.Batch, error) {
	return p.fn(b)
}
func (p fnProcessor) Close(context.Context) error { return nil }

func identityPipeline() *pipeline.Pipeline {
	return pipeline.New([]component.Processor{fnProcessor{fn: func(b message.Batch) ([]message.Batch, error) {
		return []message.Batch{b}, nil
	}}})
}

func countingAck(n *int32) message.Ack {
	return message.AckFunc(func() { atomic.AddInt32(n, 1) })
}

func runWithTimeout(t *testing.T, s *Stream, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(timeout + time.Second):
		t.Fatalf("Run did not return within %s", timeout)
	}
}

// S1: happy path.
func TestStreamHappyPath(t *testing.T) {
	var acked int32
	in := &fakeInput{reads: []readResult{
		{batch: message.FromString("a"), ack: countingAck(&acked)},
		{batch: message.FromString("b"), ack: countingAck(&acked)},
		{batch: message.FromString("c"), ack: countingAck(&acked)},
	}}
	out := &fakeOutput{}

	s := &Stream{
		Name:      "s1",
		Input:     in,
		Pipeline:  identityPipeline(),
		Output:    out,
		ThreadNum: 2,
	}
	runWithTimeout(t, s, 2*time.Second)

	if s.State() != StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}
	if got := out.count(); got != 3 {
		t.Fatalf("output wrote %d batches, want 3", got)
	}
	if got := atomic.LoadInt32(&acked); got != 3 {
		t.Fatalf("acked = %d, want 3", got)
	}
	if atomic.LoadInt32(&in.closed) != 1 || atomic.LoadInt32(&out.closed) != 1 {
		t.Fatalf("expected input and output each closed once")
	}
}

// S2: processor error drops the bad batch, others still flow through.
func TestStreamProcessorErrorDropsBatch(t *testing.T) {
	var acked int32
	in := &fakeInput{reads: []readResult{
		{batch: message.FromString("ok1"), ack: countingAck(&acked)},
		{batch: message.FromString("bad"), ack: countingAck(&acked)},
		{batch: message.FromString("ok2"), ack: countingAck(&acked)},
	}}
	out := &fakeOutput{}

	errProc := fnProcessor{fn: func(b message.Batch) ([]message.Batch, error) {
		strs, _ := b.AsStrings()
		if len(strs) == 1 && strs[0] == "bad" {
			return nil, errors.New("boom")
		}
		return []message.Batch{b}, nil
	}}

	s := &Stream{
		Name:      "s2",
		Input:     in,
		Pipeline:  pipeline.New([]component.Processor{errProc}),
		Output:    out,
		ThreadNum: 1,
	}
	runWithTimeout(t, s, 2*time.Second)

	if got := out.count(); got != 2 {
		t.Fatalf("output wrote %d batches, want 2", got)
	}
	if got := atomic.LoadInt32(&acked); got != 2 {
		t.Fatalf("acked = %d, want 2", got)
	}
}

// S3: partial output failure leaves the input batch unacked.
func TestStreamPartialOutputFailureNotAcked(t *testing.T) {
	var acked int32
	in := &fakeInput{reads: []readResult{
		{batch: message.FromString("in"), ack: countingAck(&acked)},
	}}

	out := &fakeOutput{failFn: func(b message.Batch) bool {
		strs, _ := b.AsStrings()
		return len(strs) == 1 && strs[0] == "second"
	}}

	splitProc := fnProcessor{fn: func(message.Batch) ([]message.Batch, error) {
		return []message.Batch{message.FromString("first"), message.FromString("second")}, nil
	}}

	s := &Stream{
		Name:      "s3",
		Input:     in,
		Pipeline:  pipeline.New([]component.Processor{splitProc}),
		Output:    out,
		ThreadNum: 1,
	}
	runWithTimeout(t, s, 2*time.Second)

	if got := out.count(); got != 1 {
		t.Fatalf("output wrote %d batches, want 1 (first only)", got)
	}
	if got := atomic.LoadInt32(&acked); got != 0 {
		t.Fatalf("acked = %d, want 0 (partial failure must not ack)", got)
	}
}

// S4: reconnect on Disconnection; the reconnect loop succeeds on its third
// connect() call, four calls in total with the initial one.
func TestStreamReconnectsOnDisconnection(t *testing.T) {
	ReconnectInterval = 10 * time.Millisecond
	defer func() { ReconnectInterval = 5 * time.Second }()

	var acked int32
	in := &fakeInput{
		connectErrs: []error{nil, errors.New("still down"), errors.New("still down"), nil},
		reads: []readResult{
			{err: errs.Disconnection(errors.New("lost connection"))},
			{batch: message.FromString("after-reconnect"), ack: countingAck(&acked)},
		},
	}
	out := &fakeOutput{}

	s := &Stream{
		Name:      "s4",
		Input:     in,
		Pipeline:  identityPipeline(),
		Output:    out,
		ThreadNum: 1,
	}
	runWithTimeout(t, s, 2*time.Second)

	if got := atomic.LoadInt32(&in.connectCalls); got != 4 {
		t.Fatalf("connect() called %d times, want 4 (1 initial + 3 in reconnect loop)", got)
	}
	if got := out.count(); got != 1 {
		t.Fatalf("output wrote %d batches, want 1", got)
	}
	if got := atomic.LoadInt32(&acked); got != 1 {
		t.Fatalf("acked = %d, want 1", got)
	}
}

// Startup failure: Connect error on Input aborts before Running.
func TestStreamStartupFailureOnInputConnect(t *testing.T) {
	in := &fakeInput{connectErrs: []error{errors.New("down")}}
	out := &fakeOutput{}

	s := &Stream{Name: "fail", Input: in, Pipeline: identityPipeline(), Output: out, ThreadNum: 1}
	if err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected startup error")
	}
	if s.State() != StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}
	if atomic.LoadInt32(&out.closed) != 0 {
		t.Fatalf("output should not be closed when it never connected")
	}
}

// Shutdown via context cancellation while the input is blocked in Read
// returns promptly and leaves the stream Closed.
func TestStreamGracefulShutdownOnCancel(t *testing.T) {
	blockRead := make(chan struct{})
	in := &blockingInput{block: blockRead}
	out := &fakeOutput{}

	s := &Stream{Name: "cancel", Input: in, Pipeline: identityPipeline(), Output: out, ThreadNum: 1}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	close(blockRead)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
	if s.State() != StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}
}

type blockingInput struct {
	block chan struct{}
}

func (b *blockingInput) Connect(context.Context) error { return nil }
func (b *blockingInput) Read(ctx context.Context) (message.Batch, message.Ack, error) {
	select {
	case <-b.block:
		return message.Batch{}, nil, errs.EOF
	case <-ctx.Done():
		return message.Batch{}, nil, ctx.Err()
	}
}
func (b *blockingInput) Close(context.Context) error { return nil }

func gaugeValue(t *testing.T, g interface {
	Write(*dto.Metric) error
}) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("reading gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

// A buffered stream draining cleanly on input EOF must not deadlock: a
// capacity wake can already be sitting in the buffer's size-1 notify
// channel when EndOfInput fires, dropping the ticker's final wake.
func TestStreamBufferedDrainsOnEOFWithoutDeadlock(t *testing.T) {
	var acked int32
	in := &fakeInput{reads: []readResult{
		{batch: message.FromString("a"), ack: countingAck(&acked)},
		{batch: message.FromString("b"), ack: countingAck(&acked)},
		{batch: message.FromString("c"), ack: countingAck(&acked)},
	}}
	out := &fakeOutput{}
	buf, err := memory.New(memory.Config{Capacity: 2, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}

	s := &Stream{
		Name:      "buffered",
		Input:     in,
		Pipeline:  identityPipeline(),
		Output:    out,
		Buffer:    buf,
		ThreadNum: 1,
	}
	runWithTimeout(t, s, 2*time.Second)

	if s.State() != StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}
	if got := atomic.LoadInt32(&acked); got != 3 {
		t.Fatalf("acked = %d, want 3", got)
	}
}

// A pipeline that filters out every output batch is a vacuous success:
// the input batch must still be acked, both with and without a buffer.
func TestStreamZeroOutputBatchIsAcked(t *testing.T) {
	dropAll := fnProcessor{fn: func(message.Batch) ([]message.Batch, error) {
		return nil, nil
	}}

	t.Run("unbuffered", func(t *testing.T) {
		var acked int32
		in := &fakeInput{reads: []readResult{
			{batch: message.FromString("drop-me"), ack: countingAck(&acked)},
		}}
		out := &fakeOutput{}

		s := &Stream{
			Name:      "zero-output",
			Input:     in,
			Pipeline:  pipeline.New([]component.Processor{dropAll}),
			Output:    out,
			ThreadNum: 1,
		}
		runWithTimeout(t, s, 2*time.Second)

		if got := out.count(); got != 0 {
			t.Fatalf("output wrote %d batches, want 0", got)
		}
		if got := atomic.LoadInt32(&acked); got != 1 {
			t.Fatalf("acked = %d, want 1 (zero-output batch is a vacuous success)", got)
		}
	})

	t.Run("buffered", func(t *testing.T) {
		var acked int32
		in := &fakeInput{reads: []readResult{
			{batch: message.FromString("drop-me"), ack: countingAck(&acked)},
		}}
		out := &fakeOutput{}
		buf, err := memory.New(memory.Config{Capacity: 4, Timeout: 50 * time.Millisecond})
		if err != nil {
			t.Fatalf("memory.New: %v", err)
		}

		s := &Stream{
			Name:      "buffered-zero-output",
			Input:     in,
			Pipeline:  pipeline.New([]component.Processor{dropAll}),
			Output:    out,
			Buffer:    buf,
			ThreadNum: 1,
		}
		runWithTimeout(t, s, 2*time.Second)

		if got := atomic.LoadInt32(&acked); got != 1 {
			t.Fatalf("acked = %d, want 1", got)
		}
	})
}

// InFlight must return to baseline once a run completes, in both the
// unbuffered and buffered paths, including batches filtered to zero
// outputs, rejected by a buffer write, or failed at the output.
func TestStreamInFlightReturnsToBaseline(t *testing.T) {
	t.Run("unbuffered", func(t *testing.T) {
		var acked int32
		in := &fakeInput{reads: []readResult{
			{batch: message.FromString("a"), ack: countingAck(&acked)},
			{batch: message.FromString("b"), ack: countingAck(&acked)},
		}}
		out := &fakeOutput{}
		m := metrics.Noop()

		s := &Stream{
			Name:      "inflight-unbuffered",
			Input:     in,
			Pipeline:  identityPipeline(),
			Output:    out,
			ThreadNum: 1,
			Metrics:   m,
		}
		runWithTimeout(t, s, 2*time.Second)

		if got := gaugeValue(t, m.InFlight); got != 0 {
			t.Fatalf("InFlight = %v, want 0", got)
		}
	})

	t.Run("buffered with a zero-output batch", func(t *testing.T) {
		var acked int32
		in := &fakeInput{reads: []readResult{
			{batch: message.FromString("keep"), ack: countingAck(&acked)},
			{batch: message.FromString("drop"), ack: countingAck(&acked)},
		}}
		out := &fakeOutput{}
		buf, err := memory.New(memory.Config{Capacity: 4, Timeout: 20 * time.Millisecond})
		if err != nil {
			t.Fatalf("memory.New: %v", err)
		}
		m := metrics.Noop()

		filterDrops := fnProcessor{fn: func(b message.Batch) ([]message.Batch, error) {
			strs, _ := b.AsStrings()
			if len(strs) == 1 && strs[0] == "drop" {
				return nil, nil
			}
			return []message.Batch{b}, nil
		}}

		s := &Stream{
			Name:      "inflight-buffered-zero-output",
			Input:     in,
			Pipeline:  pipeline.New([]component.Processor{filterDrops}),
			Output:    out,
			Buffer:    buf,
			ThreadNum: 1,
			Metrics:   m,
		}
		runWithTimeout(t, s, 2*time.Second)

		if got := gaugeValue(t, m.InFlight); got != 0 {
			t.Fatalf("InFlight = %v, want 0", got)
		}
	})

	t.Run("buffered with a buffer write error", func(t *testing.T) {
		var acked int32
		in := &fakeInput{reads: []readResult{
			{batch: message.FromString("keep"), ack: countingAck(&acked)},
			{batch: message.FromString("rejected"), ack: countingAck(&acked)},
		}}
		out := &fakeOutput{}
		buf := newFakeBuffer(4, func(b message.Batch) bool {
			strs, _ := b.AsStrings()
			return len(strs) == 1 && strs[0] == "rejected"
		})
		m := metrics.Noop()

		s := &Stream{
			Name:      "inflight-buffered-write-error",
			Input:     in,
			Pipeline:  identityPipeline(),
			Output:    out,
			Buffer:    buf,
			ThreadNum: 1,
			Metrics:   m,
		}
		runWithTimeout(t, s, 2*time.Second)

		if got := gaugeValue(t, m.InFlight); got != 0 {
			t.Fatalf("InFlight = %v, want 0", got)
		}
		if got := atomic.LoadInt32(&acked); got != 1 {
			t.Fatalf("acked = %d, want 1 (only \"keep\" reaches the buffer)", got)
		}
	})

	t.Run("buffered with an output write error", func(t *testing.T) {
		var acked int32
		in := &fakeInput{reads: []readResult{
			{batch: message.FromString("lost"), ack: countingAck(&acked)},
		}}
		out := &fakeOutput{failFn: func(message.Batch) bool { return true }}
		buf, err := memory.New(memory.Config{Capacity: 4, Timeout: 20 * time.Millisecond})
		if err != nil {
			t.Fatalf("memory.New: %v", err)
		}
		m := metrics.Noop()

		s := &Stream{
			Name:      "inflight-buffered-output-error",
			Input:     in,
			Pipeline:  identityPipeline(),
			Output:    out,
			Buffer:    buf,
			ThreadNum: 1,
			Metrics:   m,
		}
		runWithTimeout(t, s, 2*time.Second)

		if got := gaugeValue(t, m.InFlight); got != 0 {
			t.Fatalf("InFlight = %v, want 0", got)
		}
		if got := atomic.LoadInt32(&acked); got != 0 {
			t.Fatalf("acked = %d, want 0 (output write failed, batch left unacked)", got)
		}
	})
}

// fakeBuffer is a minimal component.Buffer double: a buffered channel of
// (Batch, Ack) pairs with an injectable Write failure, no coalescing.
type fakeBuffer struct {
	ch       chan entryPair
	failFn   func(message.Batch) bool
	doneOnce sync.Once
}

type entryPair struct {
	batch message.Batch
	ack   message.Ack
}

func newFakeBuffer(capacity int, failFn func(message.Batch) bool) *fakeBuffer {
	return &fakeBuffer{ch: make(chan entryPair, capacity), failFn: failFn}
}

func (f *fakeBuffer) Write(_ context.Context, b message.Batch, ack message.Ack) error {
	if f.failFn != nil && f.failFn(b) {
		return errors.New("simulated buffer write failure")
	}
	f.ch <- entryPair{batch: b, ack: ack}
	return nil
}

func (f *fakeBuffer) Read(ctx context.Context) (message.Batch, message.Ack, error) {
	select {
	case e, ok := <-f.ch:
		if !ok {
			return message.Batch{}, nil, errs.EOF
		}
		return e.batch, e.ack, nil
	case <-ctx.Done():
		return message.Batch{}, nil, ctx.Err()
	}
}

func (f *fakeBuffer) Flush(context.Context) error { return nil }
func (f *fakeBuffer) EndOfInput()                 { f.doneOnce.Do(func() { close(f.ch) }) }
func (f *fakeBuffer) Close(context.Context) error { return nil }
