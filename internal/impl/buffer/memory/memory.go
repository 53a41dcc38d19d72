// Package memory implements the "memory" buffer type tag: a bounded
// queue of (Batch, Ack) pairs that coalesces into a merged batch on
// capacity or on a timer, grounded on
// arkflow-plugin::buffer::memory::MemoryBuffer (original_source).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "memory" buffer's configuration fragment.
type Config struct {
	Capacity uint32        `yaml:"capacity"`
	Timeout  time.Duration `yaml:"timeout"`
}

type entry struct {
	batch message.Batch
	ack   message.Ack
}

// Buffer is the in-memory batch buffer: it queues writes and coalesces
// them into one merged read on capacity or on an idle timer.
type Buffer struct {
	capacity int
	timeout  time.Duration

	mu    sync.Mutex
	queue []entry

	notify chan struct{}
	flush  chan struct{}
	done   chan struct{}
	closed chan struct{}
	once   sync.Once
}

// New constructs a memory Buffer from cfg.
func New(cfg Config) (*Buffer, error) {
	if cfg.Capacity == 0 {
		return nil, errs.Config("memory buffer: capacity must be > 0")
	}
	if cfg.Timeout <= 0 {
		return nil, errs.Config("memory buffer: timeout must be > 0")
	}
	b := &Buffer{
		capacity: int(cfg.Capacity),
		timeout:  cfg.Timeout,
		notify:   make(chan struct{}, 1),
		flush:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		closed:   make(chan struct{}),
	}
	go b.ticker()
	return b, nil
}

// ticker resets on every flush and, on firing, wakes a reader. On close
// it exits after sending one final wakeup so pending reads unblock.
func (b *Buffer) ticker() {
	defer close(b.closed)
	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			b.wake()
			timer.Reset(b.timeout)
		case <-b.flush:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(b.timeout)
		case <-b.done:
			b.wake()
			return
		}
	}
}

func (b *Buffer) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Write enqueues (batch, ack) and, if the queue reaches capacity-1,
// wakes a reader immediately rather than waiting for the timer.
func (b *Buffer) Write(_ context.Context, batch message.Batch, ack message.Ack) error {
	b.mu.Lock()
	b.queue = append(b.queue, entry{batch: batch, ack: ack})
	n := len(b.queue)
	b.mu.Unlock()

	if n >= b.capacity-1 {
		b.wake()
	}
	return nil
}

// Read blocks until the ticker or a capacity-triggered wake fires, or the
// buffer is closed, then drains and concatenates the whole queue into one
// merged batch with a fan-out Ack. Returns errs.EOF once the buffer is
// closed and the queue is drained.
//
// It also selects on b.closed directly: notify is a size-1 channel and a
// wake dropped by wake()'s default case (one already pending) must not
// strand a reader once EndOfInput has fired and the queue is empty.
func (b *Buffer) Read(ctx context.Context) (message.Batch, message.Ack, error) {
	var pending []entry
	for len(pending) == 0 {
		select {
		case <-b.notify:
		case <-b.closed:
		case <-ctx.Done():
			return message.Batch{}, nil, ctx.Err()
		}

		b.mu.Lock()
		pending = b.queue
		b.queue = nil
		b.mu.Unlock()

		if len(pending) == 0 {
			select {
			case <-b.closed:
				return message.Batch{}, nil, errs.EOF
			default:
				// Timer fired with nothing queued: a routine idle tick, not
				// an error. Loop back to waiting for the next notify or close.
			}
		}
	}

	batches := make([]message.Batch, len(pending))
	acks := make([]message.Ack, len(pending))
	for i, e := range pending {
		batches[i] = e.batch
		acks[i] = e.ack
	}

	merged, err := message.Concat(batches)
	if err != nil {
		return message.Batch{}, nil, errs.Process(err, "memory buffer: merging batches")
	}
	return merged, message.FanOut(acks...), nil
}

// Flush requests an immediate drain by resetting the idle timer early.
func (b *Buffer) Flush(context.Context) error {
	select {
	case b.flush <- struct{}{}:
	default:
	}
	b.wake()
	return nil
}

// EndOfInput signals that no more Writes will occur, stopping the ticker
// goroutine, which sends one final wakeup so any blocked Read returns
// errs.EOF once the queue is depleted. Idempotent.
func (b *Buffer) EndOfInput() {
	b.once.Do(func() { close(b.done) })
}

// Close releases the buffer's resources. Idempotent; safe to call
// whether or not EndOfInput was already called.
func (b *Buffer) Close(context.Context) error {
	b.EndOfInput()
	return nil
}

func init() {
	registry.Buffers.MustRegister("memory", func(raw component.Decoder) (component.Buffer, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("memory buffer: %v", err)
		}
		return New(cfg)
	})
}
