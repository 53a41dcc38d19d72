package message

import "sync"

// Ack is a one-shot, idempotent acknowledgement handle attached to every
// batch produced by an Input. Implementations must be safe for
// concurrent use.
type Ack interface {
	// Ack marks the batch as fully, successfully delivered. Idempotent:
	// calling it more than once has no additional effect.
	Ack()
}

// AckFunc adapts a plain function to the Ack interface.
type AckFunc func()

// Ack implements Ack.
func (f AckFunc) Ack() {
	if f != nil {
		f()
	}
}

// noopAck is used for sources without delivery tracking.
type noopAck struct{}

func (noopAck) Ack() {}

// Noop is the shared Ack for sources that do not track delivery.
var Noop Ack = noopAck{}

// once wraps an Ack so that only the first call to Ack() takes effect,
// making arbitrary Ack implementations idempotent under concurrent
// invocation.
type once struct {
	mu   sync.Mutex
	done bool
	ack  Ack
}

// Once wraps ack so repeated calls to Ack() after the first are no-ops.
func Once(ack Ack) Ack {
	return &once{ack: ack}
}

func (o *once) Ack() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return
	}
	o.done = true
	o.ack.Ack()
}

// FanOut builds an aggregate Ack that, when acked exactly once, acks
// every one of the given constituent Acks exactly once. Used when a
// Buffer merges N source batches into one.
func FanOut(acks ...Ack) Ack {
	cp := make([]Ack, len(acks))
	copy(cp, acks)
	return Once(AckFunc(func() {
		for _, a := range cp {
			a.Ack()
		}
	}))
}

// Shared tracks a single input batch's Ack across N split output
// batches: it must be acked only once, after the first successful write
// of any one of the N outputs. Each output batch calls Release(true) on
// success or Release(false) on failure; the underlying Ack fires on the
// first successful Release and further Releases are no-ops.
type Shared struct {
	once sync.Once
	ack  Ack
}

// NewShared wraps ack for release across split outputs. It keeps no
// count of the outputs: the first successful Release fires ack, and a
// later failed Release does not undo it.
func NewShared(ack Ack) *Shared {
	return &Shared{ack: ack}
}

// Release reports one output batch's write outcome. The wrapped Ack
// fires at most once, on the first successful Release.
func (s *Shared) Release(success bool) {
	if !success {
		return
	}
	s.once.Do(func() {
		s.ack.Ack()
	})
}
