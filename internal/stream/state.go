package stream

import "sync/atomic"

// State is one of the Stream's lifecycle states.
type State int32

const (
	StateBuilding State = iota
	StateRunning
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type stateBox struct {
	v int32
}

func (b *stateBox) set(s State) { atomic.StoreInt32(&b.v, int32(s)) }
func (b *stateBox) get() State  { return State(atomic.LoadInt32(&b.v)) }
