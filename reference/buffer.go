package reference

import "sync/atomic"

// State tracks the consumption of a buffered reference.
type State uint32

const (
	// NoReference marks the armed, never written slot.
	NoReference State = iota
	// Pending marks a reference published and not yet retired.
	Pending
	// Consumed marks a reference the control loop has used up.
	Consumed
)

func (s State) String() string {
	switch s {
	case NoReference:
		return "no_reference"
	case Pending:
		return "pending"
	case Consumed:
		return "consumed"
	}
	return "unknown"
}

// Snapshot is one published reference plus its consumption state. The
// twist is immutable after publication; only the state advances, and only
// the control loop advances it.
type Snapshot struct {
	Twist Twist
	state atomic.Uint32
}

// State returns the snapshot's consumption state.
func (s *Snapshot) State() State { return State(s.state.Load()) }

func (s *Snapshot) consume() { s.state.Store(uint32(Consumed)) }

// Buffer is a single-slot, latest-wins handoff between command producers
// and the control loop. Publishing replaces the slot wholesale, so the
// consumer never observes a half-written reference; an unread reference
// overwritten by a newer one is simply lost.
type Buffer struct {
	cur atomic.Pointer[Snapshot]
}

// NewBuffer returns a buffer armed with the no-reference sentinel.
func NewBuffer() *Buffer {
	b := &Buffer{}
	b.Reset()
	return b
}

// Publish stores tw as the latest reference. Safe from any goroutine;
// when several race, the last completed publish wins.
func (b *Buffer) Publish(tw Twist) {
	s := &Snapshot{Twist: tw}
	s.state.Store(uint32(Pending))
	b.cur.Store(s)
}

// Latest returns the current snapshot. It never blocks and never
// allocates; the control loop calls it once per tick.
func (b *Buffer) Latest() *Snapshot {
	return b.cur.Load()
}

// Reset re-arms the buffer with the no-reference sentinel, discarding any
// pending reference. Called on activation.
func (b *Buffer) Reset() {
	b.cur.Store(&Snapshot{Twist: Unset()})
}
