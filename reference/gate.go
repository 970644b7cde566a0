package reference

import (
	"math"
	"time"
)

// Decision classifies the buffered reference for one control tick.
type Decision uint8

const (
	// Ignore leaves the working values untouched.
	Ignore Decision = iota
	// Usable applies the reference and keeps it live for later ticks.
	Usable
	// PassthroughStop applies the reference one last time, then retires it.
	PassthroughStop
	// StaleStop forces zero working values and retires the reference.
	StaleStop
)

func (d Decision) String() string {
	switch d {
	case Ignore:
		return "ignore"
	case Usable:
		return "usable"
	case PassthroughStop:
		return "passthrough_stop"
	case StaleStop:
		return "stale_stop"
	}
	return "unknown"
}

// Classify decides how the control loop treats the snapshot at time now.
// A zero timeout short-circuits the age comparison: every pending
// reference is applied exactly once, however it is stamped. Pure;
// retiring the snapshot is the gate's job.
func Classify(s *Snapshot, now time.Time, timeout time.Duration) Decision {
	if s.State() != Pending || !s.Twist.Valid() {
		return Ignore
	}
	if timeout == 0 {
		return PassthroughStop
	}
	if now.Sub(s.Twist.Stamp) <= timeout {
		return Usable
	}
	return StaleStop
}

// Gate owns the working values the control loop feeds into the wheel
// decomposition. Not safe for concurrent use: only the control goroutine
// touches it.
type Gate struct {
	buf     *Buffer
	timeout time.Duration

	vx, vy, wz float64
}

// NewGate wires a gate to its buffer. The timeout is fixed for the life
// of the gate; reconfiguration builds a new one.
func NewGate(buf *Buffer, timeout time.Duration) *Gate {
	g := &Gate{buf: buf, timeout: timeout}
	g.Reset()
	return g
}

// Intake refreshes the working values from the buffer for the tick at
// time now and reports the decision taken.
func (g *Gate) Intake(now time.Time) Decision {
	s := g.buf.Latest()
	d := Classify(s, now, g.timeout)
	switch d {
	case Usable:
		g.vx, g.vy, g.wz = s.Twist.Linear.X, s.Twist.Linear.Y, s.Twist.Angular.Z
	case PassthroughStop:
		g.vx, g.vy, g.wz = s.Twist.Linear.X, s.Twist.Linear.Y, s.Twist.Angular.Z
		s.consume()
	case StaleStop:
		g.vx, g.vy, g.wz = 0, 0, 0
		s.consume()
	}
	return d
}

// Working returns the current working values. Non-numeric values mean no
// reference survived this tick's intake.
func (g *Gate) Working() (vx, vy, wz float64) {
	return g.vx, g.vy, g.wz
}

// Reset clears the working values to the non-numeric sentinel. The loop
// calls it at the end of every tick so a reference never outlives the
// decision that admitted it.
func (g *Gate) Reset() {
	nan := math.NaN()
	g.vx, g.vy, g.wz = nan, nan, nan
}
