// Package telemetry publishes per-tick controller state without ever
// making the control loop wait for a consumer.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HopeCollector/mecanum-drive-controller/mecanum"
)

// Snapshot is the controller state captured at the end of one tick.
// WheelVelocities report measured wheel state in rad/s in the fixed wheel
// order; the reference fields hold the post-gate working values and are
// non-numeric on ticks that carried no reference.
type Snapshot struct {
	Timestamp       time.Time
	WheelVelocities [mecanum.NumWheels]float64
	RefLinearX      float64
	RefLinearY      float64
	RefAngularZ     float64
}

// Publisher fans snapshots out on a strict no-wait basis: while a
// consumer holds the lock, the tick's snapshot is dropped, and a
// subscriber whose channel is full misses it. The publishing side never
// blocks.
type Publisher struct {
	mu      sync.Mutex
	latest  Snapshot
	present bool
	subs    map[int]chan Snapshot
	nextID  int
	dropped atomic.Uint64
}

func NewPublisher() *Publisher {
	return &Publisher{subs: map[int]chan Snapshot{}}
}

// TryPublish offers a snapshot to consumers. It returns false, dropping
// the snapshot, when the lock is contended.
func (p *Publisher) TryPublish(s Snapshot) bool {
	if !p.mu.TryLock() {
		p.dropped.Add(1)
		return false
	}
	defer p.mu.Unlock()
	p.latest = s
	p.present = true
	for _, ch := range p.subs {
		select {
		case ch <- s:
		default: // slow subscriber, skip
		}
	}
	return true
}

// Latest returns the most recently published snapshot.
func (p *Publisher) Latest() (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.present
}

// Subscribe registers a snapshot channel of the given capacity. The
// publisher never waits on it; a full channel misses snapshots. The
// returned cancel unregisters the subscription and closes the channel.
func (p *Publisher) Subscribe(capacity int) (<-chan Snapshot, func()) {
	if capacity < 1 {
		capacity = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Snapshot, capacity)
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
}

// Dropped reports how many snapshots were lost to lock contention.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}
