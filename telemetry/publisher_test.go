package telemetry

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func snap(x float64) Snapshot {
	return Snapshot{
		Timestamp:       time.Date(2023, 8, 1, 12, 0, 0, 0, time.UTC),
		WheelVelocities: [4]float64{x, -x, x, -x},
		RefLinearX:      x,
	}
}

func TestLatest(t *testing.T) {
	p := NewPublisher()

	_, ok := p.Latest()
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, p.TryPublish(snap(1)), test.ShouldBeTrue)
	got, ok := p.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.RefLinearX, test.ShouldEqual, 1.0)

	test.That(t, p.TryPublish(snap(2)), test.ShouldBeTrue)
	got, _ = p.Latest()
	test.That(t, got.RefLinearX, test.ShouldEqual, 2.0)
}

func TestTryPublishNeverWaits(t *testing.T) {
	p := NewPublisher()

	// a consumer holding the lock costs us the snapshot, not a stall
	p.mu.Lock()
	test.That(t, p.TryPublish(snap(1)), test.ShouldBeFalse)
	test.That(t, p.Dropped(), test.ShouldEqual, uint64(1))
	p.mu.Unlock()

	test.That(t, p.TryPublish(snap(2)), test.ShouldBeTrue)
	got, ok := p.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.RefLinearX, test.ShouldEqual, 2.0)
	test.That(t, p.Dropped(), test.ShouldEqual, uint64(1))
}

func TestSubscribeDropsOnFull(t *testing.T) {
	p := NewPublisher()
	ch, cancel := p.Subscribe(1)
	defer cancel()

	test.That(t, p.TryPublish(snap(1)), test.ShouldBeTrue)
	// the channel is full now; the publisher moves on without waiting
	test.That(t, p.TryPublish(snap(2)), test.ShouldBeTrue)

	got := <-ch
	test.That(t, got.RefLinearX, test.ShouldEqual, 1.0)
	select {
	case s := <-ch:
		t.Fatalf("unexpected snapshot %v", s)
	default:
	}

	test.That(t, p.TryPublish(snap(3)), test.ShouldBeTrue)
	got = <-ch
	test.That(t, got.RefLinearX, test.ShouldEqual, 3.0)
}

func TestSubscribeCancel(t *testing.T) {
	p := NewPublisher()
	ch, cancel := p.Subscribe(1)

	p.TryPublish(snap(1))
	cancel()
	cancel() // idempotent

	// drain the buffered snapshot, then observe the close
	<-ch
	_, open := <-ch
	test.That(t, open, test.ShouldBeFalse)

	// publishing after cancel reaches nobody but still succeeds
	test.That(t, p.TryPublish(snap(2)), test.ShouldBeTrue)
}
