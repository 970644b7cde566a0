package canmotor

import (
	"context"
	"sync"
	"testing"

	"github.com/go-daq/canbus"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"github.com/HopeCollector/mecanum-drive-controller/mecanum"
)

type fakeSender struct {
	mu     sync.Mutex
	frames []canbus.Frame
	err    error
	closed bool
}

func (f *fakeSender) Send(frame canbus.Frame) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.frames = append(f.frames, frame)
	return len(frame.Data), nil
}

func (f *fakeSender) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSender) sent() []canbus.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]canbus.Frame{}, f.frames...)
}

func TestWriterFanout(t *testing.T) {
	fake := &fakeSender{}
	w := &Writer{sock: fake, ids: DefaultIDs(), logger: logging.NewTestLogger(t)}

	// ten rad/s rounds to 95 RPM
	err := w.WriteVelocities(context.Background(), [mecanum.NumWheels]float64{10, -10, 10, -10})
	test.That(t, err, test.ShouldBeNil)

	frames := fake.sent()
	test.That(t, len(frames), test.ShouldEqual, mecanum.NumWheels)
	ids := DefaultIDs()
	for wheel := mecanum.FrontLeft; wheel < mecanum.NumWheels; wheel++ {
		rpm := int16(95)
		if wheel == mecanum.FrontRight || wheel == mecanum.RearLeft {
			rpm = -95
		}
		want := Command{State: kStateEnable, Mode: kModeSpeed, RPM: rpm, Current: kCurrentLimit}
		test.That(t, frames[wheel], test.ShouldResemble, want.Frame(ids[wheel]))
	}
}

func TestWriterRelease(t *testing.T) {
	fake := &fakeSender{}
	w := &Writer{sock: fake, ids: DefaultIDs(), logger: logging.NewTestLogger(t)}

	test.That(t, w.Release(context.Background()), test.ShouldBeNil)
	frames := fake.sent()
	test.That(t, len(frames), test.ShouldEqual, mecanum.NumWheels)
	for _, frame := range frames {
		test.That(t, frame.Data[0], test.ShouldEqual, byte(0x00))
	}
}

func TestWriterSendErrors(t *testing.T) {
	fake := &fakeSender{err: errors.New("no buffer space available")}
	w := &Writer{sock: fake, ids: DefaultIDs(), logger: logging.NewTestLogger(t)}

	err := w.WriteVelocities(context.Background(), [mecanum.NumWheels]float64{1, 1, 1, 1})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, mecanum.NumWheels)
}

func TestWriterClose(t *testing.T) {
	fake := &fakeSender{}
	w := &Writer{sock: fake, ids: DefaultIDs(), logger: logging.NewTestLogger(t)}
	test.That(t, w.Close(), test.ShouldBeNil)
	test.That(t, fake.closed, test.ShouldBeTrue)
}
