package canmotor

import (
	"context"

	"github.com/go-daq/canbus"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"

	"github.com/HopeCollector/mecanum-drive-controller/mecanum"
)

// frameSender is the slice of canbus.Socket the writer needs; tests
// substitute a fake.
type frameSender interface {
	Send(frame canbus.Frame) (int, error)
	Close() error
}

// Writer fans wheel velocity commands out to the four motor controllers.
// It is the control loop's wheel sink.
type Writer struct {
	sock   frameSender
	ids    IDs
	logger logging.Logger
}

// NewWriter opens a send socket on the named CAN interface.
func NewWriter(channel string, ids IDs, logger logging.Logger) (*Writer, error) {
	sock, err := canbus.New()
	if err != nil {
		return nil, errors.Wrap(err, "opening CAN send socket")
	}
	if err := sock.Bind(channel); err != nil {
		return nil, multierr.Combine(
			errors.Wrapf(err, "binding CAN send socket to %q", channel),
			sock.Close(),
		)
	}
	return &Writer{sock: sock, ids: ids, logger: logger}, nil
}

// WriteVelocities commands the four wheel angular velocities in rad/s.
// A failed wheel is reported without holding back the others.
func (w *Writer) WriteVelocities(ctx context.Context, wheels [mecanum.NumWheels]float64) error {
	var errs error
	for wheel := mecanum.FrontLeft; wheel < mecanum.NumWheels; wheel++ {
		cmd := Command{
			State:   kStateEnable,
			Mode:    kModeSpeed,
			RPM:     clampRPM(wheels[wheel] * radPerSecToRPM),
			Current: kCurrentLimit,
		}
		if _, err := w.sock.Send(cmd.Frame(w.ids[wheel])); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "commanding %s wheel", wheel))
		}
	}
	return errs
}

// Release disables the motor controllers, letting the wheels spin free.
func (w *Writer) Release(ctx context.Context) error {
	var errs error
	for wheel := mecanum.FrontLeft; wheel < mecanum.NumWheels; wheel++ {
		cmd := Command{State: kStateDisable, Mode: kModeSpeed}
		if _, err := w.sock.Send(cmd.Frame(w.ids[wheel])); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "releasing %s wheel", wheel))
		}
	}
	return errs
}

// Close releases the bus socket.
func (w *Writer) Close() error {
	return w.sock.Close()
}
