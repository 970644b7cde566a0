package canmotor

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/go-daq/canbus"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"
	"golang.org/x/sys/unix"

	"github.com/HopeCollector/mecanum-drive-controller/mecanum"
)

// Feedback caches the most recent wheel speed telemetry for the
// diagnostic snapshot. The measurements never close a control loop.
type Feedback struct {
	sock    *canbus.Socket
	logger  logging.Logger
	cancel  context.CancelFunc
	workers sync.WaitGroup

	mu     sync.RWMutex
	speeds [mecanum.NumWheels]float64
}

// NewFeedback opens a receive socket filtered to the wheel speed
// broadcast and starts the listener.
func NewFeedback(channel string, logger logging.Logger) (*Feedback, error) {
	sock, err := canbus.New()
	if err != nil {
		return nil, errors.Wrap(err, "opening CAN receive socket")
	}
	if err := sock.SetFilters([]unix.CanFilter{
		{Id: kCanIdTelemWheelSpeed, Mask: unix.CAN_SFF_MASK},
	}); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "installing CAN filter"), sock.Close())
	}
	if err := sock.Bind(channel); err != nil {
		return nil, multierr.Combine(
			errors.Wrapf(err, "binding CAN receive socket to %q", channel),
			sock.Close(),
		)
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	f := &Feedback{sock: sock, logger: logger, cancel: cancel}
	f.workers.Add(1)
	goutils.ManagedGo(func() { f.receive(cancelCtx) }, f.workers.Done)
	return f, nil
}

// WheelVelocities returns the latest measured wheel speeds in rad/s.
func (f *Feedback) WheelVelocities() [mecanum.NumWheels]float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.speeds
}

// Close stops the listener and closes the socket. Closing the socket is
// what unblocks a pending receive.
func (f *Feedback) Close() error {
	f.cancel()
	err := f.sock.Close()
	f.workers.Wait()
	return err
}

func (f *Feedback) receive(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		frame, err := f.sock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Errorw("CAN receive failed", "error", err)
			if !goutils.SelectContextOrWait(ctx, 100*time.Millisecond) {
				return
			}
			continue
		}
		f.ingest(frame)
	}
}

// ingest decodes one wheel speed broadcast. The rear pair arrives in
// left-right order, opposite to the command array order.
func (f *Feedback) ingest(frame canbus.Frame) {
	if frame.ID != kCanIdTelemWheelSpeed || len(frame.Data) < 8 {
		return
	}
	var speeds [mecanum.NumWheels]float64
	speeds[mecanum.FrontLeft] = decodeWheelSpeed(frame.Data[0:2])
	speeds[mecanum.FrontRight] = decodeWheelSpeed(frame.Data[2:4])
	speeds[mecanum.RearLeft] = decodeWheelSpeed(frame.Data[4:6])
	speeds[mecanum.RearRight] = decodeWheelSpeed(frame.Data[6:8])

	f.mu.Lock()
	f.speeds = speeds
	f.mu.Unlock()
}

// decodeWheelSpeed converts one little endian int16 signal to rad/s.
func decodeWheelSpeed(b []byte) float64 {
	rpm := float64(int16(binary.LittleEndian.Uint16(b))) * kWheelSpeedScale
	return rpm * rpmToRadPerSec
}
