// Package drive runs the mecanum control loop: a fixed-period pipeline
// that turns buffered body twist references into per-wheel velocity
// commands.
package drive

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"

	"github.com/HopeCollector/mecanum-drive-controller/mecanum"
	"github.com/HopeCollector/mecanum-drive-controller/reference"
	"github.com/HopeCollector/mecanum-drive-controller/telemetry"
)

// WheelWriter pushes velocity commands to the wheel hardware.
type WheelWriter interface {
	// WriteVelocities commands the four wheel angular velocities, rad/s.
	WriteVelocities(ctx context.Context, wheels [mecanum.NumWheels]float64) error
	// Release returns the wheels to their passive state.
	Release(ctx context.Context) error
}

// WheelStateReader reports the measured wheel angular velocities in
// rad/s. Diagnostic only; the loop never closes control around it.
type WheelStateReader interface {
	WheelVelocities() [mecanum.NumWheels]float64
}

// Config parameterizes one activation of the controller.
type Config struct {
	Geometry         mecanum.Geometry
	ReferenceTimeout time.Duration
	Period           time.Duration
}

// Controller owns the control loop. Lifecycle: Configure while inactive,
// Activate to start the loop, Deactivate to stop it and release the
// wheels. Intake is safe from any goroutine at any point in the
// lifecycle.
type Controller struct {
	clk    clock.Clock
	logger logging.Logger

	buf       *reference.Buffer
	pub       *telemetry.Publisher
	moving    atomic.Bool
	timeoutNs atomic.Int64
	periodNs  atomic.Int64

	// mu serializes the lifecycle; the loop goroutine itself never takes
	// it, so Deactivate may hold it across the join.
	mu         sync.Mutex
	cfg        Config
	writer     WheelWriter
	states     WheelStateReader
	gate       *reference.Gate
	configured bool
	running    bool
	cancel     context.CancelFunc
	loopDone   sync.WaitGroup
}

// New returns an unconfigured controller.
func New(clk clock.Clock, logger logging.Logger) *Controller {
	return &Controller{
		clk:    clk,
		logger: logger,
		buf:    reference.NewBuffer(),
		pub:    telemetry.NewPublisher(),
	}
}

// Configure validates cfg and binds the hardware handles. Only legal
// while inactive. A nil states reader leaves the diagnostic wheel
// velocities at zero.
func (c *Controller) Configure(cfg Config, writer WheelWriter, states WheelStateReader) error {
	if writer == nil {
		return errors.New("wheel writer is required")
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return errors.Wrap(err, "invalid geometry")
	}
	if cfg.Period <= 0 {
		return errors.Errorf("control period must be positive, got %v", cfg.Period)
	}
	if cfg.ReferenceTimeout < 0 {
		return errors.Errorf("reference timeout must be non-negative, got %v", cfg.ReferenceTimeout)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("cannot configure an active controller")
	}
	c.cfg = cfg
	c.writer = writer
	c.states = states
	c.gate = reference.NewGate(c.buf, cfg.ReferenceTimeout)
	c.timeoutNs.Store(int64(cfg.ReferenceTimeout))
	c.periodNs.Store(int64(cfg.Period))
	c.configured = true
	return nil
}

// Activate starts the control loop. The reference slot is re-armed, so
// nothing published before activation can drive the wheels.
func (c *Controller) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return errors.New("controller is not configured")
	}
	if c.running {
		return errors.New("controller is already active")
	}

	c.buf.Reset()
	c.moving.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	ticker := c.clk.Ticker(c.cfg.Period)
	c.loopDone.Add(1)
	goutils.ManagedGo(func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.tick(ctx, c.clk.Now())
			}
		}
	}, c.loopDone.Done)
	c.running = true
	c.logger.Infow("control loop started",
		"period", c.cfg.Period, "reference_timeout", c.cfg.ReferenceTimeout)
	return nil
}

// Deactivate stops the loop and releases the wheels. Idempotent.
func (c *Controller) Deactivate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.cancel()
	c.loopDone.Wait()
	c.running = false
	c.moving.Store(false)
	c.logger.Infow("control loop stopped")
	return c.writer.Release(ctx)
}

// Intake stamps, checks and publishes a reference twist. An unstamped
// twist is stamped with the current time; a stamped one older than the
// reference timeout is rejected outright so the loop never sees it.
func (c *Controller) Intake(tw reference.Twist) error {
	now := c.clk.Now()
	if tw.Stamp.IsZero() {
		tw.Stamp = now
	}
	if timeout := time.Duration(c.timeoutNs.Load()); timeout > 0 {
		if age := now.Sub(tw.Stamp); age > timeout {
			return errors.Errorf("reference is %v old, past the %v timeout", age, timeout)
		}
	}
	c.buf.Publish(tw)
	return nil
}

// IsMoving reports whether the last tick commanded any wheel motion.
func (c *Controller) IsMoving() bool { return c.moving.Load() }

// Telemetry exposes the per-tick diagnostic publisher.
func (c *Controller) Telemetry() *telemetry.Publisher { return c.pub }

// ReferenceTimeout reports the configured staleness horizon.
func (c *Controller) ReferenceTimeout() time.Duration {
	return time.Duration(c.timeoutNs.Load())
}

// Period reports the configured control period.
func (c *Controller) Period() time.Duration {
	return time.Duration(c.periodNs.Load())
}

// tick is one pass of the pipeline: gate the buffered reference,
// decompose it, command the wheels, publish diagnostics, reset. Errors
// are logged and never abort the loop.
func (c *Controller) tick(ctx context.Context, now time.Time) {
	d := c.gate.Intake(now)
	if d == reference.StaleStop {
		c.logger.Debugw("reference expired, forcing stop", "timeout", c.cfg.ReferenceTimeout)
	}
	vx, vy, wz := c.gate.Working()

	wheels := c.cfg.Geometry.WheelVelocities(vx, vy, wz)
	if err := c.writer.WriteVelocities(ctx, wheels); err != nil {
		c.logger.Errorw("wheel command write failed", "error", err)
	}

	moving := false
	for _, w := range wheels {
		if w != 0 {
			moving = true
			break
		}
	}
	c.moving.Store(moving)

	var measured [mecanum.NumWheels]float64
	if c.states != nil {
		measured = c.states.WheelVelocities()
	}
	c.pub.TryPublish(telemetry.Snapshot{
		Timestamp:       now,
		WheelVelocities: measured,
		RefLinearX:      vx,
		RefLinearY:      vy,
		RefAngularZ:     wz,
	})

	c.gate.Reset()
}
