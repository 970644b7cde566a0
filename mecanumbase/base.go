// Package mecanumbase exposes the mecanum drive controller as a Viam
// base component, plus a sensor model for its diagnostic state.
package mecanumbase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/components/base"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"
	goutils "go.viam.com/utils"

	"github.com/HopeCollector/mecanum-drive-controller/canmotor"
	"github.com/HopeCollector/mecanum-drive-controller/drive"
	"github.com/HopeCollector/mecanum-drive-controller/mecanum"
	"github.com/HopeCollector/mecanum-drive-controller/reference"
)

// Model is the base model this module provides.
var Model = resource.NewModel("hopecollector", "mecanum-drive", "base")

const (
	kMmToM    = 0.001
	kDegToRad = math.Pi / 180
)

func init() {
	resource.RegisterComponent(
		base.API,
		Model,
		resource.Registration[base.Base, *Config]{Constructor: newBase},
	)
}

type mecanumBase struct {
	resource.Named
	logger logging.Logger
	clk    clock.Clock

	controller *drive.Controller

	mu         sync.Mutex
	writer     *canmotor.Writer
	feedback   *canmotor.Feedback
	channel    string
	ids        canmotor.IDs
	geom       mecanum.Geometry
	geometries []spatialmath.Geometry
	stateNames [mecanum.NumWheels]string
	maxLinear  float64
	maxAngular float64
}

func newBase(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (base.Base, error) {
	b := &mecanumBase{
		Named:  conf.ResourceName().AsNamed(),
		logger: logger,
		clk:    clock.New(),
	}
	b.controller = drive.New(b.clk, logger)
	if err := b.Reconfigure(ctx, deps, conf); err != nil {
		return nil, err
	}
	return b, nil
}

// Reconfigure rebuilds the controller from conf: the loop is stopped,
// the bus adapters are replaced when the bus attributes changed, and the
// loop is restarted with the new geometry and timing.
func (b *mecanumBase) Reconfigure(ctx context.Context, _ resource.Dependencies, conf resource.Config) error {
	cfg, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return err
	}

	var geometries []spatialmath.Geometry
	if conf.Frame != nil {
		frame, err := conf.Frame.ParseConfig()
		if err != nil {
			return err
		}
		geometries = append(geometries, frame.Geometry())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.controller.Deactivate(ctx); err != nil {
		b.logger.Warnw("wheel release failed while stopping the loop", "error", err)
	}

	channel, ids := cfg.canInterface(), cfg.canIDs()
	if b.writer == nil || channel != b.channel || ids != b.ids {
		b.closeBusLocked()
		writer, err := canmotor.NewWriter(channel, ids, b.logger)
		if err != nil {
			return err
		}
		feedback, err := canmotor.NewFeedback(channel, b.logger)
		if err != nil {
			return multierr.Combine(err, writer.Close())
		}
		b.writer, b.feedback = writer, feedback
		b.channel, b.ids = channel, ids
	}

	if err := b.controller.Configure(drive.Config{
		Geometry:         cfg.geometry(),
		ReferenceTimeout: cfg.referenceTimeout(),
		Period:           cfg.controlPeriod(),
	}, b.writer, b.feedback); err != nil {
		return err
	}

	b.geom = cfg.geometry()
	b.geometries = geometries
	b.stateNames = cfg.stateJointNames()
	b.maxLinear = cfg.maxLinearMmPerSec()
	b.maxAngular = cfg.maxAngularDegPerSec()

	return b.controller.Activate()
}

// SetVelocity hands the loop a fresh velocity reference. Linear is mm/s
// in the base frame, angular is deg/s about Z, per the base API.
func (b *mecanumBase) SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	return b.controller.Intake(reference.Twist{
		Linear:  r3.Vector{X: linear.X * kMmToM, Y: linear.Y * kMmToM, Z: linear.Z * kMmToM},
		Angular: r3.Vector{X: angular.X * kDegToRad, Y: angular.Y * kDegToRad, Z: angular.Z * kDegToRad},
	})
}

// SetPower maps the unitless power fractions onto the configured
// velocity ceilings and feeds the result through the reference path.
func (b *mecanumBase) SetPower(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	b.mu.Lock()
	maxLinear, maxAngular := b.maxLinear, b.maxAngular
	b.mu.Unlock()
	return b.controller.Intake(reference.Twist{
		Linear: r3.Vector{
			X: clampUnit(linear.X) * maxLinear * kMmToM,
			Y: clampUnit(linear.Y) * maxLinear * kMmToM,
		},
		Angular: r3.Vector{Z: clampUnit(angular.Z) * maxAngular * kDegToRad},
	})
}

// MoveStraight drives distanceMm at mmPerSec open loop: the reference is
// refreshed for the trip duration, then a commanded stop is issued.
func (b *mecanumBase) MoveStraight(ctx context.Context, distanceMm int, mmPerSec float64, extra map[string]interface{}) error {
	if mmPerSec == 0 {
		return errors.New("move speed must be non-zero")
	}
	speed := math.Abs(mmPerSec)
	if distanceMm < 0 {
		speed = -speed
	}
	duration := time.Duration(math.Abs(float64(distanceMm)) / math.Abs(mmPerSec) * float64(time.Second))
	return b.driveFor(ctx, reference.Twist{Linear: r3.Vector{X: speed * kMmToM}}, duration)
}

// Spin rotates angleDeg at degsPerSec open loop, positive counterclockwise.
func (b *mecanumBase) Spin(ctx context.Context, angleDeg, degsPerSec float64, extra map[string]interface{}) error {
	if degsPerSec == 0 {
		return errors.New("spin speed must be non-zero")
	}
	rate := math.Abs(degsPerSec)
	if angleDeg < 0 {
		rate = -rate
	}
	duration := time.Duration(math.Abs(angleDeg) / math.Abs(degsPerSec) * float64(time.Second))
	return b.driveFor(ctx, reference.Twist{Angular: r3.Vector{Z: rate * kDegToRad}}, duration)
}

// driveFor republishes tw until the deadline so the staleness gate keeps
// accepting it, then issues a commanded stop. A canceled context stops
// the platform before returning.
func (b *mecanumBase) driveFor(ctx context.Context, tw reference.Twist, duration time.Duration) error {
	step := b.refreshStep()
	deadline := b.clk.Now().Add(duration)
	for {
		remaining := deadline.Sub(b.clk.Now())
		if remaining <= 0 {
			break
		}
		tw.Stamp = time.Time{}
		if err := b.controller.Intake(tw); err != nil {
			return multierr.Combine(err, b.Stop(ctx, nil))
		}
		if remaining < step {
			step = remaining
		}
		if !goutils.SelectContextOrWait(ctx, step) {
			return multierr.Combine(ctx.Err(), b.Stop(ctx, nil))
		}
	}
	return b.Stop(ctx, nil)
}

// refreshStep picks the republish cadence: once per control period, or
// faster when a short reference timeout demands it.
func (b *mecanumBase) refreshStep() time.Duration {
	step := b.controller.Period()
	if t := b.controller.ReferenceTimeout(); t > 0 && t/2 < step {
		step = t / 2
	}
	if step <= 0 {
		step = 10 * time.Millisecond
	}
	return step
}

// Stop issues a commanded stop: a zero twist reference, distinct from
// the gate's forced stop.
func (b *mecanumBase) Stop(ctx context.Context, extra map[string]interface{}) error {
	return b.controller.Intake(reference.Twist{})
}

func (b *mecanumBase) IsMoving(ctx context.Context) (bool, error) {
	return b.controller.IsMoving(), nil
}

func (b *mecanumBase) Properties(ctx context.Context, extra map[string]interface{}) (base.Properties, error) {
	b.mu.Lock()
	radius := b.geom.WheelRadius
	b.mu.Unlock()
	return base.Properties{
		TurningRadiusMeters:      0,
		WheelCircumferenceMeters: 2 * math.Pi * radius,
	}, nil
}

func (b *mecanumBase) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.geometries, nil
}

// DoCommand covers the stamped reference intake and the diagnostic
// state surface beyond the Base interface.
func (b *mecanumBase) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, ok := cmd["command"]
	if !ok {
		return nil, errors.New("missing 'command' value")
	}
	switch name {
	case "set_reference":
		tw := reference.Twist{}
		var err error
		if tw.Linear.X, err = floatValue(cmd, "linear_x"); err != nil {
			return nil, err
		}
		if tw.Linear.Y, err = floatValue(cmd, "linear_y"); err != nil {
			return nil, err
		}
		if tw.Angular.Z, err = floatValue(cmd, "angular_z"); err != nil {
			return nil, err
		}
		secs, err := floatValue(cmd, "timestamp")
		if err != nil {
			return nil, err
		}
		if secs != 0 {
			sec, frac := math.Modf(secs)
			tw.Stamp = time.Unix(int64(sec), int64(frac*1e9))
		} else {
			b.logger.Debugw("reference arrived without a timestamp, stamping at receipt")
		}
		if err := b.controller.Intake(tw); err != nil {
			return nil, err
		}
		return map[string]interface{}{"return": "set_reference command processed"}, nil

	case "get_state":
		snap, ok := b.controller.Telemetry().Latest()
		if !ok {
			return nil, errors.New("no controller state published yet")
		}
		b.mu.Lock()
		names := b.stateNames
		b.mu.Unlock()
		state := map[string]interface{}{
			"timestamp":           float64(snap.Timestamp.UnixNano()) / 1e9,
			"reference_linear_x":  snap.RefLinearX,
			"reference_linear_y":  snap.RefLinearY,
			"reference_angular_z": snap.RefAngularZ,
			"dropped_publishes":   float64(b.controller.Telemetry().Dropped()),
		}
		for wheel := mecanum.FrontLeft; wheel < mecanum.NumWheels; wheel++ {
			state[names[wheel]+"_velocity"] = snap.WheelVelocities[wheel]
		}
		return state, nil

	default:
		return nil, fmt.Errorf("no such command: %s", name)
	}
}

// Close stops the loop, releases the wheels and tears down the bus.
func (b *mecanumBase) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.controller.Deactivate(ctx)
	b.closeBusLocked()
	return err
}

func (b *mecanumBase) closeBusLocked() {
	if b.writer != nil {
		if err := b.writer.Close(); err != nil {
			b.logger.Warnw("closing CAN send socket", "error", err)
		}
		b.writer = nil
	}
	if b.feedback != nil {
		if err := b.feedback.Close(); err != nil {
			b.logger.Warnw("closing CAN receive socket", "error", err)
		}
		b.feedback = nil
	}
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func floatValue(cmd map[string]interface{}, key string) (float64, error) {
	raw, ok := cmd[key]
	if !ok {
		return 0, nil
	}
	v, ok := raw.(float64)
	if !ok {
		return 0, errors.Errorf("%s value must be a number", key)
	}
	return v, nil
}
