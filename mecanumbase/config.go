package mecanumbase

import (
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/resource"

	"github.com/HopeCollector/mecanum-drive-controller/canmotor"
	"github.com/HopeCollector/mecanum-drive-controller/mecanum"
)

// Defaults applied by the constructor when an attribute is absent.
const (
	kDefaultCanInterface        = "can0"
	kDefaultControlFrequencyHz  = 100.0
	kDefaultReferenceTimeout    = 500 * time.Millisecond
	kDefaultMaxLinearMmPerSec   = 1000.0
	kDefaultMaxAngularDegPerSec = 60.0
)

// Config is the base's attribute schema.
type Config struct {
	CanInterface       string  `json:"can_interface,omitempty"`
	ControlFrequencyHz float64 `json:"control_frequency_hz,omitempty"`

	// ReferenceTimeout is seconds. Zero selects single-shot references;
	// leaving it unset selects the half second default.
	ReferenceTimeout *float64 `json:"reference_timeout,omitempty"`

	WheelsRadius        float64       `json:"wheels_radius"`
	CenterProjectionSum float64       `json:"sum_of_robot_center_projection_on_X_Y_axis"`
	BaseFrameOffset     *OffsetConfig `json:"base_frame_offset,omitempty"`

	FrontLeftWheelCommandJointName  string `json:"front_left_wheel_command_joint_name"`
	FrontRightWheelCommandJointName string `json:"front_right_wheel_command_joint_name"`
	RearRightWheelCommandJointName  string `json:"rear_right_wheel_command_joint_name"`
	RearLeftWheelCommandJointName   string `json:"rear_left_wheel_command_joint_name"`

	FrontLeftWheelStateJointName  string `json:"front_left_wheel_state_joint_name,omitempty"`
	FrontRightWheelStateJointName string `json:"front_right_wheel_state_joint_name,omitempty"`
	RearRightWheelStateJointName  string `json:"rear_right_wheel_state_joint_name,omitempty"`
	RearLeftWheelStateJointName   string `json:"rear_left_wheel_state_joint_name,omitempty"`

	CanIDs *CanIDConfig `json:"can_ids,omitempty"`

	MaxLinearMmPerSec   float64 `json:"max_linear_mm_per_sec,omitempty"`
	MaxAngularDegPerSec float64 `json:"max_angular_deg_per_sec,omitempty"`
}

// OffsetConfig locates the command frame relative to the platform
// center: meters for X and Y, radians for Theta.
type OffsetConfig struct {
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Theta float64 `json:"theta,omitempty"`
}

// CanIDConfig overrides the stock motor controller node ids.
type CanIDConfig struct {
	FrontLeft  uint32 `json:"front_left,omitempty"`
	FrontRight uint32 `json:"front_right,omitempty"`
	RearRight  uint32 `json:"rear_right,omitempty"`
	RearLeft   uint32 `json:"rear_left,omitempty"`
}

// Validate checks the attribute combination once, at configuration time.
func (cfg *Config) Validate(path string) ([]string, error) {
	if cfg.WheelsRadius == 0 {
		return nil, resource.NewConfigValidationFieldRequiredError(path, "wheels_radius")
	}
	if cfg.WheelsRadius < 0 {
		return nil, resource.NewConfigValidationError(path,
			errors.New("wheels_radius must be a positive number of meters"))
	}
	if cfg.CenterProjectionSum < 0 {
		return nil, resource.NewConfigValidationError(path,
			errors.New("sum_of_robot_center_projection_on_X_Y_axis must be non-negative"))
	}
	if cfg.ReferenceTimeout != nil && *cfg.ReferenceTimeout < 0 {
		return nil, resource.NewConfigValidationError(path,
			errors.New("reference_timeout must be non-negative seconds"))
	}
	if cfg.ControlFrequencyHz < 0 {
		return nil, resource.NewConfigValidationError(path,
			errors.New("control_frequency_hz must be positive"))
	}
	if cfg.MaxLinearMmPerSec < 0 || cfg.MaxAngularDegPerSec < 0 {
		return nil, resource.NewConfigValidationError(path,
			errors.New("velocity ceilings must be positive"))
	}
	for _, req := range []struct{ field, value string }{
		{"front_left_wheel_command_joint_name", cfg.FrontLeftWheelCommandJointName},
		{"front_right_wheel_command_joint_name", cfg.FrontRightWheelCommandJointName},
		{"rear_right_wheel_command_joint_name", cfg.RearRightWheelCommandJointName},
		{"rear_left_wheel_command_joint_name", cfg.RearLeftWheelCommandJointName},
	} {
		if req.value == "" {
			return nil, resource.NewConfigValidationFieldRequiredError(path, req.field)
		}
	}
	return nil, nil
}

func (cfg *Config) geometry() mecanum.Geometry {
	g := mecanum.Geometry{
		WheelRadius:         cfg.WheelsRadius,
		CenterProjectionSum: cfg.CenterProjectionSum,
	}
	if cfg.BaseFrameOffset != nil {
		g.BaseOffsetX = cfg.BaseFrameOffset.X
		g.BaseOffsetY = cfg.BaseFrameOffset.Y
		g.BaseOffsetTheta = cfg.BaseFrameOffset.Theta
	}
	return g
}

func (cfg *Config) referenceTimeout() time.Duration {
	if cfg.ReferenceTimeout == nil {
		return kDefaultReferenceTimeout
	}
	return time.Duration(*cfg.ReferenceTimeout * float64(time.Second))
}

func (cfg *Config) controlPeriod() time.Duration {
	hz := cfg.ControlFrequencyHz
	if hz == 0 {
		hz = kDefaultControlFrequencyHz
	}
	return time.Duration(float64(time.Second) / hz)
}

func (cfg *Config) canInterface() string {
	if cfg.CanInterface == "" {
		return kDefaultCanInterface
	}
	return cfg.CanInterface
}

func (cfg *Config) canIDs() canmotor.IDs {
	ids := canmotor.DefaultIDs()
	if cfg.CanIDs == nil {
		return ids
	}
	if cfg.CanIDs.FrontLeft != 0 {
		ids[mecanum.FrontLeft] = cfg.CanIDs.FrontLeft
	}
	if cfg.CanIDs.FrontRight != 0 {
		ids[mecanum.FrontRight] = cfg.CanIDs.FrontRight
	}
	if cfg.CanIDs.RearRight != 0 {
		ids[mecanum.RearRight] = cfg.CanIDs.RearRight
	}
	if cfg.CanIDs.RearLeft != 0 {
		ids[mecanum.RearLeft] = cfg.CanIDs.RearLeft
	}
	return ids
}

func (cfg *Config) commandJointNames() [mecanum.NumWheels]string {
	return [mecanum.NumWheels]string{
		mecanum.FrontLeft:  cfg.FrontLeftWheelCommandJointName,
		mecanum.FrontRight: cfg.FrontRightWheelCommandJointName,
		mecanum.RearRight:  cfg.RearRightWheelCommandJointName,
		mecanum.RearLeft:   cfg.RearLeftWheelCommandJointName,
	}
}

// stateJointNames default to the command joint names wheel by wheel.
func (cfg *Config) stateJointNames() [mecanum.NumWheels]string {
	names := cfg.commandJointNames()
	if cfg.FrontLeftWheelStateJointName != "" {
		names[mecanum.FrontLeft] = cfg.FrontLeftWheelStateJointName
	}
	if cfg.FrontRightWheelStateJointName != "" {
		names[mecanum.FrontRight] = cfg.FrontRightWheelStateJointName
	}
	if cfg.RearRightWheelStateJointName != "" {
		names[mecanum.RearRight] = cfg.RearRightWheelStateJointName
	}
	if cfg.RearLeftWheelStateJointName != "" {
		names[mecanum.RearLeft] = cfg.RearLeftWheelStateJointName
	}
	return names
}

func (cfg *Config) maxLinearMmPerSec() float64 {
	if cfg.MaxLinearMmPerSec == 0 {
		return kDefaultMaxLinearMmPerSec
	}
	return cfg.MaxLinearMmPerSec
}

func (cfg *Config) maxAngularDegPerSec() float64 {
	if cfg.MaxAngularDegPerSec == 0 {
		return kDefaultMaxAngularDegPerSec
	}
	return cfg.MaxAngularDegPerSec
}
