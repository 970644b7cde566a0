// Package mecanum models the wheel geometry of a four wheel mecanum
// platform and decomposes body twists into per-wheel angular velocities.
package mecanum

import (
	"math"

	"github.com/pkg/errors"
)

// Wheel indexes the four wheels of the platform. The order is fixed and
// shared by every four-element array in this module: configuration,
// command fanout and state reporting all follow it.
type Wheel int

const (
	FrontLeft Wheel = iota
	FrontRight
	RearRight
	RearLeft

	// NumWheels sizes the per-wheel arrays.
	NumWheels = 4
)

func (w Wheel) String() string {
	switch w {
	case FrontLeft:
		return "front_left"
	case FrontRight:
		return "front_right"
	case RearRight:
		return "rear_right"
	case RearLeft:
		return "rear_left"
	}
	return "unknown"
}

// Geometry describes the platform. WheelRadius and CenterProjectionSum are
// meters; CenterProjectionSum is the summed projection of the wheel lever
// arms on the X and Y axes and couples the yaw rate into wheel speed. The
// base offset locates the command frame relative to the platform center:
// incoming twists are rotated by Theta and corrected for the (X, Y) lever
// arm before the wheel decomposition.
type Geometry struct {
	WheelRadius         float64
	CenterProjectionSum float64
	BaseOffsetX         float64
	BaseOffsetY         float64
	BaseOffsetTheta     float64
}

// Validate bounds-checks the geometry once at configuration time. The
// transform relies on this and never re-checks.
func (g Geometry) Validate() error {
	if g.WheelRadius <= 0 {
		return errors.Errorf("wheel radius must be positive, got %v", g.WheelRadius)
	}
	if g.CenterProjectionSum < 0 {
		return errors.Errorf("center projection sum must be non-negative, got %v", g.CenterProjectionSum)
	}
	return nil
}

// WheelVelocities decomposes a body twist (vx, vy in m/s, wz in rad/s)
// into the four wheel angular velocities in rad/s, ordered FrontLeft,
// FrontRight, RearRight, RearLeft. A twist with any non-numeric component
// commands an exact zero on every wheel.
func (g Geometry) WheelVelocities(vx, vy, wz float64) [NumWheels]float64 {
	if math.IsNaN(vx) || math.IsNaN(vy) || math.IsNaN(wz) {
		return [NumWheels]float64{}
	}

	// rotate the base frame twist into the platform center frame
	sin, cos := math.Sincos(g.BaseOffsetTheta)
	cvx := vx*cos - vy*sin
	cvy := vx*sin + vy*cos

	// lever arm correction for the frame offset
	cvx += g.BaseOffsetY * wz
	cvy -= g.BaseOffsetX * wz

	k := g.CenterProjectionSum * wz
	return [NumWheels]float64{
		FrontLeft:  (cvx - cvy - k) / g.WheelRadius,
		FrontRight: (cvx + cvy + k) / g.WheelRadius,
		RearRight:  (cvx - cvy + k) / g.WheelRadius,
		RearLeft:   (cvx + cvy - k) / g.WheelRadius,
	}
}
