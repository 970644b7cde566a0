package mecanum

import (
	"math"
	"testing"

	"go.viam.com/test"
)

var testGeometry = Geometry{
	WheelRadius:         0.05,
	CenterProjectionSum: 0.3,
}

func TestWheelVelocitiesForward(t *testing.T) {
	wheels := testGeometry.WheelVelocities(0.5, 0, 0)
	for w := FrontLeft; w < NumWheels; w++ {
		test.That(t, wheels[w], test.ShouldAlmostEqual, 10.0)
	}
}

func TestWheelVelocitiesStrafe(t *testing.T) {
	// positive vy strafes left: the diagonal pairs oppose each other
	wheels := testGeometry.WheelVelocities(0, 0.5, 0)
	test.That(t, wheels[FrontLeft], test.ShouldAlmostEqual, -10.0)
	test.That(t, wheels[FrontRight], test.ShouldAlmostEqual, 10.0)
	test.That(t, wheels[RearRight], test.ShouldAlmostEqual, -10.0)
	test.That(t, wheels[RearLeft], test.ShouldAlmostEqual, 10.0)
}

func TestWheelVelocitiesRotation(t *testing.T) {
	// positive yaw reverses the left side and advances the right side
	wheels := testGeometry.WheelVelocities(0, 0, 1.0)
	test.That(t, wheels[FrontLeft], test.ShouldAlmostEqual, -6.0)
	test.That(t, wheels[FrontRight], test.ShouldAlmostEqual, 6.0)
	test.That(t, wheels[RearRight], test.ShouldAlmostEqual, 6.0)
	test.That(t, wheels[RearLeft], test.ShouldAlmostEqual, -6.0)
}

func TestWheelVelocitiesCombined(t *testing.T) {
	// superposition of the forward and rotation cases
	wheels := testGeometry.WheelVelocities(0.5, 0, 1.0)
	test.That(t, wheels[FrontLeft], test.ShouldAlmostEqual, 4.0)
	test.That(t, wheels[FrontRight], test.ShouldAlmostEqual, 16.0)
	test.That(t, wheels[RearRight], test.ShouldAlmostEqual, 16.0)
	test.That(t, wheels[RearLeft], test.ShouldAlmostEqual, 4.0)
}

func TestWheelVelocitiesFrameRotation(t *testing.T) {
	// a quarter turn offset turns a forward command into a strafe
	g := testGeometry
	g.BaseOffsetTheta = math.Pi / 2
	wheels := g.WheelVelocities(0.5, 0, 0)
	test.That(t, wheels[FrontLeft], test.ShouldAlmostEqual, -10.0)
	test.That(t, wheels[FrontRight], test.ShouldAlmostEqual, 10.0)
	test.That(t, wheels[RearRight], test.ShouldAlmostEqual, -10.0)
	test.That(t, wheels[RearLeft], test.ShouldAlmostEqual, 10.0)
}

func TestWheelVelocitiesLeverArm(t *testing.T) {
	g := testGeometry
	g.BaseOffsetX = 0.1
	g.BaseOffsetY = 0.2
	wheels := g.WheelVelocities(0, 0, 1.0)
	// cvx = 0.2, cvy = -0.1, k = 0.3
	test.That(t, wheels[FrontLeft], test.ShouldAlmostEqual, 0.0)
	test.That(t, wheels[FrontRight], test.ShouldAlmostEqual, 8.0)
	test.That(t, wheels[RearRight], test.ShouldAlmostEqual, 12.0)
	test.That(t, wheels[RearLeft], test.ShouldAlmostEqual, -4.0)
}

func TestWheelVelocitiesNonNumeric(t *testing.T) {
	nan := math.NaN()
	for _, tc := range []struct {
		name       string
		vx, vy, wz float64
	}{
		{"vx", nan, 0.5, 1.0},
		{"vy", 0.5, nan, 1.0},
		{"wz", 0.5, 0.5, nan},
		{"all", nan, nan, nan},
	} {
		t.Run(tc.name, func(t *testing.T) {
			wheels := testGeometry.WheelVelocities(tc.vx, tc.vy, tc.wz)
			for w := FrontLeft; w < NumWheels; w++ {
				test.That(t, wheels[w], test.ShouldEqual, 0.0)
			}
		})
	}
}

func TestGeometryValidate(t *testing.T) {
	test.That(t, testGeometry.Validate(), test.ShouldBeNil)

	g := testGeometry
	g.WheelRadius = 0
	test.That(t, g.Validate(), test.ShouldNotBeNil)

	g = testGeometry
	g.CenterProjectionSum = -0.1
	test.That(t, g.Validate(), test.ShouldNotBeNil)
}

func TestWheelNames(t *testing.T) {
	test.That(t, FrontLeft.String(), test.ShouldEqual, "front_left")
	test.That(t, FrontRight.String(), test.ShouldEqual, "front_right")
	test.That(t, RearRight.String(), test.ShouldEqual, "rear_right")
	test.That(t, RearLeft.String(), test.ShouldEqual, "rear_left")
}
