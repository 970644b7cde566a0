// Package reference carries body twist references from command producers
// to the control loop: a single latest-wins slot plus the staleness rules
// that decide how the loop consumes it.
package reference

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
)

// Twist is a body velocity reference. Only Linear.X, Linear.Y and
// Angular.Z drive the platform; the remaining axes are carried along and
// ignored.
type Twist struct {
	Stamp   time.Time
	Linear  r3.Vector
	Angular r3.Vector
}

// Unset returns the sentinel twist: every axis non-numeric, no stamp.
func Unset() Twist {
	nan := math.NaN()
	return Twist{
		Linear:  r3.Vector{X: nan, Y: nan, Z: nan},
		Angular: r3.Vector{X: nan, Y: nan, Z: nan},
	}
}

// Valid reports whether the three driving fields are all numeric.
func (t Twist) Valid() bool {
	return !math.IsNaN(t.Linear.X) && !math.IsNaN(t.Linear.Y) && !math.IsNaN(t.Angular.Z)
}
