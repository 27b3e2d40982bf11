// Package spatialmath provides the small set of vector/pose primitives the
// world model and planner need: world-frame points, camera poses, and
// bearing conversions.
package spatialmath

import "github.com/golang/geo/r3"

// Vector is a point or direction in a 3D world frame, x-right, y-up,
// z-forward. Bearing 0 points along +z.
type Vector = r3.Vector

// NewVector is a convenience constructor for a world point.
func NewVector(x, y, z float64) Vector {
	return Vector{X: x, Y: y, Z: z}
}
