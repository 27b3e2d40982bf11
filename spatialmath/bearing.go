package spatialmath

import "math"

// PointOnBearing returns the world point reached by walking distance
// meters from origin along bearing radians (0 = grid +z, positive =
// right/+x): origin + (sin*d, cos*d).
func PointOnBearing(origin Vector, bearing, distance float64) Vector {
	return Vector{
		X: origin.X + math.Sin(bearing)*distance,
		Y: origin.Y,
		Z: origin.Z + math.Cos(bearing)*distance,
	}
}

// NormalizeAngle wraps an angle (radians) into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// ShortestArc returns the signed shortest angular distance from a to b, in
// (-pi, pi], used by heading smoothing filters that must not wrap the long
// way around when crossing the +/-pi boundary.
func ShortestArc(a, b float64) float64 {
	return NormalizeAngle(b - a)
}
