package spatialmath

import "math"

// Pose4x4 is a row-major 4x4 homogeneous transform: the external camera
// pose source's wire format. Row 3 (the bottom row) is expected to be
// [0 0 0 1] for a valid rigid transform; callers that need to validate
// that should use IsRigid.
type Pose4x4 [16]float64

// Identity is the identity pose.
var Identity = Pose4x4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// at returns element (row, col) of the row-major matrix.
func (p Pose4x4) at(row, col int) float64 {
	return p[row*4+col]
}

// Position extracts the translation column (world position of the camera
// origin).
func (p Pose4x4) Position() Vector {
	return Vector{X: p.at(0, 3), Y: p.at(1, 3), Z: p.at(2, 3)}
}

// Heading extracts the yaw (rotation about the vertical Y axis) in
// radians; bearing 0 points along grid +z and increases toward the user's
// right (+x). It reads the camera's forward direction (the third column of
// the rotation block) and derives yaw via atan2, which tolerates pitch and
// roll as long as the camera isn't looking straight up or down.
func (p Pose4x4) Heading() float64 {
	forwardX := p.at(0, 2)
	forwardZ := p.at(2, 2)
	return math.Atan2(forwardX, forwardZ)
}

// IsRigid reports whether the bottom row is the expected [0 0 0 1], a cheap
// sanity check on externally supplied poses before trusting Position/Heading.
func (p Pose4x4) IsRigid() bool {
	const eps = 1e-6
	return math.Abs(p.at(3, 0)) < eps &&
		math.Abs(p.at(3, 1)) < eps &&
		math.Abs(p.at(3, 2)) < eps &&
		math.Abs(p.at(3, 3)-1) < eps
}
