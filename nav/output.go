// Package nav implements the navigation planner: it projects a scene
// descriptor into the occupancy grid and ray-marches for a suggested
// heading, nearest hazard, and surface discontinuity ahead.
package nav

import "go.viam.com/pathfinder/scene"

// Output is the per-frame navigation decision.
type Output struct {
	SuggestedHeading        float64
	Clearance               float64
	NearestObstacleDistance float64
	NearestObstacleBearing  float64
	DiscontinuityAhead      *scene.Discontinuity
	GroundConfidence        float64
	IsPathBlocked           bool
}
