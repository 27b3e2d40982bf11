package streamio

import (
	"math"

	"go.viam.com/pathfinder/nav"
	"go.viam.com/pathfinder/occupancy"
	"go.viam.com/pathfinder/scene"
	"go.viam.com/pathfinder/spatialmath"
)

func vec(x, y, z float64) spatialmath.Vector {
	return spatialmath.NewVector(x, y, z)
}

func emptySnapshot(size int) occupancy.Snapshot {
	return occupancy.Snapshot{
		Size:        size,
		States:      make([]occupancy.CellState, size*size),
		ElevationCM: make([]int8, size*size),
	}
}

func outWith(disc *scene.Discontinuity) nav.Output {
	return nav.Output{
		NearestObstacleDistance: math.Inf(1),
		DiscontinuityAhead:      disc,
	}
}
