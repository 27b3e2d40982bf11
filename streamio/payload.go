// Package streamio implements the optional debug stream: a length-prefixed
// JSON frame protocol carrying periodic occupancy-grid snapshots over TCP,
// plus the framing helpers shared by the stream server and any client.
package streamio

import (
	"math"

	"go.viam.com/pathfinder/nav"
	"go.viam.com/pathfinder/occupancy"
	"go.viam.com/pathfinder/spatialmath"
)

// Payload is the debug stream's per-frame JSON body; the field names and
// types are the stable wire contract.
type Payload struct {
	Timestamp       float64    `json:"timestamp"`
	UserPosition    [3]float32 `json:"userPosition"`
	UserHeading     float32    `json:"userHeading"`
	NearestObstacle *float32   `json:"nearestObstacle"`
	FloorHeight     float32    `json:"floorHeight"`
	GridSize        uint32     `json:"gridSize"`
	CellSize        float32    `json:"cellSize"`
	CellStates      []uint8    `json:"cellStates"`
	CellElevations  []int8     `json:"cellElevations"`
	ValidCells      uint32     `json:"validCells"`
	ObstacleCells   uint32     `json:"obstacleCells"`
	StepCells       uint32     `json:"stepCells"`

	NavigationHeading            *float32 `json:"navigationHeading,omitempty"`
	GroundConfidence             *float32 `json:"groundConfidence,omitempty"`
	ObstacleDistance             *float32 `json:"obstacleDistance,omitempty"`
	DiscontinuityCount           *uint32  `json:"discontinuityCount,omitempty"`
	NearestDiscontinuityDistance *float32 `json:"nearestDiscontinuityDistance,omitempty"`
}

// f32 is a tiny helper for building the optional-pointer fields below.
func f32(v float64) *float32 {
	f := float32(v)
	return &f
}

// BuildPayload assembles the wire payload from a grid snapshot and the
// latest navigation output. A +Inf nearest-obstacle distance encodes
// NearestObstacle as JSON null and omits ObstacleDistance.
func BuildPayload(timestampS float64, userPos spatialmath.Vector, snap occupancy.Snapshot, out nav.Output, cellSize, depthScale float64) Payload {
	states := make([]uint8, len(snap.States))
	for i, s := range snap.States {
		states[i] = uint8(s)
	}

	p := Payload{
		Timestamp:      timestampS,
		UserPosition:   [3]float32{float32(userPos.X), float32(userPos.Y), float32(userPos.Z)},
		UserHeading:    float32(snap.UserHeading),
		FloorHeight:    float32(snap.FloorHeight),
		GridSize:       uint32(snap.Size),
		CellSize:       float32(cellSize),
		CellStates:     states,
		CellElevations: append([]int8(nil), snap.ElevationCM...),
		ValidCells:     uint32(snap.ValidCells),
		ObstacleCells:  uint32(snap.ObstacleCells),
		StepCells:      uint32(snap.StepCells),

		NavigationHeading: f32(out.SuggestedHeading),
		GroundConfidence:  f32(out.GroundConfidence),
	}

	if !math.IsInf(out.NearestObstacleDistance, 1) {
		p.NearestObstacle = f32(out.NearestObstacleDistance)
		p.ObstacleDistance = f32(out.NearestObstacleDistance)
	}

	if out.DiscontinuityAhead != nil {
		count := uint32(1)
		p.DiscontinuityCount = &count
		p.NearestDiscontinuityDistance = f32(out.DiscontinuityAhead.EstimatedDistance(depthScale))
	}

	return p
}
