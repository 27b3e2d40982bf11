// Package occupancy implements the persistent, world-aligned top-down
// occupancy grid: classified cells with temporal confidence decay and
// automatic re-centering, stored as a single contiguous row-major array.
package occupancy

import "math"

// CellState is a cell's classified surface type. The numeric values match
// the debug-stream wire encoding, so casting a CellState to byte encodes it.
type CellState uint8

const (
	Unknown CellState = iota
	Free
	Occupied
	Step
	Curb
	Ramp
	Stairs
	Dropoff
)

func (s CellState) String() string {
	switch s {
	case Unknown:
		return "Unknown"
	case Free:
		return "Free"
	case Occupied:
		return "Occupied"
	case Step:
		return "Step"
	case Curb:
		return "Curb"
	case Ramp:
		return "Ramp"
	case Stairs:
		return "Stairs"
	case Dropoff:
		return "Dropoff"
	default:
		return "Invalid"
	}
}

// IsBlocking reports whether a ray march should stop at a cell in this state.
func (s CellState) IsBlocking() bool {
	return s == Occupied || s == Curb || s == Dropoff
}

// Cell is a single occupancy grid cell.
type Cell struct {
	State      CellState
	Elevation  float32 // meters, relative to estimated floor; valid only if HitCount>0 and MinHeight is finite
	Confidence uint8
	HitCount   uint16
	MinHeight  float32
	MaxHeight  float32
}

// NewCell returns a freshly reset cell: Unknown, zero confidence and hits,
// and ±Inf height sentinels.
func NewCell() Cell {
	return Cell{
		State:     Unknown,
		MinHeight: float32(math.Inf(1)),
		MaxHeight: float32(math.Inf(-1)),
	}
}

// Reset restores c to its post-construction state.
func (c *Cell) Reset() {
	*c = NewCell()
}

// IsValid reports whether the cell has accumulated enough observations to
// be trusted.
func (c *Cell) IsValid(minHitCount uint16) bool {
	return c.HitCount >= minHitCount
}

// HeightRange is MaxHeight-MinHeight, defined only once HitCount > 0.
func (c *Cell) HeightRange() float32 {
	if c.HitCount == 0 {
		return 0
	}
	return c.MaxHeight - c.MinHeight
}

// saturatingAddConfidence adds boost to confidence without overflowing max.
func saturatingAddConfidence(confidence, boost, max uint8) uint8 {
	sum := int(confidence) + int(boost)
	if sum > int(max) {
		return max
	}
	return uint8(sum)
}

// addFloorPoint records a ground-surface observation at height y.
func (c *Cell) addFloorPoint(y float64, boost, maxConfidence uint8) {
	if c.HitCount == 0 {
		c.MaxHeight = float32(y)
	}
	if float64(c.MinHeight) > y {
		c.MinHeight = float32(y)
	}
	c.HitCount++
	c.Confidence = saturatingAddConfidence(c.Confidence, boost, maxConfidence)
}

// addObstaclePoint records a non-ground observation at height y.
func (c *Cell) addObstaclePoint(y float64, boost, maxConfidence uint8) {
	if float64(c.MaxHeight) < y {
		c.MaxHeight = float32(y)
	}
	c.HitCount++
	c.Confidence = saturatingAddConfidence(c.Confidence, boost, maxConfidence)
}
