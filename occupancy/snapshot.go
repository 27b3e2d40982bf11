package occupancy

import (
	"math"

	"github.com/pkg/errors"
)

// Snapshot is a point-in-time copy of a grid's classified state and
// elevation, independent of Grid's internal storage layout. It is emitted
// by value so readers (the stream thread) never observe a partially
// updated grid.
type Snapshot struct {
	Size          int
	States        []CellState
	ElevationCM   []int8
	OriginX       float64
	OriginZ       float64
	UserHeading   float64
	FloorHeight   float64
	ValidCells    int
	ObstacleCells int
	StepCells     int
}

// elevationToCM converts meters to signed centimeters, saturating to ±127.
func elevationToCM(meters float64) int8 {
	cm := math.Round(meters * 100)
	if cm > 127 {
		return 127
	}
	if cm < -127 {
		return -127
	}
	return int8(cm)
}

// Snapshot captures the grid in the heading-aligned output frame: each
// output cell's local coords (lx, lz) are rotated into world coords by
// UserHeading before the lookup, and out-of-grid output cells encode
// (Unknown, 0). Rotation happens only here, at the serialization boundary,
// never in storage.
func (g *Grid) Snapshot() Snapshot {
	n := g.size()
	snap := Snapshot{
		Size:          n,
		States:        make([]CellState, n*n),
		ElevationCM:   make([]int8, n*n),
		OriginX:       g.OriginX,
		OriginZ:       g.OriginZ,
		UserHeading:   g.UserHeading,
		FloorHeight:   g.FloorHeight,
		ValidCells:    g.ValidCellCount,
		ObstacleCells: g.ObstacleCellCount,
		StepCells:     g.StepCellCount,
	}

	cs := g.cfg.Grid.CellSize
	half := float64(n) / 2
	sinH, cosH := math.Sin(g.UserHeading), math.Cos(g.UserHeading)

	for oz := 0; oz < n; oz++ {
		lz := (float64(oz) - half + 0.5) * cs
		for ox := 0; ox < n; ox++ {
			lx := (float64(ox) - half + 0.5) * cs

			wx := g.OriginX + lx*cosH + lz*sinH
			wz := g.OriginZ - lx*sinH + lz*cosH

			idx := oz*n + ox
			ix, iz, ok := g.WorldToGrid(wx, wz)
			if !ok {
				snap.States[idx] = Unknown
				snap.ElevationCM[idx] = 0
				continue
			}
			cell := g.Cell(ix, iz)
			snap.States[idx] = cell.State
			if cell.HitCount > 0 && !math.IsInf(float64(cell.MinHeight), 0) {
				snap.ElevationCM[idx] = elevationToCM(float64(cell.Elevation))
			}
		}
	}
	return snap
}

// ToCompactBytes encodes the snapshot as gridSize² pairs of (state byte,
// elevation_cm byte), row-major z-outer/x-inner.
func (s Snapshot) ToCompactBytes() []byte {
	n := s.Size
	buf := make([]byte, n*n*2)
	for i := 0; i < n*n; i++ {
		buf[2*i] = byte(s.States[i])
		buf[2*i+1] = byte(s.ElevationCM[i])
	}
	return buf
}

// ParseCompactBytes decodes the wire format produced by ToCompactBytes.
func ParseCompactBytes(data []byte, size int) (Snapshot, error) {
	n := size
	if len(data) != n*n*2 {
		return Snapshot{}, errors.Errorf("occupancy: compact snapshot length %d does not match gridSize %d (want %d)", len(data), n, n*n*2)
	}
	snap := Snapshot{
		Size:        n,
		States:      make([]CellState, n*n),
		ElevationCM: make([]int8, n*n),
	}
	for i := 0; i < n*n; i++ {
		snap.States[i] = CellState(data[2*i])
		snap.ElevationCM[i] = int8(data[2*i+1])
	}
	return snap, nil
}
