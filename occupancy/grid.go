package occupancy

import (
	"math"

	"go.viam.com/pathfinder/config"
	"go.viam.com/pathfinder/logging"
	"go.viam.com/pathfinder/spatialmath"
)

// Grid is the world-aligned top-down occupancy grid. Storage indices are a
// translated world frame; no rotation is ever baked into storage, so
// temporal persistence survives user rotation.
type Grid struct {
	cfg    *config.Config
	logger logging.Logger

	cells []Cell // row-major, z outer, x inner: cells[iz*GridSize+ix]

	OriginX, OriginZ float64
	UserHeading      float64
	FloorHeight      float64

	ValidCellCount    int
	ObstacleCellCount int
	StepCellCount     int
}

// NewGrid allocates a grid of cfg.Grid.GridSize² Unknown cells centered at
// the world origin.
func NewGrid(cfg *config.Config, logger logging.Logger) *Grid {
	n := cfg.Grid.GridSize * cfg.Grid.GridSize
	cells := make([]Cell, n)
	for i := range cells {
		cells[i] = NewCell()
	}
	return &Grid{
		cfg:    cfg,
		logger: logger,
		cells:  cells,
	}
}

func (g *Grid) size() int { return g.cfg.Grid.GridSize }

func (g *Grid) idx(ix, iz int) int { return iz*g.size()+ix }

func (g *Grid) inBounds(ix, iz int) bool {
	n := g.size()
	return ix >= 0 && ix < n && iz >= 0 && iz < n
}

// WorldToGrid maps a world point to grid indices, or reports ok=false if it
// falls outside the grid.
func (g *Grid) WorldToGrid(wx, wz float64) (ix, iz int, ok bool) {
	n := g.size()
	cs := g.cfg.Grid.CellSize
	ix = int(math.Floor((wx-g.OriginX)/cs + float64(n)/2))
	iz = int(math.Floor((wz-g.OriginZ)/cs + float64(n)/2))
	return ix, iz, g.inBounds(ix, iz)
}

// GridToWorld returns the world-space center of cell (ix, iz).
func (g *Grid) GridToWorld(ix, iz int) (wx, wz float64) {
	n := g.size()
	cs := g.cfg.Grid.CellSize
	wx = g.OriginX + (float64(ix)-float64(n)/2+0.5)*cs
	wz = g.OriginZ + (float64(iz)-float64(n)/2+0.5)*cs
	return wx, wz
}

// Cell returns the cell at grid indices (ix, iz). Callers must check
// bounds first, via WorldToGrid's ok return; indices are not range-checked
// here.
func (g *Grid) Cell(ix, iz int) *Cell {
	return &g.cells[g.idx(ix, iz)]
}

// CellAt returns the cell containing world point (wx, wz), or nil if out of
// bounds.
func (g *Grid) CellAt(wx, wz float64) *Cell {
	ix, iz, ok := g.WorldToGrid(wx, wz)
	if !ok {
		return nil
	}
	return g.Cell(ix, iz)
}

// UpdateUserPose stores the current heading and recenters the grid if the
// user has moved past the configured edge margin.
func (g *Grid) UpdateUserPose(pos spatialmath.Vector, heading float64) {
	g.UserHeading = heading

	n := float64(g.size())
	cs := g.cfg.Grid.CellSize
	halfExtent := n * cs / 2
	threshold := halfExtent * (1 - g.cfg.Grid.RecenterEdgeMargin)

	dxAbs := math.Abs(pos.X - g.OriginX)
	dzAbs := math.Abs(pos.Z - g.OriginZ)
	if math.Max(dxAbs, dzAbs) > threshold {
		g.recenter(pos.X, pos.Z)
	}
}

// recenter shifts cells by the integer cell delta implied by moving the
// origin to (newOriginX, newOriginZ); cells that scroll off the new window
// become Unknown.
func (g *Grid) recenter(newOriginX, newOriginZ float64) {
	cs := g.cfg.Grid.CellSize
	dx := int(math.Round((newOriginX - g.OriginX) / cs))
	dz := int(math.Round((newOriginZ - g.OriginZ) / cs))

	n := g.size()
	next := make([]Cell, n*n)
	for i := range next {
		next[i] = NewCell()
	}

	if dx != 0 || dz != 0 {
		for iz := 0; iz < n; iz++ {
			for ix := 0; ix < n; ix++ {
				oldIx := ix + dx
				oldIz := iz + dz
				if g.inBounds(oldIx, oldIz) {
					next[iz*n+ix] = g.cells[g.idx(oldIx, oldIz)]
				}
			}
		}
	} else {
		copy(next, g.cells)
	}

	g.cells = next
	g.OriginX = newOriginX
	g.OriginZ = newOriginZ
	g.logger.Debugw("grid recentered", "dx", dx, "dz", dz)
}

// ApplyDecay scales every cell's confidence by decay^(dt*60) and resets
// cells whose confidence falls below the minimum. A dt=0 call is a no-op.
func (g *Grid) ApplyDecay(dt float64) {
	if dt == 0 {
		return
	}
	factor := math.Pow(g.cfg.Temporal.ConfidenceDecay, dt*60)
	minConf := float64(g.cfg.Temporal.MinConfidence)
	resets := 0
	for i := range g.cells {
		c := &g.cells[i]
		if c.Confidence == 0 {
			continue
		}
		next := math.Round(float64(c.Confidence) * factor)
		if next < minConf {
			c.Reset()
			resets++
			continue
		}
		c.Confidence = uint8(next)
	}
	if resets > 0 {
		g.logger.Debugw("decayed cells reset", "count", resets)
	}
}

// AddFloorPoint records a ground observation at grid indices (ix, iz).
func (g *Grid) AddFloorPoint(ix, iz int, y float64) {
	if !g.inBounds(ix, iz) {
		return
	}
	g.Cell(ix, iz).addFloorPoint(y, g.cfg.Temporal.ObservationBoost, g.cfg.Temporal.MaxConfidence)
}

// AddObstaclePoint records a non-ground observation at grid indices (ix, iz).
func (g *Grid) AddObstaclePoint(ix, iz int, y float64) {
	if !g.inBounds(ix, iz) {
		return
	}
	g.Cell(ix, iz).addObstaclePoint(y, g.cfg.Temporal.ObservationBoost, g.cfg.Temporal.MaxConfidence)
}

// UpdateFromDepthSample projects a single ranged sample (bearing, distance
// in meters, and whether it struck the ground) into the grid.
func (g *Grid) UpdateFromDepthSample(bearing, distanceMeters float64, isGround bool) {
	origin := spatialmath.NewVector(g.OriginX, 0, g.OriginZ)
	p := spatialmath.PointOnBearing(origin, bearing, distanceMeters)
	ix, iz, ok := g.WorldToGrid(p.X, p.Z)
	if !ok {
		return
	}
	if isGround {
		g.AddFloorPoint(ix, iz, g.FloorHeight)
	} else {
		g.AddObstaclePoint(ix, iz, g.FloorHeight+g.cfg.Elevation.ObstacleHeight)
	}
}

// UpdateFromDetection marks a perpendicular strip of cells Occupied around
// (bearing, distanceMeters), width meters wide, with a confidence boost
// proportional to the detector's confidence. It never decreases confidence
// and never sets a cell to Unknown.
func (g *Grid) UpdateFromDetection(bearing, distanceMeters, width, detectorConfidence float64) {
	cs := g.cfg.Grid.CellSize
	halfWidth := width / 2
	steps := int(math.Ceil(halfWidth / cs))
	if steps < 1 {
		steps = 1
	}

	center := spatialmath.PointOnBearing(spatialmath.NewVector(g.OriginX, 0, g.OriginZ), bearing, distanceMeters)
	perp := bearing + math.Pi/2

	boost := uint8(math.Round(clamp01(detectorConfidence) * float64(g.cfg.Temporal.ObservationBoost)))

	for step := -steps; step <= steps; step++ {
		offset := float64(step) * cs
		px := center.X + math.Sin(perp)*offset
		pz := center.Z + math.Cos(perp)*offset
		ix, iz, ok := g.WorldToGrid(px, pz)
		if !ok {
			continue
		}
		cell := g.Cell(ix, iz)
		cell.State = Occupied
		cell.HitCount++
		cell.Confidence = saturatingAddConfidence(cell.Confidence, boost, g.cfg.Temporal.MaxConfidence)
	}
}

// MarkFree sets the cell at (ix, iz) Free with an observation boost. This
// is the direct scene-projection assignment, as opposed to the
// height-accumulation + Classify path.
func (g *Grid) MarkFree(ix, iz int) {
	if !g.inBounds(ix, iz) {
		return
	}
	cell := g.Cell(ix, iz)
	if cell.State == Occupied {
		return
	}
	cell.State = Free
	cell.HitCount++
	cell.Confidence = saturatingAddConfidence(cell.Confidence, g.cfg.Temporal.ObservationBoost, g.cfg.Temporal.MaxConfidence)
}

// MarkOccupied sets the cell at (ix, iz) Occupied with an observation boost.
func (g *Grid) MarkOccupied(ix, iz int) {
	if !g.inBounds(ix, iz) {
		return
	}
	cell := g.Cell(ix, iz)
	cell.State = Occupied
	cell.HitCount++
	cell.Confidence = saturatingAddConfidence(cell.Confidence, g.cfg.Temporal.ObservationBoost, g.cfg.Temporal.MaxConfidence)
}

// MarkSurfaceState sets the cell at (ix, iz) to a discontinuity-derived
// state (Step/Curb/Dropoff). An Occupied cell is never overwritten.
func (g *Grid) MarkSurfaceState(ix, iz int, state CellState) {
	if !g.inBounds(ix, iz) {
		return
	}
	cell := g.Cell(ix, iz)
	if cell.State == Occupied {
		return
	}
	cell.State = state
	cell.HitCount++
	cell.Confidence = saturatingAddConfidence(cell.Confidence, g.cfg.Temporal.ObservationBoost, g.cfg.Temporal.MaxConfidence)
}

// Classify derives Free/Occupied from accumulated height stats for every
// valid cell with a finite min height. It never downgrades an
// already-Occupied cell, and never assigns the planner-exclusive
// Step/Curb/Ramp/Stairs/Dropoff states.
func (g *Grid) Classify() {
	g.ValidCellCount = 0
	g.ObstacleCellCount = 0
	g.StepCellCount = 0

	minHit := g.cfg.Processing.MinHitCount
	obstacleThreshold := float32(g.cfg.Elevation.ObstacleHeight)

	for i := range g.cells {
		c := &g.cells[i]
		if !c.IsValid(minHit) || math.IsInf(float64(c.MinHeight), 0) {
			continue
		}
		g.ValidCellCount++
		c.Elevation = c.MinHeight - float32(g.FloorHeight)

		obstacleHeight := c.HeightRange()
		if obstacleHeight < 0 {
			obstacleHeight = 0
		}

		if c.State != Occupied {
			if obstacleHeight > obstacleThreshold {
				c.State = Occupied
			} else {
				c.State = Free
			}
		}

		switch c.State {
		case Occupied:
			g.ObstacleCellCount++
		case Step:
			g.StepCellCount++
		}
	}
}

// NearestObstacle ray-marches from `from` along heading at cell-size steps
// up to maxDistance, returning the distance to the first blocking cell, or
// +Inf if none.
func (g *Grid) NearestObstacle(from spatialmath.Vector, heading, maxDistance float64) float64 {
	cs := g.cfg.Grid.CellSize
	for d := cs; d <= maxDistance; d += cs {
		p := spatialmath.PointOnBearing(from, heading, d)
		ix, iz, ok := g.WorldToGrid(p.X, p.Z)
		if !ok {
			continue
		}
		if g.Cell(ix, iz).State.IsBlocking() {
			return d
		}
	}
	return math.Inf(1)
}

// IsSafe reports whether (wx, wz) is inside the grid and in a traversable
// state. Unknown is treated as unsafe.
func (g *Grid) IsSafe(wx, wz float64) bool {
	ix, iz, ok := g.WorldToGrid(wx, wz)
	if !ok {
		return false
	}
	switch g.Cell(ix, iz).State {
	case Free, Ramp, Step:
		return true
	default:
		return false
	}
}

// Size returns the grid's cells-per-side.
func (g *Grid) Size() int { return g.size() }

// CellSize returns the configured cell edge length in meters.
func (g *Grid) CellSize() float64 { return g.cfg.Grid.CellSize }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
