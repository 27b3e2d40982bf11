package nav

import (
	"math"

	"go.viam.com/pathfinder/logging"
	"go.viam.com/pathfinder/occupancy"
	"go.viam.com/pathfinder/scene"
	"go.viam.com/pathfinder/spatialmath"
)

const (
	// heading search: 36 rays over ±90° around the user's heading
	headingSearchRays   = 36
	headingSearchSpread = math.Pi / 2

	// forward threat scan: 18 rays over ±45°
	forwardThreatRays   = 18
	forwardThreatSpread = math.Pi / 4

	// only discontinuities within ±45° of forward count as "ahead"
	discontinuityAheadSpread = math.Pi / 4

	maxReliableDepth = 30.0
	obstacleEps      = 1e-6
)

// Default* are the Planner's default parameter values, exported so other
// components (the debug stream's payload builder, in particular) can
// reference the same depth-to-meters conversion the planner itself uses
// without constructing a Planner.
const (
	DefaultDepthScale      = 10.0
	DefaultSmoothingFactor = 0.3
	DefaultSafetyMargin    = 0.5
	DefaultMaxMarch        = 10.0
)

// Planner selects a heading from the scene and grid each frame. Its only
// cross-frame state is the previous smoothed heading.
type Planner struct {
	DepthScale      float64
	SmoothingFactor float64
	SafetyMargin    float64
	MaxMarch        float64

	previousHeading float64
	logger          logging.Logger
}

// NewPlanner constructs a Planner with the Default* parameters and a
// previous heading of 0.
func NewPlanner(logger logging.Logger) *Planner {
	return &Planner{
		DepthScale:      DefaultDepthScale,
		SmoothingFactor: DefaultSmoothingFactor,
		SafetyMargin:    DefaultSafetyMargin,
		MaxMarch:        DefaultMaxMarch,
		logger:          logger,
	}
}

// metersFromRaw converts a raw (relative, pre-metric) depth sample to
// meters, depthScale/(raw+eps) clamped to [0, maxReliableDepth]. A +Inf
// raw sample (the "no obstacle found" sentinel) maps to maximally far
// rather than maximally near.
func metersFromRaw(depthScale float64, raw float32) float64 {
	r := float64(raw)
	if math.IsInf(r, 1) {
		return maxReliableDepth
	}
	v := depthScale / (r + obstacleEps)
	if v > maxReliableDepth {
		return maxReliableDepth
	}
	if v < 0 {
		return 0
	}
	return v
}

// Update runs one planning cycle: project the scene into the grid, decay
// and recenter, then search for the best heading and scan for threats.
func (p *Planner) Update(
	sc scene.Understanding,
	userPos spatialmath.Vector,
	userHeading float64,
	dt float64,
	grid *occupancy.Grid,
) Output {
	p.projectScene(sc, userHeading, grid)
	grid.ApplyDecay(dt)
	grid.UpdateUserPose(userPos, userHeading)

	from := spatialmath.NewVector(grid.OriginX, 0, grid.OriginZ)

	rawHeading, clearance, blocked := p.searchHeading(grid, from, userHeading)
	if blocked {
		rawHeading = 0
		p.logger.Debugw("no ray cleared the safety margin, path blocked")
	}
	smoothed := p.SmoothingFactor*rawHeading + (1-p.SmoothingFactor)*p.previousHeading
	p.previousHeading = smoothed

	nearestDist, nearestBearing := p.forwardThreatScan(grid, from, userHeading)

	var discAhead *scene.Discontinuity
	bestDist := math.Inf(1)
	for i := range sc.Discontinuities {
		d := sc.Discontinuities[i]
		if math.Abs(d.Bearing) >= discontinuityAheadSpread {
			continue
		}
		dist := d.EstimatedDistance(p.DepthScale)
		if dist < bestDist {
			bestDist = dist
			discAhead = &sc.Discontinuities[i]
		}
	}

	groundConfidence := meanOf(sc.Traversability)

	return Output{
		SuggestedHeading:        smoothed,
		Clearance:               clearance,
		NearestObstacleDistance: nearestDist,
		NearestObstacleBearing:  nearestBearing,
		DiscontinuityAhead:      discAhead,
		GroundConfidence:        groundConfidence,
		IsPathBlocked:           blocked,
	}
}

// projectScene writes each scene column's evidence into the grid as direct
// state assignments (not the height-accumulation + Classify path): free
// cells along highly-traversable rays, an Occupied mark at each column's
// obstacle distance, and Step/Curb/Dropoff marks for discontinuities.
func (p *Planner) projectScene(sc scene.Understanding, userHeading float64, grid *occupancy.Grid) {
	discByColumn := make(map[int]scene.Discontinuity, len(sc.Discontinuities))
	for _, d := range sc.Discontinuities {
		discByColumn[d.Column] = d
	}

	origin := spatialmath.NewVector(grid.OriginX, 0, grid.OriginZ)
	cellSize := grid.CellSize()
	angularStep := columnAngularStep(sc)

	for c := 0; c < sc.Columns; c++ {
		// a column's bearing is its slab's left edge; project at the center
		worldBearing := sc.ColumnBearings[c] + angularStep/2 + userHeading

		if sc.Traversability[c] > 0.7 {
			limit := math.Min(5.0, metersFromRaw(p.DepthScale, sc.ObstacleDistance[c]))
			for d := 0.5; d <= limit; d += cellSize {
				markWedge(grid, origin, worldBearing, d, angularStep, grid.MarkFree)
			}
		}

		if !math.IsInf(float64(sc.ObstacleDistance[c]), 1) {
			dist := metersFromRaw(p.DepthScale, sc.ObstacleDistance[c])
			markWedge(grid, origin, worldBearing, dist, angularStep, grid.MarkOccupied)
		}

		if d, ok := discByColumn[c]; ok {
			dist := metersFromRaw(p.DepthScale, d.RelativeDepth)
			state := discontinuityState(d.Magnitude)
			markWedge(grid, origin, worldBearing, dist, angularStep, func(ix, iz int) {
				grid.MarkSurfaceState(ix, iz, state)
			})
		}
	}
}

// columnAngularStep estimates the angular width a single column covers, so
// that adjacent columns' projected footprints tile without gaps between
// them.
func columnAngularStep(sc scene.Understanding) float64 {
	if sc.Columns < 2 {
		return 2 * math.Pi
	}
	return (sc.ColumnBearings[sc.Columns-1] - sc.ColumnBearings[0]) / float64(sc.Columns-1)
}

// markWedge applies mark to every cell within a column's angular footprint
// at distance from origin along bearing, as a perpendicular strip of cells
// like UpdateFromDetection's. The strip spans a full angular step on each
// side of the bearing, half a step past the slab edge, so adjacent
// columns' footprints overlap and a search ray cannot slip between two
// samples of a continuous surface.
func markWedge(grid *occupancy.Grid, origin spatialmath.Vector, bearing, distance, angularStep float64, mark func(ix, iz int)) {
	halfWidth := distance * angularStep
	cs := grid.CellSize()
	steps := int(math.Ceil(halfWidth / cs))
	center := spatialmath.PointOnBearing(origin, bearing, distance)
	perp := bearing + math.Pi/2
	for step := -steps; step <= steps; step++ {
		offset := float64(step) * cs
		px := center.X + math.Sin(perp)*offset
		pz := center.Z + math.Cos(perp)*offset
		if ix, iz, ok := grid.WorldToGrid(px, pz); ok {
			mark(ix, iz)
		}
	}
}

func discontinuityState(magnitude float64) occupancy.CellState {
	switch {
	case magnitude < 0.3:
		return occupancy.Step
	case magnitude <= 0.6:
		return occupancy.Curb
	default:
		return occupancy.Dropoff
	}
}

// rayMarch walks from `from` along bearing at cell_size steps up to
// maxDistance, returning the distance at which a blocking cell was hit (or
// maxDistance if none), the step penalty accrued by crossing Step cells en
// route, and whether a blocking cell was actually hit.
func rayMarch(grid *occupancy.Grid, from spatialmath.Vector, bearing, maxDistance float64) (clearance, stepPenalty float64, hit bool) {
	stepPenalty = 1.0
	cellSize := grid.CellSize()
	for d := cellSize; d <= maxDistance; d += cellSize {
		pt := spatialmath.PointOnBearing(from, bearing, d)
		ix, iz, ok := grid.WorldToGrid(pt.X, pt.Z)
		if !ok {
			continue
		}
		state := grid.Cell(ix, iz).State
		if state.IsBlocking() {
			return d, stepPenalty, true
		}
		if state == occupancy.Step && stepPenalty > 0.7 {
			stepPenalty = 0.7
		}
	}
	return maxDistance, stepPenalty, false
}

// searchHeading scores candidate rays by clearance, forwardness, and step
// penalty, rejecting any ray whose clearance is within the safety margin.
func (p *Planner) searchHeading(grid *occupancy.Grid, from spatialmath.Vector, userHeading float64) (bestAngle, bestClearance float64, blocked bool) {
	bestScore := math.Inf(-1)
	found := false

	for i := 0; i < headingSearchRays; i++ {
		angle := -headingSearchSpread + float64(i)*(2*headingSearchSpread)/float64(headingSearchRays-1)
		clearance, stepPenalty, _ := rayMarch(grid, from, userHeading+angle, p.MaxMarch)
		if clearance <= p.SafetyMargin {
			continue
		}
		score := clearance * (1 - math.Abs(angle)/math.Pi*0.5) * stepPenalty
		if score > bestScore {
			bestScore = score
			bestAngle = angle
			bestClearance = clearance
			found = true
		}
	}

	return bestAngle, bestClearance, !found
}

// forwardThreatScan finds the nearest blocking cell in the forward cone.
func (p *Planner) forwardThreatScan(grid *occupancy.Grid, from spatialmath.Vector, userHeading float64) (minDistance, bearing float64) {
	minDistance = math.Inf(1)
	for i := 0; i < forwardThreatRays; i++ {
		angle := -forwardThreatSpread + float64(i)*(2*forwardThreatSpread)/float64(forwardThreatRays-1)
		clearance, _, hit := rayMarch(grid, from, userHeading+angle, p.MaxMarch)
		if hit && clearance < minDistance {
			minDistance = clearance
			bearing = angle
		}
	}
	return minDistance, bearing
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
