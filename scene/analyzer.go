package scene

import (
	"math"
	"sort"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/pathfinder/logging"
	"go.viam.com/pathfinder/rimage"
)

// Analyzer is the stateless depth+segmentation-to-scene reducer. Its
// tunables are exposed as fields so tests can probe edge behavior;
// NewAnalyzer fills in the defaults.
type Analyzer struct {
	Columns int

	// WalkableIDs is the set of segmentation class labels treated as
	// ground/traversable surface.
	WalkableIDs map[uint8]struct{}

	// SkyDepthThreshold is the raw (pre metric-conversion) depth value
	// above which a pixel is treated as sky and excluded from obstacle and
	// discontinuity scanning.
	SkyDepthThreshold float64

	// DiscontinuityMinAbsGradient is the absolute-gradient floor a
	// candidate must clear; DiscontinuityThreshold is the minimum
	// normalized magnitude for the winning candidate.
	DiscontinuityMinAbsGradient float64
	DiscontinuityThreshold      float64
	// OutlierRatio is the "3.0" multiple a candidate gradient's magnitude
	// must exceed the column's median absolute gradient by.
	OutlierRatio float64

	logger logging.Logger
}

// NewAnalyzer constructs an Analyzer with the default tuning: 36 columns,
// sky threshold 0.95, gradient floor 0.3, discontinuity threshold 0.08,
// outlier ratio 3.0.
func NewAnalyzer(walkableIDs map[uint8]struct{}, logger logging.Logger) *Analyzer {
	return &Analyzer{
		Columns:                     36,
		WalkableIDs:                 walkableIDs,
		SkyDepthThreshold:           0.95,
		DiscontinuityMinAbsGradient: 0.3,
		DiscontinuityThreshold:      0.08,
		OutlierRatio:                3.0,
		logger:                      logger,
	}
}

func (a *Analyzer) isWalkable(label uint8) bool {
	_, ok := a.WalkableIDs[label]
	return ok
}

// columnSegBounds returns the [start,end) pixel bounds of scene column c in
// segmentation-space, using floor division so the last column may be
// narrower.
func (a *Analyzer) columnSegBounds(c, segWidth int) (int, int) {
	start := c * segWidth / a.Columns
	end := (c + 1) * segWidth / a.Columns
	if end <= start {
		end = start + 1
	}
	if end > segWidth {
		end = segWidth
	}
	return start, end
}

// Analyze reduces a depth+segmentation frame pair into a column-wise scene
// descriptor. It never fails: degenerate input (empty image, no walkable
// pixels) yields a valid Understanding with zeroed/infinite fields. The
// returned error, when non-nil, is a multierr-combined set of SampleErrors
// (sky pixels skipped per column); it is advisory bookkeeping for sensor
// stats, never a reason to discard u.
func (a *Analyzer) Analyze(depth *rimage.DepthMap, seg *rimage.SegmentationMap, cameraHFOV float64) (Understanding, error) {
	u := Understanding{
		Columns:          a.Columns,
		ColumnBearings:   make([]float64, a.Columns),
		Traversability:   make([]float64, a.Columns),
		ObstacleDistance: make([]float32, a.Columns),
	}

	if depth == nil || seg == nil || depth.Width == 0 || depth.Height == 0 || seg.Width == 0 || seg.Height == 0 {
		for c := 0; c < a.Columns; c++ {
			u.ColumnBearings[c] = a.bearing(c, cameraHFOV)
			u.ObstacleDistance[c] = infFloat32()
		}
		return u, nil
	}

	var sampleErr error
	for c := 0; c < a.Columns; c++ {
		u.ColumnBearings[c] = a.bearing(c, cameraHFOV)

		segStart, segEnd := a.columnSegBounds(c, seg.Width)
		u.Traversability[c] = a.traversability(seg, segStart, segEnd)

		depthX := a.depthColumnX(segStart, segEnd, seg.Width, depth.Width)
		dist, skipped := a.obstacleDistance(depth, seg, depthX)
		u.ObstacleDistance[c] = dist
		if skipped > 0 {
			sampleErr = multierr.Append(sampleErr, SampleError{Column: c, Count: skipped})
		}

		if disc, ok := a.discontinuity(depth, seg, depthX, c, u.ColumnBearings[c]); ok {
			u.Discontinuities = append(u.Discontinuities, disc)
		}
	}

	u.GroundPlaneRatio = a.groundPlaneRatio(depth, seg)
	if sampleErr != nil {
		a.logger.Debugw("skipped sky pixels during column scans", "columns", len(multierr.Errors(sampleErr)))
	}
	return u, sampleErr
}

func (a *Analyzer) bearing(c int, hfov float64) float64 {
	return (float64(c)/float64(a.Columns) - 0.5) * hfov
}

// traversability counts walkable pixels over the whole image height within
// the column's seg-space horizontal slab. All rows count; a chest-mounted
// camera at arbitrary pitch has no reliable horizon row to restrict to.
func (a *Analyzer) traversability(seg *rimage.SegmentationMap, segStart, segEnd int) float64 {
	var walkable, total int
	for y := 0; y < seg.Height; y++ {
		for x := segStart; x < segEnd; x++ {
			total++
			if a.isWalkable(seg.LabelAtPixel(x, y)) {
				walkable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(walkable) / float64(total)
}

// depthColumnX maps a column's seg-space midpoint into depth-space via
// nearest-neighbor integer scaling.
func (a *Analyzer) depthColumnX(segStart, segEnd, segWidth, depthWidth int) int {
	segMid := (segStart + segEnd) / 2
	depthX := segMid * depthWidth / segWidth
	if depthX >= depthWidth {
		depthX = depthWidth - 1
	}
	if depthX < 0 {
		depthX = 0
	}
	return depthX
}

// obstacleDistance scans rows bottom->top at depthX, skipping sky pixels,
// and returns the raw depth of the first non-walkable pixel, plus the
// count of sky pixels skipped along the way.
func (a *Analyzer) obstacleDistance(depth *rimage.DepthMap, seg *rimage.SegmentationMap, depthX int) (float32, int) {
	skipped := 0
	for y := depth.Height - 1; y >= 0; y-- {
		raw := depth.DepthAtPixel(depthX, y)
		if float64(raw) > a.SkyDepthThreshold {
			skipped++
			continue
		}
		segX, segY := seg.NearestFrom(depthX, y, depth.Width, depth.Height)
		if !a.isWalkable(seg.LabelAtPixel(segX, segY)) {
			return raw, skipped
		}
	}
	return infFloat32(), skipped
}

// discontinuity extracts the vertical depth profile restricted to walkable,
// non-sky pixels at depthX (bottom-up index order) and finds the dominant
// surface step, if any.
func (a *Analyzer) discontinuity(
	depth *rimage.DepthMap, seg *rimage.SegmentationMap, depthX, column int, bearing float64,
) (Discontinuity, bool) {
	var profile []float64
	for y := depth.Height - 1; y >= 0; y-- {
		raw := depth.DepthAtPixel(depthX, y)
		if float64(raw) > a.SkyDepthThreshold {
			continue
		}
		segX, segY := seg.NearestFrom(depthX, y, depth.Width, depth.Height)
		if !a.isWalkable(seg.LabelAtPixel(segX, segY)) {
			continue
		}
		profile = append(profile, float64(raw))
	}
	if len(profile) < 2 {
		return Discontinuity{}, false
	}

	grads := make([]float64, len(profile)-1)
	for i := range grads {
		grads[i] = profile[i+1] - profile[i]
	}

	maxAbsGrad := 0.0
	absGrads := make([]float64, len(grads))
	for i, g := range grads {
		absGrads[i] = math.Abs(g)
		if absGrads[i] > maxAbsGrad {
			maxAbsGrad = absGrads[i]
		}
	}
	if maxAbsGrad == 0 {
		// perfectly uniform profile, nothing to normalize against
		return Discontinuity{}, false
	}

	medianAbsGrad := medianOf(absGrads)

	bestIdx := -1
	bestNormMag := 0.0
	for i := range grads {
		absG := absGrads[i]
		if absG < a.DiscontinuityMinAbsGradient {
			continue
		}
		if medianAbsGrad > 0 && absG/medianAbsGrad <= a.OutlierRatio {
			continue
		}
		normMag := absG / maxAbsGrad
		if normMag < a.DiscontinuityThreshold {
			continue
		}
		if normMag > bestNormMag {
			bestNormMag = normMag
			bestIdx = i
		}
		// ties keep the earlier (lower index, bottom-up first) candidate
	}

	if bestIdx < 0 {
		return Discontinuity{}, false
	}

	dir := RiseUp
	if grads[bestIdx] > 0 {
		dir = DropAway
	}

	return Discontinuity{
		Column:        column,
		Bearing:       bearing,
		RelativeDepth: float32(profile[bestIdx]),
		Magnitude:     bestNormMag,
		Direction:     dir,
	}, true
}

// groundPlaneRatio is the walkable/non-sky pixel ratio over the whole
// image.
func (a *Analyzer) groundPlaneRatio(depth *rimage.DepthMap, seg *rimage.SegmentationMap) float64 {
	var walkable, nonSky int
	for y := 0; y < seg.Height; y++ {
		for x := 0; x < seg.Width; x++ {
			depthX := x * depth.Width / seg.Width
			depthY := y * depth.Height / seg.Height
			if depthX >= depth.Width {
				depthX = depth.Width - 1
			}
			if depthY >= depth.Height {
				depthY = depth.Height - 1
			}
			raw := depth.DepthAtPixel(depthX, depthY)
			if float64(raw) > a.SkyDepthThreshold {
				continue
			}
			nonSky++
			if a.isWalkable(seg.LabelAtPixel(x, y)) {
				walkable++
			}
		}
	}
	if nonSky == 0 {
		return 0
	}
	return float64(walkable) / float64(nonSky)
}

// medianOf returns the median of xs without mutating the caller's slice.
func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
