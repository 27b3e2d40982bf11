package occupancy

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pathfinder/config"
	"go.viam.com/pathfinder/logging"
	"go.viam.com/pathfinder/spatialmath"
)

func testGrid(t *testing.T) *Grid {
	t.Helper()
	cfg := config.DefaultConfig()
	return NewGrid(cfg, logging.NewTestLogger())
}

func TestCellResetInvariant(t *testing.T) {
	c := NewCell()
	c.addFloorPoint(1.0, 30, 255)
	c.State = Occupied
	c.Reset()

	test.That(t, c.State, test.ShouldEqual, Unknown)
	test.That(t, c.Confidence, test.ShouldEqual, uint8(0))
	test.That(t, c.HitCount, test.ShouldEqual, uint16(0))
	test.That(t, math.IsInf(float64(c.MinHeight), 1), test.ShouldBeTrue)
	test.That(t, math.IsInf(float64(c.MaxHeight), -1), test.ShouldBeTrue)
}

func TestIsValidRequiresMinHitCount(t *testing.T) {
	c := NewCell()
	test.That(t, c.IsValid(3), test.ShouldBeFalse)
	c.addFloorPoint(1.0, 30, 255)
	c.addFloorPoint(1.0, 30, 255)
	test.That(t, c.IsValid(3), test.ShouldBeFalse)
	c.addFloorPoint(1.0, 30, 255)
	test.That(t, c.IsValid(3), test.ShouldBeTrue)
}

func TestWorldGridRoundTrip(t *testing.T) {
	g := testGrid(t)
	cs := g.CellSize()
	for _, p := range [][2]float64{{0, 0}, {1.23, -4.56}, {9.9, 9.9}, {-9.9, -9.9}} {
		ix, iz, ok := g.WorldToGrid(p[0], p[1])
		if !ok {
			continue
		}
		wx, wz := g.GridToWorld(ix, iz)
		test.That(t, math.Abs(wx-p[0]) <= cs, test.ShouldBeTrue)
		test.That(t, math.Abs(wz-p[1]) <= cs, test.ShouldBeTrue)
	}
}

func TestApplyDecayNeverIncreasesConfidence(t *testing.T) {
	g := testGrid(t)
	ix, iz, ok := g.WorldToGrid(0, 0)
	test.That(t, ok, test.ShouldBeTrue)
	g.AddFloorPoint(ix, iz, 0)
	before := g.Cell(ix, iz).Confidence

	g.ApplyDecay(1.0 / 60)
	after := g.Cell(ix, iz).Confidence
	test.That(t, after <= before, test.ShouldBeTrue)
}

func TestApplyDecayZeroIsNoop(t *testing.T) {
	g := testGrid(t)
	ix, iz, ok := g.WorldToGrid(0, 0)
	test.That(t, ok, test.ShouldBeTrue)
	g.AddFloorPoint(ix, iz, 0)
	before := *g.Cell(ix, iz)

	g.ApplyDecay(0)
	after := *g.Cell(ix, iz)
	test.That(t, after, test.ShouldResemble, before)
}

func TestApplyDecayResetsBelowMinConfidence(t *testing.T) {
	g := testGrid(t)
	ix, iz, ok := g.WorldToGrid(0, 0)
	test.That(t, ok, test.ShouldBeTrue)
	cell := g.Cell(ix, iz)
	cell.Confidence = 21 // just above min_confidence=20
	cell.HitCount = 1
	cell.State = Free

	// a large dt forces decay well below min_confidence
	g.ApplyDecay(10)
	test.That(t, g.Cell(ix, iz).State, test.ShouldEqual, Unknown)
	test.That(t, g.Cell(ix, iz).Confidence, test.ShouldEqual, uint8(0))
}

func TestUpdateFromDetectionNeverDowngradesOrUnknowns(t *testing.T) {
	g := testGrid(t)
	g.UpdateFromDetection(0, 2.0, 0.4, 0.9)

	ix, iz, ok := g.WorldToGrid(0, 2.0)
	test.That(t, ok, test.ShouldBeTrue)
	cell := g.Cell(ix, iz)
	test.That(t, cell.State, test.ShouldEqual, Occupied)
	before := cell.Confidence

	g.UpdateFromDetection(0, 2.0, 0.4, 0.9)
	after := g.Cell(ix, iz).Confidence
	test.That(t, after >= before, test.ShouldBeTrue)
	test.That(t, g.Cell(ix, iz).State, test.ShouldNotEqual, Unknown)
}

func TestRecenterTriggersAtEightyPercent(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Grid.GridSize = 20
	cfg.Grid.CellSize = 0.1
	cfg.Grid.RecenterEdgeMargin = 0.2
	g := NewGrid(cfg, logging.NewTestLogger())

	// seed a cell at world (0.5, 0.5)
	ix, iz, ok := g.WorldToGrid(0.5, 0.5)
	test.That(t, ok, test.ShouldBeTrue)
	g.Cell(ix, iz).State = Free
	g.Cell(ix, iz).HitCount = 5

	g.UpdateUserPose(spatialmath.NewVector(0.9, 0, 0), 0)

	test.That(t, g.OriginX, test.ShouldAlmostEqual, 0.9)
	test.That(t, g.OriginZ, test.ShouldAlmostEqual, 0.0)

	newIx, newIz, ok := g.WorldToGrid(0.5, 0.5)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, g.Cell(newIx, newIz).State, test.ShouldEqual, Free)
	test.That(t, g.Cell(newIx, newIz).HitCount, test.ShouldEqual, uint16(5))
}

func TestRecenterDoesNotTriggerBelowThreshold(t *testing.T) {
	g := testGrid(t)
	g.UpdateUserPose(spatialmath.NewVector(0.1, 0, 0), 0)
	test.That(t, g.OriginX, test.ShouldAlmostEqual, 0.0)
}

func TestIsSafeStates(t *testing.T) {
	g := testGrid(t)
	ix, iz, ok := g.WorldToGrid(0, 0)
	test.That(t, ok, test.ShouldBeTrue)

	test.That(t, g.IsSafe(0, 0), test.ShouldBeFalse) // Unknown is unsafe

	g.Cell(ix, iz).State = Free
	test.That(t, g.IsSafe(0, 0), test.ShouldBeTrue)

	g.Cell(ix, iz).State = Occupied
	test.That(t, g.IsSafe(0, 0), test.ShouldBeFalse)

	test.That(t, g.IsSafe(1000, 1000), test.ShouldBeFalse) // out of grid
}

func TestNearestObstacle(t *testing.T) {
	g := testGrid(t)
	g.MarkOccupied(mustIdx(t, g, 0, 2.0))

	dist := g.NearestObstacle(spatialmath.NewVector(0, 0, 0), 0, 10)
	test.That(t, dist, test.ShouldBeGreaterThan, 1.9)
	test.That(t, dist, test.ShouldBeLessThan, 2.2)
}

func TestNearestObstacleInfWhenClear(t *testing.T) {
	g := testGrid(t)
	dist := g.NearestObstacle(spatialmath.NewVector(0, 0, 0), 0, 10)
	test.That(t, math.IsInf(dist, 1), test.ShouldBeTrue)
}

func TestClassifyNeverDowngradesOccupied(t *testing.T) {
	g := testGrid(t)
	ix, iz, ok := g.WorldToGrid(0, 0)
	test.That(t, ok, test.ShouldBeTrue)

	g.MarkOccupied(ix, iz)
	// classify would otherwise see a tiny obstacle_height and call it Free
	g.Cell(ix, iz).MinHeight = 0
	g.Cell(ix, iz).MaxHeight = 0.01
	g.Cell(ix, iz).HitCount = g.cfg.Processing.MinHitCount

	g.Classify()
	test.That(t, g.Cell(ix, iz).State, test.ShouldEqual, Occupied)
}

func TestClassifyFreeVsOccupiedFromHeights(t *testing.T) {
	g := testGrid(t)
	freeIx, freeIz, _ := g.WorldToGrid(0, 0)
	obsIx, obsIz, _ := g.WorldToGrid(1, 1)

	for i := 0; i < int(g.cfg.Processing.MinHitCount); i++ {
		g.AddFloorPoint(freeIx, freeIz, 0)
		g.AddObstaclePoint(obsIx, obsIz, 1.0) // well above obstacle_height threshold
	}
	// seed min height for the obstacle cell too, so it has a finite MinHeight
	g.Cell(obsIx, obsIz).MinHeight = 0

	g.Classify()
	test.That(t, g.Cell(freeIx, freeIz).State, test.ShouldEqual, Free)
	test.That(t, g.Cell(obsIx, obsIz).State, test.ShouldEqual, Occupied)
}

func mustIdx(t *testing.T, g *Grid, wx, wz float64) (int, int) {
	t.Helper()
	ix, iz, ok := g.WorldToGrid(wx, wz)
	test.That(t, ok, test.ShouldBeTrue)
	return ix, iz
}
