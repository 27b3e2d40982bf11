package occupancy

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/pathfinder/config"
	"go.viam.com/pathfinder/logging"
)

func TestSnapshotCompactBytesRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Grid.GridSize = 20
	grid := NewGrid(cfg, logging.NewTestLogger())

	grid.MarkOccupied(5, 5)
	grid.MarkFree(6, 5)
	grid.Cell(5, 5).MinHeight = 0.42
	grid.Cell(5, 5).Elevation = 0.42
	grid.Cell(6, 5).MinHeight = -0.07
	grid.Cell(6, 5).Elevation = -0.07

	snap := grid.Snapshot()
	encoded := snap.ToCompactBytes()

	decoded, err := ParseCompactBytes(encoded, snap.Size)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.States, test.ShouldResemble, snap.States)
	test.That(t, decoded.ElevationCM, test.ShouldResemble, snap.ElevationCM)
}

func TestSnapshotOutOfGridEncodesZero(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Grid.GridSize = 4
	cfg.Grid.CellSize = 0.1
	grid := NewGrid(cfg, logging.NewTestLogger())
	grid.UserHeading = 1.0 // arbitrary non-zero heading to exercise rotation

	snap := grid.Snapshot()
	for i, st := range snap.States {
		if st == Unknown {
			test.That(t, snap.ElevationCM[i], test.ShouldEqual, int8(0))
		}
	}
}

func TestParseCompactBytesRejectsWrongLength(t *testing.T) {
	_, err := ParseCompactBytes(make([]byte, 3), 2)
	test.That(t, err, test.ShouldNotBeNil)
}
