package debugrender

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/pathfinder/occupancy"
)

func TestRenderProducesGridSizedImage(t *testing.T) {
	snap := occupancy.Snapshot{
		Size:        4,
		States:      make([]occupancy.CellState, 16),
		ElevationCM: make([]int8, 16),
	}
	snap.States[5] = occupancy.Occupied

	img := Render(snap)
	bounds := img.Bounds()
	test.That(t, bounds.Dx(), test.ShouldEqual, 4*CellPixels)
	test.That(t, bounds.Dy(), test.ShouldEqual, 4*CellPixels)
}
