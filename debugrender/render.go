// Package debugrender offers an offline, pull-based renderer of an
// occupancy grid snapshot to a PNG raster image, a human-facing view for
// developers without a debug-stream client.
package debugrender

import (
	"image"

	"github.com/fogleman/gg"

	"go.viam.com/pathfinder/occupancy"
)

// CellPixels is the edge length, in pixels, of one rendered grid cell.
const CellPixels = 3

// stateColor maps a CellState to its debug-render color.
func stateColor(s occupancy.CellState) (r, g, b float64) {
	switch s {
	case occupancy.Free:
		return 0.2, 0.7, 0.2
	case occupancy.Occupied:
		return 0.8, 0.1, 0.1
	case occupancy.Step:
		return 0.9, 0.7, 0.1
	case occupancy.Curb:
		return 0.9, 0.5, 0.0
	case occupancy.Ramp:
		return 0.2, 0.5, 0.8
	case occupancy.Stairs:
		return 0.6, 0.3, 0.8
	case occupancy.Dropoff:
		return 0.9, 0.0, 0.5
	default: // Unknown
		return 0.15, 0.15, 0.15
	}
}

// Render draws a grid snapshot as a top-down raster: state determines cell
// color, row-major z-outer/x-inner matching the snapshot's own layout.
func Render(snap occupancy.Snapshot) image.Image {
	n := snap.Size
	size := n * CellPixels
	dc := gg.NewContext(size, size)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	for oz := 0; oz < n; oz++ {
		for ox := 0; ox < n; ox++ {
			idx := oz*n + ox
			r, g, b := stateColor(snap.States[idx])
			dc.SetRGB(r, g, b)
			dc.DrawRectangle(float64(ox*CellPixels), float64(oz*CellPixels), CellPixels, CellPixels)
			dc.Fill()
		}
	}

	center := size / 2
	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(float64(center), float64(center), CellPixels)
	dc.Fill()

	return dc.Image()
}

// SavePNG renders snap and writes it to path.
func SavePNG(snap occupancy.Snapshot, path string) error {
	dc := gg.NewContextForImage(Render(snap))
	return dc.SavePNG(path)
}
