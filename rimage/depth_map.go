// Package rimage holds the immutable per-frame vision types that flow into
// scene analysis: the depth map produced by the monocular depth model and
// the segmentation map produced by the panoptic segmentation model.
package rimage

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// DepthMap is an immutable row-major field of relative (model-unit) depth
// samples, as produced by the external depth model collaborator.
// Invariant: len(Data) == Width*Height.
type DepthMap struct {
	Width, Height      int
	Data               []float32
	MinDepth, MaxDepth float32
}

// NewDepthMap validates and wraps a row-major depth buffer, precomputing
// MinDepth/MaxDepth once at construction.
func NewDepthMap(width, height int, data []float32) (*DepthMap, error) {
	if width <= 0 {
		return nil, errors.Errorf("rimage: depth map width must be positive, got %d", width)
	}
	if height <= 0 {
		return nil, errors.Errorf("rimage: depth map height must be positive, got %d", height)
	}
	if len(data) != width*height {
		return nil, errors.Errorf("rimage: depth data length %d does not match width*height %d", len(data), width*height)
	}

	minD := float32(math.Inf(1))
	maxD := float32(math.Inf(-1))
	for _, v := range data {
		fv := float64(v)
		if math.IsNaN(fv) || math.IsInf(fv, 0) {
			continue
		}
		if v < minD {
			minD = v
		}
		if v > maxD {
			maxD = v
		}
	}

	return &DepthMap{
		Width:    width,
		Height:   height,
		Data:     data,
		MinDepth: minD,
		MaxDepth: maxD,
	}, nil
}

// DepthAtPixel returns the sample at (px, py), or +Inf if out of bounds.
func (d *DepthMap) DepthAtPixel(px, py int) float32 {
	if px < 0 || py < 0 || px >= d.Width || py >= d.Height {
		return float32(math.Inf(1))
	}
	return d.Data[py*d.Width+px]
}

// DepthAtNormalized bilinearly samples at normalized coordinates in [0,1]^2,
// returning +Inf outside that range.
func (d *DepthMap) DepthAtNormalized(x, y float64) float32 {
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return float32(math.Inf(1))
	}

	fx := x * float64(d.Width-1)
	fy := y * float64(d.Height-1)
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > d.Width-1 {
		x1 = d.Width - 1
	}
	if y1 > d.Height-1 {
		y1 = d.Height - 1
	}

	tx := fx - float64(x0)
	ty := fy - float64(y0)

	v00 := float64(d.DepthAtPixel(x0, y0))
	v10 := float64(d.DepthAtPixel(x1, y0))
	v01 := float64(d.DepthAtPixel(x0, y1))
	v11 := float64(d.DepthAtPixel(x1, y1))

	top := v00*(1-tx) + v10*tx
	bottom := v01*(1-tx) + v11*tx
	return float32(top*(1-ty) + bottom*ty)
}

// AverageDepth returns the mean over the pixel rect [x0,x1)x[y0,y1),
// skipping non-finite samples; +Inf if the cropped region is empty or
// entirely non-finite.
func (d *DepthMap) AverageDepth(x0, y0, x1, y1 int) float32 {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > d.Width {
		x1 = d.Width
	}
	if y1 > d.Height {
		y1 = d.Height
	}

	var samples []float64
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			v := float64(d.Data[py*d.Width+px])
			if !math.IsInf(v, 0) && !math.IsNaN(v) {
				samples = append(samples, v)
			}
		}
	}
	if len(samples) == 0 {
		return float32(math.Inf(1))
	}
	return float32(floats.Sum(samples) / float64(len(samples)))
}
