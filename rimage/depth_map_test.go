package rimage

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestNewDepthMapValidation(t *testing.T) {
	_, err := NewDepthMap(0, 4, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewDepthMap(4, 4, make([]float32, 10))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "length")

	dm, err := NewDepthMap(2, 2, []float32{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.MinDepth, test.ShouldEqual, float32(1))
	test.That(t, dm.MaxDepth, test.ShouldEqual, float32(4))
}

func TestDepthAtPixelBounds(t *testing.T) {
	dm, err := NewDepthMap(2, 2, []float32{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, dm.DepthAtPixel(0, 0), test.ShouldEqual, float32(1))
	test.That(t, dm.DepthAtPixel(1, 1), test.ShouldEqual, float32(4))
	test.That(t, math.IsInf(float64(dm.DepthAtPixel(-1, 0)), 1), test.ShouldBeTrue)
	test.That(t, math.IsInf(float64(dm.DepthAtPixel(2, 0)), 1), test.ShouldBeTrue)
}

func TestDepthAtNormalizedBilinear(t *testing.T) {
	// 2x2 grid: corners 0,10,0,10 -> interpolating center should be 5
	dm, err := NewDepthMap(2, 2, []float32{0, 10, 0, 10})
	test.That(t, err, test.ShouldBeNil)

	center := dm.DepthAtNormalized(0.5, 0.5)
	test.That(t, float64(center), test.ShouldAlmostEqual, 5.0, 0.01)

	test.That(t, dm.DepthAtNormalized(0, 0), test.ShouldEqual, float32(0))
	test.That(t, dm.DepthAtNormalized(1, 0), test.ShouldEqual, float32(10))

	test.That(t, math.IsInf(float64(dm.DepthAtNormalized(1.5, 0.5)), 1), test.ShouldBeTrue)
	test.That(t, math.IsInf(float64(dm.DepthAtNormalized(-0.1, 0.5)), 1), test.ShouldBeTrue)
}

func TestAverageDepthSkipsNonFinite(t *testing.T) {
	inf := float32(math.Inf(1))
	dm, err := NewDepthMap(2, 2, []float32{2, inf, 4, inf})
	test.That(t, err, test.ShouldBeNil)

	avg := dm.AverageDepth(0, 0, 2, 2)
	test.That(t, float64(avg), test.ShouldAlmostEqual, 3.0)
}

func TestAverageDepthEmptyRegionIsInf(t *testing.T) {
	dm, err := NewDepthMap(2, 2, []float32{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)

	avg := dm.AverageDepth(5, 5, 6, 6)
	test.That(t, math.IsInf(float64(avg), 1), test.ShouldBeTrue)
}

func TestMinMaxAllNonFinite(t *testing.T) {
	inf := float32(math.Inf(1))
	dm, err := NewDepthMap(1, 2, []float32{inf, inf})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.IsInf(float64(dm.MinDepth), 1), test.ShouldBeTrue)
	test.That(t, math.IsInf(float64(dm.MaxDepth), -1), test.ShouldBeTrue)
}
