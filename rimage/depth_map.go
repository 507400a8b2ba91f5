package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// MillimetersPerMeter converts raw sensor depth units to meters.
const MillimetersPerMeter = 1000.0

// DepthMap is a dense grid of depths in meters. A zero depth means no reading.
type DepthMap struct {
	width  int
	height int

	data []float64
}

// NewEmptyDepthMap returns a zero depth map of the given size.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]float64, width*height),
	}
}

// NewDepthMapFromMillimeters converts row-major raw millimeter readings to a depth map in meters.
func NewDepthMapFromMillimeters(width, height int, raw []uint16) (*DepthMap, error) {
	if len(raw) != width*height {
		return nil, errors.Errorf("depth data has %d values, expected %dx%d", len(raw), width, height)
	}
	dm := NewEmptyDepthMap(width, height)
	for i, v := range raw {
		dm.data[i] = float64(v) / MillimetersPerMeter
	}
	return dm, nil
}

// Width returns the width of the depth map.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the height of the depth map.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle dimensions of the depth map.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

func (dm *DepthMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// GetDepth returns the depth in meters at (x, y).
func (dm *DepthMap) GetDepth(x, y int) float64 {
	return dm.data[dm.kxy(x, y)]
}

// Set sets the depth in meters at (x, y).
func (dm *DepthMap) Set(x, y int, val float64) {
	dm.data[dm.kxy(x, y)] = val
}

// MinMax returns the minimum and maximum non-zero depth.
func (dm *DepthMap) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), 0.0
	for _, z := range dm.data {
		if z == 0 {
			continue
		}
		lo = math.Min(lo, z)
		hi = math.Max(hi, z)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// ToPrettyPicture colors the depth map from red (near) to blue (far) between hardMin and hardMax.
// A non-positive bound is replaced by the observed extreme. Missing readings are black.
func (dm *DepthMap) ToPrettyPicture(hardMin, hardMax float64) image.Image {
	img := image.NewRGBA(dm.Bounds())

	lo, hi := dm.MinMax()
	if hardMin > 0 {
		lo = math.Max(lo, hardMin)
	}
	if hardMax > 0 {
		hi = math.Min(hi, hardMax)
	}
	span := hi - lo

	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			z := dm.GetDepth(x, y)
			if z == 0 {
				img.Set(x, y, color.Black)
				continue
			}
			ratio := 0.0
			if span > 0 {
				ratio = math.Max(0, math.Min(1, (z-lo)/span))
			}
			img.Set(x, y, colorful.Hsv(ratio*240, 1, 1).Clamped())
		}
	}
	return img
}
