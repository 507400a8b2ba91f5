package rimage

import (
	"io"
	"reflect"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// WriteMatrixNPY writes m as a float64 .npy array of shape (rows, cols).
func WriteMatrixNPY(w io.Writer, m mat.Matrix) error {
	return npyio.Write(w, m)
}

// WriteDepthNPY writes the depth map as a (height, width) float32 array in meters.
func (dm *DepthMap) WriteDepthNPY(w io.Writer) error {
	return npyio.Write(w, dm.float32Grid().Interface())
}

// float32Grid copies the depths into a [height][width]float32 value so the array carries its
// two dimensional shape.
func (dm *DepthMap) float32Grid() reflect.Value {
	row := reflect.ArrayOf(dm.width, reflect.TypeOf(float32(0)))
	grid := reflect.New(reflect.ArrayOf(dm.height, row)).Elem()
	for y := 0; y < dm.height; y++ {
		r := grid.Index(y)
		for x := 0; x < dm.width; x++ {
			r.Index(x).SetFloat(dm.GetDepth(x, y))
		}
	}
	return grid
}
