// Package spatialmath defines spatial mathematical operations on rigid body transforms.
//
// A pose is stored as a *mat.Dense that is either 3x4 ([R|t]) or 4x4 homogeneous
// ([R|t; 0 0 0 1]). The rotation block is assumed to be orthonormal; nothing here
// checks it.
package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// PoseLength is the number of values in a row-major 3x4 pose.
const PoseLength = 12

// NewPoseFromSlice converts 12 row-major numbers into a 3x4 pose matrix [R|t].
func NewPoseFromSlice(v []float64) (*mat.Dense, error) {
	if len(v) != PoseLength {
		return nil, errors.Errorf("pose needs %d values, got %d", PoseLength, len(v))
	}
	data := make([]float64, PoseLength)
	copy(data, v)
	return mat.NewDense(3, 4, data), nil
}

// NewZeroPose returns the identity transform as a 3x4 matrix.
func NewZeroPose() *mat.Dense {
	return mat.NewDense(3, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	})
}

// NewPoseFromRotationTranslation builds a 3x4 pose from a 3x3 rotation and a translation.
func NewPoseFromRotationTranslation(rot mat.Matrix, t r3.Vector) *mat.Dense {
	g := mat.NewDense(3, 4, nil)
	g.Slice(0, 3, 0, 3).(*mat.Dense).Copy(rot)
	g.Set(0, 3, t.X)
	g.Set(1, 3, t.Y)
	g.Set(2, 3, t.Z)
	return g
}

// IsHomogeneous reports whether g is in 4x4 form.
func IsHomogeneous(g mat.Matrix) bool {
	r, _ := g.Dims()
	return r == 4
}

// Rotation returns a copy of the 3x3 rotation block of g.
func Rotation(g mat.Matrix) *mat.Dense {
	rot := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot.Set(i, j, g.At(i, j))
		}
	}
	return rot
}

// Translation returns the translation column of g.
func Translation(g mat.Matrix) r3.Vector {
	return r3.Vector{X: g.At(0, 3), Y: g.At(1, 3), Z: g.At(2, 3)}
}

// Homogeneous returns g in 4x4 form. A 4x4 input is copied.
func Homogeneous(g mat.Matrix) *mat.Dense {
	h := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			h.Set(i, j, g.At(i, j))
		}
	}
	h.Set(3, 3, 1)
	return h
}

// Compose returns g1∘g2. If g1 maps mid to parent and g2 maps child to mid, the result maps
// child to parent. The rotation is R1·R2 and the translation is R1·t2 + t1. The result has the
// same shape as g1.
func Compose(g1, g2 mat.Matrix) *mat.Dense {
	r1 := Rotation(g1)
	var rot mat.Dense
	rot.Mul(r1, Rotation(g2))

	t2 := Translation(g2)
	var t mat.VecDense
	t.MulVec(r1, mat.NewVecDense(3, []float64{t2.X, t2.Y, t2.Z}))
	t1 := Translation(g1)

	g := NewPoseFromRotationTranslation(&rot, r3.Vector{
		X: t.AtVec(0) + t1.X,
		Y: t.AtVec(1) + t1.Y,
		Z: t.AtVec(2) + t1.Z,
	})
	if IsHomogeneous(g1) {
		return Homogeneous(g)
	}
	return g
}

// Invert returns the inverse of g: [Rᵀ | -Rᵀ·t]. The result has the same shape as g.
func Invert(g mat.Matrix) *mat.Dense {
	var rt mat.Dense
	rt.CloneFrom(Rotation(g).T())

	t := Translation(g)
	var nt mat.VecDense
	nt.MulVec(&rt, mat.NewVecDense(3, []float64{t.X, t.Y, t.Z}))
	nt.ScaleVec(-1, &nt)

	inv := NewPoseFromRotationTranslation(&rt, r3.Vector{X: nt.AtVec(0), Y: nt.AtVec(1), Z: nt.AtVec(2)})
	if IsHomogeneous(g) {
		return Homogeneous(inv)
	}
	return inv
}

// PoseAlmostEqual compares two poses entry by entry within epsilon. Shapes must match.
func PoseAlmostEqual(a, b mat.Matrix, epsilon float64) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}
	return mat.EqualApprox(a, b, epsilon)
}
