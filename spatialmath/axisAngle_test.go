package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestR4AARotationMatrix(t *testing.T) {
	rot := (&R4AA{Theta: math.Pi / 2, RX: 0, RY: 0, RZ: 1}).RotationMatrix()
	expected := mat.NewDense(3, 3, []float64{
		0, -1, 0,
		1, 0, 0,
		0, 0, 1,
	})
	test.That(t, mat.EqualApprox(rot, expected, 1e-12), test.ShouldBeTrue)

	// unnormalized axes are normalized first
	rot = (&R4AA{Theta: math.Pi / 2, RX: 0, RY: 0, RZ: 5}).RotationMatrix()
	test.That(t, mat.EqualApprox(rot, expected, 1e-12), test.ShouldBeTrue)
}

func TestRotationMatrixIsOrthonormal(t *testing.T) {
	rot := R3ToR4(r3.Vector{X: 0.3, Y: -0.7, Z: 1.1}).RotationMatrix()
	var rrt mat.Dense
	rrt.Mul(rot, rot.T())
	test.That(t, mat.EqualApprox(&rrt, eye3(), 1e-12), test.ShouldBeTrue)
	test.That(t, mat.Det(rot), test.ShouldAlmostEqual, 1)
}

func TestR3ToR4(t *testing.T) {
	test.That(t, R3ToR4(r3.Vector{}), test.ShouldResemble, NewR4AA())

	r4 := R3ToR4(r3.Vector{X: 0, Y: 2, Z: 0})
	test.That(t, r4.Theta, test.ShouldAlmostEqual, 2)
	test.That(t, r4.RY, test.ShouldAlmostEqual, 1)
	test.That(t, r4.ToR3(), test.ShouldResemble, r3.Vector{X: 0, Y: 2, Z: 0})
}

func TestNewGravityAlignment(t *testing.T) {
	rg, err := NewGravityAlignment([]float64{0, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.EqualApprox(rg, eye3(), 1e-12), test.ShouldBeTrue)

	// a tilt of pi/2 about x takes the y axis to the z axis
	rg, err = NewGravityAlignment([]float64{math.Pi / 2, 0})
	test.That(t, err, test.ShouldBeNil)
	var up mat.VecDense
	up.MulVec(rg, mat.NewVecDense(3, []float64{0, 1, 0}))
	test.That(t, up.AtVec(0), test.ShouldAlmostEqual, 0)
	test.That(t, up.AtVec(1), test.ShouldAlmostEqual, 0)
	test.That(t, up.AtVec(2), test.ShouldAlmostEqual, 1)

	_, err = NewGravityAlignment([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
}

func eye3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}
