package transform

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestPinholeCameraIntrinsicsCheckValid(t *testing.T) {
	var nilParams *PinholeCameraIntrinsics
	test.That(t, errors.Is(nilParams.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)

	params := &PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 500, Fy: 510, Ppx: 320, Ppy: 240}
	test.That(t, params.CheckValid(), test.ShouldBeNil)

	bad := *params
	bad.Fx = 0
	err := bad.CheckValid()
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "Fx")

	bad = *params
	bad.Height = 0
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)

	bad = *params
	bad.Ppy = -1
	test.That(t, bad.CheckValid().Error(), test.ShouldContainSubstring, "Ppy")
}

func TestIntrinsicsMatrix(t *testing.T) {
	params := &PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 500, Fy: 510, Ppx: 320, Ppy: 240}
	expected := mat.NewDense(3, 3, []float64{500, 0, 320, 0, 510, 240, 0, 0, 1})
	test.That(t, mat.Equal(params.Matrix(), expected), test.ShouldBeTrue)

	test.That(t, params.CheckImageSize(640, 480), test.ShouldBeNil)
	test.That(t, params.CheckImageSize(480, 640), test.ShouldNotBeNil)
}

func TestNoIntrinsicsErrorKeepsMessage(t *testing.T) {
	err := NewNoIntrinsicsError("fx at 100% of width")
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldStartWith, "fx at 100% of width: ")
}
