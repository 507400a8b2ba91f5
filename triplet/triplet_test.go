package triplet

import (
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tripletprep/rimage"
	"go.viam.com/tripletprep/testutils"
)

func sampleAt(ts float64, pose *mat.Dense, c color.NRGBA) *Sample {
	return &Sample{
		Timestamp: ts,
		Color:     imaging.New(2, 2, c),
		Pose:      pose,
		Gravity:   mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
		Depth:     rimage.NewEmptyDepthMap(2, 2),
	}
}

func TestWindowKeepsLastSamples(t *testing.T) {
	w := NewWindow(3)
	test.That(t, w.Cap(), test.ShouldEqual, 3)
	test.That(t, w.IsFull(), test.ShouldBeFalse)

	var evicted []*Sample
	for i := 0; i < 7; i++ {
		if old := w.Push(&Sample{Timestamp: float64(i)}); old != nil {
			evicted = append(evicted, old)
		}
		if i < 2 {
			test.That(t, w.IsFull(), test.ShouldBeFalse)
			test.That(t, w.Len(), test.ShouldEqual, i+1)
		}
	}
	test.That(t, w.IsFull(), test.ShouldBeTrue)
	test.That(t, w.Len(), test.ShouldEqual, 3)
	for i := 0; i < 3; i++ {
		test.That(t, w.At(i).Timestamp, test.ShouldEqual, float64(4+i))
	}
	test.That(t, len(evicted), test.ShouldEqual, 4)
	test.That(t, evicted[0].Timestamp, test.ShouldEqual, 0.0)
	test.That(t, evicted[3].Timestamp, test.ShouldEqual, 3.0)
	test.That(t, func() { w.At(3) }, test.ShouldPanic)
}

func TestSelectWindowNotFull(t *testing.T) {
	w := NewWindow(5)
	w.Push(sampleAt(0, testutils.TranslationPose(0, 0, 0), color.NRGBA{A: 255}))
	res, err := Select(w, 2, 0.01)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Reason, test.ShouldEqual, ReasonWindowNotFull)
	test.That(t, res.Triplet, test.ShouldBeNil)
	test.That(t, errors.Is(res.Err(), ErrWindowNotFull), test.ShouldBeTrue)
}

func TestSelectInsufficientParallax(t *testing.T) {
	w := NewWindow(5)
	pose := testutils.TranslationPose(1, 2, 3)
	for i := 0; i < 5; i++ {
		w.Push(sampleAt(float64(i), pose, color.NRGBA{A: 255}))
	}
	res, err := Select(w, 2, 0.01)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Reason, test.ShouldEqual, ReasonInsufficientParallax)
	test.That(t, res.Reason.String(), test.ShouldEqual, "insufficient parallax")
	test.That(t, res.Triplet, test.ShouldBeNil)
	test.That(t, res.PrevDistance, test.ShouldAlmostEqual, 0)
	test.That(t, errors.Is(res.Err(), ErrInsufficientParallax), test.ShouldBeTrue)

	// the window is left as it was
	test.That(t, w.Len(), test.ShouldEqual, 5)
	test.That(t, w.At(0).Timestamp, test.ShouldEqual, 0.0)

	// only one end moving is not enough either
	w.Push(sampleAt(5, testutils.TranslationPose(1, 2, 4), color.NRGBA{A: 255}))
	res, err = Select(w, 2, 0.01)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Reason, test.ShouldEqual, ReasonInsufficientParallax)
	test.That(t, res.NextDistance, test.ShouldAlmostEqual, 1)
}

func TestSelectOrdering(t *testing.T) {
	colors := []color.NRGBA{
		{R: 255, A: 255}, {A: 255}, {G: 255, A: 255}, {A: 255}, {B: 255, A: 255},
	}
	w := NewWindow(5)
	for i := 0; i < 5; i++ {
		w.Push(sampleAt(float64(i)*0.1, testutils.TranslationPose(float64(i), 0, 0), colors[i]))
	}
	res, err := Select(w, 2, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Reason, test.ShouldEqual, ReasonNone)
	test.That(t, res.Err(), test.ShouldBeNil)
	test.That(t, res.PrevDistance, test.ShouldAlmostEqual, 2)
	test.That(t, res.NextDistance, test.ShouldAlmostEqual, 2)

	tr := res.Triplet
	test.That(t, tr.Timestamp, test.ShouldAlmostEqual, 0.2)
	test.That(t, tr.Frames[0], test.ShouldEqual, w.At(0))
	test.That(t, tr.Frames[1], test.ShouldEqual, w.At(2))
	test.That(t, tr.Frames[2], test.ShouldEqual, w.At(4))
	test.That(t, tr.Poses[0].At(0, 3), test.ShouldEqual, 0.0)
	test.That(t, tr.Poses[1].At(0, 3), test.ShouldEqual, 2.0)
	test.That(t, tr.Poses[2].At(0, 3), test.ShouldEqual, 4.0)
	test.That(t, tr.Depth, test.ShouldEqual, w.At(2).Depth)

	test.That(t, tr.Color.Bounds().Dx(), test.ShouldEqual, 6)
	frames, err := rimage.SplitHorizontal(tr.Color, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frames[0].NRGBAAt(0, 0), test.ShouldResemble, colors[0])
	test.That(t, frames[1].NRGBAAt(0, 0), test.ShouldResemble, colors[2])
	test.That(t, frames[2].NRGBAAt(0, 0), test.ShouldResemble, colors[4])
}

func TestSelectMismatchedWindow(t *testing.T) {
	w := NewWindow(3)
	for i := 0; i < 3; i++ {
		w.Push(sampleAt(float64(i), testutils.TranslationPose(float64(i), 0, 0), color.NRGBA{A: 255}))
	}
	_, err := Select(w, 2, 0.01)
	test.That(t, err, test.ShouldNotBeNil)
}
