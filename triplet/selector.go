package triplet

import (
	"image"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tripletprep/artifact"
	"go.viam.com/tripletprep/rimage"
	"go.viam.com/tripletprep/spatialmath"
)

// ErrInsufficientParallax is returned by Result.Err when an end frame sits too close to the
// reference frame.
var ErrInsufficientParallax = errors.New("insufficient parallax")

// ErrWindowNotFull is returned by Result.Err when selection ran on a partial window.
var ErrWindowNotFull = errors.New("window not full")

// Reason tells why no triplet was produced.
type Reason int

const (
	// ReasonNone means a triplet was produced.
	ReasonNone Reason = iota
	// ReasonWindowNotFull means there are not yet 2T+1 samples buffered.
	ReasonWindowNotFull
	// ReasonInsufficientParallax means the previous or next frame moved less than the spatial
	// interval relative to the reference frame.
	ReasonInsufficientParallax
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonWindowNotFull:
		return "window not full"
	case ReasonInsufficientParallax:
		return "insufficient parallax"
	default:
		return "unknown"
	}
}

// A Triplet is the training unit: three frames side by side with their poses, and the depth of
// the middle one.
type Triplet struct {
	Timestamp float64
	// Color holds previous, reference and next images left to right.
	Color   image.Image
	Poses   [3]*mat.Dense
	Gravity [3]*mat.Dense
	Depth   *rimage.DepthMap
	Paths   artifact.Paths
	// Frames are the selected samples, previous first.
	Frames [3]*Sample
}

// Result is the outcome of Select. Triplet is set exactly when Reason is ReasonNone.
type Result struct {
	Triplet *Triplet
	Reason  Reason
	// PrevDistance and NextDistance are the translation norms of the end frames relative to the
	// reference frame.
	PrevDistance float64
	NextDistance float64
}

// Err converts a failed result into an error.
func (r Result) Err() error {
	switch r.Reason {
	case ReasonNone:
		return nil
	case ReasonWindowNotFull:
		return ErrWindowNotFull
	default:
		return errors.Wrapf(ErrInsufficientParallax, "prev %.4f next %.4f", r.PrevDistance, r.NextDistance)
	}
}

// Select picks the samples at 0, T and 2T of a full window of capacity 2T+1. Both end frames
// must lie at least spatialInterval away from the reference frame, measured in the reference
// frame's coordinates. The window is never modified.
func Select(w *Window, temporalInterval int, spatialInterval float64) (Result, error) {
	if !w.IsFull() {
		return Result{Reason: ReasonWindowNotFull}, nil
	}
	if temporalInterval < 1 || w.Cap() != 2*temporalInterval+1 {
		return Result{}, errors.Errorf("window of %d cannot hold triplets %d apart", w.Cap(), temporalInterval)
	}
	prev, mid, next := w.At(0), w.At(temporalInterval), w.At(2*temporalInterval)

	toMid := spatialmath.Invert(mid.Pose)
	gPrev := spatialmath.Compose(toMid, prev.Pose)
	gNext := spatialmath.Compose(toMid, next.Pose)
	res := Result{
		PrevDistance: spatialmath.Translation(gPrev).Norm(),
		NextDistance: spatialmath.Translation(gNext).Norm(),
	}
	if res.PrevDistance < spatialInterval || res.NextDistance < spatialInterval {
		res.Reason = ReasonInsufficientParallax
		return res, nil
	}

	color, err := rimage.ConcatHorizontal(prev.Color, mid.Color, next.Color)
	if err != nil {
		return Result{}, errors.Wrapf(err, "cannot concatenate frames around %.4f", mid.Timestamp)
	}
	res.Triplet = &Triplet{
		Timestamp: mid.Timestamp,
		Color:     color,
		Poses:     [3]*mat.Dense{prev.Pose, mid.Pose, next.Pose},
		Gravity:   [3]*mat.Dense{prev.Gravity, mid.Gravity, next.Gravity},
		Depth:     mid.Depth,
		Paths:     mid.Paths,
		Frames:    [3]*Sample{prev, mid, next},
	}
	return res, nil
}
