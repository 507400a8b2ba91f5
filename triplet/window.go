// Package triplet buffers synchronized samples and picks (previous, reference, next) triplets
// out of them.
package triplet

import (
	"image"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/tripletprep/artifact"
	"go.viam.com/tripletprep/rimage"
)

// A Sample is one synchronized capture with its pose.
type Sample struct {
	Timestamp float64
	Color     image.Image
	// Pose is the camera-to-world pose, 3x4 or 4x4.
	Pose *mat.Dense
	// Gravity is the 3x3 gravity-alignment rotation.
	Gravity *mat.Dense
	Depth   *rimage.DepthMap
	Paths   artifact.Paths
}

// Window is a fixed capacity ring buffer of samples. Once full, every push evicts the oldest.
type Window struct {
	buf  []*Sample
	head int
	n    int
}

// NewWindow returns an empty window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]*Sample, capacity)}
}

// Push appends s. When the window was already full the oldest sample is dropped and returned.
func (w *Window) Push(s *Sample) *Sample {
	if w.n < len(w.buf) {
		w.buf[(w.head+w.n)%len(w.buf)] = s
		w.n++
		return nil
	}
	evicted := w.buf[w.head]
	w.buf[w.head] = s
	w.head = (w.head + 1) % len(w.buf)
	return evicted
}

// IsFull reports whether the window holds Cap samples.
func (w *Window) IsFull() bool {
	return w.n == len(w.buf)
}

// Len returns the number of samples held.
func (w *Window) Len() int {
	return w.n
}

// Cap returns the capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// At returns the i-th sample in push order, 0 being the oldest. It panics when i is out of range.
func (w *Window) At(i int) *Sample {
	if i < 0 || i >= w.n {
		panic("triplet: window index out of range")
	}
	return w.buf[(w.head+i)%len(w.buf)]
}
