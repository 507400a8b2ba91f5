// Package streamsync pairs each record of the reference (pose) stream with the color and depth
// messages captured at the same instant.
package streamsync

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/tripletprep/logging"
	"go.viam.com/tripletprep/ros"
)

// DefaultTolerance is the time, in seconds, within which two items are considered captured at
// the same instant.
const DefaultTolerance = 0.025

// ErrStreamExhausted is returned when the color or depth stream runs out before the reference
// stream does. It ends the run.
var ErrStreamExhausted = errors.New("capture stream exhausted")

// Cursor is an ordered source of timestamped image messages.
type Cursor interface {
	HasNext() bool
	PeekTimestamp() (float64, error)
	Next() (*ros.ImageMessage, error)
}

// Outcome tells whether a reference record found its capture.
type Outcome int

const (
	// Matched means the color message is within tolerance of the reference time.
	Matched Outcome = iota
	// Unmatched means no capture lies within tolerance; the reference record is skipped.
	Unmatched
)

func (o Outcome) String() string {
	if o == Matched {
		return "matched"
	}
	return "unmatched"
}

// Match is the result of aligning one reference record.
type Match struct {
	Outcome Outcome
	// Color and Depth are the consumed messages of a Matched record.
	Color *ros.ImageMessage
	Depth *ros.ImageMessage
}

// Options tune a Synchronizer.
type Options struct {
	// Tolerance is the accepted distance between the reference time and the capture time.
	Tolerance float64
	// StrictDepth also requires the depth message to be within tolerance. When false only the
	// color message gates acceptance.
	StrictDepth bool
}

// Synchronizer advances the paired color and depth cursors in lockstep as reference times arrive.
// Reference times must be non-decreasing.
type Synchronizer struct {
	color  Cursor
	depth  Cursor
	opts   Options
	logger logging.Logger
}

// New returns a Synchronizer over the paired color and depth cursors.
func New(color, depth Cursor, opts Options, logger logging.Logger) *Synchronizer {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	return &Synchronizer{color: color, depth: depth, opts: opts, logger: logger}
}

// peek returns the time of the color message the cursors stand on.
func (s *Synchronizer) peek() (float64, error) {
	for _, c := range []Cursor{s.color, s.depth} {
		if c.HasNext() {
			continue
		}
		// a cursor that stopped on a decoding failure reports it here
		if _, err := c.PeekTimestamp(); err != nil && !errors.Is(err, ros.ErrEndOfTopic) {
			return 0, err
		}
		return 0, ErrStreamExhausted
	}
	return s.color.PeekTimestamp()
}

// advance consumes the current message of both cursors.
func (s *Synchronizer) advance() (*ros.ImageMessage, *ros.ImageMessage, error) {
	c, err := s.color.Next()
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot read color message")
	}
	d, err := s.depth.Next()
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot read depth message")
	}
	return c, d, nil
}

// Match aligns the reference time now. Both cursors move forward together past every color
// message older than now-tolerance. If the color message they then stand on is newer than
// now+tolerance the record is Unmatched and the message stays in place for later reference
// times; otherwise the pair is consumed and returned. Running out of either stream returns
// ErrStreamExhausted.
func (s *Synchronizer) Match(now float64) (Match, error) {
	ts, err := s.peek()
	if err != nil {
		return Match{}, err
	}
	for ts < now-s.opts.Tolerance {
		if _, _, err := s.advance(); err != nil {
			return Match{}, err
		}
		if ts, err = s.peek(); err != nil {
			return Match{}, err
		}
	}

	if ts > now+s.opts.Tolerance {
		s.logger.Debugw("no capture within tolerance", "reference", now, "color", ts, "tolerance", s.opts.Tolerance)
		return Match{Outcome: Unmatched}, nil
	}
	if s.opts.StrictDepth {
		dts, err := s.depth.PeekTimestamp()
		if err != nil {
			return Match{}, errors.Wrap(err, "cannot read depth message")
		}
		if math.Abs(dts-now) > s.opts.Tolerance {
			s.logger.Debugw("depth capture outside tolerance", "reference", now, "color", ts, "depth", dts)
			return Match{Outcome: Unmatched}, nil
		}
	}

	c, d, err := s.advance()
	if err != nil {
		return Match{}, err
	}
	return Match{Outcome: Matched, Color: c, Depth: d}, nil
}
