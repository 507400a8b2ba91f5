package testutils

import (
	"image/color"
	"math"

	"go.viam.com/tripletprep/ros"
)

// SliceCursor replays a fixed list of messages. It satisfies streamsync.Cursor.
type SliceCursor struct {
	Msgs []*ros.ImageMessage
	pos  int
}

// NewSliceCursor returns a cursor over msgs.
func NewSliceCursor(msgs ...*ros.ImageMessage) *SliceCursor {
	return &SliceCursor{Msgs: msgs}
}

// HasNext reports whether messages remain.
func (c *SliceCursor) HasNext() bool {
	return c.pos < len(c.Msgs)
}

// PeekTimestamp returns the next message's time.
func (c *SliceCursor) PeekTimestamp() (float64, error) {
	if !c.HasNext() {
		return 0, ros.ErrEndOfTopic
	}
	return c.Msgs[c.pos].Timestamp(), nil
}

// Next consumes the next message.
func (c *SliceCursor) Next() (*ros.ImageMessage, error) {
	if !c.HasNext() {
		return nil, ros.ErrEndOfTopic
	}
	m := c.Msgs[c.pos]
	c.pos++
	return m, nil
}

// Consumed returns how many messages have been taken.
func (c *SliceCursor) Consumed() int {
	return c.pos
}

func stamp(ts float64) ros.Stamp {
	secs := math.Floor(ts)
	return ros.Stamp{Secs: int64(secs), Nsecs: int64(math.Round((ts - secs) * 1e9))}
}

// NewColorMessage returns a width x height rgb8 message of one solid color.
func NewColorMessage(ts float64, width, height int, c color.NRGBA) *ros.ImageMessage {
	m := &ros.ImageMessage{Meta: stamp(ts)}
	m.Data.Header.Stamp = m.Meta
	m.Data.Width, m.Data.Height, m.Data.Step = width, height, 3*width
	m.Data.Encoding = ros.EncodingRGB8
	m.Data.Data = make([]byte, 3*width*height)
	for i := 0; i < width*height; i++ {
		m.Data.Data[3*i], m.Data.Data[3*i+1], m.Data.Data[3*i+2] = c.R, c.G, c.B
	}
	return m
}

// NewDepthMessage returns a width x height 16UC1 message with every pixel at millimeters.
func NewDepthMessage(ts float64, width, height int, millimeters uint16) *ros.ImageMessage {
	m := &ros.ImageMessage{Meta: stamp(ts)}
	m.Data.Header.Stamp = m.Meta
	m.Data.Width, m.Data.Height, m.Data.Step = width, height, 2*width
	m.Data.Encoding = ros.Encoding16UC1
	m.Data.Data = make([]byte, 2*width*height)
	for i := 0; i < width*height; i++ {
		m.Data.Data[2*i] = byte(millimeters)
		m.Data.Data[2*i+1] = byte(millimeters >> 8)
	}
	return m
}

// NewCapturePair returns matching color and depth messages stamped ts.
func NewCapturePair(ts float64, width, height int, c color.NRGBA, millimeters uint16) (*ros.ImageMessage, *ros.ImageMessage) {
	return NewColorMessage(ts, width, height, c), NewDepthMessage(ts, width, height, millimeters)
}
