// Package ros reads the color and depth image topics of a recorded ROS bag as ordered streams.
package ros

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ErrEndOfTopic is returned by a TopicCursor that has no more messages.
var ErrEndOfTopic = errors.New("no more messages in topic")

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()

	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}

	return rb, nil
}

// TopicKey returns the name gobag files the JSON messages of a topic under: no leading slash,
// remaining slashes turned into underscores, lower case.
func TopicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// MessagesForTopic returns a cursor over the messages of a topic in the ros bag, in bag order.
func MessagesForTopic(rb *rosbag.RosBag, topic string) (*TopicCursor, error) {
	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { return t == topic },
		false,
	); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	msgs := rb.TopicsAsJSON[TopicKey(topic)]
	if msgs == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}
	return NewTopicCursor(topic, msgs), nil
}

// LineReader is the newline delimited JSON source a TopicCursor pulls from.
type LineReader interface {
	ReadBytes(delim byte) ([]byte, error)
}

// TopicCursor walks the image messages of one topic. The next message can be inspected with
// PeekTimestamp before it is consumed with Next.
type TopicCursor struct {
	topic string
	src   LineReader

	next *ImageMessage
	err  error
	read int
}

// NewTopicCursor returns a cursor decoding one ImageMessage per line of src.
func NewTopicCursor(topic string, src LineReader) *TopicCursor {
	return &TopicCursor{topic: topic, src: src}
}

// Topic returns the topic the cursor reads.
func (c *TopicCursor) Topic() string {
	return c.topic
}

// Read returns how many messages have been consumed.
func (c *TopicCursor) Read() int {
	return c.read
}

func (c *TopicCursor) fill() {
	if c.next != nil || c.err != nil {
		return
	}
	for {
		line, err := c.src.ReadBytes('\n')
		if len(line) == 0 || (len(line) == 1 && line[0] == '\n') {
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = ErrEndOfTopic
				}
				c.err = err
				return
			}
			continue
		}
		var msg ImageMessage
		if jerr := json.Unmarshal(line, &msg); jerr != nil {
			c.err = errors.Wrapf(jerr, "cannot decode message %d of topic %s", c.read, c.topic)
			return
		}
		c.next = &msg
		return
	}
}

// HasNext reports whether another message can be consumed.
func (c *TopicCursor) HasNext() bool {
	c.fill()
	return c.next != nil
}

// PeekTimestamp returns the record time of the next message without consuming it.
func (c *TopicCursor) PeekTimestamp() (float64, error) {
	c.fill()
	if c.next == nil {
		return 0, c.err
	}
	return c.next.Timestamp(), nil
}

// Next consumes and returns the next message.
func (c *TopicCursor) Next() (*ImageMessage, error) {
	c.fill()
	if c.next == nil {
		return nil, c.err
	}
	msg := c.next
	c.next = nil
	c.read++
	return msg, nil
}

// CaptureLog holds the paired color and depth streams of a bag.
type CaptureLog struct {
	Color *TopicCursor
	Depth *TopicCursor
}

// OpenCaptureLog reads the bag at path and opens cursors over its color and depth topics.
func OpenCaptureLog(path, colorTopic, depthTopic string) (*CaptureLog, error) {
	rb, err := ReadBag(path)
	if err != nil {
		return nil, err
	}
	colorMsgs, err := MessagesForTopic(rb, colorTopic)
	if err != nil {
		return nil, err
	}
	depthMsgs, err := MessagesForTopic(rb, depthTopic)
	if err != nil {
		return nil, err
	}
	return &CaptureLog{Color: colorMsgs, Depth: depthMsgs}, nil
}
