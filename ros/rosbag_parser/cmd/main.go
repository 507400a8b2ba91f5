// Package main dumps the image messages of one bag topic as PNG files, for eyeballing a capture
// session before preparing it.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/tripletprep/rimage"
	"go.viam.com/tripletprep/ros"
)

var logger = golog.NewDevelopmentLogger("rosbag_parser")

func main() {
	err := realMain(os.Args[1:])
	if err != nil {
		logger.Fatal(err)
	}
}

// realMain takes the bag path, the topic and optionally an output directory and an every-nth
// stride.
func realMain(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: rosbag_parser BAG TOPIC [OUT_DIR] [EVERY]")
	}
	filename, topic := args[0], args[1]
	outDir := "."
	if len(args) > 2 {
		outDir = args[2]
	}
	every := 1
	if len(args) > 3 {
		n, err := strconv.Atoi(args[3])
		if err != nil || n < 1 {
			return errors.Errorf("invalid stride %q", args[3])
		}
		every = n
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return err
	}

	rb, err := ros.ReadBag(filename)
	if err != nil {
		return err
	}
	msgs, err := ros.MessagesForTopic(rb, topic)
	if err != nil {
		return err
	}

	written, err := dumpTopic(msgs, outDir, every)
	if err != nil {
		return err
	}
	logger.Infow("dumped topic", "topic", topic, "read", msgs.Read(), "written", written, "dir", outDir)
	return nil
}

// dumpTopic saves every nth message of msgs into outDir and returns how many were saved. A
// message that cannot be decoded ends the dump with an error.
func dumpTopic(msgs *ros.TopicCursor, outDir string, every int) (int, error) {
	written := 0
	for i := 0; msgs.HasNext(); i++ {
		msg, err := msgs.Next()
		if err != nil {
			return written, err
		}
		if i%every != 0 {
			continue
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s_%.4f.png", ros.TopicKey(msgs.Topic()), msg.Timestamp()))
		if err := saveMessage(msg, path); err != nil {
			return written, errors.Wrapf(err, "message %d", i)
		}
		written++
	}
	if _, err := msgs.PeekTimestamp(); !errors.Is(err, ros.ErrEndOfTopic) {
		return written, err
	}
	return written, nil
}

// saveMessage writes color messages as they are and depth messages colorized.
func saveMessage(msg *ros.ImageMessage, path string) error {
	switch msg.Data.Encoding {
	case ros.Encoding16UC1, ros.EncodingMono16:
		dm, err := msg.DepthMap()
		if err != nil {
			return err
		}
		lo, hi := dm.MinMax()
		logger.Debugw("depth range", "ts", msg.Timestamp(), "min", lo, "max", hi)
		return rimage.WriteImageToFile(path, dm.ToPrettyPicture(0, 0), 0)
	default:
		img, err := msg.ColorImage()
		if err != nil {
			return err
		}
		return rimage.WriteImageToFile(path, img, 0)
	}
}
