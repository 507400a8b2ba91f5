// Package pipeline drives a run: it walks the trajectory, pairs every pose with its capture,
// buffers the samples and writes the triplets that show enough parallax.
package pipeline

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tripletprep/artifact"
	"go.viam.com/tripletprep/config"
	"go.viam.com/tripletprep/logging"
	"go.viam.com/tripletprep/rimage/transform"
	"go.viam.com/tripletprep/ros"
	"go.viam.com/tripletprep/streamsync"
	"go.viam.com/tripletprep/trajectory"
	"go.viam.com/tripletprep/triplet"
)

// Sink receives the artifacts of a run. *artifact.Writer is the file system implementation.
type Sink interface {
	WriteIntrinsics(intrinsics *transform.PinholeCameraIntrinsics) error
	PathsFor(ts float64) artifact.Paths
	Write(ctx context.Context, rec artifact.Record) error
}

// Run reads the session named by cfg and writes its triplets.
func Run(ctx context.Context, cfg *config.Config, logger logging.Logger) (stats Stats, err error) {
	if err := cfg.Validate("config"); err != nil {
		return Stats{}, err
	}
	ds, err := trajectory.ReadDataset(cfg.DatasetPath())
	if err != nil {
		return Stats{}, err
	}
	logger.Infow("read trajectory", "path", cfg.DatasetPath(), "packets", len(ds.Packets))

	captures, err := ros.OpenCaptureLog(cfg.BagPath(), cfg.ColorTopic, cfg.DepthTopic)
	if err != nil {
		return Stats{}, err
	}
	logger.Infow("read capture log", "path", cfg.BagPath(), "color", cfg.ColorTopic, "depth", cfg.DepthTopic)

	writer, err := artifact.NewWriter(ctx, artifact.Options{
		OutputDir:   cfg.OutputDir,
		JPEGQuality: cfg.JPEGQuality,
		Debug:       cfg.Debug,
	}, logger.Sublogger("artifact"))
	if err != nil {
		return Stats{}, err
	}
	defer func() {
		err = multierr.Combine(err, writer.Close())
	}()

	stats, err = Process(ctx, cfg, ds, captures.Color, captures.Depth, writer, logger)
	logger.Infow("run finished", append([]interface{}{"output_dir", writer.Root()}, stats.keysAndValues()...)...)
	return stats, err
}

// Process runs the trajectory of ds against the color and depth cursors and hands every accepted
// triplet to sink. Running out of captures before the trajectory ends is an error.
func Process(
	ctx context.Context,
	cfg *config.Config,
	ds *trajectory.Dataset,
	color, depth streamsync.Cursor,
	sink Sink,
	logger logging.Logger,
) (Stats, error) {
	var stats Stats

	intrinsics := ds.Camera.Intrinsics()
	if err := intrinsics.CheckValid(); err != nil {
		return stats, err
	}
	if err := sink.WriteIntrinsics(intrinsics); err != nil {
		return stats, err
	}

	sync := streamsync.New(color, depth, streamsync.Options{
		Tolerance:   cfg.SyncTolerance,
		StrictDepth: cfg.StrictDepthSync,
	}, logger.Sublogger("sync"))
	window := triplet.NewWindow(cfg.WindowSize())
	sizeChecked := false

	for _, pkt := range ds.Packets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Records++

		m, err := sync.Match(pkt.Timestamp)
		if err != nil {
			return stats, errors.Wrapf(err, "pose at %.4f", pkt.Timestamp)
		}
		if m.Outcome == streamsync.Unmatched {
			stats.Unmatched++
			logger.Warnw("no capture for pose, skipping", "ts", pkt.Timestamp)
			continue
		}
		stats.Matched++

		sample, err := newSample(pkt, m, sink)
		if err != nil {
			return stats, err
		}
		if !sizeChecked {
			b := sample.Color.Bounds()
			if err := intrinsics.CheckImageSize(b.Dx(), b.Dy()); err != nil {
				logger.Warnw("camera model does not match captures", "error", err)
			}
			sizeChecked = true
		}
		window.Push(sample)
		if !window.IsFull() {
			continue
		}

		stats.Attempts++
		res, err := triplet.Select(window, cfg.TemporalInterval, cfg.SpatialInterval)
		if err != nil {
			return stats, err
		}
		stats.Parallax = append(stats.Parallax, math.Min(res.PrevDistance, res.NextDistance))
		if res.Reason != triplet.ReasonNone {
			stats.InsufficientParallax++
			logger.Warnw("not enough parallax, skipping",
				"ts", window.At(cfg.TemporalInterval).Timestamp,
				"prev", res.PrevDistance,
				"next", res.NextDistance,
				"min", cfg.SpatialInterval,
			)
			continue
		}

		tr := res.Triplet
		if err := sink.Write(ctx, artifact.Record{
			Timestamp: tr.Timestamp,
			Color:     tr.Color,
			Poses:     tr.Poses,
			Gravity:   tr.Gravity,
			Depth:     tr.Depth,
			Paths:     tr.Paths,
		}); err != nil {
			return stats, errors.Wrapf(err, "cannot write triplet at %.4f", tr.Timestamp)
		}
		stats.Written++
		logger.Debugw("wrote triplet", "ts", tr.Timestamp)
	}
	return stats, nil
}

func newSample(pkt trajectory.Packet, m streamsync.Match, sink Sink) (*triplet.Sample, error) {
	img, err := m.Color.ColorImage()
	if err != nil {
		return nil, errors.Wrapf(err, "color capture at %.4f", m.Color.Timestamp())
	}
	dm, err := m.Depth.DepthMap()
	if err != nil {
		return nil, errors.Wrapf(err, "depth capture at %.4f", m.Depth.Timestamp())
	}
	pose, err := pkt.Pose()
	if err != nil {
		return nil, err
	}
	gravity, err := pkt.GravityAlignment()
	if err != nil {
		return nil, err
	}
	return &triplet.Sample{
		Timestamp: pkt.Timestamp,
		Color:     img,
		Pose:      pose,
		Gravity:   gravity,
		Depth:     dm,
		Paths:     sink.PathsFor(pkt.Timestamp),
	}, nil
}
