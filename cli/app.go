// Package cli contains the tripletprep command line.
package cli

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"

	"go.viam.com/tripletprep/config"
	"go.viam.com/tripletprep/logging"
	"go.viam.com/tripletprep/pipeline"
)

const (
	flagConfig           = "config"
	flagWorkDir          = "work-dir"
	flagOutputDir        = "output-dir"
	flagTemporalInterval = "temporal-interval"
	flagSpatialInterval  = "spatial-interval"
	flagSyncTolerance    = "sync-tolerance"
	flagStrictDepthSync  = "strict-depth-sync"
	flagColorTopic       = "color-topic"
	flagDepthTopic       = "depth-topic"
	flagBagFile          = "bag-file"
	flagDatasetFile      = "dataset-file"
	flagJPEGQuality      = "jpeg-quality"
	flagDebug            = "debug"
	flagLogFile          = "log-file"
)

// NewApp returns the tripletprep command writing to the given streams.
func NewApp(out, errOut io.Writer) *cli.App {
	defaults := config.Default()
	return &cli.App{
		Name:      "tripletprep",
		Usage:     "turn a recorded session into depth completion training triplets",
		UsageText: "tripletprep --work-dir DIR [--output-dir DIR] [options]",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`; flags override it",
			},
			&cli.StringFlag{
				Name:    flagWorkDir,
				Aliases: []string{"w"},
				Usage:   "session `DIR` holding the bag and the dataset",
			},
			&cli.StringFlag{
				Name:    flagOutputDir,
				Aliases: []string{"o"},
				Usage:   "destination `DIR`; a temporary one when empty",
			},
			&cli.IntFlag{
				Name:  flagTemporalInterval,
				Value: defaults.TemporalInterval,
				Usage: "frames between the reference frame and each end frame",
			},
			&cli.Float64Flag{
				Name:  flagSpatialInterval,
				Value: defaults.SpatialInterval,
				Usage: "minimum translation in meters of each end frame",
			},
			&cli.Float64Flag{
				Name:  flagSyncTolerance,
				Value: defaults.SyncTolerance,
				Usage: "accepted time difference in seconds between a pose and its capture",
			},
			&cli.BoolFlag{
				Name:  flagStrictDepthSync,
				Usage: "also require the depth capture to be within tolerance",
			},
			&cli.StringFlag{
				Name:  flagColorTopic,
				Value: defaults.ColorTopic,
				Usage: "color image topic",
			},
			&cli.StringFlag{
				Name:  flagDepthTopic,
				Value: defaults.DepthTopic,
				Usage: "aligned depth image topic",
			},
			&cli.StringFlag{
				Name:  flagBagFile,
				Value: defaults.BagFile,
				Usage: "capture bag, relative to the work dir",
			},
			&cli.StringFlag{
				Name:  flagDatasetFile,
				Value: defaults.DatasetFile,
				Usage: "trajectory dataset, relative to the work dir",
			},
			&cli.IntFlag{
				Name:  flagJPEGQuality,
				Value: defaults.JPEGQuality,
				Usage: "quality of the color artifacts",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging and write preview panels",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also append JSON logs to `FILE`, rotated by size",
			},
		},
		Action: PrepareAction,
	}
}

// PrepareAction is the top level action: it builds the run config and executes it.
func PrepareAction(c *cli.Context) error {
	cfg, err := configFromContext(c)
	if err != nil {
		return err
	}
	var logger logging.Logger
	if path := c.String(flagLogFile); path != "" {
		var logFile io.Closer
		logger, logFile = logging.NewFileLogger("tripletprep", path)
		defer utils.UncheckedErrorFunc(logFile.Close)
	} else {
		logger = logging.NewLogger("tripletprep")
	}
	if cfg.Debug {
		logger.SetLevel(zapcore.DebugLevel)
	}
	logging.ReplaceGlobal(logger)
	defer utils.UncheckedErrorFunc(logger.Sync)

	stats, err := pipeline.Run(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, stats.String())
	return nil
}

// configFromContext reads the config file, if any, then applies every flag set explicitly.
func configFromContext(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	override := func(name string, apply func()) {
		if c.IsSet(name) {
			apply()
		}
	}
	override(flagWorkDir, func() { cfg.WorkDir = c.String(flagWorkDir) })
	override(flagOutputDir, func() { cfg.OutputDir = c.String(flagOutputDir) })
	override(flagTemporalInterval, func() { cfg.TemporalInterval = c.Int(flagTemporalInterval) })
	override(flagSpatialInterval, func() { cfg.SpatialInterval = c.Float64(flagSpatialInterval) })
	override(flagSyncTolerance, func() { cfg.SyncTolerance = c.Float64(flagSyncTolerance) })
	override(flagStrictDepthSync, func() { cfg.StrictDepthSync = c.Bool(flagStrictDepthSync) })
	override(flagColorTopic, func() { cfg.ColorTopic = c.String(flagColorTopic) })
	override(flagDepthTopic, func() { cfg.DepthTopic = c.String(flagDepthTopic) })
	override(flagBagFile, func() { cfg.BagFile = c.String(flagBagFile) })
	override(flagDatasetFile, func() { cfg.DatasetFile = c.String(flagDatasetFile) })
	override(flagJPEGQuality, func() { cfg.JPEGQuality = c.Int(flagJPEGQuality) })
	override(flagDebug, func() { cfg.Debug = c.Bool(flagDebug) })

	if err := cfg.Validate("flags"); err != nil {
		return nil, errors.Wrap(err, "invalid run configuration")
	}
	return cfg, nil
}
