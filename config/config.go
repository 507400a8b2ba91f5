// Package config defines the settings of a triplet preparation run.
package config

import (
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/tripletprep/rimage"
	"go.viam.com/tripletprep/streamsync"
)

// Defaults for a capture session recorded by the RealSense driver.
const (
	DefaultColorTopic       = "/camera/color/image_raw"
	DefaultDepthTopic       = "/camera/aligned_depth_to_color/image_raw"
	DefaultBagFile          = "raw.bag"
	DefaultDatasetFile      = "dataset"
	DefaultTemporalInterval = 5
	DefaultSpatialInterval  = 0.01
)

// Config describes one run.
type Config struct {
	// WorkDir holds the capture bag and the trajectory dataset.
	WorkDir string `json:"work_dir"`
	// OutputDir receives the artifacts. Empty means a fresh temporary directory.
	OutputDir string `json:"output_dir"`

	// TemporalInterval is the index distance T between the reference frame and each end frame.
	TemporalInterval int `json:"temporal_interval"`
	// SpatialInterval is the minimum translation, in meters, of each end frame relative to the
	// reference frame.
	SpatialInterval float64 `json:"spatial_interval"`
	// SyncTolerance is the accepted time difference, in seconds, between a pose and its capture.
	SyncTolerance   float64 `json:"sync_tolerance"`
	StrictDepthSync bool    `json:"strict_depth_sync"`

	ColorTopic  string `json:"color_topic"`
	DepthTopic  string `json:"depth_topic"`
	BagFile     string `json:"bag_file"`
	DatasetFile string `json:"dataset_file"`

	JPEGQuality int  `json:"jpeg_quality"`
	Debug       bool `json:"debug"`
}

// Default returns a config with every optional field set.
func Default() *Config {
	return &Config{
		TemporalInterval: DefaultTemporalInterval,
		SpatialInterval:  DefaultSpatialInterval,
		SyncTolerance:    streamsync.DefaultTolerance,
		ColorTopic:       DefaultColorTopic,
		DepthTopic:       DefaultDepthTopic,
		BagFile:          DefaultBagFile,
		DatasetFile:      DefaultDatasetFile,
		JPEGQuality:      rimage.DefaultJPEGQuality,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.WorkDir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "work_dir")
	}
	if cfg.ColorTopic == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "color_topic")
	}
	if cfg.DepthTopic == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "depth_topic")
	}
	if cfg.BagFile == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "bag_file")
	}
	if cfg.DatasetFile == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "dataset_file")
	}
	if cfg.TemporalInterval < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("temporal_interval must be at least 1, got %d", cfg.TemporalInterval))
	}
	if cfg.SpatialInterval < 0 {
		return utils.NewConfigValidationError(path, errors.New("spatial_interval cannot be negative"))
	}
	if cfg.SyncTolerance <= 0 {
		return utils.NewConfigValidationError(path, errors.New("sync_tolerance must be positive"))
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return utils.NewConfigValidationError(path, errors.Errorf("jpeg_quality must be within [1, 100], got %d", cfg.JPEGQuality))
	}
	return nil
}

// WindowSize is the number of samples buffered to form one triplet.
func (cfg *Config) WindowSize() int {
	return 2*cfg.TemporalInterval + 1
}

// BagPath is the capture bag location.
func (cfg *Config) BagPath() string {
	return cfg.resolve(cfg.BagFile)
}

// DatasetPath is the trajectory dataset location.
func (cfg *Config) DatasetPath() string {
	return cfg.resolve(cfg.DatasetFile)
}

func (cfg *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.WorkDir, name)
}
