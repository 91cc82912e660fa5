// Extraction run configuration
package extract

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"svo-depth-extractor/internal/depthviz"
	"svo-depth-extractor/internal/rawio"
	"svo-depth-extractor/internal/source"
)

// ProgressFunc receives run progress in [0, 1] plus a human-readable status
// line. Reports are throttled; do not rely on per-frame cadence.
type ProgressFunc func(progress float64, message string)

// OpenFunc opens a recording. Runs default to source.Open; tests and SDK
// builds substitute their own.
type OpenFunc func(path string, log *logrus.Entry) (source.Reader, error)

// RunConfig drives one depth extraction run.
type RunConfig struct {
	SourcePath string
	OutputBase string

	// FPS is the requested output sampling rate; every Nth source frame is
	// processed with N = round(sourceFps/FPS), floored at 1. Zero or
	// negative keeps every frame.
	FPS float64

	Viz       depthviz.Config
	RawFormat rawio.Format

	SaveRaw        bool
	SaveConfidence bool
	SaveRGB        bool
	SaveHeatmaps   bool
	SaveVideo      bool

	// RetainPreviews keeps a downscaled copy of every processed heatmap in
	// memory for post-run review and reprocessing. There is no eviction;
	// MaxPreviewWidth bounds the per-frame cost.
	RetainPreviews  bool
	MaxPreviewWidth int

	Progress ProgressFunc
	Open     OpenFunc
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		FPS:             0,
		Viz:             depthviz.DefaultConfig(),
		RawFormat:       rawio.FormatTIFF,
		SaveRaw:         true,
		SaveHeatmaps:    true,
		RetainPreviews:  true,
		MaxPreviewWidth: 640,
	}
}

func (c *RunConfig) validate() error {
	if c.SourcePath == "" {
		return fmt.Errorf("extract: no source path configured")
	}
	if c.OutputBase == "" {
		return fmt.Errorf("extract: no output path configured")
	}
	if err := c.Viz.Validate(); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	return nil
}

func (c *RunConfig) opener() OpenFunc {
	if c.Open != nil {
		return c.Open
	}
	return source.Open
}

// CameraMode selects which stereo views a frame or video run extracts.
type CameraMode int

const (
	CameraLeft CameraMode = iota
	CameraRight
	CameraBoth       // both views as separate outputs
	CameraSideBySide // video runs only: one stream, views concatenated
)

func ParseCameraMode(name string) (CameraMode, error) {
	switch name {
	case "left":
		return CameraLeft, nil
	case "right":
		return CameraRight, nil
	case "both":
		return CameraBoth, nil
	case "side_by_side":
		return CameraSideBySide, nil
	}
	return CameraLeft, fmt.Errorf("unknown camera mode %q (want left, right, both or side_by_side)", name)
}

func (m CameraMode) String() string {
	switch m {
	case CameraRight:
		return "right"
	case CameraBoth:
		return "both"
	case CameraSideBySide:
		return "side_by_side"
	default:
		return "left"
	}
}

// FrameRunConfig drives a plain frame extraction run (dataset images with
// global numbering).
type FrameRunConfig struct {
	SourcePath string
	OutputBase string
	FPS        float64
	Mode       CameraMode
	Format     string // "png" or "jpg"

	Progress ProgressFunc
	Open     OpenFunc
}

// VideoRunConfig drives a video extraction run (MJPG .avi per view).
type VideoRunConfig struct {
	SourcePath string
	OutputBase string
	Mode       CameraMode
	FPS        float64 // 0 = source FPS; values above source are capped

	Progress ProgressFunc
	Open     OpenFunc
}
