// Depth visualization configuration and colormap selection
package depthviz

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ColorMap is the closed set of supported heatmap palettes.
type ColorMap int

const (
	ColorMapTurbo ColorMap = iota
	ColorMapViridis
	ColorMapPlasma
	ColorMapJet
)

// gocv stops at Parula; the remaining OpenCV colormap enum values are stable.
const (
	cvColormapPlasma  gocv.ColormapTypes = 15
	cvColormapViridis gocv.ColormapTypes = 16
	cvColormapTurbo   gocv.ColormapTypes = 20
)

func ParseColorMap(name string) (ColorMap, error) {
	switch name {
	case "turbo":
		return ColorMapTurbo, nil
	case "viridis":
		return ColorMapViridis, nil
	case "plasma":
		return ColorMapPlasma, nil
	case "jet":
		return ColorMapJet, nil
	}
	return ColorMapTurbo, fmt.Errorf("unknown color map %q (want turbo, viridis, plasma or jet)", name)
}

func (c ColorMap) String() string {
	switch c {
	case ColorMapViridis:
		return "viridis"
	case ColorMapPlasma:
		return "plasma"
	case ColorMapJet:
		return "jet"
	default:
		return "turbo"
	}
}

func (c ColorMap) cvType() gocv.ColormapTypes {
	switch c {
	case ColorMapViridis:
		return cvColormapViridis
	case ColorMapPlasma:
		return cvColormapPlasma
	case ColorMapJet:
		return gocv.ColormapJet
	default:
		return cvColormapTurbo
	}
}

// Config describes how a single depth frame is turned into a color image.
// It is a value type; Colorize never mutates it.
type Config struct {
	MinDepth            float64
	MaxDepth            float64
	AutoContrast        bool
	ConfidenceThreshold int // 0 = best, 100 = worst; pixels above are rejected
	LogScale            bool
	EdgeBoost           bool
	EdgeBoostFactor     float64
	CLAHE               bool
	ColorMap            ColorMap
	TemporalSmooth      bool
	MotionHighlight     bool
	MotionGain          float64
	OverlayOnRGB        bool
	OverlayStrength     int // 0-100, heatmap weight in the blend
}

// DefaultConfig mirrors the recording defaults of the capture rig.
func DefaultConfig() Config {
	return Config{
		MinDepth:            10.0,
		MaxDepth:            50.0,
		AutoContrast:        true,
		ConfidenceThreshold: 100,
		EdgeBoostFactor:     0.3,
		ColorMap:            ColorMapTurbo,
		MotionGain:          0.5,
		OverlayStrength:     60,
	}
}

func (c Config) Validate() error {
	if c.MinDepth >= c.MaxDepth {
		return fmt.Errorf("depth range [%g, %g] is empty", c.MinDepth, c.MaxDepth)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 100 {
		return fmt.Errorf("confidence threshold %d outside [0, 100]", c.ConfidenceThreshold)
	}
	if c.OverlayStrength < 0 || c.OverlayStrength > 100 {
		return fmt.Errorf("overlay strength %d outside [0, 100]", c.OverlayStrength)
	}
	if c.EdgeBoostFactor < 0 {
		return fmt.Errorf("edge boost factor %g is negative", c.EdgeBoostFactor)
	}
	if c.MotionGain < 0 || c.MotionGain > 1 {
		return fmt.Errorf("motion gain %g outside [0, 1]", c.MotionGain)
	}
	return nil
}

// EffectiveRange is the depth-to-color mapping actually applied to a frame,
// after any auto-contrast adjustment. Min < Max always holds.
type EffectiveRange struct {
	Min float64 `json:"min_meters"`
	Max float64 `json:"max_meters"`
}
