package depthviz

import "gocv.io/x/gocv"

const (
	legendWidth  = 256
	legendHeight = 16
)

// LegendInfo is the numeric companion to the legend strip: what mapping the
// colors on screen actually represent for the most recent frame.
type LegendInfo struct {
	Range        EffectiveRange `json:"effective_range"`
	ColorMap     string         `json:"color_map"`
	LogScale     bool           `json:"log_scale"`
	AutoContrast bool           `json:"auto_contrast"`
}

// RenderLegend produces a 256x16 gradient strip through the given color map,
// far (value 0) on the left to near (value 255) on the right, matching the
// inverted scaling applied by Colorize. The caller owns the returned Mat.
func RenderLegend(cm ColorMap) gocv.Mat {
	gray := gocv.NewMatWithSize(legendHeight, legendWidth, gocv.MatTypeCV8U)
	defer gray.Close()
	for r := 0; r < legendHeight; r++ {
		for c := 0; c < legendWidth; c++ {
			gray.SetUCharAt(r, c, uint8(c))
		}
	}
	strip := gocv.NewMat()
	gocv.ApplyColorMap(gray, &strip, cm.cvType())
	return strip
}
