package depthviz

import (
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// RegionStats summarizes the valid depth inside a rectangle, for the
// viewer's ROI readout. Count is the number of valid pixels considered.
type RegionStats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// ComputeRegionStats gathers finite, positive depth values inside roi that
// fall within [minDepth, maxDepth]. The rectangle is clamped to the frame;
// an empty intersection or an all-invalid region yields a zero-count result.
func ComputeRegionStats(depth gocv.Mat, roi image.Rectangle, minDepth, maxDepth float64) RegionStats {
	if depth.Empty() || depth.Type() != gocv.MatTypeCV32F {
		return RegionStats{}
	}
	bounds := image.Rect(0, 0, depth.Cols(), depth.Rows())
	roi = roi.Intersect(bounds)
	if roi.Empty() {
		return RegionStats{}
	}

	values := make([]float64, 0, roi.Dx()*roi.Dy())
	lo, hi := math.Inf(1), math.Inf(-1)
	for r := roi.Min.Y; r < roi.Max.Y; r++ {
		for c := roi.Min.X; c < roi.Max.X; c++ {
			d := float64(depth.GetFloatAt(r, c))
			if d <= 0 || math.IsInf(d, 0) || math.IsNaN(d) || d < minDepth || d > maxDepth {
				continue
			}
			values = append(values, d)
			if d < lo {
				lo = d
			}
			if d > hi {
				hi = d
			}
		}
	}
	if len(values) == 0 {
		return RegionStats{}
	}

	stats := RegionStats{
		Count: len(values),
		Min:   lo,
		Max:   hi,
		Mean:  stat.Mean(values, nil),
	}
	if len(values) > 1 {
		stats.StdDev = stat.StdDev(values, nil)
	}
	return stats
}
