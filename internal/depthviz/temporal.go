package depthviz

import (
	"image"

	"gocv.io/x/gocv"
)

const (
	// emaAlpha is the weight of the newest frame in the moving average.
	emaAlpha = 0.3

	// motionThreshold is applied to the max-normalized inter-frame depth
	// difference before binarization.
	motionThreshold = 0.15
)

// TemporalState is the only stateful piece of the visualization pipeline: an
// exponential moving average of depth plus the previous visualization-input
// frame for motion highlighting. One instance belongs to exactly one
// extraction run and is reset when the run starts. Single-frame reprocessing
// bypasses it entirely.
type TemporalState struct {
	ema  gocv.Mat
	prev gocv.Mat
}

func NewTemporalState() *TemporalState {
	return &TemporalState{ema: gocv.NewMat(), prev: gocv.NewMat()}
}

// Smooth folds depth into the moving average and returns a clone of the
// smoothed frame. The first frame (or a resolution change) seeds the average
// unsmoothed. The caller owns the returned Mat.
func (s *TemporalState) Smooth(depth gocv.Mat) gocv.Mat {
	if s.ema.Empty() || s.ema.Rows() != depth.Rows() || s.ema.Cols() != depth.Cols() {
		s.ema.Close()
		s.ema = depth.Clone()
		return depth.Clone()
	}
	blended := gocv.NewMat()
	gocv.AddWeighted(depth, emaAlpha, s.ema, 1.0-emaAlpha, 0, &blended)
	s.ema.Close()
	s.ema = blended
	return blended.Clone()
}

// HighlightMotion blends the heatmap toward white wherever current differs
// from the previous visualization-input frame. current is whatever fed the
// colorizer this frame (smoothed depth when smoothing is on, raw otherwise).
// A missing or mismatched previous frame makes this a no-op; the baseline
// only becomes valid one frame after highlighting is enabled.
func (s *TemporalState) HighlightMotion(heat *gocv.Mat, current gocv.Mat, gain float64) {
	if s.prev.Empty() || s.prev.Rows() != current.Rows() || s.prev.Cols() != current.Cols() {
		return
	}
	if heat.Empty() || heat.Rows() != current.Rows() || heat.Cols() != current.Cols() {
		return
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(current, s.prev, &diff)

	_, maxDiff, _, _ := gocv.MinMaxLoc(diff)
	if maxDiff <= 0 {
		return
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(diff, &binary, motionThreshold*maxDiff, 255, gocv.ThresholdBinary)

	mask := gocv.NewMat()
	defer mask.Close()
	binary.ConvertTo(&mask, gocv.MatTypeCV8U)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(mask, &dilated, kernel)

	for r := 0; r < heat.Rows(); r++ {
		for c := 0; c < heat.Cols(); c++ {
			if dilated.GetUCharAt(r, c) == 0 {
				continue
			}
			for ch := 0; ch < 3; ch++ {
				v := float64(heat.GetUCharAt(r, c*3+ch))
				heat.SetUCharAt(r, c*3+ch, uint8(v+(255.0-v)*gain))
			}
		}
	}
}

// Advance records current as the motion baseline for the next frame. Called
// after every frame regardless of whether highlighting is enabled.
func (s *TemporalState) Advance(current gocv.Mat) {
	s.prev.Close()
	s.prev = current.Clone()
}

// Reset drops all accumulated state, ready for a new run.
func (s *TemporalState) Reset() {
	s.ema.Close()
	s.prev.Close()
	s.ema = gocv.NewMat()
	s.prev = gocv.NewMat()
}

func (s *TemporalState) Close() {
	s.ema.Close()
	s.prev.Close()
}
