package depthviz

import (
	"math"

	"gocv.io/x/gocv"
)

// minValidFloor is the smallest acceptable number of valid pixels after
// confidence filtering. Below it the confidence contribution is dropped so a
// noisy confidence map cannot black out the whole frame.
func minValidFloor(totalPixels int) int {
	floor := totalPixels / 1000
	if floor < 1000 {
		floor = 1000
	}
	return floor
}

// BaseValidityMask marks pixels holding a finite, positive depth inside
// [minDepth, maxDepth]. Returns an 8-bit mask (255 = valid).
func BaseValidityMask(depth gocv.Mat, minDepth, maxDepth float64) gocv.Mat {
	rows, cols := depth.Rows(), depth.Cols()
	mask := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8U)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			d := float64(depth.GetFloatAt(r, c))
			if d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d) && d >= minDepth && d <= maxDepth {
				mask.SetUCharAt(r, c, 255)
			} else {
				mask.SetUCharAt(r, c, 0)
			}
		}
	}
	return mask
}

// CombineMasks ANDs the base validity mask with the confidence test
// (confidence <= threshold), then applies the minimum-valid-pixel floor: if
// the combined mask keeps too few pixels the confidence contribution is
// discarded and a clone of the base mask is returned instead. Pure function;
// neither input is modified.
func CombineMasks(base, confidence gocv.Mat, threshold int) gocv.Mat {
	if confidence.Empty() || confidence.Rows() != base.Rows() || confidence.Cols() != base.Cols() {
		return base.Clone()
	}

	confMask := gocv.NewMat()
	defer confMask.Close()
	gocv.Threshold(confidence, &confMask, float32(threshold), 255, gocv.ThresholdBinaryInv)

	combined := gocv.NewMat()
	gocv.BitwiseAnd(base, confMask, &combined)

	if gocv.CountNonZero(combined) < minValidFloor(base.Rows()*base.Cols()) {
		combined.Close()
		return base.Clone()
	}
	return combined
}
