// Depth-to-heatmap transform
package depthviz

import (
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

const (
	logEpsilon = 1e-3

	// Auto-contrast only kicks in with a meaningful sample population and a
	// non-trivial spread, otherwise the configured range stands.
	autoContrastMinSamples = 100
	autoContrastMinSpread  = 0.5
)

// Colorize maps a 32-bit float depth frame to a BGR heatmap. confidence and
// rgb are optional and may be empty Mats; rgb is only consulted when
// cfg.OverlayOnRGB is set. The returned EffectiveRange is the mapping that
// was actually applied (it differs from the configured range under
// auto-contrast) so callers can label legends and metadata.
//
// A malformed depth frame (empty, wrong type) yields an empty Mat and a zero
// range; callers must check. The function holds no state: identical inputs
// always produce identical output.
func Colorize(depth, confidence, rgb gocv.Mat, cfg Config) (gocv.Mat, EffectiveRange) {
	if depth.Empty() || depth.Type() != gocv.MatTypeCV32F {
		return gocv.NewMat(), EffectiveRange{}
	}
	rows, cols := depth.Rows(), depth.Cols()

	base := BaseValidityMask(depth, cfg.MinDepth, cfg.MaxDepth)
	mask := base
	if !confidence.Empty() {
		mask = CombineMasks(base, confidence, cfg.ConfidenceThreshold)
		base.Close()
	}
	defer mask.Close()

	a, b := effectiveBounds(depth, mask, cfg)

	scaled := scaleDepth(depth, mask, a, b, cfg.LogScale)
	defer scaled.Close()

	if cfg.EdgeBoost {
		applyEdgeBoost(depth, mask, scaled, cfg.EdgeBoostFactor)
	}

	gray := quantize(scaled)
	defer gray.Close()

	if cfg.CLAHE {
		clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
		equalized := gocv.NewMat()
		clahe.Apply(gray, &equalized)
		clahe.Close()
		gray.Close()
		gray = equalized
	}

	heat := gocv.NewMat()
	gocv.ApplyColorMap(gray, &heat, cfg.ColorMap.cvType())

	// Invalid pixels stay black no matter what CLAHE or the colormap did.
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if mask.GetUCharAt(r, c) == 0 {
				heat.SetUCharAt(r, c*3, 0)
				heat.SetUCharAt(r, c*3+1, 0)
				heat.SetUCharAt(r, c*3+2, 0)
			}
		}
	}

	if cfg.OverlayOnRGB && !rgb.Empty() && rgb.Rows() == rows && rgb.Cols() == cols && rgb.Channels() == 3 {
		alpha := float64(cfg.OverlayStrength) / 100.0
		blended := gocv.NewMat()
		gocv.AddWeighted(heat, alpha, rgb, 1.0-alpha, 0, &blended)
		heat.Close()
		heat = blended
	}

	return heat, EffectiveRange{Min: a, Max: b}
}

// effectiveBounds picks the depth interval the color ramp spans. Under
// auto-contrast the 2nd/98th percentiles of the valid samples are used,
// nearest-rank, provided there are enough of them and they spread far enough
// apart. Degenerate intervals are nudged open so Min < Max always holds.
func effectiveBounds(depth, mask gocv.Mat, cfg Config) (float64, float64) {
	a, b := cfg.MinDepth, cfg.MaxDepth
	if cfg.AutoContrast {
		samples := validSamples(depth, mask)
		if len(samples) >= autoContrastMinSamples {
			sort.Float64s(samples)
			p2 := stat.Quantile(0.02, stat.Empirical, samples, nil)
			p98 := stat.Quantile(0.98, stat.Empirical, samples, nil)
			if p98-p2 > autoContrastMinSpread {
				a, b = p2, p98
			}
		}
	}
	if b-a < 1e-6 {
		b = a + 1e-6
	}
	return a, b
}

func validSamples(depth, mask gocv.Mat) []float64 {
	samples := make([]float64, 0, depth.Rows()*depth.Cols()/4)
	for r := 0; r < depth.Rows(); r++ {
		for c := 0; c < depth.Cols(); c++ {
			if mask.GetUCharAt(r, c) != 0 {
				samples = append(samples, float64(depth.GetFloatAt(r, c)))
			}
		}
	}
	return samples
}

// scaleDepth maps depth into [0, 1] against [a, b], inverted so nearer reads
// hotter, with invalid pixels forced to 0.
func scaleDepth(depth, mask gocv.Mat, a, b float64, logScale bool) gocv.Mat {
	rows, cols := depth.Rows(), depth.Cols()
	scaled := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)

	logA, logB := math.Log(a+logEpsilon), math.Log(b+logEpsilon)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if mask.GetUCharAt(r, c) == 0 {
				scaled.SetFloatAt(r, c, 0)
				continue
			}
			d := float64(depth.GetFloatAt(r, c))
			var t float64
			if logScale {
				t = (math.Log(d+logEpsilon) - logA) / (logB - logA)
			} else {
				t = (d - a) / (b - a)
			}
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			scaled.SetFloatAt(r, c, float32(1.0-t))
		}
	}
	return scaled
}

// applyEdgeBoost adds a fraction of the Sobel gradient magnitude of the raw
// depth to the scaled values, clamped to 1, and re-applies the mask.
func applyEdgeBoost(depth, mask, scaled gocv.Mat, factor float64) {
	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(depth, &gx, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(depth, &gy, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(gx, gy, &mag)

	_, maxMag, _, _ := gocv.MinMaxLoc(mag)
	if maxMag <= 0 {
		return
	}

	for r := 0; r < scaled.Rows(); r++ {
		for c := 0; c < scaled.Cols(); c++ {
			if mask.GetUCharAt(r, c) == 0 {
				scaled.SetFloatAt(r, c, 0)
				continue
			}
			t := float64(scaled.GetFloatAt(r, c)) + factor*float64(mag.GetFloatAt(r, c))/float64(maxMag)
			if t > 1 {
				t = 1
			}
			scaled.SetFloatAt(r, c, float32(t))
		}
	}
}

func quantize(scaled gocv.Mat) gocv.Mat {
	gray := gocv.NewMatWithSize(scaled.Rows(), scaled.Cols(), gocv.MatTypeCV8U)
	for r := 0; r < scaled.Rows(); r++ {
		for c := 0; c < scaled.Cols(); c++ {
			gray.SetUCharAt(r, c, uint8(float64(scaled.GetFloatAt(r, c))*255.0+0.5))
		}
	}
	return gray
}
