package depthviz

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func newDepthMat(t *testing.T, rows, cols int, value float32) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.SetFloatAt(r, c, value)
		}
	}
	return m
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinDepth = 1
	cfg.MaxDepth = 10
	cfg.AutoContrast = false
	return cfg
}

func TestColorizeUniformFrame(t *testing.T) {
	depth := newDepthMat(t, 40, 40, 5.0)
	defer depth.Close()

	heat, rng := Colorize(depth, gocv.NewMat(), gocv.NewMat(), testConfig())
	defer heat.Close()

	require.False(t, heat.Empty())
	assert.Equal(t, 40, heat.Rows())
	assert.Equal(t, 40, heat.Cols())
	assert.Equal(t, 3, heat.Channels())
	assert.Equal(t, 1.0, rng.Min)
	assert.Equal(t, 10.0, rng.Max)

	// Every pixel carries the same depth, so every pixel gets the same color,
	// and it is not the invalid-pixel black.
	b0 := heat.GetUCharAt(0, 0)
	g0 := heat.GetUCharAt(0, 1)
	r0 := heat.GetUCharAt(0, 2)
	assert.False(t, b0 == 0 && g0 == 0 && r0 == 0, "valid pixels must not be black")
	for r := 0; r < heat.Rows(); r++ {
		for c := 0; c < heat.Cols(); c++ {
			if heat.GetUCharAt(r, c*3) != b0 || heat.GetUCharAt(r, c*3+1) != g0 || heat.GetUCharAt(r, c*3+2) != r0 {
				t.Fatalf("pixel (%d,%d) differs from (0,0)", r, c)
			}
		}
	}
}

func TestColorizeInvalidPixelsAreBlack(t *testing.T) {
	depth := newDepthMat(t, 8, 8, 5.0)
	defer depth.Close()
	depth.SetFloatAt(0, 0, 0)                         // no measurement
	depth.SetFloatAt(1, 1, float32(math.NaN()))       // undefined
	depth.SetFloatAt(2, 2, float32(math.Inf(1)))      // beyond range
	depth.SetFloatAt(3, 3, 0.5)                       // below min
	depth.SetFloatAt(4, 4, 100)                       // above max

	heat, _ := Colorize(depth, gocv.NewMat(), gocv.NewMat(), testConfig())
	defer heat.Close()
	require.False(t, heat.Empty())

	for _, p := range [][2]int{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}} {
		r, c := p[0], p[1]
		assert.Zero(t, heat.GetUCharAt(r, c*3), "pixel (%d,%d) blue", r, c)
		assert.Zero(t, heat.GetUCharAt(r, c*3+1), "pixel (%d,%d) green", r, c)
		assert.Zero(t, heat.GetUCharAt(r, c*3+2), "pixel (%d,%d) red", r, c)
	}
	valid := heat.GetUCharAt(7, 7*3) != 0 || heat.GetUCharAt(7, 7*3+1) != 0 || heat.GetUCharAt(7, 7*3+2) != 0
	assert.True(t, valid, "valid pixel must keep its color")
}

func TestColorizeRejectsMalformedInput(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	heat, rng := Colorize(empty, gocv.NewMat(), gocv.NewMat(), testConfig())
	assert.True(t, heat.Empty())
	assert.Zero(t, rng)
	heat.Close()

	bytes := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8U)
	defer bytes.Close()
	heat, rng = Colorize(bytes, gocv.NewMat(), gocv.NewMat(), testConfig())
	assert.True(t, heat.Empty())
	assert.Zero(t, rng)
	heat.Close()
}

func TestColorizeIsDeterministic(t *testing.T) {
	depth := newDepthMat(t, 16, 16, 3.0)
	defer depth.Close()
	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			depth.SetFloatAt(r, c, 1.0+float32(r*16+c)*0.03)
		}
	}

	cfg := testConfig()
	cfg.EdgeBoost = true
	cfg.CLAHE = true

	first, rng1 := Colorize(depth, gocv.NewMat(), gocv.NewMat(), cfg)
	defer first.Close()
	second, rng2 := Colorize(depth, gocv.NewMat(), gocv.NewMat(), cfg)
	defer second.Close()

	assert.Equal(t, rng1, rng2)
	b1, err := first.DataPtrUint8()
	require.NoError(t, err)
	b2, err := second.DataPtrUint8()
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestColorizeConfidenceRejection(t *testing.T) {
	depth := newDepthMat(t, 64, 64, 5.0)
	defer depth.Close()

	// Left half confident, right half not. 64x64 keeps 2048 pixels, above
	// the floor, so the confidence mask applies.
	confidence := gocv.NewMatWithSize(64, 64, gocv.MatTypeCV8U)
	defer confidence.Close()
	for r := 0; r < 64; r++ {
		for c := 0; c < 64; c++ {
			if c < 32 {
				confidence.SetUCharAt(r, c, 10)
			} else {
				confidence.SetUCharAt(r, c, 90)
			}
		}
	}

	cfg := testConfig()
	cfg.ConfidenceThreshold = 50
	heat, _ := Colorize(depth, confidence, gocv.NewMat(), cfg)
	defer heat.Close()
	require.False(t, heat.Empty())

	left := heat.GetUCharAt(10, 5*3) != 0 || heat.GetUCharAt(10, 5*3+1) != 0 || heat.GetUCharAt(10, 5*3+2) != 0
	assert.True(t, left, "confident pixel must keep its color")
	assert.Zero(t, heat.GetUCharAt(10, 50*3))
	assert.Zero(t, heat.GetUCharAt(10, 50*3+1))
	assert.Zero(t, heat.GetUCharAt(10, 50*3+2))
}

func TestColorizeOverlayBlendsRGB(t *testing.T) {
	depth := newDepthMat(t, 8, 8, 5.0)
	defer depth.Close()
	rgb := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer rgb.Close()

	cfg := testConfig()
	plain, _ := Colorize(depth, gocv.NewMat(), gocv.NewMat(), cfg)
	defer plain.Close()

	cfg.OverlayOnRGB = true
	cfg.OverlayStrength = 50
	blended, _ := Colorize(depth, gocv.NewMat(), rgb, cfg)
	defer blended.Close()

	require.False(t, blended.Empty())
	want := uint8(math.Round(0.5*float64(plain.GetUCharAt(0, 0)) + 0.5*200))
	assert.InDelta(t, want, blended.GetUCharAt(0, 0), 1)
}

func TestEffectiveBoundsAutoContrast(t *testing.T) {
	// 400 samples: a handful of extremes around a 20..30 bulk. The 2-98
	// percentile stretch must shrink the range toward the bulk.
	depth := gocv.NewMatWithSize(20, 20, gocv.MatTypeCV32F)
	defer depth.Close()
	mask := gocv.NewMatWithSize(20, 20, gocv.MatTypeCV8U)
	defer mask.Close()
	i := 0
	for r := 0; r < 20; r++ {
		for c := 0; c < 20; c++ {
			switch {
			case i < 4:
				depth.SetFloatAt(r, c, 10.5)
			case i >= 396:
				depth.SetFloatAt(r, c, 49.5)
			default:
				depth.SetFloatAt(r, c, 20.0+float32(i%100)*0.1)
			}
			mask.SetUCharAt(r, c, 255)
			i++
		}
	}

	cfg := Config{MinDepth: 10, MaxDepth: 50, AutoContrast: true}
	a, b := effectiveBounds(depth, mask, cfg)
	assert.Greater(t, a, 15.0)
	assert.Less(t, b, 35.0)
	assert.Less(t, a, b)
}

func TestEffectiveBoundsUniformFallsBack(t *testing.T) {
	depth := newDepthMat(t, 20, 20, 5.0)
	defer depth.Close()
	mask := gocv.NewMatWithSize(20, 20, gocv.MatTypeCV8U)
	defer mask.Close()
	for r := 0; r < 20; r++ {
		for c := 0; c < 20; c++ {
			mask.SetUCharAt(r, c, 255)
		}
	}

	cfg := Config{MinDepth: 1, MaxDepth: 10, AutoContrast: true}
	a, b := effectiveBounds(depth, mask, cfg)
	assert.Equal(t, 1.0, a)
	assert.Equal(t, 10.0, b)
}

func TestEffectiveBoundsDegenerateNudge(t *testing.T) {
	depth := newDepthMat(t, 4, 4, 5.0)
	defer depth.Close()
	mask := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8U)
	defer mask.Close()

	a, b := effectiveBounds(depth, mask, Config{MinDepth: 5, MaxDepth: 5})
	assert.Less(t, a, b)
}

func TestScaleDepthInvertsLinear(t *testing.T) {
	depth := gocv.NewMatWithSize(1, 3, gocv.MatTypeCV32F)
	defer depth.Close()
	depth.SetFloatAt(0, 0, 1)
	depth.SetFloatAt(0, 1, 5.5)
	depth.SetFloatAt(0, 2, 10)
	mask := gocv.NewMatWithSize(1, 3, gocv.MatTypeCV8U)
	defer mask.Close()
	for c := 0; c < 3; c++ {
		mask.SetUCharAt(0, c, 255)
	}

	scaled := scaleDepth(depth, mask, 1, 10, false)
	defer scaled.Close()
	assert.InDelta(t, 1.0, scaled.GetFloatAt(0, 0), 1e-6)
	assert.InDelta(t, 0.5, scaled.GetFloatAt(0, 1), 1e-6)
	assert.InDelta(t, 0.0, scaled.GetFloatAt(0, 2), 1e-6)
}

func TestScaleDepthLogMonotone(t *testing.T) {
	depth := gocv.NewMatWithSize(1, 3, gocv.MatTypeCV32F)
	defer depth.Close()
	depth.SetFloatAt(0, 0, 2)
	depth.SetFloatAt(0, 1, 5)
	depth.SetFloatAt(0, 2, 9)
	mask := gocv.NewMatWithSize(1, 3, gocv.MatTypeCV8U)
	defer mask.Close()
	for c := 0; c < 3; c++ {
		mask.SetUCharAt(0, c, 255)
	}

	scaled := scaleDepth(depth, mask, 1, 10, true)
	defer scaled.Close()
	assert.Greater(t, scaled.GetFloatAt(0, 0), scaled.GetFloatAt(0, 1))
	assert.Greater(t, scaled.GetFloatAt(0, 1), scaled.GetFloatAt(0, 2))
}
