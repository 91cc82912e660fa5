package extract

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"svo-depth-extractor/internal/depthviz"
)

// LivePreview is the small shared bundle the worker updates after each frame
// and the display thread polls: latest heatmap, legend strip, legend info,
// and a version counter so pollers can skip unchanged state. One mutex
// guards the whole bundle; readers always receive clones, never aliases into
// worker-owned Mats.
type LivePreview struct {
	mu      sync.Mutex
	image   gocv.Mat
	legend  gocv.Mat
	info    depthviz.LegendInfo
	version uint64
}

func NewLivePreview() *LivePreview {
	return &LivePreview{image: gocv.NewMat(), legend: gocv.NewMat()}
}

// Update replaces the bundle. img and legend are cloned; the caller keeps
// ownership of its Mats.
func (p *LivePreview) Update(img, legend gocv.Mat, info depthviz.LegendInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.image.Close()
	p.image = img.Clone()
	if !legend.Empty() {
		p.legend.Close()
		p.legend = legend.Clone()
	}
	p.info = info
	p.version++
}

// Snapshot returns clones of the current bundle plus its version. The caller
// owns the returned Mats. Image may be empty before the first frame.
func (p *LivePreview) Snapshot() (img, legend gocv.Mat, info depthviz.LegendInfo, version uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.image.Clone(), p.legend.Clone(), p.info, p.version
}

// Version reports the current update counter without copying images.
func (p *LivePreview) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

func (p *LivePreview) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.image.Close()
	p.legend.Close()
	p.image = gocv.NewMat()
	p.legend = gocv.NewMat()
	p.info = depthviz.LegendInfo{}
	p.version++
}

// downscalePreview bounds a preview image to maxWidth columns, preserving
// aspect ratio and never upscaling. The caller owns the returned Mat.
func downscalePreview(img gocv.Mat, maxWidth int) gocv.Mat {
	if img.Empty() || maxWidth <= 0 || img.Cols() <= maxWidth {
		return img.Clone()
	}
	scale := float64(maxWidth) / float64(img.Cols())
	dst := gocv.NewMat()
	gocv.Resize(img, &dst, image.Pt(maxWidth, int(float64(img.Rows())*scale)), 0, 0, gocv.InterpolationArea)
	return dst
}
