package gui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"svo-depth-extractor/internal/depthviz"
	"svo-depth-extractor/internal/rawio"
)

// DepthSettingsPanel exposes the visualization and output knobs of a depth
// extraction run.
type DepthSettingsPanel struct {
	minDepth  *widget.Entry
	maxDepth  *widget.Entry
	fps       *widget.Entry
	colorMap  *widget.Select
	rawFormat *widget.Select

	autoContrast    *widget.Check
	logScale        *widget.Check
	edgeBoost       *widget.Check
	clahe           *widget.Check
	temporalSmooth  *widget.Check
	motionHighlight *widget.Check
	overlayOnRGB    *widget.Check

	confidence *widget.Slider
	confLabel  *widget.Label
	overlay    *widget.Slider

	saveRaw        *widget.Check
	saveConfidence *widget.Check
	saveRGB        *widget.Check
	saveHeatmaps   *widget.Check
	saveVideo      *widget.Check

	container *fyne.Container
}

func NewDepthSettingsPanel() *DepthSettingsPanel {
	p := &DepthSettingsPanel{}
	def := depthviz.DefaultConfig()

	p.minDepth = widget.NewEntry()
	p.minDepth.SetText(fmt.Sprintf("%.1f", def.MinDepth))
	p.maxDepth = widget.NewEntry()
	p.maxDepth.SetText(fmt.Sprintf("%.1f", def.MaxDepth))
	p.fps = widget.NewEntry()
	p.fps.SetText("0")
	p.fps.SetPlaceHolder("0 = every frame")

	p.colorMap = widget.NewSelect([]string{"turbo", "viridis", "plasma", "jet"}, nil)
	p.colorMap.SetSelected(def.ColorMap.String())
	p.rawFormat = widget.NewSelect([]string{"tiff", "pfm", "exr", "bin"}, nil)
	p.rawFormat.SetSelected("tiff")

	p.autoContrast = widget.NewCheck("Auto contrast (2-98 percentile)", nil)
	p.autoContrast.SetChecked(def.AutoContrast)
	p.logScale = widget.NewCheck("Logarithmic scale", nil)
	p.edgeBoost = widget.NewCheck("Edge boost", nil)
	p.clahe = widget.NewCheck("CLAHE", nil)
	p.temporalSmooth = widget.NewCheck("Temporal smoothing", nil)
	p.motionHighlight = widget.NewCheck("Motion highlight", nil)
	p.overlayOnRGB = widget.NewCheck("Overlay on RGB", nil)

	p.confLabel = widget.NewLabel(fmt.Sprintf("Confidence threshold: %d", def.ConfidenceThreshold))
	p.confidence = widget.NewSlider(0, 100)
	p.confidence.Step = 1
	p.confidence.Value = float64(def.ConfidenceThreshold)
	p.confidence.OnChanged = func(v float64) {
		p.confLabel.SetText(fmt.Sprintf("Confidence threshold: %d", int(v)))
	}

	p.overlay = widget.NewSlider(0, 100)
	p.overlay.Step = 1
	p.overlay.Value = float64(def.OverlayStrength)

	p.saveRaw = widget.NewCheck("Save raw depth maps", nil)
	p.saveRaw.SetChecked(true)
	p.saveConfidence = widget.NewCheck("Save confidence maps", nil)
	p.saveRGB = widget.NewCheck("Save left RGB frames", nil)
	p.saveHeatmaps = widget.NewCheck("Save heatmap images", nil)
	p.saveHeatmaps.SetChecked(true)
	p.saveVideo = widget.NewCheck("Save heatmap video", nil)

	p.container = container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("Min depth (m)", p.minDepth),
			widget.NewFormItem("Max depth (m)", p.maxDepth),
			widget.NewFormItem("Output FPS", p.fps),
			widget.NewFormItem("Color map", p.colorMap),
			widget.NewFormItem("Raw format", p.rawFormat),
		),
		p.confLabel, p.confidence,
		p.autoContrast, p.logScale, p.edgeBoost, p.clahe,
		p.temporalSmooth, p.motionHighlight,
		p.overlayOnRGB,
		widget.NewLabel("Overlay strength"), p.overlay,
		widget.NewSeparator(),
		p.saveRaw, p.saveConfidence, p.saveRGB, p.saveHeatmaps, p.saveVideo,
	)
	return p
}

func (p *DepthSettingsPanel) GetContainer() *fyne.Container {
	return p.container
}

// VizConfig assembles the visualization settings from the current widget
// state.
func (p *DepthSettingsPanel) VizConfig() (depthviz.Config, error) {
	cfg := depthviz.DefaultConfig()

	minDepth, err := strconv.ParseFloat(p.minDepth.Text, 64)
	if err != nil {
		return cfg, fmt.Errorf("invalid min depth %q", p.minDepth.Text)
	}
	maxDepth, err := strconv.ParseFloat(p.maxDepth.Text, 64)
	if err != nil {
		return cfg, fmt.Errorf("invalid max depth %q", p.maxDepth.Text)
	}
	cm, err := depthviz.ParseColorMap(p.colorMap.Selected)
	if err != nil {
		return cfg, err
	}

	cfg.MinDepth = minDepth
	cfg.MaxDepth = maxDepth
	cfg.ColorMap = cm
	cfg.AutoContrast = p.autoContrast.Checked
	cfg.LogScale = p.logScale.Checked
	cfg.EdgeBoost = p.edgeBoost.Checked
	cfg.CLAHE = p.clahe.Checked
	cfg.TemporalSmooth = p.temporalSmooth.Checked
	cfg.MotionHighlight = p.motionHighlight.Checked
	cfg.OverlayOnRGB = p.overlayOnRGB.Checked
	cfg.ConfidenceThreshold = int(p.confidence.Value)
	cfg.OverlayStrength = int(p.overlay.Value)
	return cfg, cfg.Validate()
}

func (p *DepthSettingsPanel) FPS() float64 {
	v, err := strconv.ParseFloat(p.fps.Text, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (p *DepthSettingsPanel) RawFormat() rawio.Format {
	f, err := rawio.ParseFormat(p.rawFormat.Selected)
	if err != nil {
		return rawio.FormatTIFF
	}
	return f
}

func (p *DepthSettingsPanel) SaveOptions() (raw, confidence, rgb, heatmaps, video bool) {
	return p.saveRaw.Checked, p.saveConfidence.Checked, p.saveRGB.Checked,
		p.saveHeatmaps.Checked, p.saveVideo.Checked
}
