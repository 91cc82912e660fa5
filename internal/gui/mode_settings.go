package gui

import (
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"svo-depth-extractor/internal/extract"
)

// FrameSettingsPanel configures plain frame extraction.
type FrameSettingsPanel struct {
	mode      *widget.Select
	format    *widget.Select
	fps       *widget.Entry
	container *fyne.Container
}

func NewFrameSettingsPanel() *FrameSettingsPanel {
	p := &FrameSettingsPanel{}
	p.mode = widget.NewSelect([]string{"left", "right", "both"}, nil)
	p.mode.SetSelected("left")
	p.format = widget.NewSelect([]string{"png", "jpg"}, nil)
	p.format.SetSelected("png")
	p.fps = widget.NewEntry()
	p.fps.SetText("1")
	p.fps.SetPlaceHolder("0 = every frame")

	p.container = container.NewVBox(widget.NewForm(
		widget.NewFormItem("Camera", p.mode),
		widget.NewFormItem("Format", p.format),
		widget.NewFormItem("Frames per second", p.fps),
	))
	return p
}

func (p *FrameSettingsPanel) GetContainer() *fyne.Container { return p.container }

func (p *FrameSettingsPanel) Mode() extract.CameraMode {
	m, err := extract.ParseCameraMode(p.mode.Selected)
	if err != nil {
		return extract.CameraLeft
	}
	return m
}

func (p *FrameSettingsPanel) Format() string { return p.format.Selected }

func (p *FrameSettingsPanel) FPS() float64 {
	v, err := strconv.ParseFloat(p.fps.Text, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// VideoSettingsPanel configures video extraction.
type VideoSettingsPanel struct {
	mode      *widget.Select
	fps       *widget.Entry
	container *fyne.Container
}

func NewVideoSettingsPanel() *VideoSettingsPanel {
	p := &VideoSettingsPanel{}
	p.mode = widget.NewSelect([]string{"left", "right", "both", "side_by_side"}, nil)
	p.mode.SetSelected("left")
	p.fps = widget.NewEntry()
	p.fps.SetText("0")
	p.fps.SetPlaceHolder("0 = source FPS")

	p.container = container.NewVBox(widget.NewForm(
		widget.NewFormItem("Camera", p.mode),
		widget.NewFormItem("Output FPS", p.fps),
	))
	return p
}

func (p *VideoSettingsPanel) GetContainer() *fyne.Container { return p.container }

func (p *VideoSettingsPanel) Mode() extract.CameraMode {
	m, err := extract.ParseCameraMode(p.mode.Selected)
	if err != nil {
		return extract.CameraLeft
	}
	return m
}

func (p *VideoSettingsPanel) FPS() float64 {
	v, err := strconv.ParseFloat(p.fps.Text, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
