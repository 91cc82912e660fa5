package gui

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"svo-depth-extractor/internal/depthviz"
)

// PreviewPanel shows the latest heatmap with its legend strip and effective
// range.
type PreviewPanel struct {
	image     *canvas.Image
	legend    *canvas.Image
	infoLabel *widget.Label
	container *fyne.Container
}

func NewPreviewPanel() *PreviewPanel {
	p := &PreviewPanel{}
	p.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	p.image.FillMode = canvas.ImageFillContain
	p.image.SetMinSize(fyne.NewSize(480, 270))
	p.legend = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 256, 16)))
	p.legend.FillMode = canvas.ImageFillStretch
	p.legend.SetMinSize(fyne.NewSize(256, 16))
	p.infoLabel = widget.NewLabel("No frames yet")

	p.container = container.NewBorder(
		nil,
		container.NewVBox(p.legend, p.infoLabel),
		nil, nil,
		p.image,
	)
	return p
}

func (p *PreviewPanel) GetContainer() *fyne.Container {
	return p.container
}

// SetFrame replaces the displayed heatmap and legend. Must run on the UI
// thread.
func (p *PreviewPanel) SetFrame(img, legend image.Image, info depthviz.LegendInfo) {
	p.image.Image = img
	p.image.Refresh()
	if legend != nil {
		p.legend.Image = legend
		p.legend.Refresh()
	}
	scale := "linear"
	if info.LogScale {
		scale = "log"
	}
	contrast := "fixed range"
	if info.AutoContrast {
		contrast = "auto contrast"
	}
	p.infoLabel.SetText(fmt.Sprintf("%.1f m - %.1f m  |  %s, %s, %s",
		info.Range.Min, info.Range.Max, info.ColorMap, scale, contrast))
}

// SetStoredFrame shows a frame from the store, without touching the legend.
// Must run on the UI thread.
func (p *PreviewPanel) SetStoredFrame(img image.Image, index, sourceFrame int) {
	p.image.Image = img
	p.image.Refresh()
	p.infoLabel.SetText(fmt.Sprintf("Stored frame %d (source frame %d)", index, sourceFrame))
}
