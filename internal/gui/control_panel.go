package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ControlPanel holds the run inputs: source recording, output base, per-mode
// settings tabs and the start/cancel buttons.
type ControlPanel struct {
	window fyne.Window

	sourcePath *widget.Entry
	outputPath *widget.Entry

	Depth  *DepthSettingsPanel
	Frames *FrameSettingsPanel
	Videos *VideoSettingsPanel
	tabs   *container.AppTabs

	startButton  *widget.Button
	cancelButton *widget.Button

	container *fyne.Container

	// onStart receives the selected tab's text ("Depth", "Frames", "Video").
	onStart  func(mode string)
	onCancel func()
}

func NewControlPanel(window fyne.Window) *ControlPanel {
	p := &ControlPanel{window: window}

	p.sourcePath = widget.NewEntry()
	p.sourcePath.SetPlaceHolder("Recording file (.svo2, .avi, ...)")
	p.outputPath = widget.NewEntry()
	p.outputPath.SetPlaceHolder("Dataset output directory")

	browseSource := widget.NewButton("Browse", func() {
		dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
			if err == nil && r != nil {
				p.sourcePath.SetText(r.URI().Path())
				r.Close()
			}
		}, p.window)
	})
	browseOutput := widget.NewButton("Browse", func() {
		dialog.ShowFolderOpen(func(u fyne.ListableURI, err error) {
			if err == nil && u != nil {
				p.outputPath.SetText(u.Path())
			}
		}, p.window)
	})

	p.Depth = NewDepthSettingsPanel()
	p.Frames = NewFrameSettingsPanel()
	p.Videos = NewVideoSettingsPanel()
	p.tabs = container.NewAppTabs(
		container.NewTabItem("Depth", container.NewScroll(p.Depth.GetContainer())),
		container.NewTabItem("Frames", container.NewScroll(p.Frames.GetContainer())),
		container.NewTabItem("Video", container.NewScroll(p.Videos.GetContainer())),
	)

	p.startButton = widget.NewButton("Start Extraction", func() {
		if p.onStart != nil {
			p.onStart(p.tabs.Selected().Text)
		}
	})
	p.startButton.Importance = widget.HighImportance
	p.cancelButton = widget.NewButton("Cancel", func() {
		if p.onCancel != nil {
			p.onCancel()
		}
	})
	p.cancelButton.Disable()

	p.container = container.NewBorder(
		container.NewVBox(
			widget.NewForm(
				widget.NewFormItem("Recording", container.NewBorder(nil, nil, nil, browseSource, p.sourcePath)),
				widget.NewFormItem("Output", container.NewBorder(nil, nil, nil, browseOutput, p.outputPath)),
			),
			widget.NewSeparator(),
		),
		container.NewGridWithColumns(2, p.startButton, p.cancelButton),
		nil, nil,
		p.tabs,
	)
	return p
}

func (p *ControlPanel) GetContainer() *fyne.Container {
	return p.container
}

func (p *ControlPanel) SetCallbacks(onStart func(mode string), onCancel func()) {
	p.onStart = onStart
	p.onCancel = onCancel
}

func (p *ControlPanel) SourcePath() string { return p.sourcePath.Text }
func (p *ControlPanel) OutputPath() string { return p.outputPath.Text }

// SetRunning toggles the buttons for the duration of a run.
func (p *ControlPanel) SetRunning(running bool) {
	if running {
		p.startButton.Disable()
		p.cancelButton.Enable()
	} else {
		p.startButton.Enable()
		p.cancelButton.Disable()
	}
}
