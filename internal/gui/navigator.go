package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"svo-depth-extractor/internal/extract"
)

// NavigatorPanel steps through the frames retained by the last run and
// triggers single-frame reprocessing with the current settings.
type NavigatorPanel struct {
	store *extract.Store

	slider      *widget.Slider
	countLabel  *widget.Label
	prevButton  *widget.Button
	nextButton  *widget.Button
	reprocess   *widget.Button
	container   *fyne.Container
	onSelect    func(index int)
	onReprocess func(index int)
}

func NewNavigatorPanel(store *extract.Store) *NavigatorPanel {
	p := &NavigatorPanel{store: store}

	p.slider = widget.NewSlider(0, 0)
	p.slider.Step = 1
	p.slider.OnChanged = func(v float64) {
		p.selectIndex(int(v))
	}
	p.countLabel = widget.NewLabel("No stored frames")
	p.prevButton = widget.NewButton("<", func() { p.step(-1) })
	p.nextButton = widget.NewButton(">", func() { p.step(1) })
	p.reprocess = widget.NewButton("Reprocess Frame", func() {
		if p.onReprocess != nil && p.store.Len() > 0 {
			p.onReprocess(int(p.slider.Value))
		}
	})
	p.setEnabled(false)

	p.container = container.NewVBox(
		p.countLabel,
		container.NewBorder(nil, nil, p.prevButton, p.nextButton, p.slider),
		p.reprocess,
	)
	return p
}

func (p *NavigatorPanel) GetContainer() *fyne.Container {
	return p.container
}

func (p *NavigatorPanel) SetCallbacks(onSelect, onReprocess func(index int)) {
	p.onSelect = onSelect
	p.onReprocess = onReprocess
}

// Refresh re-reads the store size after a run finishes. Must run on the UI
// thread.
func (p *NavigatorPanel) Refresh() {
	n := p.store.Len()
	if n == 0 {
		p.countLabel.SetText("No stored frames")
		p.setEnabled(false)
		return
	}
	p.slider.Max = float64(n - 1)
	p.countLabel.SetText(fmt.Sprintf("%d stored frames", n))
	p.setEnabled(true)
}

func (p *NavigatorPanel) setEnabled(on bool) {
	if on {
		p.prevButton.Enable()
		p.nextButton.Enable()
		p.reprocess.Enable()
		return
	}
	p.prevButton.Disable()
	p.nextButton.Disable()
	p.reprocess.Disable()
}

func (p *NavigatorPanel) step(delta int) {
	next := int(p.slider.Value) + delta
	if next < 0 || next > int(p.slider.Max) {
		return
	}
	p.slider.SetValue(float64(next))
}

func (p *NavigatorPanel) selectIndex(index int) {
	if p.onSelect != nil {
		p.onSelect(index)
	}
}
