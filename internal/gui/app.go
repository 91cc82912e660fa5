// Main extractor window: run controls, live preview, stored frame navigator
package gui

import (
	"errors"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"svo-depth-extractor/internal/extract"
)

const previewPollInterval = 100 * time.Millisecond

// Application owns the window, the extraction runner and the panels around
// it. All extraction work happens on the runner's goroutine; the UI polls the
// live preview and marshals every widget update through fyne.Do.
type Application struct {
	app    fyne.App
	window fyne.Window
	log    *logrus.Logger
	runner *extract.Runner

	controls  *ControlPanel
	preview   *PreviewPanel
	navigator *NavigatorPanel

	progress   *widget.ProgressBar
	statusCard *widget.Card

	stopPoll chan struct{}
}

func NewApplication(app fyne.App, log *logrus.Logger) *Application {
	window := app.NewWindow("SVO Depth Extractor")
	window.Resize(fyne.NewSize(1400, 900))
	window.CenterOnScreen()

	a := &Application{
		app:      app,
		window:   window,
		log:      log,
		runner:   extract.NewRunner(log.WithField("component", "extract")),
		stopPoll: make(chan struct{}),
	}

	a.controls = NewControlPanel(window)
	a.preview = NewPreviewPanel()
	a.navigator = NewNavigatorPanel(a.runner.Store())
	a.progress = widget.NewProgressBar()
	a.statusCard = widget.NewCard("Status", "", widget.NewLabel("Ready"))

	a.setupLayout()
	a.setupCallbacks()
	return a
}

func (a *Application) setupLayout() {
	right := container.NewBorder(
		nil,
		container.NewVBox(
			widget.NewCard("Stored Frames", "", a.navigator.GetContainer()),
			a.progress,
			a.statusCard,
		),
		nil, nil,
		widget.NewCard("Preview", "", a.preview.GetContainer()),
	)

	content := container.NewHSplit(
		container.NewScroll(a.controls.GetContainer()),
		right,
	)
	content.SetOffset(0.33)
	a.window.SetContent(content)
}

func (a *Application) setupCallbacks() {
	a.controls.SetCallbacks(a.startRun, a.runner.Cancel)
	a.navigator.SetCallbacks(a.showStoredFrame, a.reprocessFrame)
}

func (a *Application) startRun(mode string) {
	var err error
	switch mode {
	case "Frames":
		err = a.runner.StartFrames(extract.FrameRunConfig{
			SourcePath: a.controls.SourcePath(),
			OutputBase: a.controls.OutputPath(),
			FPS:        a.controls.Frames.FPS(),
			Mode:       a.controls.Frames.Mode(),
			Format:     a.controls.Frames.Format(),
			Progress:   a.reportProgress,
		})
	case "Video":
		err = a.runner.StartVideo(extract.VideoRunConfig{
			SourcePath: a.controls.SourcePath(),
			OutputBase: a.controls.OutputPath(),
			FPS:        a.controls.Videos.FPS(),
			Mode:       a.controls.Videos.Mode(),
			Progress:   a.reportProgress,
		})
	default:
		err = a.startDepthRun()
	}
	if err != nil {
		if errors.Is(err, extract.ErrAlreadyRunning) {
			a.setStatus("A run is already in progress")
			return
		}
		a.showError(err)
		return
	}
	a.controls.SetRunning(true)
	a.setStatus("Extraction started")
	go a.awaitResult()
}

func (a *Application) startDepthRun() error {
	viz, err := a.controls.Depth.VizConfig()
	if err != nil {
		return err
	}
	cfg := extract.DefaultRunConfig()
	cfg.SourcePath = a.controls.SourcePath()
	cfg.OutputBase = a.controls.OutputPath()
	cfg.FPS = a.controls.Depth.FPS()
	cfg.Viz = viz
	cfg.RawFormat = a.controls.Depth.RawFormat()
	cfg.SaveRaw, cfg.SaveConfidence, cfg.SaveRGB, cfg.SaveHeatmaps, cfg.SaveVideo =
		a.controls.Depth.SaveOptions()
	cfg.Progress = a.reportProgress
	return a.runner.Start(cfg)
}

func (a *Application) awaitResult() {
	res := a.runner.Wait()
	fyne.Do(func() {
		a.controls.SetRunning(false)
		a.navigator.Refresh()
		if res.Success {
			a.progress.SetValue(1)
			a.setStatus(fmt.Sprintf("Completed: %s (%d frames)", res.OutputPath, res.FramesProcessed))
			return
		}
		if res.State == extract.StateCancelled {
			a.setStatus(fmt.Sprintf("Cancelled after %d frames", res.FramesProcessed))
			return
		}
		a.setStatus("Failed: " + res.Message)
		dialog.ShowError(errors.New(res.Message), a.window)
	})
}

func (a *Application) reportProgress(p float64, msg string) {
	fyne.Do(func() {
		a.progress.SetValue(p)
		a.setStatus(msg)
	})
}

func (a *Application) showStoredFrame(index int) {
	preview, ok := a.runner.Store().Preview(index)
	if !ok || preview.Empty() {
		preview.Close()
		return
	}
	img := matToImage(preview)
	preview.Close()
	sourceFrame, _ := a.runner.Store().SourceFrame(index)
	a.preview.SetStoredFrame(img, index, sourceFrame)
}

func (a *Application) reprocessFrame(index int) {
	viz, err := a.controls.Depth.VizConfig()
	if err != nil {
		a.showError(err)
		return
	}
	a.setStatus(fmt.Sprintf("Reprocessing frame %d...", index))
	go func() {
		if err := a.runner.Reprocess(index, viz); err != nil {
			fyne.Do(func() { a.showError(err) })
			return
		}
		fyne.Do(func() {
			a.showStoredFrame(index)
			a.setStatus(fmt.Sprintf("Frame %d reprocessed", index))
		})
	}()
}

// pollPreview watches the live preview version and pushes new frames to the
// canvas. Snapshot clones are converted off the UI thread; only the widget
// update goes through fyne.Do.
func (a *Application) pollPreview() {
	ticker := time.NewTicker(previewPollInterval)
	defer ticker.Stop()
	var lastVersion uint64
	for {
		select {
		case <-a.stopPoll:
			return
		case <-ticker.C:
		}
		if !a.runner.Running() {
			continue
		}
		v := a.runner.Preview().Version()
		if v == lastVersion {
			continue
		}
		lastVersion = v
		img, legend, info, _ := a.runner.Preview().Snapshot()
		if img.Empty() {
			img.Close()
			legend.Close()
			continue
		}
		frame := matToImage(img)
		legendImg := matToImage(legend)
		img.Close()
		legend.Close()
		fyne.Do(func() {
			a.preview.SetFrame(frame, legendImg, info)
		})
	}
}

func (a *Application) setStatus(message string) {
	a.statusCard.SetContent(widget.NewLabel(message))
}

func (a *Application) showError(err error) {
	a.log.WithError(err).Error("extraction error")
	dialog.ShowError(err, a.window)
	a.setStatus("Error: " + err.Error())
}

func (a *Application) ShowAndRun() {
	go a.pollPreview()
	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})
	a.window.ShowAndRun()
}

func (a *Application) cleanup() {
	a.log.Info("shutting down")
	close(a.stopPoll)
	if a.runner.Running() {
		a.runner.Cancel()
		a.runner.Wait()
	}
	a.runner.Store().Clear()
}
