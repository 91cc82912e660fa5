// Plain frame extraction with dataset-wide numbering
package extract

import (
	"fmt"
	"math"
	"path/filepath"

	"gocv.io/x/gocv"

	"svo-depth-extractor/internal/output"
	"svo-depth-extractor/internal/source"
)

// StartFrames launches a plain frame extraction run: camera images dumped
// into the shared training pool under global frame numbers.
func (r *Runner) StartFrames(cfg FrameRunConfig) error {
	if err := r.begin(); err != nil {
		return err
	}
	go func() {
		r.finish(r.runFrames(cfg))
	}()
	return nil
}

func (r *Runner) runFrames(cfg FrameRunConfig) Result {
	report := func(p float64, msg string) {
		if cfg.Progress != nil {
			cfg.Progress(p, msg)
		}
	}

	if cfg.SourcePath == "" || cfg.OutputBase == "" {
		return failureResult("extract: source and output paths are required")
	}
	if cfg.Mode == CameraSideBySide {
		return failureResult("extract: side_by_side applies to video extraction only")
	}
	format := cfg.Format
	switch format {
	case "":
		format = "png"
	case "png", "jpg":
	default:
		return failureResult(fmt.Sprintf("extract: unknown image format %q (want png or jpg)", format))
	}

	report(0, "Opening recording...")
	open := cfg.Open
	if open == nil {
		open = source.Open
	}
	rd, err := open(cfg.SourcePath, r.log)
	if err != nil {
		return failureResult(fmt.Sprintf("cannot open recording %s: %v", cfg.SourcePath, err))
	}
	defer rd.Close()
	props := rd.Properties()

	layout := output.NewLayout(cfg.OutputBase, r.log)
	if err := layout.Validate(); err != nil {
		return failureResult(err.Error())
	}
	recording := output.RecordingName(cfg.SourcePath)
	framesDir, err := layout.FramesDir(recording)
	if err != nil {
		return failureResult(err.Error())
	}
	report(0.1, "Output directory ready")
	r.setRunning()

	views := []source.View{source.ViewLeft}
	switch cfg.Mode {
	case CameraRight:
		views = []source.View{source.ViewRight}
	case CameraBoth:
		views = []source.View{source.ViewLeft, source.ViewRight}
	}

	interval := frameInterval(props.FPS, cfg.FPS)
	startFrame := layout.NextGlobalFrame()
	nextFrame := startFrame

	var pos, extracted, consecErrors int
	for {
		if r.cancel.Load() {
			r.finishFrames(layout, nextFrame, startFrame)
			return cancelledResult(framesDir, extracted)
		}
		if !rd.Grab() {
			break
		}
		if pos%interval != 0 {
			pos++
			continue
		}
		pos++

		wrote := false
		for _, v := range views {
			img, err := rd.RetrieveImage(v)
			if err != nil || img.Empty() {
				img.Close()
				continue
			}
			path := filepath.Join(framesDir, fmt.Sprintf("frame_%08d_%s.%s", nextFrame, v, format))
			if gocv.IMWrite(path, img) {
				wrote = true
			} else if r.log != nil {
				r.log.WithField("path", path).Warn("frame write failed")
			}
			img.Close()
		}
		if !wrote {
			consecErrors++
			if consecErrors >= maxConsecutiveFrameErrors {
				r.finishFrames(layout, nextFrame, startFrame)
				return failureResult(fmt.Sprintf("%d consecutive frame errors reading %s", consecErrors, cfg.SourcePath))
			}
			continue
		}
		consecErrors = 0
		nextFrame++
		extracted++
		if extracted%progressEveryNFrames == 0 {
			p := 0.1
			if props.TotalFrames > 0 {
				p += 0.85 * float64(pos) / float64(props.TotalFrames)
			}
			report(math.Min(p, 0.95), fmt.Sprintf("Extracted %d frames", extracted))
		}
	}

	if extracted == 0 {
		return failureResult(fmt.Sprintf(
			"no frames extracted from %s: the source reported end of stream immediately (wrong path or not a recording?)",
			cfg.SourcePath))
	}
	r.finishFrames(layout, nextFrame, startFrame)

	meta := output.FrameMetadata{
		ExtractionDateTime:   output.Timestamp(),
		Flight:               output.FlightInfoFromPath(cfg.SourcePath),
		Width:                props.Width,
		Height:               props.Height,
		SourceFPS:            props.FPS,
		TotalSourceFrames:    props.TotalFrames,
		CameraMode:           cfg.Mode.String(),
		ImageFormat:          format,
		FrameInterval:        interval,
		TotalExtractedFrames: extracted,
		StartingFrameNumber:  startFrame,
		EndingFrameNumber:    nextFrame - 1,
		OutputDirectory:      filepath.ToSlash(framesDir),
	}
	if err := output.WriteJSON(meta, filepath.Join(framesDir, "frames_metadata.json")); err != nil && r.log != nil {
		r.log.WithError(err).Warn("metadata write failed")
	}

	report(1.0, fmt.Sprintf("Frame extraction completed: %d frames", extracted))
	return successResult(framesDir, extracted, fmt.Sprintf("%d frames extracted", extracted))
}

// finishFrames persists the global counter when any numbers were consumed.
func (r *Runner) finishFrames(layout *output.Layout, nextFrame, startFrame int) {
	if nextFrame <= startFrame {
		return
	}
	if err := layout.UpdateGlobalFrame(nextFrame - 1); err != nil && r.log != nil {
		r.log.WithError(err).Warn("frame counter update failed")
	}
}
