// Video extraction to MJPG containers
package extract

import (
	"fmt"
	"math"
	"path/filepath"

	"gocv.io/x/gocv"

	"svo-depth-extractor/internal/output"
	"svo-depth-extractor/internal/source"
)

// StartVideo launches a video extraction run: the selected camera views
// re-encoded as MJPG .avi files in a fresh extraction directory.
func (r *Runner) StartVideo(cfg VideoRunConfig) error {
	if err := r.begin(); err != nil {
		return err
	}
	go func() {
		r.finish(r.runVideo(cfg))
	}()
	return nil
}

func (r *Runner) runVideo(cfg VideoRunConfig) Result {
	report := func(p float64, msg string) {
		if cfg.Progress != nil {
			cfg.Progress(p, msg)
		}
	}

	if cfg.SourcePath == "" || cfg.OutputBase == "" {
		return failureResult("extract: source and output paths are required")
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
	runDir, err := layout.NextExtractionDir(recording)
	if err != nil {
		return failureResult(err.Error())
	}

	// Output FPS is capped at the source rate; the sampling interval handles
	// anything below it.
	outFPS := props.FPS
	if cfg.FPS > 0 && cfg.FPS < outFPS {
		outFPS = cfg.FPS
	}
	interval := frameInterval(props.FPS, outFPS)
	outFPS = props.FPS / float64(interval)

	views := []source.View{source.ViewLeft}
	switch cfg.Mode {
	case CameraRight:
		views = []source.View{source.ViewRight}
	case CameraBoth:
		views = []source.View{source.ViewLeft, source.ViewRight}
	case CameraSideBySide:
		views = []source.View{source.ViewLeft, source.ViewRight}
	}

	sideBySide := cfg.Mode == CameraSideBySide
	width := props.Width
	if sideBySide {
		width *= 2
	}

	writers := map[source.View]*gocv.VideoWriter{}
	var outputs []string
	openWriter := func(name string) (*gocv.VideoWriter, error) {
		path := filepath.Join(runDir, name)
		w, err := gocv.VideoWriterFile(path, "MJPG", outFPS, width, props.Height, true)
		if err != nil || !w.IsOpened() {
			return nil, fmt.Errorf("cannot open video writer %s: %v", path, err)
		}
		outputs = append(outputs, filepath.ToSlash(path))
		return w, nil
	}
	var sbsWriter *gocv.VideoWriter
	if sideBySide {
		sbsWriter, err = openWriter("video_side_by_side.avi")
		if err != nil {
			return failureResult(err.Error())
		}
		defer sbsWriter.Close()
	} else {
		for _, v := range views {
			w, werr := openWriter(fmt.Sprintf("video_%s.avi", v))
			if werr != nil {
				for _, prev := range writers {
					prev.Close()
				}
				return failureResult(werr.Error())
			}
			writers[v] = w
		}
		defer func() {
			for _, w := range writers {
				w.Close()
			}
		}()
	}
	report(0.1, "Video writers ready")
	r.setRunning()

	var pos, written, consecErrors int
	for {
		if r.cancel.Load() {
			return cancelledResult(runDir, written)
		}
		if !rd.Grab() {
			break
		}
		if pos%interval != 0 {
			pos++
			continue
		}
		pos++

		ok := false
		if sideBySide {
			ok = r.writeSideBySide(rd, sbsWriter)
		} else {
			for _, v := range views {
				img, ierr := rd.RetrieveImage(v)
				if ierr != nil || img.Empty() {
					img.Close()
					continue
				}
				if err := writers[v].Write(img); err == nil {
					ok = true
				} else if r.log != nil {
					r.log.WithError(err).Warn("video append failed")
				}
				img.Close()
			}
		}
		if !ok {
			consecErrors++
			if consecErrors >= maxConsecutiveFrameErrors {
				return failureResult(fmt.Sprintf("%d consecutive frame errors reading %s", consecErrors, cfg.SourcePath))
			}
			continue
		}
		consecErrors = 0
		written++
		if written%progressEveryNFrames == 0 {
			p := 0.1
			if props.TotalFrames > 0 {
				p += 0.85 * float64(pos) / float64(props.TotalFrames)
			}
			report(math.Min(p, 0.95), fmt.Sprintf("Encoded %d frames", written))
		}
	}

	if written == 0 {
		return failureResult(fmt.Sprintf(
			"no frames encoded from %s: the source reported end of stream immediately (wrong path or not a recording?)",
			cfg.SourcePath))
	}

	meta := output.VideoMetadata{
		ExtractionDateTime: output.Timestamp(),
		Flight:             output.FlightInfoFromPath(cfg.SourcePath),
		Width:              width,
		Height:             props.Height,
		FPS:                outFPS,
		TotalFrames:        written,
		CameraMode:         cfg.Mode.String(),
		Codec:              "MJPG",
		OutputFiles:        outputs,
	}
	if err := output.WriteJSON(meta, filepath.Join(runDir, "video_metadata.json")); err != nil && r.log != nil {
		r.log.WithError(err).Warn("metadata write failed")
	}

	report(1.0, fmt.Sprintf("Video extraction completed: %d frames", written))
	return successResult(runDir, written, fmt.Sprintf("%d frames encoded", written))
}

func (r *Runner) writeSideBySide(rd source.Reader, w *gocv.VideoWriter) bool {
	left, lerr := rd.RetrieveImage(source.ViewLeft)
	if lerr != nil || left.Empty() {
		left.Close()
		return false
	}
	defer left.Close()
	right, rerr := rd.RetrieveImage(source.ViewRight)
	if rerr != nil || right.Empty() {
		right.Close()
		return false
	}
	defer right.Close()

	combined := gocv.NewMat()
	defer combined.Close()
	gocv.Hconcat(left, right, &combined)
	if err := w.Write(combined); err != nil {
		if r.log != nil {
			r.log.WithError(err).Warn("video append failed")
		}
		return false
	}
	return true
}
