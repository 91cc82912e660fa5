// Depth extraction orchestrator
package extract

import (
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"svo-depth-extractor/internal/depthviz"
	"svo-depth-extractor/internal/output"
	"svo-depth-extractor/internal/rawio"
	"svo-depth-extractor/internal/source"
)

const (
	// progressEveryNFrames throttles the progress callback.
	progressEveryNFrames = 5

	// maxConsecutiveFrameErrors converts an unbroken streak of per-frame
	// retrieval failures into a run failure instead of looping forever on a
	// corrupted source. The counter resets on any successful frame.
	maxConsecutiveFrameErrors = 30
)

// Runner drives extraction runs on a single background goroutine. At most
// one run is in flight per Runner; the controlling thread polls State,
// reads the live preview and store, and may request cancellation.
// Cancellation is cooperative, checked once per frame-loop iteration.
type Runner struct {
	log     *logrus.Entry
	store   *Store
	preview *LivePreview

	cancel atomic.Bool

	mu        sync.Mutex
	state     State
	result    Result
	done      chan struct{}
	artifacts *runArtifacts
}

// runArtifacts captures what a completed depth run left behind, for
// random-access reprocessing.
type runArtifacts struct {
	dirs          output.DepthDirs
	rawFormat     rawio.Format
	savedRaw      bool
	savedRGB      bool
	savedConf     bool
	savedHeatmaps bool
	sourcePath    string
	open          OpenFunc
	width         int
	height        int
	previewWidth  int
}

func NewRunner(log *logrus.Entry) *Runner {
	return &Runner{
		log:     log,
		store:   NewStore(),
		preview: NewLivePreview(),
	}
}

func (r *Runner) Store() *Store          { return r.store }
func (r *Runner) Preview() *LivePreview  { return r.preview }

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) Running() bool {
	s := r.State()
	return s == StateOpening || s == StateRunning
}

// Cancel requests a cooperative stop. The run finishes the frame in flight,
// releases its writers and reports a cancelled result; partial output stays
// on disk.
func (r *Runner) Cancel() {
	r.cancel.Store(true)
}

// Wait blocks until the current run finishes and returns its result. Without
// a run in flight it returns the last result immediately.
func (r *Runner) Wait() Result {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Start launches a depth extraction run in the background. It fails
// immediately with ErrAlreadyRunning when a run is in flight.
func (r *Runner) Start(cfg RunConfig) error {
	if err := r.begin(); err != nil {
		return err
	}
	go func() {
		r.finish(r.runDepth(cfg))
	}()
	return nil
}

func (r *Runner) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateOpening || r.state == StateRunning {
		return ErrAlreadyRunning
	}
	r.state = StateOpening
	r.done = make(chan struct{})
	r.cancel.Store(false)
	return nil
}

func (r *Runner) setRunning() {
	r.mu.Lock()
	r.state = StateRunning
	r.mu.Unlock()
}

func (r *Runner) finish(res Result) {
	r.mu.Lock()
	r.state = res.State
	r.result = res
	done := r.done
	r.mu.Unlock()
	close(done)
}

func (r *Runner) setArtifacts(a *runArtifacts) {
	r.mu.Lock()
	r.artifacts = a
	r.mu.Unlock()
}

func (r *Runner) currentArtifacts() *runArtifacts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.artifacts
}

// frameInterval maps the requested output FPS onto a keep-every-Nth stride.
func frameInterval(sourceFPS, requestedFPS float64) int {
	if requestedFPS <= 0 || sourceFPS <= 0 {
		return 1
	}
	n := int(math.Round(sourceFPS / requestedFPS))
	if n < 1 {
		n = 1
	}
	return n
}

func (r *Runner) runDepth(cfg RunConfig) Result {
	report := func(p float64, msg string) {
		if cfg.Progress != nil {
			cfg.Progress(p, msg)
		}
	}

	if err := cfg.validate(); err != nil {
		return failureResult(err.Error())
	}

	report(0, "Opening recording...")
	rd, err := cfg.opener()(cfg.SourcePath, r.log)
	if err != nil {
		return failureResult(fmt.Sprintf("cannot open recording %s: %v", cfg.SourcePath, err))
	}
	defer rd.Close()
	props := rd.Properties()
	report(0.05, "Recording opened")

	layout := output.NewLayout(cfg.OutputBase, r.log)
	if err := layout.Validate(); err != nil {
		return failureResult(err.Error())
	}
	recording := output.RecordingName(cfg.SourcePath)
	runDir, err := layout.NextExtractionDir(recording)
	if err != nil {
		return failureResult(err.Error())
	}
	dirs, err := output.MakeDepthDirs(runDir, cfg.SaveRGB, cfg.SaveConfidence)
	if err != nil {
		return failureResult(err.Error())
	}
	report(0.1, "Output directory ready")

	interval := frameInterval(props.FPS, cfg.FPS)

	var video *gocv.VideoWriter
	if cfg.SaveVideo {
		outFPS := props.FPS / float64(interval)
		if outFPS <= 0 {
			outFPS = 1
		}
		video, err = gocv.VideoWriterFile(dirs.VideoPath(), "MJPG", outFPS, props.Width, props.Height, true)
		if err != nil || !video.IsOpened() {
			return failureResult(fmt.Sprintf("cannot open video writer %s: %v", dirs.VideoPath(), err))
		}
		defer video.Close()
	}

	r.setRunning()
	r.store.Clear()
	r.preview.reset()

	temporal := depthviz.NewTemporalState()
	defer temporal.Close()
	codec := rawio.NewCodec(r.log)
	legend := depthviz.RenderLegend(cfg.Viz.ColorMap)
	defer legend.Close()

	var (
		pos, extracted, consecErrors int
		stats                        output.DepthStatistics
		meanSum                      float64
	)
	stats.MinDetectedMeters = math.Inf(1)
	stats.MaxDetectedMeters = math.Inf(-1)

	for {
		if r.cancel.Load() {
			if r.log != nil {
				r.log.WithField("frames", extracted).Info("extraction cancelled")
			}
			return cancelledResult(runDir, extracted)
		}
		if !rd.Grab() {
			break
		}
		srcFrame := rd.CurrentPosition()
		if pos%interval != 0 {
			pos++
			continue
		}
		pos++

		depth, err := rd.RetrieveMeasure(source.MeasureDepth)
		if err != nil || depth.Empty() {
			depth.Close()
			consecErrors++
			if r.log != nil {
				r.log.WithField("frame", srcFrame).WithError(err).Warn("depth retrieval failed, skipping frame")
			}
			if consecErrors >= maxConsecutiveFrameErrors {
				return failureResult(fmt.Sprintf("%d consecutive frame errors reading %s around frame %d",
					consecErrors, cfg.SourcePath, srcFrame))
			}
			continue
		}
		consecErrors = 0

		if r.processDepthFrame(rd, depth, srcFrame, extracted, cfg, dirs, codec, temporal, legend, video) {
			frameStats := depthviz.ComputeRegionStats(depth,
				image.Rect(0, 0, depth.Cols(), depth.Rows()), cfg.Viz.MinDepth, cfg.Viz.MaxDepth)
			if frameStats.Count > 0 {
				stats.FramesWithDepth++
				meanSum += frameStats.Mean
				if frameStats.Min < stats.MinDetectedMeters {
					stats.MinDetectedMeters = frameStats.Min
				}
				if frameStats.Max > stats.MaxDetectedMeters {
					stats.MaxDetectedMeters = frameStats.Max
				}
			}
			extracted++
			if extracted%progressEveryNFrames == 0 {
				p := 0.1
				if props.TotalFrames > 0 {
					p += 0.85 * float64(pos) / float64(props.TotalFrames)
				}
				report(math.Min(p, 0.95), fmt.Sprintf("Processed %d frames", extracted))
			}
		}
		depth.Close()
	}

	if extracted == 0 {
		return failureResult(fmt.Sprintf(
			"no frames extracted from %s: the source reported end of stream immediately (wrong path or not a recording?)",
			cfg.SourcePath))
	}

	if stats.FramesWithDepth > 0 {
		stats.AvgDetectedMeters = meanSum / float64(stats.FramesWithDepth)
	} else {
		stats.MinDetectedMeters, stats.MaxDetectedMeters = 0, 0
	}

	meta := output.DepthMetadata{
		ExtractionDateTime: output.Timestamp(),
		Flight:             output.FlightInfoFromPath(cfg.SourcePath),
		Width:              props.Width,
		Height:             props.Height,
		SourceFPS:          props.FPS,
		FramesProcessed:    extracted,
		Settings: output.DepthSettings{
			RawFormat:           cfg.RawFormat.String(),
			MinDepthMeters:      cfg.Viz.MinDepth,
			MaxDepthMeters:      cfg.Viz.MaxDepth,
			ConfidenceThreshold: cfg.Viz.ConfidenceThreshold,
			AutoContrast:        cfg.Viz.AutoContrast,
			LogScale:            cfg.Viz.LogScale,
			EdgeBoost:           cfg.Viz.EdgeBoost,
			CLAHE:               cfg.Viz.CLAHE,
			ColorMap:            cfg.Viz.ColorMap.String(),
			TemporalSmooth:      cfg.Viz.TemporalSmooth,
			MotionHighlight:     cfg.Viz.MotionHighlight,
			OverlayOnRGB:        cfg.Viz.OverlayOnRGB,
			OverlayStrength:     cfg.Viz.OverlayStrength,
		},
		Statistics: stats,
	}
	if cfg.SaveVideo {
		meta.OutputVideo = dirs.VideoPath()
	}
	if err := output.WriteJSON(meta, dirs.MetadataPath()); err != nil && r.log != nil {
		r.log.WithError(err).Warn("metadata write failed")
	}

	r.setArtifacts(&runArtifacts{
		dirs:          dirs,
		rawFormat:     cfg.RawFormat,
		savedRaw:      cfg.SaveRaw,
		savedRGB:      cfg.SaveRGB,
		savedConf:     cfg.SaveConfidence,
		savedHeatmaps: cfg.SaveHeatmaps,
		sourcePath:    cfg.SourcePath,
		open:          cfg.opener(),
		width:         props.Width,
		height:        props.Height,
		previewWidth:  cfg.MaxPreviewWidth,
	})

	report(1.0, fmt.Sprintf("Depth extraction completed: %d frames", extracted))
	return successResult(runDir, extracted, fmt.Sprintf("%d frames extracted", extracted))
}

// processDepthFrame runs one frame through the visualization chain and all
// configured side effects. Returns false when the frame produced no heatmap.
// depth stays owned by the caller.
func (r *Runner) processDepthFrame(rd source.Reader, depth gocv.Mat, srcFrame, index int,
	cfg RunConfig, dirs output.DepthDirs, codec *rawio.Codec,
	temporal *depthviz.TemporalState, legend gocv.Mat, video *gocv.VideoWriter) bool {

	confidence := gocv.NewMat()
	if cfg.SaveConfidence || cfg.Viz.ConfidenceThreshold < 100 {
		if c, err := rd.RetrieveMeasure(source.MeasureConfidence); err == nil {
			confidence.Close()
			confidence = c
		} else {
			c.Close()
		}
	}
	defer confidence.Close()

	rgb := gocv.NewMat()
	if cfg.SaveRGB || cfg.Viz.OverlayOnRGB {
		if m, err := rd.RetrieveImage(source.ViewLeft); err == nil {
			rgb.Close()
			rgb = m
		} else {
			m.Close()
			if r.log != nil {
				r.log.WithField("frame", srcFrame).WithError(err).Debug("left image unavailable")
			}
		}
	}
	defer rgb.Close()

	// The smoothed frame feeds visualization only; raw depth is what gets
	// persisted.
	vizInput := depth.Clone()
	if cfg.Viz.TemporalSmooth {
		vizInput.Close()
		vizInput = temporal.Smooth(depth)
	}
	defer vizInput.Close()

	heat, rng := depthviz.Colorize(vizInput, confidence, rgb, cfg.Viz)
	if heat.Empty() {
		temporal.Advance(vizInput)
		if r.log != nil {
			r.log.WithField("frame", srcFrame).Warn("colorize produced no output, skipping frame")
		}
		return false
	}
	defer heat.Close()

	if cfg.Viz.MotionHighlight {
		temporal.HighlightMotion(&heat, vizInput, cfg.Viz.MotionGain)
	}
	temporal.Advance(vizInput)

	if cfg.SaveRaw {
		// Failures are non-fatal; the codec warns once per run.
		_ = codec.Write(depth, dirs.DepthMapPath(index, cfg.RawFormat.Ext()), cfg.RawFormat)
	}
	if cfg.SaveConfidence && !confidence.Empty() {
		conf8 := normalizeConfidence(confidence)
		gocv.IMWrite(dirs.ConfidencePath(index), conf8)
		conf8.Close()
	}
	if cfg.SaveRGB && !rgb.Empty() {
		gocv.IMWrite(dirs.LeftRGBPath(index), rgb)
	}
	if cfg.SaveHeatmaps {
		if !gocv.IMWrite(dirs.HeatmapPath(index), heat) && r.log != nil {
			r.log.WithField("frame", srcFrame).Warn("heatmap write failed")
		}
	}
	if video != nil {
		if err := video.Write(heat); err != nil && r.log != nil {
			r.log.WithField("frame", srcFrame).WithError(err).Warn("video append failed")
		}
	}

	small := downscalePreview(heat, cfg.MaxPreviewWidth)
	defer small.Close()
	if cfg.RetainPreviews {
		r.store.Add(srcFrame, small.Clone())
	} else {
		r.store.Add(srcFrame, gocv.NewMat())
	}
	r.preview.Update(small, legend, depthviz.LegendInfo{
		Range:        rng,
		ColorMap:     cfg.Viz.ColorMap.String(),
		LogScale:     cfg.Viz.LogScale,
		AutoContrast: cfg.Viz.AutoContrast,
	})
	return true
}

// normalizeConfidence renders a confidence map as an 8-bit image,
// contrast-stretching anything that is not already byte-valued.
func normalizeConfidence(confidence gocv.Mat) gocv.Mat {
	if confidence.Type() == gocv.MatTypeCV8U {
		return confidence.Clone()
	}
	stretched := gocv.NewMat()
	gocv.Normalize(confidence, &stretched, 0, 255, gocv.NormMinMax)
	out := gocv.NewMat()
	stretched.ConvertTo(&out, gocv.MatTypeCV8U)
	stretched.Close()
	return out
}
