// Headless extraction runner for batch and scripted use
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"svo-depth-extractor/internal/depthviz"
	"svo-depth-extractor/internal/extract"
	"svo-depth-extractor/internal/rawio"
)

func main() {
	var (
		sourcePath = flag.String("source", "", "Recording file (.svo2 or a video container)")
		outputBase = flag.String("output", "", "Dataset output directory")
		mode       = flag.String("mode", "depth", "Extraction mode: depth, frames or video")
		fps        = flag.Float64("fps", 0, "Output sampling rate, 0 keeps every frame")
		camera     = flag.String("camera", "left", "Camera mode for frames/video: left, right, both or side_by_side")
		format     = flag.String("format", "png", "Image format for frame extraction: png or jpg")

		minDepth   = flag.Float64("min-depth", 10, "Minimum depth in meters")
		maxDepth   = flag.Float64("max-depth", 50, "Maximum depth in meters")
		confidence = flag.Int("confidence", 100, "Confidence threshold, 0 strictest to 100 off")
		colorMap   = flag.String("colormap", "turbo", "Color map: turbo, viridis, plasma or jet")
		rawFormat  = flag.String("raw-format", "tiff", "Raw depth format: tiff, pfm, exr or bin")

		autoContrast = flag.Bool("auto-contrast", true, "Stretch to the 2-98 depth percentiles")
		logScale     = flag.Bool("log-scale", false, "Logarithmic depth scaling")
		edgeBoost    = flag.Bool("edge-boost", false, "Emphasize depth discontinuities")
		clahe        = flag.Bool("clahe", false, "Local contrast equalization")
		smooth       = flag.Bool("smooth", false, "Temporal smoothing")
		motion       = flag.Bool("motion", false, "Motion highlighting")
		overlay      = flag.Bool("overlay", false, "Blend heatmap over the left RGB image")

		saveRaw      = flag.Bool("save-raw", true, "Save raw depth maps")
		saveConf     = flag.Bool("save-confidence", false, "Save confidence maps")
		saveRGB      = flag.Bool("save-rgb", false, "Save left RGB frames")
		saveHeatmaps = flag.Bool("save-heatmaps", true, "Save heatmap images")
		saveVideo    = flag.Bool("save-video", false, "Encode heatmaps into a video")

		debugMode = flag.Bool("debug", false, "Enable debug mode with verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debugMode {
		logger.SetLevel(logrus.DebugLevel)
	}

	if *sourcePath == "" || *outputBase == "" {
		fmt.Fprintln(os.Stderr, "both -source and -output are required")
		flag.Usage()
		os.Exit(2)
	}

	runner := extract.NewRunner(logger.WithField("component", "extract"))
	progress := func(p float64, msg string) {
		fmt.Fprintf(os.Stderr, "\r[%3.0f%%] %-60s", p*100, msg)
	}

	var err error
	switch *mode {
	case "depth":
		err = startDepth(runner, *sourcePath, *outputBase, *fps, progress, depthFlags{
			minDepth: *minDepth, maxDepth: *maxDepth, confidence: *confidence,
			colorMap: *colorMap, rawFormat: *rawFormat,
			autoContrast: *autoContrast, logScale: *logScale, edgeBoost: *edgeBoost,
			clahe: *clahe, smooth: *smooth, motion: *motion, overlay: *overlay,
			saveRaw: *saveRaw, saveConf: *saveConf, saveRGB: *saveRGB,
			saveHeatmaps: *saveHeatmaps, saveVideo: *saveVideo,
		})
	case "frames":
		var cam extract.CameraMode
		cam, err = extract.ParseCameraMode(*camera)
		if err == nil {
			err = runner.StartFrames(extract.FrameRunConfig{
				SourcePath: *sourcePath,
				OutputBase: *outputBase,
				FPS:        *fps,
				Mode:       cam,
				Format:     *format,
				Progress:   progress,
			})
		}
	case "video":
		var cam extract.CameraMode
		cam, err = extract.ParseCameraMode(*camera)
		if err == nil {
			err = runner.StartVideo(extract.VideoRunConfig{
				SourcePath: *sourcePath,
				OutputBase: *outputBase,
				FPS:        *fps,
				Mode:       cam,
				Progress:   progress,
			})
		}
	default:
		err = fmt.Errorf("unknown mode %q (want depth, frames or video)", *mode)
	}
	if err != nil {
		logger.WithError(err).Fatal("cannot start extraction")
	}

	// First interrupt cancels cooperatively, a second one kills the process.
	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupts
		logger.Warn("interrupt received, cancelling run")
		runner.Cancel()
		<-interrupts
		os.Exit(1)
	}()

	result := runner.Wait()
	fmt.Fprintln(os.Stderr)
	if !result.Success {
		logger.WithField("state", result.State.String()).Error(result.Message)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"output": result.OutputPath,
		"frames": result.FramesProcessed,
	}).Info("extraction completed")
}

type depthFlags struct {
	minDepth, maxDepth     float64
	confidence             int
	colorMap, rawFormat    string
	autoContrast, logScale bool
	edgeBoost, clahe       bool
	smooth, motion         bool
	overlay                bool
	saveRaw, saveConf      bool
	saveRGB, saveHeatmaps  bool
	saveVideo              bool
}

func startDepth(runner *extract.Runner, source, output string, fps float64,
	progress extract.ProgressFunc, f depthFlags) error {

	cm, err := depthviz.ParseColorMap(f.colorMap)
	if err != nil {
		return err
	}
	rf, err := rawio.ParseFormat(f.rawFormat)
	if err != nil {
		return err
	}

	cfg := extract.DefaultRunConfig()
	cfg.SourcePath = source
	cfg.OutputBase = output
	cfg.FPS = fps
	cfg.RawFormat = rf
	cfg.SaveRaw = f.saveRaw
	cfg.SaveConfidence = f.saveConf
	cfg.SaveRGB = f.saveRGB
	cfg.SaveHeatmaps = f.saveHeatmaps
	cfg.SaveVideo = f.saveVideo
	cfg.RetainPreviews = false
	cfg.Progress = progress

	cfg.Viz.MinDepth = f.minDepth
	cfg.Viz.MaxDepth = f.maxDepth
	cfg.Viz.ConfidenceThreshold = f.confidence
	cfg.Viz.ColorMap = cm
	cfg.Viz.AutoContrast = f.autoContrast
	cfg.Viz.LogScale = f.logScale
	cfg.Viz.EdgeBoost = f.edgeBoost
	cfg.Viz.CLAHE = f.clahe
	cfg.Viz.TemporalSmooth = f.smooth
	cfg.Viz.MotionHighlight = f.motion
	cfg.Viz.OverlayOnRGB = f.overlay
	return runner.Start(cfg)
}
