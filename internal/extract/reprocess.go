package extract

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"svo-depth-extractor/internal/depthviz"
	"svo-depth-extractor/internal/rawio"
	"svo-depth-extractor/internal/source"
)

// Reprocess re-runs the visualization chain for one stored frame with new
// settings, without touching any other frame. The raw depth comes from the
// saved raw file when the run wrote one, otherwise by seeking the original
// recording. Temporal smoothing and motion highlighting do not apply to a
// single frame and are ignored. The stored preview and live preview are
// replaced; when the run saved heatmaps the one on disk is rewritten too.
func (r *Runner) Reprocess(index int, viz depthviz.Config) error {
	if r.Running() {
		return ErrAlreadyRunning
	}
	art := r.currentArtifacts()
	if art == nil {
		return fmt.Errorf("extract: no completed run to reprocess")
	}
	srcFrame, ok := r.store.SourceFrame(index)
	if !ok {
		return fmt.Errorf("extract: no stored frame at index %d", index)
	}
	if err := viz.Validate(); err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	depth, confidence, rgb, err := r.loadFrameData(art, index, srcFrame, viz)
	if err != nil {
		return err
	}
	defer depth.Close()
	defer confidence.Close()
	defer rgb.Close()

	heat, rng := depthviz.Colorize(depth, confidence, rgb, viz)
	if heat.Empty() {
		return fmt.Errorf("extract: reprocess of frame %d produced no image", srcFrame)
	}
	defer heat.Close()

	if art.savedHeatmaps {
		if !gocv.IMWrite(art.dirs.HeatmapPath(index), heat) && r.log != nil {
			r.log.WithField("index", index).Warn("heatmap rewrite failed")
		}
	}

	small := downscalePreview(heat, art.previewWidth)
	r.store.SetPreview(index, small.Clone())
	legend := depthviz.RenderLegend(viz.ColorMap)
	r.preview.Update(small, legend, depthviz.LegendInfo{
		Range:        rng,
		ColorMap:     viz.ColorMap.String(),
		LogScale:     viz.LogScale,
		AutoContrast: viz.AutoContrast,
	})
	legend.Close()
	small.Close()
	return nil
}

// loadFrameData resolves the raw depth plus optional confidence and RGB for
// one stored frame: saved artifacts first, the recording second.
func (r *Runner) loadFrameData(art *runArtifacts, index, srcFrame int, viz depthviz.Config) (depth, confidence, rgb gocv.Mat, err error) {
	confidence = gocv.NewMat()
	rgb = gocv.NewMat()

	if art.savedRaw {
		depth, err = r.readSavedDepth(art, index)
		if err == nil {
			if art.savedConf {
				if m := gocv.IMRead(art.dirs.ConfidencePath(index), gocv.IMReadGrayScale); !m.Empty() {
					confidence.Close()
					confidence = m
				}
			}
			if viz.OverlayOnRGB && art.savedRGB {
				if m := gocv.IMRead(art.dirs.LeftRGBPath(index), gocv.IMReadColor); !m.Empty() {
					rgb.Close()
					rgb = m
				}
			}
			if !viz.OverlayOnRGB || !rgb.Empty() {
				return depth, confidence, rgb, nil
			}
			// Overlay requested but no RGB on disk: fall through to the
			// recording for the full set.
			depth.Close()
		} else if r.log != nil {
			r.log.WithField("index", index).WithError(err).Debug("saved raw unavailable, re-seeking recording")
		}
	}

	rd, openErr := art.open(art.sourcePath, r.log)
	if openErr != nil {
		confidence.Close()
		rgb.Close()
		return gocv.NewMat(), gocv.NewMat(), gocv.NewMat(),
			fmt.Errorf("extract: reopen recording for reprocess: %w", openErr)
	}
	defer rd.Close()
	if err := rd.Seek(srcFrame); err != nil {
		confidence.Close()
		rgb.Close()
		return gocv.NewMat(), gocv.NewMat(), gocv.NewMat(),
			fmt.Errorf("extract: seek frame %d: %w", srcFrame, err)
	}
	if !rd.Grab() {
		confidence.Close()
		rgb.Close()
		return gocv.NewMat(), gocv.NewMat(), gocv.NewMat(),
			fmt.Errorf("extract: frame %d no longer readable from %s", srcFrame, art.sourcePath)
	}
	depth, err = rd.RetrieveMeasure(source.MeasureDepth)
	if err != nil {
		confidence.Close()
		rgb.Close()
		return gocv.NewMat(), gocv.NewMat(), gocv.NewMat(),
			fmt.Errorf("extract: retrieve depth for frame %d: %w", srcFrame, err)
	}
	if c, cerr := rd.RetrieveMeasure(source.MeasureConfidence); cerr == nil {
		confidence.Close()
		confidence = c
	} else {
		c.Close()
	}
	if viz.OverlayOnRGB {
		if m, ierr := rd.RetrieveImage(source.ViewLeft); ierr == nil {
			rgb.Close()
			rgb = m
		} else {
			m.Close()
		}
	}
	return depth, confidence, rgb, nil
}

func (r *Runner) readSavedDepth(art *runArtifacts, index int) (gocv.Mat, error) {
	path := art.dirs.DepthMapPath(index, art.rawFormat.Ext())
	if _, err := os.Stat(path); err != nil {
		return gocv.NewMat(), err
	}
	if art.rawFormat == rawio.FormatBIN {
		return rawio.ReadBin(path, art.width, art.height)
	}
	codec := rawio.NewCodec(r.log)
	return codec.Read(path, art.rawFormat)
}
