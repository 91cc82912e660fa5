package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// videoReader plays back a plain video container through gocv, standing in
// for an SDK-backed recording during development and testing. Depth and
// confidence come from an optional sidecar directory "<name>_depth" next to
// the video, holding depth_NNNNNN.tiff and conf_NNNNNN.png keyed by source
// frame index.
type videoReader struct {
	cap      *gocv.VideoCapture
	frame    gocv.Mat
	props    Properties
	depthDir string
	pos      int
	log      *logrus.Entry
}

func openVideo(path string, log *logrus.Entry) (Reader, error) {
	cap, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("source: cannot open %s", path)
	}

	props := Properties{
		Path:        path,
		Width:       int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height:      int(cap.Get(gocv.VideoCaptureFrameHeight)),
		FPS:         cap.Get(gocv.VideoCaptureFPS),
		TotalFrames: int(cap.Get(gocv.VideoCaptureFrameCount)),
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	depthDir := base + "_depth"
	if _, err := os.Stat(depthDir); err != nil {
		depthDir = ""
	}

	if log != nil {
		log.WithFields(logrus.Fields{
			"path":      path,
			"frames":    props.TotalFrames,
			"fps":       props.FPS,
			"depth_dir": depthDir,
		}).Info("opened video-backed recording")
	}

	return &videoReader{
		cap:      cap,
		frame:    gocv.NewMat(),
		props:    props,
		depthDir: depthDir,
		pos:      -1,
		log:      log,
	}, nil
}

func (v *videoReader) Grab() bool {
	if !v.cap.Read(&v.frame) || v.frame.Empty() {
		return false
	}
	v.pos++
	return true
}

func (v *videoReader) RetrieveImage(view View) (gocv.Mat, error) {
	if view == ViewRight {
		return gocv.NewMat(), fmt.Errorf("source: %s carries no right view", v.props.Path)
	}
	if v.frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("source: no frame grabbed from %s", v.props.Path)
	}
	if v.frame.Channels() == 4 {
		bgr := gocv.NewMat()
		gocv.CvtColor(v.frame, &bgr, gocv.ColorBGRAToBGR)
		return bgr, nil
	}
	return v.frame.Clone(), nil
}

func (v *videoReader) RetrieveMeasure(m Measure) (gocv.Mat, error) {
	if v.depthDir == "" {
		return gocv.NewMat(), fmt.Errorf("source: %s has no sidecar depth directory", v.props.Path)
	}
	if v.pos < 0 {
		return gocv.NewMat(), fmt.Errorf("source: no frame grabbed from %s", v.props.Path)
	}

	switch m {
	case MeasureDepth:
		path := filepath.Join(v.depthDir, fmt.Sprintf("depth_%06d.tiff", v.pos))
		depth := gocv.IMRead(path, gocv.IMReadUnchanged)
		if depth.Empty() {
			return gocv.NewMat(), fmt.Errorf("source: missing sidecar depth for frame %d: %s", v.pos, path)
		}
		if depth.Type() != gocv.MatTypeCV32F {
			converted := gocv.NewMat()
			depth.ConvertTo(&converted, gocv.MatTypeCV32F)
			depth.Close()
			return converted, nil
		}
		return depth, nil
	case MeasureConfidence:
		path := filepath.Join(v.depthDir, fmt.Sprintf("conf_%06d.png", v.pos))
		conf := gocv.IMRead(path, gocv.IMReadGrayScale)
		if conf.Empty() {
			return gocv.NewMat(), fmt.Errorf("source: missing sidecar confidence for frame %d: %s", v.pos, path)
		}
		return conf, nil
	}
	return gocv.NewMat(), fmt.Errorf("source: unknown measure %d", m)
}

func (v *videoReader) Seek(frame int) error {
	if frame < 0 || (v.props.TotalFrames > 0 && frame >= v.props.TotalFrames) {
		return fmt.Errorf("source: seek to frame %d out of range [0, %d)", frame, v.props.TotalFrames)
	}
	v.cap.Set(gocv.VideoCapturePosFrames, float64(frame))
	v.pos = frame - 1
	return nil
}

func (v *videoReader) CurrentPosition() int { return v.pos }

func (v *videoReader) Properties() Properties { return v.props }

func (v *videoReader) Close() error {
	v.frame.Close()
	return v.cap.Close()
}
