// Recording source abstraction over stereo capture files
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// View selects a camera image from the stereo pair.
type View int

const (
	ViewLeft View = iota
	ViewRight
)

func ParseView(name string) (View, error) {
	switch name {
	case "left":
		return ViewLeft, nil
	case "right":
		return ViewRight, nil
	}
	return ViewLeft, fmt.Errorf("unknown camera view %q (want left or right)", name)
}

func (v View) String() string {
	if v == ViewRight {
		return "right"
	}
	return "left"
}

// Measure selects a computed per-pixel measurement.
type Measure int

const (
	MeasureDepth      Measure = iota // float32 meters
	MeasureConfidence                // uint8, 0 best to 100 worst
)

// Properties describes an opened recording.
type Properties struct {
	Path        string
	Width       int
	Height      int
	FPS         float64
	TotalFrames int
}

func (p Properties) DurationSeconds() float64 {
	if p.TotalFrames <= 0 || p.FPS <= 0 {
		return 0
	}
	return float64(p.TotalFrames) / p.FPS
}

// Reader is a sequential, seekable view of one recording. Grab advances to
// the next frame and returns false at end of stream; retrieval methods
// return clones the caller owns. Implementations are not safe for
// concurrent use.
type Reader interface {
	Grab() bool
	RetrieveImage(view View) (gocv.Mat, error)
	RetrieveMeasure(m Measure) (gocv.Mat, error)
	Seek(frame int) error
	CurrentPosition() int
	Properties() Properties
	Close() error
}

// svoOpener is installed by a build that links the vendor SDK. Without it,
// .svo/.svo2 files cannot be played back.
var svoOpener func(path string, log *logrus.Entry) (Reader, error)

func RegisterSVOOpener(open func(path string, log *logrus.Entry) (Reader, error)) {
	svoOpener = open
}

// Open dispatches on the file extension. SVO2 recordings need a registered
// SDK-backed opener; plain video containers are served by the gocv reader,
// which pairs the color stream with a sidecar depth directory.
func Open(path string, log *logrus.Entry) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svo", ".svo2":
		if svoOpener == nil {
			return nil, fmt.Errorf("source: %s: SVO2 playback requires the vendor SDK opener", path)
		}
		return svoOpener(path, log)
	case ".avi", ".mp4", ".mkv", ".mov":
		return openVideo(path, log)
	}
	return nil, fmt.Errorf("source: %s: unsupported recording format (want .svo, .svo2 or a video container)", path)
}
