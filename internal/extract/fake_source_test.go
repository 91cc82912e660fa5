package extract

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"svo-depth-extractor/internal/source"
)

// fakeReader is an in-memory source.Reader producing synthetic stereo frames.
type fakeReader struct {
	props  source.Properties
	frames int
	pos    int

	failDepth bool
	// blockUntil, when set, makes Grab wait for the channel and then report
	// end of stream.
	blockUntil chan struct{}
	// onGrab runs after each successful Grab with the new frame position.
	onGrab func(frame int)
}

func newFakeReader(frames int) *fakeReader {
	return &fakeReader{
		frames: frames,
		pos:    -1,
		props: source.Properties{
			Path:        "fake://recording",
			Width:       32,
			Height:      32,
			FPS:         30,
			TotalFrames: frames,
		},
	}
}

func (f *fakeReader) opener() OpenFunc {
	return func(path string, log *logrus.Entry) (source.Reader, error) {
		f.pos = -1
		return f, nil
	}
}

func (f *fakeReader) Grab() bool {
	if f.blockUntil != nil {
		<-f.blockUntil
		return false
	}
	if f.pos+1 >= f.frames {
		return false
	}
	f.pos++
	if f.onGrab != nil {
		f.onGrab(f.pos)
	}
	return true
}

func (f *fakeReader) RetrieveImage(view source.View) (gocv.Mat, error) {
	shade := 96.0
	if view == source.ViewRight {
		shade = 160.0
	}
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(shade, shade, shade, 0),
		f.props.Height, f.props.Width, gocv.MatTypeCV8UC3), nil
}

func (f *fakeReader) RetrieveMeasure(m source.Measure) (gocv.Mat, error) {
	if m == source.MeasureConfidence {
		return gocv.NewMat(), errors.New("confidence unavailable")
	}
	if f.failDepth {
		return gocv.NewMat(), errors.New("depth retrieval failed")
	}
	depth := gocv.NewMatWithSize(f.props.Height, f.props.Width, gocv.MatTypeCV32F)
	value := 20.0 + float32(f.pos)*0.1
	for r := 0; r < f.props.Height; r++ {
		for c := 0; c < f.props.Width; c++ {
			depth.SetFloatAt(r, c, value+float32(c)*0.05)
		}
	}
	return depth, nil
}

func (f *fakeReader) Seek(frame int) error {
	if frame < 0 || frame >= f.frames {
		return fmt.Errorf("frame %d out of range", frame)
	}
	f.pos = frame - 1
	return nil
}

func (f *fakeReader) CurrentPosition() int          { return f.pos }
func (f *fakeReader) Properties() source.Properties { return f.props }
func (f *fakeReader) Close() error                  { return nil }
