// Raw depth frame serialization in interchangeable on-disk formats
package rawio

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Format is the closed set of raw depth encodings.
type Format int

const (
	FormatTIFF Format = iota // 32-bit float TIFF, the default
	FormatPFM                // portable float map
	FormatEXR                // OpenEXR, unavailable in some OpenCV builds
	FormatBIN                // headerless float32 dump
)

func ParseFormat(name string) (Format, error) {
	switch name {
	case "tiff", "tif":
		return FormatTIFF, nil
	case "pfm":
		return FormatPFM, nil
	case "exr":
		return FormatEXR, nil
	case "bin":
		return FormatBIN, nil
	}
	return FormatTIFF, fmt.Errorf("unknown raw depth format %q (want tiff, pfm, exr or bin)", name)
}

func (f Format) String() string {
	switch f {
	case FormatPFM:
		return "pfm"
	case FormatEXR:
		return "exr"
	case FormatBIN:
		return "bin"
	default:
		return "tiff"
	}
}

func (f Format) Ext() string {
	return "." + f.String()
}

// Codec writes and reads single-frame float32 depth maps. The EXR disable
// flag and the write warning are scoped to the Codec value, so each
// extraction run owns its own (a fresh run gets a fresh chance at EXR).
type Codec struct {
	log         *logrus.Entry
	exrDisabled bool
	warnedWrite bool
}

func NewCodec(log *logrus.Entry) *Codec {
	return &Codec{log: log}
}

// Write persists depth to path in the given format. Failures are reported as
// errors but are meant to be non-fatal to the surrounding run; the codec
// warns once per run, and a failed EXR write disables EXR output for the
// remainder of the run (later EXR writes become silent no-ops).
func (c *Codec) Write(depth gocv.Mat, path string, format Format) error {
	if depth.Empty() || depth.Type() != gocv.MatTypeCV32F {
		return fmt.Errorf("rawio: refusing to write empty or non-float depth to %s", path)
	}

	switch format {
	case FormatTIFF:
		if !gocv.IMWrite(path, depth) {
			return c.writeFailed(path, fmt.Errorf("rawio: tiff write failed: %s", path))
		}
		return nil
	case FormatEXR:
		if c.exrDisabled {
			return nil
		}
		if !gocv.IMWrite(path, depth) {
			c.exrDisabled = true
			if c.log != nil {
				c.log.WithField("path", path).Warn("EXR write failed; disabling EXR output for this run")
			}
			return fmt.Errorf("rawio: exr write failed (exr disabled for this run): %s", path)
		}
		return nil
	case FormatPFM:
		if err := writePFM(depth, path); err != nil {
			return c.writeFailed(path, err)
		}
		return nil
	case FormatBIN:
		if err := writeBin(depth, path); err != nil {
			return c.writeFailed(path, err)
		}
		return nil
	}
	return fmt.Errorf("rawio: unknown format %d", format)
}

// Read loads a depth frame written by Write. BIN frames carry no dimensions
// and must be read with ReadBin.
func (c *Codec) Read(path string, format Format) (gocv.Mat, error) {
	switch format {
	case FormatTIFF, FormatEXR:
		m := gocv.IMRead(path, gocv.IMReadUnchanged)
		if m.Empty() {
			return gocv.NewMat(), fmt.Errorf("rawio: cannot read %s", path)
		}
		if m.Type() != gocv.MatTypeCV32F {
			converted := gocv.NewMat()
			m.ConvertTo(&converted, gocv.MatTypeCV32F)
			m.Close()
			return converted, nil
		}
		return m, nil
	case FormatPFM:
		return readPFM(path)
	case FormatBIN:
		return gocv.NewMat(), fmt.Errorf("rawio: bin frames carry no dimensions, use ReadBin: %s", path)
	}
	return gocv.NewMat(), fmt.Errorf("rawio: unknown format %d", format)
}

func (c *Codec) writeFailed(path string, err error) error {
	if !c.warnedWrite {
		c.warnedWrite = true
		if c.log != nil {
			c.log.WithField("path", path).WithError(err).
				Warn("raw depth write failed; further failures this run are silent")
		}
	}
	return err
}
