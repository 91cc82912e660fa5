package rawio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// PFM layout used here: ASCII header "Pf\n<w> <h>\n-1.0\n" followed by raw
// little-endian float32 pixels, row-major, top row first. The negative scale
// marks little-endian; big-endian files are rejected rather than byte-swapped.

func writePFM(depth gocv.Mat, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rawio: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	rows, cols := depth.Rows(), depth.Cols()
	if _, err := fmt.Fprintf(w, "Pf\n%d %d\n-1.0\n", cols, rows); err != nil {
		return fmt.Errorf("rawio: pfm header %s: %w", path, err)
	}

	row := make([]float32, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			row[c] = depth.GetFloatAt(r, c)
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("rawio: pfm data %s: %w", path, err)
		}
	}
	return w.Flush()
}

func readPFM(path string) (gocv.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("rawio: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic string
	var cols, rows int
	var scale float64
	if _, err := fmt.Fscanf(r, "%s\n%d %d\n%f\n", &magic, &cols, &rows, &scale); err != nil {
		return gocv.NewMat(), fmt.Errorf("rawio: pfm header %s: %w", path, err)
	}
	if magic != "Pf" {
		return gocv.NewMat(), fmt.Errorf("rawio: %s is not a grayscale pfm (magic %q)", path, magic)
	}
	if cols <= 0 || rows <= 0 {
		return gocv.NewMat(), fmt.Errorf("rawio: pfm %s has invalid dimensions %dx%d", path, cols, rows)
	}
	if scale >= 0 {
		return gocv.NewMat(), fmt.Errorf("rawio: pfm %s is big-endian, not supported", path)
	}

	depth := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	row := make([]float32, cols)
	for y := 0; y < rows; y++ {
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			depth.Close()
			return gocv.NewMat(), fmt.Errorf("rawio: pfm data %s row %d: %w", path, y, err)
		}
		for x := 0; x < cols; x++ {
			depth.SetFloatAt(y, x, row[x])
		}
	}
	return depth, nil
}

func writeBin(depth gocv.Mat, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rawio: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	row := make([]float32, depth.Cols())
	for r := 0; r < depth.Rows(); r++ {
		for c := 0; c < depth.Cols(); c++ {
			row[c] = depth.GetFloatAt(r, c)
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("rawio: bin data %s: %w", path, err)
		}
	}
	return w.Flush()
}

// ReadBin reads a headerless float32 dump. The caller must know the frame
// dimensions; they are not recoverable from the file.
func ReadBin(path string, cols, rows int) (gocv.Mat, error) {
	if cols <= 0 || rows <= 0 {
		return gocv.NewMat(), fmt.Errorf("rawio: invalid bin dimensions %dx%d", cols, rows)
	}
	f, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("rawio: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("rawio: stat %s: %w", path, err)
	}
	if want := int64(cols) * int64(rows) * 4; info.Size() != want {
		return gocv.NewMat(), fmt.Errorf("rawio: %s holds %d bytes, want %d for %dx%d", path, info.Size(), want, cols, rows)
	}

	r := bufio.NewReader(f)
	depth := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	row := make([]float32, cols)
	for y := 0; y < rows; y++ {
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			depth.Close()
			return gocv.NewMat(), fmt.Errorf("rawio: bin data %s row %d: %w", path, y, err)
		}
		for x := 0; x < cols; x++ {
			depth.SetFloatAt(y, x, row[x])
		}
	}
	return depth, nil
}
