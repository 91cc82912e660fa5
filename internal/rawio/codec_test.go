package rawio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func rampMat(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.SetFloatAt(r, c, float32(r*cols+c)*0.25)
		}
	}
	return m
}

func assertSameDepth(t *testing.T, want, got gocv.Mat) {
	t.Helper()
	require.False(t, got.Empty())
	require.Equal(t, gocv.MatTypeCV32F, got.Type())
	require.Equal(t, want.Rows(), got.Rows())
	require.Equal(t, want.Cols(), got.Cols())
	for r := 0; r < want.Rows(); r++ {
		for c := 0; c < want.Cols(); c++ {
			if want.GetFloatAt(r, c) != got.GetFloatAt(r, c) {
				t.Fatalf("pixel (%d,%d): want %v, got %v", r, c, want.GetFloatAt(r, c), got.GetFloatAt(r, c))
			}
		}
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{
		"tiff": FormatTIFF, "tif": FormatTIFF,
		"pfm": FormatPFM, "exr": FormatEXR, "bin": FormatBIN,
	} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseFormat("npy")
	assert.Error(t, err)

	assert.Equal(t, ".tiff", FormatTIFF.Ext())
	assert.Equal(t, ".pfm", FormatPFM.Ext())
}

func TestTIFFRoundTrip(t *testing.T) {
	depth := rampMat(t, 6, 9)
	defer depth.Close()
	path := filepath.Join(t.TempDir(), "depth_000000.tiff")

	codec := NewCodec(nil)
	require.NoError(t, codec.Write(depth, path, FormatTIFF))

	got, err := codec.Read(path, FormatTIFF)
	require.NoError(t, err)
	defer got.Close()
	assertSameDepth(t, depth, got)
}

func TestPFMRoundTrip(t *testing.T) {
	depth := rampMat(t, 5, 7)
	defer depth.Close()
	path := filepath.Join(t.TempDir(), "depth_000000.pfm")

	codec := NewCodec(nil)
	require.NoError(t, codec.Write(depth, path, FormatPFM))

	got, err := codec.Read(path, FormatPFM)
	require.NoError(t, err)
	defer got.Close()
	assertSameDepth(t, depth, got)
}

func TestPFMRejectsBigEndian(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.pfm")
	require.NoError(t, os.WriteFile(path, []byte("Pf\n2 2\n1.0\n0123456789abcdef"), 0o644))

	_, err := readPFM(path)
	assert.ErrorContains(t, err, "big-endian")
}

func TestPFMRejectsWrongMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "color.pfm")
	require.NoError(t, os.WriteFile(path, []byte("PF\n1 1\n-1.0\n0123"), 0o644))

	_, err := readPFM(path)
	assert.Error(t, err)
}

func TestBinRoundTrip(t *testing.T) {
	depth := rampMat(t, 4, 8)
	defer depth.Close()
	path := filepath.Join(t.TempDir(), "depth_000000.bin")

	codec := NewCodec(nil)
	require.NoError(t, codec.Write(depth, path, FormatBIN))

	got, err := ReadBin(path, 8, 4)
	require.NoError(t, err)
	defer got.Close()
	assertSameDepth(t, depth, got)
}

func TestReadBinChecksSize(t *testing.T) {
	depth := rampMat(t, 4, 8)
	defer depth.Close()
	path := filepath.Join(t.TempDir(), "depth_000000.bin")
	codec := NewCodec(nil)
	require.NoError(t, codec.Write(depth, path, FormatBIN))

	_, err := ReadBin(path, 8, 5)
	assert.Error(t, err)
	_, err = ReadBin(path, 0, 4)
	assert.Error(t, err)
}

func TestCodecReadRejectsBin(t *testing.T) {
	codec := NewCodec(nil)
	_, err := codec.Read("whatever.bin", FormatBIN)
	assert.ErrorContains(t, err, "ReadBin")
}

func TestCodecRejectsBadInput(t *testing.T) {
	codec := NewCodec(nil)
	empty := gocv.NewMat()
	defer empty.Close()
	assert.Error(t, codec.Write(empty, filepath.Join(t.TempDir(), "x.tiff"), FormatTIFF))

	bytes := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8U)
	defer bytes.Close()
	assert.Error(t, codec.Write(bytes, filepath.Join(t.TempDir(), "y.tiff"), FormatTIFF))
}

func TestEXRFailureDisablesFurtherWrites(t *testing.T) {
	depth := rampMat(t, 2, 2)
	defer depth.Close()
	codec := NewCodec(nil)

	// A path inside a missing directory fails the first write and trips the
	// per-run disable; later writes become silent no-ops.
	missing := filepath.Join(t.TempDir(), "no_such_dir", "depth_000000.exr")
	assert.Error(t, codec.Write(depth, missing, FormatEXR))
	assert.NoError(t, codec.Write(depth, missing, FormatEXR))
}
