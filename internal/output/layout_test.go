package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingName(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/data/flight_20250614_153012/recording.svo2", "flight_20250614_153012"},
		{"/data/somewhere/session.svo2", "session"},
		{"/data/clips/video.avi", "video"},
		{"/data/flight_2025_bad/rec.svo2", "rec"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RecordingName(tc.path), tc.path)
	}
}

func TestNextExtractionDirNumbering(t *testing.T) {
	base := t.TempDir()
	l := NewLayout(base, nil)
	require.NoError(t, l.Validate())

	first, err := l.NextExtractionDir("flight_20250614_153012")
	require.NoError(t, err)
	assert.Equal(t, "extraction_001", filepath.Base(first))
	assert.DirExists(t, first)

	second, err := l.NextExtractionDir("flight_20250614_153012")
	require.NoError(t, err)
	assert.Equal(t, "extraction_002", filepath.Base(second))

	// Gaps do not get refilled: numbering continues past the highest.
	require.NoError(t, os.RemoveAll(first))
	third, err := l.NextExtractionDir("flight_20250614_153012")
	require.NoError(t, err)
	assert.Equal(t, "extraction_003", filepath.Base(third))

	// Other recordings count independently.
	other, err := l.NextExtractionDir("other_recording")
	require.NoError(t, err)
	assert.Equal(t, "extraction_001", filepath.Base(other))
}

func TestMakeDepthDirs(t *testing.T) {
	root := t.TempDir()

	d, err := MakeDepthDirs(root, false, false)
	require.NoError(t, err)
	assert.DirExists(t, d.DepthMaps)
	assert.DirExists(t, d.Heatmaps)
	assert.Empty(t, d.LeftRGB)
	assert.Empty(t, d.ConfidenceMaps)

	full, err := MakeDepthDirs(root, true, true)
	require.NoError(t, err)
	assert.DirExists(t, full.LeftRGB)
	assert.DirExists(t, full.ConfidenceMaps)

	assert.Equal(t, filepath.Join(full.DepthMaps, "depth_000007.pfm"), full.DepthMapPath(7, ".pfm"))
	assert.Equal(t, filepath.Join(full.Heatmaps, "heatmap_000000.png"), full.HeatmapPath(0))
	assert.Equal(t, filepath.Join(root, "depth_heatmap.avi"), full.VideoPath())
	assert.Equal(t, filepath.Join(root, "depth_metadata.json"), full.MetadataPath())
}

func TestGlobalFrameCounter(t *testing.T) {
	base := t.TempDir()
	l := NewLayout(base, nil)
	require.NoError(t, l.Validate())

	assert.Equal(t, 1, l.NextGlobalFrame())
	require.NoError(t, l.UpdateGlobalFrame(41))
	assert.Equal(t, 42, l.NextGlobalFrame())
}

func TestGlobalFrameCounterRecoversFromScan(t *testing.T) {
	base := t.TempDir()
	l := NewLayout(base, nil)
	require.NoError(t, l.Validate())

	// Frame files on disk outrank a missing or stale counter.
	dir, err := l.FramesDir("flight_20250614_153012")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame_00000099_left.png"), nil, 0o644))
	require.NoError(t, l.UpdateGlobalFrame(10))

	assert.Equal(t, 100, l.NextGlobalFrame())
}

func TestFlightInfoFromPath(t *testing.T) {
	info := FlightInfoFromPath("/data/flight_20250614_153012/recording.svo2")
	assert.Equal(t, "flight_20250614_153012", info.FolderName)
	assert.Equal(t, "2025-06-14", info.Date)
	assert.Equal(t, "15:30:12", info.Time)

	plain := FlightInfoFromPath("/data/clips/session.svo2")
	assert.Equal(t, "session", plain.FolderName)
	assert.Empty(t, plain.Date)
	assert.Empty(t, plain.Time)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depth_metadata.json")
	meta := DepthMetadata{
		ExtractionDateTime: Timestamp(),
		FramesProcessed:    12,
		Settings:           DepthSettings{RawFormat: "tiff", MinDepthMeters: 10, MaxDepthMeters: 50},
	}
	require.NoError(t, WriteJSON(meta, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"frames_processed": 12`)
	assert.Contains(t, string(data), `"raw_format": "tiff"`)

	var decoded DepthMetadata
	require.NoError(t, json.Unmarshal(data, &decoded))
	if diff := cmp.Diff(meta, decoded); diff != "" {
		t.Errorf("metadata round trip mismatch (-want +got):\n%s", diff)
	}
}
