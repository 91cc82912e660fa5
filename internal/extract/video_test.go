package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoRunLeft(t *testing.T) {
	fake := newFakeReader(6)
	outputBase := t.TempDir()

	runner := NewRunner(testLogger())
	require.NoError(t, runner.StartVideo(VideoRunConfig{
		SourcePath: "/data/flight_20250614_153012/recording.svo2",
		OutputBase: outputBase,
		Mode:       CameraLeft,
		Open:       fake.opener(),
	}))
	res := runner.Wait()

	require.True(t, res.Success, res.Message)
	assert.Equal(t, 6, res.FramesProcessed)

	runDir := filepath.Join(outputBase, "Extractions", "flight_20250614_153012", "extraction_001")
	info, err := os.Stat(filepath.Join(runDir, "video_left.avi"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.FileExists(t, filepath.Join(runDir, "video_metadata.json"))
	assert.NoFileExists(t, filepath.Join(runDir, "video_right.avi"))
}

func TestVideoRunBothWritesTwoFiles(t *testing.T) {
	fake := newFakeReader(3)
	outputBase := t.TempDir()

	runner := NewRunner(testLogger())
	require.NoError(t, runner.StartVideo(VideoRunConfig{
		SourcePath: "/data/clips/session.avi",
		OutputBase: outputBase,
		Mode:       CameraBoth,
		Open:       fake.opener(),
	}))
	res := runner.Wait()

	require.True(t, res.Success, res.Message)
	runDir := res.OutputPath
	assert.FileExists(t, filepath.Join(runDir, "video_left.avi"))
	assert.FileExists(t, filepath.Join(runDir, "video_right.avi"))
}

func TestVideoRunSideBySide(t *testing.T) {
	fake := newFakeReader(3)
	outputBase := t.TempDir()

	runner := NewRunner(testLogger())
	require.NoError(t, runner.StartVideo(VideoRunConfig{
		SourcePath: "/data/clips/session.avi",
		OutputBase: outputBase,
		Mode:       CameraSideBySide,
		Open:       fake.opener(),
	}))
	res := runner.Wait()

	require.True(t, res.Success, res.Message)
	assert.FileExists(t, filepath.Join(res.OutputPath, "video_side_by_side.avi"))
	assert.NoFileExists(t, filepath.Join(res.OutputPath, "video_left.avi"))
}

func TestVideoRunCapsFPSAtSource(t *testing.T) {
	// Asking for more than the source provides must not duplicate frames.
	fake := newFakeReader(5)
	runner := NewRunner(testLogger())
	require.NoError(t, runner.StartVideo(VideoRunConfig{
		SourcePath: "/data/clips/session.avi",
		OutputBase: t.TempDir(),
		FPS:        120,
		Open:       fake.opener(),
	}))
	res := runner.Wait()
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 5, res.FramesProcessed)
}
