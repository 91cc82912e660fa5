package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svo-depth-extractor/internal/depthviz"
)

func TestReprocessRequiresCompletedRun(t *testing.T) {
	runner := NewRunner(testLogger())
	err := runner.Reprocess(0, depthviz.DefaultConfig())
	assert.ErrorContains(t, err, "no completed run")
}

func TestReprocessUpdatesOnlyTargetFrame(t *testing.T) {
	fake := newFakeReader(5)
	cfg := testRunConfig(t, fake)

	runner := NewRunner(testLogger())
	require.NoError(t, runner.Start(cfg))
	res := runner.Wait()
	require.True(t, res.Success, res.Message)

	before2 := storedBytes(t, runner, 2)
	before3 := storedBytes(t, runner, 3)
	versionBefore := runner.Preview().Version()

	viz := cfg.Viz
	viz.ColorMap = depthviz.ColorMapJet
	viz.LogScale = true
	require.NoError(t, runner.Reprocess(2, viz))

	after2 := storedBytes(t, runner, 2)
	after3 := storedBytes(t, runner, 3)
	assert.NotEqual(t, before2, after2, "target frame must change")
	assert.Equal(t, before3, after3, "other frames must stay untouched")
	assert.Greater(t, runner.Preview().Version(), versionBefore)

	_, _, info, _ := snapshotInfo(runner)
	assert.Equal(t, "jet", info.ColorMap)
	assert.True(t, info.LogScale)
}

func TestReprocessFallsBackToRecording(t *testing.T) {
	fake := newFakeReader(5)
	cfg := testRunConfig(t, fake)
	cfg.SaveRaw = false

	runner := NewRunner(testLogger())
	require.NoError(t, runner.Start(cfg))
	require.True(t, runner.Wait().Success)

	before := storedBytes(t, runner, 4)
	viz := cfg.Viz
	viz.ColorMap = depthviz.ColorMapViridis
	require.NoError(t, runner.Reprocess(4, viz))
	assert.NotEqual(t, before, storedBytes(t, runner, 4))
}

func TestReprocessRejectsBadIndex(t *testing.T) {
	fake := newFakeReader(2)
	cfg := testRunConfig(t, fake)

	runner := NewRunner(testLogger())
	require.NoError(t, runner.Start(cfg))
	require.True(t, runner.Wait().Success)

	assert.Error(t, runner.Reprocess(-1, cfg.Viz))
	assert.Error(t, runner.Reprocess(2, cfg.Viz))
}

func storedBytes(t *testing.T, runner *Runner, index int) []byte {
	t.Helper()
	preview, ok := runner.Store().Preview(index)
	require.True(t, ok)
	defer preview.Close()
	require.False(t, preview.Empty())
	return preview.ToBytes()
}

func snapshotInfo(runner *Runner) (w, h int, info depthviz.LegendInfo, version uint64) {
	img, legend, info, version := runner.Preview().Snapshot()
	w, h = img.Cols(), img.Rows()
	img.Close()
	legend.Close()
	return w, h, info, version
}
