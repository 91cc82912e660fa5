package source

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseView(t *testing.T) {
	v, err := ParseView("left")
	require.NoError(t, err)
	assert.Equal(t, ViewLeft, v)
	v, err = ParseView("right")
	require.NoError(t, err)
	assert.Equal(t, ViewRight, v)
	_, err = ParseView("middle")
	assert.Error(t, err)
}

func TestPropertiesDuration(t *testing.T) {
	p := Properties{FPS: 30, TotalFrames: 900}
	assert.InDelta(t, 30.0, p.DurationSeconds(), 1e-9)
	assert.Zero(t, Properties{FPS: 30}.DurationSeconds())
	assert.Zero(t, Properties{TotalFrames: 900}.DurationSeconds())
}

func TestOpenRejectsUnsupportedFormat(t *testing.T) {
	_, err := Open("/data/recording.raw", nil)
	assert.ErrorContains(t, err, "unsupported recording format")
}

func TestOpenSVOWithoutOpener(t *testing.T) {
	svoOpener = nil
	_, err := Open("/data/recording.svo2", nil)
	assert.ErrorContains(t, err, "vendor SDK")
}

func TestOpenSVOWithRegisteredOpener(t *testing.T) {
	called := ""
	RegisterSVOOpener(func(path string, log *logrus.Entry) (Reader, error) {
		called = path
		return nil, assert.AnError
	})
	defer RegisterSVOOpener(nil)

	_, err := Open("/data/flight/recording.svo2", nil)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "/data/flight/recording.svo2", called)
}

func TestOpenVideoMissingFile(t *testing.T) {
	_, err := Open("/no/such/dir/clip.avi", nil)
	assert.Error(t, err)
}
