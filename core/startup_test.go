package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "radarkit.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadRadarDesc_ParsesRecognizedKeywords(t *testing.T) {
	path := writeTestConfFile(t, `
# a comment
* another comment style
NAME KOUN
PREFIX PX

PULSEBUFFERDEPTH 4096
POSITIONBUFFERDEPTH 8192
CONFIGBUFFERDEPTH 32
RAYBUFFERDEPTH 400
PULSEGATECAPACITY 2048
PULSETORAYRATIO 2
COMPRESSORWORKERCOUNT 6
MOMENTWORKERCOUNT 3
LATITUDE 35.25
LONGITUDE -97.5
HEADING 10.5
HEIGHT 375.2
`)
	desc, err := LoadRadarDesc(path)
	require.NoError(t, err)
	assert.Equal(t, "KOUN", desc.Name)
	assert.Equal(t, "PX", desc.Prefix)
	assert.Equal(t, uint32(4096), desc.PulseBufferDepth)
	assert.Equal(t, uint32(8192), desc.PositionBufferDepth)
	assert.Equal(t, uint32(32), desc.ConfigBufferDepth)
	assert.Equal(t, uint32(400), desc.RayBufferDepth)
	assert.Equal(t, 2048, desc.PulseGateCapacity)
	assert.Equal(t, 2, desc.PulseToRayRatio)
	assert.Equal(t, 6, desc.CompressorWorkerCount)
	assert.Equal(t, 3, desc.MomentWorkerCount)
	assert.Equal(t, 35.25, desc.LatitudeDegrees)
	assert.Equal(t, -97.5, desc.LongitudeDegrees)
	assert.Equal(t, 10.5, desc.HeadingDegrees)
	assert.Equal(t, 375.2, desc.HeightMeters)
}

func TestLoadRadarDesc_AliasKeywordsLatLon(t *testing.T) {
	path := writeTestConfFile(t, "LAT 40.1\nLON -88.2\n")
	desc, err := LoadRadarDesc(path)
	require.NoError(t, err)
	assert.Equal(t, 40.1, desc.LatitudeDegrees)
	assert.Equal(t, -88.2, desc.LongitudeDegrees)
}

func TestLoadRadarDesc_IgnoresUnknownKeywords(t *testing.T) {
	path := writeTestConfFile(t, "NAME KOUN\nSOMETHINGFUTURE 42\n")
	desc, err := LoadRadarDesc(path)
	require.NoError(t, err)
	assert.Equal(t, "KOUN", desc.Name)
}

func TestLoadRadarDesc_ErrorsOnUnparseableNumber(t *testing.T) {
	path := writeTestConfFile(t, "PULSEBUFFERDEPTH notanumber\n")
	_, err := LoadRadarDesc(path)
	assert.Error(t, err)
}

func TestLoadRadarDesc_ErrorsOnMissingFile(t *testing.T) {
	_, err := LoadRadarDesc(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	assert.Error(t, err)
}

func TestLoadRadarDesc_SeedsFromDefaults(t *testing.T) {
	path := writeTestConfFile(t, "NAME KOUN\n")
	desc, err := LoadRadarDesc(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRadarDesc().PulseGateCapacity, desc.PulseGateCapacity)
}
