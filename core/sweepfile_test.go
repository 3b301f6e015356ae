package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSweep(rayCount, gateCount int, scanType ScanType) *Sweep {
	rays := make([]*Ray, rayCount)
	for i := range rays {
		var ray Ray
		ray.Header.GateCount = gateCount
		ray.Header.GateSizeMeters = 150
		ray.Header.StartAzimuth = float32(i)
		ray.Header.EndAzimuth = float32(i + 1)
		ray.Header.StartElevation = 0.5
		ray.Header.Presence = presenceWith(ProductZ) | presenceWith(ProductV)
		ray.Data[ProductZ] = make([]float32, gateCount)
		ray.Data[ProductV] = make([]float32, gateCount)
		for g := 0; g < gateCount; g++ {
			ray.Data[ProductZ][g] = float32(i*100 + g)
			ray.Data[ProductV][g] = float32(i) - float32(g)*0.1
		}
		rays[i] = &ray
	}
	return &Sweep{
		StartTime: WallTimeFromDouble(1700000000),
		EndTime:   WallTimeFromDouble(1700000010),
		ScanType:  scanType,
		GateCount: gateCount,
		GateSizeMeters: 150,
		Rays:      rays,
	}
}

func TestWriteSweepFiles_OneFilePerPresentProduct(t *testing.T) {
	dir := t.TempDir()
	sweep := testSweep(4, 8, ScanPPI)
	desc := DefaultRadarDesc()
	cfg := testBaselineConfig()

	paths, err := WriteSweepFiles(dir, "PX", sweep, desc, cfg)
	require.NoError(t, err)
	assert.Len(t, paths, 2, "sweep presence carries Z and V only")
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}

func TestWriteSweepFiles_EmptySweepErrors(t *testing.T) {
	_, err := WriteSweepFiles(t.TempDir(), "PX", &Sweep{}, DefaultRadarDesc(), testBaselineConfig())
	assert.Error(t, err)
}

func TestSweepFile_RoundTripsGlobalsAndData(t *testing.T) {
	dir := t.TempDir()
	sweep := testSweep(3, 4, ScanPPI)
	desc := DefaultRadarDesc()
	desc.LatitudeDegrees = 35.25
	desc.LongitudeDegrees = -97.5
	cfg := testBaselineConfig()

	paths, err := WriteSweepFiles(dir, "PX", sweep, desc, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	doc, err := ReadSweepFile(paths[0])
	require.NoError(t, err)

	assert.InDelta(t, 35.25, doc.Globals["Latitude"].(float64), 1e-9)
	assert.InDelta(t, -97.5, doc.Globals["Longitude"].(float64), 1e-9)
	assert.Equal(t, "ppi", doc.Globals["ScanType"])
	assert.Equal(t, desc.Name, doc.Globals["radarName-value"])

	zVar, ok := doc.Vars[productVarName[ProductZ]]
	require.True(t, ok)
	require.Len(t, zVar, 3*4)
	for i := 0; i < 3; i++ {
		for g := 0; g < 4; g++ {
			assert.Equal(t, float32(i*100+g), zVar[i*4+g])
		}
	}
}

func TestSweepFileName_EncodesScanTag(t *testing.T) {
	dir := t.TempDir()
	sweep := testSweep(2, 4, ScanPPI)
	path, err := SweepFileName(dir, "PX", sweep, "Z")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "-E00-")
	assert.Contains(t, path, "-Z.nc")
	assert.Contains(t, path, "PX-")
}

func TestPad4(t *testing.T) {
	assert.Equal(t, 0, pad4(4))
	assert.Equal(t, 0, pad4(8))
	assert.Equal(t, 3, pad4(1))
	assert.Equal(t, 1, pad4(3))
}

func TestScanTypeName(t *testing.T) {
	assert.Equal(t, "ppi", scanTypeName(ScanPPI))
	assert.Equal(t, "rhi", scanTypeName(ScanRHI))
	assert.Equal(t, "volume", scanTypeName(ScanVolume))
}

func TestFirstOr_FallsBackOnEmpty(t *testing.T) {
	assert.Equal(t, 5.0, firstOr(nil, 5.0))
	assert.Equal(t, 10.0, firstOr([]float64{10, 20}, 5.0))
}
