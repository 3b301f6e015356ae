package core

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRadarDesc() RadarDesc {
	d := DefaultRadarDesc()
	d.PulseGateCapacity = 64
	return d
}

func testBaselineConfig() Config {
	return Config{
		PRFHz: []float64{1000, 1200}, WaveformName: "impulse",
		SystemZCal: [2]float64{1.5, 2.5},
		FilterCal:  []FilterCalibration{{ZCal: [2]float64{0.1, 0.2}, DCal: 0.3, PCal: 0.4}},
		SNRThreshold: 3, SQIThreshold: 0.5,
	}
}

func TestRawFile_RoundTripsPulseSamplesBitExact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.rkr")

	header := RawFileHeader{Desc: testRadarDesc(), Baseline: testBaselineConfig(), DataType: AfterMatchedFilter}
	w, err := CreateRawFile(path, header)
	require.NoError(t, err)

	pulse := &Pulse{Samples: [2][]IQ{make([]IQ, 64), make([]IQ, 64)}}
	pulse.Header.ID = 42
	pulse.Header.Tic = 12345
	pulse.Header.GateCount = 64
	pulse.Header.AzimuthDegrees = 123.5
	pulse.Header.ElevationDegrees = 4.5
	pulse.Header.Time = WallTimeFromDouble(1700000000.25)
	for g := range pulse.Samples[ChannelH] {
		pulse.Samples[ChannelH][g] = IQ{I: float32(g), Q: float32(-g)}
		pulse.Samples[ChannelV][g] = IQ{I: float32(g) * 0.5, Q: float32(g) * -0.5}
	}
	require.NoError(t, w.WritePulse(pulse, 64))
	require.NoError(t, w.Close())

	r, err := OpenRawFile(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, header.Desc.Name, r.Header.Desc.Name)
	assert.Equal(t, header.Desc.Prefix, r.Header.Desc.Prefix)
	assert.Equal(t, header.Desc.PulseGateCapacity, r.Header.Desc.PulseGateCapacity)
	assert.Equal(t, header.Baseline.PRFHz, r.Header.Baseline.PRFHz)
	assert.Equal(t, header.Baseline.WaveformName, r.Header.Baseline.WaveformName)
	assert.Equal(t, header.Baseline.FilterCal, r.Header.Baseline.FilterCal)
	assert.Equal(t, AfterMatchedFilter, r.Header.DataType)

	dst := &Pulse{Samples: [2][]IQ{make([]IQ, 64), make([]IQ, 64)}}
	n, err := r.ReadPulse(dst)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, pulse.Header.ID, dst.Header.ID)
	assert.Equal(t, pulse.Header.Tic, dst.Header.Tic)
	assert.Equal(t, pulse.Header.AzimuthDegrees, dst.Header.AzimuthDegrees)
	assert.InDelta(t, pulse.Header.Time.Double, dst.Header.Time.Double, 1e-9)
	assert.Equal(t, pulse.Samples[ChannelH], dst.Samples[ChannelH])
	assert.Equal(t, pulse.Samples[ChannelV], dst.Samples[ChannelV])

	_, err = r.ReadPulse(dst)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRawFile_TrailingGarbageIsReportedNotPanicked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.rkr")

	header := RawFileHeader{Desc: testRadarDesc(), Baseline: testBaselineConfig(), DataType: RawFromTransceiver}
	w, err := CreateRawFile(path, header)
	require.NoError(t, err)
	pulse := &Pulse{Samples: [2][]IQ{make([]IQ, 64), make([]IQ, 64)}}
	pulse.Header.GateCount = 64
	require.NoError(t, w.WritePulse(pulse, 64))
	// Append a handful of bytes that do not form a complete record.
	_, err = w.w.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenRawFile(path)
	require.NoError(t, err)
	defer r.Close()

	dst := &Pulse{Samples: [2][]IQ{make([]IQ, 64), make([]IQ, 64)}}
	_, err = r.ReadPulse(dst) // first record reads cleanly
	require.NoError(t, err)

	_, err = r.ReadPulse(dst) // trailing partial record
	assert.Error(t, err)
}

func TestRawFileName_FormatsPrefixAndTimestamp(t *testing.T) {
	name, err := RawFileName("PX", WallTimeFromDouble(1700000000))
	require.NoError(t, err)
	assert.Contains(t, name, "PX-")
	assert.Contains(t, name, ".rkr")
}

func TestWriteReadConfig_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	cfg := testBaselineConfig()
	require.NoError(t, writeConfig(f, cfg))
	_, err = f.Seek(0, 0)
	require.NoError(t, err)
	got, err := readConfig(f)
	require.NoError(t, err)
	assert.Equal(t, cfg.PRFHz, got.PRFHz)
	assert.Equal(t, cfg.WaveformName, got.WaveformName)
	assert.Equal(t, cfg.FilterCal, got.FilterCal)
	assert.Equal(t, cfg.SystemZCal, got.SystemZCal)
}
