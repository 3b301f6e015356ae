package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigBuilder_FirstConfigFromZeroValue(t *testing.T) {
	cfg := NewConfigBuilder(nil).Apply(
		ConfigUpdate{Key: ConfigKeyPRF, Floats: []float64{1000, 1200}},
		ConfigUpdate{Key: ConfigKeyWaveformName, Str: "impulse"},
	).Build()
	assert.Equal(t, []float64{1000, 1200}, cfg.PRFHz)
	assert.Equal(t, "impulse", cfg.WaveformName)
}

func TestConfigBuilder_CarriesForwardUnmodifiedFields(t *testing.T) {
	prev := Config{PRFHz: []float64{1000}, WaveformName: "impulse", SNRThreshold: 3}
	next := NewConfigBuilder(&prev).Apply(
		ConfigUpdate{Key: ConfigKeySQIThreshold, Float: 0.5},
	).Build()
	assert.Equal(t, prev.PRFHz, next.PRFHz)
	assert.Equal(t, prev.WaveformName, next.WaveformName)
	assert.Equal(t, prev.SNRThreshold, next.SNRThreshold)
	assert.Equal(t, 0.5, next.SQIThreshold)
}

func TestConfigBuilder_DoesNotAliasPreviousSliceFields(t *testing.T) {
	prev := Config{PRFHz: []float64{1000}, FilterCal: []FilterCalibration{{DCal: 1}}}
	next := NewConfigBuilder(&prev).Apply(
		ConfigUpdate{Key: ConfigKeyPRF, Floats: []float64{2000}},
	).Build()
	require.Len(t, prev.PRFHz, 1)
	assert.Equal(t, 1000.0, prev.PRFHz[0], "mutating the builder must never alias the previous snapshot")
	assert.Equal(t, 2000.0, next.PRFHz[0])
}

func TestConfigPublisher_AssignsMonotonicIDs(t *testing.T) {
	ring := NewConfigRing(4)
	pub := NewConfigPublisher(ring)

	id0 := pub.Publish(Config{WaveformName: "a"})
	id1 := pub.Publish(Config{WaveformName: "b"})
	assert.Equal(t, uint32(0), id0)
	assert.Equal(t, uint32(1), id1)

	slot := ring.Slot(id1)
	assert.Equal(t, "b", slot.Config.WaveformName)
	assert.True(t, slot.StatusValue().Has(StatusReady))
}

func TestConfigKeyScanType_Applies(t *testing.T) {
	cfg := NewConfigBuilder(nil).Apply(
		ConfigUpdate{Key: ConfigKeyScanType, ScanType: ScanRHI},
	).Build()
	assert.Equal(t, ScanRHI, cfg.ScanType)
}
