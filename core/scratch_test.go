package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPhase_StaysWithinRange(t *testing.T) {
	cases := []float64{0, math.Pi, -math.Pi, 3 * math.Pi, -3 * math.Pi, 0.5}
	for _, p := range cases {
		w := wrapPhase(p)
		assert.GreaterOrEqualf(t, w, -math.Pi, "wrapPhase(%v) = %v", p, w)
		assert.Lessf(t, w, math.Pi, "wrapPhase(%v) = %v", p, w)
	}
}

func TestWrapPhase_PreservesAngleModulo2Pi(t *testing.T) {
	p := 5.5
	w := wrapPhase(p)
	diff := math.Mod(p-w, 2*math.Pi)
	if diff > math.Pi {
		diff -= 2 * math.Pi
	}
	assert.InDelta(t, 0, diff, 1e-9)
}

func TestSamplingAdjustment(t *testing.T) {
	// gateSizeMeters == 150*pulseToRayRatio makes the log term vanish.
	got := samplingAdjustment(300, 2)
	assert.InDelta(t, 60.0, got, 1e-9)
}

func TestRangeCorrectionValue_ClampsNonPositiveGateToOne(t *testing.T) {
	a := rangeCorrectionValue(0, 150, 0, 0, 0, 0)
	b := rangeCorrectionValue(1, 150, 0, 0, 0, 0)
	assert.Equal(t, a, b)
}

func TestScratch_DeriveFactors(t *testing.T) {
	s := NewScratch(16)
	lambda := wavelengthMeters(2.8e9)
	s.DeriveFactors(lambda, 1e-3, 150)
	assert.InDelta(t, 0.25*lambda/1e-3/math.Pi, s.VelocityFactor, 1e-9)
	assert.InDelta(t, lambda/(1e-3*2*math.Sqrt2*math.Pi), s.WidthFactor, 1e-9)
	assert.InDelta(t, 1.0/150, s.KDPFactor, 1e-9)
}

func TestScratch_Calibrate_PopulatesRangeCorrectionAcrossAnchorSpan(t *testing.T) {
	s := NewScratch(32)
	cfg := &Config{
		GateSizeMeters: 150,
		SystemZCal:     [2]float64{1, 2},
		FilterCal:      []FilterCalibration{{ZCal: [2]float64{0.5, 0.5}, DCal: 0.1, PCal: 4 * math.Pi}},
	}
	waveform := &Waveform{Anchors: []FilterAnchor{{OutputOrigin: 2, MaxDataLength: 10}}}
	s.Calibrate(cfg, waveform, 32, 1)

	assert.NotZero(t, s.RangeCorrection[ChannelH][2])
	assert.Zero(t, s.RangeCorrection[ChannelH][0], "gates before OutputOrigin should be untouched")
	assert.InDelta(t, 0.1, s.DCalTable[5], 1e-9)
	// PCal of 4*pi should have been wrapped into [-pi, pi).
	assert.InDelta(t, 0, s.PCalTable[5], 1e-6)
}

func TestScratch_Calibrate_MapsAnchorSpanByPulseToRayRatio(t *testing.T) {
	// Two anchors partition a 64-gate pulse in pulse-native units; at
	// ratio 2 the ray only has 32 gates, so each anchor's span must be
	// divided by the ratio before indexing the ray-gate tables.
	s := NewScratch(32)
	cfg := &Config{
		GateSizeMeters: 150,
		SystemZCal:     [2]float64{1, 2},
		FilterCal: []FilterCalibration{
			{ZCal: [2]float64{0.5, 0.5}, DCal: 0.1, PCal: 0},
			{ZCal: [2]float64{0.7, 0.7}, DCal: 0.9, PCal: 0},
		},
	}
	waveform := &Waveform{Anchors: []FilterAnchor{
		{OutputOrigin: 0, MaxDataLength: 32},
		{OutputOrigin: 32, MaxDataLength: 32},
	}}
	s.Calibrate(cfg, waveform, 32, 2)

	assert.InDelta(t, 0.1, s.DCalTable[10], 1e-9, "first anchor covers ray gates [0,16)")
	assert.InDelta(t, 0.9, s.DCalTable[20], 1e-9, "second anchor covers ray gates [16,32), not left at zero")
}

func TestWavelengthMeters_ZeroFrequency(t *testing.T) {
	assert.Equal(t, 0.0, wavelengthMeters(0))
}
