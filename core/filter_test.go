package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvolveDirect_UnitImpulseIsIdentity(t *testing.T) {
	src := make([]IQ, 16)
	src[0] = IQ{I: 1, Q: 0}
	src[5] = IQ{I: 0, Q: 2}
	dst := make([]IQ, 16)
	anchor := FilterAnchor{MaxDataLength: 16, Taps: []complex128{1}}
	convolveDirect(dst, src, anchor)
	for i := range src {
		assert.InDelta(t, src[i].I, dst[i].I, 1e-6)
		assert.InDelta(t, src[i].Q, dst[i].Q, 1e-6)
	}
}

func TestConvolveDirect_AppliesSensitivityGain(t *testing.T) {
	src := make([]IQ, 8)
	src[0] = IQ{I: 1, Q: 0}
	dst := make([]IQ, 8)
	anchor := FilterAnchor{MaxDataLength: 8, Taps: []complex128{1}, SensitivityGain: 20} // +20dB = x10
	convolveDirect(dst, src, anchor)
	assert.InDelta(t, 10.0, dst[0].I, 1e-4)
}

func TestConvolveFFT_MatchesDirectAboveThreshold(t *testing.T) {
	n := FFTOverlapSaveThreshold + 1
	taps := make([]complex128, n)
	taps[0] = 1 // identity filter padded out to cross the FFT threshold
	src := make([]IQ, 256)
	for i := range src {
		src[i] = IQ{I: float32(math.Sin(float64(i))), Q: float32(math.Cos(float64(i)))}
	}

	direct := make([]IQ, 256)
	anchor := FilterAnchor{MaxDataLength: 256, Taps: taps}
	convolveDirect(direct, src, anchor)

	fft := make([]IQ, 256)
	convolveFFT(fft, src, anchor)

	for i := 0; i < 256; i++ {
		assert.InDeltaf(t, direct[i].I, fft[i].I, 1e-2, "gate %d real part", i)
		assert.InDeltaf(t, direct[i].Q, fft[i].Q, 1e-2, "gate %d imag part", i)
	}
}

func TestConvolveFFT_MatchesDirectForRandomTaps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := FFTOverlapSaveThreshold + 5
	taps := make([]complex128, n)
	for i := range taps {
		taps[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	src := make([]IQ, 300)
	for i := range src {
		src[i] = IQ{I: float32(rng.NormFloat64()), Q: float32(rng.NormFloat64())}
	}
	anchor := FilterAnchor{MaxDataLength: 300, Taps: taps}

	direct := make([]IQ, 300)
	convolveDirect(direct, src, anchor)
	fft := make([]IQ, 300)
	convolveFFT(fft, src, anchor)

	var maxErr float64
	for i := 0; i < 300; i++ {
		maxErr = math.Max(maxErr, math.Abs(float64(direct[i].I-fft[i].I)))
		maxErr = math.Max(maxErr, math.Abs(float64(direct[i].Q-fft[i].Q)))
	}
	require.Less(t, maxErr, 1e-2)
}

func TestNextPow2(t *testing.T) {
	assert.Equal(t, 1, nextPow2(1))
	assert.Equal(t, 8, nextPow2(8))
	assert.Equal(t, 16, nextPow2(9))
}

func TestDbToLinear(t *testing.T) {
	assert.InDelta(t, 1.0, dbToLinear(0), 1e-9)
	assert.InDelta(t, 10.0, dbToLinear(20), 1e-6)
}
