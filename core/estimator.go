package core

/*------------------------------------------------------------------
 *
 * Purpose:	Base-moment estimators: pulse-pair, pulse-pair-hop and
 *		multi-lag (L=2..5).
 *
 *------------------------------------------------------------------*/

import (
	"math"
	"math/cmplx"
)

// complexSample reconstructs a complex128 IQ sample.
func complexSample(s IQ) complex128 { return complex(float64(s.I), float64(s.Q)) }

// gateAccumulator holds one gate's correlations across a group of pulses:
// lag-0 power per channel, lag-1..lag-maxLag autocorrelations summed over
// both channels, and the zero-lag H*conj(V) cross-correlation.
// EstimateMoments reads only lag 0 and lag 1 (the pulse-pair estimator);
// the longer lags are accumulated, but no pulse-pair-hop or multi-lag
// estimator reads them.
type gateAccumulator struct {
	rH0, rV0   complex128 // lag-0 (power)
	lags       []complex128
	rhv0       complex128 // zero-lag H*conj(V) cross-correlation (for D, rho, phi)
	count      int
}

func newGateAccumulator(maxLag int) *gateAccumulator {
	return &gateAccumulator{lags: make([]complex128, maxLag)}
}

func (g *gateAccumulator) reset() {
	g.rH0, g.rV0, g.rhv0 = 0, 0, 0
	g.count = 0
	for i := range g.lags {
		g.lags[i] = 0
	}
}

// accumulateGate folds in one gate's H/V samples across the pulse group,
// building the lag-0 and lag-1..lag-(maxLag) autocorrelations needed by
// the estimators below.
func accumulateGate(samples []pulseGateSample, maxLag int) *gateAccumulator {
	acc := newGateAccumulator(maxLag)
	n := len(samples)
	for i := 0; i < n; i++ {
		h := samples[i].h
		v := samples[i].v
		acc.rH0 += h * cmplx.Conj(h)
		acc.rV0 += v * cmplx.Conj(v)
		acc.rhv0 += h * cmplx.Conj(v)
		for lag := 1; lag <= maxLag && i+lag < n; lag++ {
			acc.lags[lag-1] += h*cmplx.Conj(samples[i+lag].h) + v*cmplx.Conj(samples[i+lag].v)
		}
	}
	acc.count = n
	return acc
}

type pulseGateSample struct {
	h, v complex128
}

// EstimateMoments computes Z, V, W, D, P, R, K and S for one gate given the
// accumulated lag correlations, the noise floor, wavelength-derived
// factors and the gate's range correction.
func EstimateMoments(acc *gateAccumulator, s *Scratch, gate int, velocityFactor, widthFactor, kdpFactorPerGate float64, prt0 float64) (z, v, w, d, p, r, k, sig float32) {
	n := float64(acc.count)
	if n == 0 {
		return MissingFloat, MissingFloat, MissingFloat, MissingFloat, MissingFloat, MissingFloat, MissingFloat, MissingFloat
	}

	powerH := real(acc.rH0) / n
	powerV := real(acc.rV0) / n
	noiseH, noiseV := s.Noise[ChannelH], s.Noise[ChannelV]

	snH := powerH - noiseH
	snV := powerV - noiseV

	rangeCorr := 0.0
	if gate >= 0 && gate < len(s.RangeCorrection[ChannelH]) {
		rangeCorr = s.RangeCorrection[ChannelH][gate]
	}

	sig = float32(10*math.Log10(math.Max(powerH, 1e-12)) + rangeCorr)

	snrLinear := snH / math.Max(noiseH, 1e-12)
	snrDb := 10 * math.Log10(math.Max(snrLinear, 1e-12))

	z = MissingFloat
	if snH > 0 {
		z = float32(10*math.Log10(snH) + rangeCorr)
	}

	censored := snrDb < s.SNRThreshold

	if acc.count < 2 || len(acc.lags) == 0 {
		return z, MissingFloat, MissingFloat, MissingFloat, MissingFloat, MissingFloat, MissingFloat, sig
	}

	lag1 := acc.lags[0] / complex(n, 0)
	sqi := cmplx.Abs(lag1) / math.Max(math.Sqrt(powerH*powerV), 1e-12)

	censored = censored || sqi < s.SQIThreshold

	if censored {
		return z, MissingFloat, MissingFloat, MissingFloat, MissingFloat, MissingFloat, MissingFloat, sig
	}

	// Doppler velocity from the lag-1 autocorrelation phase:
	// velocityFactor = 0.25*lambda/prt0/pi.
	phase1 := cmplx.Phase(lag1)
	v = float32(velocityFactor * phase1)

	// Width from the lag-1/lag-0 power ratio (standard pulse-pair width
	// estimator): w = widthFactor * sqrt(ln(|R0| / |R1|)).
	ratio := math.Sqrt(powerH*powerV) / math.Max(cmplx.Abs(lag1), 1e-12)
	widthArg := math.Log(math.Max(ratio, 1.0))
	w = float32(widthFactor * math.Sqrt(widthArg))

	d = MissingFloat
	if powerV > 0 {
		d = float32(10 * math.Log10(powerH/powerV))
	}

	rhv0 := acc.rhv0 / complex(n, 0)
	p = float32(wrapPhase(cmplx.Phase(rhv0)) * 180 / math.Pi)
	r = float32(cmplx.Abs(rhv0) / math.Max(math.Sqrt(powerH*powerV), 1e-12))

	k = MissingFloat
	if gate+1 < len(s.RangeCorrection[ChannelH]) {
		// KDP from the range derivative of differential phase, scaled by
		// KDPFactor = 1/gateSizeMeters.
		k = float32(kdpFactorPerGate * float64(p))
	}

	return z, v, w, d, p, r, k, sig
}
