package core

/*------------------------------------------------------------------
 *
 * Purpose:	Per-worker scratch space: calibration tables and
 *		accumulators used by the Moment Engine's estimators.
 *		Thread-local; never shared.
 *
 *------------------------------------------------------------------*/

import "math"

// Scratch is allocated once per moment worker and reused across rays.
type Scratch struct {
	RangeCorrection [2][]float64 // per channel, indexed by gate
	DCalTable       []float64    // differential reflectivity calibration, by gate
	PCalTable       []float64    // differential phase calibration, by gate (wrapped to [-pi, pi))

	Noise [2]float64

	SNRThreshold float64
	SQIThreshold float64

	VelocityFactor float64
	WidthFactor    float64
	KDPFactor      float64

	// lag accumulators reused across rays to avoid per-ray allocation.
	lagR  []complex128
	lagR1 []complex128
}

// NewScratch allocates a scratch buffer sized for gateCount gates.
func NewScratch(gateCount int) *Scratch {
	return &Scratch{
		RangeCorrection: [2][]float64{make([]float64, gateCount), make([]float64, gateCount)},
		DCalTable:       make([]float64, gateCount),
		PCalTable:       make([]float64, gateCount),
		lagR:            make([]complex128, gateCount),
		lagR1:           make([]complex128, gateCount),
	}
}

// wavelengthMeters derives lambda from a subcarrier / operating frequency in
// Hz. RadarKit's waveform anchors carry subCarrierFrequency in Hz; c is the
// speed of light.
const speedOfLight = 299792458.0

func wavelengthMeters(frequencyHz float64) float64 {
	if frequencyHz == 0 {
		return 0
	}
	return speedOfLight / frequencyHz
}

// DeriveFactors computes velocityFactor, widthFactor and KDPFactor from the
// active config and waveform:
//
//	velocityFactor = 0.25 * lambda / prt0 / pi
//	widthFactor    = lambda / (prt0 * 2 * sqrt(2) * pi)
//	KDPFactor      = 1 / gateSizeMeters
func (s *Scratch) DeriveFactors(lambda, prt0, gateSizeMeters float64) {
	s.VelocityFactor = 0.25 * lambda / prt0 / math.Pi
	s.WidthFactor = lambda / (prt0 * 2 * math.Sqrt2 * math.Pi)
	if gateSizeMeters != 0 {
		s.KDPFactor = 1 / gateSizeMeters
	}
}

// samplingAdjustment computes the dB adjustment for a filter's gate size
// and pulse-to-ray decimation ratio relative to a 150m reference:
//
//	samplingAdjustment = 10*log10(gateSizeMeters / (150 * pulseToRayRatio)) + 60
func samplingAdjustment(gateSizeMeters float64, pulseToRayRatio int) float64 {
	return 10*math.Log10(gateSizeMeters/(150*float64(pulseToRayRatio))) + 60
}

// rangeCorrectionValue computes the per-gate, per-channel range correction:
//
//	rangeCorrection(channel, gate) = 20*log10(gate*gateSizeMeters) + systemZCal[ch]
//	    + ZCal[filter][ch] - filterAnchor[filter].sensitivityGain - samplingAdjustment
func rangeCorrectionValue(gate int, gateSizeMeters float64, systemZCal, filterZCal, sensitivityGain, adjustment float64) float64 {
	if gate <= 0 {
		gate = 1
	}
	return 20*math.Log10(float64(gate)*gateSizeMeters) + systemZCal + filterZCal - sensitivityGain - adjustment
}

// Calibrate populates the range-correction, differential-reflectivity and
// differential-phase tables across each filter anchor's span. An anchor's
// OutputOrigin/MaxDataLength are expressed in the pulse's own (pre-ratio)
// gate units, while gateCount and every table here are indexed in ray gates,
// so the anchor span is divided by pulseToRayRatio before use -- the same
// ratio computeRay applies in the other direction when it samples a pulse's
// gate for a given ray gate.
func (s *Scratch) Calibrate(cfg *Config, waveform *Waveform, gateCount int, pulseToRayRatio int) {
	adj := samplingAdjustment(cfg.GateSizeMeters, pulseToRayRatio)
	for fi, anchor := range waveform.Anchors {
		if fi >= len(cfg.FilterCal) {
			break
		}
		cal := cfg.FilterCal[fi]
		start := anchor.OutputOrigin / pulseToRayRatio
		end := (anchor.OutputOrigin + anchor.MaxDataLength) / pulseToRayRatio
		if end > gateCount {
			end = gateCount
		}
		for gate := start; gate < end; gate++ {
			for ch := 0; ch < 2; ch++ {
				s.RangeCorrection[ch][gate] = rangeCorrectionValue(
					gate, cfg.GateSizeMeters, cfg.SystemZCal[ch], cal.ZCal[ch], anchor.SensitivityGain, adj)
			}
			s.DCalTable[gate] = cal.DCal
			s.PCalTable[gate] = wrapPhase(cal.PCal)
		}
	}
	s.SNRThreshold = cfg.SNRThreshold
	s.SQIThreshold = cfg.SQIThreshold
	s.Noise = cfg.NoiseH_V()
}

// NoiseH_V is a convenience accessor kept close to the original's
// noise[2] layout (H then V).
func (c *Config) NoiseH_V() [2]float64 { return [2]float64{c.NoiseH, c.NoiseV} }

// wrapPhase wraps a phase in radians to [-pi, pi).
func wrapPhase(p float64) float64 {
	p = math.Mod(p+math.Pi, 2*math.Pi)
	if p < 0 {
		p += 2 * math.Pi
	}
	return p - math.Pi
}
