package core

/*------------------------------------------------------------------
 *
 * Purpose:	Matched-filter convolution kernels used by the Pulse
 *		Compressor. Direct FIR for short filters; FFT-overlap-save
 *		for long ones.
 *
 *------------------------------------------------------------------*/

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTOverlapSaveThreshold is the tap count above which the compressor uses
// FFT-overlap-save instead of direct FIR.
const FFTOverlapSaveThreshold = 64

// convolveDirect computes the matched-filter convolution of a complex
// pulse channel against one anchor's taps over
// [inputOrigin, inputOrigin+maxDataLength), writing the gain-normalized
// result into dst[outputOrigin:outputOrigin+maxDataLength).
func convolveDirect(dst []IQ, src []IQ, anchor FilterAnchor) {
	taps := anchor.Taps
	n := len(taps)
	gain := anchor.SensitivityGain
	for g := 0; g < anchor.MaxDataLength; g++ {
		out := anchor.OutputOrigin + g
		if out < 0 || out >= len(dst) {
			continue
		}
		var acc complex128
		for k := 0; k < n; k++ {
			si := anchor.InputOrigin + g - k
			if si < 0 || si >= len(src) {
				continue
			}
			s := complex(float64(src[si].I), float64(src[si].Q))
			acc += s * taps[k]
		}
		acc *= complexGain(gain)
		dst[out] = IQ{I: float32(real(acc)), Q: float32(imag(acc))}
	}
}

func complexGain(db float64) complex128 {
	// sensitivityGain is specified in dB in the filter anchor; apply as a
	// linear multiplier on the convolved magnitude.
	return complex(dbToLinear(db), 0)
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// convolveFFT performs FFT-overlap-save convolution for filters whose tap
// count crosses FFTOverlapSaveThreshold.
//
// fftSize is the next power of two at or above the tap count plus
// MaxDataLength, so each segment yields block = fftSize-(n-1) output
// samples free of circular wrap; the overlap-save discipline keeps only
// those last (block) output samples of each transformed segment.
func convolveFFT(dst []IQ, src []IQ, anchor FilterAnchor) {
	taps := anchor.Taps
	n := len(taps)
	fftSize := nextPow2(n + anchor.MaxDataLength)
	block := fftSize - (n - 1)
	if block <= 0 {
		convolveDirect(dst, src, anchor)
		return
	}

	fft := fourier.NewCmplxFFT(fftSize)

	tapBuf := make([]complex128, fftSize)
	copy(tapBuf, taps)
	tapSpec := fft.Coefficients(nil, tapBuf)

	gain := complexGain(anchor.SensitivityGain)

	inBuf := make([]complex128, fftSize)
	outBuf := make([]complex128, fftSize)

	for blockStart := 0; blockStart < anchor.MaxDataLength; blockStart += block {
		for i := range inBuf {
			inBuf[i] = 0
		}
		// Each segment carries n-1 samples of history ahead of the block
		// being produced, the overlap-save history window.
		segStart := anchor.InputOrigin + blockStart - (n - 1)
		for i := 0; i < fftSize; i++ {
			si := segStart + i
			if si >= 0 && si < len(src) {
				inBuf[i] = complex(float64(src[si].I), float64(src[si].Q))
			}
		}
		spec := fft.Coefficients(nil, inBuf)
		for i := range spec {
			spec[i] *= tapSpec[i]
		}
		seq := fft.Sequence(outBuf, spec)

		kept := block
		if blockStart+kept > anchor.MaxDataLength {
			kept = anchor.MaxDataLength - blockStart
		}
		for i := 0; i < kept; i++ {
			out := anchor.OutputOrigin + blockStart + i
			if out < 0 || out >= len(dst) {
				continue
			}
			v := seq[n-1+i] * gain / complex(float64(fftSize), 0)
			dst[out] = IQ{I: float32(real(v)), Q: float32(imag(v))}
		}
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Convolve dispatches to the direct or FFT path based on tap count.
func Convolve(dst, src []IQ, anchor FilterAnchor) {
	if len(anchor.Taps) > FFTOverlapSaveThreshold {
		convolveFFT(dst, src, anchor)
		return
	}
	convolveDirect(dst, src, anchor)
}
