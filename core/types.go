// Package core implements the pulse-to-ray moment pipeline: the ring
// buffers and the four cooperating engines (pulse compressor, position
// tagger, moment computer, sweep assembler) that turn a stream of raw
// pulses and an independent stream of position samples into a stream of
// rays grouped into sweeps.
package core

import (
	"math"
	"time"
)

// SIMDAlignSize is the minimum byte alignment required for pulse and ray
// sample storage, matching the original RKSIMDAlignSize (AVX-256 = 32
// bytes; AVX-512 headroom rounds this to 64).
const SIMDAlignSize = 64

// MaxFilterAnchors bounds the number of matched-filter anchors a single
// waveform may define (F <= 8 in practice).
const MaxFilterAnchors = 8

// MissingFloat is the sentinel written into a censored gate.
const MissingFloat = float32(-math.MaxFloat32)

// PulseStatus is a monotone lattice: a pulse becomes visible to stage S+1
// only once its status bitset is at least the bit required by S+1.
type PulseStatus uint32

const (
	// StatusVacant means the slot has been reclaimed by the producer and
	// carries no valid data yet.
	StatusVacant PulseStatus = 0
	// StatusHasIQData is set once the transceiver delegate has written raw
	// samples into the slot.
	StatusHasIQData PulseStatus = 1 << iota
	// StatusHasPosition is set once the Position Tagger has interpolated
	// azimuth/elevation onto the pulse.
	StatusHasPosition
	// StatusCompressed is set once the Pulse Compressor has matched-filtered
	// the pulse in place.
	StatusCompressed
	// StatusProcessed marks a pulse consumed by the Moment Engine.
	StatusProcessed
	// StatusReady is the terminal state: every downstream consumer may read
	// the slot.
	StatusReady
	// StatusTagged is a diagnostic bit (not part of the monotone chain) set
	// by the Position Tagger regardless of whether a bracketing position
	// was found, to distinguish "tagger visited this pulse" from "tagger
	// produced a position" when diagnosing drops.
	StatusTagged
)

// Has reports whether every bit of want is present in s.
func (s PulseStatus) Has(want PulseStatus) bool { return s&want == want }

// ScanType identifies the geometry a sweep or position sample belongs to.
type ScanType uint8

const (
	ScanPPI ScanType = iota
	ScanRHI
	ScanVolume
)

// Marker is the sweep/volume bitfield carried on positions and propagated
// to the first pulse on or after the marked position.
type Marker uint16

const (
	MarkerPPI Marker = 1 << iota
	MarkerRHI
	MarkerSweepBegin
	MarkerSweepEnd
	MarkerVolumeBegin
	MarkerVolumeEnd
)

// WallTime is a (seconds, microseconds) pair, matching the original
// RKPulseHeader's timeSec/timeUSec/timeDouble triple. Double carries the
// float64 representation used throughout the pipeline's hot arithmetic;
// Sec/USec exist for the on-disk and NetCDF representations.
type WallTime struct {
	Sec    uint32
	USec   uint32
	Double float64
}

// WallTimeFromDouble builds a WallTime from a float64 Unix timestamp.
func WallTimeFromDouble(t float64) WallTime {
	sec := math.Floor(t)
	return WallTime{
		Sec:    uint32(sec),
		USec:   uint32(math.Round((t - sec) * 1e6)),
		Double: t,
	}
}

// Time converts the wall time to a time.Time in UTC.
func (w WallTime) Time() time.Time {
	return time.Unix(int64(w.Sec), int64(w.USec)*1000).UTC()
}

// IQ is one complex raw or compressed sample, mirroring the original
// RKInt16/RKFloat pair-of-numbers layout.
type IQ struct {
	I float32
	Q float32
}

// Channel indices into a Pulse's two interleaved I/Q channels.
const (
	ChannelH = 0
	ChannelV = 1
)

// PulseHeader is the fixed, SIMD-alignment-friendly header carried by every
// pulse slot. Field names follow the original RKPulseHeader (RadarKit.h) to
// keep the on-disk layout recognizable.
type PulseHeader struct {
	Status         PulseStatus
	ID             uint32 // monotonic all-time sequence number
	Tic            uint64 // free-running hardware tick counter
	Time           WallTime
	ConfigIndex    uint32
	GateCount      uint16
	GateSizeMeters float32
	AzimuthDegrees float32
	ElevationDegrees float32
	Marker         Marker
	ScanType       ScanType
	PRFHz          float32
}

// Pulse is a fixed-capacity record: a header followed by two interleaved
// I/Q channels (H, V) of capacity G complex samples. The sample arrays are
// preallocated to the ring's configured gate capacity; a live pulse's
// GateCount in its header may be <= cap(Samples[ch]).
type Pulse struct {
	Header  PulseHeader
	Samples [2][]IQ // [ChannelH][gate], [ChannelV][gate]
}

// Reset clears a pulse back to the Vacant state while retaining its
// preallocated sample backing arrays, matching GetVacant's "bump id, clear
// status" contract.
func (p *Pulse) Reset(nextID uint32) {
	p.Header = PulseHeader{Status: StatusVacant, ID: nextID}
}

// Position is a pedestal angular fix.
type Position struct {
	ID              uint32
	Tic             uint64
	Time            WallTime
	AzimuthDegrees  float32
	ElevationDegrees float32
	VelocityDps     float32
	Marker          Marker
	ScanType        ScanType
}

// FilterAnchor describes one matched filter's placement within a pulse's
// gates.
type FilterAnchor struct {
	InputOrigin          int
	OutputOrigin         int
	MaxDataLength        int
	SubCarrierFrequency  float64
	SensitivityGain      float64
	Taps                 []complex128
}

// Waveform is 1..F filter anchors sharing a name.
type Waveform struct {
	Name    string
	Anchors []FilterAnchor
}

// FilterCalibration carries the per-filter, per-channel calibration
// constants used by rangeCorrection.
type FilterCalibration struct {
	ZCal [2]float64 // indexed by channel (H, V)
	DCal float64
	PCal float64
}

// Config is an append-only snapshot of slowly-varying radar parameters. A
// new Config is always produced from the previous one plus a set of
// overrides via ConfigBuilder (core/config.go).
type Config struct {
	ID    uint32
	PRFHz []float64
	SPRT  float64 // staggered-PRT ratio, 0 if not staggered

	WaveformName string

	NoiseH, NoiseV float64

	SystemZCal [2]float64 // indexed by channel
	FilterCal  []FilterCalibration

	SNRThreshold float64
	SQIThreshold float64

	SweepAzimuthDegrees   float64
	SweepElevationDegrees float64
	ScanType              ScanType

	PulseToRayRatio int
	GateSizeMeters  float64

	StartMarker Marker
}

// Product identifies one base-moment array stored in a Ray.
type Product int

const (
	ProductZ Product = iota // reflectivity
	ProductV                // Doppler velocity
	ProductW                // spectrum width
	ProductD                // differential reflectivity
	ProductP                // differential phase
	ProductR                // correlation coefficient
	ProductK                // specific differential phase
	ProductS                // raw signal power
	productCount
)

// ProductPresence is a bitmap of which products a Ray carries.
type ProductPresence uint16

func (p ProductPresence) Has(prod Product) bool { return p&(1<<uint(prod)) != 0 }

func presenceWith(prod Product) ProductPresence { return 1 << uint(prod) }

// RayHeader is the per-ray header, following the original RKRayHeader
// naming for start/end time & id fields.
type RayHeader struct {
	ID                      uint32
	Status                  PulseStatus
	ConfigIndex             uint32
	StartTime, EndTime       WallTime
	StartAzimuth, EndAzimuth float32
	StartElevation, EndElevation float32
	GateCount      int
	GateSizeMeters float32
	Presence       ProductPresence
	ScanType       ScanType
	Marker         Marker
}

// Ray is the Moment Engine's output unit: a header plus one float array per
// defined product, each sized to the ray's gate count.
type Ray struct {
	Header RayHeader
	Data   [productCount][]float32
}

// EstimatorKind selects which moment estimator a ray is computed with.
type EstimatorKind int

const (
	EstimatorPulsePair EstimatorKind = iota
	EstimatorPulsePairHop
	EstimatorMultiLag2
	EstimatorMultiLag3
	EstimatorMultiLag4
	EstimatorMultiLag5
)
