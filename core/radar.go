package core

/*------------------------------------------------------------------
 *
 * Purpose:	Radar wires the ring buffers and the four engines into one
 *		fixed-topology pipeline and owns their lifecycle. Engines
 *		are constructed from an immutable descriptor and never call
 *		back into the radar object on the data path.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
)

// RadarDesc is the immutable descriptor every engine is constructed from.
// It mirrors the subset of the original RKRadarDesc that sizes the rings
// and worker pools.
type RadarDesc struct {
	Name   string
	Prefix string

	PulseBufferDepth    uint32
	PositionBufferDepth uint32
	ConfigBufferDepth   uint32
	RayBufferDepth      uint32

	PulseGateCapacity int
	PulseToRayRatio   int

	CompressorWorkerCount int
	MomentWorkerCount     int

	LatitudeDegrees  float64
	LongitudeDegrees float64
	HeadingDegrees   float64
	HeightMeters     float64
}

// DefaultRadarDesc mirrors the original's RKRadarDesc defaults closely
// enough to boot a demonstration pipeline (cmd/rkradar, cmd/rkgen) without a
// config file.
func DefaultRadarDesc() RadarDesc {
	return RadarDesc{
		Name:                  "radarkit",
		Prefix:                "PX",
		PulseBufferDepth:      2000,
		PositionBufferDepth:   8000,
		ConfigBufferDepth:     16,
		RayBufferDepth:        200,
		PulseGateCapacity:     4096,
		PulseToRayRatio:       1,
		CompressorWorkerCount: 4,
		MomentWorkerCount:     2,
	}
}

// Radar owns every ring, every engine, the process-wide logging holder and
// the hardware delegates, and drives their lifecycle in a fixed order.
type Radar struct {
	Desc RadarDesc
	Proc *Process

	Pulses    *Ring[*Pulse]
	Positions *Ring[*PositionSlot]
	Configs   *Ring[*ConfigSlot]
	Rays      *Ring[*Ray]
	Sweeps    *Ring[*SweepSlot]

	ConfigPublisher *ConfigPublisher

	// PulseClock and PositionClock are two independent clock aligners:
	// alignment between the transceiver's and the pedestal's free-running
	// tick counters happens post-facto at the Tagger, so each hardware
	// source gets its own aligner.
	PulseClock    *ClockAligner
	PositionClock *ClockAligner

	Compressor *Compressor
	Tagger     *Tagger
	Moment     *Moment
	Sweeper    *SweepAssembler

	Transceiver Transceiver
	Pedestal    Pedestal
	HealthRelay HealthRelay

	waveforms map[string]*Waveform

	cancel context.CancelFunc
	active bool
}

// NewRadar allocates every ring and wires the four engines into their fixed
// topology. waveforms resolves a config's active waveform name to its
// filter anchors; emit receives completed rays; sink receives completed
// sweeps (the external NetCDF writer collaborator, out of scope here).
func NewRadar(desc RadarDesc, proc *Process, waveforms map[string]*Waveform, emit RayEmitter, sink SweepSink) (*Radar, error) {
	if desc.PulseBufferDepth == 0 || desc.RayBufferDepth == 0 {
		return nil, fmt.Errorf("radarkit: radar: zero ring depth in descriptor")
	}
	if desc.CompressorWorkerCount <= 0 || desc.MomentWorkerCount <= 0 {
		return nil, fmt.Errorf("radarkit: radar: zero worker count in descriptor")
	}

	r := &Radar{Desc: desc, Proc: proc, waveforms: waveforms}

	r.Pulses = NewPulseRing(desc.PulseBufferDepth, desc.PulseGateCapacity)
	r.Positions = NewPositionRing(desc.PositionBufferDepth)
	r.Configs = NewConfigRing(desc.ConfigBufferDepth)
	r.Rays = NewRayRing(desc.RayBufferDepth, desc.PulseGateCapacity, desc.PulseToRayRatio)
	r.Sweeps = NewSweepRing()

	r.ConfigPublisher = NewConfigPublisher(r.Configs)
	r.PulseClock = NewClockAligner()
	r.PositionClock = NewClockAligner()

	waveformLookup := func(name string) (*Waveform, bool) {
		w, ok := r.waveforms[name]
		return w, ok
	}
	configLookup := func(index uint32) (*Config, bool) {
		slot := r.Configs.Slot(index)
		if !slot.StatusValue().Has(StatusReady) {
			return nil, false
		}
		cfg := slot.Config
		return &cfg, true
	}

	r.Compressor = NewCompressor(r.Pulses, desc.CompressorWorkerCount, waveformLookup, configLookup, proc)
	r.Tagger = NewTagger(r.Pulses, r.Positions, proc)
	r.Moment = NewMoment(r.Pulses, r.Rays, desc.MomentWorkerCount, configLookup, waveformLookup, emit, proc)
	r.Sweeper = NewSweepAssembler(r.Rays, r.Sweeps, sink, proc)

	return r, nil
}

// Start launches every engine, then initializes the hardware delegates.
// Engine start order does not matter for correctness (each engine only
// reads rings another engine publishes into, and every ring starts empty),
// but the engines come up before the delegates that feed them so the
// pipeline is warm the instant the first pulse lands.
func (r *Radar) Start(ctx context.Context) error {
	if r.active {
		return fmt.Errorf("radarkit: radar: already active")
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.Compressor.Start(ctx)
	r.Tagger.Start(ctx)
	r.Moment.Start(ctx)
	r.Sweeper.Start(ctx)

	if r.Transceiver != nil {
		if err := r.Transceiver.Init(r); err != nil {
			r.Stop()
			return fmt.Errorf("radarkit: radar: transceiver init: %w", err)
		}
	}
	if r.Pedestal != nil {
		if err := r.Pedestal.Init(r); err != nil {
			r.Stop()
			return fmt.Errorf("radarkit: radar: pedestal init: %w", err)
		}
	}
	if r.HealthRelay != nil {
		if err := r.HealthRelay.Init(r); err != nil {
			r.Stop()
			return fmt.Errorf("radarkit: radar: health relay init: %w", err)
		}
	}

	r.active = true
	return nil
}

// Stop joins every engine in reverse dependency order: sink → sweep →
// moment → tagger → compressor. Calling Stop twice is idempotent; a
// repeated call returns a distinct already-deactivated error.
func (r *Radar) Stop() error {
	if !r.active {
		return errAlreadyDeactivated
	}
	if r.Transceiver != nil {
		r.Transceiver.Free()
	}
	if r.Pedestal != nil {
		r.Pedestal.Free()
	}
	if r.HealthRelay != nil {
		r.HealthRelay.Free()
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.Sweeper.Stop()
	r.Moment.Stop()
	r.Tagger.Stop()
	r.Compressor.Stop()
	r.active = false
	return nil
}

// errAlreadyDeactivated is the sentinel returned on a repeated Stop.
var errAlreadyDeactivated = fmt.Errorf("radarkit: radar: already deactivated")

// LoadWaveform registers w under its own name so the compressor and moment
// engine can resolve it from a config (`t w <name>`).
func (r *Radar) LoadWaveform(w *Waveform) {
	if r.waveforms == nil {
		r.waveforms = make(map[string]*Waveform)
	}
	r.waveforms[w.Name] = w
}
