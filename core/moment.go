package core

/*------------------------------------------------------------------
 *
 * Purpose:	For each contiguous group of Ready pulses belonging to one
 *		azimuth (PPI) or elevation (RHI) bin, compute the base
 *		moments and emit a Ray.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
)

// MaxPulsesPerRay bounds a ray's pulse group.
const MaxPulsesPerRay = 2048

// MinPulsesPerRay is the smallest group the engine will emit a ray for;
// fewer pulses than this is suppressed rather than emitted as a ray.
const MinPulsesPerRay = 3

// binIndex computes the ray-boundary bin for the given scan type.
func binIndex(scanType ScanType, azimuthDegrees, elevationDegrees float32) int {
	switch scanType {
	case ScanPPI:
		return int(math.Floor(float64(azimuthDegrees)))
	case ScanRHI:
		return int(math.Floor(float64(elevationDegrees)))
	default: // volume scan
		return 360*int(math.Floor(float64(elevationDegrees)-0.25)) + int(math.Floor(float64(azimuthDegrees)))
	}
}

// MomentWorker owns one scratch buffer and a queue of pulse groups to
// process.
type MomentWorker struct {
	id      int
	input   chan momentJob
	scratch *Scratch
}

type momentJob struct {
	seq     uint64
	indices []uint32
}

type momentResult struct {
	seq uint64
	ray *Ray
}

// RayEmitter receives completed rays from the moment engine in production
// order.
type RayEmitter func(*Ray)

// Moment is the Moment Engine.
type Moment struct {
	pulses    *Ring[*Pulse]
	rays      *Ring[*Ray]
	configs   ConfigIndexLookup
	waveforms WaveformLookup
	emit      RayEmitter
	log       *Process

	pulseCursor *Cursor[*Pulse]

	workers []*MomentWorker
	next    atomic.Uint32
	nextSeq atomic.Uint64

	// gathering state, touched only by runGatherer
	groupStart uint32
	groupLen   int
	currentBin int
	haveBin    bool

	results chan momentResult

	active atomic.Bool
	wg     sync.WaitGroup
}

// NewMoment builds a moment engine with workerCount workers.
func NewMoment(pulses *Ring[*Pulse], rays *Ring[*Ray], workerCount int, configs ConfigIndexLookup, waveforms WaveformLookup, emit RayEmitter, proc *Process) *Moment {
	rayGateCount := len(rays.Slot(0).Data[ProductZ])
	m := &Moment{
		pulses:      pulses,
		rays:        rays,
		configs:     configs,
		waveforms:   waveforms,
		emit:        emit,
		log:         proc,
		pulseCursor: NewCursor(pulses, 0),
		results:     make(chan momentResult, 64),
	}
	m.workers = make([]*MomentWorker, workerCount)
	for i := range m.workers {
		m.workers[i] = &MomentWorker{
			id:      i,
			input:   make(chan momentJob, 8),
			scratch: NewScratch(rayGateCount),
		}
	}
	return m
}

// Start launches the gathering goroutine, the worker pool, and the
// reordering goroutine that reassembles worker output back into arrival
// order: the workers that build rays run concurrently and finish out of
// order, but rays must leave the Moment stage in the order they were
// produced.
func (m *Moment) Start(ctx context.Context) {
	m.active.Store(true)
	for _, w := range m.workers {
		m.wg.Add(1)
		go m.runWorker(ctx, w)
	}
	m.wg.Add(1)
	go m.runReorder(ctx)
	m.wg.Add(1)
	go m.runGatherer(ctx)
}

// Stop requests shutdown and waits for every goroutine to exit.
func (m *Moment) Stop() {
	m.active.Store(false)
	m.wg.Wait()
}

func (m *Moment) runGatherer(ctx context.Context) {
	defer m.wg.Done()
	for m.active.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !m.pulseCursor.Ready(StatusReady) {
			pollSleep()
			continue
		}
		index, pulse := m.pulseCursor.Advance()
		// A pulse missing Compressed or HasPosition status here is a fatal
		// pipeline bug.
		if !pulse.Header.Status.Has(StatusCompressed | StatusHasPosition) {
			panic("radarkit: moment: pulse reached gatherer without Compressed|HasPosition status")
		}

		bin := binIndex(pulse.Header.ScanType, pulse.Header.AzimuthDegrees, pulse.Header.ElevationDegrees)
		boundary := m.haveBin && (bin != m.currentBin || m.groupLen >= MaxPulsesPerRay)

		if boundary {
			m.dispatch(ctx)
			m.groupStart = index
			m.groupLen = 0
		}

		m.currentBin = bin
		m.haveBin = true
		m.groupLen++
	}
}

// dispatch hands the currently accumulated group [groupStart, groupStart+
// groupLen) to the next worker in round-robin order, tagging it with a
// sequence number so runReorder can restore production order downstream.
func (m *Moment) dispatch(ctx context.Context) {
	seq := m.nextSeq.Add(1) - 1
	if m.groupLen < MinPulsesPerRay {
		// Nothing will ever complete this sequence number; tell the reorder
		// stage to skip past it immediately.
		select {
		case m.results <- momentResult{seq: seq, ray: nil}:
		case <-ctx.Done():
		}
		return
	}
	indices := make([]uint32, m.groupLen)
	for i := 0; i < m.groupLen; i++ {
		indices[i] = m.groupStart + uint32(i)
	}
	w := m.workers[int(m.next.Add(1)-1)%len(m.workers)]
	select {
	case w.input <- momentJob{seq: seq, indices: indices}:
	case <-ctx.Done():
	}
}

func (m *Moment) runWorker(ctx context.Context, w *MomentWorker) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.input:
			if !ok {
				return
			}
			ray := m.computeRay(w, job.indices)
			select {
			case m.results <- momentResult{seq: job.seq, ray: ray}:
			case <-ctx.Done():
				return
			}
			if !m.active.Load() {
				return
			}
		}
	}
}

// runReorder buffers out-of-order worker results keyed by sequence number
// and emits them to m.emit strictly in the order dispatch assigned them.
func (m *Moment) runReorder(ctx context.Context) {
	defer m.wg.Done()
	pending := make(map[uint64]*Ray)
	var expect uint64
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-m.results:
			if !ok {
				return
			}
			pending[res.seq] = res.ray
			for {
				ray, found := pending[expect]
				if !found {
					break
				}
				delete(pending, expect)
				expect++
				if ray != nil && m.emit != nil {
					m.emit(ray)
				}
			}
			if !m.active.Load() && len(pending) == 0 {
				return
			}
		}
	}
}

func (m *Moment) computeRay(w *MomentWorker, indices []uint32) *Ray {
	first := m.pulses.Slot(indices[0])
	last := m.pulses.Slot(indices[len(indices)-1])

	cfg, ok := m.configs(last.Header.ConfigIndex)
	if !ok {
		m.log.Warnf("moment: unknown config index %d, dropping ray", last.Header.ConfigIndex)
		return nil
	}
	var waveform *Waveform
	if m.waveforms != nil {
		waveform, _ = m.waveforms(cfg.WaveformName)
	}
	ratio := maxInt(cfg.PulseToRayRatio, 1)
	gateCount := int(last.Header.GateCount) / ratio
	if waveform != nil {
		w.scratch.Calibrate(cfg, waveform, gateCount, ratio)
	}

	prt0 := 1.0
	if len(cfg.PRFHz) > 0 && cfg.PRFHz[0] > 0 {
		prt0 = 1.0 / cfg.PRFHz[0]
	}
	lambda := wavelengthMeters(waveformFrequency(waveform))
	w.scratch.DeriveFactors(lambda, prt0, cfg.GateSizeMeters)

	_, ray := m.rays.GetVacant()
	id := ray.Header.ID // preserved across the full Header replacement below

	ray.Header = RayHeader{
		ID:             id,
		ConfigIndex:    last.Header.ConfigIndex,
		StartTime:      first.Header.Time,
		EndTime:        last.Header.Time,
		StartAzimuth:   first.Header.AzimuthDegrees,
		EndAzimuth:     last.Header.AzimuthDegrees,
		StartElevation: first.Header.ElevationDegrees,
		EndElevation:   last.Header.ElevationDegrees,
		GateCount:      gateCount,
		GateSizeMeters: float32(cfg.GateSizeMeters) * float32(ratio),
		ScanType:       last.Header.ScanType,
		Marker:         collectMarkers(m.pulses, indices),
	}

	samples := make([]pulseGateSample, len(indices))
	maxLag := 4
	for gate := 0; gate < gateCount && gate < len(ray.Data[ProductZ]); gate++ {
		pulseGate := gate * ratio
		for i, idx := range indices {
			p := m.pulses.Slot(idx)
			var h, v IQ
			if pulseGate < len(p.Samples[ChannelH]) {
				h = p.Samples[ChannelH][pulseGate]
			}
			if pulseGate < len(p.Samples[ChannelV]) {
				v = p.Samples[ChannelV][pulseGate]
			}
			samples[i] = pulseGateSample{h: complexSample(h), v: complexSample(v)}
		}
		acc := accumulateGate(samples, maxLag)
		z, v, wd, d, p, r, k, s := EstimateMoments(acc, w.scratch, gate, w.scratch.VelocityFactor, w.scratch.WidthFactor, w.scratch.KDPFactor, prt0)
		ray.Data[ProductZ][gate] = z
		ray.Data[ProductV][gate] = v
		ray.Data[ProductW][gate] = wd
		ray.Data[ProductD][gate] = d
		ray.Data[ProductP][gate] = p
		ray.Data[ProductR][gate] = r
		ray.Data[ProductK][gate] = k
		ray.Data[ProductS][gate] = s
	}
	ray.Header.Presence = presenceWith(ProductZ) | presenceWith(ProductV) | presenceWith(ProductW) |
		presenceWith(ProductD) | presenceWith(ProductP) | presenceWith(ProductR) |
		presenceWith(ProductK) | presenceWith(ProductS)

	m.rays.SetReady(ray, StatusReady)
	return ray
}

func collectMarkers(pulses *Ring[*Pulse], indices []uint32) Marker {
	var m Marker
	for _, idx := range indices {
		m |= pulses.Slot(idx).Header.Marker
	}
	return m
}

func waveformFrequency(w *Waveform) float64 {
	if w == nil || len(w.Anchors) == 0 {
		return 0
	}
	return w.Anchors[0].SubCarrierFrequency
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
