package core

/*------------------------------------------------------------------
 *
 * Purpose:	Synthetic Transceiver/Pedestal delegates for exercising the
 *		pipeline without hardware: generate a known signal, then
 *		feed it through the real pipeline and check what comes out
 *		the other end.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// SyntheticTransceiver produces pulses at a fixed PRF. Each pulse carries
// an impulse at gate 0 plus Gaussian noise at every other gate, so a
// calibrated reflectivity estimate should show signal only at gate 0 and
// missing everywhere else.
type SyntheticTransceiver struct {
	PRFHz         float64
	GateCount     int
	ImpulseAmp    float64
	NoiseStdDev   float64
	ConfigIndex   func() uint32

	mu     sync.Mutex
	radar  *Radar
	cancel context.CancelFunc
	wg     sync.WaitGroup
	tic    uint64
	rng    *rand.Rand
}

// NewSyntheticTransceiver builds a generator with a unit impulse; a
// non-positive prfHz or gateCount is replaced by 1000 Hz or 512 gates.
func NewSyntheticTransceiver(prfHz float64, gateCount int) *SyntheticTransceiver {
	if prfHz <= 0 {
		prfHz = 1000
	}
	if gateCount <= 0 {
		gateCount = 512
	}
	return &SyntheticTransceiver{
		PRFHz:       prfHz,
		GateCount:   gateCount,
		ImpulseAmp:  1.0,
		NoiseStdDev: 1e-4,
		rng:         rand.New(rand.NewSource(1)),
	}
}

// Init spawns the pulse-producer goroutine.
func (t *SyntheticTransceiver) Init(r *Radar) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.radar = r
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.wg.Add(1)
	go t.run(ctx)
	return nil
}

// Exec accepts the standard transceiver command surface and acks every
// command with "ok"; the synthetic generator acts on none of them, so its
// PRF and gate count stay as constructed.
func (t *SyntheticTransceiver) Exec(cmd string) (string, error) {
	return "ok", nil
}

// Free stops the producer goroutine.
func (t *SyntheticTransceiver) Free() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
}

func (t *SyntheticTransceiver) run(ctx context.Context) {
	defer t.wg.Done()
	period := time.Duration(float64(time.Second) / t.PRFHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.emit()
		}
	}
}

func (t *SyntheticTransceiver) emit() {
	_, slot := t.radar.Pulses.GetVacant()
	gateCount := t.GateCount
	if gateCount > len(slot.Samples[ChannelH]) {
		gateCount = len(slot.Samples[ChannelH])
	}
	slot.Samples[ChannelH][0] = IQ{I: float32(t.ImpulseAmp), Q: 0}
	slot.Samples[ChannelV][0] = IQ{I: float32(t.ImpulseAmp), Q: 0}
	for g := 1; g < gateCount; g++ {
		slot.Samples[ChannelH][g] = IQ{I: float32(t.NoiseStdDev * t.rng.NormFloat64()), Q: float32(t.NoiseStdDev * t.rng.NormFloat64())}
		slot.Samples[ChannelV][g] = IQ{I: float32(t.NoiseStdDev * t.rng.NormFloat64()), Q: float32(t.NoiseStdDev * t.rng.NormFloat64())}
	}

	t.tic++
	slot.Header.Tic = t.tic
	slot.Header.GateCount = uint16(gateCount)
	nowSec := float64(time.Now().UnixNano()) / 1e9
	slot.Header.Time = WallTimeFromDouble(t.radar.PulseClock.GetTime(t.tic, nowSec))
	if t.ConfigIndex != nil {
		slot.Header.ConfigIndex = t.ConfigIndex()
	} else if produced := t.radar.Configs.ProducerIndex(); produced > 0 {
		slot.Header.ConfigIndex = produced - 1
	}

	t.radar.Pulses.SetReady(slot, StatusHasIQData)
}

// SyntheticPedestal rotates azimuth at a constant rate for a PPI scan. The
// sample on which azimuth wraps through zero carries a SweepEnd marker and
// the sample right after it carries SweepBegin; the very first sample also
// carries SweepBegin.
type SyntheticPedestal struct {
	RateDegPerSec    float64
	ElevationDegrees float64
	UpdateHz         float64

	mu           sync.Mutex
	radar        *Radar
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	tic          uint64
	azimuth      float64
	started      bool
	pendingBegin bool
}

// NewSyntheticPedestal builds a PPI rotator at rateDegPerSec degrees/second.
func NewSyntheticPedestal(rateDegPerSec, elevationDegrees float64) *SyntheticPedestal {
	if rateDegPerSec <= 0 {
		rateDegPerSec = 36 // one full PPI sweep every 10s
	}
	return &SyntheticPedestal{RateDegPerSec: rateDegPerSec, ElevationDegrees: elevationDegrees, UpdateHz: 4000}
}

// Init spawns the position-producer goroutine.
func (p *SyntheticPedestal) Init(r *Radar) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.radar = r
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(ctx)
	return nil
}

// Exec accepts `ppi <el> <speed>`, `rhi <az_range>`, `stop` and acks every
// command with "ok"; the synthetic pedestal acts on none of them, so its
// rate and elevation stay as constructed.
func (p *SyntheticPedestal) Exec(cmd string) (string, error) {
	return "ok", nil
}

// Free stops the producer goroutine.
func (p *SyntheticPedestal) Free() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *SyntheticPedestal) run(ctx context.Context) {
	defer p.wg.Done()
	period := time.Duration(float64(time.Second) / p.UpdateHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	step := p.RateDegPerSec / p.UpdateHz
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.emit(step)
		}
	}
}

func (p *SyntheticPedestal) emit(step float64) {
	_, slot := p.radar.Positions.GetVacant()

	var marker Marker
	nextAz := p.azimuth + step
	wrapped := math.Floor(nextAz/360) > math.Floor(p.azimuth/360)
	switch {
	case !p.started:
		marker |= MarkerSweepBegin | MarkerPPI
		p.started = true
	case p.pendingBegin:
		marker |= MarkerSweepBegin | MarkerPPI
		p.pendingBegin = false
	}
	if wrapped {
		// Close the sweep on this sample; the sample that begins the next
		// revolution (the next emit call) carries SweepBegin instead, so
		// the two markers never land on the same ray.
		marker |= MarkerSweepEnd
		p.pendingBegin = true
	}
	p.azimuth = nextAz

	p.tic++
	nowSec := float64(time.Now().UnixNano()) / 1e9
	slot.Position = Position{
		Tic:              p.tic,
		Time:             WallTimeFromDouble(p.radar.PositionClock.GetTime(p.tic, nowSec)),
		AzimuthDegrees:   float32(math.Mod(p.azimuth, 360)),
		ElevationDegrees: float32(p.ElevationDegrees),
		VelocityDps:      float32(p.RateDegPerSec),
		Marker:           marker,
		ScanType:         ScanPPI,
	}
	p.radar.Positions.SetReady(slot, StatusReady)
}
