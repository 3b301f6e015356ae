package core

/*------------------------------------------------------------------
 *
 * Purpose:	Watch the ray ring for SweepBegin/SweepEnd markers, batch
 *		the rays in between into a completed Sweep, normalize the
 *		360-ray PPI/RHI case, and hand the sweep to an external
 *		sink. Sweep identifiers use google/uuid; azimuth coverage
 *		uses golang/geo/s1.Interval, which models circular
 *		wraparound natively.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/golang/geo/s1"
	"github.com/google/uuid"
)

// SweepTargetRayCount is the PPI/RHI full-sweep ray count normalized to.
const SweepTargetRayCount = 360

// sweepWarningSummaryThreshold is the number of per-sweep consistency
// warnings after which the assembler collapses the rest into one summary
// line.
const sweepWarningSummaryThreshold = 5

// Sweep is a completed batch of rays bounded by SweepBegin/SweepEnd markers.
type Sweep struct {
	ID             uuid.UUID
	ConfigIndex    uint32
	StartTime      WallTime
	EndTime        WallTime
	ScanType       ScanType
	GateCount      int
	GateSizeMeters float32
	Rays           []*Ray
	Complete       bool // true if normalized to exactly SweepTargetRayCount rays
	Coverage       s1.Interval
}

// sweepStatus gives Sweep the Statused shape a Ring requires.
type sweepStatus struct {
	id     uint32
	status PulseStatus
}

// SweepSlot wraps a Sweep for ring storage.
type SweepSlot struct {
	Sweep
	sweepStatus
}

func (s *SweepSlot) StatusValue() PulseStatus     { return s.status }
func (s *SweepSlot) SetStatusValue(v PulseStatus) { s.status = v }
func (s *SweepSlot) IDValue() uint32              { return s.id }
func (s *SweepSlot) SetIDValue(id uint32)         { s.id = id }

// NewSweepRing allocates the sweep scratch ring: depth 4, so the sink has
// time to write while the next sweep accumulates.
func NewSweepRing() *Ring[*SweepSlot] {
	return NewRing(4, func(uint32) *SweepSlot { return &SweepSlot{} })
}

// SweepSink receives each completed, normalized sweep. It is the external
// NetCDF-writer collaborator, out of scope here; the sink is expected to
// return promptly, since the assembler's producer goroutine blocks while
// delivering.
type SweepSink func(*Sweep)

// sweepState is the assembler's two-state machine.
type sweepState int

const (
	sweepIdle sweepState = iota
	sweepGathering
)

// SweepAssembler is the Sweep Assembler engine.
type SweepAssembler struct {
	rays  *Ring[*Ray]
	sweeps *Ring[*SweepSlot]
	sink  SweepSink
	log   *Process

	cursor *Cursor[*Ray]

	state      sweepState
	startIndex uint32

	active atomic.Bool
	wg     sync.WaitGroup
}

// NewSweepAssembler builds a sweep assembler reading from rays and
// publishing normalized sweeps into sweeps, handing each to sink.
func NewSweepAssembler(rays *Ring[*Ray], sweeps *Ring[*SweepSlot], sink SweepSink, proc *Process) *SweepAssembler {
	return &SweepAssembler{
		rays:   rays,
		sweeps: sweeps,
		sink:   sink,
		log:    proc,
		cursor: NewCursor(rays, 0),
	}
}

// Start launches the assembler's run loop.
func (a *SweepAssembler) Start(ctx context.Context) {
	a.active.Store(true)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(ctx)
	}()
}

// Stop requests shutdown and waits for the run loop to exit.
func (a *SweepAssembler) Stop() {
	a.active.Store(false)
	a.wg.Wait()
}

func (a *SweepAssembler) run(ctx context.Context) {
	for a.active.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !a.cursor.Ready(StatusReady) {
			pollSleep()
			continue
		}
		index, ray := a.cursor.Advance()

		if ray.Header.Marker&MarkerSweepBegin != 0 {
			a.startIndex = index
			a.state = sweepGathering
		}

		if a.state == sweepGathering && ray.Header.Marker&MarkerSweepEnd != 0 {
			a.finish(a.startIndex, index)
			a.state = sweepIdle
		}
	}
}

// finish snapshots rays [start, end] into a Sweep, normalizes the 360-ray
// case, runs the consistency checks and hands the sweep to the sink.
func (a *SweepAssembler) finish(start, end uint32) {
	if end < start {
		return // SweepEnd observed without a preceding SweepBegin; ignore
	}
	indices := make([]uint32, 0, end-start+1)
	for i := start; i <= end; i++ {
		indices = append(indices, i)
	}

	first := a.rays.Slot(indices[0])

	// Normalization: drop one ray if the count overshoots the 360 target by
	// exactly one, choosing whichever end carries the SweepBegin/SweepEnd
	// marker itself.
	if len(indices) == SweepTargetRayCount+1 {
		if a.rays.Slot(indices[0]).Header.Marker&MarkerSweepBegin != 0 {
			indices = indices[1:]
		} else {
			indices = indices[:len(indices)-1]
		}
	}

	_, slot := a.sweeps.GetVacant()

	rays := make([]*Ray, len(indices))
	var coverage s1.Interval
	gateCount := int(first.Header.GateCount)
	gateSize := first.Header.GateSizeMeters
	warnings := 0
	for i, idx := range indices {
		r := a.rays.Slot(idx)
		rays[i] = r
		coverage = coverage.Union(s1.IntervalFromPointPair(
			s1.Angle(float64(r.Header.StartAzimuth)*math.Pi/180),
			s1.Angle(float64(r.Header.EndAzimuth)*math.Pi/180)))

		if r.Header.GateCount != gateCount || r.Header.GateSizeMeters != gateSize {
			warnings++
			if warnings <= sweepWarningSummaryThreshold {
				a.log.Warnf("sweep: ray %d disagrees on gateCount/gateSizeMeters (%d/%g vs %d/%g)",
					idx, r.Header.GateCount, r.Header.GateSizeMeters, gateCount, gateSize)
			}
		}
	}
	if warnings > sweepWarningSummaryThreshold {
		a.log.Warnf("sweep: %d total gateCount/gateSizeMeters mismatches suppressed after the first %d",
			warnings, sweepWarningSummaryThreshold)
	}

	last := a.rays.Slot(indices[len(indices)-1])
	sweep := Sweep{
		ID:             uuid.New(),
		ConfigIndex:    first.Header.ConfigIndex,
		StartTime:      first.Header.StartTime,
		EndTime:        last.Header.EndTime,
		ScanType:       first.Header.ScanType,
		GateCount:      gateCount,
		GateSizeMeters: gateSize,
		Rays:           rays,
		Complete:       len(indices) == SweepTargetRayCount,
		Coverage:       coverage,
	}

	slot.Sweep = sweep
	a.sweeps.SetReady(slot, StatusReady)

	if a.sink != nil {
		a.sink(&slot.Sweep)
	}
}
