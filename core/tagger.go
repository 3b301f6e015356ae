package core

/*------------------------------------------------------------------
 *
 * Purpose:	Stamp each compressed pulse with the pedestal's azimuth and
 *		elevation at the pulse's wall-clock time, and propagate
 *		sweep markers. Azimuth unwrap uses golang/geo/s1.Angle,
 *		whose normalized (-pi, pi] representation gives
 *		shortest-arc interpolation without hand-rolled modulo math.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/geo/s1"
)

// TaggerTimeout bounds how long the tagger waits for a bracketing position
// before discarding a pulse with a warning.
const TaggerTimeout = 500 * time.Millisecond

// Tagger is the Position Tagger engine. It maintains its own slow cursor
// over the position ring, advancing it until it brackets each incoming
// pulse's timestamp.
type Tagger struct {
	pulses    *Ring[*Pulse]
	positions *Ring[*PositionSlot]
	log       *Process

	pulseCursor    *Cursor[*Pulse]
	positionCursor *Cursor[*PositionSlot] // points at the next unconsumed position (the "hi" candidate)
	lastConsumed   *PositionSlot          // most recently consumed position (the "lo" candidate)

	markerDelivered Marker // markers of the current bracket already copied onto a pulse, to avoid re-delivering

	droppedCount atomic.Int64
	active       atomic.Bool
	wg           sync.WaitGroup
}

// NewTagger builds a tagger reading pulses and positions from the given
// rings.
func NewTagger(pulses *Ring[*Pulse], positions *Ring[*PositionSlot], proc *Process) *Tagger {
	return &Tagger{
		pulses:         pulses,
		positions:      positions,
		log:            proc,
		pulseCursor:    NewCursor(pulses, 0),
		positionCursor: NewCursor(positions, 0),
	}
}

// DroppedCount returns the number of pulses discarded for lack of a
// bracketing position.
func (t *Tagger) DroppedCount() int64 { return t.droppedCount.Load() }

// Start launches the tagger's run loop in its own goroutine.
func (t *Tagger) Start(ctx context.Context) {
	t.active.Store(true)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(ctx)
	}()
}

// Stop clears the active flag and waits for the run loop to exit; any
// pulse mid-tag finishes first.
func (t *Tagger) Stop() {
	t.active.Store(false)
	t.wg.Wait()
}

func (t *Tagger) run(ctx context.Context) {
	for t.active.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !t.pulseCursor.Ready(StatusCompressed) {
			pollSleep()
			continue
		}
		_, pulse := t.pulseCursor.Advance()
		t.tag(ctx, pulse)
	}
}

// tag advances the position cursor until it brackets pulse's timestamp with
// P_lo and P_hi (P_lo.time <= pulse.time <= P_hi.time), then interpolates
// and propagates markers.
func (t *Tagger) tag(ctx context.Context, pulse *Pulse) {
	target := pulse.Header.Time.Double
	deadline := time.Now().Add(TaggerTimeout)

	for {
		_, hi := t.positionCursor.Peek()
		if t.positionCursor.HasNext() && hi.Time.Double < target {
			t.lastConsumed = hi
			t.positionCursor.Advance()
			continue
		}
		if t.lastConsumed != nil && hi.Time.Double >= target {
			t.apply(pulse, t.lastConsumed, hi, target)
			return
		}
		if !t.positionCursor.HasNext() {
			if time.Now().After(deadline) {
				pulse.Header.Status |= StatusTagged
				t.droppedCount.Add(1)
				t.log.Warnf("tagger: no bracketing position for pulse %d within %s, dropping", pulse.Header.ID, TaggerTimeout)
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			pollSleep()
			continue
		}
		// Have a next position but no lo yet (pulse predates the first
		// position sample): wait, same timeout discipline applies.
		if time.Now().After(deadline) {
			pulse.Header.Status |= StatusTagged
			t.droppedCount.Add(1)
			t.log.Warnf("tagger: no bracketing position for pulse %d within %s, dropping", pulse.Header.ID, TaggerTimeout)
			return
		}
		pollSleep()
	}
}

func (t *Tagger) apply(pulse *Pulse, lo, hi *PositionSlot, target float64) {
	az, el := interpolate(lo, hi, target)
	pulse.Header.AzimuthDegrees = float32(az)
	pulse.Header.ElevationDegrees = float32(el)

	// Sweep markers are copied onto the first pulse whose timestamp falls
	// on or after the position carrying the marker. A delivered bit is
	// forgotten once neither bracketing position carries it, so the next
	// position marked with it is delivered again.
	t.markerDelivered &= lo.Marker | hi.Marker
	for _, candidate := range [...]*PositionSlot{lo, hi} {
		if candidate.Marker == 0 || candidate.Time.Double > target {
			continue
		}
		undelivered := candidate.Marker &^ t.markerDelivered
		if undelivered != 0 {
			pulse.Header.Marker |= undelivered
			t.markerDelivered |= undelivered
		}
	}
	pulse.Header.ScanType = hi.ScanType

	pulse.Header.Status |= StatusHasPosition | StatusTagged | StatusReady
}

// interpolate linearly interpolates azimuth (shortest arc, via s1.Angle)
// and elevation between two bracketing positions at time t.
func interpolate(lo, hi *PositionSlot, t float64) (az, el float64) {
	span := hi.Time.Double - lo.Time.Double
	frac := 0.0
	if span > 0 {
		frac = (t - lo.Time.Double) / span
	}
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}

	loAz := s1.Angle(float64(lo.AzimuthDegrees) * math.Pi / 180).Normalized()
	hiAz := s1.Angle(float64(hi.AzimuthDegrees) * math.Pi / 180).Normalized()
	delta := (hiAz - loAz).Normalized()
	if delta > math.Pi {
		delta -= 2 * math.Pi
	} else if delta < -math.Pi {
		delta += 2 * math.Pi
	}
	azRad := float64(loAz) + frac*delta
	az = azRad * 180 / math.Pi
	if az < 0 {
		az += 360
	}

	el = float64(lo.ElevationDegrees) + frac*float64(hi.ElevationDegrees-lo.ElevationDegrees)
	return az, el
}
