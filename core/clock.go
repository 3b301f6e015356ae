package core

/*------------------------------------------------------------------
 *
 * Purpose:	Map a monotonic hardware tick stream to wall-clock time
 *		with sub-millisecond residual, via a running trimmed-mean
 *		affine fit x = a*u + b over a sliding window of
 *		(tick, wall-clock) observation pairs.
 *
 *------------------------------------------------------------------*/

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// ClockAWhile is the number of seconds a backwards jump in observed wall
// time may span before the observation is rejected outright.
const ClockAWhile = 300.0

// DefaultClockBufferDepth and DefaultClockStride size a fresh aligner's
// observation window and the number of samples it waits for before its
// first regression.
const (
	DefaultClockBufferDepth = 2000
	DefaultClockStride      = 1000
)

// ClockAligner maintains a running affine fit x = a*u + b over the most
// recent Stride observations of (tick, wall-clock) pairs.
type ClockAligner struct {
	mu sync.Mutex

	depth  int
	stride int

	autoSync      bool
	highPrecision bool

	uBuf []float64 // tick counters, clean
	xBuf []float64 // wall-clock times, clean
	head int
	count int

	a, b float64

	latestU    float64
	latestTime float64
	typicalPeriod float64

	lastTic uint64
	haveTic bool
}

// NewClockAligner builds an aligner with the default buffer depth and
// stride, with autoSync on by default.
func NewClockAligner() *ClockAligner {
	return &ClockAligner{
		depth:    DefaultClockBufferDepth,
		stride:   DefaultClockStride,
		autoSync: true,
		uBuf:     make([]float64, DefaultClockBufferDepth),
		xBuf:     make([]float64, DefaultClockBufferDepth),
	}
}

// SetStride changes the regression window size.
func (c *ClockAligner) SetStride(stride int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stride = stride
}

// SetAutoSync toggles whether GetTime updates a/b from new observations.
func (c *ClockAligner) SetAutoSync(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoSync = on
}

// SetHighPrecision widens the trim tolerance for a steadier fit at the cost
// of slower adaptation to genuine rate changes.
func (c *ClockAligner) SetHighPrecision(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.highPrecision = on
}

// Reset discards the fit and zeros the observation count (used on a
// backwards tick).
func (c *ClockAligner) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *ClockAligner) resetLocked() {
	c.head = 0
	c.count = 0
	c.a = 0
	c.b = 0
	c.haveTic = false
}

// GetTime maps a hardware tick u to wall-clock time. obs, if non-zero, is
// an externally observed wall-clock time for this same tick (e.g. a
// hardware timestamp latch); when obs is zero the fit is extrapolated
// forward from the current a/b with no new observation recorded.
//
// Contract: returns monotone non-decreasing time. After Stride observations
// the predicted time tracks the true time to within one typical period.
func (c *ClockAligner) GetTime(u uint64, obs float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.haveTic && u < c.lastTic {
		// A backwards tick count means the hardware counter wrapped or reset
		// underneath us; the running fit no longer means anything.
		c.resetLocked()
	}
	c.lastTic = u
	c.haveTic = true

	uf := float64(u)

	if obs != 0 {
		if c.count > 0 && obs < c.latestTime-ClockAWhile {
			// Observation's wall-clock time jumped far backwards: ignore it
			// but still extrapolate below.
		} else if c.autoSync {
			c.record(uf, obs)
		}
	}

	predicted := c.predict(uf)
	if c.count > 0 && predicted < c.latestTime {
		predicted = c.latestTime
	}
	c.latestTime = predicted
	c.latestU = uf
	return predicted
}

func (c *ClockAligner) record(u, x float64) {
	idx := c.head % c.depth
	c.uBuf[idx] = u
	c.xBuf[idx] = x
	c.head++
	if c.count < c.depth {
		c.count++
	}

	if c.count < c.stride {
		// Not enough samples yet: seed a/b from the two extreme points so
		// GetTime still returns something sane (extrapolation) before the
		// regression kicks in.
		if c.count == 1 {
			c.a = 1
			c.b = x - u
			return
		}
		us, xs := c.window()
		if du := us[len(us)-1] - us[0]; du != 0 {
			c.a = (xs[len(xs)-1] - xs[0]) / du
			c.b = x - c.a*u
		}
		return
	}

	us, xs := c.window()
	trimU, trimX := trimOutliers(us, xs, c.trimFactor())
	if len(trimU) < 2 {
		return
	}
	a, b := stat.LinearRegression(trimU, trimX, nil, false)
	c.a = a
	c.b = b

	// typicalPeriod: median of the trimmed consecutive tick deltas converted
	// to time via a.
	c.typicalPeriod = typicalPeriodOf(trimU, a)
}

// window returns the most recent min(count, stride) observations in
// chronological order.
func (c *ClockAligner) window() (us, xs []float64) {
	n := c.count
	if c.stride > 0 && n > c.stride {
		n = c.stride
	}
	us = make([]float64, n)
	xs = make([]float64, n)
	start := c.head - n
	for i := 0; i < n; i++ {
		idx := (start + i) % c.depth
		if idx < 0 {
			idx += c.depth
		}
		us[i] = c.uBuf[idx]
		xs[i] = c.xBuf[idx]
	}
	return us, xs
}

func (c *ClockAligner) trimFactor() float64 {
	if c.highPrecision {
		return 5.0
	}
	return 3.0
}

// trimOutliers drops any point whose per-sample dx/du deviates from the
// median per-sample slope by more than factor times the median absolute
// deviation of those slopes.
func trimOutliers(us, xs []float64, factor float64) (tu, tx []float64) {
	n := len(us)
	if n < 3 {
		return us, xs
	}
	diffs := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		du := us[i] - us[i-1]
		if du == 0 {
			continue
		}
		diffs = append(diffs, (xs[i]-xs[i-1])/du)
	}
	if len(diffs) == 0 {
		return us, xs
	}
	median := medianOf(diffs)
	absDevs := make([]float64, len(diffs))
	for i, d := range diffs {
		absDevs[i] = math.Abs(d - median)
	}
	threshold := medianOf(absDevs)*factor + 1e-12

	tu = make([]float64, 0, n)
	tx = make([]float64, 0, n)
	tu = append(tu, us[0])
	tx = append(tx, xs[0])
	for i := 1; i < n; i++ {
		du := us[i] - us[i-1]
		if du == 0 {
			continue
		}
		slope := (xs[i] - xs[i-1]) / du
		if math.Abs(slope-median) > threshold {
			continue
		}
		tu = append(tu, us[i])
		tx = append(tx, xs[i])
	}
	return tu, tx
}

func medianOf(v []float64) float64 {
	sorted := append([]float64(nil), v...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func typicalPeriodOf(us []float64, a float64) float64 {
	if len(us) < 2 {
		return 0
	}
	diffs := make([]float64, 0, len(us)-1)
	for i := 1; i < len(us); i++ {
		du := us[i] - us[i-1]
		if du > 0 {
			diffs = append(diffs, du*a)
		}
	}
	if len(diffs) == 0 {
		return 0
	}
	return medianOf(diffs)
}

// predict evaluates the current affine fit at tick u, extrapolating when
// there is no fit yet.
func (c *ClockAligner) predict(u float64) float64 {
	if c.count == 0 {
		return u // no information yet: pass ticks through as a best guess
	}
	return c.a*u + c.b
}

// TypicalPeriod returns the most recently computed typical tick period in
// wall-clock seconds.
func (c *ClockAligner) TypicalPeriod() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typicalPeriod
}

// Count returns the number of observations currently in the fit window.
func (c *ClockAligner) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
