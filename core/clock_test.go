package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockAligner_TracksAConstantRate(t *testing.T) {
	c := NewClockAligner()
	c.SetStride(50)
	const period = 0.001 // 1kHz tick rate
	var last float64
	for u := uint64(0); u < 2000; u++ {
		obs := float64(u) * period
		got := c.GetTime(u, obs)
		require.GreaterOrEqual(t, got, last, "GetTime must be monotone non-decreasing")
		last = got
	}
	assert.InDelta(t, float64(1999)*period, last, period*2, "fit should track the true rate once past the stride")
}

func TestClockAligner_ExtrapolatesBeforeEnoughSamples(t *testing.T) {
	c := NewClockAligner()
	got := c.GetTime(100, 0)
	assert.Equal(t, 100.0, got, "with no observations yet, GetTime passes ticks through unchanged")
}

func TestClockAligner_BackwardsTickResetsFit(t *testing.T) {
	c := NewClockAligner()
	c.SetStride(10)
	for u := uint64(0); u < 20; u++ {
		c.GetTime(u, float64(u)*0.001)
	}
	require.Greater(t, c.Count(), 0)

	c.GetTime(5, 0.005) // tick went backwards relative to the last observed tic (19)
	assert.Equal(t, 1, c.Count(), "a backwards tick count must reset the observation window, which then holds only the new observation")
}

func TestClockAligner_RejectsFarBackwardsWallClockObservation(t *testing.T) {
	c := NewClockAligner()
	c.SetStride(5)
	var u uint64
	for ; u < 10; u++ {
		c.GetTime(u, float64(u)*0.001)
	}
	before := c.Count()
	// Same tick stream continues monotonically, but the observed wall time
	// supplied for it jumps far into the past: this observation must be
	// ignored rather than corrupting the fit.
	c.GetTime(u, -10000)
	assert.Equal(t, before, c.Count(), "a far-backwards observed wall time must not be recorded")
}

func TestClockAligner_MonotoneEvenWithoutNewObservation(t *testing.T) {
	c := NewClockAligner()
	c.SetStride(20)
	for u := uint64(0); u < 40; u++ {
		c.GetTime(u, float64(u)*0.001)
	}
	last := c.GetTime(40, float64(40)*0.001)
	// obs == 0 means "no externally observed time"; GetTime should still
	// extrapolate forward from the existing fit rather than jump backwards.
	next := c.GetTime(41, 0)
	assert.GreaterOrEqual(t, next, last)
}

func TestTrimOutliers_RemovesSingleOutlier(t *testing.T) {
	us := []float64{0, 1, 2, 3, 4, 5}
	xs := []float64{0, 0.001, 0.002, 0.5, 0.004, 0.005} // index 3 is a wild outlier
	tu, tx := trimOutliers(us, xs, 3.0)
	require.Equal(t, len(tu), len(tx))
	for i, u := range tu {
		if u == 3 {
			t.Fatalf("expected outlier tick 3 to be trimmed, got %v", tx[i])
		}
	}
	assert.Less(t, len(tu), len(us))
}

func TestMedianOf(t *testing.T) {
	assert.Equal(t, 3.0, medianOf([]float64{5, 1, 3, 2, 4}))
	assert.Equal(t, 2.5, medianOf([]float64{1, 2, 3, 4}))
}
