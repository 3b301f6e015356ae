package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillRays(t *testing.T, rays *Ring[*Ray], n int) []uint32 {
	t.Helper()
	indices := make([]uint32, n)
	for i := 0; i < n; i++ {
		idx, ray := rays.GetVacant()
		ray.Header.GateCount = 16
		ray.Header.GateSizeMeters = 150
		ray.Header.StartAzimuth = float32(i)
		ray.Header.EndAzimuth = float32(i + 1)
		indices[i] = idx
	}
	return indices
}

func TestSweepAssembler_FinishProducesExpectedRayCount(t *testing.T) {
	rays := NewRayRing(400, 16, 1)
	sweeps := NewSweepRing()
	var got *Sweep
	sink := func(s *Sweep) { got = s }
	a := NewSweepAssembler(rays, sweeps, sink, nil)

	fillRays(t, rays, 10)
	a.finish(0, 9)

	require.NotNil(t, got)
	assert.Len(t, got.Rays, 10)
	assert.False(t, got.Complete, "a 10-ray sweep is not a complete 360-ray PPI sweep")
}

func TestSweepAssembler_Normalizes361RaysByDroppingOne(t *testing.T) {
	rays := NewRayRing(400, 16, 1)
	sweeps := NewSweepRing()
	var got *Sweep
	a := NewSweepAssembler(rays, sweeps, func(s *Sweep) { got = s }, nil)

	indices := fillRays(t, rays, SweepTargetRayCount+1)
	rays.Slot(indices[0]).Header.Marker = MarkerSweepBegin

	a.finish(indices[0], indices[len(indices)-1])

	require.NotNil(t, got)
	assert.Len(t, got.Rays, SweepTargetRayCount)
	assert.True(t, got.Complete)
	// The ray carrying SweepBegin should have been the one dropped.
	assert.NotEqual(t, float32(0), got.Rays[0].Header.StartAzimuth)
}

func TestSweepAssembler_NormalizesFromTheOtherEndWithoutBeginMarker(t *testing.T) {
	rays := NewRayRing(400, 16, 1)
	sweeps := NewSweepRing()
	var got *Sweep
	a := NewSweepAssembler(rays, sweeps, func(s *Sweep) { got = s }, nil)

	indices := fillRays(t, rays, SweepTargetRayCount+1)
	// No SweepBegin marker on the first ray: the assembler should drop the
	// last ray instead.
	a.finish(indices[0], indices[len(indices)-1])

	require.NotNil(t, got)
	assert.Len(t, got.Rays, SweepTargetRayCount)
	assert.Equal(t, float32(0), got.Rays[0].Header.StartAzimuth)
}

func TestSweepAssembler_EndBeforeStartIsIgnored(t *testing.T) {
	rays := NewRayRing(16, 16, 1)
	sweeps := NewSweepRing()
	called := false
	a := NewSweepAssembler(rays, sweeps, func(*Sweep) { called = true }, nil)
	a.finish(5, 2)
	assert.False(t, called, "SweepEnd observed before SweepBegin must not produce a sweep")
}

func TestSweepAssembler_RunTransitionsIdleToGatheringOnSweepBegin(t *testing.T) {
	rays := NewRayRing(16, 16, 1)
	sweeps := NewSweepRing()
	a := NewSweepAssembler(rays, sweeps, nil, nil)
	assert.Equal(t, sweepIdle, a.state)

	idx, ray := rays.GetVacant()
	ray.Header.Marker = MarkerSweepBegin
	ray.Header.GateCount = 16
	rays.SetReady(ray, StatusReady)

	index, r := a.cursor.Advance()
	require.Equal(t, idx, index)
	if r.Header.Marker&MarkerSweepBegin != 0 {
		a.startIndex = index
		a.state = sweepGathering
	}
	assert.Equal(t, sweepGathering, a.state)
}

func TestSweepAssembler_UnaryMismatchedRayDoesNotPanic(t *testing.T) {
	rays := NewRayRing(16, 16, 1)
	sweeps := NewSweepRing()
	var got *Sweep
	a := NewSweepAssembler(rays, sweeps, func(s *Sweep) { got = s }, nil)

	i0, r0 := rays.GetVacant()
	r0.Header.GateCount = 16
	r0.Header.GateSizeMeters = 150
	i1, r1 := rays.GetVacant()
	r1.Header.GateCount = 8 // disagrees with r0
	r1.Header.GateSizeMeters = 150

	assert.NotPanics(t, func() { a.finish(i0, i1) })
	require.NotNil(t, got)
}
