package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRing_GetVacantAssignsSequentialIDs(t *testing.T) {
	r := NewPulseRing(4, 64)
	seen := make(map[uint32]bool)
	for i := 0; i < 10; i++ {
		index, slot := r.GetVacant()
		assert.Equal(t, index, slot.IDValue(), "slot id should equal its all-time sequence number")
		assert.False(t, seen[index], "GetVacant must never hand out the same index twice")
		seen[index] = true
		assert.Equal(t, StatusVacant, slot.StatusValue())
	}
}

func TestRing_SlotWrapsAroundDepth(t *testing.T) {
	r := NewPulseRing(4, 64)
	var first [4]*Pulse
	for i := 0; i < 4; i++ {
		_, slot := r.GetVacant()
		first[i] = slot
	}
	index, slot := r.GetVacant()
	assert.Equal(t, uint32(4), index)
	assert.Same(t, first[0], slot, "index 4 should reuse slot 0's backing storage")
}

func TestRing_SetReadyPublishesAdditively(t *testing.T) {
	r := NewPulseRing(2, 64)
	_, slot := r.GetVacant()
	r.SetReady(slot, StatusHasIQData)
	assert.True(t, slot.StatusValue().Has(StatusHasIQData))
	r.SetReady(slot, StatusHasPosition)
	assert.True(t, slot.StatusValue().Has(StatusHasIQData), "SetReady must not clear earlier bits")
	assert.True(t, slot.StatusValue().Has(StatusHasPosition))
}

func TestCursor_HasNextAndAdvance(t *testing.T) {
	r := NewPulseRing(4, 64)
	c := NewCursor(r, 0)
	assert.False(t, c.HasNext(), "cursor must not run ahead of an empty ring")

	r.GetVacant()
	assert.True(t, c.HasNext())

	index, _ := c.Advance()
	assert.Equal(t, uint32(0), index)
	assert.False(t, c.HasNext())
}

func TestCursor_LagIsFractionOfDepth(t *testing.T) {
	r := NewPulseRing(8, 64)
	c := NewCursor(r, 0)
	for i := 0; i < 4; i++ {
		r.GetVacant()
	}
	assert.InDelta(t, 0.5, c.Lag(), 1e-9)
}

// TestRing_ConsumerNeverOvertakesProducer checks that a consumer cursor
// never overtakes the producer cursor, for any interleaving of GetVacant and
// Advance calls.
func TestRing_ConsumerNeverOvertakesProducer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewPulseRing(4, 64)
		c := NewCursor(r, 0)
		ops := rapid.SliceOfN(rapid.IntRange(0, 1), 1, 200).Draw(t, "ops")
		for _, op := range ops {
			if op == 0 {
				r.GetVacant()
			} else if c.HasNext() {
				c.Advance()
			}
			require.LessOrEqual(t, c.Index(), r.ProducerIndex())
		}
	})
}

// TestRing_IDsAreAllTimeSequenceNumbers checks that every slot id ever
// handed out by GetVacant equals its all-time sequence number, regardless of
// how many times the underlying storage has wrapped.
func TestRing_IDsAreAllTimeSequenceNumbers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		depth := uint32(rapid.IntRange(1, 8).Draw(t, "depth"))
		r := NewPulseRing(depth, 64)
		count := rapid.IntRange(0, 64).Draw(t, "count")
		for i := 0; i < count; i++ {
			index, slot := r.GetVacant()
			require.Equal(t, uint32(i), index)
			require.Equal(t, index, slot.IDValue())
		}
	})
}

func TestAlignGateCount(t *testing.T) {
	assert.Equal(t, 16, AlignGateCount(16))
	assert.Equal(t, 16, AlignGateCount(1))
	assert.Equal(t, 32, AlignGateCount(17))
	assert.Equal(t, 0, AlignGateCount(0))
}

func TestNewRayRing_GateCapacityDividesPulseCapacity(t *testing.T) {
	r := NewRayRing(2, 512, 4)
	_, ray := r.GetVacant()
	require.GreaterOrEqual(t, len(ray.Data[ProductZ]), 512/4)
}
