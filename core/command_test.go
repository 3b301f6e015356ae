package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommandRadar(t *testing.T) *Radar {
	t.Helper()
	desc := DefaultRadarDesc()
	desc.PulseGateCapacity = 64
	desc.PulseBufferDepth = 8
	desc.PositionBufferDepth = 8
	desc.ConfigBufferDepth = 8
	desc.RayBufferDepth = 8
	waveforms := map[string]*Waveform{
		"impulse": {Name: "impulse", Anchors: []FilterAnchor{{MaxDataLength: 64, Taps: []complex128{1}}}},
	}
	proc := NewProcess(t.TempDir())
	radar, err := NewRadar(desc, proc, waveforms, nil, nil)
	require.NoError(t, err)
	return radar
}

func TestCommand_SetSystemProfile(t *testing.T) {
	radar := testCommandRadar(t)
	cmd := NewCommand(radar)
	reply, err := cmd.Dispatch("s 3")
	require.NoError(t, err)
	assert.Contains(t, reply, "profile 3 applied")

	cfg := radar.Configs.Slot(0).Config
	assert.Equal(t, DefaultSystemProfiles[3].PulseToRayRatio, cfg.PulseToRayRatio)
}

func TestCommand_SetSystemProfile_RejectsOutOfRangeLevel(t *testing.T) {
	radar := testCommandRadar(t)
	cmd := NewCommand(radar)
	_, err := cmd.Dispatch("s 99")
	assert.Error(t, err)
}

func TestCommand_SetPRF(t *testing.T) {
	radar := testCommandRadar(t)
	cmd := NewCommand(radar)
	reply, err := cmd.Dispatch("f 1200,0.8")
	require.NoError(t, err)
	assert.Contains(t, reply, "prf 1200.0 applied")
	cfg := radar.Configs.Slot(0).Config
	assert.Equal(t, []float64{1200}, cfg.PRFHz)
	assert.Equal(t, 0.8, cfg.SPRT)
}

func TestCommand_SetPRF_RejectsNonPositive(t *testing.T) {
	radar := testCommandRadar(t)
	cmd := NewCommand(radar)
	_, err := cmd.Dispatch("f -5")
	assert.Error(t, err)
}

func TestCommand_LoadWaveform(t *testing.T) {
	radar := testCommandRadar(t)
	cmd := NewCommand(radar)
	reply, err := cmd.Dispatch("t w impulse")
	require.NoError(t, err)
	assert.Contains(t, reply, "waveform impulse loaded")
}

func TestCommand_LoadWaveform_UnknownName(t *testing.T) {
	radar := testCommandRadar(t)
	cmd := NewCommand(radar)
	_, err := cmd.Dispatch("t w nonexistent")
	assert.Error(t, err)
}

func TestCommand_BeginPPI_RequiresPedestal(t *testing.T) {
	radar := testCommandRadar(t)
	cmd := NewCommand(radar)
	_, err := cmd.Dispatch("p ppi 0.5 20")
	assert.Error(t, err)

	radar.Pedestal = NewSyntheticPedestal(20, 0.5)
	reply, err := cmd.Dispatch("p ppi 0.5 20")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestCommand_SetVerbosity(t *testing.T) {
	radar := testCommandRadar(t)
	cmd := NewCommand(radar)
	reply, err := cmd.Dispatch("v 2")
	require.NoError(t, err)
	assert.Equal(t, "verbosity 2", reply)
	assert.Equal(t, 2, radar.Proc.Verbosity())
}

func TestCommand_Dispatch_UnrecognizedPrefix(t *testing.T) {
	radar := testCommandRadar(t)
	cmd := NewCommand(radar)
	_, err := cmd.Dispatch("zzz nonsense")
	assert.Error(t, err)
}

func TestCommand_Dispatch_EmptyLine(t *testing.T) {
	radar := testCommandRadar(t)
	cmd := NewCommand(radar)
	_, err := cmd.Dispatch("")
	assert.Error(t, err)
}
