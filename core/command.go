package core

/*------------------------------------------------------------------
 *
 * Purpose:	Parse and dispatch the control-command text protocol onto a
 *		Radar's config publisher and pedestal delegate.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"strings"
)

// SystemProfile is one row of the `s <level>` system-profile table: gate
// count, worker count and pulse-to-ray ratio bundled under a single level
// 0..6.
type SystemProfile struct {
	Level           int
	GateCount       int
	PulseToRayRatio int
	WorkerCount     int
}

// DefaultSystemProfiles is a representative 0..6 ladder: higher levels trade
// gate resolution for a coarser pulse-to-ray ratio and more workers.
var DefaultSystemProfiles = [7]SystemProfile{
	{Level: 0, GateCount: 512, PulseToRayRatio: 1, WorkerCount: 2},
	{Level: 1, GateCount: 1024, PulseToRayRatio: 1, WorkerCount: 2},
	{Level: 2, GateCount: 1024, PulseToRayRatio: 2, WorkerCount: 4},
	{Level: 3, GateCount: 2048, PulseToRayRatio: 2, WorkerCount: 4},
	{Level: 4, GateCount: 2048, PulseToRayRatio: 4, WorkerCount: 6},
	{Level: 5, GateCount: 4096, PulseToRayRatio: 4, WorkerCount: 8},
	{Level: 6, GateCount: 4096, PulseToRayRatio: 8, WorkerCount: 10},
}

// Command dispatches parsed control-command lines against a Radar.
type Command struct {
	radar *Radar
}

// NewCommand builds a dispatcher bound to radar.
func NewCommand(radar *Radar) *Command { return &Command{radar: radar} }

// Dispatch parses one newline-terminated line (the newline itself already
// stripped by the caller) and applies its effect, returning a one-line
// reply.
func (c *Command) Dispatch(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", fmt.Errorf("radarkit: command: empty line")
	}

	switch fields[0] {
	case "s":
		return c.setSystemProfile(fields[1:])
	case "f":
		return c.setPRF(fields[1:])
	case "t":
		if len(fields) >= 3 && fields[1] == "w" {
			return c.loadWaveform(fields[2])
		}
		return "", fmt.Errorf("radarkit: command: malformed t command %q", line)
	case "p":
		if len(fields) >= 4 && fields[1] == "ppi" {
			return c.beginPPI(fields[2], fields[3])
		}
		return "", fmt.Errorf("radarkit: command: malformed p command %q", line)
	case "v":
		return c.setVerbosity(fields[1:])
	default:
		return "", fmt.Errorf("radarkit: command: unrecognized prefix %q", fields[0])
	}
}

func (c *Command) currentConfig() *Config {
	idx := c.radar.Configs.ProducerIndex()
	if idx == 0 {
		return nil
	}
	slot := c.radar.Configs.Slot(idx - 1)
	cfg := slot.Config
	return &cfg
}

func (c *Command) setSystemProfile(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("radarkit: command: s requires a level")
	}
	level, err := strconv.Atoi(args[0])
	if err != nil || level < 0 || level >= len(DefaultSystemProfiles) {
		return "", fmt.Errorf("radarkit: command: invalid system profile level %q", args[0])
	}
	profile := DefaultSystemProfiles[level]
	cfg := NewConfigBuilder(c.currentConfig()).Apply(
		ConfigUpdate{Key: ConfigKeyPulseToRayRatio, Float: float64(profile.PulseToRayRatio)},
	).Build()
	index := c.radar.ConfigPublisher.Publish(cfg)
	return fmt.Sprintf("profile %d applied, config %d", level, index), nil
}

func (c *Command) setPRF(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("radarkit: command: f requires <prf>[,<sprt>]")
	}
	parts := strings.SplitN(args[0], ",", 2)
	prf, err := strconv.ParseFloat(parts[0], 64)
	if err != nil || prf <= 0 {
		return "", fmt.Errorf("radarkit: command: invalid prf %q", parts[0])
	}
	sprt := 0.0
	if len(parts) == 2 {
		sprt, err = strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return "", fmt.Errorf("radarkit: command: invalid sprt %q", parts[1])
		}
	}
	updates := []ConfigUpdate{{Key: ConfigKeyPRF, Floats: []float64{prf}}}
	if sprt > 0 {
		updates = append(updates, ConfigUpdate{Key: ConfigKeySPRT, Float: sprt})
	}
	cfg := NewConfigBuilder(c.currentConfig()).Apply(updates...).Build()
	index := c.radar.ConfigPublisher.Publish(cfg)
	if c.radar.Transceiver != nil {
		if _, err := c.radar.Transceiver.Exec("f " + args[0]); err != nil {
			return "", fmt.Errorf("radarkit: command: transceiver rejected prf: %w", err)
		}
	}
	return fmt.Sprintf("prf %.1f applied, config %d", prf, index), nil
}

func (c *Command) loadWaveform(name string) (string, error) {
	if _, ok := c.radar.waveforms[name]; !ok {
		return "", fmt.Errorf("radarkit: command: unknown waveform %q", name)
	}
	cfg := NewConfigBuilder(c.currentConfig()).Apply(
		ConfigUpdate{Key: ConfigKeyWaveformName, Str: name},
	).Build()
	index := c.radar.ConfigPublisher.Publish(cfg)
	if c.radar.Transceiver != nil {
		if _, err := c.radar.Transceiver.Exec("w " + name); err != nil {
			return "", fmt.Errorf("radarkit: command: transceiver rejected waveform: %w", err)
		}
	}
	return fmt.Sprintf("waveform %s loaded, config %d", name, index), nil
}

func (c *Command) beginPPI(elevation, speed string) (string, error) {
	if c.radar.Pedestal == nil {
		return "", fmt.Errorf("radarkit: command: no pedestal delegate configured")
	}
	el, err := strconv.ParseFloat(elevation, 64)
	if err != nil {
		return "", fmt.Errorf("radarkit: command: invalid elevation %q", elevation)
	}
	cfg := NewConfigBuilder(c.currentConfig()).Apply(
		ConfigUpdate{Key: ConfigKeyScanType, ScanType: ScanPPI},
		ConfigUpdate{Key: ConfigKeySweepElevation, Float: el},
		ConfigUpdate{Key: ConfigKeyStartMarker, Marker: MarkerSweepBegin | MarkerPPI},
	).Build()
	c.radar.ConfigPublisher.Publish(cfg)
	return c.radar.Pedestal.Exec(fmt.Sprintf("ppi %s %s", elevation, speed))
}

func (c *Command) setVerbosity(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("radarkit: command: v requires a level")
	}
	level, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("radarkit: command: invalid verbosity %q", args[0])
	}
	c.radar.Proc.SetVerbosity(level)
	return fmt.Sprintf("verbosity %d", level), nil
}
