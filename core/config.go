package core

/*------------------------------------------------------------------
 *
 * Purpose:	Config is an append-only snapshot of slowly-varying radar
 *		parameters. A new config is always a full copy of the
 *		previous one with a list of tagged overrides applied,
 *		then atomically published into the config ring.
 *
 *------------------------------------------------------------------*/

import "sync"

// ConfigKey tags one field of a config update, mirroring the original's
// RKConfigKey enumeration (RKConfigKeyPRF, RKConfigKeyWaveformId,
// RKConfigKeySystemZCal, RKConfigKeyZCal, RKConfigKeySNRThreshold, ...).
type ConfigKey int

const (
	ConfigKeyPRF ConfigKey = iota
	ConfigKeySPRT
	ConfigKeyWaveformName
	ConfigKeyNoise
	ConfigKeySystemZCal
	ConfigKeyFilterCal
	ConfigKeySNRThreshold
	ConfigKeySQIThreshold
	ConfigKeySweepAzimuth
	ConfigKeySweepElevation
	ConfigKeyScanType
	ConfigKeyPulseToRayRatio
	ConfigKeyGateSizeMeters
	ConfigKeyStartMarker
)

// ConfigUpdate is one tagged override applied by a ConfigBuilder.
type ConfigUpdate struct {
	Key   ConfigKey
	Float float64
	Floats []float64
	Str   string
	Cal   []FilterCalibration
	Marker Marker
	ScanType ScanType
}

// ConfigBuilder consumes a previous config and applies a list of tagged
// updates, producing the next full snapshot.
type ConfigBuilder struct {
	next Config
}

// NewConfigBuilder seeds a builder from the previous config (or a zero
// value for the very first config).
func NewConfigBuilder(previous *Config) *ConfigBuilder {
	b := &ConfigBuilder{}
	if previous != nil {
		b.next = *previous
		// Deep-copy slice fields so mutating the builder never aliases the
		// previous snapshot: configs are append-only.
		b.next.PRFHz = append([]float64(nil), previous.PRFHz...)
		b.next.FilterCal = append([]FilterCalibration(nil), previous.FilterCal...)
	}
	return b
}

// Apply folds a list of updates into the builder in order.
func (b *ConfigBuilder) Apply(updates ...ConfigUpdate) *ConfigBuilder {
	for _, u := range updates {
		switch u.Key {
		case ConfigKeyPRF:
			b.next.PRFHz = u.Floats
		case ConfigKeySPRT:
			b.next.SPRT = u.Float
		case ConfigKeyWaveformName:
			b.next.WaveformName = u.Str
		case ConfigKeyNoise:
			if len(u.Floats) >= 2 {
				b.next.NoiseH, b.next.NoiseV = u.Floats[0], u.Floats[1]
			}
		case ConfigKeySystemZCal:
			if len(u.Floats) >= 2 {
				b.next.SystemZCal = [2]float64{u.Floats[0], u.Floats[1]}
			}
		case ConfigKeyFilterCal:
			b.next.FilterCal = u.Cal
		case ConfigKeySNRThreshold:
			b.next.SNRThreshold = u.Float
		case ConfigKeySQIThreshold:
			b.next.SQIThreshold = u.Float
		case ConfigKeySweepAzimuth:
			b.next.SweepAzimuthDegrees = u.Float
		case ConfigKeySweepElevation:
			b.next.SweepElevationDegrees = u.Float
		case ConfigKeyScanType:
			b.next.ScanType = u.ScanType
		case ConfigKeyPulseToRayRatio:
			b.next.PulseToRayRatio = int(u.Float)
		case ConfigKeyGateSizeMeters:
			b.next.GateSizeMeters = u.Float
		case ConfigKeyStartMarker:
			b.next.StartMarker = u.Marker
		}
	}
	return b
}

// Build returns the finished snapshot. The ring index is assigned by
// Publish, not here, so Build is pure.
func (b *ConfigBuilder) Build() Config { return b.next }

// ConfigPublisher serializes config appends behind a mutex of its own; log
// writes do not take this mutex.
type ConfigPublisher struct {
	mu   sync.Mutex
	ring *Ring[*ConfigSlot]
}

// NewConfigPublisher wraps a config ring for serialized publication.
func NewConfigPublisher(ring *Ring[*ConfigSlot]) *ConfigPublisher {
	return &ConfigPublisher{ring: ring}
}

// Publish appends a new config snapshot and returns its assigned index.
// Readers identify a config by this monotonic index so that publishing a
// new config never invalidates in-flight references.
func (p *ConfigPublisher) Publish(cfg Config) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	index, slot := p.ring.GetVacant()
	cfg.ID = index
	slot.Config = cfg
	p.ring.SetReady(slot, StatusReady)
	return index
}
