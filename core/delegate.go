package core

/*------------------------------------------------------------------
 *
 * Purpose:	Capability traits for the three pluggable hardware drivers:
 *		Transceiver, Pedestal, Health relay. Each is an
 *		(init, exec, free) triple.
 *
 *------------------------------------------------------------------*/

// Transceiver is the hardware delegate that feeds raw pulses into a Radar's
// pulse ring. Init spawns the producer thread; it must not block past
// spawning it.
type Transceiver interface {
	// Init spawns a producer goroutine that calls r.Pulses.GetVacant and
	// r.Pulses.SetReady(slot, StatusHasIQData) for every arriving pulse.
	Init(r *Radar) error
	// Exec accepts a text command (`w <waveform>`, `g <gate>`,
	// `f <prf>[,sprt]`, `z <sleep>`, `stop`, `disconnect`) and returns a
	// one-line reply.
	Exec(cmd string) (string, error)
	// Free stops the producer goroutine and releases any handle Init opened.
	Free()
}

// Pedestal is the hardware delegate that feeds position fixes into a
// Radar's position ring.
type Pedestal interface {
	Init(r *Radar) error
	// Exec accepts `ppi <el> <speed>`, `rhi <az_range>`, `stop`.
	Exec(cmd string) (string, error)
	Free()
}

// HealthRelay is the hardware delegate that publishes periodic (~1 Hz)
// health blobs. The health ring itself is outside this module's scope
// (file manager/command-center concerns); the relay is kept as a
// capability trait so a concrete delegate has somewhere to plug in.
type HealthRelay interface {
	Init(r *Radar) error
	Exec(cmd string) (string, error)
	Free()
}
