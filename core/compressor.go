package core

/*------------------------------------------------------------------
 *
 * Purpose:	Convolve each freshly arrived raw pulse with the matched
 *		filter(s) for its waveform, writing the compressed result
 *		back into the same pulse slot.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// dutyCycleWindow is the number of most recent dispatch periods DutyCycle
// averages over.
const dutyCycleWindow = 16

// WaveformLookup resolves a config's active waveform name to its filter
// anchors. Unknown waveforms pass the pulse through unchanged with a
// one-time warning.
type WaveformLookup func(name string) (*Waveform, bool)

// CompressorWorker holds one worker's duty-cycle estimator and input queue.
type CompressorWorker struct {
	id     int
	input  chan uint32
	cursor *Cursor[*Pulse]

	periodMu     sync.Mutex
	busyPeriods  [dutyCycleWindow]int64 // nanoseconds spent inside compress(), one slot per period
	fullPeriods  [dutyCycleWindow]int64 // nanoseconds elapsed (idle + busy) over that same period
	periodIndex  int
	lastTick     time.Time

	// scratch holds a copy of each channel's raw input. The matched filter
	// reads neighboring input gates while writing output gates of the same
	// slot, so it reads from this copy and writes into slot.Samples;
	// reading from slot.Samples directly would let later gates read
	// already overwritten earlier output.
	scratch [2][]IQ
}

// recordPeriod folds one dispatch period's busy/full duration into the
// rolling window, overwriting the oldest entry.
func (w *CompressorWorker) recordPeriod(busy, full time.Duration) {
	w.periodMu.Lock()
	w.busyPeriods[w.periodIndex] = busy.Nanoseconds()
	w.fullPeriods[w.periodIndex] = full.Nanoseconds()
	w.periodIndex = (w.periodIndex + 1) % dutyCycleWindow
	w.periodMu.Unlock()
}

// DutyCycle returns the worker's rolling busy/total ratio over the window
// accumulated so far: the fraction of wall-clock time spent inside
// compress() rather than waiting on its input channel.
func (w *CompressorWorker) DutyCycle() float64 {
	w.periodMu.Lock()
	defer w.periodMu.Unlock()
	var busy, full int64
	for i := range w.fullPeriods {
		busy += w.busyPeriods[i]
		full += w.fullPeriods[i]
	}
	if full == 0 {
		return 0
	}
	return float64(busy) / float64(full)
}

// Compressor is the Pulse Compressor engine: P workers consuming from a
// pulse ring, dispatched round-robin by a global slot counter.
type Compressor struct {
	ring    *Ring[*Pulse]
	lookup  WaveformLookup
	configs ConfigIndexLookup
	log     *Process

	workers []*CompressorWorker
	next    atomic.Uint32

	almostFull atomic.Int64
	unknownWaveformWarned sync.Map

	active atomic.Bool
	wg     sync.WaitGroup
}

// ConfigIndexLookup resolves a config index (as stamped on a pulse) to the
// Config snapshot active at that point.
type ConfigIndexLookup func(index uint32) (*Config, bool)

// NewCompressor builds a compressor with workerCount workers reading from
// ring, resolving waveforms via lookup and configs via configs.
func NewCompressor(ring *Ring[*Pulse], workerCount int, lookup WaveformLookup, configs ConfigIndexLookup, proc *Process) *Compressor {
	c := &Compressor{ring: ring, lookup: lookup, configs: configs, log: proc}
	gateCapacity := len(ring.Slot(0).Samples[ChannelH])
	c.workers = make([]*CompressorWorker, workerCount)
	for i := range c.workers {
		c.workers[i] = &CompressorWorker{
			id:     i,
			input:  make(chan uint32, 64),
			cursor: NewCursor(ring, 0),
			scratch: [2][]IQ{
				make([]IQ, gateCapacity),
				make([]IQ, gateCapacity),
			},
		}
	}
	return c
}

// AlmostFull returns the count of backpressure warnings raised so far (a
// worker falling behind by more than 0.9 of the ring's depth).
func (c *Compressor) AlmostFull() int64 { return c.almostFull.Load() }

// Start launches the gathering goroutine and the worker pool. It returns
// once every goroutine has been spawned; Stop blocks until they exit.
func (c *Compressor) Start(ctx context.Context) {
	c.active.Store(true)
	for _, w := range c.workers {
		c.wg.Add(1)
		go c.runWorker(ctx, w)
	}
	c.wg.Add(1)
	go c.runGatherer(ctx)
}

// Stop requests shutdown; any worker mid-pulse finishes its current unit
// before observing the flag.
func (c *Compressor) Stop() {
	c.active.Store(false)
	c.wg.Wait()
}

func (c *Compressor) runGatherer(ctx context.Context) {
	defer c.wg.Done()
	cursor := NewCursor(c.ring, 0)
	for c.active.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !cursor.Ready(StatusHasIQData) {
			pollSleep()
			continue
		}
		index, _ := cursor.Advance()
		workerIdx := c.next.Add(1) - 1
		w := c.workers[int(workerIdx)%len(c.workers)]
		select {
		case w.input <- index:
		case <-ctx.Done():
			return
		}

		if w.cursor.Lag() > 0.9 {
			c.almostFull.Add(1)
		}
	}
}

func (c *Compressor) runWorker(ctx context.Context, w *CompressorWorker) {
	defer c.wg.Done()
	w.lastTick = time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case index, ok := <-w.input:
			if !ok {
				return
			}
			tickStart := time.Now()
			idle := tickStart.Sub(w.lastTick)
			c.compress(w, index)
			busy := time.Since(tickStart)
			w.recordPeriod(busy, idle+busy)
			w.lastTick = time.Now()
			w.cursor.index.Store(index + 1)
			if !c.active.Load() {
				return
			}
		}
	}
}

func (c *Compressor) compress(w *CompressorWorker, index uint32) {
	slot := c.ring.Slot(index)
	cfg, ok := c.configs(slot.Header.ConfigIndex)
	if !ok {
		slot.SetStatusValue(slot.StatusValue() | StatusCompressed)
		return
	}
	waveform, ok := c.lookup(cfg.WaveformName)
	if !ok {
		// Unknown waveform: pass through unchanged with a one-time warning.
		if _, already := c.unknownWaveformWarned.LoadOrStore(cfg.WaveformName, true); !already && c.log != nil {
			c.log.Warnf("compressor: unknown waveform %q, passing pulses through unchanged", cfg.WaveformName)
		}
		slot.SetStatusValue(slot.StatusValue() | StatusCompressed)
		return
	}

	for ch := 0; ch < 2; ch++ {
		copy(w.scratch[ch], slot.Samples[ch])
	}

	for _, anchor := range waveform.Anchors {
		if len(anchor.Taps) == 0 {
			// A zero-length filter is a configuration error; panic instead
			// of silently producing garbage output. Nothing in the
			// compressor recovers this panic, so it ends the process, not
			// only this worker.
			panic("radarkit: compressor: zero-length matched filter")
		}
		if anchor.InputOrigin >= int(slot.Header.GateCount) {
			continue
		}
		Convolve(slot.Samples[ChannelH], w.scratch[ChannelH], anchor)
		Convolve(slot.Samples[ChannelV], w.scratch[ChannelV], anchor)
	}

	slot.SetStatusValue(slot.StatusValue() | StatusCompressed)
}
