package core

/*------------------------------------------------------------------
 *
 * Purpose:	Transceiver delegate driving raw pulses in over a serial
 *		link.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// SerialFrameMagic prefixes every pulse frame on the wire so the reader can
// resynchronize after a dropped byte.
const SerialFrameMagic = 0x524B5031 // "RKP1"

// SerialTransceiver is a Transceiver delegate reading fixed-frame binary
// pulses from a serial port: magic (4B) | tic (8B) | gateCount (2B) |
// interleaved H/V I/Q (gateCount*2*8B, float32 pairs).
type SerialTransceiver struct {
	portName string
	mode     *serial.Mode

	mu     sync.Mutex
	port   serial.Port
	radar  *Radar
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSerialTransceiver builds a delegate that will open portName at baud
// when Init is called.
func NewSerialTransceiver(portName string, baud int) *SerialTransceiver {
	return &SerialTransceiver{
		portName: portName,
		mode:     &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
	}
}

// Init opens the port and spawns the producer goroutine.
func (t *SerialTransceiver) Init(r *Radar) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	port, err := serial.Open(t.portName, t.mode)
	if err != nil {
		return fmt.Errorf("radarkit: serial transceiver: open %s: %w", t.portName, err)
	}
	t.port = port
	t.radar = r

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.wg.Add(1)
	go t.run(ctx)
	return nil
}

// Exec implements the transceiver's text command surface by forwarding the
// line to the hardware and reading back nothing (the hardware's own ack, if
// any, arrives as ordinary frame noise the reader discards).
func (t *SerialTransceiver) Exec(cmd string) (string, error) {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()
	if port == nil {
		return "", fmt.Errorf("radarkit: serial transceiver: not initialized")
	}
	if _, err := port.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("radarkit: serial transceiver: write: %w", err)
	}
	return "ok", nil
}

// Free stops the producer goroutine and closes the port.
func (t *SerialTransceiver) Free() {
	t.mu.Lock()
	cancel := t.cancel
	port := t.port
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
	if port != nil {
		port.Close()
	}
}

func (t *SerialTransceiver) run(ctx context.Context) {
	defer t.wg.Done()
	reader := bufio.NewReaderSize(t.port, 1<<20)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := t.readFrame(reader); err != nil {
			if err == io.EOF {
				return
			}
			// A malformed frame is logged as a warning; the next readFrame
			// call resyncs on the next magic word.
			t.radar.Proc.Warnf("serial transceiver: %v", err)
		}
	}
}

func (t *SerialTransceiver) readFrame(r *bufio.Reader) error {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return err
	}
	for magic != SerialFrameMagic {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		magic = magic>>8 | uint32(b)<<24
	}
	var header struct {
		Tic       uint64
		GateCount uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return err
	}

	_, slot := t.radar.Pulses.GetVacant()
	gateCount := int(header.GateCount)
	if gateCount > len(slot.Samples[ChannelH]) {
		gateCount = len(slot.Samples[ChannelH])
	}
	for gate := 0; gate < gateCount; gate++ {
		var iq [2]struct{ I, Q float32 }
		if err := binary.Read(r, binary.LittleEndian, &iq); err != nil {
			return err
		}
		slot.Samples[ChannelH][gate] = IQ{I: iq[0].I, Q: iq[0].Q}
		slot.Samples[ChannelV][gate] = IQ{I: iq[1].I, Q: iq[1].Q}
	}

	slot.Header.Tic = header.Tic
	slot.Header.GateCount = uint16(gateCount)
	// This wire format carries no separately-latched wall-clock observation,
	// so the aligner only ever extrapolates (obs=0); a transceiver able to
	// latch a GPS/NTP timestamp alongside the tick would pass it as obs
	// instead, letting the aligner actually fit a/b.
	slot.Header.Time = WallTimeFromDouble(t.radar.PulseClock.GetTime(header.Tic, 0))
	if produced := t.radar.Configs.ProducerIndex(); produced > 0 {
		slot.Header.ConfigIndex = produced - 1
	}

	t.radar.Pulses.SetReady(slot, StatusHasIQData)
	return nil
}
