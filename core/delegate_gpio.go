//go:build linux

package core

/*------------------------------------------------------------------
 *
 * Purpose:	Health relay delegate that toggles a GPIO status line once
 *		per heartbeat so an external watchdog can observe liveness.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// HealthRelayHeartbeat is the toggle period, approximately 1 Hz.
const HealthRelayHeartbeat = time.Second

// GPIOHealthRelay is a HealthRelay delegate that flips chipLine high/low
// every heartbeat so an external watchdog can observe liveness on a status
// GPIO, and forwards Exec commands as no-ops (the relay has no text
// protocol of its own beyond the generic delegate triple).
type GPIOHealthRelay struct {
	chip   string
	offset int

	mu     sync.Mutex
	line   *gpiocdev.Line
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGPIOHealthRelay builds a relay that will request chip/offset as an
// output line when Init is called.
func NewGPIOHealthRelay(chip string, offset int) *GPIOHealthRelay {
	return &GPIOHealthRelay{chip: chip, offset: offset}
}

// Init requests the GPIO line and spawns the heartbeat goroutine.
func (g *GPIOHealthRelay) Init(r *Radar) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	line, err := gpiocdev.RequestLine(g.chip, g.offset, gpiocdev.AsOutput(0))
	if err != nil {
		return fmt.Errorf("radarkit: gpio health relay: request %s:%d: %w", g.chip, g.offset, err)
	}
	g.line = line

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.wg.Add(1)
	go g.run(ctx, r)
	return nil
}

// Exec accepts the generic health-relay command surface; there is nothing
// for the GPIO toggle itself to do with a text command, so it always
// succeeds.
func (g *GPIOHealthRelay) Exec(cmd string) (string, error) {
	return "ok", nil
}

// Free stops the heartbeat goroutine and releases the line.
func (g *GPIOHealthRelay) Free() {
	g.mu.Lock()
	cancel := g.cancel
	line := g.line
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	g.wg.Wait()
	if line != nil {
		line.Close()
	}
}

func (g *GPIOHealthRelay) run(ctx context.Context, r *Radar) {
	defer g.wg.Done()
	ticker := time.NewTicker(HealthRelayHeartbeat)
	defer ticker.Stop()
	value := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			value = 1 - value
			if err := g.line.SetValue(value); err != nil {
				r.Proc.Warnf("gpio health relay: set value: %v", err)
			}
		}
	}
}
