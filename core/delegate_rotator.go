//go:build linux

package core

/*------------------------------------------------------------------
 *
 * Purpose:	Pedestal delegate driving an antenna rotator through hamlib
 *		(`ppi <el> <speed>`, `stop`).
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"sync"
	"time"

	hamlib "github.com/xylo04/goHamlib"
)

// HamlibRotator is a Pedestal delegate that positions an antenna through a
// hamlib-supported rotator and writes the rotator's read-back position into
// the radar's position ring every 5 ms.
type HamlibRotator struct {
	model int
	port  string

	mu      sync.Mutex
	rig     *hamlib.Rig
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	radar   *Radar
	azimuth float64
}

// NewHamlibRotator builds a delegate that will open the given hamlib model
// on port when Init is called.
func NewHamlibRotator(model int, port string) *HamlibRotator {
	return &HamlibRotator{model: model, port: port}
}

// Init opens the rig and spawns the position-producer goroutine.
func (h *HamlibRotator) Init(r *Radar) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rig := hamlib.NewRig(h.model)
	if err := rig.SetConf("rig_pathname", h.port); err != nil {
		return fmt.Errorf("radarkit: hamlib rotator: set port %s: %w", h.port, err)
	}
	if err := rig.Open(); err != nil {
		return fmt.Errorf("radarkit: hamlib rotator: open: %w", err)
	}
	h.rig = rig
	h.radar = r

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.wg.Add(1)
	go h.run(ctx)
	return nil
}

// Exec accepts `ppi <el> <speed>` (moves to elevation el at the current
// azimuth; speed is parsed but not applied) and `stop`. Any other command,
// `rhi <az_range>` included, is rejected as unrecognized.
func (h *HamlibRotator) Exec(cmd string) (string, error) {
	h.mu.Lock()
	rig := h.rig
	h.mu.Unlock()
	if rig == nil {
		return "", fmt.Errorf("radarkit: hamlib rotator: not initialized")
	}

	var el float64
	var speed string
	switch {
	case cmd == "stop":
		return "stopped", rig.StopRotator()
	default:
		n, err := fmt.Sscanf(cmd, "ppi %f %s", &el, &speed)
		if err != nil || n != 2 {
			return "", fmt.Errorf("radarkit: hamlib rotator: unrecognized command %q", cmd)
		}
		if err := rig.SetPosition(h.azimuth, el); err != nil {
			return "", fmt.Errorf("radarkit: hamlib rotator: set position: %w", err)
		}
		return "ok", nil
	}
}

// Free stops the position-producer goroutine and closes the rig.
func (h *HamlibRotator) Free() {
	h.mu.Lock()
	cancel := h.cancel
	rig := h.rig
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	h.wg.Wait()
	if rig != nil {
		rig.Close()
	}
}

func (h *HamlibRotator) run(ctx context.Context) {
	defer h.wg.Done()
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			az, el, err := h.rig.GetPosition()
			if err != nil {
				h.radar.Proc.Warnf("hamlib rotator: get position: %v", err)
				continue
			}
			h.mu.Lock()
			h.azimuth = az
			h.mu.Unlock()

			_, slot := h.radar.Positions.GetVacant()
			slot.Position = Position{
				Tic:              uint64(time.Now().UnixNano()),
				AzimuthDegrees:   float32(az),
				ElevationDegrees: float32(el),
			}
			slot.Position.Time = WallTimeFromDouble(h.radar.PositionClock.GetTime(slot.Position.Tic, float64(time.Now().UnixNano())/1e9))
			h.radar.Positions.SetReady(slot, StatusReady)
		}
	}
}
