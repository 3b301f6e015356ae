package core

// This file implements the Statused interface (core/ring.go) for every slot
// type carried by a ring: Pulse, Position, Config, Ray. Rings always hold
// pointers to these types so that mutation through the interface reaches
// the backing slice element.

func (p *Pulse) StatusValue() PulseStatus     { return p.Header.Status }
func (p *Pulse) SetStatusValue(s PulseStatus) { p.Header.Status = s }
func (p *Pulse) IDValue() uint32              { return p.Header.ID }
func (p *Pulse) SetIDValue(id uint32)         { p.Header.ID = id }

// positionStatus tracks only Vacant/Ready; positions have no multi-stage
// pipeline of their own, but Ring[T] requires the interface uniformly.
type positionStatus struct {
	status PulseStatus
}

// PositionSlot wraps a Position with the bookkeeping a Ring needs, keeping
// Position itself a plain value type for easy copying by the Tagger.
type PositionSlot struct {
	Position
	positionStatus
}

func (p *PositionSlot) StatusValue() PulseStatus     { return p.status }
func (p *PositionSlot) SetStatusValue(s PulseStatus) { p.status = s }
func (p *PositionSlot) IDValue() uint32              { return p.Position.ID }
func (p *PositionSlot) SetIDValue(id uint32)         { p.Position.ID = id }

// ConfigSlot wraps a Config for ring storage. The config ring is append-only
// in spirit; Vacant/Ready bracket publication the same as any other ring so
// readers can busy-wait for a config index to be published.
type ConfigSlot struct {
	Config
	status PulseStatus
}

func (c *ConfigSlot) StatusValue() PulseStatus     { return c.status }
func (c *ConfigSlot) SetStatusValue(s PulseStatus) { c.status = s }
func (c *ConfigSlot) IDValue() uint32              { return c.Config.ID }
func (c *ConfigSlot) SetIDValue(id uint32)         { c.Config.ID = id }

func (r *Ray) StatusValue() PulseStatus     { return r.Header.Status }
func (r *Ray) SetStatusValue(s PulseStatus) { r.Header.Status = s }
func (r *Ray) IDValue() uint32              { return r.Header.ID }
func (r *Ray) SetIDValue(id uint32)         { r.Header.ID = id }
