// Package dma implements the GBA's four DMA channels: latch-on-enable
// semantics, the four trigger conditions (Immediate, VBlank, HBlank,
// Special), per-channel address step rules, and repeat/IRQ-on-completion.
package dma

// Timing identifies when a channel fires.
type Timing int

const (
	TimingImmediate Timing = iota
	TimingVBlank
	TimingHBlank
	TimingSpecial
)

// AddrControl is the 2-bit step-per-unit control for source/destination.
type AddrControl int

const (
	AddrIncrement AddrControl = iota
	AddrDecrement
	AddrFixed
	AddrIncrementReload // dest only: increment, but reload to base on repeat
)

// Bus is the subset of system-bus access DMA needs to move words/halfwords.
type Bus interface {
	Read16(addr uint32) (uint16, int)
	Read32(addr uint32) (uint32, int)
	Write16(addr uint32, v uint16) int
	Write32(addr uint32, v uint32) int
}

// IRQRaiser lets a completed channel request its IRQ line.
type IRQRaiser interface {
	RaiseDMA(channel int)
}

// Channel holds one DMA channel's latched registers and live state. "Latched"
// fields are copied from the MMIO shadow only when the channel transitions
// from disabled to enabled: writes to SAD/DAD/CNT while a channel
// is running do not affect the in-flight transfer.
type Channel struct {
	index int

	SrcAddr   uint32
	DstAddr   uint32
	WordCount uint32

	SrcControl AddrControl
	DstControl AddrControl
	Repeat     bool
	WordSized  bool // true = 32-bit unit, false = 16-bit unit
	Timing     Timing
	IRQEnable  bool
	Enabled    bool
	DRQMode    bool // Special timing + channels 1/2: drive the audio FIFO instead of a normal count

	latchedSrc   uint32
	latchedDst   uint32
	latchedCount uint32
	running      bool
}

// maxCount is the wraparound word-count cap per channel: channel 3 has a
// full 16-bit counter, the others wrap at 14 bits.
func (c *Channel) maxCount() uint32 {
	if c.index == 3 {
		return 0x10000
	}
	return 0x4000
}

// Controller owns all four DMA channels and arbitrates which one runs when
// a trigger condition fires, in fixed channel-0-highest priority order.
type Controller struct {
	Channels [4]Channel
	bus      Bus
	irq      IRQRaiser
}

// New creates a controller with its four channels indexed 0..3.
func New(b Bus, irq IRQRaiser) *Controller {
	ctl := &Controller{bus: b, irq: irq}
	for i := range ctl.Channels {
		ctl.Channels[i].index = i
	}
	return ctl
}

// SetEnable transitions a channel's Enabled latch. Rising 0->1 latches the
// shadow SAD/DAD/CNT into the channel's live registers (spec's "latch on
// enable" rule); for Immediate timing this also runs the transfer inline.
func (ctl *Controller) SetEnable(ch int, enabled bool) {
	c := &ctl.Channels[ch]
	wasEnabled := c.Enabled
	c.Enabled = enabled
	if enabled && !wasEnabled {
		c.latchedSrc = c.SrcAddr
		c.latchedDst = c.DstAddr
		c.latchedCount = c.WordCount
		if c.latchedCount == 0 {
			c.latchedCount = c.maxCount()
		}
		c.running = true
		if c.Timing == TimingImmediate {
			ctl.run(c)
		}
	} else if !enabled {
		c.running = false
	}
}

// Trigger fires every channel currently armed for the given timing (VBlank,
// HBlank, or Special — DMA audio FIFO requests use Special with DRQMode).
func (ctl *Controller) Trigger(timing Timing) {
	for i := range ctl.Channels {
		c := &ctl.Channels[i]
		if c.running && c.Timing == timing {
			ctl.run(c)
		}
	}
}

// TriggerDRQ fires channel ch if it is running, Special-timed, and
// DRQ-driven, regardless of what else might be armed for Special timing.
// core.Machine calls this from a timer-overflow handler once it knows which
// Direct Sound FIFO (and therefore which fixed channel, 1 or 2) just
// dropped to half-full.
func (ctl *Controller) TriggerDRQ(ch int) {
	if ch < 0 || ch > 3 {
		return
	}
	c := &ctl.Channels[ch]
	if c.running && c.Timing == TimingSpecial && c.DRQMode {
		ctl.run(c)
	}
}

func (ctl *Controller) run(c *Channel) {
	unit := uint32(2)
	if c.WordSized {
		unit = 4
	}

	count := c.latchedCount
	if c.DRQMode {
		count = 4 // audio FIFO refill is always a fixed 4-word burst
	}

	src, dst := c.latchedSrc, c.latchedDst
	for i := uint32(0); i < count; i++ {
		if c.WordSized {
			v, _ := ctl.bus.Read32(src)
			ctl.bus.Write32(dst, v)
		} else {
			v, _ := ctl.bus.Read16(src)
			ctl.bus.Write16(dst, v)
		}
		src = stepAddr(src, c.SrcControl, unit)
		dst = stepAddr(dst, c.DstControl, unit)
	}
	c.latchedSrc = src
	c.latchedDst = dst

	if c.IRQEnable {
		ctl.irq.RaiseDMA(c.index)
	}

	if c.Repeat && c.Timing != TimingImmediate {
		c.latchedCount = c.WordCount
		if c.latchedCount == 0 {
			c.latchedCount = c.maxCount()
		}
		if c.DstControl == AddrIncrementReload {
			c.latchedDst = c.DstAddr
		}
	} else {
		c.running = false
		c.Enabled = false
	}
}

func stepAddr(addr uint32, ctrl AddrControl, unit uint32) uint32 {
	switch ctrl {
	case AddrDecrement:
		return addr - unit
	case AddrFixed:
		return addr
	default: // Increment, IncrementReload
		return addr + unit
	}
}
