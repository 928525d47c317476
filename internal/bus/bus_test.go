package bus

import (
	"testing"

	"github.com/rbrandao/goba/internal/apu"
	"github.com/rbrandao/goba/internal/cart"
	"github.com/rbrandao/goba/internal/dma"
	"github.com/rbrandao/goba/internal/irqc"
	"github.com/rbrandao/goba/internal/timer"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	rom := make([]byte, 0x200)
	copy(rom[0xA0:], "TESTGAME")
	c, err := cart.Load(rom)
	if err != nil {
		t.Fatalf("cart.Load: %v", err)
	}
	b := New(c)
	b.Timer = timer.New(b.IRQ)
	b.DMA = dma.New(b, b.IRQ)
	b.APU = apu.New(48000)
	return b
}

func TestBus_RegionRouting(t *testing.T) {
	b := newTestBus(t)

	b.Write8(0x02000100, 0xAB)
	if v, _ := b.Read8(0x02000100); v != 0xAB {
		t.Fatalf("EWRAM round trip got %02x", v)
	}

	b.Write8(0x03000010, 0xCD)
	if v, _ := b.Read8(0x03000010); v != 0xCD {
		t.Fatalf("IWRAM round trip got %02x", v)
	}

	b.Write16(0x05000000, 0x1234)
	if v, _ := b.Read16(0x05000000); v != 0x1234 {
		t.Fatalf("Palette round trip got %04x", v)
	}

	b.Write32(0x07000000, 0xDEADBEEF)
	if v, _ := b.Read32(0x07000000); v != 0xDEADBEEF {
		t.Fatalf("OAM round trip got %08x", v)
	}
}

func TestBus_VRAMMirrorsAbove96K(t *testing.T) {
	b := newTestBus(t)
	// Halfword write: the OBJ-tile-range byte-write quirk only special-cases
	// 8-bit stores, so this exercises the mirror independent of that.
	b.Write16(0x06010000, 0x7777) // 64KB in, within the real 96KB
	if v, _ := b.Read16(0x06018000); v != 0x7777 {
		t.Fatalf("VRAM 96K+ mirror got %04x, want 7777", v)
	}
}

func TestBus_ROMReadsBackingImage(t *testing.T) {
	b := newTestBus(t)
	b.Cart.ROM[0x50] = 0x99
	if v, _ := b.Read8(0x08000050); v != 0x99 {
		t.Fatalf("ROM read got %02x, want 99", v)
	}
}

func TestBus_IMEAndIEWiring(t *testing.T) {
	b := newTestBus(t)
	b.Write16(0x04000208, 1)      // IME
	b.Write16(0x04000200, 0x0001) // IE: VBlank

	if !b.IRQ.MasterEnabled() {
		t.Fatalf("IME write did not reach irqc controller")
	}
	if b.IRQ.IE != 0x0001 {
		t.Fatalf("IE write did not reach irqc controller, got %04x", b.IRQ.IE)
	}

	b.IRQ.Raise(irqc.SourceVBlank)
	if !b.IRQ.Pending() {
		t.Fatalf("expected pending interrupt after raise")
	}

	b.Write16(0x04000202, 0x0001) // IF write-1-to-clear
	if b.IRQ.Pending() {
		t.Fatalf("IF write-1-to-clear did not reach irqc controller")
	}
}

func TestBus_DMAControlRegisterLatchesChannel(t *testing.T) {
	b := newTestBus(t)

	b.Write32(0x040000B0, 0x02000000) // DMA0 SAD
	b.Write32(0x040000B4, 0x02000100) // DMA0 DAD
	b.Write16(0x040000B8, 4)          // DMA0 CNT_L: 4 units
	b.Write8(0x02000000, 0x11)
	b.Write8(0x02000002, 0x22)

	// CNT_H: word-sized, immediate timing, enable bit set
	b.Write16(0x040000BA, uint16(1<<10)|uint16(1<<15))

	if got, _ := b.Read8(0x02000100); got != 0x11 {
		t.Fatalf("DMA0 immediate transfer did not copy src->dst, got %02x", got)
	}
}

func TestBus_DMACNTHReadsReflectCompletion(t *testing.T) {
	b := newTestBus(t)

	b.Write32(0x040000B0, 0x02000000) // DMA0 SAD
	b.Write32(0x040000B4, 0x02000100) // DMA0 DAD
	b.Write16(0x040000B8, 1)          // DMA0 CNT_L: 1 unit
	// CNT_H: halfword-sized, immediate timing, no repeat, enable bit set.
	// A non-repeating Immediate transfer runs synchronously and disables
	// itself before this write even returns, so the live read must already
	// show the enable bit cleared, not the bit pattern that was written.
	b.Write16(0x040000BA, uint16(1<<15))

	if v, _ := b.Read16(0x040000BA); v&(1<<15) != 0 {
		t.Fatalf("DMA0CNT_H enable bit should read back clear after a completed one-shot transfer, got %04x", v)
	}
	if b.DMA.Channels[0].Enabled {
		t.Fatalf("DMA0 channel should be disabled after the one-shot transfer runs")
	}
}

func TestBus_TimerCNTLReadsLiveCounter(t *testing.T) {
	b := newTestBus(t)

	b.Write16(0x04000100, 0x1000)       // TM0CNT_L reload
	b.Write16(0x04000102, uint16(1<<7)) // TM0CNT_H enable

	b.Timer.Advance(3)
	if v, _ := b.Read16(0x04000100); v != 0x1003 {
		t.Fatalf("TM0CNT_L read got %04x, want live counter 1003", v)
	}
}

func TestBus_TimerControlRegisterStartsChannel(t *testing.T) {
	b := newTestBus(t)

	b.Write16(0x04000100, 0xFFFE)       // TM0CNT_L reload
	b.Write16(0x04000102, uint16(1<<7)) // TM0CNT_H enable

	if !b.Timer.Timers[0].Enabled {
		t.Fatalf("timer 0 not enabled after control register write")
	}
	if b.Timer.Timers[0].Counter != 0xFFFE {
		t.Fatalf("timer 0 counter not loaded from reload, got %04x", b.Timer.Timers[0].Counter)
	}

	b.Timer.Advance(2) // two ticks at prescale 1 overflows from 0xFFFE
	if b.Timer.Timers[0].Counter != 0xFFFE {
		t.Fatalf("timer did not reload to 0xFFFE after overflow, got %04x", b.Timer.Timers[0].Counter)
	}
}

func TestBus_KeypadInputDefaultsUnpressed(t *testing.T) {
	b := newTestBus(t)
	if v, _ := b.Read16(0x04000130); v != 0x03FF {
		t.Fatalf("KEYINPUT got %04x, want 03ff (all unpressed)", v)
	}
}

func TestBus_SoundRegisterWriteTriggersChannel1(t *testing.T) {
	b := newTestBus(t)

	b.Write16(0x04000062, (1<<6)|0xF000) // SOUND1CNT_H: duty 1, envelope vol 15
	b.Write16(0x04000064, uint16(1<<15)) // SOUND1CNT_X: trigger

	if got := b.APU.CPURead16(0x64); got&(1<<15) != 0 {
		t.Fatalf("trigger bit should read back as 0, got %04x", got)
	}
	if v := b.APU.CPURead16(0x62); v>>12 != 15 {
		t.Fatalf("envelope initial volume not latched, got %04x", v)
	}
}

func TestBus_FIFOWriteReachesAPU(t *testing.T) {
	b := newTestBus(t)
	b.Write32(0x040000A0, 0x04030201)
	// No direct observer of FIFO contents from the bus side; this only
	// verifies the write doesn't panic and leaves the PSG register at
	// 0x04000060 reading 0.
	if v, _ := b.Read32(0x04000060); v != 0 {
		t.Fatalf("unrelated PSG register disturbed by FIFO write: %08x", v)
	}
}
