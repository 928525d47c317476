// Package bus implements the GBA system bus: address decoding across BIOS,
// EWRAM, IWRAM, I/O, palette/VRAM/OAM, GamePak ROM, and GamePak backup
// memory, plus the wait-state cost table and open-bus fallback the CPU's
// cycle accounting depends on.
package bus

import (
	"github.com/rbrandao/goba/internal/apu"
	"github.com/rbrandao/goba/internal/bits"
	"github.com/rbrandao/goba/internal/cart"
	"github.com/rbrandao/goba/internal/dma"
	"github.com/rbrandao/goba/internal/irqc"
	"github.com/rbrandao/goba/internal/mem"
	"github.com/rbrandao/goba/internal/timer"
)

// Region identifies one of the address-bit 28..24 decoded memory regions.
type Region int

const (
	RegionBIOS Region = iota
	RegionEWRAM
	RegionIWRAM
	RegionIO
	RegionPalette
	RegionVRAM
	RegionOAM
	RegionROM
	RegionBackup
	RegionUnused
)

// classify decodes the region from address bits 28..24.
func classify(addr uint32) Region {
	switch (addr >> 24) & 0x1F {
	case 0x0:
		return RegionBIOS
	case 0x2:
		return RegionEWRAM
	case 0x3:
		return RegionIWRAM
	case 0x4:
		return RegionIO
	case 0x5:
		return RegionPalette
	case 0x6:
		return RegionVRAM
	case 0x7:
		return RegionOAM
	case 0x8, 0x9, 0xA, 0xB, 0xC, 0xD:
		return RegionROM
	case 0xE, 0xF:
		return RegionBackup
	default:
		return RegionUnused
	}
}

// waitStates gives the cycle cost of an N-cycle (first) access to each
// region, indexed by access width (0=8,1=16,2=32 bit). GamePak ROM/backup
// costs are configurable via WAITCNT; this table models the default
// post-BIOS WAITCNT configuration most titles run with.
var waitStates = map[Region][3]int{
	RegionBIOS:    {1, 1, 1},
	RegionEWRAM:   {3, 3, 6},
	RegionIWRAM:   {1, 1, 1},
	RegionIO:      {1, 1, 1},
	RegionPalette: {1, 1, 2},
	RegionVRAM:    {1, 1, 2},
	RegionOAM:     {1, 1, 1},
	RegionROM:     {5, 5, 8},
	RegionBackup:  {5, 5, 8},
	RegionUnused:  {1, 1, 1},
}

// Bus wires every subsystem together and is what internal/cpu.Bus is
// implemented against.
type Bus struct {
	Mem   *mem.Regions
	Cart  *cart.Cart
	DMA   *dma.Controller
	Timer *timer.Controller
	IRQ   *irqc.Controller
	APU   *apu.APU

	io [0x400]byte

	lastOpcode   func() uint32 // set by the CPU for open-bus reads of unmapped addresses
	pc           func() uint32 // set by the CPU; gates BIOS reads to PC-in-BIOS
	lastBIOSRead uint32        // last value fetched while PC was in BIOS space

	// VCount lets the PPU report the current scanline for the VCOUNT
	// register without this package importing internal/ppu.
	VCount func() uint16
	// DispStat lets the PPU report its live DISPSTAT bits (VBlank/HBlank/
	// VCount-match flags); the control bits (IRQ enables, target line) are
	// still owned by the io shadow.
	DispStat func() uint16
	// SetDispStat forwards DISPSTAT's writable control bits to the PPU,
	// which evaluates the IRQ-enable and VCount-target bits itself.
	SetDispStat func(uint16)
}

// New builds a bus over freshly allocated RAM regions and the given cart.
func New(c *cart.Cart) *Bus {
	return &Bus{
		Mem:  mem.New(),
		Cart: c,
		IRQ:  irqc.New(),
		// DMA, Timer, and APU are wired by core.Machine once it has built the
		// cross-referencing controllers (DMA needs the bus, the bus needs DMA).
	}
}

// SetLastOpcodeSource lets the CPU register a callback the bus can consult
// for open-bus reads.
func (b *Bus) SetLastOpcodeSource(f func() uint32) { b.lastOpcode = f }

// SetPCSource lets the CPU register a callback the bus uses to gate BIOS
// reads to code actually executing from BIOS space.
func (b *Bus) SetPCSource(f func() uint32) { b.pc = f }

func (b *Bus) openBus(addr uint32) uint32 {
	if b.lastOpcode != nil {
		return b.lastOpcode()
	}
	return addr
}

func (b *Bus) Read8(addr uint32) (byte, int) {
	v, cyc := b.read(addr, 0)
	return byte(v), cyc
}
func (b *Bus) Read16(addr uint32) (uint16, int) {
	v, cyc := b.read(addr&^1, 1)
	return uint16(v), cyc
}
func (b *Bus) Read32(addr uint32) (uint32, int) {
	return b.read(addr&^3, 2)
}

func (b *Bus) read(addr uint32, width int) (uint32, int) {
	region := classify(addr)
	cyc := waitStates[region][width]

	switch region {
	case RegionBIOS:
		return b.readBIOS(addr, width), cyc
	case RegionEWRAM:
		return readSized(b.Mem.EWRAM, addr&0x3FFFF, width), cyc
	case RegionIWRAM:
		return readSized(b.Mem.IWRAM, addr&0x7FFF, width), cyc
	case RegionIO:
		return b.readIO(addr&0x3FF, width), cyc
	case RegionPalette:
		return readSized(b.Mem.Palette, addr&0x3FF, width), cyc
	case RegionVRAM:
		return readSized(b.Mem.VRAM, vramOffset(addr), width), cyc
	case RegionOAM:
		return readSized(b.Mem.OAM, addr&0x3FF, width), cyc
	case RegionROM:
		return b.readROM(addr, width), cyc
	case RegionBackup:
		if b.Cart != nil && b.Cart.Backup != nil {
			return uint32(b.Cart.Backup.Read8(addr)), cyc
		}
		return 0xFF, cyc
	default:
		return b.openBus(addr), cyc
	}
}

// readBIOS gates BIOS reads to code actually executing from BIOS space: a
// fetch or load with PC inside the BIOS window returns the real bytes and
// latches them as the last successful BIOS fetch; any other read (e.g. a
// cartridge routine probing address 0) returns that latched value instead
// of the protected BIOS contents.
func (b *Bus) readBIOS(addr uint32, width int) uint32 {
	if b.pc == nil || b.pc() < mem.BIOSSize {
		v := readSized(b.Mem.BIOS, addr&0x3FFF, width)
		b.lastBIOSRead = v
		return v
	}
	return b.lastBIOSRead
}

func (b *Bus) readROM(addr uint32, width int) uint32 {
	if b.Cart == nil {
		return b.openBus(addr)
	}
	switch width {
	case 0:
		return uint32(b.Cart.Read8(addr))
	case 1:
		lo := uint32(b.Cart.Read8(addr))
		hi := uint32(b.Cart.Read8(addr + 1))
		return lo | hi<<8
	default:
		v0 := uint32(b.Cart.Read8(addr))
		v1 := uint32(b.Cart.Read8(addr + 1))
		v2 := uint32(b.Cart.Read8(addr + 2))
		v3 := uint32(b.Cart.Read8(addr + 3))
		return v0 | v1<<8 | v2<<16 | v3<<24
	}
}

// vramOffset folds VRAM's 96KB into its mirrored 128KB window: the last
// 32KB (96KB..128KB) mirrors the preceding 32KB, per GBATEK.
func vramOffset(addr uint32) uint32 {
	off := addr & 0x1FFFF
	if off >= mem.VRAMSize {
		off -= 0x8000
	}
	return off
}

// vramObjBoundary is the VRAM offset where OBJ tile data begins: 0x10000 in
// the tile-mode range (modes 0-2), 0x14000 in the bitmap-mode range (modes
// 3-5), per GBATEK.
func (b *Bus) vramObjBoundary() uint32 {
	mode := bits.Read16(b.io[:], regDISPCNT) & 7
	if mode >= 3 {
		return 0x14000
	}
	return 0x10000
}

// writeVRAM applies the GBA's byte-write quirk: OAM-like, an 8-bit store
// into the OBJ tile range is dropped silently, while an 8-bit store into
// the BG range is broadcast to both bytes of its containing halfword.
func (b *Bus) writeVRAM(off uint32, v uint32, width int) {
	if width != 0 {
		writeSized(b.Mem.VRAM, off, v, width)
		return
	}
	if off >= b.vramObjBoundary() {
		return
	}
	byteVal := byte(v)
	bits.Write16(b.Mem.VRAM, off&^1, uint16(byteVal)|uint16(byteVal)<<8)
}

func readSized(buf []byte, off uint32, width int) uint32 {
	switch width {
	case 0:
		return uint32(bits.Read8(buf, off))
	case 1:
		return uint32(bits.Read16(buf, off))
	default:
		return bits.Read32(buf, off)
	}
}

func (b *Bus) Write8(addr uint32, v byte) int {
	return b.write(addr, uint32(v), 0)
}
func (b *Bus) Write16(addr uint32, v uint16) int {
	return b.write(addr&^1, uint32(v), 1)
}
func (b *Bus) Write32(addr uint32, v uint32) int {
	return b.write(addr&^3, v, 2)
}

func (b *Bus) write(addr uint32, v uint32, width int) int {
	region := classify(addr)
	cyc := waitStates[region][width]

	switch region {
	case RegionEWRAM:
		writeSized(b.Mem.EWRAM, addr&0x3FFFF, v, width)
	case RegionIWRAM:
		writeSized(b.Mem.IWRAM, addr&0x7FFF, v, width)
	case RegionIO:
		b.writeIO(addr&0x3FF, v, width)
	case RegionPalette:
		writeSized(b.Mem.Palette, addr&0x3FF, v, width)
	case RegionVRAM:
		b.writeVRAM(vramOffset(addr), v, width)
	case RegionOAM:
		// OAM has no byte bus: an 8-bit store is dropped rather than
		// corrupting the adjacent byte.
		if width != 0 {
			writeSized(b.Mem.OAM, addr&0x3FF, v, width)
		}
	case RegionBackup:
		if b.Cart != nil && b.Cart.Backup != nil {
			b.Cart.Backup.Write8(addr, byte(v))
		}
	}
	return cyc
}

func writeSized(buf []byte, off uint32, v uint32, width int) {
	switch width {
	case 0:
		bits.Write8(buf, off, byte(v))
	case 1:
		bits.Write16(buf, off, uint16(v))
	default:
		bits.Write32(buf, off, v)
	}
}

// I/O register offsets this package interprets directly; everything else
// is left as inert shadow storage, which the PPU reads through IOShadow.
const (
	regDISPCNT  = 0x000
	regDISPSTAT = 0x004
	regVCOUNT   = 0x006

	regDMA0SAD  = 0x0B0
	regDMA0DAD  = 0x0B4
	regDMA0CNTL = 0x0B8
	regDMA0CNTH = 0x0BA
	regDMA1SAD  = 0x0BC
	regDMA1DAD  = 0x0C0
	regDMA1CNTL = 0x0C4
	regDMA1CNTH = 0x0C6
	regDMA2SAD  = 0x0C8
	regDMA2DAD  = 0x0CC
	regDMA2CNTL = 0x0D0
	regDMA2CNTH = 0x0D2
	regDMA3SAD  = 0x0D4
	regDMA3DAD  = 0x0D8
	regDMA3CNTL = 0x0DC
	regDMA3CNTH = 0x0DE

	regTM0CNTL = 0x100
	regTM0CNTH = 0x102
	regTM1CNTL = 0x104
	regTM1CNTH = 0x106
	regTM2CNTL = 0x108
	regTM2CNTH = 0x10A
	regTM3CNTL = 0x10C
	regTM3CNTH = 0x10E

	regKEYINPUT = 0x130
	regKEYCNT   = 0x132

	regIE      = 0x200
	regIF      = 0x202
	regWAITCNT = 0x204
	regIME     = 0x208

	// APU register window: PSG control regs 0x060-0x088, wave RAM
	// 0x090-0x09F, Direct Sound FIFOs at 0x0A0/0x0A4.
	regAPULo   = 0x060
	regAPUHi   = 0x08A
	regWaveLo  = 0x090
	regWaveHi  = 0x0A0
	regFIFO_A  = 0x0A0
	regFIFO_B  = 0x0A4
)

// IOShadow exposes the raw register backing store to the PPU, which reads
// its display registers (0x000-0x054) directly rather than through
// per-register methods here. The APU receives its register writes through
// CPUWrite16 and does not read the shadow.
func (b *Bus) IOShadow() []byte { return b.io[:] }

func (b *Bus) readIO(off uint32, width int) uint32 {
	switch off {
	case regVCOUNT:
		if b.VCount != nil && width != 2 {
			return uint32(b.VCount())
		}
	case regDISPSTAT:
		if b.DispStat != nil && width != 2 {
			shadow := bits.Read16(b.io[:], regDISPSTAT) &^ 0x7
			return uint32(shadow | b.DispStat())
		}
	case regKEYINPUT:
		if b.IRQ != nil {
			return uint32(b.IRQ.KeyInput)
		}
	case regKEYCNT:
		if b.IRQ != nil {
			return uint32(b.IRQ.KeyControl)
		}
	case regIE:
		if b.IRQ != nil {
			return uint32(b.IRQ.IE)
		}
	case regIF:
		if b.IRQ != nil {
			return uint32(b.IRQ.IF)
		}
	case regIME:
		if b.IRQ != nil {
			return uint32(bits.B(b.IRQ.IME))
		}
	case regDMA0CNTH, regDMA1CNTH, regDMA2CNTH, regDMA3CNTH:
		if b.DMA != nil {
			idx := (int(off) - regDMA0CNTH) / 12
			shadow := bits.Read16(b.io[:], off)
			if b.DMA.Channels[idx].Enabled {
				shadow |= 1 << 15
			} else {
				shadow &^= 1 << 15
			}
			return uint32(shadow)
		}
	case regTM0CNTL, regTM1CNTL, regTM2CNTL, regTM3CNTL:
		if b.Timer != nil {
			idx := (int(off) - regTM0CNTL) / 4
			return uint32(b.Timer.Timers[idx].Counter)
		}
	}
	if b.APU != nil {
		if off >= regWaveLo && off < regWaveHi {
			bank := b.APU.ReadWaveRAM(0)
			return readSized(bank[:], off-regWaveLo, width)
		}
		if off >= regAPULo && off < regAPUHi && off < regFIFO_A {
			aligned := off &^ 1
			return uint32(b.APU.CPURead16(aligned))
		}
	}
	return readSized(b.io[:], off, width)
}

func (b *Bus) writeIO(off uint32, v uint32, width int) {
	switch off {
	case regIE:
		if b.IRQ != nil {
			b.IRQ.IE = uint16(v)
		}
		writeSized(b.io[:], off, v, width)
		return
	case regIF:
		if b.IRQ != nil {
			b.IRQ.AckIF(uint16(v))
		}
		return // IF is write-1-to-clear only; never reflected in the shadow
	case regIME:
		if b.IRQ != nil {
			b.IRQ.IME = v&1 != 0
		}
		writeSized(b.io[:], off, v, width)
		return
	case regKEYCNT:
		if b.IRQ != nil {
			b.IRQ.KeyControl = uint16(v)
		}
		writeSized(b.io[:], off, v, width)
		return
	case regDISPSTAT:
		writeSized(b.io[:], off, v, width)
		if b.SetDispStat != nil {
			b.SetDispStat(bits.Read16(b.io[:], regDISPSTAT))
		}
		return
	}

	if b.APU != nil {
		switch {
		case off == regFIFO_A:
			b.APU.WriteFIFOA(fifoBytes(v, width))
			return
		case off == regFIFO_B:
			b.APU.WriteFIFOB(fifoBytes(v, width))
			return
		case off >= regWaveLo && off < regWaveHi:
			writeSized(b.io[:], off, v, width)
			var tmp [16]byte
			bank := b.APU.ReadWaveRAM(0)
			copy(tmp[:], bank[:])
			writeSized(tmp[:], off-regWaveLo, v, width)
			b.APU.WriteWaveRAM(0, tmp[:])
			return
		case off >= regAPULo && off < regAPUHi:
			writeSized(b.io[:], off, v, width)
			aligned := off &^ 1
			b.APU.CPUWrite16(aligned, bits.Read16(b.io[:], aligned))
			if width == 2 {
				b.APU.CPUWrite16(aligned+2, bits.Read16(b.io[:], aligned+2))
			}
			return
		}
	}

	writeSized(b.io[:], off, v, width)

	switch off {
	case regDMA0CNTH, regDMA1CNTH, regDMA2CNTH, regDMA3CNTH:
		b.syncDMAControl((int(off) - regDMA0CNTH) / 12)
	case regDMA0SAD, regDMA0DAD, regDMA0CNTL, regDMA1SAD, regDMA1DAD, regDMA1CNTL,
		regDMA2SAD, regDMA2DAD, regDMA2CNTL, regDMA3SAD, regDMA3DAD, regDMA3CNTL:
		b.syncDMALatches()
	case regTM0CNTH, regTM1CNTH, regTM2CNTH, regTM3CNTH:
		b.syncTimerControl((int(off) - regTM0CNTH) / 4)
	case regTM0CNTL, regTM1CNTL, regTM2CNTL, regTM3CNTL:
		b.syncTimerReload((int(off) - regTM0CNTL) / 4)
	}
}

// syncDMALatches copies the raw SAD/DAD/CNT_L shadow bytes into a channel's
// un-latched registers; real latching into the live transfer happens in
// syncDMAControl when the enable bit rises.
func (b *Bus) syncDMALatches() {
	if b.DMA == nil {
		return
	}
	base := []uint32{regDMA0SAD, regDMA1SAD, regDMA2SAD, regDMA3SAD}
	for i, sad := range base {
		ch := &b.DMA.Channels[i]
		ch.SrcAddr = bits.Read32(b.io[:], sad) & 0x0FFFFFFF
		ch.DstAddr = bits.Read32(b.io[:], sad+4) & 0x0FFFFFFF
		ch.WordCount = uint32(bits.Read16(b.io[:], sad+8))
	}
}

func (b *Bus) syncDMAControl(ch int) {
	if b.DMA == nil || ch < 0 || ch > 3 {
		return
	}
	b.syncDMALatches()
	cnth := bits.Read16(b.io[:], uint32(regDMA0CNTH+ch*12))
	c := &b.DMA.Channels[ch]
	c.DstControl = dma.AddrControl((cnth >> 5) & 3)
	c.SrcControl = dma.AddrControl((cnth >> 7) & 3)
	c.Repeat = cnth&(1<<9) != 0
	c.WordSized = cnth&(1<<10) != 0
	c.Timing = dma.Timing((cnth >> 12) & 3)
	c.IRQEnable = cnth&(1<<14) != 0
	c.DRQMode = c.Timing == dma.TimingSpecial && (ch == 1 || ch == 2)
	b.DMA.SetEnable(ch, cnth&(1<<15) != 0)
}

func (b *Bus) syncTimerControl(idx int) {
	if b.Timer == nil || idx < 0 || idx > 3 {
		return
	}
	cnth := bits.Read16(b.io[:], uint32(regTM0CNTH+idx*4))
	t := &b.Timer.Timers[idx]
	t.PrescaleSelect = byte(cnth & 3)
	t.CascadeMode = cnth&(1<<2) != 0
	t.IRQEnable = cnth&(1<<6) != 0
	wasEnabled := t.Enabled
	enable := cnth&(1<<7) != 0
	if enable && !wasEnabled {
		t.Start()
	} else if !enable {
		t.Stop()
	}
}

// fifoBytes decomposes a Direct Sound FIFO register write into its
// constituent little-endian PCM sample bytes, regardless of whether the
// CPU wrote it as one STR, one STRH pair, or one byte at a time.
func fifoBytes(v uint32, width int) []byte {
	switch width {
	case 0:
		return []byte{byte(v)}
	case 1:
		return []byte{byte(v), byte(v >> 8)}
	default:
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}
}

func (b *Bus) syncTimerReload(idx int) {
	if b.Timer == nil || idx < 0 || idx > 3 {
		return
	}
	b.Timer.Timers[idx].Reload = bits.Read16(b.io[:], uint32(regTM0CNTL+idx*4))
}
