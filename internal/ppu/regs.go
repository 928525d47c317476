package ppu

import "github.com/rbrandao/goba/internal/bits"

// Register offsets within the shared I/O shadow (internal/bus.IOShadow),
// relative to the 0x04000000 I/O base, matching GBATEK's documented
// layout. The PPU never writes these itself except for the DISPSTAT status
// bits, which internal/bus reads back through the DispStat hook instead of
// the shadow, since they reflect live render state rather than CPU-written
// control bits.
const (
	regDISPCNT  = 0x000
	regDISPSTAT = 0x004
	regBG0CNT   = 0x008
	regBG1CNT   = 0x00A
	regBG2CNT   = 0x00C
	regBG3CNT   = 0x00E
	regBG0HOFS  = 0x010
	regBG0VOFS  = 0x012
	regBG1HOFS  = 0x014
	regBG1VOFS  = 0x016
	regBG2HOFS  = 0x018
	regBG2VOFS  = 0x01A
	regBG3HOFS  = 0x01C
	regBG3VOFS  = 0x01E
	regBG2PA    = 0x020
	regBG2PB    = 0x022
	regBG2PC    = 0x024
	regBG2PD    = 0x026
	regBG2X     = 0x028
	regBG2Y     = 0x02C
	regBG3PA    = 0x030
	regBG3PB    = 0x032
	regBG3PC    = 0x034
	regBG3PD    = 0x036
	regBG3X     = 0x038
	regBG3Y     = 0x03C
	regWIN0H    = 0x040
	regWIN1H    = 0x042
	regWIN0V    = 0x044
	regWIN1V    = 0x046
	regWININ    = 0x048
	regWINOUT   = 0x04A
	regMOSAIC   = 0x04C
	regBLDCNT   = 0x050
	regBLDALPHA = 0x052
	regBLDY     = 0x054
)

func (p *PPU) u16(off uint32) uint16 { return bits.Read16(p.io, off) }
func (p *PPU) u32(off uint32) uint32 { return bits.Read32(p.io, off) }

func (p *PPU) dispcnt() uint16 { return p.u16(regDISPCNT) }

// bgMode returns DISPCNT bits 0..2.
func (p *PPU) bgMode() int { return int(p.dispcnt() & 7) }

// bgEnabled and objEnabled report DISPCNT's per-layer display bits: bit
// 8+n for BGn, bit 12 for OBJ.
func (p *PPU) bgEnabled(n int) bool   { return p.dispcnt()&(1<<uint(8+n)) != 0 }
func (p *PPU) objEnabled() bool       { return p.dispcnt()&(1<<12) != 0 }
func (p *PPU) win0Enabled() bool      { return p.dispcnt()&(1<<13) != 0 }
func (p *PPU) win1Enabled() bool      { return p.dispcnt()&(1<<14) != 0 }
func (p *PPU) objWinEnabled() bool    { return p.dispcnt()&(1<<15) != 0 }
func (p *PPU) anyWindowEnabled() bool { return p.win0Enabled() || p.win1Enabled() || p.objWinEnabled() }
func (p *PPU) obj1D() bool            { return p.dispcnt()&(1<<6) != 0 }
func (p *PPU) forceBlank() bool       { return p.dispcnt()&(1<<7) != 0 }
func (p *PPU) frameSelect() int {
	if p.dispcnt()&(1<<4) != 0 {
		return 1
	}
	return 0
}

func (p *PPU) bgcnt(n int) uint16 {
	switch n {
	case 0:
		return p.u16(regBG0CNT)
	case 1:
		return p.u16(regBG1CNT)
	case 2:
		return p.u16(regBG2CNT)
	default:
		return p.u16(regBG3CNT)
	}
}

func bgcntPriority(cnt uint16) int   { return int(cnt & 3) }
func bgcntCharBase(cnt uint16) uint32 { return uint32((cnt>>2)&3) * 0x4000 }
func bgcntMosaic(cnt uint16) bool     { return cnt&(1<<6) != 0 }
func bgcnt8bpp(cnt uint16) bool       { return cnt&(1<<7) != 0 }
func bgcntScreenBase(cnt uint16) uint32 { return uint32((cnt>>8)&0x1F) * 0x800 }
func bgcntWrap(cnt uint16) bool       { return cnt&(1<<13) != 0 }
func bgcntScreenSize(cnt uint16) int  { return int((cnt >> 14) & 3) }

func (p *PPU) bgScroll(n int) (hofs, vofs uint16) {
	var h, v uint32
	switch n {
	case 0:
		h, v = regBG0HOFS, regBG0VOFS
	case 1:
		h, v = regBG1HOFS, regBG1VOFS
	case 2:
		h, v = regBG2HOFS, regBG2VOFS
	default:
		h, v = regBG3HOFS, regBG3VOFS
	}
	return p.u16(h) & 0x1FF, p.u16(v) & 0x1FF
}

// affineParams returns BG2/BG3's PA/PB/PC/PD as Q8.8 fixed point.
func (p *PPU) affineParams(n int) (pa, pb, pc, pd int16) {
	base := uint32(regBG2PA)
	if n == 3 {
		base = regBG3PA
	}
	return int16(p.u16(base)), int16(p.u16(base + 2)), int16(p.u16(base + 4)), int16(p.u16(base + 6))
}

// affineRefRaw returns BG2/BG3's X/Y reference point registers as raw
// 28-bit signed Q20.8 fixed point, sign-extended.
func (p *PPU) affineRefRaw(n int) (x, y int32) {
	base := uint32(regBG2X)
	if n == 3 {
		base = regBG3X
	}
	return signExtend28(p.u32(base)), signExtend28(p.u32(base + 4))
}

func signExtend28(v uint32) int32 {
	v &= 0x0FFFFFFF
	if v&0x08000000 != 0 {
		v |= 0xF0000000
	}
	return int32(v)
}

func (p *PPU) mosaic() (bgH, bgV, objH, objV int) {
	m := p.u16(regMOSAIC)
	return int(m & 0xF), int((m >> 4) & 0xF), int((m >> 8) & 0xF), int((m >> 12) & 0xF)
}

func (p *PPU) windowH(n int) (left, right int) {
	v := p.u16(regWIN0H)
	if n == 1 {
		v = p.u16(regWIN1H)
	}
	return int(v >> 8), int(v & 0xFF)
}

func (p *PPU) windowV(n int) (top, bottom int) {
	v := p.u16(regWIN0V)
	if n == 1 {
		v = p.u16(regWIN1V)
	}
	return int(v >> 8), int(v & 0xFF)
}

func (p *PPU) winin() uint16  { return p.u16(regWININ) }
func (p *PPU) winout() uint16 { return p.u16(regWINOUT) }

func (p *PPU) bldcnt() uint16   { return p.u16(regBLDCNT) }
func (p *PPU) bldalpha() uint16 { return p.u16(regBLDALPHA) }
func (p *PPU) bldy() uint16     { return p.u16(regBLDY) }

// blendMode is BLDCNT bits 6..7: 0=none, 1=alpha, 2=brighten, 3=darken.
func (p *PPU) blendMode() int { return int((p.bldcnt() >> 6) & 3) }

func (p *PPU) blendTarget1(layer int) bool { return p.bldcnt()&(1<<uint(layer)) != 0 }
func (p *PPU) blendTarget2(layer int) bool { return p.bldcnt()&(1<<uint(8+layer)) != 0 }
