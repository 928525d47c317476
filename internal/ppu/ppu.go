// Package ppu implements the GBA's scanline-based pixel processor: six
// video modes, four background layers (text and affine), OAM-driven
// sprite compositing, three windows, and the color special-effects
// blender, driven one scanline at a time by the scheduler.
package ppu

import (
	"bytes"
	"encoding/gob"
)

const (
	ScreenWidth  = 240
	ScreenHeight = 160
	TotalLines   = 228
)

// Layer indices used for priority composition and BLDCNT target bits.
const (
	layerBG0 = iota
	layerBG1
	layerBG2
	layerBG3
	layerOBJ
	layerBackdrop
)

// pixel is one candidate layer contribution at a screen column, carried
// through windowing and into the priority/blend compositor.
type pixel struct {
	color       uint16
	priority    int
	layer       int
	transparent bool
	semiTrans   bool // OBJ mode-1 pixels force alpha blending with the layer below
}

// PPU renders into a caller-owned 15-bit BGR555 framebuffer and shares its
// VRAM/OAM/Palette backing store and MMIO register bytes with the bus
// rather than owning private copies: GBA titles access those regions
// directly without PPU mode gating on most of them, so there is nothing
// left for the PPU to intermediate.
type PPU struct {
	vram    []byte
	oam     []byte
	palette []byte
	io      []byte

	FB []uint16 // 240*160, written in place by renderScanline

	line int

	statIRQEnableVBlank bool
	statIRQEnableHBlank bool
	statIRQEnableVCount bool
	statVCountTarget    byte

	vblankFlag bool
	hblankFlag bool

	// affine reference points, latched from the register pair at line 0 and
	// incremented by PB/PD once per rendered scanline thereafter.
	bg2RefX, bg2RefY int32
	bg3RefX, bg3RefY int32

	winLineCounter byte

	// Hooks set by core.Machine. OnVBlank/OnHBlank fire unconditionally (DMA
	// is triggered by the timing transition itself, not by the IRQ enable
	// bits); OnVBlankIRQ/OnHBlankIRQ/OnVCountIRQ fire only when this PPU's
	// own DISPSTAT enable bits are set.
	OnVBlank    func()
	OnHBlank    func()
	OnVBlankIRQ func()
	OnHBlankIRQ func()
	OnVCountIRQ func()
}

// New builds a PPU over the bus's shared VRAM/OAM/Palette regions and I/O
// shadow bytes.
func New(vram, oam, palette, io []byte) *PPU {
	return &PPU{vram: vram, oam: oam, palette: palette, io: io}
}

// SetFramebuffer installs the caller-owned pixel buffer renderScanline
// writes into; must be 240*160 uint16s.
func (p *PPU) SetFramebuffer(fb []uint16) { p.FB = fb }

// Line returns the current scanline (0..227), for the scheduler to compare
// against its own HDraw/HBlank/VBlank phase boundaries.
func (p *PPU) Line() int { return p.line }

// VCount is the bus's read hook for the VCOUNT register.
func (p *PPU) VCount() uint16 { return uint16(p.line) }

// DispStatBits is the bus's read hook for DISPSTAT's three live status
// bits (VBlank, HBlank, VCount-match); the bus ORs this with the shadow's
// writable control bits (IRQ enables, target line) on read.
func (p *PPU) DispStatBits() uint16 {
	var v uint16
	if p.vblankFlag {
		v |= 1
	}
	if p.hblankFlag {
		v |= 1 << 1
	}
	if byte(p.line) == p.statVCountTarget {
		v |= 1 << 2
	}
	return v
}

// SetDispStatControl lets the bus forward DISPSTAT's writable control bits
// (IRQ enables at bits 3/4/5, VCount target at bits 8..15) whenever the CPU
// writes that register, since the PPU — not the shadow array — is what
// actually evaluates them.
func (p *PPU) SetDispStatControl(v uint16) {
	p.statIRQEnableVBlank = v&(1<<3) != 0
	p.statIRQEnableHBlank = v&(1<<4) != 0
	p.statIRQEnableVCount = v&(1<<5) != 0
	p.statVCountTarget = byte(v >> 8)
}

// BeginHDraw is called by the scheduler at the start of each scanline
// (dot 0); it clears HBlank and, at line 0 (the first line after VBlank),
// latches the affine reference points and resets the window line counter.
func (p *PPU) BeginHDraw(line int) {
	p.line = line
	p.hblankFlag = false

	if line == 0 {
		p.vblankFlag = false
		x, y := p.affineRefRaw(2)
		p.bg2RefX, p.bg2RefY = x, y
		x, y = p.affineRefRaw(3)
		p.bg3RefX, p.bg3RefY = x, y
		p.winLineCounter = 0
	}

	if line == ScreenHeight {
		p.vblankFlag = true
		if p.OnVBlank != nil {
			p.OnVBlank()
		}
		if p.statIRQEnableVBlank && p.OnVBlankIRQ != nil {
			p.OnVBlankIRQ()
		}
	}

	if byte(line) == p.statVCountTarget && p.statIRQEnableVCount && p.OnVCountIRQ != nil {
		p.OnVCountIRQ()
	}
}

// EndHDraw is called by the scheduler at HDraw-end (dot 1006) for every
// scanline; it raises HBlank and, on visible lines, renders the line.
func (p *PPU) EndHDraw() {
	p.hblankFlag = true
	if p.OnHBlank != nil {
		p.OnHBlank()
	}
	if p.statIRQEnableHBlank && p.OnHBlankIRQ != nil {
		p.OnHBlankIRQ()
	}
	if p.line < ScreenHeight && !p.forceBlank() {
		p.renderScanline(p.line)
	}
	if p.line < ScreenHeight {
		p.advanceAffineReferences()
	}
}

// advanceAffineReferences steps each affine BG's internal reference point
// by one scanline's worth of (dmx, dmy) = (PB, PD), per GBATEK.
func (p *PPU) advanceAffineReferences() {
	_, pb, _, pd := p.affineParams(2)
	p.bg2RefX += int32(pb)
	p.bg2RefY += int32(pd)
	_, pb3, _, pd3 := p.affineParams(3)
	p.bg3RefX += int32(pb3)
	p.bg3RefY += int32(pd3)
}

func (p *PPU) renderScanline(line int) {
	if p.FB == nil {
		return
	}
	row := p.FB[line*ScreenWidth : line*ScreenWidth+ScreenWidth]

	var bgLines [4][ScreenWidth]pixel
	mode := p.bgMode()
	switch mode {
	case 0:
		for n := 0; n < 4; n++ {
			if p.bgEnabled(n) {
				p.renderTextBG(n, line, &bgLines[n])
			}
		}
	case 1:
		if p.bgEnabled(0) {
			p.renderTextBG(0, line, &bgLines[0])
		}
		if p.bgEnabled(1) {
			p.renderTextBG(1, line, &bgLines[1])
		}
		if p.bgEnabled(2) {
			p.renderAffineBG(2, line, &bgLines[2])
		}
	case 2:
		if p.bgEnabled(2) {
			p.renderAffineBG(2, line, &bgLines[2])
		}
		if p.bgEnabled(3) {
			p.renderAffineBG(3, line, &bgLines[3])
		}
	case 3:
		if p.bgEnabled(2) {
			p.renderBitmapMode3(line, &bgLines[2])
		}
	case 4:
		if p.bgEnabled(2) {
			p.renderBitmapMode4(line, &bgLines[2])
		}
	case 5:
		if p.bgEnabled(2) {
			p.renderBitmapMode5(line, &bgLines[2])
		}
	}

	var objLine [ScreenWidth]pixel
	var objWin [ScreenWidth]bool
	for i := range objLine {
		objLine[i].transparent = true
	}
	if p.objEnabled() {
		p.renderOBJ(line, &objLine, &objWin)
	}

	p.compose(line, &bgLines, &objLine, &objWin, row)
}

func (p *PPU) backdropColor() uint16 { return readColor(p.palette, 0) }

func readColor(pal []byte, idx int) uint16 {
	off := idx * 2
	if off+1 >= len(pal) {
		return 0
	}
	return uint16(pal[off]) | uint16(pal[off+1])<<8
}

func (p *PPU) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	s := ppuState{
		Line: p.line, VBlank: p.vblankFlag, HBlank: p.hblankFlag,
		IRQVBlank: p.statIRQEnableVBlank, IRQHBlank: p.statIRQEnableHBlank, IRQVCount: p.statIRQEnableVCount,
		VCountTarget: p.statVCountTarget,
		BG2RefX:      p.bg2RefX, BG2RefY: p.bg2RefY, BG3RefX: p.bg3RefX, BG3RefY: p.bg3RefY,
		WinLine: p.winLineCounter,
	}
	_ = enc.Encode(s)
	return buf.Bytes()
}

func (p *PPU) LoadState(data []byte) error {
	var s ppuState
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return err
	}
	p.line, p.vblankFlag, p.hblankFlag = s.Line, s.VBlank, s.HBlank
	p.statIRQEnableVBlank, p.statIRQEnableHBlank, p.statIRQEnableVCount = s.IRQVBlank, s.IRQHBlank, s.IRQVCount
	p.statVCountTarget = s.VCountTarget
	p.bg2RefX, p.bg2RefY, p.bg3RefX, p.bg3RefY = s.BG2RefX, s.BG2RefY, s.BG3RefX, s.BG3RefY
	p.winLineCounter = s.WinLine
	return nil
}

type ppuState struct {
	Line                                int
	VBlank, HBlank                      bool
	IRQVBlank, IRQHBlank, IRQVCount     bool
	VCountTarget                        byte
	BG2RefX, BG2RefY, BG3RefX, BG3RefY  int32
	WinLine                             byte
}
