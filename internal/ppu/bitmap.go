package ppu

import "github.com/rbrandao/goba/internal/bits"

// renderBitmapMode3 implements mode 3: a single 240x160 BGR555 frame
// directly addressable as VRAM, always BG2.
func (p *PPU) renderBitmapMode3(line int, out *[ScreenWidth]pixel) {
	cnt := p.bgcnt(2)
	priority := bgcntPriority(cnt)
	base := uint32(line * ScreenWidth * 2)
	for x := 0; x < ScreenWidth; x++ {
		c := bits.Read16(p.vram, base+uint32(x*2)) & 0x7FFF
		out[x] = pixel{color: c, priority: priority, layer: 2}
	}
}

// renderBitmapMode4 implements mode 4: a 240x160 8-bit-indexed
// double-buffered bitmap, indexing BG palette entries.
func (p *PPU) renderBitmapMode4(line int, out *[ScreenWidth]pixel) {
	cnt := p.bgcnt(2)
	priority := bgcntPriority(cnt)
	frameBase := uint32(0)
	if p.frameSelect() == 1 {
		frameBase = 0xA000
	}
	rowBase := frameBase + uint32(line*ScreenWidth)
	for x := 0; x < ScreenWidth; x++ {
		idx := bits.Read8(p.vram, rowBase+uint32(x))
		if idx == 0 {
			out[x] = pixel{transparent: true, priority: priority, layer: 2}
			continue
		}
		out[x] = pixel{color: readColor(p.palette, int(idx)), priority: priority, layer: 2}
	}
}

// renderBitmapMode5 implements mode 5: a 160x128 BGR555 double-buffered
// bitmap; pixels outside the smaller visible rectangle are backdrop.
func (p *PPU) renderBitmapMode5(line int, out *[ScreenWidth]pixel) {
	cnt := p.bgcnt(2)
	priority := bgcntPriority(cnt)
	const w, h = 160, 128
	frameBase := uint32(0)
	if p.frameSelect() == 1 {
		frameBase = 0xA000
	}
	if line >= h {
		for x := 0; x < ScreenWidth; x++ {
			out[x] = pixel{transparent: true, priority: priority, layer: 2}
		}
		return
	}
	rowBase := frameBase + uint32(line*w*2)
	for x := 0; x < ScreenWidth; x++ {
		if x >= w {
			out[x] = pixel{transparent: true, priority: priority, layer: 2}
			continue
		}
		c := bits.Read16(p.vram, rowBase+uint32(x*2)) & 0x7FFF
		out[x] = pixel{color: c, priority: priority, layer: 2}
	}
}
