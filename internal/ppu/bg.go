package ppu

import "github.com/rbrandao/goba/internal/bits"

// renderTextBG fills out one scanline of a text-mode background (modes 0,
// and BG0/BG1 in mode 1), sampling the tilemap/tileset pair VRAM holds at
// the control register's char/screen base offsets.
func (p *PPU) renderTextBG(n int, line int, out *[ScreenWidth]pixel) {
	cnt := p.bgcnt(n)
	priority := bgcntPriority(cnt)
	charBase := bgcntCharBase(cnt)
	screenBase := bgcntScreenBase(cnt)
	hi8bpp := bgcnt8bpp(cnt)
	size := bgcntScreenSize(cnt)

	hofs, vofs := p.bgScroll(n)
	y := (line + int(vofs)) & 0x1FF

	mosaicOn := bgcntMosaic(cnt)
	mh, mv, _, _ := p.mosaic()
	sampleY := y
	if mosaicOn && mv > 0 {
		sampleY = (y / (mv + 1)) * (mv + 1)
	}

	for sx := 0; sx < ScreenWidth; sx++ {
		x := (sx + int(hofs)) & 0x1FF
		sampleX := x
		if mosaicOn && mh > 0 {
			sampleX = (x / (mh + 1)) * (mh + 1)
		}

		color, transparent := p.sampleTextTile(charBase, screenBase, size, sampleX, sampleY, hi8bpp)
		out[sx] = pixel{color: color, priority: priority, layer: n, transparent: transparent}
	}
}

// sampleTextTile resolves one text-BG pixel at wrapped tilemap coordinates
// (x,y) in the 512x512 (or smaller) virtual screen space.
func (p *PPU) sampleTextTile(charBase, screenBase uint32, size int, x, y int, hi8bpp bool) (uint16, bool) {
	tileX, tileY := x/8, y/8
	inX, inY := x%8, y%8

	// Screen-block layout: size 1 (64x32) and 3 (64x64) have two
	// side-by-side 32x32 blocks; size 2 (32x64) stacks two blocks
	// vertically. Each 32x32 block is 0x800 bytes of tilemap entries.
	block := 0
	bx, by := tileX, tileY
	switch size {
	case 1:
		if bx >= 32 {
			block = 1
			bx -= 32
		}
	case 2:
		if by >= 32 {
			block = 1
			by -= 32
		}
	case 3:
		if bx >= 32 {
			block++
			bx -= 32
		}
		if by >= 32 {
			block += 2
			by -= 32
		}
	}

	entryOff := screenBase + uint32(block)*0x800 + uint32(by*32+bx)*2
	entry := bits.Read16(p.vram, entryOff)

	tileID := entry & 0x3FF
	hFlip := entry&(1<<10) != 0
	vFlip := entry&(1<<11) != 0
	palBank := byte((entry >> 12) & 0xF)

	px, py := inX, inY
	if hFlip {
		px = 7 - px
	}
	if vFlip {
		py = 7 - py
	}

	if hi8bpp {
		tileSize := uint32(64)
		tileOff := charBase + uint32(tileID)*tileSize
		idx := bits.Read8(p.vram, tileOff+uint32(py*8+px))
		if idx == 0 {
			return 0, true
		}
		return readColor(p.palette, int(idx)), false
	}

	tileSize := uint32(32)
	tileOff := charBase + uint32(tileID)*tileSize
	byteOff := tileOff + uint32(py*4+px/2)
	b := bits.Read8(p.vram, byteOff)
	var idx byte
	if px%2 == 0 {
		idx = b & 0xF
	} else {
		idx = b >> 4
	}
	if idx == 0 {
		return 0, true
	}
	return readColor(p.palette, int(palBank)*16+int(idx)), false
}

// renderAffineBG fills one scanline of an affine background (BG2/BG3 in
// modes 1/2), sampling through the per-scanline-advanced reference point
// and the PA/PC row-step.
func (p *PPU) renderAffineBG(n int, line int, out *[ScreenWidth]pixel) {
	cnt := p.bgcnt(n)
	priority := bgcntPriority(cnt)
	charBase := bgcntCharBase(cnt)
	screenBase := bgcntScreenBase(cnt)
	wrap := bgcntWrap(cnt)
	size := bgcntScreenSize(cnt)
	mapTiles := affineMapTiles(size)

	pa, _, pc, _ := p.affineParams(n)
	refX, refY := p.bg2RefX, p.bg2RefY
	if n == 3 {
		refX, refY = p.bg3RefX, p.bg3RefY
	}

	mosaicOn := bgcntMosaic(cnt)
	mh, mv, _, _ := p.mosaic()
	_ = mv

	for sx := 0; sx < ScreenWidth; sx++ {
		col := sx
		if mosaicOn && mh > 0 {
			col = (sx / (mh + 1)) * (mh + 1)
		}
		fx := refX + int32(col)*int32(pa)
		fy := refY + int32(col)*int32(pc)
		ix := int(fx >> 8)
		iy := int(fy >> 8)

		mapPixels := mapTiles * 8
		if wrap {
			ix = ((ix % mapPixels) + mapPixels) % mapPixels
			iy = ((iy % mapPixels) + mapPixels) % mapPixels
		} else if ix < 0 || iy < 0 || ix >= mapPixels || iy >= mapPixels {
			out[sx] = pixel{transparent: true, layer: n, priority: priority}
			continue
		}

		tileX, tileY := ix/8, iy/8
		inX, inY := ix%8, iy%8
		entryOff := screenBase + uint32(tileY*mapTiles+tileX)
		tileID := bits.Read8(p.vram, entryOff)

		tileOff := charBase + uint32(tileID)*64
		idx := bits.Read8(p.vram, tileOff+uint32(inY*8+inX))
		if idx == 0 {
			out[sx] = pixel{transparent: true, layer: n, priority: priority}
			continue
		}
		out[sx] = pixel{color: readColor(p.palette, int(idx)), priority: priority, layer: n}
	}
}

func affineMapTiles(size int) int {
	switch size {
	case 0:
		return 16
	case 1:
		return 32
	case 2:
		return 64
	default:
		return 128
	}
}
