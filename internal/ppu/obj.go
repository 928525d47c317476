package ppu

import "github.com/rbrandao/goba/internal/bits"

var objShapeSize = [4][4][2]int{
	// shape 0: square
	{{8, 8}, {16, 16}, {32, 32}, {64, 64}},
	// shape 1: horizontal
	{{16, 8}, {32, 8}, {32, 16}, {64, 32}},
	// shape 2: vertical
	{{8, 16}, {8, 32}, {16, 32}, {32, 64}},
	// shape 3: unused, treated as square-8x8
	{{8, 8}, {8, 8}, {8, 8}, {8, 8}},
}

type objAttrs struct {
	y, x             int
	affine           bool
	doubleSize       bool
	disabled         bool
	mode             int // 0 normal, 1 semi-transparent, 2 OBJ window
	mosaic           bool
	hi8bpp           bool
	shape, size      int
	affineGroup      int
	hFlip, vFlip     bool
	tileID           int
	priority         int
	palBank          int
}

func (p *PPU) readOBJAttrs(index int) objAttrs {
	base := uint32(index * 8)
	a0 := bits.Read16(p.oam, base)
	a1 := bits.Read16(p.oam, base+2)
	a2 := bits.Read16(p.oam, base+4)

	a := objAttrs{
		y:      int(a0 & 0xFF),
		affine: a0&(1<<8) != 0,
		mode:   int((a0 >> 10) & 3),
		mosaic: a0&(1<<12) != 0,
		hi8bpp: a0&(1<<13) != 0,
		shape:  int((a0 >> 14) & 3),
		x:      int(a1 & 0x1FF),
		size:   int((a1 >> 14) & 3),
		tileID: int(a2 & 0x3FF),
		priority: int((a2 >> 10) & 3),
		palBank:  int((a2 >> 12) & 0xF),
	}
	if a.affine {
		a.doubleSize = a0&(1<<9) != 0
		a.affineGroup = int((a1 >> 9) & 0x1F)
	} else {
		a.disabled = a0&(1<<9) != 0
		a.hFlip = a1&(1<<12) != 0
		a.vFlip = a1&(1<<13) != 0
	}
	if a.x >= 240 {
		a.x -= 512 // sign-extend the 9-bit coordinate for off-left placement
	}
	return a
}

func (p *PPU) readAffineGroup(group int) (pa, pb, pc, pd int16) {
	base := uint32(group*32 + 6) // attr3 of OAM entry group*4, stride 8 bytes each
	return int16(bits.Read16(p.oam, base)),
		int16(bits.Read16(p.oam, base+8)),
		int16(bits.Read16(p.oam, base+16)),
		int16(bits.Read16(p.oam, base+24))
}

// renderOBJ scans all 128 OAM entries for sprites intersecting line; at
// each column the opaque pixel of the lowest-indexed OAM entry wins,
// whatever the entries' priority fields. Mode-2 (OBJ window) sprites are invisible
// themselves; they only mark objWin for the window compositor.
func (p *PPU) renderOBJ(line int, out *[ScreenWidth]pixel, objWin *[ScreenWidth]bool) {
	var claimed [ScreenWidth]bool
	oneD := p.obj1D()

	for i := 0; i < 128; i++ {
		a := p.readOBJAttrs(i)
		if !a.affine && a.disabled {
			continue
		}
		w, h := objShapeSize[a.shape][a.size][0], objShapeSize[a.shape][a.size][1]
		boundW, boundH := w, h
		if a.affine && a.doubleSize {
			boundW, boundH = w*2, h*2
		}

		y0 := a.y
		if y0+boundH > 256 && y0 > 160 {
			y0 -= 256 // wrap near the bottom of OAM's 8-bit Y coordinate
		}
		if line < y0 || line >= y0+boundH {
			continue
		}

		var pa, pb, pc, pd int16
		if a.affine {
			pa, pb, pc, pd = p.readAffineGroup(a.affineGroup)
		}

		cx, cy := w/2, h/2
		screenCX, screenCY := boundW/2, boundH/2
		dy := line - y0 - screenCY

		for sx := 0; sx < boundW; sx++ {
			px := a.x + sx
			if px < 0 || px >= ScreenWidth || claimed[px] {
				continue
			}
			dx := sx - screenCX

			var tx, ty int
			if a.affine {
				fx := int32(cx)<<8 + int32(dx)*int32(pa) + int32(dy)*int32(pb)
				fy := int32(cy)<<8 + int32(dx)*int32(pc) + int32(dy)*int32(pd)
				tx, ty = int(fx>>8), int(fy>>8)
				if tx < 0 || ty < 0 || tx >= w || ty >= h {
					continue
				}
			} else {
				tx, ty = dx+cx, dy+cy
				if a.hFlip {
					tx = w - 1 - tx
				}
				if a.vFlip {
					ty = h - 1 - ty
				}
			}

			color, transparent := p.sampleOBJTile(a, tx, ty, w, oneD)
			if transparent {
				continue
			}
			if a.mode == 2 {
				objWin[px] = true
				continue
			}
			claimed[px] = true
			out[px] = pixel{
				color:     color,
				priority:  a.priority,
				layer:     layerOBJ,
				semiTrans: a.mode == 1,
			}
		}
	}
}

func (p *PPU) sampleOBJTile(a objAttrs, tx, ty, spriteWidthPx int, oneD bool) (uint16, bool) {
	tileX, tileY := tx/8, ty/8
	inX, inY := tx%8, ty%8
	tilesPerRow := spriteWidthPx / 8

	const charBase = 0x10000 // OBJ tile VRAM starts at 0x06010000 (0x10000 within VRAM)

	if a.hi8bpp {
		var tileID int
		if oneD {
			tileID = a.tileID/2 + tileY*tilesPerRow + tileX
		} else {
			tileID = a.tileID/2 + tileY*32 + tileX
		}
		off := uint32(charBase + tileID*64)
		idx := bits.Read8(p.vram, off+uint32(inY*8+inX))
		if idx == 0 {
			return 0, true
		}
		return readColor(p.palette, 256+int(idx)), false
	}

	var tileID int
	if oneD {
		tileID = a.tileID + tileY*tilesPerRow + tileX
	} else {
		tileID = a.tileID + tileY*32 + tileX
	}
	off := uint32(charBase + tileID*32)
	byteOff := off + uint32(inY*4+inX/2)
	b := bits.Read8(p.vram, byteOff)
	var idx byte
	if inX%2 == 0 {
		idx = b & 0xF
	} else {
		idx = b >> 4
	}
	if idx == 0 {
		return 0, true
	}
	return readColor(p.palette, 256+a.palBank*16+int(idx)), false
}
