package ppu

import "testing"

func newTestPPU() (*PPU, []byte, []byte, []byte, []byte) {
	vram := make([]byte, 96*1024)
	oam := make([]byte, 1024)
	pal := make([]byte, 1024)
	io := make([]byte, 0x400)
	p := New(vram, oam, pal, io)
	fb := make([]uint16, ScreenWidth*ScreenHeight)
	p.SetFramebuffer(fb)
	return p, vram, oam, pal, io
}

func setReg16(io []byte, off uint32, v uint16) {
	io[off] = byte(v)
	io[off+1] = byte(v >> 8)
}

func TestPPU_VBlankLinesDoNotTouchFramebuffer(t *testing.T) {
	p, _, _, _, io := newTestPPU()
	setReg16(io, regDISPCNT, 3) // mode 3, BG2 enabled below
	setReg16(io, regDISPCNT, (1<<10)|3)

	for i := range p.FB {
		p.FB[i] = 0x1234
	}
	for line := ScreenHeight; line < TotalLines; line++ {
		p.BeginHDraw(line)
		p.EndHDraw()
	}
	for i, v := range p.FB {
		if v != 0x1234 {
			t.Fatalf("framebuffer written during VBlank at pixel %d: got %04x", i, v)
		}
	}
}

func TestPPU_Mode3MatchesVRAMBitmap(t *testing.T) {
	p, vram, _, _, io := newTestPPU()
	setReg16(io, regDISPCNT, (1<<10)|3) // BG2 enabled, mode 3

	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			c := uint16((x + y) & 0x7FFF)
			off := (y*ScreenWidth + x) * 2
			vram[off] = byte(c)
			vram[off+1] = byte(c >> 8)
		}
	}

	for line := 0; line < ScreenHeight; line++ {
		p.BeginHDraw(line)
		p.EndHDraw()
	}

	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			want := uint16((x + y) & 0x7FFF)
			got := p.FB[y*ScreenWidth+x]
			if got != want {
				t.Fatalf("pixel (%d,%d) got %04x want %04x", x, y, got, want)
			}
		}
	}
}

func TestPPU_DispStatStatusBitsFollowLine(t *testing.T) {
	p, _, _, _, _ := newTestPPU()

	p.BeginHDraw(0)
	if p.DispStatBits()&1 != 0 {
		t.Fatalf("VBlank flag set at line 0")
	}
	p.BeginHDraw(ScreenHeight)
	if p.DispStatBits()&1 == 0 {
		t.Fatalf("VBlank flag not set entering line 160")
	}
}

func TestPPU_TextBGOpaqueTileWins(t *testing.T) {
	p, vram, _, pal, io := newTestPPU()
	setReg16(io, regDISPCNT, 1<<8) // mode 0, BG0 enabled
	setReg16(io, regBG0CNT, 0)     // char base 0, screen base 0, 4bpp, 32x32

	// Tile 1, 4bpp, all pixels palette index 1.
	for i := 0; i < 32; i++ {
		vram[32+i] = 0x11
	}
	// Tilemap entry (0,0) -> tile 1.
	vram[0] = 1
	vram[1] = 0

	// Palette bank 0, color 1 = bright green.
	pal[2] = 0xE0
	pal[3] = 0x03

	var line [ScreenWidth]pixel
	p.renderTextBG(0, 0, &line)
	if line[0].transparent {
		t.Fatalf("expected opaque pixel at (0,0)")
	}
	if line[0].color != 0x03E0 {
		t.Fatalf("got color %04x want 03e0", line[0].color)
	}
}

func TestPPU_WindowExcludesLayerOutsideBounds(t *testing.T) {
	p, _, _, _, io := newTestPPU()
	setReg16(io, regDISPCNT, (1<<13)) // WIN0 enabled
	setReg16(io, regWIN0H, uint16(0)<<8|100)
	setReg16(io, regWIN0V, uint16(0)<<8|100)
	setReg16(io, regWININ, 0x01) // inside WIN0: BG0 only

	maskIn := p.windowMask(50, 50)
	if maskIn&1 == 0 {
		t.Fatalf("expected BG0 enabled inside WIN0")
	}
	maskOut := p.windowMask(150, 50)
	if maskOut&1 != 0 {
		t.Fatalf("expected BG0 disabled outside WIN0 (winout defaults to 0)")
	}
}
