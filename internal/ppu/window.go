package ppu

// windowMask reports, for one screen column, which layers (BG0..3, OBJ,
// effect) are enabled by the active window region. Window precedence is
// WIN0 > WIN1 > OBJ window > outside, per GBATEK.
func (p *PPU) windowMask(x, y int) uint16 {
	if !p.anyWindowEnabled() {
		return 0x3F // everything enabled, including the effect bit
	}

	if p.win0Enabled() && p.inWindow(0, x, y) {
		return p.winin() & 0x3F
	}
	if p.win1Enabled() && p.inWindow(1, x, y) {
		return (p.winin() >> 8) & 0x3F
	}
	return p.winout() & 0x3F
}

func (p *PPU) inWindow(n, x, y int) bool {
	left, right := p.windowH(n)
	top, bottom := p.windowV(n)
	inX := wrappedRange(x, left, right, ScreenWidth)
	inY := wrappedRange(y, top, bottom, ScreenHeight)
	return inX && inY
}

// wrappedRange reports whether v falls in [lo,hi) treating hi<lo (or
// hi>dim) as hardware does: the coordinate wraps around the screen edge.
func wrappedRange(v, lo, hi, dim int) bool {
	if hi > dim || hi < lo {
		return v >= lo || v < hi
	}
	return v >= lo && v < hi
}

// compose picks, for each column, the highest-priority visible layer
// (windowed BG lines and the OBJ line), then applies BLDCNT's color
// special effect between the top two layers.
func (p *PPU) compose(line int, bgLines *[4][ScreenWidth]pixel, objLine *[ScreenWidth]pixel, objWin *[ScreenWidth]bool, row []uint16) {
	backdrop := p.backdropColor()
	mode := p.bgMode()
	bgActive := [4]bool{}
	switch mode {
	case 0:
		bgActive = [4]bool{p.bgEnabled(0), p.bgEnabled(1), p.bgEnabled(2), p.bgEnabled(3)}
	case 1:
		bgActive = [4]bool{p.bgEnabled(0), p.bgEnabled(1), p.bgEnabled(2), false}
	case 2:
		bgActive = [4]bool{false, false, p.bgEnabled(2), p.bgEnabled(3)}
	default:
		bgActive = [4]bool{false, false, p.bgEnabled(2), false}
	}

	blendMode := p.blendMode()
	eva, evb := blendCoeffs(p.bldalpha())
	evy := blendY(p.bldy())

	for x := 0; x < ScreenWidth; x++ {
		mask := p.windowMask(x, line)
		if p.objWinEnabled() && objWin[x] && !(p.win0Enabled() && p.inWindow(0, x, line)) && !(p.win1Enabled() && p.inWindow(1, x, line)) {
			mask = p.winoutObjMask()
		}

		var candidates [5]pixel
		n := 0
		for layer := 0; layer < 4; layer++ {
			if !bgActive[layer] {
				continue
			}
			px := bgLines[layer][x]
			if px.transparent {
				continue
			}
			if mask&(1<<uint(layer)) == 0 {
				continue
			}
			candidates[n] = px
			n++
		}
		if !objLine[x].transparent && mask&(1<<4) != 0 {
			candidates[n] = objLine[x]
			n++
		}

		top, second, hasTop, hasSecond := topTwoPixels(candidates[:n])

		topColor := backdrop
		if hasTop {
			topColor = top.color
		}

		effectEnabled := mask&(1<<5) != 0
		if effectEnabled && hasTop {
			if top.semiTrans && hasSecond {
				topColor = blendAlpha(top.color, second.color, eva, evb)
			} else if top.semiTrans && !hasSecond {
				topColor = blendAlpha(top.color, backdrop, eva, evb)
			} else {
				switch blendMode {
				case 1:
					if p.blendTarget1(top.layer) {
						bottomColor := backdrop
						bottomIsTarget2 := true
						if hasSecond {
							bottomColor = second.color
							bottomIsTarget2 = p.blendTarget2(second.layer)
						} else {
							bottomIsTarget2 = p.blendTarget2(layerBackdrop)
						}
						if bottomIsTarget2 {
							topColor = blendAlpha(top.color, bottomColor, eva, evb)
						}
					}
				case 2:
					if p.blendTarget1(top.layer) {
						topColor = blendBrighten(top.color, evy)
					}
				case 3:
					if p.blendTarget1(top.layer) {
						topColor = blendDarken(top.color, evy)
					}
				}
			}
		}

		row[x] = topColor
	}
}

// winoutObjMask is WINOUT's high byte (the OBJ-window layer-enable mask).
func (p *PPU) winoutObjMask() uint16 { return (p.winout() >> 8) & 0x3F }

// topTwoPixels finds the frontmost and second-frontmost pixel among
// candidates, by a single linear pass (candidate counts never exceed 5, so
// this beats sorting).
func topTwoPixels(cands []pixel) (top, second pixel, hasTop, hasSecond bool) {
	topIdx := -1
	for i, c := range cands {
		if topIdx == -1 || betterPixel(c, cands[topIdx]) {
			topIdx = i
		}
	}
	if topIdx == -1 {
		return pixel{}, pixel{}, false, false
	}
	top = cands[topIdx]
	hasTop = true

	secondIdx := -1
	for i, c := range cands {
		if i == topIdx {
			continue
		}
		if secondIdx == -1 || betterPixel(c, cands[secondIdx]) {
			secondIdx = i
		}
	}
	if secondIdx == -1 {
		return top, pixel{}, true, false
	}
	return top, cands[secondIdx], true, true
}

// betterPixel reports whether a should be drawn in front of b: lower
// priority value wins; ties go to OBJ over BG, then lower BG index first.
func betterPixel(a, b pixel) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if a.layer == layerOBJ && b.layer != layerOBJ {
		return true
	}
	if b.layer == layerOBJ && a.layer != layerOBJ {
		return false
	}
	return a.layer < b.layer
}

func blendCoeffs(v uint16) (eva, evb int) {
	eva = int(v & 0x1F)
	if eva > 16 {
		eva = 16
	}
	evb = int((v >> 8) & 0x1F)
	if evb > 16 {
		evb = 16
	}
	return
}

func blendY(v uint16) int {
	y := int(v & 0x1F)
	if y > 16 {
		y = 16
	}
	return y
}

func blendAlpha(c1, c2 uint16, eva, evb int) uint16 {
	r1, g1, b1 := splitColor(c1)
	r2, g2, b2 := splitColor(c2)
	r := clamp5((r1*eva + r2*evb) / 16)
	g := clamp5((g1*eva + g2*evb) / 16)
	b := clamp5((b1*eva + b2*evb) / 16)
	return joinColor(r, g, b)
}

func blendBrighten(c uint16, evy int) uint16 {
	r, g, b := splitColor(c)
	r = clamp5(r + (31-r)*evy/16)
	g = clamp5(g + (31-g)*evy/16)
	b = clamp5(b + (31-b)*evy/16)
	return joinColor(r, g, b)
}

func blendDarken(c uint16, evy int) uint16 {
	r, g, b := splitColor(c)
	r = clamp5(r - r*evy/16)
	g = clamp5(g - g*evy/16)
	b = clamp5(b - b*evy/16)
	return joinColor(r, g, b)
}

func splitColor(c uint16) (r, g, b int) {
	return int(c & 0x1F), int((c >> 5) & 0x1F), int((c >> 10) & 0x1F)
}

func joinColor(r, g, b int) uint16 {
	return uint16(r) | uint16(g)<<5 | uint16(b)<<10
}

func clamp5(v int) int {
	if v < 0 {
		return 0
	}
	if v > 31 {
		return 31
	}
	return v
}
