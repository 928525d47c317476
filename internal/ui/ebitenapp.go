package ui

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/rbrandao/goba/internal/core"
)

const (
	screenW = 240
	screenH = 160
)

// App is the ebiten game loop driving a core.Machine: input, video, audio,
// and an in-game save-state menu.
type App struct {
	cfg  Config
	m    *core.Machine
	tex  *ebiten.Image
	fb   []uint16
	rgba []byte

	paused bool
	fast   bool
	muted  bool

	stopAudio func()

	showMenu    bool
	menuIdx     int // 0: Save, 1: Load, 2: Mute, 3: Exit menu
	currentSlot int
	toastMsg    string
	toastUntil  time.Time
}

// NewApp wires up the window and starts audio playback for m.
func NewApp(cfg Config, m *core.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(screenW*cfg.Scale, screenH*cfg.Scale)

	a := &App{
		cfg:  cfg,
		m:    m,
		fb:   make([]uint16, screenW*screenH),
		rgba: make([]byte, screenW*screenH*4),
	}
	a.muted = cfg.Mute
	if stop, err := startAudio(m, cfg.AudioLowLatency, &a.muted); err == nil {
		a.stopAudio = stop
	}
	return a
}

func (a *App) Run() error {
	if a.stopAudio != nil {
		defer a.stopAudio()
	}
	return ebiten.RunGame(a)
}

// keyMap is the keyboard-to-GBA-button layout: D-pad on arrows, A/B on
// Z/X, L/R shoulder on A/S, Start/Select on Enter/Shift.
var keyMap = []struct {
	key ebiten.Key
	bit uint16
}{
	{ebiten.KeyZ, 0},          // A
	{ebiten.KeyX, 1},          // B
	{ebiten.KeyShiftRight, 2}, // Select
	{ebiten.KeyEnter, 3},      // Start
	{ebiten.KeyArrowRight, 4},
	{ebiten.KeyArrowLeft, 5},
	{ebiten.KeyArrowUp, 6},
	{ebiten.KeyArrowDown, 7},
	{ebiten.KeyA, 8}, // L shoulder
	{ebiten.KeyS, 9}, // R shoulder
}

func (a *App) pollButtons() {
	var pressed uint16
	for _, k := range keyMap {
		if ebiten.IsKeyPressed(k.key) {
			pressed |= 1 << k.bit
		}
	}
	a.m.SetKeyState(^pressed & 0x03FF)
}

func (a *App) Update() error {
	a.pollButtons()

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.showMenu = !a.showMenu
	}
	if a.showMenu {
		a.updateMenu()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		_ = a.saveScreenshot()
	}
	if a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.m.StepFrame(a.fb)
	}

	if !a.paused && !a.showMenu {
		n := 1
		if a.fast {
			n = 5
		}
		for i := 0; i < n; i++ {
			a.m.StepFrame(a.fb)
		}
	}
	return nil
}

func (a *App) updateMenu() {
	const maxIdx = 3
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
		a.menuIdx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < maxIdx {
		a.menuIdx++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		switch a.menuIdx {
		case 0:
			if err := a.saveSlot(a.currentSlot); err != nil {
				a.toast("save failed: " + err.Error())
			} else {
				a.toast(fmt.Sprintf("saved slot %d", a.currentSlot+1))
			}
		case 1:
			if err := a.loadSlot(a.currentSlot); err != nil {
				a.toast("load failed: " + err.Error())
			} else {
				a.toast(fmt.Sprintf("loaded slot %d", a.currentSlot+1))
			}
		case 2:
			a.muted = !a.muted
		case 3:
			a.showMenu = false
		}
	}
}

func (a *App) slotPath(slot int) string {
	base := a.cfg.StatePath
	if base == "" {
		base = "state"
	}
	return fmt.Sprintf("%s.%d.gst", base, slot)
}

func (a *App) saveSlot(slot int) error {
	return os.WriteFile(a.slotPath(slot), a.m.Serialize(), 0o644)
}

func (a *App) loadSlot(slot int) error {
	data, err := os.ReadFile(a.slotPath(slot))
	if err != nil {
		return err
	}
	return a.m.Deserialize(data)
}

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

var menuFace = basicfont.Face7x13

func drawText(img *image.RGBA, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: menuFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(screenW, screenH)
	}
	bgr555ToRGBA(a.fb, a.rgba)
	a.tex.WritePixels(a.rgba)
	screen.DrawImage(a.tex, nil)

	if a.showMenu {
		overlay := image.NewRGBA(image.Rect(0, 0, screenW, screenH))
		fillRect(overlay, color.RGBA{0, 0, 0, 160})
		lines := []string{"Save state", "Load state", "Toggle mute", "Close menu"}
		for i, s := range lines {
			prefix := "  "
			if i == a.menuIdx {
				prefix = "> "
			}
			drawText(overlay, prefix+s, 8, 16+i*14, color.White)
		}
		screen.DrawImage(ebiten.NewImageFromImage(overlay), nil)
	}

	if !a.toastUntil.IsZero() && time.Now().Before(a.toastUntil) {
		overlay := image.NewRGBA(image.Rect(0, 0, screenW, screenH))
		drawText(overlay, a.toastMsg, 8, screenH-8, color.RGBA{255, 255, 0, 255})
		screen.DrawImage(ebiten.NewImageFromImage(overlay), nil)
	}
}

func fillRect(img *image.RGBA, c color.RGBA) {
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func (a *App) Layout(outW, outH int) (int, int) { return screenW, screenH }

// bgr555ToRGBA expands the PPU's BGR555 framebuffer into ebiten's RGBA8888
// pixel format.
func bgr555ToRGBA(fb []uint16, out []byte) {
	for i, px := range fb {
		r := uint8((px & 0x001F) << 3)
		g := uint8((px & 0x03E0) >> 5 << 3)
		b := uint8((px & 0x7C00) >> 10 << 3)
		o := i * 4
		out[o] = r
		out[o+1] = g
		out[o+2] = b
		out[o+3] = 0xFF
	}
}

func (a *App) saveScreenshot() error {
	bgr555ToRGBA(a.fb, a.rgba)
	img := &image.RGBA{
		Pix:    append([]byte(nil), a.rgba...),
		Stride: 4 * screenW,
		Rect:   image.Rect(0, 0, screenW, screenH),
	}
	ts := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("screenshot_%s.png", ts)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return os.WriteFile(name, buf.Bytes(), 0o644)
}
