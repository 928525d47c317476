package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rbrandao/goba/internal/core"
	"github.com/rbrandao/goba/internal/ui"
)

type cliFlags struct {
	BIOSPath   string
	ROMPath    string
	BackupName string
	Scale      int
	Title      string
	SkipBIOS   bool
	SaveBackup bool

	Headless bool
	Frames   int
	PNGOut   string
	Expect   string
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.BIOSPath, "bios", "", "path to the 16KB GBA BIOS image")
	flag.StringVar(&f.ROMPath, "rom", "", "path to the cartridge ROM image")
	flag.StringVar(&f.BackupName, "backup", "", "override backup kind (SRAM, FLASH64, FLASH128, EEPROM, NONE); default auto-detect")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "goba", "window title")
	flag.BoolVar(&f.SkipBIOS, "skip-bios", false, "jump straight to cartridge entry point instead of running the BIOS boot code")
	flag.BoolVar(&f.SaveBackup, "save", true, "persist cartridge backup memory to ROM.sav on exit and load on start")

	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write the last framebuffer to a PNG at this path")
	flag.StringVar(&f.Expect, "expect", "", "assert the final framebuffer's CRC32 (hex)")
	flag.Parse()
	return f
}

func mustRead(path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func runHeadless(m *core.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}
	fb := make([]uint16, 240*160)
	start := time.Now()
	for i := 0; i < frames; i++ {
		m.StepFrame(fb)
	}
	dur := time.Since(start)

	rgba := make([]byte, len(fb)*4)
	expandFramebuffer(fb, rgba)
	crc := crc32.ChecksumIEEE(rgba)
	fps := float64(frames) / dur.Seconds()
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x", frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := savePNG(rgba, 240, 160, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}
	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		if got := fmt.Sprintf("%08x", crc); got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func expandFramebuffer(fb []uint16, out []byte) {
	for i, px := range fb {
		o := i * 4
		out[o] = byte((px & 0x001F) << 3)
		out[o+1] = byte((px & 0x03E0) >> 5 << 3)
		out[o+2] = byte((px & 0x7C00) >> 10 << 3)
		out[o+3] = 0xFF
	}
}

func savePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{Pix: pix, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func main() {
	f := parseFlags()
	if f.BIOSPath == "" || f.ROMPath == "" {
		log.Fatal("-bios and -rom are required")
	}

	m, err := core.New(mustRead(f.BIOSPath), mustRead(f.ROMPath), f.BackupName)
	if err != nil {
		log.Fatalf("core.New: %v", err)
	}
	if f.SkipBIOS {
		m.SkipBIOS()
	}

	savPath := strings.TrimSuffix(f.ROMPath, ".gba") + ".sav"
	if f.SaveBackup {
		if data, err := os.ReadFile(savPath); err == nil {
			if err := m.LoadBattery(data); err != nil {
				log.Printf("load backup %s: %v", savPath, err)
			} else {
				log.Printf("loaded backup: %s (%d bytes)", savPath, len(data))
			}
		}
	}

	if f.Headless {
		if err := runHeadless(m, f.Frames, f.PNGOut, f.Expect); err != nil {
			log.Fatal(err)
		}
	} else {
		uiCfg := ui.Config{Title: f.Title, Scale: f.Scale, StatePath: strings.TrimSuffix(f.ROMPath, ".gba")}
		app := ui.NewApp(uiCfg, m)
		if err := app.Run(); err != nil {
			log.Fatal(err)
		}
	}

	if f.SaveBackup {
		if data, ok := m.SaveBattery(); ok {
			if err := os.WriteFile(savPath, data, 0o644); err != nil {
				log.Printf("write backup %s: %v", savPath, err)
			} else {
				log.Printf("wrote %s", savPath)
			}
		}
	}
}
