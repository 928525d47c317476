// Command armrunner drives one or more GBA ROM images through the core
// headlessly and reports pass/fail. GBA test ROMs have no serial port to
// watch, so armrunner runs a fixed frame budget and classifies the result
// by the final framebuffer's checksum against an expected value; omit
// -expect to just record a baseline checksum.
package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/rbrandao/goba/internal/core"
)

type runResult struct {
	rom      string
	frames   int
	elapsed  time.Duration
	fbCRC    uint32
	mismatch bool
	timedOut bool
	err      error
}

func runOne(biosBytes []byte, romPath string, maxFrames int, timeout time.Duration, expectCRC, wavOut string) runResult {
	res := runResult{rom: romPath}

	romBytes, err := os.ReadFile(romPath)
	if err != nil {
		res.err = fmt.Errorf("read rom: %w", err)
		return res
	}
	m, err := core.New(biosBytes, romBytes, "")
	if err != nil {
		res.err = fmt.Errorf("core.New: %w", err)
		return res
	}
	m.SkipBIOS()

	var audioBuf []int16
	fb := make([]uint16, 240*160)
	deadline := time.Now().Add(timeout)
	start := time.Now()

	for i := 0; i < maxFrames; i++ {
		m.StepFrame(fb)
		res.frames = i + 1
		if wavOut != "" {
			audioBuf = append(audioBuf, m.CollectAudioSamples()...)
		}
		if timeout > 0 && time.Now().After(deadline) {
			res.timedOut = true
			break
		}
	}
	res.elapsed = time.Since(start)

	rgba := make([]byte, len(fb)*4)
	for i, px := range fb {
		o := i * 4
		rgba[o] = byte((px & 0x001F) << 3)
		rgba[o+1] = byte((px & 0x03E0) >> 5 << 3)
		rgba[o+2] = byte((px & 0x7C00) >> 10 << 3)
		rgba[o+3] = 0xFF
	}
	res.fbCRC = crc32.ChecksumIEEE(rgba)
	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		if got := fmt.Sprintf("%08x", res.fbCRC); got != want {
			res.mismatch = true
		}
	}

	if wavOut != "" && len(audioBuf) > 0 {
		if err := writeWAV(wavOut, audioBuf); err != nil {
			log.Printf("%s: write wav: %v", romPath, err)
		}
	}
	return res
}

func writeWAV(path string, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 48000, 16, 2, 1)
	defer enc.Close()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 48000},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	return enc.Write(buf)
}

func main() {
	biosPath := flag.String("bios", "", "path to the 16KB GBA BIOS image")
	romList := flag.String("roms", "", "comma-separated list of ROM paths to run")
	frames := flag.Int("frames", 3600, "frames to run each ROM for")
	timeout := flag.Duration("timeout", 30*time.Second, "wall-clock timeout per ROM; 0 disables")
	expect := flag.String("expect", "", "expected final-frame CRC32 (single-ROM mode only)")
	wavOut := flag.String("wav", "", "dump captured audio to this WAV path (single-ROM mode only)")
	concurrency := flag.Int("j", 4, "number of ROMs to run concurrently in batch mode")
	flag.Parse()

	if *biosPath == "" || *romList == "" {
		log.Fatal("-bios and -roms are required")
	}
	bios, err := os.ReadFile(*biosPath)
	if err != nil {
		log.Fatalf("read bios: %v", err)
	}
	roms := strings.Split(*romList, ",")

	if len(roms) == 1 {
		res := runOne(bios, roms[0], *frames, *timeout, *expect, *wavOut)
		printResult(res)
		if res.err != nil || res.timedOut || res.mismatch {
			os.Exit(1)
		}
		return
	}

	results := make([]runResult, len(roms))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(*concurrency)
	for i, rom := range roms {
		i, rom := i, rom
		g.Go(func() error {
			res := runOne(bios, rom, *frames, *timeout, "", "")
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failures := 0
	for _, res := range results {
		printResult(res)
		if res.err != nil || res.timedOut {
			failures++
		}
	}
	fmt.Printf("\n%d/%d ROMs completed cleanly\n", len(roms)-failures, len(roms))
	if failures > 0 {
		os.Exit(1)
	}
}

func printResult(res runResult) {
	status := "OK"
	switch {
	case res.err != nil:
		status = "ERROR: " + res.err.Error()
	case res.timedOut:
		status = "TIMEOUT"
	case res.mismatch:
		status = "MISMATCH"
	}
	fmt.Printf("%-40s %-10s frames=%d elapsed=%s fb_crc32=%08x\n",
		res.rom, status, res.frames, res.elapsed.Truncate(time.Millisecond), res.fbCRC)
}
