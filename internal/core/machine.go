// Package core assembles the CPU, bus, PPU, APU, DMA, timers, and interrupt
// controller into the single owning Machine aggregate and drives them with
// the scheduler-based run loop: per frame, run the CPU until the next due
// event, dispatch it, and repeat until 280,896 cycles have elapsed.
package core

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"strings"

	"github.com/rbrandao/goba/internal/apu"
	"github.com/rbrandao/goba/internal/bus"
	"github.com/rbrandao/goba/internal/cart"
	"github.com/rbrandao/goba/internal/cpu"
	"github.com/rbrandao/goba/internal/dma"
	"github.com/rbrandao/goba/internal/irqc"
	"github.com/rbrandao/goba/internal/mem"
	"github.com/rbrandao/goba/internal/ppu"
	"github.com/rbrandao/goba/internal/sched"
	"github.com/rbrandao/goba/internal/timer"
)

// Per-scanline timing: 228 lines of 1232 cycles each, HDraw ending
// at dot 1006.
const (
	cyclesPerLine = 1232
	hdrawCycles   = 1006
	linesPerFrame = 228
	frameCycles   = linesPerFrame * cyclesPerLine // 280,896

	defaultSampleRate = 48000
	maxROMSize        = 32 * 1024 * 1024

	stateMagic   = "RBAV"
	stateVersion = 1
)

var backupKindByName = map[string]cart.Kind{
	"":         cart.KindNone,
	"NONE":     cart.KindNone,
	"SRAM":     cart.KindSRAM,
	"FLASH64":  cart.KindFlash64K,
	"FLASH512": cart.KindFlash64K,
	"FLASH128": cart.KindFlash128K,
	"FLASH1M":  cart.KindFlash128K,
	"EEPROM":   cart.KindEEPROM,
}

// Machine is the complete emulated console. It is not safe for concurrent
// use; callers driving StepFrame from one goroutine and SetKeyState from
// another must synchronize themselves.
type Machine struct {
	bus   *bus.Bus
	cpu   *cpu.CPU
	ppu   *ppu.PPU
	sched *sched.Scheduler

	trace      bool
	rtcEnabled bool
}

// Config holds the boot/behavior knobs New resolves once at construction
// time. The zero value matches the default behavior New(...) has always
// had: boot from the BIOS reset vector, no tracing, size-based Flash ID.
type Config struct {
	// SkipBIOS seeds the post-boot register/stack state immediately,
	// equivalent to calling (*Machine).SkipBIOS() right after New.
	SkipBIOS bool
	// Trace records whether a caller asked for tracing; the core itself
	// never logs (internal packages return values/errors, not log lines),
	// so this is just a flag front-ends can poll via (*Machine).Traced()
	// to decide whether to print their own diagnostics.
	Trace bool
	// FlashID overrides the Flash backup chip's reported manufacturer/
	// device ID bytes, resolving the open question of which chip identity
	// to emulate. The zero value ([2]byte{}) means "use the size-based
	// default" (Panasonic 0x1B32 for 64KB, Macronix 0xC21C for 128KB).
	// Has no effect on SRAM/EEPROM carts.
	FlashID [2]byte
	// RTCEnabled is carried for parity with the ROM header's RTC capability
	// bit. This core stubs the cartridge RTC regardless of this flag (no
	// cycle-accurate serial clock protocol), so it has no behavioral
	// effect yet; it exists so a front-end's configuration surface has
	// somewhere to put the setting without the flag silently vanishing.
	RTCEnabled bool
}

// New constructs a Machine from a 16KB BIOS image and a cartridge ROM image
// with default configuration; equivalent to
// NewWithConfig(biosBytes, romBytes, backupName, Config{}).
// backupName optionally overrides the auto-detected backup chip ("SRAM",
// "FLASH64", "FLASH128", "EEPROM", or "" to auto-detect from the ROM's
// embedded id string); an unrecognized name is rejected rather than
// silently ignored.
func New(biosBytes, romBytes []byte, backupName string) (*Machine, error) {
	return NewWithConfig(biosBytes, romBytes, backupName, Config{})
}

// NewWithConfig is New with explicit boot/behavior configuration.
func NewWithConfig(biosBytes, romBytes []byte, backupName string, cfg Config) (*Machine, error) {
	if len(biosBytes) != mem.BIOSSize {
		return nil, ErrBadBios
	}
	if len(romBytes) == 0 || len(romBytes)%4 != 0 || len(romBytes) > maxROMSize {
		return nil, ErrBadRom
	}

	c, err := cart.Load(romBytes)
	if err != nil {
		return nil, ErrBadRom
	}
	if backupName != "" {
		kind, ok := backupKindByName[strings.ToUpper(backupName)]
		if !ok {
			return nil, ErrUnsupportedBackup
		}
		c.Kind = kind
		c.Backup = cart.NewBackup(kind)
	}
	if fl, ok := c.Backup.(*cart.Flash); ok && cfg.FlashID != ([2]byte{}) {
		fl.SetID(cfg.FlashID[0], cfg.FlashID[1])
	}

	b := bus.New(c)
	b.Mem.LoadBIOS(biosBytes)

	m := &Machine{bus: b, sched: sched.New(), trace: cfg.Trace, rtcEnabled: cfg.RTCEnabled}
	m.cpu = cpu.New(b, b.IRQ)
	b.SetLastOpcodeSource(m.cpu.LastOpcode)
	b.SetPCSource(m.cpu.PC)

	b.Timer = timer.New(m)
	b.DMA = dma.New(b, b.IRQ)
	b.APU = apu.New(defaultSampleRate)

	m.ppu = ppu.New(b.Mem.VRAM, b.Mem.OAM, b.Mem.Palette, b.IOShadow())
	m.wirePPUHooks()

	b.VCount = m.ppu.VCount
	b.DispStat = m.ppu.DispStatBits
	b.SetDispStat = m.ppu.SetDispStatControl

	m.cpu.Reset()
	m.ppu.BeginHDraw(0)
	m.sched.Schedule(hdrawCycles, sched.EventPPU, 0)

	if cfg.SkipBIOS {
		m.SkipBIOS()
	}

	return m, nil
}

// Traced reports whether this Machine was constructed with Config.Trace
// set, for front-ends that want to gate their own diagnostic logging on it.
func (m *Machine) Traced() bool { return m.trace }

// wirePPUHooks connects the PPU's scanline-boundary callbacks to the DMA
// and interrupt controllers it shares the bus with. DMA's VBlank/HBlank
// triggers fire unconditionally on the timing transition; the IRQ hooks
// fire only when the PPU's own DISPSTAT enable bits are set (the PPU
// already gates that before invoking them).
func (m *Machine) wirePPUHooks() {
	b := m.bus
	m.ppu.OnVBlank = func() { b.DMA.Trigger(dma.TimingVBlank) }
	m.ppu.OnHBlank = func() { b.DMA.Trigger(dma.TimingHBlank) }
	m.ppu.OnVBlankIRQ = func() { b.IRQ.Raise(irqc.SourceVBlank) }
	m.ppu.OnHBlankIRQ = func() { b.IRQ.Raise(irqc.SourceHBlank) }
	m.ppu.OnVCountIRQ = func() { b.IRQ.Raise(irqc.SourceVCount) }
}

// TimerOverflow implements timer.OverflowListener: it raises the timer's
// IRQ, drains whichever Direct Sound FIFO that timer drives, and if the
// drained FIFO needs a refill, fires the one DMA channel hardwired to it
// (channel 1 for FIFO A, channel 2 for FIFO B).
func (m *Machine) TimerOverflow(index int) {
	m.bus.IRQ.TimerOverflow(index)
	if m.bus.APU == nil {
		return
	}
	refillA, refillB := m.bus.APU.OnTimerOverflow(index)
	if refillA {
		m.bus.DMA.TriggerDRQ(1)
	}
	if refillB {
		m.bus.DMA.TriggerDRQ(2)
	}
}

// SkipBIOS seeds the post-boot register/stack state and zeroes VRAM and
// palette RAM, matching what a real BIOS leaves behind by the time it
// hands control to cartridge code at 0x0800_0000.
func (m *Machine) SkipBIOS() {
	m.cpu.ResetSkipBIOS()
	for i := range m.bus.Mem.VRAM {
		m.bus.Mem.VRAM[i] = 0
	}
	for i := range m.bus.Mem.Palette {
		m.bus.Mem.Palette[i] = 0
	}
}

// StepFrame runs exactly one frame's worth of bus cycles (280,896),
// writing the rendered BGR555 framebuffer into fb (must be at least
// 240*160 uint16s) as the scheduler's PPU events fire.
func (m *Machine) StepFrame(fb []uint16) {
	if len(fb) >= ppu.ScreenWidth*ppu.ScreenHeight {
		m.ppu.SetFramebuffer(fb)
	}

	target := m.sched.Now() + frameCycles
	for m.sched.Now() < target {
		next := m.sched.PeekCycle(target)
		if next > target {
			next = target
		}
		for m.sched.Now() < next {
			cyc := m.cpu.Step()
			if cyc < 1 {
				cyc = 1
			}
			u := uint64(cyc)
			m.sched.Advance(u)
			m.bus.Timer.Advance(u)
			m.bus.APU.Tick(cyc)
		}
		m.sched.PopDue(m.dispatchEvent)
	}
}

func (m *Machine) dispatchEvent(e *sched.Event) {
	if e.Kind != sched.EventPPU {
		return
	}
	if e.Chan == 0 {
		m.ppu.EndHDraw()
		m.sched.Schedule(e.At+(cyclesPerLine-hdrawCycles), sched.EventPPU, 1)
		return
	}
	line := m.ppu.Line() + 1
	if line >= linesPerFrame {
		line = 0
	}
	m.ppu.BeginHDraw(line)
	m.sched.Schedule(e.At+hdrawCycles, sched.EventPPU, 0)
}

// CollectAudioSamples drains every stereo frame currently buffered in the
// APU's output ring, interleaved as L,R int16 pairs.
func (m *Machine) CollectAudioSamples() []int16 {
	n := m.bus.APU.StereoAvailable()
	if n == 0 {
		return nil
	}
	return m.bus.APU.PullStereo(n)
}

// SetKeyState updates the keypad register. Per the GBA convention the core
// API exposes, a set bit means that key is released; a clear bit means
// pressed. Internally the IRQ controller wants the inverse (pressed=1) to
// evaluate the keypad-IRQ AND/OR condition against KEYCNT's select lines.
func (m *Machine) SetKeyState(mask uint16) {
	m.bus.IRQ.SetKeyState(^mask & 0x03FF)
}

// GameTitle returns the 12-byte ASCII title from the ROM header.
func (m *Machine) GameTitle() string { return m.bus.Cart.Header.Title }

// GameCode returns the 4-byte ASCII game code from the ROM header.
func (m *Machine) GameCode() string { return m.bus.Cart.Header.Code }

// SaveBattery returns the cartridge's backup memory contents, if the
// cartridge carries any (SRAM/Flash/EEPROM), for the caller to persist to
// disk; ok is false for KindNone carts.
func (m *Machine) SaveBattery() (data []byte, ok bool) {
	if m.bus.Cart == nil || m.bus.Cart.Backup == nil {
		return nil, false
	}
	return m.bus.Cart.Backup.Serialize(), true
}

// LoadBattery restores previously saved backup memory contents.
func (m *Machine) LoadBattery(data []byte) error {
	if m.bus.Cart == nil || m.bus.Cart.Backup == nil {
		return nil
	}
	return m.bus.Cart.Backup.Deserialize(data)
}

type stateEnvelope struct {
	CPU   []byte
	Bus   []byte
	PPU   []byte
	Sched []byte
}

// Serialize encodes the complete machine state (CPU registers, RAM, backup
// memory, DMA/timer/IRQ/APU state, PPU state, and the scheduler's pending
// events) into a versioned "RBAV" envelope. ROM and BIOS bytes are not
// included: both are caller-supplied and assumed unchanged across a
// round trip.
func (m *Machine) Serialize() []byte {
	env := stateEnvelope{
		CPU:   m.cpu.SaveState(),
		Bus:   m.bus.SaveState(),
		PPU:   m.ppu.SaveState(),
		Sched: m.sched.SaveState(),
	}
	var payload bytes.Buffer
	_ = gob.NewEncoder(&payload).Encode(env)

	var out bytes.Buffer
	out.WriteString(stateMagic)
	_ = binary.Write(&out, binary.BigEndian, uint32(stateVersion))
	out.Write(payload.Bytes())
	return out.Bytes()
}

// Deserialize restores a machine state previously produced by Serialize.
// An incompatible magic or version is ErrSaveStateMismatch, matching spec
// §7 exactly.
func (m *Machine) Deserialize(data []byte) error {
	if len(data) < 8 || string(data[:4]) != stateMagic {
		return ErrSaveStateMismatch
	}
	if binary.BigEndian.Uint32(data[4:8]) != stateVersion {
		return ErrSaveStateMismatch
	}

	var env stateEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data[8:])).Decode(&env); err != nil {
		return fmt.Errorf("core: decode save state: %w", err)
	}
	if err := m.cpu.LoadState(env.CPU); err != nil {
		return err
	}
	if err := m.bus.LoadState(env.Bus); err != nil {
		return err
	}
	if err := m.ppu.LoadState(env.PPU); err != nil {
		return err
	}
	if err := m.sched.LoadState(env.Sched); err != nil {
		return err
	}
	return nil
}
