package core

import (
	"testing"

	"github.com/rbrandao/goba/internal/cpu"
	"github.com/rbrandao/goba/internal/mem"
)

func makeBIOS() []byte { return make([]byte, mem.BIOSSize) }

// loopROM is a 192-byte ROM whose first instruction is the classic ARM
// "branch to self" encoding (0xEAFFFFFE), an infinite loop, padded out to a
// valid header size with a recognizable title/code in the header region.
func loopROM() []byte {
	rom := make([]byte, 192)
	rom[0], rom[1], rom[2], rom[3] = 0xFE, 0xFF, 0xFF, 0xEA
	copy(rom[0xA0:], "GOBALOOP")
	copy(rom[0xAC:], "GOBA")
	return rom
}

func TestNew_RejectsBadBios(t *testing.T) {
	if _, err := New(make([]byte, 100), loopROM(), ""); err != ErrBadBios {
		t.Fatalf("New with bad bios = %v, want ErrBadBios", err)
	}
}

func TestNew_RejectsBadRom(t *testing.T) {
	if _, err := New(makeBIOS(), nil, ""); err != ErrBadRom {
		t.Fatalf("New with empty rom = %v, want ErrBadRom", err)
	}
	if _, err := New(makeBIOS(), []byte{1, 2, 3}, ""); err != ErrBadRom {
		t.Fatalf("New with unaligned rom = %v, want ErrBadRom", err)
	}
}

func TestNew_RejectsUnsupportedBackupName(t *testing.T) {
	if _, err := New(makeBIOS(), loopROM(), "CASSETTE"); err != ErrUnsupportedBackup {
		t.Fatalf("New with bogus backup name = %v, want ErrUnsupportedBackup", err)
	}
}

// Booting from an official-compatible BIOS and observing its own boot code
// run isn't exercised here directly since this repo has no BIOS image
// fixture to load; instead this checks the one piece of that boot contract
// SkipBIOS itself owns (the seeded post-boot register/stack values), and
// confirms a branch-to-self loop ROM converges PC on its own address after
// one frame.
func TestMachine_SkipBIOSAndLoopConverges(t *testing.T) {
	m, err := New(makeBIOS(), loopROM(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.SkipBIOS()

	if mode := m.cpu.Regs.Mode(); mode != cpu.ModeSYS {
		t.Fatalf("mode after SkipBIOS = %#x, want System", mode)
	}
	origMode := m.cpu.Regs.Mode()
	m.cpu.Regs.SetMode(cpu.ModeSVC)
	if sp := m.cpu.Regs.Get(13); sp != 0x0300_7FE0 {
		t.Fatalf("R13_svc = %#x, want 0x03007FE0", sp)
	}
	m.cpu.Regs.SetMode(cpu.ModeIRQ)
	if sp := m.cpu.Regs.Get(13); sp != 0x0300_7FA0 {
		t.Fatalf("R13_irq = %#x, want 0x03007FA0", sp)
	}
	m.cpu.Regs.SetMode(origMode)
	if sp := m.cpu.Regs.Get(13); sp != 0x0300_7F00 {
		t.Fatalf("R13_usr/sys = %#x, want 0x03007F00", sp)
	}

	fb := make([]uint16, 240*160)
	m.StepFrame(fb)

	if pc := m.cpu.Regs.PC(); pc != 0x0800_0000 {
		t.Fatalf("PC after stepping the loop ROM = %#x, want 0x08000000", pc)
	}
}

// Scenario 3: a program that sets DISPCNT to mode 3 with BG2 enabled and
// plots one white pixel must produce exactly that pixel in the framebuffer
// and nothing else.
func TestMachine_Mode3Plot(t *testing.T) {
	m, err := New(makeBIOS(), loopROM(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.SkipBIOS()

	m.bus.Write16(0x0400_0000, 0x0403) // DISPCNT: mode 3, BG2 enable
	m.bus.Write16(0x0600_0000, 0x7FFF) // VRAM[0]: opaque white

	fb := make([]uint16, 240*160)
	m.StepFrame(fb)

	if fb[0] != 0x7FFF {
		t.Fatalf("fb[0] = %04x, want 7fff", fb[0])
	}
	for i := 1; i < len(fb); i++ {
		if fb[i] != 0 {
			t.Fatalf("fb[%d] = %04x, want 0", i, fb[i])
		}
	}
}

// Scenario 4: timer 0 at prescale 1024 reload 0xFF00 cascading into timer 1
// (reload 0xFFFE) overflows timer 1 exactly once, setting IF bit 4, after
// 1024*256*2 elapsed bus cycles.
func TestMachine_TimerCascadeRaisesIRQ(t *testing.T) {
	m, err := New(makeBIOS(), loopROM(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.SkipBIOS()

	m.bus.Write16(0x0400_0208, 0) // IME off, just latching IF for this test
	m.bus.Write16(0x0400_0200, 1<<4) // IE: Timer1

	m.bus.Write16(0x0400_0100, 0xFF00)              // TM0CNT_L reload
	m.bus.Write16(0x0400_0102, uint16(1<<7|3))      // TM0CNT_H: prescale=1024, enable
	m.bus.Write16(0x0400_0104, 0xFFFE)              // TM1CNT_L reload
	m.bus.Write16(0x0400_0106, uint16(1<<7|1<<2))   // TM1CNT_H: cascade, enable

	const target = 1024 * 256 * 2
	fb := make([]uint16, 240*160)
	for m.sched.Now() < target {
		m.StepFrame(fb)
	}

	if m.bus.IRQ.IF&(1<<4) == 0 {
		t.Fatalf("IF = %#x, want bit 4 (timer1) set", m.bus.IRQ.IF)
	}
}

// Scenario 5: an Immediate-timed DMA0 word copy moves count words from
// source to destination and clears its own enable bit on completion.
func TestMachine_DMAImmediateCopiesAndClearsEnable(t *testing.T) {
	m, err := New(makeBIOS(), loopROM(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.SkipBIOS()

	for i := 0; i < 256; i++ {
		m.bus.Write32(0x0200_0000+uint32(i)*4, uint32(0x1000+i))
	}

	m.bus.Write32(0x0400_00B0, 0x0200_0000) // DMA0 SAD
	m.bus.Write32(0x0400_00B4, 0x0300_0000) // DMA0 DAD
	m.bus.Write16(0x0400_00B8, 256)         // DMA0 CNT_L
	m.bus.Write16(0x0400_00BA, uint16(1<<10|1<<15))

	for i := 0; i < 256; i++ {
		got, _ := m.bus.Read32(0x0300_0000 + uint32(i)*4)
		if want := uint32(0x1000 + i); got != want {
			t.Fatalf("IWRAM[%d] = %#x, want %#x", i, got, want)
		}
	}
	if m.bus.DMA.Channels[0].Enabled {
		t.Fatalf("DMA0 enable bit should clear after a non-repeating immediate transfer")
	}
}

// Scenario 6: serialize/deserialize round-trips machine state exactly,
// including pending scheduler events, so continuing after a reload produces
// the same next frame as continuing without one.
func TestMachine_SaveLoadStateRoundTrip(t *testing.T) {
	m1, err := New(makeBIOS(), loopROM(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m1.SkipBIOS()
	m1.bus.Write16(0x0400_0000, 0x0403)
	m1.bus.Write16(0x0600_0000, 0x7FFF)

	fb1 := make([]uint16, 240*160)
	for i := 0; i < 5; i++ {
		m1.StepFrame(fb1)
	}

	data := m1.Serialize()

	m2, err := New(makeBIOS(), loopROM(), "")
	if err != nil {
		t.Fatalf("New (m2): %v", err)
	}
	if err := m2.Deserialize(data); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	fb2 := make([]uint16, 240*160)
	m1.StepFrame(fb1)
	m2.StepFrame(fb2)

	for i := range fb1 {
		if fb1[i] != fb2[i] {
			t.Fatalf("fb mismatch at %d: continued=%04x reloaded=%04x", i, fb1[i], fb2[i])
		}
	}
	if m1.cpu.Regs.PC() != m2.cpu.Regs.PC() {
		t.Fatalf("PC mismatch after round trip: %#x vs %#x", m1.cpu.Regs.PC(), m2.cpu.Regs.PC())
	}
}

func TestMachine_Deserialize_RejectsBadMagic(t *testing.T) {
	m, err := New(makeBIOS(), loopROM(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Deserialize([]byte("not a save state")); err != ErrSaveStateMismatch {
		t.Fatalf("Deserialize with bad magic = %v, want ErrSaveStateMismatch", err)
	}
}

func TestMachine_SetKeyStateInvertsToPressedConvention(t *testing.T) {
	m, err := New(makeBIOS(), loopROM(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.SetKeyState(0x03FF &^ (1 << 0)) // release everything except A pressed
	if got, _ := m.bus.Read16(0x0400_0130); got != (0x03FF &^ 1) {
		t.Fatalf("KEYINPUT = %04x, want bit 0 clear (A pressed)", got)
	}
}

func TestMachine_GameTitleAndCode(t *testing.T) {
	m, err := New(makeBIOS(), loopROM(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.GameTitle() != "GOBALOOP" {
		t.Fatalf("GameTitle = %q, want GOBALOOP", m.GameTitle())
	}
	if m.GameCode() != "GOBA" {
		t.Fatalf("GameCode = %q, want GOBA", m.GameCode())
	}
}
