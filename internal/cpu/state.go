package cpu

import (
	"bytes"
	"encoding/gob"
)

// regsState mirrors Registers' unexported fields so gob can see them; the
// save-state envelope is a private concern of this package, same as the
// ppu/apu packages' own *State structs.
type regsState struct {
	R        [16]uint32
	FIQBank  [5]uint32
	UserBank [5]uint32
	BankedSP [numBanks]uint32
	BankedLR [numBanks]uint32
	SPSR     [numBanks]uint32
	CPSR     uint32
}

type cpuState struct {
	Regs       regsState
	LastOpcode uint32
	Halted     bool
	Stopped    bool
}

// SaveState encodes the full register file and halt/stop latches. The bus
// consumed to build this CPU is saved separately by internal/bus.
func (c *CPU) SaveState() []byte {
	s := cpuState{
		Regs: regsState{
			R:        c.Regs.r,
			FIQBank:  c.Regs.fiqBank,
			UserBank: c.Regs.userBank,
			BankedSP: c.Regs.bankedSP,
			BankedLR: c.Regs.bankedLR,
			SPSR:     c.Regs.spsr,
			CPSR:     c.Regs.cpsr,
		},
		LastOpcode: c.lastOpcode,
		Halted:     c.halted,
		Stopped:    c.stopped,
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func (c *CPU) LoadState(data []byte) error {
	var s cpuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	c.Regs.r = s.Regs.R
	c.Regs.fiqBank = s.Regs.FIQBank
	c.Regs.userBank = s.Regs.UserBank
	c.Regs.bankedSP = s.Regs.BankedSP
	c.Regs.bankedLR = s.Regs.BankedLR
	c.Regs.spsr = s.Regs.SPSR
	c.Regs.cpsr = s.Regs.CPSR
	c.lastOpcode = s.LastOpcode
	c.halted = s.Halted
	c.stopped = s.Stopped
	return nil
}
