package cpu

// execSingleDataTransfer implements LDR/STR, byte and word, with every
// addressing-mode combination (pre/post-index, up/down, write-back, and the
// user-mode-override "T" forms used by privileged code to access memory as
// User would see it).
func execSingleDataTransfer(c *CPU, instr uint32) {
	rn := int((instr >> 16) & 0xF)
	rd := int((instr >> 12) & 0xF)
	load := instr&(1<<20) != 0
	writeBack := instr&(1<<21) != 0
	byteAccess := instr&(1<<22) != 0
	up := instr&(1<<23) != 0
	pre := instr&(1<<24) != 0
	// Post-indexed with W=1 forces a User-mode-view access on real hardware;
	// this core has a single flat address space, so it behaves identically.

	offset := c.ldrStrOffset(instr)
	base := c.Regs.Get(rn)
	if rn == 15 {
		base = c.Regs.PC() + 4
	}

	addr := base
	if pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	if load {
		if byteAccess {
			v, _ := c.bus.Read8(addr)
			c.Regs.Set(rd, uint32(v))
		} else {
			word, _ := c.bus.Read32(addr &^ 3)
			c.Regs.Set(rd, rotateReadWord(word, addr))
		}
		if rd == 15 {
			c.Regs.SetPC(c.Regs.Get(15) &^ 3)
		}
	} else {
		v := c.Regs.Get(rd)
		if rd == 15 {
			v = c.Regs.PC() + 4
		}
		if byteAccess {
			c.bus.Write8(addr, byte(v))
		} else {
			c.bus.Write32(addr&^3, v)
		}
	}

	if !pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.Regs.Set(rn, addr)
	} else if writeBack {
		c.Regs.Set(rn, addr)
	}
}

// execHalfwordTransfer implements LDRH/STRH/LDRSB/LDRSH, both the register
// and immediate-offset forms.
func execHalfwordTransfer(c *CPU, instr uint32) {
	rn := int((instr >> 16) & 0xF)
	rd := int((instr >> 12) & 0xF)
	load := instr&(1<<20) != 0
	writeBack := instr&(1<<21) != 0
	up := instr&(1<<23) != 0
	pre := instr&(1<<24) != 0
	immOffset := instr&(1<<22) != 0
	sh := (instr >> 5) & 0x3

	var offset uint32
	if immOffset {
		offset = halfwordOffset(instr)
	} else {
		offset = c.Regs.Get(int(instr & 0xF))
	}

	base := c.Regs.Get(rn)
	addr := base
	if pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	if load {
		switch sh {
		case 1: // unsigned halfword
			c.Regs.Set(rd, uint32(c.loadHalfword(addr)))
		case 2: // signed byte
			v, _ := c.bus.Read8(addr)
			c.Regs.Set(rd, uint32(int32(int8(v))))
		case 3: // signed halfword
			c.Regs.Set(rd, c.loadSignedHalfword(addr))
		}
	} else {
		v := c.Regs.Get(rd)
		c.bus.Write16(addr&^1, uint16(v))
	}

	if !pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.Regs.Set(rn, addr)
	} else if writeBack {
		c.Regs.Set(rn, addr)
	}
}

// execBlockDataTransfer implements LDM/STM, including the empty-register-
// list quirk (transfers R15 and adjusts the base by 0x40 as if all 16
// registers had been listed) and the "^" user-bank-transfer suffix.
func execBlockDataTransfer(c *CPU, instr uint32) {
	rn := int((instr >> 16) & 0xF)
	load := instr&(1<<20) != 0
	writeBack := instr&(1<<21) != 0
	userBank := instr&(1<<22) != 0
	up := instr&(1<<23) != 0
	pre := instr&(1<<24) != 0
	list := instr & 0xFFFF

	base := c.Regs.Get(rn)

	if list == 0 {
		// Empty list: transfer R15 only, and the base moves by 0x40 as if
		// a full 16-register list had been transferred, per ARMv4 quirk.
		addr := base
		if up {
			if pre {
				addr += 4
			}
			if load {
				word, _ := c.bus.Read32(addr &^ 3)
				c.Regs.SetPC(word &^ 3)
			} else {
				c.bus.Write32(addr&^3, c.Regs.PC()+4)
			}
			if writeBack {
				c.Regs.Set(rn, base+0x40)
			}
		} else {
			addr := base - 0x40
			if !pre {
				addr += 4
			}
			if load {
				word, _ := c.bus.Read32(addr &^ 3)
				c.Regs.SetPC(word &^ 3)
			} else {
				c.bus.Write32(addr&^3, c.Regs.PC()+4)
			}
			if writeBack {
				c.Regs.Set(rn, base-0x40)
			}
		}
		return
	}

	count := popcount16(list)
	var startAddr uint32
	if up {
		startAddr = base
		if pre {
			startAddr += 4
		}
	} else if pre {
		startAddr = base - uint32(count)*4 // DB
	} else {
		startAddr = base - uint32(count-1)*4 // DA
	}

	transferUser := userBank && !(load && list&(1<<15) != 0)
	addr := startAddr
	for r := 0; r < 16; r++ {
		if list&(1<<r) == 0 {
			continue
		}
		if load {
			word, _ := c.bus.Read32(addr &^ 3)
			if transferUser {
				c.Regs.SetUserReg(r, word)
			} else if r == 15 {
				c.Regs.SetPC(word &^ 3)
			} else {
				c.Regs.Set(r, word)
			}
		} else {
			v := c.Regs.Get(r)
			if transferUser {
				v = c.Regs.UserReg(r)
			} else if r == 15 {
				v = c.Regs.PC() + 4
			}
			c.bus.Write32(addr&^3, v)
		}
		addr += 4
	}

	if load && userBank && list&(1<<15) != 0 {
		// LDM with R15 in the list and the ^ suffix also restores CPSR
		// from SPSR, the privileged-mode exception-return variant.
		c.Regs.SetCPSRRaw(c.Regs.SPSR())
	}

	if writeBack {
		if up {
			c.Regs.Set(rn, base+uint32(count)*4)
		} else {
			c.Regs.Set(rn, base-uint32(count)*4)
		}
	}
}

func popcount16(v uint32) int {
	n := 0
	for i := 0; i < 16; i++ {
		if v&(1<<i) != 0 {
			n++
		}
	}
	return n
}
