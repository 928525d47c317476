package cpu

// dpOpcode is the 4-bit opcode field of a Data Processing instruction.
const (
	dpAND = iota
	dpEOR
	dpSUB
	dpRSB
	dpADD
	dpADC
	dpSBC
	dpRSC
	dpTST
	dpTEQ
	dpCMP
	dpCMN
	dpORR
	dpMOV
	dpBIC
	dpMVN
)

// execDataProcessing implements all 16 Data Processing opcodes, both the
// immediate and register operand2 forms (dpOperand2 already normalized the
// difference). Rd==R15 with S set restores CPSR from the current mode's
// SPSR, the standard "return from exception via MOVS pc,lr" idiom.
func execDataProcessing(c *CPU, instr uint32) {
	opcode := (instr >> 21) & 0xF
	s := instr&(1<<20) != 0
	rn := int((instr >> 16) & 0xF)
	rd := int((instr >> 12) & 0xF)

	op1 := c.Regs.Get(rn)
	if rn == 15 {
		op1 = c.Regs.PC() + 4
	}
	op2, shifterCarry := c.dpOperand2(instr)

	var result uint32
	var n, z, cf, v bool
	writesResult := true

	switch opcode {
	case dpAND:
		result = op1 & op2
		n, z, cf = logicFlags(result, shifterCarry)
	case dpEOR:
		result = op1 ^ op2
		n, z, cf = logicFlags(result, shifterCarry)
	case dpSUB:
		result, n, z, cf, v = subFlags(op1, op2, 0)
	case dpRSB:
		result, n, z, cf, v = subFlags(op2, op1, 0)
	case dpADD:
		result, n, z, cf, v = addFlags(op1, op2, 0)
	case dpADC:
		result, n, z, cf, v = addFlags(op1, op2, boolToBit(c.Regs.C()))
	case dpSBC:
		result, n, z, cf, v = subFlags(op1, op2, 1-boolToBit(c.Regs.C()))
	case dpRSC:
		result, n, z, cf, v = subFlags(op2, op1, 1-boolToBit(c.Regs.C()))
	case dpTST:
		result = op1 & op2
		n, z, cf = logicFlags(result, shifterCarry)
		writesResult = false
	case dpTEQ:
		result = op1 ^ op2
		n, z, cf = logicFlags(result, shifterCarry)
		writesResult = false
	case dpCMP:
		result, n, z, cf, v = subFlags(op1, op2, 0)
		writesResult = false
	case dpCMN:
		result, n, z, cf, v = addFlags(op1, op2, 0)
		writesResult = false
	case dpORR:
		result = op1 | op2
		n, z, cf = logicFlags(result, shifterCarry)
	case dpMOV:
		result = op2
		n, z, cf = logicFlags(result, shifterCarry)
	case dpBIC:
		result = op1 &^ op2
		n, z, cf = logicFlags(result, shifterCarry)
	case dpMVN:
		result = ^op2
		n, z, cf = logicFlags(result, shifterCarry)
	}

	if s {
		if rd == 15 && writesResult {
			// MOVS/ADDS/etc pc, ...: restore CPSR from SPSR instead of
			// setting flags individually (the exception-return idiom).
			c.Regs.SetCPSRRaw(c.Regs.SPSR())
		} else {
			c.Regs.SetNZCV(n, z, cf, v)
		}
	}

	if writesResult {
		c.Regs.Set(rd, result)
		if rd == 15 {
			if c.Regs.Thumb() {
				c.Regs.SetPC(result &^ 1)
			} else {
				c.Regs.SetPC(result &^ 3)
			}
		}
	}
}

// execMRS copies CPSR (or the current mode's SPSR) into Rd.
func execMRS(c *CPU, instr uint32) {
	rd := int((instr >> 12) & 0xF)
	if instr&(1<<22) != 0 {
		c.Regs.Set(rd, c.Regs.SPSR())
	} else {
		c.Regs.Set(rd, c.Regs.CPSR())
	}
}

// msrWrite applies an MSR write of v into CPSR or SPSR. User mode may only
// touch the flag bits (top byte); privileged modes may write the whole
// register including the mode field.
func (c *CPU) msrWrite(toSPSR bool, v uint32, flagsOnly bool) {
	if toSPSR {
		if flagsOnly {
			cur := c.Regs.SPSR()
			c.Regs.SetSPSR((cur &^ 0xF000_0000) | (v & 0xF000_0000))
		} else {
			c.Regs.SetSPSR(v)
		}
		return
	}
	if flagsOnly || c.Regs.Mode() == ModeUSR {
		cur := c.Regs.CPSR()
		c.Regs.SetCPSRRaw((cur &^ 0xF000_0000) | (v & 0xF000_0000))
		return
	}
	c.Regs.SetCPSRRaw(v)
}

func execMSRReg(c *CPU, instr uint32) {
	rm := c.Regs.Get(int(instr & 0xF))
	toSPSR := instr&(1<<22) != 0
	c.msrWrite(toSPSR, rm, c.Regs.Mode() == ModeUSR)
}

func execMSRImm(c *CPU, instr uint32) {
	imm := instr & 0xFF
	rot := (instr >> 8) & 0xF
	v := rotateImm(imm, rot)
	toSPSR := instr&(1<<22) != 0
	c.msrWrite(toSPSR, v, true) // immediate form is defined as flag-bits-only on ARMv4
}

func rotateImm(imm, rot uint32) uint32 {
	if rot == 0 {
		return imm
	}
	return (imm >> (rot * 2)) | (imm << (32 - rot*2))
}

// execMultiply implements MUL/MLA: a 32-bit truncated multiply-accumulate.
func execMultiply(c *CPU, instr uint32) {
	rd := int((instr >> 16) & 0xF)
	rn := int((instr >> 12) & 0xF)
	rs := int((instr >> 8) & 0xF)
	rm := int(instr & 0xF)
	accumulate := instr&(1<<21) != 0
	s := instr&(1<<20) != 0

	result := c.Regs.Get(rm) * c.Regs.Get(rs)
	if accumulate {
		result += c.Regs.Get(rn)
	}
	c.Regs.Set(rd, result)
	if s {
		c.Regs.SetNZCV(result&0x8000_0000 != 0, result == 0, c.Regs.C(), c.Regs.V())
	}
}

// execMultiplyLong implements UMULL/UMLAL/SMULL/SMLAL: 64-bit products
// split across RdHi:RdLo.
func execMultiplyLong(c *CPU, instr uint32) {
	rdHi := int((instr >> 16) & 0xF)
	rdLo := int((instr >> 12) & 0xF)
	rs := int((instr >> 8) & 0xF)
	rm := int(instr & 0xF)
	signed := instr&(1<<22) != 0
	accumulate := instr&(1<<21) != 0
	s := instr&(1<<20) != 0

	var result uint64
	if signed {
		result = uint64(int64(int32(c.Regs.Get(rm))) * int64(int32(c.Regs.Get(rs))))
	} else {
		result = uint64(c.Regs.Get(rm)) * uint64(c.Regs.Get(rs))
	}
	if accumulate {
		result += uint64(c.Regs.Get(rdHi))<<32 | uint64(c.Regs.Get(rdLo))
	}
	c.Regs.Set(rdLo, uint32(result))
	c.Regs.Set(rdHi, uint32(result>>32))
	if s {
		c.Regs.SetNZCV(result&0x8000_0000_0000_0000 != 0, result == 0, c.Regs.C(), c.Regs.V())
	}
}

// execBranchExchange implements BX: jump to Rm, switching to THUMB state if
// Rm's bit 0 is set.
func execBranchExchange(c *CPU, instr uint32) {
	rm := c.Regs.Get(int(instr & 0xF))
	thumb := rm&1 != 0
	cpsr := c.Regs.CPSR()
	if thumb {
		c.Regs.SetCPSRRaw(cpsr | FlagT)
	} else {
		c.Regs.SetCPSRRaw(cpsr &^ FlagT)
	}
	if thumb {
		c.Regs.SetPC(rm &^ 1)
	} else {
		c.Regs.SetPC(rm &^ 3)
	}
}

// execBranch implements B/BL: PC-relative branch by a sign-extended 24-bit
// word offset (so *4), optionally saving the return address in LR.
func execBranch(c *CPU, instr uint32) {
	link := instr&(1<<24) != 0
	offset := int32(instr&0xFF_FFFF) << 8 >> 8 // sign-extend 24 -> 32
	target := uint32(int64(c.Regs.PC()) + 4 + int64(offset)*4)
	if link {
		c.Regs.Set(14, c.Regs.PC())
	}
	c.Regs.SetPC(target)
}

// execSWP implements SWP/SWPB: an atomic (from the CPU's single-threaded
// point of view) load-then-store exchange with a memory location.
func execSWP(c *CPU, instr uint32) {
	rn := int((instr >> 16) & 0xF)
	rd := int((instr >> 12) & 0xF)
	rm := int(instr & 0xF)
	addr := c.Regs.Get(rn)
	byteSwap := instr&(1<<22) != 0

	if byteSwap {
		old, _ := c.bus.Read8(addr)
		c.bus.Write8(addr, byte(c.Regs.Get(rm)))
		c.Regs.Set(rd, uint32(old))
		return
	}
	word, _ := c.bus.Read32(addr &^ 3)
	word = rotateReadWord(word, addr)
	c.bus.Write32(addr&^3, c.Regs.Get(rm))
	c.Regs.Set(rd, word)
}

func rotateReadWord(word, addr uint32) uint32 {
	rot := (addr & 3) * 8
	if rot == 0 {
		return word
	}
	return (word >> rot) | (word << (32 - rot))
}

// execSoftwareInterrupt traps to the SWI exception vector.
func execSoftwareInterrupt(c *CPU, instr uint32) {
	c.enterException(excSWI)
}

// execUndefined traps to the Undefined Instruction exception vector, used
// both for genuinely undefined encodings and for the coprocessor
// instruction classes this core does not implement.
func execUndefined(c *CPU, instr uint32) {
	c.enterException(excUndefined)
}
