package cpu

// dpOperand2 decodes a Data Processing instruction's operand2 field (bits
// 11..0) and returns the shifted value plus the shifter's carry-out, which
// becomes the C flag when the instruction sets S and the opcode is logical.
func (c *CPU) dpOperand2(instr uint32) (value uint32, shifterCarry bool) {
	if instr&(1<<25) != 0 {
		// Immediate operand: 8-bit value rotated right by 2*rotate.
		imm := instr & 0xFF
		rot := (instr >> 8) & 0xF
		if rot == 0 {
			return imm, c.Regs.C()
		}
		v, co := shiftRORImpl(imm, rot*2, c.Regs.C(), false)
		return v, co
	}

	rm := c.Regs.Get(int(instr & 0xF))
	st := shiftType((instr >> 5) & 0x3)

	if instr&(1<<4) != 0 {
		// Shift amount in a register: only the low byte of Rs counts, and
		// Rm read as PC (R15) sees PC+12 per the ARM pipeline quirk.
		if instr&0xF == 15 {
			rm = c.Regs.PC() + 8
		}
		rs := c.Regs.Get(int((instr >> 8) & 0xF))
		amount := rs & 0xFF
		return barrelShift(rm, st, amount, c.Regs.C(), true)
	}

	amount := (instr >> 7) & 0x1F
	return barrelShift(rm, st, amount, c.Regs.C(), false)
}

// ldrStrOffset decodes the offset of a Single Data Transfer instruction:
// either a 12-bit immediate or a shifted register, per the I bit (note: for these transfer
// classes I means "offset is a register" — the opposite sense from Data
// Processing's I bit).
func (c *CPU) ldrStrOffset(instr uint32) uint32 {
	if instr&(1<<25) == 0 {
		return instr & 0xFFF
	}
	rm := c.Regs.Get(int(instr & 0xF))
	st := shiftType((instr >> 5) & 0x3)
	amount := (instr >> 7) & 0x1F
	v, _ := barrelShift(rm, st, amount, c.Regs.C(), false)
	return v
}

func halfwordOffset(instr uint32) uint32 {
	if instr&(1<<22) != 0 {
		return (instr & 0xF) | ((instr >> 4) & 0xF0)
	}
	return 0 // register offset resolved by caller via Rm
}
