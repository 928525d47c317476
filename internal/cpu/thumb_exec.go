package cpu

// Format 1: move shifted register (LSL/LSR/ASR by immediate).
func execThumbMoveShifted(c *CPU, instr uint16) {
	op := (instr >> 11) & 0x3
	offset := uint32((instr >> 6) & 0x1F)
	rs := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	value := c.Regs.Get(rs)
	result, carry := barrelShift(value, shiftType(op), offset, c.Regs.C(), false)
	c.Regs.Set(rd, result)
	n, z, cf := logicFlags(result, carry)
	c.Regs.SetNZCV(n, z, cf, c.Regs.V())
}

// Format 2: add/subtract, register or 3-bit immediate operand.
func execThumbAddSub(c *CPU, instr uint16) {
	immediate := instr&(1<<10) != 0
	subtract := instr&(1<<9) != 0
	rnOrImm := uint32((instr >> 6) & 0x7)
	rs := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	op1 := c.Regs.Get(rs)
	var op2 uint32
	if immediate {
		op2 = rnOrImm
	} else {
		op2 = c.Regs.Get(int(rnOrImm))
	}

	var result uint32
	var n, z, cf, v bool
	if subtract {
		result, n, z, cf, v = subFlags(op1, op2, 0)
	} else {
		result, n, z, cf, v = addFlags(op1, op2, 0)
	}
	c.Regs.Set(rd, result)
	c.Regs.SetNZCV(n, z, cf, v)
}

// Format 3: move/compare/add/subtract with an 8-bit immediate.
func execThumbImmediate(c *CPU, instr uint16) {
	op := (instr >> 11) & 0x3
	rd := int((instr >> 8) & 0x7)
	imm := uint32(instr & 0xFF)

	op1 := c.Regs.Get(rd)
	var result uint32
	var n, z, cf, v bool
	switch op {
	case 0: // MOV
		result = imm
		n, z = result&0x8000_0000 != 0, result == 0
		cf, v = c.Regs.C(), c.Regs.V()
	case 1: // CMP
		result, n, z, cf, v = subFlags(op1, imm, 0)
		c.Regs.SetNZCV(n, z, cf, v)
		return
	case 2: // ADD
		result, n, z, cf, v = addFlags(op1, imm, 0)
	default: // SUB
		result, n, z, cf, v = subFlags(op1, imm, 0)
	}
	c.Regs.Set(rd, result)
	c.Regs.SetNZCV(n, z, cf, v)
}

// Format 4: ALU operations between two low registers.
func execThumbALU(c *CPU, instr uint16) {
	op := (instr >> 6) & 0xF
	rs := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	a := c.Regs.Get(rd)
	b := c.Regs.Get(rs)
	var result uint32
	var n, z, cf, v bool
	writesResult := true

	switch op {
	case 0x0: // AND
		result = a & b
		n, z, cf = logicFlags(result, c.Regs.C())
	case 0x1: // EOR
		result = a ^ b
		n, z, cf = logicFlags(result, c.Regs.C())
	case 0x2: // LSL (shift amount in low byte of Rs)
		result, cf = barrelShift(a, shiftLSL, b&0xFF, c.Regs.C(), true)
		n, z = result&0x8000_0000 != 0, result == 0
	case 0x3: // LSR
		result, cf = barrelShift(a, shiftLSR, b&0xFF, c.Regs.C(), true)
		n, z = result&0x8000_0000 != 0, result == 0
	case 0x4: // ASR
		result, cf = barrelShift(a, shiftASR, b&0xFF, c.Regs.C(), true)
		n, z = result&0x8000_0000 != 0, result == 0
	case 0x5: // ADC
		result, n, z, cf, v = addFlags(a, b, boolToBit(c.Regs.C()))
	case 0x6: // SBC
		result, n, z, cf, v = subFlags(a, b, 1-boolToBit(c.Regs.C()))
	case 0x7: // ROR
		result, cf = barrelShift(a, shiftROR, b&0xFF, c.Regs.C(), true)
		n, z = result&0x8000_0000 != 0, result == 0
	case 0x8: // TST
		result = a & b
		n, z, cf = logicFlags(result, c.Regs.C())
		writesResult = false
	case 0x9: // NEG
		result, n, z, cf, v = subFlags(0, b, 0)
	case 0xA: // CMP
		result, n, z, cf, v = subFlags(a, b, 0)
		writesResult = false
	case 0xB: // CMN
		result, n, z, cf, v = addFlags(a, b, 0)
		writesResult = false
	case 0xC: // ORR
		result = a | b
		n, z, cf = logicFlags(result, c.Regs.C())
	case 0xD: // MUL
		result = a * b
		n, z, cf = result&0x8000_0000 != 0, result == 0, c.Regs.C()
	case 0xE: // BIC
		result = a &^ b
		n, z, cf = logicFlags(result, c.Regs.C())
	default: // MVN
		result = ^b
		n, z, cf = logicFlags(result, c.Regs.C())
	}

	c.Regs.SetNZCV(n, z, cf, v)
	if writesResult {
		c.Regs.Set(rd, result)
	}
}

// Format 5: operations on any register (including high R8-R15), and BX.
func execThumbHiReg(c *CPU, instr uint16) {
	op := (instr >> 8) & 0x3
	h1 := instr&(1<<7) != 0
	h2 := instr&(1<<6) != 0
	rs := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)
	if h2 {
		rs += 8
	}
	if h1 {
		rd += 8
	}

	regVal := func(n int) uint32 {
		if n == 15 {
			return c.Regs.PC() + 2
		}
		return c.Regs.Get(n)
	}

	switch op {
	case 0: // ADD
		result := regVal(rd) + regVal(rs)
		c.Regs.Set(rd, result)
		if rd == 15 {
			c.Regs.SetPC(result &^ 1)
		}
	case 1: // CMP
		result, n, z, cf, v := subFlags(regVal(rd), regVal(rs), 0)
		_ = result
		c.Regs.SetNZCV(n, z, cf, v)
	case 2: // MOV
		result := regVal(rs)
		c.Regs.Set(rd, result)
		if rd == 15 {
			c.Regs.SetPC(result &^ 1)
		}
	default: // BX (and BLX in later ARM revisions; this core only implements BX)
		target := regVal(rs)
		thumb := target&1 != 0
		cpsr := c.Regs.CPSR()
		if thumb {
			c.Regs.SetCPSRRaw(cpsr | FlagT)
			c.Regs.SetPC(target &^ 1)
		} else {
			c.Regs.SetCPSRRaw(cpsr &^ FlagT)
			c.Regs.SetPC(target &^ 3)
		}
	}
}

// Format 6: PC-relative load (LDR Rd, [PC, #imm]); PC reads word-aligned as
// though bit 1 were forced to zero.
func execThumbPCRelLoad(c *CPU, instr uint16) {
	rd := int((instr >> 8) & 0x7)
	word8 := uint32(instr&0xFF) << 2
	base := (c.Regs.PC() + 2) &^ 3
	word, _ := c.bus.Read32(base + word8)
	c.Regs.Set(rd, word)
}

// Format 7: load/store with register offset.
func execThumbLoadStoreReg(c *CPU, instr uint16) {
	load := instr&(1<<11) != 0
	byteAccess := instr&(1<<10) != 0
	ro := int((instr >> 6) & 0x7)
	rb := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	addr := c.Regs.Get(rb) + c.Regs.Get(ro)
	if load {
		if byteAccess {
			v, _ := c.bus.Read8(addr)
			c.Regs.Set(rd, uint32(v))
		} else {
			word, _ := c.bus.Read32(addr &^ 3)
			c.Regs.Set(rd, rotateReadWord(word, addr))
		}
	} else {
		if byteAccess {
			c.bus.Write8(addr, byte(c.Regs.Get(rd)))
		} else {
			c.bus.Write32(addr&^3, c.Regs.Get(rd))
		}
	}
}

// Format 8: sign-extended load/store with register offset (STRH/LDRH/LDSB/LDSH).
func execThumbLoadStoreSigned(c *CPU, instr uint16) {
	hFlag := instr&(1<<11) != 0
	sFlag := instr&(1<<10) != 0
	ro := int((instr >> 6) & 0x7)
	rb := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	addr := c.Regs.Get(rb) + c.Regs.Get(ro)
	switch {
	case !sFlag && !hFlag: // STRH
		c.bus.Write16(addr&^1, uint16(c.Regs.Get(rd)))
	case !sFlag && hFlag: // LDRH
		c.Regs.Set(rd, uint32(c.loadHalfword(addr)))
	case sFlag && !hFlag: // LDSB
		v, _ := c.bus.Read8(addr)
		c.Regs.Set(rd, uint32(int32(int8(v))))
	default: // LDSH
		c.Regs.Set(rd, c.loadSignedHalfword(addr))
	}
}

// Format 9: load/store with a 5-bit immediate offset (scaled by access size).
func execThumbLoadStoreImm(c *CPU, instr uint16) {
	byteAccess := instr&(1<<12) != 0
	load := instr&(1<<11) != 0
	offset5 := uint32((instr >> 6) & 0x1F)
	rb := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	var addr uint32
	if byteAccess {
		addr = c.Regs.Get(rb) + offset5
	} else {
		addr = c.Regs.Get(rb) + offset5*4
	}

	if load {
		if byteAccess {
			v, _ := c.bus.Read8(addr)
			c.Regs.Set(rd, uint32(v))
		} else {
			word, _ := c.bus.Read32(addr &^ 3)
			c.Regs.Set(rd, rotateReadWord(word, addr))
		}
	} else {
		if byteAccess {
			c.bus.Write8(addr, byte(c.Regs.Get(rd)))
		} else {
			c.bus.Write32(addr&^3, c.Regs.Get(rd))
		}
	}
}

// Format 10: load/store halfword with a 5-bit immediate offset (scaled by 2).
func execThumbLoadStoreHalf(c *CPU, instr uint16) {
	load := instr&(1<<11) != 0
	offset5 := uint32((instr>>6)&0x1F) * 2
	rb := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	addr := c.Regs.Get(rb) + offset5
	if load {
		c.Regs.Set(rd, uint32(c.loadHalfword(addr)))
	} else {
		c.bus.Write16(addr&^1, uint16(c.Regs.Get(rd)))
	}
}

// Format 11: SP-relative load/store.
func execThumbSPRelLoadStore(c *CPU, instr uint16) {
	load := instr&(1<<11) != 0
	rd := int((instr >> 8) & 0x7)
	word8 := uint32(instr&0xFF) << 2

	addr := c.Regs.Get(13) + word8
	if load {
		word, _ := c.bus.Read32(addr &^ 3)
		c.Regs.Set(rd, rotateReadWord(word, addr))
	} else {
		c.bus.Write32(addr&^3, c.Regs.Get(rd))
	}
}

// Format 12: load address (ADD Rd, PC/SP, #imm).
func execThumbLoadAddress(c *CPU, instr uint16) {
	useSP := instr&(1<<11) != 0
	rd := int((instr >> 8) & 0x7)
	word8 := uint32(instr&0xFF) << 2

	var base uint32
	if useSP {
		base = c.Regs.Get(13)
	} else {
		base = (c.Regs.PC() + 2) &^ 3
	}
	c.Regs.Set(rd, base+word8)
}

// Format 13: ADD/SUB SP, #imm (7-bit immediate scaled by 4).
func execThumbAddSP(c *CPU, instr uint16) {
	negative := instr&(1<<7) != 0
	word7 := uint32(instr&0x7F) << 2
	sp := c.Regs.Get(13)
	if negative {
		c.Regs.Set(13, sp-word7)
	} else {
		c.Regs.Set(13, sp+word7)
	}
}

// Format 14: PUSH/POP, with the LR/PC extra-register bit.
func execThumbPushPop(c *CPU, instr uint16) {
	pop := instr&(1<<11) != 0
	extra := instr&(1<<8) != 0
	list := uint32(instr & 0xFF)

	sp := c.Regs.Get(13)
	if pop {
		addr := sp
		for r := 0; r < 8; r++ {
			if list&(1<<r) == 0 {
				continue
			}
			word, _ := c.bus.Read32(addr &^ 3)
			c.Regs.Set(r, word)
			addr += 4
		}
		if extra {
			word, _ := c.bus.Read32(addr &^ 3)
			c.Regs.SetPC(word &^ 1)
			addr += 4
		}
		c.Regs.Set(13, addr)
		return
	}

	count := popcount16(list)
	if extra {
		count++
	}
	addr := sp - uint32(count)*4
	startAddr := addr
	for r := 0; r < 8; r++ {
		if list&(1<<r) == 0 {
			continue
		}
		c.bus.Write32(addr&^3, c.Regs.Get(r))
		addr += 4
	}
	if extra {
		c.bus.Write32(addr&^3, c.Regs.Get(14))
	}
	c.Regs.Set(13, startAddr)
}

// Format 15: multiple load/store (STMIA!/LDMIA!), always incrementing with
// write-back.
func execThumbMultipleLoadStore(c *CPU, instr uint16) {
	load := instr&(1<<11) != 0
	rb := int((instr >> 8) & 0x7)
	list := uint32(instr & 0xFF)

	addr := c.Regs.Get(rb)
	if list == 0 {
		// Real hardware transfers R15 and bumps the base by 0x40; matched
		// here for consistency with the ARM block-transfer empty-list quirk.
		if load {
			word, _ := c.bus.Read32(addr &^ 3)
			c.Regs.SetPC(word &^ 1)
		} else {
			c.bus.Write32(addr&^3, c.Regs.PC()+2)
		}
		c.Regs.Set(rb, addr+0x40)
		return
	}

	rbInList := list&(1<<rb) != 0
	for r := 0; r < 8; r++ {
		if list&(1<<r) == 0 {
			continue
		}
		if load {
			word, _ := c.bus.Read32(addr &^ 3)
			c.Regs.Set(r, word)
		} else {
			c.bus.Write32(addr&^3, c.Regs.Get(r))
		}
		addr += 4
	}
	if !load || !rbInList {
		c.Regs.Set(rb, addr)
	}
}

// Format 16: conditional branch (8-bit signed offset, scaled by 2).
func execThumbCondBranch(c *CPU, instr uint16) {
	cond := uint32((instr >> 8) & 0xF)
	if !c.evalCond(cond) {
		return
	}
	offset := int32(int8(byte(instr & 0xFF)))
	target := uint32(int64(c.Regs.PC()) + 2 + int64(offset)*2)
	c.Regs.SetPC(target)
}

// Format 17: software interrupt.
func execThumbSWI(c *CPU, instr uint16) {
	c.enterException(excSWI)
}

// Format 18: unconditional branch (11-bit signed offset, scaled by 2).
func execThumbBranch(c *CPU, instr uint16) {
	offset := int32(instr&0x7FF) << 21 >> 21 // sign-extend 11 -> 32
	target := uint32(int64(c.Regs.PC()) + 2 + int64(offset)*2)
	c.Regs.SetPC(target)
}

// Format 19: long branch with link, split across two consecutive halfwords.
// The first half stashes PC+4+(offset<<12) into LR; the second computes the
// final target from LR and sets LR to the return address with bit 0 set
// (the BL/BLX-return marker used on later ARM cores, harmless here since
// this core never decodes it as BLX).
func execThumbLongBranchLink(c *CPU, instr uint16) {
	low := instr&(1<<11) != 0
	offset11 := uint32(instr & 0x7FF)

	if !low {
		signExt := int32(offset11<<21) >> 21
		lr := uint32(int64(c.Regs.PC()) + 2 + int64(signExt)*4096)
		c.Regs.Set(14, lr)
		return
	}

	lr := c.Regs.Get(14)
	next := c.Regs.PC()
	target := lr + offset11*2
	c.Regs.SetPC(target)
	c.Regs.Set(14, next|1)
}
