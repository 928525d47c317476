package cpu

// buildThumbTable constructs the 256-entry THUMB dispatch table, indexed by
// the top 8 bits of the halfword. Each of THUMB's 19 instruction formats
// occupies a contiguous range (or a handful of fixed top values); handlers
// re-decode the remaining fields from the full halfword.
func buildThumbTable() [256]thumbHandler {
	var t [256]thumbHandler
	for top := 0; top < 256; top++ {
		t[top] = classifyThumb(byte(top))
	}
	return t
}

func classifyThumb(top byte) thumbHandler {
	switch {
	case top < 0x18:
		return execThumbMoveShifted
	case top <= 0x1F:
		return execThumbAddSub
	case top <= 0x3F:
		return execThumbImmediate
	case top <= 0x43:
		return execThumbALU
	case top <= 0x47:
		return execThumbHiReg
	case top <= 0x4F:
		return execThumbPCRelLoad
	case top <= 0x5F:
		if top&0x02 != 0 {
			return execThumbLoadStoreSigned
		}
		return execThumbLoadStoreReg
	case top <= 0x7F:
		return execThumbLoadStoreImm
	case top <= 0x8F:
		return execThumbLoadStoreHalf
	case top <= 0x9F:
		return execThumbSPRelLoadStore
	case top <= 0xAF:
		return execThumbLoadAddress
	case top == 0xB0:
		return execThumbAddSP
	case top == 0xB4, top == 0xB5, top == 0xBC, top == 0xBD:
		return execThumbPushPop
	case top <= 0xCF:
		return execThumbMultipleLoadStore
	case top <= 0xDE:
		return execThumbCondBranch
	case top == 0xDF:
		return execThumbSWI
	case top <= 0xE7:
		return execThumbBranch
	case top <= 0xEF:
		return nil // reserved, traps to Undefined
	default:
		return execThumbLongBranchLink
	}
}
