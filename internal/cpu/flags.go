package cpu

// addFlags computes N/Z/C/V for a 32-bit add a+b+carryIn (carryIn is 0 or 1,
// used by ADC). V is signed overflow: the operands share a sign and the
// result's sign differs from theirs.
func addFlags(a, b, carryIn uint32) (result uint32, n, z, c, v bool) {
	sum := uint64(a) + uint64(b) + uint64(carryIn)
	result = uint32(sum)
	n = result&0x8000_0000 != 0
	z = result == 0
	c = sum > 0xFFFF_FFFF
	v = ((a ^ result) & (b ^ result) & 0x8000_0000) != 0
	return
}

// subFlags computes N/Z/C/V for a-b-borrowIn (borrowIn is 0 or 1, used by
// SBC as "a - b - !carry"). C is set when no borrow occurred, i.e. a >= b
// (+ borrowIn), matching ARM's "carry = NOT borrow" convention.
func subFlags(a, b, borrowIn uint32) (result uint32, n, z, c, v bool) {
	diff := int64(a) - int64(b) - int64(borrowIn)
	result = uint32(diff)
	n = result&0x8000_0000 != 0
	z = result == 0
	c = diff >= 0
	v = ((a ^ b) & (a ^ result) & 0x8000_0000) != 0
	return
}

// logicFlags computes N/Z for a logical result; C comes from the shifter
// carry-out (shifterCarry) and V is left untouched by logical ops.
func logicFlags(result uint32, shifterCarry bool) (n, z, c bool) {
	return result&0x8000_0000 != 0, result == 0, shifterCarry
}
