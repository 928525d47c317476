package cpu

// CPSR mode bits (low 5 bits of CPSR).
const (
	ModeUSR uint32 = 0x10
	ModeFIQ uint32 = 0x11
	ModeIRQ uint32 = 0x12
	ModeSVC uint32 = 0x13
	ModeABT uint32 = 0x17
	ModeUND uint32 = 0x1B
	ModeSYS uint32 = 0x1F
)

// CPSR flag bits.
const (
	FlagN uint32 = 1 << 31
	FlagZ uint32 = 1 << 30
	FlagC uint32 = 1 << 29
	FlagV uint32 = 1 << 28
	FlagI uint32 = 1 << 7
	FlagF uint32 = 1 << 6
	FlagT uint32 = 1 << 5
)

// bank indices for R13/R14 and SPSR; User and System share the same bank.
const (
	bankUSR = iota
	bankFIQ
	bankIRQ
	bankSVC
	bankABT
	bankUND
	numBanks
)

func modeToBank(mode uint32) int {
	switch mode {
	case ModeFIQ:
		return bankFIQ
	case ModeIRQ:
		return bankIRQ
	case ModeSVC:
		return bankSVC
	case ModeABT:
		return bankABT
	case ModeUND:
		return bankUND
	default: // USR, SYS, and any stray value fall back to the USR bank
		return bankUSR
	}
}

// ValidMode reports whether mode is one of the seven legal CPSR mode values.
func ValidMode(mode uint32) bool {
	switch mode {
	case ModeUSR, ModeFIQ, ModeIRQ, ModeSVC, ModeABT, ModeUND, ModeSYS:
		return true
	default:
		return false
	}
}

// Registers holds all 31 physical ARM registers plus CPSR and the five
// banked SPSRs, as a flat active view (r[0..15]) backed by per-mode bank
// arrays for r8..r12 (FIQ only) and r13/r14 (every privileged mode).
// Rebuilding the active view happens only on a mode switch, keeping normal
// instruction execution branch-free with respect to banking.
type Registers struct {
	r [16]uint32 // active view, R0..R15

	fiqBank  [5]uint32 // R8_fiq..R12_fiq
	userBank [5]uint32 // R8_usr..R12_usr, shared by every non-FIQ mode

	bankedSP [numBanks]uint32
	bankedLR [numBanks]uint32
	spsr     [numBanks]uint32 // spsr[bankUSR] is unused (no SPSR in User/System mode)

	cpsr uint32
}

// Reset sets CPSR to Supervisor/ARM/IRQ-and-FIQ-disabled and PC/active
// registers to zero, the state of the machine at the BIOS reset vector.
func (r *Registers) Reset() {
	*r = Registers{}
	r.cpsr = ModeSVC | FlagI | FlagF
}

func (r *Registers) Mode() uint32   { return r.cpsr & 0x1F }
func (r *Registers) Thumb() bool    { return r.cpsr&FlagT != 0 }
func (r *Registers) CPSR() uint32   { return r.cpsr }
func (r *Registers) PC() uint32     { return r.r[15] }
func (r *Registers) SetPC(v uint32) { r.r[15] = v }

func (r *Registers) Get(n int) uint32  { return r.r[n] }
func (r *Registers) Set(n int, v uint32) { r.r[n] = v }

func (r *Registers) N() bool { return r.cpsr&FlagN != 0 }
func (r *Registers) Z() bool { return r.cpsr&FlagZ != 0 }
func (r *Registers) C() bool { return r.cpsr&FlagC != 0 }
func (r *Registers) V() bool { return r.cpsr&FlagV != 0 }
func (r *Registers) I() bool { return r.cpsr&FlagI != 0 }
func (r *Registers) F() bool { return r.cpsr&FlagF != 0 }

// SetNZCV packs the four condition flags into CPSR bits 31..28.
func (r *Registers) SetNZCV(n, z, c, v bool) {
	cp := r.cpsr &^ (FlagN | FlagZ | FlagC | FlagV)
	if n {
		cp |= FlagN
	}
	if z {
		cp |= FlagZ
	}
	if c {
		cp |= FlagC
	}
	if v {
		cp |= FlagV
	}
	r.cpsr = cp
}

// SetCPSRRaw installs a whole new CPSR value, switching banks if the mode
// field changed. Used by MSR-to-CPSR and by exception entry/return.
func (r *Registers) SetCPSRRaw(v uint32) {
	oldMode := r.Mode()
	newMode := v & 0x1F
	if !ValidMode(newMode) {
		// Preserve current mode on an illegal write; callers validate
		// first for MSR, but exception return paths must never corrupt
		// the active bank.
		newMode = oldMode
		v = (v &^ 0x1F) | oldMode
	}
	r.cpsr = v
	if newMode != oldMode {
		r.switchBanks(oldMode, newMode)
	}
}

// SetMode changes only the mode field of CPSR, banking registers as needed.
func (r *Registers) SetMode(newMode uint32) {
	old := r.Mode()
	if newMode == old {
		return
	}
	r.cpsr = (r.cpsr &^ 0x1F) | (newMode & 0x1F)
	r.switchBanks(old, newMode)
}

func (r *Registers) switchBanks(oldMode, newMode uint32) {
	oldBank := modeToBank(oldMode)
	newBank := modeToBank(newMode)

	// Save R13/R14 of the outgoing mode.
	r.bankedSP[oldBank] = r.r[13]
	r.bankedLR[oldBank] = r.r[14]
	// Save R8..R12 if we are leaving FIQ (only FIQ banks those).
	if oldMode == ModeFIQ {
		copy(r.fiqBank[:], r.r[8:13])
	} else {
		copy(r.userBank[:], r.r[8:13])
	}

	// Load R8..R12 for the incoming mode.
	if newMode == ModeFIQ {
		copy(r.r[8:13], r.fiqBank[:])
	} else {
		copy(r.r[8:13], r.userBank[:])
	}
	// Load R13/R14 for the incoming mode.
	r.r[13] = r.bankedSP[newBank]
	r.r[14] = r.bankedLR[newBank]
}

// SPSR returns the banked SPSR for the current mode. In User/System mode
// there is no SPSR; reads return the CPSR itself (harmless, never consumed
// because real code never executes MRS SPSR in User/System mode).
func (r *Registers) SPSR() uint32 {
	b := modeToBank(r.Mode())
	if b == bankUSR {
		return r.cpsr
	}
	return r.spsr[b]
}

// SetSPSR writes the banked SPSR for the current mode.
func (r *Registers) SetSPSR(v uint32) {
	b := modeToBank(r.Mode())
	if b == bankUSR {
		return
	}
	r.spsr[b] = v
}

// SPSRForMode/SetSPSRForMode let exception entry target a specific mode's
// SPSR without first switching CPSR.
func (r *Registers) SPSRForMode(mode uint32) uint32 {
	return r.spsr[modeToBank(mode)]
}
func (r *Registers) SetSPSRForMode(mode uint32, v uint32) {
	b := modeToBank(mode)
	if b == bankUSR {
		return
	}
	r.spsr[b] = v
}

// bankedSPFor/bankedLRFor and their setters give direct access to a
// specific mode's banked R13/R14. LDM/STM's user-bank transfer goes through
// UserReg/SetUserReg, and save-state serialization reads the fields directly.
func (r *Registers) bankedSPFor(mode uint32) uint32   { return r.bankedSP[modeToBank(mode)] }
func (r *Registers) bankedLRFor(mode uint32) uint32   { return r.bankedLR[modeToBank(mode)] }
func (r *Registers) setBankedSPFor(mode uint32, v uint32) { r.bankedSP[modeToBank(mode)] = v }
func (r *Registers) setBankedLRFor(mode uint32, v uint32) { r.bankedLR[modeToBank(mode)] = v }

// UserReg/SetUserReg read/write R8..R14 as seen by User mode regardless of
// the active mode — used for the LDM/STM "^" user-bank-transfer quirk.
func (r *Registers) UserReg(n int) uint32 {
	if n < 8 || n > 14 {
		return r.r[n]
	}
	mode := r.Mode()
	if n == 13 {
		if mode == ModeUSR || mode == ModeSYS {
			return r.r[13]
		}
		return r.bankedSP[bankUSR]
	}
	if n == 14 {
		if mode == ModeUSR || mode == ModeSYS {
			return r.r[14]
		}
		return r.bankedLR[bankUSR]
	}
	// 8..12
	if mode == ModeFIQ {
		return r.userBank[n-8]
	}
	return r.r[n]
}

func (r *Registers) SetUserReg(n int, v uint32) {
	if n < 8 || n > 14 {
		r.r[n] = v
		return
	}
	mode := r.Mode()
	if n == 13 {
		if mode == ModeUSR || mode == ModeSYS {
			r.r[13] = v
		} else {
			r.bankedSP[bankUSR] = v
		}
		return
	}
	if n == 14 {
		if mode == ModeUSR || mode == ModeSYS {
			r.r[14] = v
		} else {
			r.bankedLR[bankUSR] = v
		}
		return
	}
	if mode == ModeFIQ {
		r.userBank[n-8] = v
	} else {
		r.r[n] = v
	}
}
