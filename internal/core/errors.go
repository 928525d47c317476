package core

import "errors"

// Sentinel errors at the core boundary, per the external interface's error
// handling design: undefined instructions and unaligned accesses are CPU
// exceptions, not Go errors, and unmapped bus reads are open-bus, never an
// error. Only malformed inputs and save-state mismatches surface here.
var (
	ErrBadBios           = errors.New("core: bios image must be exactly 16384 bytes")
	ErrBadRom            = errors.New("core: rom image must be a non-zero multiple of 4 bytes, at most 32MiB")
	ErrSaveStateMismatch = errors.New("core: save state magic or version mismatch")
	ErrUnsupportedBackup = errors.New("core: unsupported cartridge backup kind requested")
)
