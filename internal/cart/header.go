package cart

import (
	"errors"
	"strings"
)

// Header is the parsed subset of the GBA ROM header (see GBATEK
// "GBA Cartridge Header") that the core and its front-ends need: the game's
// display title and its four-character game code.
type Header struct {
	Title string // 0xA0..0xAB, 12 bytes, space/NUL padded
	Code  string // 0xAC..0xAF, 4 bytes, e.g. "AGBE"
	Maker string // 0xB0..0xB1, 2 bytes
}

// ErrHeaderTooShort is returned when the image is smaller than the fixed
// header region the parser reads.
var ErrHeaderTooShort = errors.New("cart: rom shorter than header region")

// ParseHeader reads the fixed-offset header fields. It does not validate
// the Nintendo logo or header checksum: malformed homebrew images are an
// expected input here, not a hard error.
func ParseHeader(rom []byte) (Header, error) {
	if len(rom) < 0xB2 {
		return Header{}, ErrHeaderTooShort
	}
	return Header{
		Title: trimPadding(rom[0xA0:0xAC]),
		Code:  trimPadding(rom[0xAC:0xB0]),
		Maker: trimPadding(rom[0xB0:0xB2]),
	}, nil
}

func trimPadding(b []byte) string {
	return strings.TrimRight(strings.TrimRight(string(b), "\x00"), " ")
}
