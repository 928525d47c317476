package cart

// SRAM is the simplest backup chip: a flat 32KB battery-backed buffer with
// no command protocol, mirrored across its 32KB window.
type SRAM struct {
	data [32 * 1024]byte
}

func NewSRAM() *SRAM { return &SRAM{} }

func (s *SRAM) Read8(addr uint32) byte  { return s.data[addr&0x7FFF] }
func (s *SRAM) Write8(addr uint32, v byte) { s.data[addr&0x7FFF] = v }
func (s *SRAM) Size() int               { return len(s.data) }

func (s *SRAM) Serialize() []byte { return append([]byte(nil), s.data[:]...) }

func (s *SRAM) Deserialize(data []byte) error {
	copy(s.data[:], data)
	return nil
}
