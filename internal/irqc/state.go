package irqc

import (
	"bytes"
	"encoding/gob"
)

// SaveState encodes IE/IF/IME and the keypad latches. Every field is
// already exported, so this is a direct gob of the Controller itself.
func (c *Controller) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(*c)
	return buf.Bytes()
}

func (c *Controller) LoadState(data []byte) error {
	var s Controller
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	*c = s
	return nil
}
