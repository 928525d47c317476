package timer

import (
	"bytes"
	"encoding/gob"
)

type timerState struct {
	Reload, Counter                             uint16
	PrescaleSelect                               byte
	CascadeMode, IRQEnable, Enabled              bool
	SubCycles                                    uint64
}

type controllerState struct {
	Timers [4]timerState
}

func (c *Controller) SaveState() []byte {
	var s controllerState
	for i, t := range c.Timers {
		s.Timers[i] = timerState{
			Reload: t.Reload, Counter: t.Counter,
			PrescaleSelect: t.PrescaleSelect,
			CascadeMode:    t.CascadeMode, IRQEnable: t.IRQEnable, Enabled: t.Enabled,
			SubCycles: t.subCycles,
		}
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func (c *Controller) LoadState(data []byte) error {
	var s controllerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	for i := range c.Timers {
		ts := s.Timers[i]
		t := &c.Timers[i]
		t.index = i
		t.Reload, t.Counter = ts.Reload, ts.Counter
		t.PrescaleSelect = ts.PrescaleSelect
		t.CascadeMode, t.IRQEnable, t.Enabled = ts.CascadeMode, ts.IRQEnable, ts.Enabled
		t.subCycles = ts.SubCycles
	}
	return nil
}
