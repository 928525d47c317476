package dma

import (
	"bytes"
	"encoding/gob"
)

type channelState struct {
	SrcAddr, DstAddr, WordCount           uint32
	SrcControl, DstControl                AddrControl
	Repeat, WordSized, IRQEnable, Enabled bool
	Timing                                Timing
	DRQMode                                bool
	LatchedSrc, LatchedDst, LatchedCount   uint32
	Running                                bool
}

type controllerState struct {
	Channels [4]channelState
}

// SaveState encodes every channel's raw and latched registers, so a
// mid-transfer channel resumes exactly where it left off.
func (ctl *Controller) SaveState() []byte {
	var s controllerState
	for i, c := range ctl.Channels {
		s.Channels[i] = channelState{
			SrcAddr: c.SrcAddr, DstAddr: c.DstAddr, WordCount: c.WordCount,
			SrcControl: c.SrcControl, DstControl: c.DstControl,
			Repeat: c.Repeat, WordSized: c.WordSized, IRQEnable: c.IRQEnable, Enabled: c.Enabled,
			Timing: c.Timing, DRQMode: c.DRQMode,
			LatchedSrc: c.latchedSrc, LatchedDst: c.latchedDst, LatchedCount: c.latchedCount,
			Running: c.running,
		}
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func (ctl *Controller) LoadState(data []byte) error {
	var s controllerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	for i := range ctl.Channels {
		cs := s.Channels[i]
		c := &ctl.Channels[i]
		c.index = i
		c.SrcAddr, c.DstAddr, c.WordCount = cs.SrcAddr, cs.DstAddr, cs.WordCount
		c.SrcControl, c.DstControl = cs.SrcControl, cs.DstControl
		c.Repeat, c.WordSized, c.IRQEnable, c.Enabled = cs.Repeat, cs.WordSized, cs.IRQEnable, cs.Enabled
		c.Timing, c.DRQMode = cs.Timing, cs.DRQMode
		c.latchedSrc, c.latchedDst, c.latchedCount = cs.LatchedSrc, cs.LatchedDst, cs.LatchedCount
		c.running = cs.Running
	}
	return nil
}
