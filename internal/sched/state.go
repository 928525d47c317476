package sched

import (
	"bytes"
	"encoding/gob"
)

type eventRecord struct {
	At   uint64
	Kind EventKind
	Chan int
}

type schedState struct {
	Now    uint64
	Events []eventRecord
}

// SaveState encodes the cycle counter and every pending event, preserving
// exact timing across a save/load round trip rather than reseeding phases
// from scratch.
func (s *Scheduler) SaveState() []byte {
	st := schedState{Now: s.now}
	for _, e := range s.heap {
		st.Events = append(st.Events, eventRecord{At: e.At, Kind: e.Kind, Chan: e.Chan})
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(st)
	return buf.Bytes()
}

func (s *Scheduler) LoadState(data []byte) error {
	var st schedState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	s.Reset()
	s.now = st.Now
	for _, e := range st.Events {
		s.Schedule(e.At, e.Kind, e.Chan)
	}
	return nil
}
