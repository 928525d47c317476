package ui

import (
	"encoding/binary"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rbrandao/goba/internal/core"
)

const sampleRate = 48000

// apuStream implements io.Reader by pulling interleaved stereo PCM frames
// out of the machine's APU output ring and handing them to oto. Silence is
// synthesized whenever the emulator hasn't produced enough samples yet,
// rather than blocking the audio callback.
type apuStream struct {
	m     *core.Machine
	muted *bool
}

func (s *apuStream) Read(p []byte) (int, error) {
	if len(p) < 4 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	if s.muted != nil && *s.muted {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	samples := s.m.CollectAudioSamples()
	i := 0
	for j := 0; j+1 < len(samples) && i+3 < len(p); j += 2 {
		binary.LittleEndian.PutUint16(p[i:], uint16(samples[j]))
		binary.LittleEndian.PutUint16(p[i+2:], uint16(samples[j+1]))
		i += 4
	}
	for ; i+1 < len(p); i += 2 {
		binary.LittleEndian.PutUint16(p[i:], 0)
	}
	return len(p), nil
}

// startAudio opens an oto playback context and starts streaming the
// machine's APU output through it. The returned stop func tears the player
// down; callers should defer it.
func startAudio(m *core.Machine, lowLatency bool, muted *bool) (stop func(), err error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	player := ctx.NewPlayer(&apuStream{m: m, muted: muted})
	bufMs := 40 * time.Millisecond
	if lowLatency {
		bufMs = 20 * time.Millisecond
	}
	player.SetBufferSize(int(bufMs.Seconds() * sampleRate * 4))
	player.Play()

	return func() { _ = player.Close() }, nil
}
