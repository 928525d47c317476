package apu

// fifoChannel is one Direct Sound PCM channel: a small ring of signed
// 8-bit samples that DMA keeps topped up and a timer overflow drains one
// sample at a time into Current, the value the mixer taps every sample.
type fifoChannel struct {
	Buf          [32]int8
	Head, Tail   int
	Count        int
	Current      int8
}

func (f *fifoChannel) reset() {
	*f = fifoChannel{}
}

// push appends up to 4 bytes (as written by a 32-bit FIFO register write)
// to the ring, dropping the oldest samples if it would overflow; real
// hardware holds only 32 bytes (8 words) per channel.
func (f *fifoChannel) push(data []byte) {
	for _, b := range data {
		if f.Count == len(f.Buf) {
			f.Tail = (f.Tail + 1) & (len(f.Buf) - 1)
			f.Count--
		}
		f.Buf[f.Head] = int8(b)
		f.Head = (f.Head + 1) & (len(f.Buf) - 1)
		f.Count++
	}
}

// pop advances Current to the next buffered sample, reporting whether the
// channel has dropped to or below half full and needs a DMA refill.
func (f *fifoChannel) pop() (needsRefill bool) {
	if f.Count == 0 {
		return false
	}
	f.Current = f.Buf[f.Tail]
	f.Tail = (f.Tail + 1) & (len(f.Buf) - 1)
	f.Count--
	return f.Count <= len(f.Buf)/2
}

// WriteFIFOA queues a 32-bit write to FIFO_A (0x040000A0) as four PCM bytes.
func (a *APU) WriteFIFOA(data []byte) { a.fifoA.push(data) }

// WriteFIFOB queues a 32-bit write to FIFO_B (0x040000A4).
func (a *APU) WriteFIFOB(data []byte) { a.fifoB.push(data) }

// fifoATimer/fifoBTimer report which timer (0 or 1) drains each Direct
// Sound channel, per SOUNDCNT_H bits 10 and 14 (bits 2 and 6 of the high
// byte this package keeps them split into).
func (a *APU) fifoATimer() int {
	if a.soundcntHHi&(1<<2) != 0 {
		return 1
	}
	return 0
}

func (a *APU) fifoBTimer() int {
	if a.soundcntHHi&(1<<6) != 0 {
		return 1
	}
	return 0
}

// OnTimerOverflow is called by core.Machine whenever Timer0 or Timer1
// overflows; it drains whichever Direct Sound FIFO is wired to that
// timer, reporting which channels (A, B) need a DMA refill so the caller
// can kick the matching DMA1/DMA2 channel.
func (a *APU) OnTimerOverflow(timerIndex int) (refillA, refillB bool) {
	if a.fifoATimer() == timerIndex {
		refillA = a.fifoA.pop()
	}
	if a.fifoBTimer() == timerIndex {
		refillB = a.fifoB.pop()
	}
	return refillA, refillB
}
