// SPDX-License-Identifier: MIT
package audio

import (
	"github.com/gopxl/beep/v2"

	"voicefx/internal/chain"
)

// DefaultStreamerBlock is the largest block Streamer hands to the chain in
// one call.
const DefaultStreamerBlock = 1024

// Streamer runs a beep.Streamer through a chain. Frames are down-mixed to
// mono, processed and written back to both channels. Stream does not
// allocate, so it is safe to drive from an audio callback.
type Streamer struct {
	src   beep.Streamer
	chain *chain.Chain
	mono  []float64
}

// NewStreamer wraps src. block bounds the chain block size; values <= 0
// select DefaultStreamerBlock.
func NewStreamer(src beep.Streamer, c *chain.Chain, block int) *Streamer {
	if block <= 0 {
		block = DefaultStreamerBlock
	}
	return &Streamer{src: src, chain: c, mono: make([]float64, block)}
}

// Stream implements beep.Streamer.
func (s *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		want := min(len(samples)-n, len(s.mono))
		got, more := s.src.Stream(samples[n : n+want])
		if got > 0 {
			s.process(samples[n : n+got])
			n += got
		}
		if !more {
			return n, n > 0
		}
		if got < want {
			break
		}
	}
	return n, true
}

func (s *Streamer) process(frames [][2]float64) {
	mono := s.mono[:len(frames)]
	for i, f := range frames {
		mono[i] = (f[0] + f[1]) / 2
	}
	s.chain.ProcessBlock(mono)
	for i, y := range mono {
		frames[i] = [2]float64{y, y}
	}
}

// Err implements beep.Streamer.
func (s *Streamer) Err() error { return s.src.Err() }
