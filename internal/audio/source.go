// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2"
)

// ErrUnsupportedFormat is returned for WAV files that are not integer PCM.
var ErrUnsupportedFormat = errors.New("unsupported wav format")

const wavFormatPCM = 1

// Source is a decoded mono signal held in memory. It implements
// beep.StreamSeeker; Stream and Seek may be called from different
// goroutines.
type Source struct {
	samples    []float64
	sampleRate int
	bitDepth   int
	channels   int // channel count before down-mixing
	pos        atomic.Int64
}

// NewSource wraps mono samples at the given rate.
func NewSource(samples []float64, sampleRate int) *Source {
	return &Source{samples: samples, sampleRate: sampleRate, bitDepth: 16, channels: 1}
}

// LoadWAV decodes a PCM WAV file and down-mixes it to mono.
func LoadWAV(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// DecodeWAV reads a complete PCM WAV stream.
func DecodeWAV(r io.ReadSeeker) (*Source, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, errors.New("invalid wav buffer")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	return &Source{
		samples:    Downmix(pcmToFloat(buf.Data, bitDepth), buf.Format.NumChannels),
		sampleRate: buf.Format.SampleRate,
		bitDepth:   bitDepth,
		channels:   buf.Format.NumChannels,
	}, nil
}

// Downmix averages interleaved frames into a mono signal. A trailing
// partial frame is dropped.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// Samples returns the mono signal. The slice must not be modified.
func (s *Source) Samples() []float64 { return s.samples }

// SampleRate returns the source rate in Hz.
func (s *Source) SampleRate() int { return s.sampleRate }

// BitDepth returns the bit depth of the decoded file.
func (s *Source) BitDepth() int { return s.bitDepth }

// Channels returns the channel count of the file before down-mixing.
func (s *Source) Channels() int { return s.channels }

// Format describes the source to beep consumers.
func (s *Source) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(s.sampleRate),
		NumChannels: 1,
		Precision:   (s.bitDepth + 7) / 8,
	}
}

// Stream copies the next frames into both channels of samples.
func (s *Source) Stream(samples [][2]float64) (n int, ok bool) {
	pos := s.pos.Load()
	if pos >= int64(len(s.samples)) {
		return 0, false
	}
	n = copyMono(samples, s.samples[pos:])
	// a concurrent Seek wins
	s.pos.CompareAndSwap(pos, pos+int64(n))
	return n, true
}

// Err implements beep.Streamer.
func (s *Source) Err() error { return nil }

// Len returns the length in frames.
func (s *Source) Len() int { return len(s.samples) }

// Position returns the next frame to be streamed.
func (s *Source) Position() int { return int(s.pos.Load()) }

// Seek moves the play position to frame p.
func (s *Source) Seek(p int) error {
	if p < 0 || p > len(s.samples) {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, len(s.samples))
	}
	s.pos.Store(int64(p))
	return nil
}

func copyMono(dst [][2]float64, src []float64) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = [2]float64{src[i], src[i]}
	}
	return n
}

// pcmToFloat scales integer samples to [-1, 1). 8-bit WAV data is unsigned.
func pcmToFloat(data []int, bitDepth int) []float64 {
	scale := pcmScale(bitDepth)
	offset := 0.0
	if bitDepth == 8 {
		offset = scale
	}
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = (float64(v) - offset) / scale
	}
	return out
}

// floatToPCM writes samples into an integer buffer, clipping to full scale.
func floatToPCM(dst *audio.IntBuffer, src []float64, bitDepth int) {
	scale := pcmScale(bitDepth)
	hi := scale - 1
	dst.Data = dst.Data[:len(src)]
	for i, x := range src {
		v := x * scale
		if v > hi {
			v = hi
		} else if v < -scale {
			v = -scale
		}
		dst.Data[i] = int(v)
	}
}

func pcmScale(bitDepth int) float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return float64(int64(1) << (bitDepth - 1))
}
