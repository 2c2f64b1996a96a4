// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// recorderBlocks is the number of preallocated blocks between the audio
// callback and the writer goroutine.
const recorderBlocks = 32

// Recorder writes interleaved float32 blocks to a WAV file. Write never
// blocks; when the writer falls behind, blocks are dropped and counted.
type Recorder struct {
	file     *os.File
	encoder  *wav.Encoder
	bitDepth int
	channels int

	free chan []float32
	full chan []float32
	quit chan struct{}
	done chan error

	recording atomic.Bool
	dropped   atomic.Uint64
	closeOnce sync.Once
	closeErr  error
}

// NewRecorder creates filename and starts the writer goroutine. blockLen
// is the largest interleaved block Write will be given.
func NewRecorder(filename string, sampleRate, channels, bitDepth, blockLen int) (*Recorder, error) {
	if channels < 1 || blockLen < 1 {
		return nil, fmt.Errorf("invalid recorder layout: %d channels, block %d", channels, blockLen)
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		file:     file,
		encoder:  wav.NewEncoder(file, sampleRate, bitDepth, channels, wavFormatPCM),
		bitDepth: bitDepth,
		channels: channels,
		free:     make(chan []float32, recorderBlocks),
		full:     make(chan []float32, recorderBlocks),
		quit:     make(chan struct{}),
		done:     make(chan error, 1),
	}
	for range recorderBlocks {
		r.free <- make([]float32, 0, blockLen)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, blockLen),
		SourceBitDepth: bitDepth,
	}
	r.recording.Store(true)
	go r.run(buf)
	return r, nil
}

// Write queues a copy of block. It reports false if the block was dropped.
func (r *Recorder) Write(block []float32) bool {
	if !r.recording.Load() {
		return false
	}
	select {
	case b := <-r.free:
		if len(block) > cap(b) {
			r.free <- b
			r.dropped.Add(1)
			return false
		}
		b = append(b[:0], block...)
		r.full <- b
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of blocks lost to a slow writer.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Recording reports whether Write still accepts blocks.
func (r *Recorder) Recording() bool { return r.recording.Load() }

// Close stops accepting blocks, writes everything queued and finalises
// the file.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.recording.Store(false)
		close(r.quit)
		r.closeErr = <-r.done
	})
	return r.closeErr
}

func (r *Recorder) run(buf *audio.IntBuffer) {
	var werr error
	write := func(b []float32) {
		if werr == nil {
			werr = r.encode(buf, b)
		}
		r.free <- b
	}

	for {
		select {
		case b := <-r.full:
			write(b)
		case <-r.quit:
			for {
				select {
				case b := <-r.full:
					write(b)
				default:
					err := errors.Join(werr, r.encoder.Close(), r.file.Close())
					if err != nil {
						logger.Errorf("recording %s: %v", r.file.Name(), err)
					}
					r.done <- err
					return
				}
			}
		}
	}
}

func (r *Recorder) encode(buf *audio.IntBuffer, block []float32) error {
	scale := pcmScale(r.bitDepth)
	hi := scale - 1
	buf.Data = buf.Data[:len(block)]
	for i, x := range block {
		v := float64(x) * scale
		if v > hi {
			v = hi
		} else if v < -scale {
			v = -scale
		}
		buf.Data[i] = int(v)
	}
	return r.encoder.Write(buf)
}
