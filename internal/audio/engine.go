// SPDX-License-Identifier: MIT
/*
Package audio plays, renders and records audio through a voicefx chain.

The playback engine owns a PortAudio output stream. Its callback pulls
frames from an in-memory Source, runs them through the chain as one mono
block and fans the result out to every output channel.

Thread Safety:
  - Transport state (playing, position) is atomic
  - The callback uses preallocated buffers only
  - Recording hands blocks to a writer goroutine without blocking
*/
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"voicefx/internal/chain"
	"voicefx/internal/config"
	"voicefx/internal/log"
)

var logger = log.Named("audio")

// ErrAlreadyRecording is returned by StartRecording while a recording runs.
var ErrAlreadyRecording = errors.New("already recording")

type Engine struct {
	config *config.Config
	chain  *chain.Chain

	source   *Source
	streamer *Streamer
	channels int

	outputDevice  *portaudio.DeviceInfo
	outputLatency time.Duration
	outputStream  *portaudio.Stream

	// Callback scratch.
	frames [][2]float64

	playing  atomic.Bool
	finished chan struct{}
	recorder atomic.Pointer[Recorder]
}

// NewEngine prepares playback of src on the configured output device. The
// chain is configured at the source sample rate.
func NewEngine(cfg *config.Config, c *chain.Chain, src *Source) (*Engine, error) {
	device, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, err
	}
	channels := cfg.Audio.Channels
	if device.MaxOutputChannels > 0 && channels > device.MaxOutputChannels {
		logger.Warnf("%s supports %d output channels, using that instead of %d",
			device.Name, device.MaxOutputChannels, channels)
		channels = device.MaxOutputChannels
	}

	e, err := newEngine(cfg, c, src, channels)
	if err != nil {
		return nil, err
	}
	e.outputDevice = device
	if cfg.Audio.LowLatency {
		e.outputLatency = device.DefaultLowOutputLatency
	} else {
		e.outputLatency = device.DefaultHighOutputLatency
	}
	return e, nil
}

func newEngine(cfg *config.Config, c *chain.Chain, src *Source, channels int) (*Engine, error) {
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if err := c.Configure(float64(src.SampleRate())); err != nil {
		return nil, err
	}
	return &Engine{
		config:   cfg,
		chain:    c,
		source:   src,
		streamer: NewStreamer(src, c, cfg.Audio.FramesPerBuffer),
		channels: channels,
		frames:   make([][2]float64, cfg.Audio.FramesPerBuffer),
		finished: make(chan struct{}, 1),
	}, nil
}

// StartOutputStream opens and starts the PortAudio stream. Playback begins
// paused; call Play.
func (e *Engine) StartOutputStream() error {
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      float64(e.source.SampleRate()),
	}

	stream, err := portaudio.OpenStream(params, e.processOutputStream)
	if err != nil {
		return err
	}
	e.outputStream = stream

	if err := e.outputStream.Start(); err != nil {
		e.outputStream.Close()
		e.outputStream = nil
		return err
	}
	logger.Infof("output stream started on %s: %d Hz, %d channels, %d frames",
		e.outputDevice.Name, e.source.SampleRate(), e.channels, e.config.Audio.FramesPerBuffer)
	return nil
}

func (e *Engine) StopOutputStream() error {
	if e.outputStream != nil {
		if err := e.outputStream.Stop(); err != nil {
			return err
		}
		if err := e.outputStream.Close(); err != nil {
			return err
		}
		e.outputStream = nil
	}
	return nil
}

// Play resumes playback. At the end of the source it restarts from the
// beginning.
func (e *Engine) Play() {
	if e.source.Position() >= e.source.Len() {
		e.Seek(0)
	}
	e.playing.Store(true)
}

// Pause halts playback; the output stream keeps running silently.
func (e *Engine) Pause() { e.playing.Store(false) }

// Playing reports whether the transport is running.
func (e *Engine) Playing() bool { return e.playing.Load() }

// Seek moves playback to d and flushes the chain so no history from the old
// position leaks into the new one.
func (e *Engine) Seek(d time.Duration) error {
	frame := int(d.Seconds() * float64(e.source.SampleRate()))
	frame = max(0, min(frame, e.source.Len()))
	if err := e.source.Seek(frame); err != nil {
		return err
	}
	e.chain.Flush()
	return nil
}

// Position returns the current play position.
func (e *Engine) Position() time.Duration {
	return e.frameDuration(e.source.Position())
}

// Duration returns the source length.
func (e *Engine) Duration() time.Duration {
	return e.frameDuration(e.source.Len())
}

// Finished is signalled when playback reaches the end of the source.
func (e *Engine) Finished() <-chan struct{} { return e.finished }

func (e *Engine) frameDuration(frames int) time.Duration {
	return time.Duration(float64(frames) / float64(e.source.SampleRate()) * float64(time.Second))
}

// processOutputStream is the PortAudio callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - Never blocks
func (e *Engine) processOutputStream(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	frames := len(out) / e.channels
	done := 0
	if e.playing.Load() {
		for done < frames {
			want := min(frames-done, len(e.frames))
			n, ok := e.streamer.Stream(e.frames[:want])
			e.fanOut(out[done*e.channels:], e.frames[:n])
			done += n
			if !ok || n < want {
				e.playing.Store(false)
				select {
				case e.finished <- struct{}{}:
				default:
				}
				break
			}
		}
	}
	clear(out[done*e.channels:])

	if r := e.recorder.Load(); r != nil {
		r.Write(out)
	}
}

func (e *Engine) fanOut(out []float32, frames [][2]float64) {
	for i, f := range frames {
		v := float32(f[0])
		base := i * e.channels
		for c := range e.channels {
			out[base+c] = v
		}
	}
}

// StartRecording captures the processed output to filename.
func (e *Engine) StartRecording(filename string) error {
	if e.recorder.Load() != nil {
		return ErrAlreadyRecording
	}
	r, err := NewRecorder(filename, e.source.SampleRate(), e.channels,
		e.config.Recording.BitDepth, e.config.Audio.FramesPerBuffer*e.channels)
	if err != nil {
		return err
	}
	if !e.recorder.CompareAndSwap(nil, r) {
		r.Close()
		return ErrAlreadyRecording
	}
	logger.Infof("recording to %s", filename)
	return nil
}

func (e *Engine) StopRecording() error {
	r := e.recorder.Swap(nil)
	if r == nil {
		return nil
	}
	err := r.Close()
	if n := r.Dropped(); n > 0 {
		logger.Warnf("recording dropped %d blocks", n)
	}
	return err
}

// Recording reports whether processed output is being captured.
func (e *Engine) Recording() bool { return e.recorder.Load() != nil }

func (e *Engine) Close() error {
	return errors.Join(e.StopRecording(), e.StopOutputStream())
}
