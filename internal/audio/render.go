// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voicefx/internal/chain"
)

// RenderOptions controls offline processing.
type RenderOptions struct {
	BlockSize int // frames per ProcessBlock call
	BitDepth  int // output bit depth, 0 keeps the source depth
}

// RenderStats summarises a finished render.
type RenderStats struct {
	Frames      int
	SampleRate  int
	BitDepth    int
	Latency     int // limiter look-ahead in samples, removed from the output
	PeakInDBFS  float64
	PeakOutDBFS float64
}

// RenderFile processes the WAV at inPath through c and writes a mono WAV
// to outPath.
func RenderFile(ctx context.Context, inPath, outPath string, c *chain.Chain, opts RenderOptions) (RenderStats, error) {
	src, err := LoadWAV(inPath)
	if err != nil {
		return RenderStats{}, err
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return RenderStats{}, err
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return RenderStats{}, err
	}

	stats, err := Render(ctx, src, f, c, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outPath)
		return RenderStats{}, err
	}
	logger.Infof("rendered %d frames from %s to %s (peak %.1f -> %.1f dBFS)",
		stats.Frames, inPath, outPath, stats.PeakInDBFS, stats.PeakOutDBFS)
	return stats, nil
}

// ErrUnsupportedBitDepth is returned for output depths other than 16, 24
// and 32.
var ErrUnsupportedBitDepth = errors.New("unsupported bit depth")

// Render configures c at the source rate, flushes it and runs the source
// through it block by block, encoding the result to w. The limiter delay is
// drained with silence and trimmed from the start, so the output has the
// same length as the source and is aligned with it.
func Render(ctx context.Context, src *Source, w io.WriteSeeker, c *chain.Chain, opts RenderOptions) (RenderStats, error) {
	if opts.BlockSize <= 0 {
		return RenderStats{}, fmt.Errorf("invalid block size %d", opts.BlockSize)
	}
	bitDepth := opts.BitDepth
	if bitDepth == 0 {
		bitDepth = src.BitDepth()
	}
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return RenderStats{}, fmt.Errorf("%w: %d (want 16, 24 or 32)", ErrUnsupportedBitDepth, bitDepth)
	}

	if err := c.Configure(float64(src.SampleRate())); err != nil {
		return RenderStats{}, err
	}
	c.Flush()

	enc := wav.NewEncoder(w, src.SampleRate(), bitDepth, 1, wavFormatPCM)
	out := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: src.SampleRate()},
		Data:           make([]int, opts.BlockSize),
		SourceBitDepth: bitDepth,
	}
	block := make([]float64, opts.BlockSize)

	latency := c.Latency()
	if c.Bypassed() {
		latency = 0
	}

	var peakIn, peakOut float64
	samples := src.Samples()
	total := len(samples) + latency
	for start := 0; start < total; start += opts.BlockSize {
		if err := ctx.Err(); err != nil {
			return RenderStats{}, err
		}
		n := min(opts.BlockSize, total-start)
		buf := block[:n]
		m := 0
		if start < len(samples) {
			m = copy(buf, samples[start:])
		}
		clear(buf[m:])
		peakIn = math.Max(peakIn, peak(buf[:m]))
		c.ProcessBlock(buf)

		// the first latency outputs precede the first input sample
		if skip := latency - start; skip > 0 {
			if skip >= n {
				continue
			}
			buf = buf[skip:]
		}
		peakOut = math.Max(peakOut, peak(buf))

		floatToPCM(out, buf, bitDepth)
		if err := enc.Write(out); err != nil {
			return RenderStats{}, fmt.Errorf("write wav: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return RenderStats{}, fmt.Errorf("finalize wav: %w", err)
	}

	return RenderStats{
		Frames:      len(samples),
		SampleRate:  src.SampleRate(),
		BitDepth:    bitDepth,
		Latency:     latency,
		PeakInDBFS:  core.LinearToDB(peakIn),
		PeakOutDBFS: core.LinearToDB(peakOut),
	}, nil
}

func peak(buf []float64) float64 {
	var p float64
	for _, x := range buf {
		p = math.Max(p, math.Abs(x))
	}
	return p
}
