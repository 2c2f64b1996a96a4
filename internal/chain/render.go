// SPDX-License-Identifier: MIT
package chain

import "math"

// ProcessSample runs one sample through the chain. It never blocks or
// allocates. Meters are not updated; use ProcessBlock for metering.
func (c *Chain) ProcessSample(x float64) float64 {
	s := c.sync()
	if s == nil || c.bypass.Load() {
		return x
	}
	return c.render(x)
}

// ProcessBlock processes buf in place with a single configuration and
// updates the meters once.
func (c *Chain) ProcessBlock(buf []float64) {
	s := c.sync()
	if s == nil || c.bypass.Load() {
		peak := blockPeak(buf)
		c.meter.store(peak, peak, c.dynamics.LimiterGain(), c.dynamics.CompressorGain(), len(buf))
		return
	}

	var peakIn, peakOut float64
	for i, x := range buf {
		if a := math.Abs(x); a > peakIn {
			peakIn = a
		}
		y := c.render(x)
		if a := math.Abs(y); a > peakOut {
			peakOut = a
		}
		buf[i] = y
	}
	c.meter.store(peakIn, peakOut, c.dynamics.LimiterGain(), c.dynamics.CompressorGain(), len(buf))
}

// ProcessFloat32 is ProcessBlock for float32 host buffers.
func (c *Chain) ProcessFloat32(buf []float32) {
	s := c.sync()
	bypassed := s == nil || c.bypass.Load()

	var peakIn, peakOut float64
	for i, v := range buf {
		x := float64(v)
		if a := math.Abs(x); a > peakIn {
			peakIn = a
		}
		if bypassed {
			continue
		}
		y := c.render(x)
		if a := math.Abs(y); a > peakOut {
			peakOut = a
		}
		buf[i] = float32(y)
	}
	if bypassed {
		peakOut = peakIn
	}
	c.meter.store(peakIn, peakOut, c.dynamics.LimiterGain(), c.dynamics.CompressorGain(), len(buf))
}

func (c *Chain) render(x float64) float64 {
	y := c.filter.Process(x)
	y = c.dynamics.Process(y)
	return y * c.lfo.Next()
}

// sync brings the render side up to date with the latest snapshot and any
// pending flush. It returns nil when there is nothing to process with.
func (c *Chain) sync() *settings {
	s := c.snapshot.Load()
	if s != c.active && s != nil {
		c.adopt(s)
	}
	if g := c.flushGen.Load(); g != c.flushSeen {
		c.flushSeen = g
		c.filter.Reset()
		c.dynamics.Reset()
		c.lfo.Reset()
		c.state.CompareAndSwap(int32(Flushed), int32(Configured))
	}
	return s
}

func (c *Chain) adopt(s *settings) {
	if len(s.filter.Peaks) != c.filter.NumPeaks() {
		c.filter.Adopt(s.bank)
	}
	c.filter.Load(s.filter)

	if s.dynamics.LookaheadSamples != c.dynamics.Latency()+1 {
		c.dynamics.Adopt(s.delay)
	}
	c.dynamics.Load(s.dynamics)

	c.lfo.SetSampleRate(s.sampleRate)
	c.lfo.Set(s.lfo)
	c.active = s
}

func blockPeak(buf []float64) float64 {
	var peak float64
	for _, x := range buf {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}
	return peak
}
