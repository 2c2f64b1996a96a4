// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// CompressorParams configures the feed-forward compressor.
type CompressorParams struct {
	Enabled       bool
	Ratio         float64
	ThresholdDBFS float64
	AttackMs      float64
	ReleaseMs     float64
}

// LimiterParams configures the look-ahead limiter.
type LimiterParams struct {
	CeilingDBFS float64
	LookaheadMs float64
	ReleaseMs   float64
}

// DynamicsParams configures the whole dynamics stage.
type DynamicsParams struct {
	PregainDB  float64
	Compressor CompressorParams
	Limiter    LimiterParams
}

// DynamicsCoefficients are the sample-rate dependent values derived from
// DynamicsParams. Gains are linear.
type DynamicsCoefficients struct {
	Pregain float64

	CompEnabled   bool
	CompRatio     float64
	CompThreshold float64
	CompAttack    float64
	CompRelease   float64

	Ceiling          float64
	LimiterRelease   float64
	LookaheadSamples int
}

// DesignDynamics derives coefficients for sampleRate.
func DesignDynamics(sampleRate float64, p DynamicsParams) DynamicsCoefficients {
	return DynamicsCoefficients{
		Pregain:          core.DBToLinear(p.PregainDB),
		CompEnabled:      p.Compressor.Enabled,
		CompRatio:        p.Compressor.Ratio,
		CompThreshold:    core.DBToLinear(p.Compressor.ThresholdDBFS),
		CompAttack:       TimeCoefficient(p.Compressor.AttackMs, sampleRate),
		CompRelease:      TimeCoefficient(p.Compressor.ReleaseMs, sampleRate),
		Ceiling:          core.DBToLinear(p.Limiter.CeilingDBFS),
		LimiterRelease:   TimeCoefficient(p.Limiter.ReleaseMs, sampleRate),
		LookaheadSamples: LookaheadSamples(p.Limiter.LookaheadMs, sampleRate),
	}
}

// TimeCoefficient returns the one-pole smoothing coefficient exp(-1/(t*fs))
// for a time constant in milliseconds, or 0 for t <= 0.
func TimeCoefficient(ms, sampleRate float64) float64 {
	n := ms / 1000 * sampleRate
	if !(n > 0) || math.IsInf(n, 0) {
		return 0
	}
	return math.Exp(-1 / n)
}

// LookaheadSamples returns the limiter buffer length, never less than one.
func LookaheadSamples(ms, sampleRate float64) int {
	n := math.Round(ms / 1000 * sampleRate)
	if !(n >= 1) {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// Dynamics applies pre-gain, the optional compressor and the look-ahead
// limiter, in that order.
type Dynamics struct {
	coef DynamicsCoefficients

	buf         []float64
	index       int
	limiterGain float64

	compEnv  float64
	compGain float64
}

// NewDynamics returns a stage with unity pre-gain, a 0 dBFS ceiling and a
// one-sample buffer.
func NewDynamics() *Dynamics {
	return &Dynamics{
		coef: DynamicsCoefficients{
			Pregain:          1,
			CompRatio:        1,
			CompThreshold:    1,
			Ceiling:          1,
			LookaheadSamples: 1,
		},
		buf:         make([]float64, 1),
		limiterGain: 1,
		compGain:    1,
	}
}

// Configure installs p for sampleRate, reallocating the look-ahead buffer
// when its length changes.
func (d *Dynamics) Configure(sampleRate float64, p DynamicsParams) {
	c := DesignDynamics(sampleRate, p)
	if !d.Load(c) {
		d.Adopt(make([]float64, c.LookaheadSamples))
		d.Load(c)
	}
}

// Load installs c. It reports false, and changes nothing, when the
// look-ahead length differs from the current buffer.
func (d *Dynamics) Load(c DynamicsCoefficients) bool {
	if c.LookaheadSamples != len(d.buf) {
		return false
	}
	d.coef = c
	return true
}

// Adopt switches to buf, which must not be empty. Samples still waiting in
// the delay line are carried over in order, newest first when buf is
// shorter; a longer buf is padded with silence ahead of them.
func (d *Dynamics) Adopt(buf []float64) {
	n := len(d.buf)
	m := len(buf)
	// the slot at index has already been played; pending samples are the
	// n-1 before it
	keep := min(n, m) - 1
	clear(buf)
	for i := range keep {
		src := (d.index - keep + i + n) % n
		buf[m-keep+i] = d.buf[src]
	}
	d.buf = buf
	d.index = 0
}

// Process runs one sample through the stage.
func (d *Dynamics) Process(x float64) float64 {
	c := &d.coef
	x *= c.Pregain

	if c.CompEnabled {
		in := math.Abs(x)
		if in > d.compEnv {
			d.compEnv = c.CompAttack*(d.compEnv-in) + in
		} else {
			d.compEnv = c.CompRelease*(d.compEnv-in) + in
		}
		desired := 1.0
		if d.compEnv > c.CompThreshold && c.CompThreshold != 0 {
			desired = (c.CompThreshold + (d.compEnv-c.CompThreshold)/c.CompRatio) / d.compEnv
		}
		if desired < d.compGain {
			d.compGain = desired
		} else {
			d.compGain += (desired - d.compGain) * (1 - c.CompRelease)
		}
		x *= d.compGain
	}

	n := len(d.buf)
	d.buf[d.index] = x
	peak := 0.0
	for _, s := range d.buf {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	desired := 1.0
	if peak > c.Ceiling {
		desired = c.Ceiling / peak
	}
	if desired < d.limiterGain {
		d.limiterGain = desired
	} else {
		d.limiterGain += (desired - d.limiterGain) * (1 - c.LimiterRelease)
	}

	next := d.index + 1
	if next == n {
		next = 0
	}
	out := d.buf[next] * d.limiterGain
	d.index = next
	return out
}

// Reset clears the buffer and envelopes. Coefficients are retained.
func (d *Dynamics) Reset() {
	clear(d.buf)
	d.index = 0
	d.limiterGain = 1
	d.compEnv = 0
	d.compGain = 1
}

// Coefficients returns the installed coefficients.
func (d *Dynamics) Coefficients() DynamicsCoefficients { return d.coef }

// LimiterGain returns the current limiter gain in (0, 1].
func (d *Dynamics) LimiterGain() float64 { return d.limiterGain }

// CompressorGain returns the current compressor gain in (0, 1].
func (d *Dynamics) CompressorGain() float64 { return d.compGain }

// Latency returns the look-ahead delay in samples.
func (d *Dynamics) Latency() int { return len(d.buf) - 1 }
