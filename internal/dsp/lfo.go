// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// LFOParams configures the amplitude modulator. Mode is carried along for
// completeness; only gain modulation is implemented.
type LFOParams struct {
	Enabled bool
	RateHz  float64
	DepthDB float64
	Mode    string
}

// LFO is a sine oscillator returning a linear gain factor around unity.
type LFO struct {
	params     LFOParams
	sampleRate float64
	phase      float64
}

// NewLFO returns a disabled LFO.
func NewLFO(sampleRate float64) *LFO {
	return &LFO{sampleRate: sampleRate}
}

// Set replaces the parameters. Phase is kept.
func (l *LFO) Set(p LFOParams) { l.params = p }

// Params returns the current parameters.
func (l *LFO) Params() LFOParams { return l.params }

// SetSampleRate changes the rate used to advance the phase.
func (l *LFO) SetSampleRate(fs float64) { l.sampleRate = fs }

// Phase returns the phase accumulator in [0, 1).
func (l *LFO) Phase() float64 { return l.phase }

// Reset returns the phase to zero.
func (l *LFO) Reset() { l.phase = 0 }

// Next returns the gain for the current sample and advances the phase.
// A disabled LFO returns exactly 1 and does not advance.
func (l *LFO) Next() float64 {
	if !l.params.Enabled {
		return 1
	}
	v := math.Sin(2 * math.Pi * l.phase)
	if l.sampleRate > 0 {
		l.phase += l.params.RateHz / l.sampleRate
		if l.phase >= 1 {
			l.phase -= math.Floor(l.phase)
		}
	}
	return core.DBToLinear(v * l.params.DepthDB)
}
