// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// ToneAmplitude estimates the amplitude of the sinusoid at freq in x by
// projecting the Hann-windowed signal onto a complex exponential.
func ToneAmplitude(x []float64, freq, sampleRate float64) float64 {
	n := len(x)
	if n == 0 || sampleRate <= 0 {
		return 0
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	window.Hann(w)
	gain := floats.Sum(w)

	cos := make([]float64, n)
	sin := make([]float64, n)
	step := 2 * math.Pi * freq / sampleRate
	for i := range n {
		cos[i] = w[i] * math.Cos(step*float64(i))
		sin[i] = w[i] * math.Sin(step*float64(i))
	}
	re := floats.Dot(x, cos)
	im := floats.Dot(x, sin)
	return 2 * math.Hypot(re, im) / gain
}

// ToneGainDB returns the gain in dB the tone at freq gained between in and
// out. Both slices should cover the same steady-state span.
func ToneGainDB(in, out []float64, freq, sampleRate float64) float64 {
	return core.LinearToDB(ToneAmplitude(out, freq, sampleRate)) -
		core.LinearToDB(ToneAmplitude(in, freq, sampleRate))
}

// PeakDBFS returns the largest absolute sample in dBFS, -Inf for silence.
func PeakDBFS(x []float64) float64 {
	if len(x) == 0 {
		return math.Inf(-1)
	}
	return core.LinearToDB(math.Max(floats.Max(x), -floats.Min(x)))
}

// RMSDBFS returns the RMS level in dBFS, -Inf for silence.
func RMSDBFS(x []float64) float64 {
	if len(x) == 0 {
		return math.Inf(-1)
	}
	return core.LinearToDB(math.Sqrt(floats.Dot(x, x) / float64(len(x))))
}
