// SPDX-License-Identifier: MIT
/*
Package analysis measures signals going into and out of the effects chain:
windowed FFT spectra, tone gain and block levels. It backs the response
command and the chain's acceptance tests; nothing here runs on the audio
callback.
*/
package analysis

import (
	"fmt"
	"math/cmplx"
	"sync"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"voicefx/pkg/bitint"
)

// Analyzer computes amplitude spectra of fixed-size frames. Buffers are
// allocated once; Analyze and the readers may run on different goroutines.
type Analyzer struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64
	window     []float64
	gain       float64 // coherent gain of the window

	mu        sync.RWMutex
	input     []float64
	coeffs    []complex128
	amplitude []float64
}

// NewAnalyzer creates an analyzer for frames of size samples, which must be
// a power of two.
func NewAnalyzer(size int, sampleRate float64, w WindowFunc) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	win := windowCoefficients(w, size)
	bins := size/2 + 1
	return &Analyzer{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		window:     win,
		gain:       floats.Sum(win),
		input:      make([]float64, size),
		coeffs:     make([]complex128, bins),
		amplitude:  make([]float64, bins),
	}, nil
}

// NewAnalyzerFor sizes the analyzer to the next power of two that holds n
// samples.
func NewAnalyzerFor(n int, sampleRate float64, w WindowFunc) (*Analyzer, error) {
	return NewAnalyzer(bitint.NextPowerOfTwo(n), sampleRate, w)
}

// Analyze windows frame (zero padded or truncated to Size) and updates the
// amplitude spectrum. A full-scale sine centred on a bin reads 1.0.
func (a *Analyzer) Analyze(frame []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := copy(a.input, frame)
	clear(a.input[n:])
	floats.Mul(a.input, a.window)

	a.fft.Coefficients(a.coeffs, a.input)
	for i, c := range a.coeffs {
		a.amplitude[i] = 2 * cmplx.Abs(c) / a.gain
	}
	// DC and Nyquist have no mirrored half
	a.amplitude[0] /= 2
	a.amplitude[len(a.amplitude)-1] /= 2
}

// Amplitudes returns a copy of the latest spectrum.
func (a *Analyzer) Amplitudes() []float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]float64(nil), a.amplitude...)
}

// AmplitudesInto copies the latest spectrum into dst, which must have
// Bins() elements.
func (a *Analyzer) AmplitudesInto(dst []float64) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(dst) != len(a.amplitude) {
		return fmt.Errorf("destination length %d does not match %d bins", len(dst), len(a.amplitude))
	}
	copy(dst, a.amplitude)
	return nil
}

// SpectrumDB returns the latest spectrum in dBFS.
func (a *Analyzer) SpectrumDB() []float64 {
	out := a.Amplitudes()
	for i, v := range out {
		out[i] = core.LinearToDB(v)
	}
	return out
}

// FrequencyForBin returns the centre frequency of bin i in Hz, or 0 when i
// is out of range.
func (a *Analyzer) FrequencyForBin(i int) float64 {
	if i < 0 || i >= len(a.coeffs) {
		return 0
	}
	return a.fft.Freq(i) * a.sampleRate
}

// BinForFrequency returns the bin closest to freq, clamped to the spectrum.
func (a *Analyzer) BinForFrequency(freq float64) int {
	bin := int(freq/a.sampleRate*float64(a.size) + 0.5)
	return max(0, min(bin, len(a.coeffs)-1))
}

// PeakFrequency returns the frequency and amplitude of the strongest bin,
// ignoring DC.
func (a *Analyzer) PeakFrequency() (freq, amplitude float64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.amplitude) < 2 {
		return 0, 0
	}
	i := floats.MaxIdx(a.amplitude[1:]) + 1
	return a.FrequencyForBin(i), a.amplitude[i]
}

// Size returns the FFT length.
func (a *Analyzer) Size() int { return a.size }

// Bins returns the number of spectrum bins, Size/2+1.
func (a *Analyzer) Bins() int { return len(a.coeffs) }

// SampleRate returns the analysis rate in Hz.
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }
