// SPDX-License-Identifier: MIT
/*
Package dsp holds the sample-level building blocks of the effects chain:
biquad sections, the equaliser cascade, the dynamics stage and the
amplitude LFO.

None of the types here are safe for concurrent use. Process and Reset run on
the render thread; Configure allocates and belongs on the control thread.
Load and Adopt are the allocation-free hand-over points between the two.
*/
package dsp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// Shape selects the response a biquad is designed for.
type Shape int

const (
	LowShelf Shape = iota
	HighShelf
	Peaking
)

func (s Shape) String() string {
	switch s {
	case LowShelf:
		return "low_shelf"
	case HighShelf:
		return "high_shelf"
	case Peaking:
		return "peaking"
	default:
		return "unknown"
	}
}

// ShelfSlope is the fixed shelf slope used when no Q is supplied.
const ShelfSlope = 0.707

// Identity is the transparent section.
var Identity = biquad.Coefficients{B0: 1}

// Design computes RBJ cookbook coefficients normalised by a0. Out-of-range
// or non-finite inputs yield Identity.
//
// Shelves use the fixed slope unless q > 0, in which case
// alpha = sin(w0)/(2q). Peaking sections require q > 0.
func Design(shape Shape, sampleRate, fcHz, q, gainDB float64) biquad.Coefficients {
	if !isFinite(sampleRate) || !isFinite(fcHz) || !isFinite(q) || !isFinite(gainDB) {
		return Identity
	}
	if sampleRate <= 0 || fcHz <= 0 || fcHz >= sampleRate/2 {
		return Identity
	}

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * fcHz / sampleRate
	cosW := math.Cos(w0)
	sinW := math.Sin(w0)

	var b0, b1, b2, a0, a1, a2 float64
	switch shape {
	case Peaking:
		if q <= 0 {
			return Identity
		}
		alpha := sinW / (2 * q)
		b0 = 1 + alpha*a
		b1 = -2 * cosW
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW
		a2 = 1 - alpha/a

	case LowShelf, HighShelf:
		alpha := shelfAlpha(a, sinW, q)
		sqA := 2 * math.Sqrt(a) * alpha
		if shape == LowShelf {
			b0 = a * ((a + 1) - (a-1)*cosW + sqA)
			b1 = 2 * a * ((a - 1) - (a+1)*cosW)
			b2 = a * ((a + 1) - (a-1)*cosW - sqA)
			a0 = (a + 1) + (a-1)*cosW + sqA
			a1 = -2 * ((a - 1) + (a+1)*cosW)
			a2 = (a + 1) + (a-1)*cosW - sqA
		} else {
			b0 = a * ((a + 1) + (a-1)*cosW + sqA)
			b1 = -2 * a * ((a - 1) + (a+1)*cosW)
			b2 = a * ((a + 1) + (a-1)*cosW - sqA)
			a0 = (a + 1) - (a-1)*cosW + sqA
			a1 = 2 * ((a - 1) - (a+1)*cosW)
			a2 = (a + 1) - (a-1)*cosW - sqA
		}

	default:
		return Identity
	}

	c := biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
	if !isFinite(c.B0) || !isFinite(c.B1) || !isFinite(c.B2) || !isFinite(c.A1) || !isFinite(c.A2) {
		return Identity
	}
	return c
}

func shelfAlpha(a, sinW, q float64) float64 {
	if q > 0 {
		return sinW / (2 * q)
	}
	return sinW / 2 * math.Sqrt((a+1/a)*(1/ShelfSlope-1)+2)
}

// Biquad is a direct form I second-order section.
type Biquad struct {
	coef           biquad.Coefficients
	x1, x2, y1, y2 float64
}

// NewBiquad returns a transparent section.
func NewBiquad() Biquad {
	return Biquad{coef: Identity}
}

// Configure designs and installs new coefficients. History is kept.
func (b *Biquad) Configure(shape Shape, sampleRate, fcHz, q, gainDB float64) {
	b.coef = Design(shape, sampleRate, fcHz, q, gainDB)
}

// SetCoefficients installs c without touching history.
func (b *Biquad) SetCoefficients(c biquad.Coefficients) { b.coef = c }

// Coefficients returns the installed coefficients.
func (b *Biquad) Coefficients() biquad.Coefficients { return b.coef }

// Process filters one sample.
func (b *Biquad) Process(x float64) float64 {
	c := &b.coef
	y := c.B0*x + c.B1*b.x1 + c.B2*b.x2 - c.A1*b.y1 - c.A2*b.y2
	b.x2, b.x1 = b.x1, x
	b.y2, b.y1 = b.y1, y
	return y
}

// Reset zeros the history. Coefficients are retained.
func (b *Biquad) Reset() {
	b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0
}

// ResponseDB returns the designed magnitude response at freqHz.
func (b *Biquad) ResponseDB(freqHz, sampleRate float64) float64 {
	return b.coef.MagnitudeDB(freqHz, sampleRate)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
