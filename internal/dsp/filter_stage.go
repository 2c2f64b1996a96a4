// SPDX-License-Identifier: MIT
package dsp

import (
	"slices"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// ShelfParams describes a shelving band. Q <= 0 selects the fixed slope.
type ShelfParams struct {
	FcHz   float64
	GainDB float64
	Q      float64
}

// PeakParams describes a peaking band.
type PeakParams struct {
	FcHz   float64
	GainDB float64
	Q      float64
}

// FilterParams describes the whole cascade.
type FilterParams struct {
	LowShelf  ShelfParams
	Peaks     []PeakParams
	HighShelf ShelfParams
}

// FilterCoefficients holds designed coefficients for every section of the
// cascade, in processing order low, peaks, high.
type FilterCoefficients struct {
	Low   biquad.Coefficients
	Peaks []biquad.Coefficients
	High  biquad.Coefficients
}

// DesignFilter computes coefficients for every band of p.
func DesignFilter(sampleRate float64, p FilterParams) FilterCoefficients {
	c := FilterCoefficients{
		Low:   Design(LowShelf, sampleRate, p.LowShelf.FcHz, p.LowShelf.Q, p.LowShelf.GainDB),
		Peaks: make([]biquad.Coefficients, len(p.Peaks)),
		High:  Design(HighShelf, sampleRate, p.HighShelf.FcHz, p.HighShelf.Q, p.HighShelf.GainDB),
	}
	for i, pk := range p.Peaks {
		c.Peaks[i] = Design(Peaking, sampleRate, pk.FcHz, pk.Q, pk.GainDB)
	}
	return c
}

// Clone returns a copy that does not share the peak slice.
func (c FilterCoefficients) Clone() FilterCoefficients {
	c.Peaks = slices.Clone(c.Peaks)
	return c
}

// ResponseDB returns the cascade magnitude at freqHz.
func (c FilterCoefficients) ResponseDB(freqHz, sampleRate float64) float64 {
	db := c.Low.MagnitudeDB(freqHz, sampleRate) + c.High.MagnitudeDB(freqHz, sampleRate)
	for i := range c.Peaks {
		db += c.Peaks[i].MagnitudeDB(freqHz, sampleRate)
	}
	return db
}

// NewPeakBank allocates peak sections preloaded with c's peak coefficients,
// ready to be handed to FilterStage.Adopt.
func NewPeakBank(c FilterCoefficients) []Biquad {
	bank := make([]Biquad, len(c.Peaks))
	for i := range bank {
		bank[i].coef = c.Peaks[i]
	}
	return bank
}

// FilterStage is the equaliser cascade: low shelf, peaks in order, high shelf.
type FilterStage struct {
	low   Biquad
	peaks []Biquad
	high  Biquad
}

// NewFilterStage returns a transparent stage with no peaks.
func NewFilterStage() *FilterStage {
	return &FilterStage{low: NewBiquad(), high: NewBiquad()}
}

// Configure designs every band and resizes the peak list. It allocates.
func (s *FilterStage) Configure(sampleRate float64, p FilterParams) {
	c := DesignFilter(sampleRate, p)
	if !s.Load(c) {
		s.Adopt(NewPeakBank(c))
		s.Load(c)
	}
}

// Load installs c without touching history. It reports false, and changes
// nothing, when c has a different number of peaks than the stage.
func (s *FilterStage) Load(c FilterCoefficients) bool {
	if len(c.Peaks) != len(s.peaks) {
		return false
	}
	s.low.coef = c.Low
	for i := range s.peaks {
		s.peaks[i].coef = c.Peaks[i]
	}
	s.high.coef = c.High
	return true
}

// Adopt switches the stage to bank. History of sections present in both
// the old and the new bank is carried over; extra sections keep their own.
func (s *FilterStage) Adopt(bank []Biquad) {
	n := min(len(bank), len(s.peaks))
	for i := range n {
		bank[i].x1, bank[i].x2 = s.peaks[i].x1, s.peaks[i].x2
		bank[i].y1, bank[i].y2 = s.peaks[i].y1, s.peaks[i].y2
	}
	s.peaks = bank
}

// NumPeaks returns the number of peaking sections.
func (s *FilterStage) NumPeaks() int { return len(s.peaks) }

// Process filters one sample through the cascade.
func (s *FilterStage) Process(x float64) float64 {
	y := s.low.Process(x)
	for i := range s.peaks {
		y = s.peaks[i].Process(y)
	}
	return s.high.Process(y)
}

// Reset zeros the history of every section.
func (s *FilterStage) Reset() {
	s.low.Reset()
	for i := range s.peaks {
		s.peaks[i].Reset()
	}
	s.high.Reset()
}

// Coefficients returns a copy of the installed coefficients.
func (s *FilterStage) Coefficients() FilterCoefficients {
	c := FilterCoefficients{
		Low:   s.low.coef,
		Peaks: make([]biquad.Coefficients, len(s.peaks)),
		High:  s.high.coef,
	}
	for i := range s.peaks {
		c.Peaks[i] = s.peaks[i].coef
	}
	return c
}

// ResponseDB returns the cascade magnitude at freqHz.
func (s *FilterStage) ResponseDB(freqHz, sampleRate float64) float64 {
	db := s.low.ResponseDB(freqHz, sampleRate) + s.high.ResponseDB(freqHz, sampleRate)
	for i := range s.peaks {
		db += s.peaks[i].ResponseDB(freqHz, sampleRate)
	}
	return db
}
