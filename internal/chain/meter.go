// SPDX-License-Identifier: MIT
package chain

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// Meter is a snapshot of the most recently processed block.
type Meter struct {
	PeakIn         float64 `json:"peak_in"`
	PeakOut        float64 `json:"peak_out"`
	LimiterGain    float64 `json:"limiter_gain"`
	CompressorGain float64 `json:"compressor_gain"`
	Samples        uint64  `json:"samples"`
}

// PeakInDBFS returns the input peak in dBFS (-Inf for silence).
func (m Meter) PeakInDBFS() float64 { return core.LinearToDB(m.PeakIn) }

// PeakOutDBFS returns the output peak in dBFS (-Inf for silence).
func (m Meter) PeakOutDBFS() float64 { return core.LinearToDB(m.PeakOut) }

// GainReductionDB returns the combined limiter and compressor reduction as
// a non-positive dB value.
func (m Meter) GainReductionDB() float64 {
	return core.LinearToDB(m.LimiterGain * m.CompressorGain)
}

// meters is written once per block by the render side and read from
// anywhere. Float values are stored as IEEE bits.
type meters struct {
	peakIn      atomic.Uint64
	peakOut     atomic.Uint64
	limiterGain atomic.Uint64
	compGain    atomic.Uint64
	samples     atomic.Uint64
}

func (m *meters) reset() {
	m.peakIn.Store(0)
	m.peakOut.Store(0)
	m.limiterGain.Store(math.Float64bits(1))
	m.compGain.Store(math.Float64bits(1))
	m.samples.Store(0)
}

func (m *meters) store(peakIn, peakOut, limiterGain, compGain float64, n int) {
	m.peakIn.Store(math.Float64bits(peakIn))
	m.peakOut.Store(math.Float64bits(peakOut))
	m.limiterGain.Store(math.Float64bits(limiterGain))
	m.compGain.Store(math.Float64bits(compGain))
	m.samples.Add(uint64(n))
}

// Meter returns the meters of the most recent ProcessBlock or
// ProcessFloat32 call. Samples counts every sample processed that way.
func (c *Chain) Meter() Meter {
	return Meter{
		PeakIn:         math.Float64frombits(c.meter.peakIn.Load()),
		PeakOut:        math.Float64frombits(c.meter.peakOut.Load()),
		LimiterGain:    math.Float64frombits(c.meter.limiterGain.Load()),
		CompressorGain: math.Float64frombits(c.meter.compGain.Load()),
		Samples:        c.meter.samples.Load(),
	}
}
