// SPDX-License-Identifier: MIT
/*
Package preset defines the declarative description of every effects chain
parameter, together with its JSON codec and an on-disk preset library.

A Preset is a plain value. Nothing in this package mutates a Preset in
place: the With* helpers return edited copies and Clone deep-copies the
peak list, so a Preset handed to the chain can never change underneath it.
*/
package preset

import "slices"

// CurrentVersion is the schema version written by Encode.
const CurrentVersion = 1

// ModeGain is the only implemented modulation mode.
const ModeGain = "gain"

// Preset is an immutable, versioned description of all chain parameters.
type Preset struct {
	Version    int        `json:"version"`
	Name       string     `json:"name"`
	EQ         EQ         `json:"eq"`
	Modulation Modulation `json:"modulation"`
	Dynamics   Dynamics   `json:"dynamics"`
}

// EQ describes the filter cascade. Peaks are processed in slice order.
type EQ struct {
	LowShelf  Shelf   `json:"low_shelf"`
	Peaks     []Peak  `json:"peaks"`
	HighShelf Shelf   `json:"high_shelf"`
	TiltDB    float64 `json:"tilt_db"` // reserved
}

// Shelf is a low or high shelving band.
type Shelf struct {
	FcHz   float64 `json:"fc_hz"`
	GainDB float64 `json:"gain_db"`
}

// Peak is a peaking band.
type Peak struct {
	FcHz   float64 `json:"fc_hz"`
	GainDB float64 `json:"gain_db"`
	Q      float64 `json:"q"`
}

// Modulation configures the amplitude LFO. Mode, FcDriftOct and Jitter are
// carried through the codec but have no effect on processing.
type Modulation struct {
	Enabled    bool    `json:"enabled"`
	RateHz     float64 `json:"rate_hz"`
	DepthDB    float64 `json:"depth_db"`
	Mode       string  `json:"mode"`
	FcDriftOct float64 `json:"fc_drift_oct"`
	Jitter     float64 `json:"jitter"`
}

// Dynamics configures pre-gain, the optional compressor and the limiter.
type Dynamics struct {
	PregainDB  float64     `json:"pregain_db"`
	Limiter    Limiter     `json:"limiter"`
	Compressor *Compressor `json:"compressor,omitempty"`
}

// Limiter configures the look-ahead brick-wall limiter.
type Limiter struct {
	CeilingDBFS float64 `json:"ceiling_dbfs"`
	LookaheadMs float64 `json:"lookahead_ms"`
	ReleaseMs   float64 `json:"release_ms"`
}

// Compressor configures the feed-forward compressor. A nil *Compressor on
// Dynamics means the compressor is disabled.
type Compressor struct {
	Enabled       bool    `json:"enabled"`
	Ratio         float64 `json:"ratio"`
	ThresholdDBFS float64 `json:"threshold_dbfs"`
	AttackMs      float64 `json:"attack_ms"`
	ReleaseMs     float64 `json:"release_ms"`
}

// Default returns the built-in voice clarity preset.
func Default() Preset {
	return Preset{
		Version: CurrentVersion,
		Name:    "Soziale Stimme",
		EQ: EQ{
			LowShelf: Shelf{FcHz: 150, GainDB: -10},
			Peaks: []Peak{
				{FcHz: 1000, GainDB: 4, Q: 1.0},
				{FcHz: 2000, GainDB: 4, Q: 1.0},
			},
			HighShelf: Shelf{FcHz: 5000, GainDB: -8},
		},
		Modulation: Modulation{
			Enabled: false,
			RateHz:  0.05,
			DepthDB: 0.8,
			Mode:    ModeGain,
			Jitter:  0.1,
		},
		Dynamics: Dynamics{
			PregainDB: -3,
			Limiter:   Limiter{CeilingDBFS: -1, LookaheadMs: 5, ReleaseMs: 100},
			Compressor: &Compressor{
				Enabled:       false,
				Ratio:         1.3,
				ThresholdDBFS: -24,
				AttackMs:      15,
				ReleaseMs:     120,
			},
		},
	}
}

// Clone returns a deep copy of p.
func (p Preset) Clone() Preset {
	out := p
	if p.EQ.Peaks != nil {
		out.EQ.Peaks = slices.Clone(p.EQ.Peaks)
	}
	if p.Dynamics.Compressor != nil {
		c := *p.Dynamics.Compressor
		out.Dynamics.Compressor = &c
	}
	return out
}

// CompressorEnabled reports whether the compressor sub-stage is active.
func (p Preset) CompressorEnabled() bool {
	return p.Dynamics.Compressor != nil && p.Dynamics.Compressor.Enabled
}

// WithName returns a copy of p renamed to name.
func (p Preset) WithName(name string) Preset {
	out := p.Clone()
	out.Name = name
	return out
}

// WithModulation returns a copy of p with its modulation block replaced.
func (p Preset) WithModulation(m Modulation) Preset {
	out := p.Clone()
	out.Modulation = m
	return out
}

// WithLFOEnabled returns a copy of p with modulation switched on or off.
func (p Preset) WithLFOEnabled(enabled bool) Preset {
	m := p.Modulation
	m.Enabled = enabled
	return p.WithModulation(m)
}

// WithLFORate returns a copy of p with a new modulation rate.
func (p Preset) WithLFORate(hz float64) Preset {
	m := p.Modulation
	m.RateHz = hz
	return p.WithModulation(m)
}

// WithLFODepth returns a copy of p with a new modulation depth.
func (p Preset) WithLFODepth(db float64) Preset {
	m := p.Modulation
	m.DepthDB = db
	return p.WithModulation(m)
}

// Equal reports whether p and q describe the same parameters. A nil and an
// empty peak list compare equal.
func (p Preset) Equal(q Preset) bool {
	if p.Version != q.Version || p.Name != q.Name {
		return false
	}
	if p.EQ.LowShelf != q.EQ.LowShelf || p.EQ.HighShelf != q.EQ.HighShelf || p.EQ.TiltDB != q.EQ.TiltDB {
		return false
	}
	if !slices.Equal(p.EQ.Peaks, q.EQ.Peaks) {
		return false
	}
	if p.Modulation != q.Modulation {
		return false
	}
	if p.Dynamics.PregainDB != q.Dynamics.PregainDB || p.Dynamics.Limiter != q.Dynamics.Limiter {
		return false
	}
	pc, qc := p.Dynamics.Compressor, q.Dynamics.Compressor
	if (pc == nil) != (qc == nil) {
		return false
	}
	return pc == nil || *pc == *qc
}
