// SPDX-License-Identifier: MIT
package preset

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPreset is wrapped by every ValidationError.
var ErrInvalidPreset = errors.New("invalid preset")

// ValidationError names the first field that violates a preset invariant.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid preset: %s %s (got %g)", e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPreset }

// Validate checks every invariant of p and returns a *ValidationError for
// the first violation. Values are never clamped.
func (p Preset) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{"eq.low_shelf.fc_hz", p.EQ.LowShelf.FcHz},
		{"eq.low_shelf.gain_db", p.EQ.LowShelf.GainDB},
		{"eq.high_shelf.fc_hz", p.EQ.HighShelf.FcHz},
		{"eq.high_shelf.gain_db", p.EQ.HighShelf.GainDB},
		{"eq.tilt_db", p.EQ.TiltDB},
		{"modulation.fc_drift_oct", p.Modulation.FcDriftOct},
		{"modulation.jitter", p.Modulation.Jitter},
		{"dynamics.pregain_db", p.Dynamics.PregainDB},
	}
	for _, c := range checks {
		if err := finite(c.field, c.value); err != nil {
			return err
		}
	}

	for i, pk := range p.EQ.Peaks {
		prefix := fmt.Sprintf("eq.peaks[%d]", i)
		if err := finite(prefix+".fc_hz", pk.FcHz); err != nil {
			return err
		}
		if err := finite(prefix+".gain_db", pk.GainDB); err != nil {
			return err
		}
		if err := positive(prefix+".q", pk.Q); err != nil {
			return err
		}
	}

	if err := nonNegative("modulation.rate_hz", p.Modulation.RateHz); err != nil {
		return err
	}
	if err := nonNegative("modulation.depth_db", p.Modulation.DepthDB); err != nil {
		return err
	}

	lim := p.Dynamics.Limiter
	if err := finite("dynamics.limiter.ceiling_dbfs", lim.CeilingDBFS); err != nil {
		return err
	}
	if lim.CeilingDBFS > 0 {
		return &ValidationError{Field: "dynamics.limiter.ceiling_dbfs", Value: lim.CeilingDBFS, Reason: "must be <= 0"}
	}
	if err := nonNegative("dynamics.limiter.lookahead_ms", lim.LookaheadMs); err != nil {
		return err
	}
	if err := nonNegative("dynamics.limiter.release_ms", lim.ReleaseMs); err != nil {
		return err
	}

	if c := p.Dynamics.Compressor; c != nil {
		if err := finite("dynamics.compressor.ratio", c.Ratio); err != nil {
			return err
		}
		if c.Ratio < 1 {
			return &ValidationError{Field: "dynamics.compressor.ratio", Value: c.Ratio, Reason: "must be >= 1"}
		}
		if err := finite("dynamics.compressor.threshold_dbfs", c.ThresholdDBFS); err != nil {
			return err
		}
		if err := nonNegative("dynamics.compressor.attack_ms", c.AttackMs); err != nil {
			return err
		}
		if err := nonNegative("dynamics.compressor.release_ms", c.ReleaseMs); err != nil {
			return err
		}
	}

	return nil
}

func finite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Value: v, Reason: "must be finite"}
	}
	return nil
}

func positive(field string, v float64) error {
	if err := finite(field, v); err != nil {
		return err
	}
	if v <= 0 {
		return &ValidationError{Field: field, Value: v, Reason: "must be > 0"}
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if err := finite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return &ValidationError{Field: field, Value: v, Reason: "must be >= 0"}
	}
	return nil
}
