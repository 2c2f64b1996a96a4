// SPDX-License-Identifier: MIT
package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrDecode is wrapped by every DecodeError.
var ErrDecode = errors.New("preset decode failed")

// DecodeError reports malformed preset JSON or a missing required section.
type DecodeError struct {
	Field string // empty when the document itself is malformed
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("preset decode failed: missing required field %q", e.Field)
	}
	return fmt.Sprintf("preset decode failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

// The wire types mirror Preset with pointers on everything required so a
// missing field can be told apart from a zero value. Only version, peaks,
// tilt_db and compressor are optional.
type wirePreset struct {
	Version    *int            `json:"version"`
	Name       *string         `json:"name"`
	EQ         *wireEQ         `json:"eq"`
	Modulation *wireModulation `json:"modulation"`
	Dynamics   *wireDynamics   `json:"dynamics"`
}

type wireEQ struct {
	LowShelf  *wireShelf `json:"low_shelf"`
	Peaks     []wirePeak `json:"peaks"`
	HighShelf *wireShelf `json:"high_shelf"`
	TiltDB    float64    `json:"tilt_db"`
}

type wireShelf struct {
	FcHz   *float64 `json:"fc_hz"`
	GainDB *float64 `json:"gain_db"`
}

type wirePeak struct {
	FcHz   *float64 `json:"fc_hz"`
	GainDB *float64 `json:"gain_db"`
	Q      *float64 `json:"q"`
}

type wireModulation struct {
	Enabled    *bool    `json:"enabled"`
	RateHz     *float64 `json:"rate_hz"`
	DepthDB    *float64 `json:"depth_db"`
	Mode       *string  `json:"mode"`
	FcDriftOct *float64 `json:"fc_drift_oct"`
	Jitter     *float64 `json:"jitter"`
}

type wireDynamics struct {
	PregainDB  *float64        `json:"pregain_db"`
	Limiter    *wireLimiter    `json:"limiter"`
	Compressor *wireCompressor `json:"compressor"`
}

type wireLimiter struct {
	CeilingDBFS *float64 `json:"ceiling_dbfs"`
	LookaheadMs *float64 `json:"lookahead_ms"`
	ReleaseMs   *float64 `json:"release_ms"`
}

type wireCompressor struct {
	Enabled       *bool    `json:"enabled"`
	Ratio         *float64 `json:"ratio"`
	ThresholdDBFS *float64 `json:"threshold_dbfs"`
	AttackMs      *float64 `json:"attack_ms"`
	ReleaseMs     *float64 `json:"release_ms"`
}

// fields remembers the first required field found missing.
type fields struct {
	missing string
}

func required[T any](f *fields, path string, v *T) T {
	if v == nil {
		if f.missing == "" {
			f.missing = path
		}
		var zero T
		return zero
	}
	return *v
}

func (f *fields) shelf(path string, w *wireShelf) Shelf {
	s := required(f, path, w)
	return Shelf{
		FcHz:   required(f, path+".fc_hz", s.FcHz),
		GainDB: required(f, path+".gain_db", s.GainDB),
	}
}

func (f *fields) peaks(w []wirePeak) []Peak {
	peaks := make([]Peak, len(w))
	for i, pk := range w {
		path := fmt.Sprintf("eq.peaks[%d]", i)
		peaks[i] = Peak{
			FcHz:   required(f, path+".fc_hz", pk.FcHz),
			GainDB: required(f, path+".gain_db", pk.GainDB),
			Q:      required(f, path+".q", pk.Q),
		}
	}
	return peaks
}

func (f *fields) modulation(w *wireModulation) Modulation {
	m := required(f, "modulation", w)
	return Modulation{
		Enabled:    required(f, "modulation.enabled", m.Enabled),
		RateHz:     required(f, "modulation.rate_hz", m.RateHz),
		DepthDB:    required(f, "modulation.depth_db", m.DepthDB),
		Mode:       required(f, "modulation.mode", m.Mode),
		FcDriftOct: required(f, "modulation.fc_drift_oct", m.FcDriftOct),
		Jitter:     required(f, "modulation.jitter", m.Jitter),
	}
}

func (f *fields) dynamics(w *wireDynamics) Dynamics {
	d := required(f, "dynamics", w)
	pregain := required(f, "dynamics.pregain_db", d.PregainDB)
	l := required(f, "dynamics.limiter", d.Limiter)
	out := Dynamics{
		PregainDB: pregain,
		Limiter: Limiter{
			CeilingDBFS: required(f, "dynamics.limiter.ceiling_dbfs", l.CeilingDBFS),
			LookaheadMs: required(f, "dynamics.limiter.lookahead_ms", l.LookaheadMs),
			ReleaseMs:   required(f, "dynamics.limiter.release_ms", l.ReleaseMs),
		},
	}
	if c := d.Compressor; c != nil {
		out.Compressor = &Compressor{
			Enabled:       required(f, "dynamics.compressor.enabled", c.Enabled),
			Ratio:         required(f, "dynamics.compressor.ratio", c.Ratio),
			ThresholdDBFS: required(f, "dynamics.compressor.threshold_dbfs", c.ThresholdDBFS),
			AttackMs:      required(f, "dynamics.compressor.attack_ms", c.AttackMs),
			ReleaseMs:     required(f, "dynamics.compressor.release_ms", c.ReleaseMs),
		}
	}
	return out
}

// Decode parses and validates a preset document. On any failure the zero
// Preset is returned together with the error.
func Decode(data []byte) (Preset, error) {
	var w wirePreset
	if err := json.Unmarshal(data, &w); err != nil {
		return Preset{}, &DecodeError{Err: err}
	}

	var f fields
	name := required(&f, "name", w.Name)
	eq := required(&f, "eq", w.EQ)
	p := Preset{
		Version: CurrentVersion,
		Name:    name,
		EQ: EQ{
			LowShelf:  f.shelf("eq.low_shelf", eq.LowShelf),
			Peaks:     f.peaks(eq.Peaks),
			HighShelf: f.shelf("eq.high_shelf", eq.HighShelf),
			TiltDB:    eq.TiltDB,
		},
		Modulation: f.modulation(w.Modulation),
		Dynamics:   f.dynamics(w.Dynamics),
	}
	if f.missing != "" {
		return Preset{}, &DecodeError{Field: f.missing}
	}
	if w.Version != nil {
		p.Version = *w.Version
	}

	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// Read decodes a preset from r.
func Read(r io.Reader) (Preset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Preset{}, fmt.Errorf("failed to read preset: %w", err)
	}
	return Decode(data)
}

// Encode renders p as indented JSON. An absent peak list is written as [].
func Encode(p Preset) ([]byte, error) {
	out := p.Clone()
	if out.EQ.Peaks == nil {
		out.EQ.Peaks = []Peak{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode preset %q: %w", p.Name, err)
	}
	return buf.Bytes(), nil
}

// Write encodes p to w.
func Write(w io.Writer, p Preset) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write preset %q: %w", p.Name, err)
	}
	return nil
}

// LoadFile decodes the preset stored at path.
func LoadFile(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("failed to read preset file: %w", err)
	}
	p, err := Decode(data)
	if err != nil {
		return Preset{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
