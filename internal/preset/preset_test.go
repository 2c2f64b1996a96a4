// SPDX-License-Identifier: MIT
package preset

import "testing"

func TestDefault(t *testing.T) {
	t.Parallel()
	p := Default()
	if err := p.Validate(); err != nil {
		t.Fatalf("default preset is invalid: %v", err)
	}
	if p.Name != "Soziale Stimme" {
		t.Errorf("Name = %q", p.Name)
	}
	if len(p.EQ.Peaks) != 2 {
		t.Errorf("len(Peaks) = %d, want 2", len(p.EQ.Peaks))
	}
	if p.Modulation.Enabled || p.CompressorEnabled() {
		t.Error("default preset must start with modulation and compressor off")
	}
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()
	orig := Default()
	c := orig.Clone()
	c.EQ.Peaks[0].GainDB = 12
	c.Dynamics.Compressor.Ratio = 4

	if orig.EQ.Peaks[0].GainDB != 4 {
		t.Error("Clone shares the peak slice")
	}
	if orig.Dynamics.Compressor.Ratio != 1.3 {
		t.Error("Clone shares the compressor")
	}
}

func TestWithHelpers(t *testing.T) {
	t.Parallel()
	base := Default()

	tests := []struct {
		name  string
		edit  func(Preset) Preset
		check func(Preset) bool
	}{
		{"name", func(p Preset) Preset { return p.WithName("x") }, func(p Preset) bool { return p.Name == "x" }},
		{"lfo on", func(p Preset) Preset { return p.WithLFOEnabled(true) }, func(p Preset) bool { return p.Modulation.Enabled }},
		{"rate", func(p Preset) Preset { return p.WithLFORate(2) }, func(p Preset) bool { return p.Modulation.RateHz == 2 }},
		{"depth", func(p Preset) Preset { return p.WithLFODepth(6) }, func(p Preset) bool { return p.Modulation.DepthDB == 6 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.edit(base)
			if !tt.check(got) {
				t.Errorf("edit not applied: %+v", got)
			}
			if !base.Equal(Default()) {
				t.Error("With helper mutated its receiver")
			}
		})
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()
	a := Default()
	b := Default()
	if !a.Equal(b) {
		t.Fatal("identical presets compare unequal")
	}

	a.EQ.Peaks = nil
	b.EQ.Peaks = []Peak{}
	if !a.Equal(b) {
		t.Error("nil and empty peak lists must compare equal")
	}

	b.Dynamics.Compressor = nil
	if a.Equal(b) {
		t.Error("presence of the compressor must matter")
	}
}
