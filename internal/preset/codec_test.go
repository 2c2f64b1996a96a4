// SPDX-License-Identifier: MIT
package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalPreset = `{
  "name": "minimal",
  "eq": {
    "low_shelf": {"fc_hz": 120, "gain_db": -6},
    "high_shelf": {"fc_hz": 6000, "gain_db": 2}
  },
  "modulation": {
    "enabled": false, "rate_hz": 0.1, "depth_db": 1,
    "mode": "gain", "fc_drift_oct": 0, "jitter": 0
  },
  "dynamics": {
    "pregain_db": 0,
    "limiter": {"ceiling_dbfs": -1, "lookahead_ms": 5, "release_ms": 100}
  }
}`

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Preset
	}{
		{"default", Default()},
		{"no compressor", func() Preset {
			p := Default()
			p.Dynamics.Compressor = nil
			return p
		}()},
		{"no peaks", func() Preset {
			p := Default()
			p.EQ.Peaks = nil
			return p
		}()},
		{"reserved fields", func() Preset {
			p := Default()
			p.Modulation.FcDriftOct = 0.25
			p.EQ.TiltDB = -1.5
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !got.Equal(tt.in) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, tt.in)
			}
		})
	}
}

func TestEncode_EmptyPeaksWrittenAsArray(t *testing.T) {
	t.Parallel()
	p := Default()
	p.EQ.Peaks = nil

	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := string(raw["eq"]["peaks"]); got != "[]" {
		t.Errorf("peaks = %s, want []", got)
	}
}

func TestDecode_Defaults(t *testing.T) {
	t.Parallel()
	p, err := Decode([]byte(minimalPreset))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", p.Version, CurrentVersion)
	}
	if p.EQ.Peaks == nil || len(p.EQ.Peaks) != 0 {
		t.Errorf("Peaks = %#v, want empty non-nil slice", p.EQ.Peaks)
	}
	if p.Dynamics.Compressor != nil {
		t.Errorf("Compressor = %+v, want nil", p.Dynamics.Compressor)
	}
	if p.CompressorEnabled() {
		t.Error("absent compressor must be disabled")
	}
}

func TestDecode_IgnoresUnknownFields(t *testing.T) {
	t.Parallel()
	doc := strings.Replace(minimalPreset, `"name": "minimal",`, `"name": "minimal", "author": "someone",`, 1)
	if _, err := Decode([]byte(doc)); err != nil {
		t.Fatalf("Decode with unknown field: %v", err)
	}
}

// section walks m along keys and returns the nested object.
func section(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		m = m[k].(map[string]any)
	}
	return m
}

func drop(field string, keys ...string) func(map[string]any) {
	return func(m map[string]any) { delete(section(m, keys...), field) }
}

func withCompressor(field string) func(map[string]any) {
	return func(m map[string]any) {
		c := map[string]any{
			"enabled": true, "ratio": 2.0, "threshold_dbfs": -20.0,
			"attack_ms": 10.0, "release_ms": 100.0,
		}
		delete(c, field)
		section(m, "dynamics")["compressor"] = c
	}
}

func withPeak(field string) func(map[string]any) {
	return func(m map[string]any) {
		pk := map[string]any{"fc_hz": 1000.0, "gain_db": 3.0, "q": 1.0}
		delete(pk, field)
		section(m, "eq")["peaks"] = []any{pk}
	}
}

func TestDecode_MissingSections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field  string
		remove func(m map[string]any)
	}{
		{"name", drop("name")},
		{"eq", drop("eq")},
		{"eq.low_shelf", drop("low_shelf", "eq")},
		{"eq.low_shelf.fc_hz", drop("fc_hz", "eq", "low_shelf")},
		{"eq.low_shelf.gain_db", drop("gain_db", "eq", "low_shelf")},
		{"eq.high_shelf", drop("high_shelf", "eq")},
		{"eq.high_shelf.fc_hz", drop("fc_hz", "eq", "high_shelf")},
		{"eq.high_shelf.gain_db", drop("gain_db", "eq", "high_shelf")},
		{"eq.peaks[0].fc_hz", withPeak("fc_hz")},
		{"eq.peaks[0].gain_db", withPeak("gain_db")},
		{"eq.peaks[0].q", withPeak("q")},
		{"modulation", drop("modulation")},
		{"modulation.enabled", drop("enabled", "modulation")},
		{"modulation.rate_hz", drop("rate_hz", "modulation")},
		{"modulation.depth_db", drop("depth_db", "modulation")},
		{"modulation.mode", drop("mode", "modulation")},
		{"modulation.fc_drift_oct", drop("fc_drift_oct", "modulation")},
		{"modulation.jitter", drop("jitter", "modulation")},
		{"dynamics", drop("dynamics")},
		{"dynamics.pregain_db", drop("pregain_db", "dynamics")},
		{"dynamics.limiter", drop("limiter", "dynamics")},
		{"dynamics.limiter.ceiling_dbfs", drop("ceiling_dbfs", "dynamics", "limiter")},
		{"dynamics.limiter.lookahead_ms", drop("lookahead_ms", "dynamics", "limiter")},
		{"dynamics.limiter.release_ms", drop("release_ms", "dynamics", "limiter")},
		{"dynamics.compressor.enabled", withCompressor("enabled")},
		{"dynamics.compressor.ratio", withCompressor("ratio")},
		{"dynamics.compressor.threshold_dbfs", withCompressor("threshold_dbfs")},
		{"dynamics.compressor.attack_ms", withCompressor("attack_ms")},
		{"dynamics.compressor.release_ms", withCompressor("release_ms")},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			var doc map[string]any
			if err := json.Unmarshal([]byte(minimalPreset), &doc); err != nil {
				t.Fatal(err)
			}
			tt.remove(doc)
			data, _ := json.Marshal(doc)

			p, err := Decode(data)
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("err = %v, want ErrDecode", err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if de.Field != tt.field {
				t.Errorf("DecodeError.Field = %q, want %q", de.Field, tt.field)
			}
			if !p.Equal(Preset{}) {
				t.Errorf("expected zero preset on error, got %+v", p)
			}
		})
	}
}

func TestDecode_EmptySections(t *testing.T) {
	t.Parallel()
	doc := `{"name":"x","eq":{"low_shelf":{},"peaks":[{"fc_hz":1000,"q":1}],"high_shelf":{}},` +
		`"modulation":{},"dynamics":{"limiter":{}}}`
	p, err := Decode([]byte(doc))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if !p.Equal(Preset{}) {
		t.Errorf("expected zero preset on error, got %+v", p)
	}
}

func TestDecode_NullCompressorIsDisabled(t *testing.T) {
	t.Parallel()
	doc := strings.Replace(minimalPreset, `"pregain_db": 0,`, `"pregain_db": 0, "compressor": null,`, 1)
	p, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.CompressorEnabled() {
		t.Error("null compressor must be disabled")
	}
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()
	for _, doc := range []string{"", "{", "[]", `{"name": 5}`} {
		if _, err := Decode([]byte(doc)); !errors.Is(err, ErrDecode) {
			t.Errorf("Decode(%q) err = %v, want ErrDecode", doc, err)
		}
	}
}

func TestDecode_InvalidValues(t *testing.T) {
	t.Parallel()
	doc := strings.Replace(minimalPreset, `"ceiling_dbfs": -1`, `"ceiling_dbfs": 2`, 1)
	_, err := Decode([]byte(doc))
	if !errors.Is(err, ErrInvalidPreset) {
		t.Fatalf("err = %v, want ErrInvalidPreset", err)
	}
	if errors.Is(err, ErrDecode) {
		t.Error("value errors must not be reported as decode errors")
	}
}

func TestWriteRead(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := Write(&buf, Default()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.Equal(Default()) {
		t.Errorf("Read = %+v, want default", got)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(good, []byte(minimalPreset), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(good); err != nil {
		t.Errorf("LoadFile(good): %v", err)
	}
	_, err := LoadFile(bad)
	if !errors.Is(err, ErrDecode) || !strings.Contains(err.Error(), bad) {
		t.Errorf("LoadFile(bad) err = %v, want decode error naming the path", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
