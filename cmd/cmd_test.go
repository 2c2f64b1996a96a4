// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voicefx/internal/preset"
	"voicefx/internal/tui"
)

// writeConfig writes a configuration with its preset library inside a
// temporary directory and returns the config path.
func writeConfig(t *testing.T) (cfgPath, presetDir string) {
	t.Helper()
	dir := t.TempDir()
	presetDir = filepath.Join(dir, "presets")
	cfgPath = filepath.Join(dir, "voicefx.yaml")
	data := "log_level: error\nchain:\n  preset_dir: " + presetDir + "\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, presetDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(args, &stdout, &stderr)
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := run(t, "--config", cfg, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "voicefx") {
		t.Errorf("version output %q does not name the program", out)
	}
}

func TestUnknownLogLevel(t *testing.T) {
	cfg, _ := writeConfig(t)
	if _, err := run(t, "--config", cfg, "--log-level", "loud", "version"); err == nil {
		t.Error("expected an error for an unknown log level")
	}
}

func TestPresetsLifecycle(t *testing.T) {
	cfg, dir := writeConfig(t)
	name := preset.Default().Name

	out, err := run(t, "--config", cfg, "presets", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No presets") {
		t.Errorf("empty library listed %q", out)
	}

	if _, err := run(t, "--config", cfg, "presets", "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	out, err = run(t, "--config", cfg, "presets", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.TrimSpace(out) != name {
		t.Errorf("list = %q, want %q", out, name)
	}

	exported := filepath.Join(t.TempDir(), "exported.json")
	if _, err := run(t, "--config", cfg, "presets", "export", name, exported); err != nil {
		t.Fatalf("export: %v", err)
	}
	p, err := preset.LoadFile(exported)
	if err != nil {
		t.Fatalf("exported preset does not load: %v", err)
	}
	if !p.Equal(preset.Default()) {
		t.Error("exported preset differs from the built-in preset")
	}

	out, err = run(t, "--config", cfg, "presets", "show", name)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, name) {
		t.Errorf("show output does not contain the preset name:\n%s", out)
	}

	if _, err := run(t, "--config", cfg, "presets", "delete", name); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, name+".json")); !os.IsNotExist(err) {
		t.Errorf("preset file still present after delete: %v", err)
	}
	if _, err := run(t, "--config", cfg, "presets", "delete", name); err == nil {
		t.Error("deleting a missing preset should fail")
	}

	if _, err := run(t, "--config", cfg, "presets", "import", exported); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, name+".json")); err != nil {
		t.Errorf("imported preset missing: %v", err)
	}
}

func TestPresetsValidate(t *testing.T) {
	cfg, _ := writeConfig(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	data, err := preset.Encode(preset.Default())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(good, data, 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"name": "x"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", cfg, "presets", "validate", good)
	if err != nil {
		t.Fatalf("validate good: %v", err)
	}
	if !strings.Contains(out, "ok") {
		t.Errorf("validate output = %q", out)
	}
	if _, err := run(t, "--config", cfg, "presets", "validate", good, bad); err == nil {
		t.Error("validate should fail when any file is invalid")
	}
}

func TestRenderCommand(t *testing.T) {
	cfg, _ := writeConfig(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "nested", "out.wav")

	const rate = 48000
	f, err := os.Create(in)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	data := make([]int, rate/2)
	for i := range data {
		data[i] = int(8000 * math.Sin(2*math.Pi*1000*float64(i)/rate))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	stdout, err := run(t, "--config", cfg, "render", "--block-size", "256", "--bit-depth", "24", in, out)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(stdout, "24-bit") || !strings.Contains(stdout, "latency 239") {
		t.Errorf("unexpected render report:\n%s", stdout)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}

	if _, err := run(t, "--config", cfg, "render", "--bit-depth", "12", in, out); err == nil {
		t.Error("expected an error for an unsupported bit depth")
	}
}

func TestMeasureResponseMatchesDesign(t *testing.T) {
	p := preset.Default()
	points, err := measureResponse(p, 48000, tui.ReferenceFrequencies)
	if err != nil {
		t.Fatalf("measureResponse: %v", err)
	}
	if len(points) != len(tui.ReferenceFrequencies) {
		t.Fatalf("got %d points, want %d", len(points), len(tui.ReferenceFrequencies))
	}
	for _, pt := range points {
		if d := math.Abs(pt.MeasuredDB - pt.DesignedDB); d > 0.5 {
			t.Errorf("%.0f Hz: measured %.2f dB, designed %.2f dB", pt.FreqHz, pt.MeasuredDB, pt.DesignedDB)
		}
	}

	var sb strings.Builder
	if err := writeResponse(&sb, p, 48000, points); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(sb.String(), " Hz "); got != len(points) {
		t.Errorf("table has %d rows, want %d", got, len(points))
	}
}

func TestMeasureResponseSkipsAboveNyquist(t *testing.T) {
	points, err := measureResponse(preset.Default(), 16000, tui.ReferenceFrequencies)
	if err != nil {
		t.Fatalf("measureResponse: %v", err)
	}
	for _, pt := range points {
		if pt.FreqHz >= 8000 {
			t.Errorf("measured %.0f Hz at or above Nyquist", pt.FreqHz)
		}
	}
}
