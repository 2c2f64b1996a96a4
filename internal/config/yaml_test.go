// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "voicefx.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	// changes the working directory, so not parallel
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Audio.SampleRate != DefaultSampleRate || cfg.Chain.PresetDir != DefaultPresetDir {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
audio:
  sample_rate: 44100
  frames_per_buffer: 256
chain:
  preset: speech
  bypass: true
transport:
  udp_enabled: true
  udp_send_interval: 20ms
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Audio.SampleRate != 44100 || cfg.Audio.FramesPerBuffer != 256 {
		t.Errorf("audio section not applied: %+v", cfg)
	}
	if cfg.Chain.Preset != "speech" || !cfg.Chain.Bypass {
		t.Errorf("chain section not applied: %+v", cfg.Chain)
	}
	// unset keys keep their defaults
	if cfg.Audio.Channels != DefaultChannels || cfg.Chain.PresetDir != DefaultPresetDir {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Transport.UDPSendInterval != 20*time.Millisecond {
		t.Errorf("UDPSendInterval = %v", cfg.Transport.UDPSendInterval)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeTempConfig(t, "chain:\n  preset: file\n")
	t.Setenv("VOICEFX_PRESET", "env")
	t.Setenv("VOICEFX_SAMPLE_RATE", "32000")
	t.Setenv("VOICEFX_WS_ENABLED", "true")
	t.Setenv("VOICEFX_UDP_SEND_INTERVAL", "not-a-duration")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Chain.Preset != "env" {
		t.Errorf("Preset = %q, want env override", cfg.Chain.Preset)
	}
	if cfg.Audio.SampleRate != 32000 {
		t.Errorf("SampleRate = %g", cfg.Audio.SampleRate)
	}
	if !cfg.Transport.WebSocketEnabled {
		t.Error("WebSocketEnabled override not applied")
	}
	if cfg.Transport.UDPSendInterval != DefaultUDPInterval {
		t.Errorf("bad duration override applied: %v", cfg.Transport.UDPSendInterval)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
		{"device below default", func(c *Config) { c.Audio.OutputDevice = -2 }, "audio.output_device"},
		{"rate too low", func(c *Config) { c.Audio.SampleRate = 4000 }, "audio.sample_rate"},
		{"rate too high", func(c *Config) { c.Audio.SampleRate = 384000 }, "audio.sample_rate"},
		{"zero frames", func(c *Config) { c.Audio.FramesPerBuffer = 0 }, "audio.frames_per_buffer"},
		{"too many frames", func(c *Config) { c.Audio.FramesPerBuffer = MaxBufferFrames + 1 }, "audio.frames_per_buffer"},
		{"no channels", func(c *Config) { c.Audio.Channels = 0 }, "audio.channels"},
		{"no preset dir", func(c *Config) { c.Chain.PresetDir = "" }, "chain.preset_dir"},
		{"recording bit depth", func(c *Config) {
			c.Recording.Enabled = true
			c.Recording.BitDepth = 12
		}, "recording.bit_depth"},
		{"render block size", func(c *Config) { c.Render.BlockSize = 0 }, "render.block_size"},
		{"render bit depth", func(c *Config) { c.Render.BitDepth = 8 }, "render.bit_depth"},
		{"render keeps source depth", func(c *Config) { c.Render.BitDepth = 0 }, ""},
		{"websocket address", func(c *Config) {
			c.Transport.WebSocketEnabled = true
			c.Transport.WebSocketAddress = "localhost"
		}, "transport.websocket_address"},
		{"udp address", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "nowhere"
		}, "transport.udp_target_address"},
		{"udp interval", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPSendInterval = 0
		}, "transport.udp_send_interval"},
		{"udp disabled ignores interval", func(c *Config) { c.Transport.UDPSendInterval = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
