// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voicefx/internal/log"
)

var logger = log.Named("config")

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it searches the default locations and falls back to built-in
// defaults when none exists. Environment overrides are applied last and the
// result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfig()
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	logger.Debugf("loaded %s", path)

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func findConfig() string {
	candidates := []string{DefaultConfigFile}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "voicefx", DefaultConfigFile))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not a known level", c.LogLevel)
	}

	a := c.Audio
	if a.OutputDevice < MinDeviceID {
		return fmt.Errorf("audio.output_device must be >= %d, got %d", MinDeviceID, a.OutputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be within [%d, %d], got %g", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be within [1, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.Channels < 1 || a.Channels > MaxChannels {
		return fmt.Errorf("audio.channels must be within [1, %d], got %d", MaxChannels, a.Channels)
	}

	if c.Chain.PresetDir == "" {
		return fmt.Errorf("chain.preset_dir must be set")
	}

	if c.Recording.Enabled {
		if c.Recording.OutputDir == "" {
			return fmt.Errorf("recording.output_dir must be set when recording is enabled")
		}
		if !validBitDepth(c.Recording.BitDepth) {
			return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
		}
	}

	if c.Render.BlockSize <= 0 || c.Render.BlockSize > MaxBlockSize {
		return fmt.Errorf("render.block_size must be within [1, %d], got %d", MaxBlockSize, c.Render.BlockSize)
	}
	if c.Render.BitDepth != 0 && !validBitDepth(c.Render.BitDepth) {
		return fmt.Errorf("render.bit_depth must be 0, 16, 24 or 32, got %d", c.Render.BitDepth)
	}

	t := c.Transport
	if t.WebSocketEnabled && !strings.Contains(t.WebSocketAddress, ":") {
		return fmt.Errorf("transport.websocket_address %q appears invalid (missing port?)", t.WebSocketAddress)
	}
	if t.UDPEnabled {
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	return nil
}

func validBitDepth(n int) bool {
	return n == 16 || n == 24 || n == 32
}

// applyEnvOverrides applies VOICEFX_* environment variables. Unparseable
// values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("VOICEFX_LOG_LEVEL"); ok {
		c.LogLevel = val
		logger.Debugf("overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("VOICEFX_OUTPUT_DEVICE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Audio.OutputDevice = n
		} else {
			logger.Warnf("ignoring VOICEFX_OUTPUT_DEVICE=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("VOICEFX_SAMPLE_RATE"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Audio.SampleRate = f
		} else {
			logger.Warnf("ignoring VOICEFX_SAMPLE_RATE=%q: %v", val, err)
		}
	}

	if val, ok := os.LookupEnv("VOICEFX_PRESET"); ok {
		c.Chain.Preset = val
		logger.Debugf("overriding chain.preset from env: %s", val)
	}
	if val, ok := os.LookupEnv("VOICEFX_PRESET_DIR"); ok {
		c.Chain.PresetDir = val
	}
	if val, ok := os.LookupEnv("VOICEFX_BYPASS"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Chain.Bypass = b
		} else {
			logger.Warnf("ignoring VOICEFX_BYPASS=%q: %v", val, err)
		}
	}

	if val, ok := os.LookupEnv("VOICEFX_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = b
		} else {
			logger.Warnf("ignoring VOICEFX_WS_ENABLED=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("VOICEFX_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
	}
	if val, ok := os.LookupEnv("VOICEFX_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		} else {
			logger.Warnf("ignoring VOICEFX_UDP_ENABLED=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("VOICEFX_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("VOICEFX_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
		} else {
			logger.Warnf("ignoring VOICEFX_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}
