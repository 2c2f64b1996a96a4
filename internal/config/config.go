package config

import "time"

// Defaults and limits for the runtime configuration.
const (
	DefaultLogLevel        = "info"
	DefaultConfigFile      = "voicefx.yaml"
	DefaultDeviceID        = MinDeviceID // system default output
	DefaultSampleRate      = 48000
	DefaultFramesPerBuffer = 512
	DefaultLowLatency      = false
	DefaultChannels        = 2

	DefaultPresetDir = "presets"
	DefaultBypass    = false

	DefaultRecordingDir = "./recordings"
	DefaultBitDepth     = 16
	DefaultBlockSize    = 1024

	DefaultWebSocketAddress = "127.0.0.1:8080"
	DefaultUDPTarget        = "127.0.0.1:9090"
	DefaultUDPInterval      = 50 * time.Millisecond

	MinDeviceID     = -1     // -1 selects the system default device
	MinSampleRate   = 8000   // Hz
	MaxSampleRate   = 192000 // Hz
	MaxBufferFrames = 8192
	MaxChannels     = 8
	MaxBlockSize    = 1 << 16
)

// Config is the application configuration, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Chain     ChainConfig     `yaml:"chain"`
	Recording RecordingConfig `yaml:"recording"`
	Render    RenderConfig    `yaml:"render"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds playback device settings.
type AudioConfig struct {
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index, -1 for default
	SampleRate      float64 `yaml:"sample_rate"`       // used when the source does not dictate one
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // callback size, affects latency
	LowLatency      bool    `yaml:"low_latency"`
	Channels        int     `yaml:"channels"` // output channels; the chain is mono and fanned out
}

// ChainConfig selects the preset the chain starts with.
type ChainConfig struct {
	Preset    string `yaml:"preset"`     // name in PresetDir, a path to a .json file, or empty for the built-in preset
	PresetDir string `yaml:"preset_dir"` // preset library directory
	Bypass    bool   `yaml:"bypass"`
}

// RecordingConfig controls capture of processed playback output.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
	BitDepth  int    `yaml:"bit_depth"`
}

// RenderConfig holds offline rendering settings.
type RenderConfig struct {
	BlockSize int `yaml:"block_size"`
	BitDepth  int `yaml:"bit_depth"` // 0 keeps the source bit depth
}

// TransportConfig holds meter and remote control settings.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			Channels:        DefaultChannels,
		},
		Chain: ChainConfig{
			PresetDir: DefaultPresetDir,
			Bypass:    DefaultBypass,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultRecordingDir,
			BitDepth:  DefaultBitDepth,
		},
		Render: RenderConfig{
			BlockSize: DefaultBlockSize,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPInterval,
		},
	}
}
