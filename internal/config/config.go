// Package config provides configuration management for the performance core.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Animation AnimationConfig `mapstructure:"animation"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Avatar    AvatarConfig    `mapstructure:"avatar"`
}

// ServerConfig configures the dialogue channel
type ServerConfig struct {
	URL            string        `mapstructure:"url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// AnimationConfig holds the blend, blink, gaze and action tuning constants
type AnimationConfig struct {
	ExpressionRate float32 `mapstructure:"expression_rate"` // 1/s, ~0.3-0.4s full transition
	LipRate        float32 `mapstructure:"lip_rate"`        // 1/s, fast enough to track phoneme cadence

	BlinkMinGap   float32 `mapstructure:"blink_min_gap"`  // seconds
	BlinkMaxGap   float32 `mapstructure:"blink_max_gap"`  // seconds
	BlinkCloseDur float32 `mapstructure:"blink_close_dur"`
	BlinkOpenDur  float32 `mapstructure:"blink_open_dur"`

	GazeIdleRate      float32 `mapstructure:"gaze_idle_rate"`
	GazeDirectedRate  float32 `mapstructure:"gaze_directed_rate"`
	GazeDrift         float32 `mapstructure:"gaze_drift"`
	SpeakingDampening float32 `mapstructure:"speaking_dampening"`
	MaxYawDeg         float32 `mapstructure:"max_yaw_deg"`
	MaxPitchDeg       float32 `mapstructure:"max_pitch_deg"`

	BreathRate      float32 `mapstructure:"breath_rate"`
	BreathAmplitude float32 `mapstructure:"breath_amplitude"`
	SwayRate        float32 `mapstructure:"sway_rate"`
	SwayAmplitude   float32 `mapstructure:"sway_amplitude"`

	ActionCrossfade float64 `mapstructure:"action_crossfade"` // seconds
	ActionFadeOut   float64 `mapstructure:"action_fade_out"`  // seconds

	NeutralGrace time.Duration `mapstructure:"neutral_grace"` // delay before expression relaxes
	MaxDelta     float32       `mapstructure:"max_delta"`     // per-tick dt clamp, seconds

	EnableGestures bool `mapstructure:"enable_gestures"` // default gesture per emotion
}

// AudioConfig configures playback
type AudioConfig struct {
	BufferFrames int `mapstructure:"buffer_frames"`
}

// AvatarConfig configures the character rig binding
type AvatarConfig struct {
	ModelPath string  `mapstructure:"model_path"`
	EyeHeight float32 `mapstructure:"eye_height"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            "ws://localhost:8000/ws",
			ReconnectDelay: 2 * time.Second,
		},
		Animation: AnimationConfig{
			ExpressionRate: 3.0,  // ~0.35s to settle
			LipRate:        10.0, // ~0.1s to settle

			BlinkMinGap:   2.0,
			BlinkMaxGap:   5.0,
			BlinkCloseDur: 0.08,
			BlinkOpenDur:  0.12,

			GazeIdleRate:      2.0,
			GazeDirectedRate:  8.0,
			GazeDrift:         0.08,
			SpeakingDampening: 0.35,
			MaxYawDeg:         60,
			MaxPitchDeg:       40,

			BreathRate:      0.25,
			BreathAmplitude: 0.04,
			SwayRate:        0.15,
			SwayAmplitude:   0.02,

			ActionCrossfade: 0.25,
			ActionFadeOut:   0.4,

			NeutralGrace: 600 * time.Millisecond,
			MaxDelta:     0.1,

			EnableGestures: true,
		},
		Audio: AudioConfig{
			BufferFrames: 2048,
		},
		Avatar: AvatarConfig{
			ModelPath: "assets/girlfriend.vrm",
			EyeHeight: 1.4,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return cfg, err
	}

	configDir := filepath.Join(homeDir, ".aigirlfriend")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("GIRLFRIEND")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(homeDir, ".aigirlfriend")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("server", cfg.Server)
	viper.Set("animation", cfg.Animation)
	viper.Set("audio", cfg.Audio)
	viper.Set("avatar", cfg.Avatar)

	return viper.WriteConfigAs(filepath.Join(configDir, "config.yaml"))
}
