package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vaibvoice/internal/audio/ffmpeg"
)

const (
	InjectPaste = "paste"
	InjectType  = "type"
)

// Config holds process-level parameters. User preferences (hotkey, models,
// API key, sounds) live in the settings table instead.
type Config struct {
	APIHost         string  `json:"API_HOST" yaml:"API_HOST"`
	APIPort         int     `json:"API_PORT" yaml:"API_PORT"`
	GUIDir          string  `json:"GUI_DIR" yaml:"GUI_DIR"`
	DBPath          string  `json:"DB_PATH" yaml:"DB_PATH"`
	AudioDir        string  `json:"AUDIO_DIR" yaml:"AUDIO_DIR"`
	SoundDir        string  `json:"SOUND_DIR" yaml:"SOUND_DIR"`
	Channels        int     `json:"CHANNELS" yaml:"CHANNELS"`
	SAMPLING_RATE   int     `json:"SAMPLING_RATE" yaml:"SAMPLING_RATE"`
	FramesPerBuffer int     `json:"FRAMES_PER_BUFFER" yaml:"FRAMES_PER_BUFFER"`
	BIT_RATE        int     `json:"BIT_RATE" yaml:"BIT_RATE"`
	CODECS          string  `json:"CODECS" yaml:"CODECS"`
	CONTAINER       string  `json:"CONTAINER" yaml:"CONTAINER"`
	OpenAIBaseURL   string  `json:"OPENAI_BASE_URL" yaml:"OPENAI_BASE_URL"`
	RequestTimeout  int     `json:"REQUEST_TIMEOUT" yaml:"REQUEST_TIMEOUT"`
	MaxRetry        int     `json:"MAX_RETRY" yaml:"MAX_RETRY"`
	RetryBaseDelay  float64 `json:"RETRY_BASE_DELAY" yaml:"RETRY_BASE_DELAY"`
	EnableHTTP2     bool    `json:"ENABLE_HTTP2" yaml:"ENABLE_HTTP2"`
	VerifySSL       bool    `json:"VERIFY_SSL" yaml:"VERIFY_SSL"`
	InjectMode      string  `json:"INJECT_MODE" yaml:"INJECT_MODE"`
	TypeDelayMS     int     `json:"TYPE_DELAY_MS" yaml:"TYPE_DELAY_MS"`
	Notification    bool    `json:"NOTIFICATION" yaml:"NOTIFICATION"`
	LogLevel        string  `json:"LOG_LEVEL" yaml:"LOG_LEVEL"`
	FFMPEG_DEBUG    bool    `json:"FFMPEG_DEBUG" yaml:"FFMPEG_DEBUG"`
	RECORD_DEBUG    bool    `json:"RECORD_DEBUG" yaml:"RECORD_DEBUG"`
	HOTKEY_DEBUG    bool    `json:"HOTKEY_DEBUG" yaml:"HOTKEY_DEBUG"`
	UPLOAD_DEBUG    bool    `json:"UPLOAD_DEBUG" yaml:"UPLOAD_DEBUG"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		APIHost:         "127.0.0.1",
		APIPort:         5000,
		GUIDir:          "",
		DBPath:          "transcription_history.db",
		AudioDir:        "audio_temp",
		SoundDir:        "sounds",
		Channels:        1,
		SAMPLING_RATE:   44100,
		FramesPerBuffer: 1024,
		BIT_RATE:        128,
		CODECS:          "wav",
		CONTAINER:       "wav",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		RequestTimeout:  60,
		MaxRetry:        3,
		RetryBaseDelay:  0.5,
		EnableHTTP2:     true,
		VerifySSL:       true,
		InjectMode:      InjectPaste,
		TypeDelayMS:     1,
		Notification:    false,
		LogLevel:        "info",
		FFMPEG_DEBUG:    false,
		RECORD_DEBUG:    false,
		HOTKEY_DEBUG:    false,
		UPLOAD_DEBUG:    false,
	}
}

// Load loads config from a JSON or YAML file (chosen by extension) if provided.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if isYAML(path) {
		err = yaml.Unmarshal(b, &cfg)
	} else {
		err = json.Unmarshal(b, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveDefault writes a default config file to the provided path.
func SaveDefault(path string) error {
	cfg := DefaultConfig()
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(cfg)
	} else {
		b, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return fmt.Errorf("invalid API_PORT: %d (allowed 1..65535)", cfg.APIPort)
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	if cfg.Channels < 1 || cfg.Channels > 8 {
		return fmt.Errorf("invalid CHANNELS: %d (allowed 1..8)", cfg.Channels)
	}
	if cfg.SAMPLING_RATE <= 0 {
		return fmt.Errorf("invalid SAMPLING_RATE: %d (must be > 0)", cfg.SAMPLING_RATE)
	}
	if cfg.FramesPerBuffer <= 0 {
		return fmt.Errorf("invalid FRAMES_PER_BUFFER: %d (must be > 0)", cfg.FramesPerBuffer)
	}
	if cfg.BIT_RATE <= 0 {
		return fmt.Errorf("invalid BIT_RATE: %d (must be > 0)", cfg.BIT_RATE)
	}
	if !ffmpeg.Supported(cfg.CODECS) {
		return fmt.Errorf("invalid CODECS: %s (allowed: WAV, %s)", cfg.CODECS, strings.ToUpper(strings.Join(ffmpeg.Codecs(), ", ")))
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid REQUEST_TIMEOUT: %d (must be > 0)", cfg.RequestTimeout)
	}
	if cfg.MaxRetry < 1 {
		return fmt.Errorf("invalid MAX_RETRY: %d (must be >= 1)", cfg.MaxRetry)
	}
	if cfg.RetryBaseDelay < 0 {
		return fmt.Errorf("invalid RETRY_BASE_DELAY: %v (must be >= 0)", cfg.RetryBaseDelay)
	}
	switch cfg.InjectMode {
	case InjectPaste, InjectType:
	default:
		return fmt.Errorf("invalid INJECT_MODE: %s (allowed: paste, type)", cfg.InjectMode)
	}
	if cfg.TypeDelayMS < 0 {
		return fmt.Errorf("invalid TYPE_DELAY_MS: %d (must be >= 0)", cfg.TypeDelayMS)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// ResolveDirs makes the audio directory absolute and creates it.
func ResolveDirs(cfg *Config) error {
	abs, err := filepath.Abs(cfg.AudioDir)
	if err != nil {
		return fmt.Errorf("audio dir path invalid '%s': %w", cfg.AudioDir, err)
	}
	info, err := os.Stat(abs)
	if err == nil && !info.IsDir() {
		return fmt.Errorf("audio dir '%s' exists but is not a directory", abs)
	}
	if os.IsNotExist(err) {
		if err := os.MkdirAll(abs, 0755); err != nil {
			return fmt.Errorf("cannot create audio dir '%s': %w", abs, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access audio dir '%s': %w", abs, err)
	}
	cfg.AudioDir = abs
	return nil
}

// Addr returns the listen address of the local API.
func (c Config) Addr() string {
	return net.JoinHostPort(c.APIHost, strconv.Itoa(c.APIPort))
}

// Timeout returns REQUEST_TIMEOUT as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// TypeDelay returns TYPE_DELAY_MS as a duration.
func (c Config) TypeDelay() time.Duration {
	return time.Duration(c.TypeDelayMS) * time.Millisecond
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL: %s (allowed: debug, info, warn, error)", s)
	}
	return lvl, nil
}

// ContainerExt maps container names to file extensions (lowercase).
func ContainerExt(container string) string {
	c := strings.ToLower(container)
	if c == "" {
		return "wav"
	}
	return c
}
