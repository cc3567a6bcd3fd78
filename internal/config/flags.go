package config

import (
	"github.com/urfave/cli/v2"
)

// binding ties one CLI flag to the Config field it overrides.
type binding struct {
	flag  cli.Flag
	apply func(cfg *Config, c *cli.Context)
}

func stringBinding(name, usage string, field func(*Config) *string) binding {
	return binding{
		flag:  &cli.StringFlag{Name: name, Usage: usage},
		apply: func(cfg *Config, c *cli.Context) { *field(cfg) = c.String(name) },
	}
}

func intBinding(name, usage string, field func(*Config) *int) binding {
	return binding{
		flag:  &cli.IntFlag{Name: name, Usage: usage},
		apply: func(cfg *Config, c *cli.Context) { *field(cfg) = c.Int(name) },
	}
}

func floatBinding(name, usage string, field func(*Config) *float64) binding {
	return binding{
		flag:  &cli.Float64Flag{Name: name, Usage: usage},
		apply: func(cfg *Config, c *cli.Context) { *field(cfg) = c.Float64(name) },
	}
}

func boolBinding(name, usage string, field func(*Config) *bool) binding {
	return binding{
		flag:  &cli.BoolFlag{Name: name, Usage: usage},
		apply: func(cfg *Config, c *cli.Context) { *field(cfg) = c.Bool(name) },
	}
}

var bindings = []binding{
	stringBinding("api-host", "local API listen host", func(c *Config) *string { return &c.APIHost }),
	intBinding("api-port", "local API listen port", func(c *Config) *int { return &c.APIPort }),
	stringBinding("gui-dir", "directory with the built GUI to serve", func(c *Config) *string { return &c.GUIDir }),
	stringBinding("db-path", "SQLite history database path", func(c *Config) *string { return &c.DBPath }),
	stringBinding("audio-dir", "directory for recorded audio", func(c *Config) *string { return &c.AudioDir }),
	stringBinding("sound-dir", "directory holding start/end cue files", func(c *Config) *string { return &c.SoundDir }),

	intBinding("channels", "channels (int)", func(c *Config) *int { return &c.Channels }),
	intBinding("sampling-rate", "sampling rate (Hz)", func(c *Config) *int { return &c.SAMPLING_RATE }),
	intBinding("frames-per-buffer", "frames per capture callback", func(c *Config) *int { return &c.FramesPerBuffer }),
	intBinding("bit-rate", "bit rate (kbps) for converted uploads", func(c *Config) *int { return &c.BIT_RATE }),
	stringBinding("codecs", "upload codec (WAV uploads as recorded; e.g. OPUS, MP3, FLAC)", func(c *Config) *string { return &c.CODECS }),
	stringBinding("container", "upload container (e.g. OGG, MP3, FLAC, M4A)", func(c *Config) *string { return &c.CONTAINER }),

	stringBinding("openai-base-url", "OpenAI-compatible API base URL", func(c *Config) *string { return &c.OpenAIBaseURL }),
	intBinding("request-timeout", "request timeout seconds", func(c *Config) *int { return &c.RequestTimeout }),
	intBinding("max-retry", "max retry attempts", func(c *Config) *int { return &c.MaxRetry }),
	floatBinding("retry-base-delay", "retry base delay seconds (float)", func(c *Config) *float64 { return &c.RetryBaseDelay }),
	boolBinding("enable-http2", "enable HTTP/2", func(c *Config) *bool { return &c.EnableHTTP2 }),
	boolBinding("verify-ssl", "verify TLS certificates", func(c *Config) *bool { return &c.VerifySSL }),

	stringBinding("inject-mode", "paste (replace focused text) or type (type raw transcript)", func(c *Config) *string { return &c.InjectMode }),
	intBinding("type-delay-ms", "delay between typed chunks in type mode", func(c *Config) *int { return &c.TypeDelayMS }),

	boolBinding("notification", "enable desktop notifications", func(c *Config) *bool { return &c.Notification }),
	stringBinding("log-level", "debug, info, warn or error", func(c *Config) *string { return &c.LogLevel }),
	boolBinding("ffmpeg-debug", "enable ffmpeg debug output", func(c *Config) *bool { return &c.FFMPEG_DEBUG }),
	boolBinding("record-debug", "enable record debug output", func(c *Config) *bool { return &c.RECORD_DEBUG }),
	boolBinding("hotkey-debug", "enable hotkey debug output", func(c *Config) *bool { return &c.HOTKEY_DEBUG }),
	boolBinding("upload-debug", "enable upload debug output", func(c *Config) *bool { return &c.UPLOAD_DEBUG }),
}

// Flags returns the global flags that override config file values.
func Flags() []cli.Flag {
	out := make([]cli.Flag, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, b.flag)
	}
	return out
}

// ApplyFlags applies explicitly set flags to the config.
func ApplyFlags(cfg *Config, c *cli.Context) {
	for _, b := range bindings {
		if c.IsSet(b.flag.Names()[0]) {
			b.apply(cfg, c)
		}
	}
}

// AnySet reports whether any override flag was explicitly set by the user.
func AnySet(c *cli.Context) bool {
	for _, b := range bindings {
		if c.IsSet(b.flag.Names()[0]) {
			return true
		}
	}
	return false
}
