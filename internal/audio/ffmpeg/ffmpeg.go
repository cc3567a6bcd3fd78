package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// Options describes the target encoding of Convert.
type Options struct {
	Codec      string
	Channels   int
	SampleRate int
	BitRate    int
	Debug      bool
}

type codecInfo struct {
	name       string
	hasBitrate bool
}

var codecs = map[string]codecInfo{
	"opus":      {"libopus", true},
	"libopus":   {"libopus", true},
	"aac":       {"aac", true},
	"mp3":       {"libmp3lame", true},
	"flac":      {"flac", false},
	"vorbis":    {"libvorbis", true},
	"libvorbis": {"libvorbis", true},
	"pcm":       {"pcm_s16le", false},
	"pcm_s16le": {"pcm_s16le", false},
}

// Passthrough reports whether codec means "upload the recorded WAV as is".
func Passthrough(codec string) bool {
	c := strings.ToLower(codec)
	return c == "" || c == "wav"
}

// Supported reports whether codec is wav or one Convert can produce.
func Supported(codec string) bool {
	if Passthrough(codec) {
		return true
	}
	_, ok := codecs[strings.ToLower(codec)]
	return ok
}

// Codecs lists the convertible codec names.
func Codecs() []string {
	out := make([]string, 0, len(codecs))
	for k := range codecs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Args builds the ffmpeg command line for converting inPath to outPath.
func Args(opts Options, inPath, outPath string) ([]string, error) {
	info, ok := codecs[strings.ToLower(opts.Codec)]
	if !ok {
		return nil, fmt.Errorf("unsupported codec: %s", opts.Codec)
	}
	channels := opts.Channels
	if channels <= 0 {
		channels = 1
	}
	bitrate := opts.BitRate
	if bitrate <= 0 {
		bitrate = 128
	}

	args := []string{"-y", "-i", inPath, "-ac", strconv.Itoa(channels)}
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	args = append(args, "-c:a", info.name)
	if info.hasBitrate {
		args = append(args, "-b:a", fmt.Sprintf("%dk", bitrate))
	}
	return append(args, outPath), nil
}

// Convert converts input audio into the configured codec/container.
func Convert(ctx context.Context, opts Options, inPath, outPath string, log *slog.Logger) error {
	args, err := Args(opts, inPath, outPath)
	if err != nil {
		return err
	}
	if opts.Debug && log != nil {
		log.Debug("executing ffmpeg", slog.String("args", strings.Join(args, " ")))
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %v\n%s", err, stderr.String())
	}
	return nil
}
