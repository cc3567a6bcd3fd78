// Package sound plays the start and end cues of a capture session.
package sound

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/beeep"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"vaibvoice/internal/settings"
)

// Player resolves cue names from settings against a sound directory.
type Player struct {
	dir      string
	provider settings.Provider
	log      *slog.Logger

	// play is swapped in tests.
	play func(path string) error
}

// New returns a Player reading cue files from dir.
func New(dir string, provider settings.Provider, log *slog.Logger) *Player {
	if log == nil {
		log = slog.Default()
	}
	return &Player{dir: dir, provider: provider, log: log, play: playFile}
}

// PlayStart plays the configured start cue in the background.
func (p *Player) PlayStart(ctx context.Context) {
	p.playCue(ctx, func(s settings.Settings) string { return s.StartSound })
}

// PlayEnd plays the configured end cue in the background.
func (p *Player) PlayEnd(ctx context.Context) {
	p.playCue(ctx, func(s settings.Settings) string { return s.EndSound })
}

func (p *Player) playCue(ctx context.Context, pick func(settings.Settings) string) {
	s, err := p.provider.Current(ctx)
	if err != nil {
		p.log.Warn("read settings for cue failed", slog.Any("error", err))
		return
	}
	path, ok := p.Resolve(pick(s))
	if !ok {
		return
	}
	go func() {
		if err := p.play(path); err != nil {
			p.log.Warn("play cue failed", slog.String("path", path), slog.Any("error", err))
		}
	}()
}

// Resolve maps a cue name to a file. "none", empty names and missing files
// resolve to nothing.
func (p *Player) Resolve(name string) (string, bool) {
	if name == "" || strings.EqualFold(name, settings.NoSound) {
		return "", false
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.dir, name)
	}
	if _, err := os.Stat(path); err != nil {
		p.log.Debug("cue file missing", slog.String("path", path))
		return "", false
	}
	return path, true
}

// playFile plays WAV cues through PortAudio; other formats fall back to a
// system beep.
func playFile(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}
	samples := buf.AsFloat32Buffer().Data
	scale := float32(int(1) << (dec.BitDepth - 1))
	channels := buf.Format.NumChannels

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init failed: %w", err)
	}
	defer portaudio.Terminate()

	out := make([]float32, 512*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(buf.Format.SampleRate), len(out)/channels, &out)
	if err != nil {
		return fmt.Errorf("open output stream failed: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream failed: %w", err)
	}
	for off := 0; off < len(samples); off += len(out) {
		for i := range out {
			out[i] = 0
			if off+i < len(samples) {
				out[i] = samples[off+i] / scale
			}
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write output stream failed: %w", err)
		}
	}
	return stream.Stop()
}
