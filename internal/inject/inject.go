// Package inject delivers text into the focused application, either by
// replacing its content through the clipboard or by typing it.
package inject

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	verrors "vaibvoice/internal/errors"
)

// Keyboard synthesizes the key presses the injector needs.
type Keyboard interface {
	SelectAll() error
	Backspace() error
	Paste() error
	Type(s string) error
}

// Clipboard is the system clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

const (
	// settleDelay separates synthesized shortcuts so the target application
	// sees them in order.
	settleDelay  = 80 * time.Millisecond
	restoreDelay = 120 * time.Millisecond
	chunkSize    = 2
)

// Injector writes text into whatever has keyboard focus.
type Injector struct {
	kb    Keyboard
	clip  Clipboard
	log   *slog.Logger
	sleep func(time.Duration)
}

// New returns an Injector using kb and clip.
func New(kb Keyboard, clip Clipboard, log *slog.Logger) *Injector {
	if log == nil {
		log = slog.Default()
	}
	return &Injector{kb: kb, clip: clip, log: log, sleep: time.Sleep}
}

// NewSystem returns an Injector bound to the OS keyboard and clipboard.
func NewSystem(log *slog.Logger) (*Injector, error) {
	kb, err := NewSystemKeyboard()
	if err != nil {
		return nil, verrors.NewInjectionFailed(err)
	}
	return New(kb, SystemClipboard{}, log), nil
}

// ReplaceFocusedText selects everything in the focused field, deletes it and
// pastes text. The previous clipboard content is restored afterwards.
func (i *Injector) ReplaceFocusedText(ctx context.Context, text string) error {
	orig, readErr := i.clip.Read()

	steps := []struct {
		name string
		run  func() error
	}{
		{"select all", i.kb.SelectAll},
		{"backspace", i.kb.Backspace},
		{"clipboard write", func() error { return i.clip.Write(text) }},
		{"paste", i.kb.Paste},
	}
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return verrors.NewInjectionFailed(err)
		}
		if err := st.run(); err != nil {
			return verrors.NewInjectionFailed(fmt.Errorf("%s: %w", st.name, err))
		}
		i.sleep(settleDelay)
	}

	if readErr == nil {
		i.sleep(restoreDelay)
		if err := i.clip.Write(orig); err != nil {
			i.log.Debug("restore clipboard failed", slog.Any("error", err))
		}
	}
	return nil
}

// TypeIncrementally types text two characters at a time with delay between
// chunks.
func (i *Injector) TypeIncrementally(ctx context.Context, text string, delay time.Duration) error {
	for _, chunk := range Chunks(text, chunkSize) {
		if err := ctx.Err(); err != nil {
			return verrors.NewInjectionFailed(err)
		}
		if err := i.kb.Type(chunk); err != nil {
			return verrors.NewInjectionFailed(fmt.Errorf("type: %w", err))
		}
		i.sleep(delay)
	}
	return nil
}

// Chunks splits text into pieces of at most size runes.
func Chunks(text string, size int) []string {
	if size <= 0 {
		size = 1
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
