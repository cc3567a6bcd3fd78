package record

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/oklog/ulid/v2"

	verrors "vaibvoice/internal/errors"
)

// State represents recorder state.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// Result is returned by Stop. Empty means no audio was captured and no file
// was written.
type Result struct {
	Path     string
	Duration float64
	Empty    bool
}

// Cues plays the start and end sounds of a session. Implementations must
// not block.
type Cues interface {
	PlayStart(ctx context.Context)
	PlayEnd(ctx context.Context)
}

// Options configures a Session.
type Options struct {
	Dir             string
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	Debug           bool
}

// Session buffers one microphone capture at a time and flushes it to WAV.
type Session struct {
	opts   Options
	device Device
	cues   Cues
	log    *slog.Logger
	clock  func() time.Time

	mu        sync.Mutex
	state     State
	gen       uint64
	stream    Stream
	blocks    [][]int16
	startedAt time.Time
}

// New creates a capture session over device. cues may be nil.
func New(opts Options, device Device, cues Cues, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{opts: opts, device: device, cues: cues, log: log, clock: time.Now}
}

// State returns the current recorder state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the input device and begins buffering.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return verrors.NewAlreadyRecording()
	}

	s.gen++
	gen := s.gen
	stream, err := s.device.Open(s.opts.SampleRate, s.opts.Channels, s.opts.FramesPerBuffer, func(in []int16) {
		s.appendBlock(gen, in)
	})
	if err != nil {
		return classify(err)
	}
	s.blocks = nil
	s.stream = stream
	s.state = StateRecording
	s.startedAt = s.clock()

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		s.stream = nil
		s.state = StateIdle
		return classify(err)
	}

	if s.opts.Debug {
		s.log.Debug("capture started", slog.Int("rate", s.opts.SampleRate), slog.Int("channels", s.opts.Channels))
	}
	if s.cues != nil {
		s.cues.PlayStart(ctx)
	}
	return nil
}

// appendBlock copies in because drivers reuse their buffers. Blocks from a
// previous session or arriving after Stop are dropped.
func (s *Session) appendBlock(gen uint64, in []int16) {
	block := make([]int16, len(in))
	copy(block, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording || s.gen != gen {
		return
	}
	s.blocks = append(s.blocks, block)
}

// Stop halts capture, closes the device and writes the buffered audio.
func (s *Session) Stop(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return Result{}, verrors.NewNotRecording()
	}
	s.state = StateIdle
	stream := s.stream
	blocks := s.blocks
	startedAt := s.startedAt
	s.stream = nil
	s.blocks = nil
	s.mu.Unlock()

	duration := s.clock().Sub(startedAt).Seconds()
	if err := stream.Stop(); err != nil {
		s.log.Warn("stop stream failed", slog.Any("error", err))
	}
	if err := stream.Close(); err != nil {
		s.log.Warn("close stream failed", slog.Any("error", err))
	}
	if s.cues != nil {
		s.cues.PlayEnd(ctx)
	}

	if len(blocks) == 0 {
		s.log.Info("no audio captured", slog.Float64("duration", duration))
		return Result{Duration: duration, Empty: true}, nil
	}

	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	samples := make([]int16, 0, total)
	for _, b := range blocks {
		samples = append(samples, b...)
	}

	path := filepath.Join(s.opts.Dir, FileName(startedAt))
	if err := WriteWAV(path, samples, s.opts.SampleRate, s.opts.Channels); err != nil {
		return Result{}, verrors.NewCaptureError(err)
	}
	if s.opts.Debug {
		s.log.Debug("capture written", slog.String("path", path), slog.Int("samples", len(samples)))
	}
	return Result{Path: path, Duration: duration}, nil
}

// FileName returns a timestamped, collision-resistant WAV file name.
func FileName(t time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	return fmt.Sprintf("recording_%s_%s.wav", t.Format("20060102_150405"), id.String())
}

// WriteWAV writes 16-bit PCM samples to path.
func WriteWAV(path string, samples []int16, rate, channels int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create audio dir failed: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav failed: %w", err)
	}
	enc := wav.NewEncoder(file, rate, 16, channels, 1)
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(v)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("wav write failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("wav close failed: %w", err)
	}
	return file.Close()
}

// classify maps device errors onto the capture error kinds.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission"), strings.Contains(msg, "not permitted"), strings.Contains(msg, "access denied"):
		return verrors.NewPermissionDenied(err)
	case strings.Contains(msg, "invalid input device"), strings.Contains(msg, "invalid device"),
		strings.Contains(msg, "device unavailable"), strings.Contains(msg, "no default"),
		strings.Contains(msg, "no device"):
		return verrors.NewDeviceUnavailable(err)
	default:
		return verrors.NewCaptureError(err)
	}
}
