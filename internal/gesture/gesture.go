// Package gesture turns press-and-hold key edges into capture runs and
// drives the transcription pipeline for each completed capture.
package gesture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vaibvoice/internal/config"
	"vaibvoice/internal/history"
	"vaibvoice/internal/hotkey"
	"vaibvoice/internal/record"
	"vaibvoice/internal/settings"
)

// State is the gesture state.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateCapturing:
		return "capturing"
	case StateProcessing:
		return "processing"
	default:
		return "idle"
	}
}

// Recorder is the microphone capture session.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (record.Result, error)
}

// Transcriber converts an audio file to text. On failure it returns "".
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Formatter rewrites a transcript. It always returns usable text.
type Formatter interface {
	Format(ctx context.Context, raw string) (string, error)
}

// Archive persists finished transcriptions.
type Archive interface {
	Append(ctx context.Context, audioPath, text string, duration float64, wordCount *int) (history.Transcription, error)
}

// Injector delivers text to the focused application.
type Injector interface {
	ReplaceFocusedText(ctx context.Context, text string) error
	TypeIncrementally(ctx context.Context, text string, delay time.Duration) error
}

// Notifier surfaces failures to the user.
type Notifier interface {
	Notify(message string)
}

// Deps are the pipeline stages.
type Deps struct {
	Recorder    Recorder
	Transcriber Transcriber
	Formatter   Formatter
	Archive     Archive
	Injector    Injector
	Notifier    Notifier
}

// Options selects how text is injected.
type Options struct {
	InjectMode string
	TypeDelay  time.Duration
	Debug      bool
}

// Gesture is the Idle -> Capturing -> Processing -> Idle state machine.
// At most one pipeline run is active at a time; edges that arrive while a
// run is in progress are dropped, not queued.
type Gesture struct {
	deps     Deps
	settings settings.Provider
	opts     Options
	log      *slog.Logger

	mu    sync.Mutex
	state State
	// captureKey is the binding that opened the current capture; its
	// release ends the capture even if the record key changed meanwhile.
	captureKey string
	badKey     string
	running    sync.WaitGroup
}

// New creates a Gesture in the Idle state.
func New(deps Deps, provider settings.Provider, opts Options, log *slog.Logger) *Gesture {
	if log == nil {
		log = slog.Default()
	}
	if opts.InjectMode == "" {
		opts.InjectMode = config.InjectPaste
	}
	return &Gesture{deps: deps, settings: provider, opts: opts, log: log}
}

// State returns the current state.
func (g *Gesture) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Wait blocks until the in-flight pipeline run, if any, has finished.
func (g *Gesture) Wait() {
	g.running.Wait()
}

// Run consumes edges until the channel closes or ctx is cancelled. A capture
// still open at that point is stopped and discarded; a pipeline run already
// in progress is allowed to finish.
func (g *Gesture) Run(ctx context.Context, edges <-chan hotkey.Edge) {
	defer g.Wait()
	defer g.abandon()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-edges:
			if !ok {
				return
			}
			g.HandleEdge(ctx, e)
		}
	}
}

// HandleEdge applies one key edge.
func (g *Gesture) HandleEdge(ctx context.Context, e hotkey.Edge) {
	binding := g.activeCaptureKey()
	if binding == "" {
		binding = g.recordKey(ctx)
	}
	if !hotkey.Matches(binding, e.Key) {
		return
	}
	if e.Down {
		g.keyDown(ctx, binding)
	} else {
		g.keyUp(ctx)
	}
}

func (g *Gesture) activeCaptureKey() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateCapturing {
		return ""
	}
	return g.captureKey
}

func (g *Gesture) recordKey(ctx context.Context) string {
	s, err := g.settings.Current(ctx)
	if err != nil {
		g.log.Warn("read settings failed, using default record key", slog.Any("error", err))
		return settings.DefaultRecordKey
	}
	if !hotkey.Valid(s.RecordKey) {
		g.mu.Lock()
		if g.badKey != s.RecordKey {
			g.badKey = s.RecordKey
			g.log.Warn("invalid record key, using default", slog.String("key", s.RecordKey), slog.String("default", settings.DefaultRecordKey))
		}
		g.mu.Unlock()
		return settings.DefaultRecordKey
	}
	return s.RecordKey
}

func (g *Gesture) keyDown(ctx context.Context, binding string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateIdle {
		if g.opts.Debug {
			g.log.Debug("key down ignored", slog.String("state", g.state.String()))
		}
		return
	}
	if err := g.deps.Recorder.Start(ctx); err != nil {
		g.fail("capture", err)
		return
	}
	g.state = StateCapturing
	g.captureKey = binding
	g.log.Info("recording started", slog.String("key", binding))
}

func (g *Gesture) keyUp(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateCapturing {
		return
	}
	g.captureKey = ""
	res, err := g.deps.Recorder.Stop(ctx)
	if err != nil {
		g.state = StateIdle
		g.fail("capture", err)
		return
	}
	if res.Empty {
		g.state = StateIdle
		g.log.Info("no audio was recorded", slog.Float64("duration", res.Duration))
		return
	}

	g.state = StateProcessing
	g.log.Info("recording stopped", slog.String("file", res.Path), slog.Float64("duration", res.Duration))

	runCtx := context.WithoutCancel(ctx)
	g.running.Add(1)
	go func() {
		defer g.running.Done()
		defer g.setState(StateIdle)
		g.process(runCtx, res)
	}()
}

func (g *Gesture) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

func (g *Gesture) abandon() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateCapturing {
		return
	}
	g.state = StateIdle
	g.captureKey = ""
	if _, err := g.deps.Recorder.Stop(context.Background()); err != nil {
		g.log.Warn("stop abandoned capture failed", slog.Any("error", err))
		return
	}
	g.log.Info("capture abandoned on shutdown")
}

// process runs transcribe, format, append and inject. Stage failures are
// reported and the run continues with the best text available.
func (g *Gesture) process(ctx context.Context, res record.Result) {
	start := time.Now()

	raw, err := g.deps.Transcriber.Transcribe(ctx, res.Path)
	if err != nil {
		g.fail("transcribe", err)
		raw = ""
	}

	typeMode := g.opts.InjectMode == config.InjectType
	if typeMode && raw != "" {
		if err := g.deps.Injector.TypeIncrementally(ctx, raw, g.opts.TypeDelay); err != nil {
			g.fail("inject", err)
		}
	}

	text, err := g.deps.Formatter.Format(ctx, raw)
	if err != nil {
		g.fail("format", err)
	}

	if t, err := g.deps.Archive.Append(ctx, res.Path, text, res.Duration, nil); err != nil {
		g.fail("store", err)
	} else {
		g.log.Info("transcription saved", slog.Int64("id", t.ID), slog.Int("words", t.WordCount))
	}

	if !typeMode {
		if text == "" {
			g.log.Info("nothing to inject")
		} else if err := g.deps.Injector.ReplaceFocusedText(ctx, text); err != nil {
			g.fail("inject", err)
		}
	}

	g.log.Info("pipeline finished", slog.Duration("elapsed", time.Since(start)))
}

func (g *Gesture) fail(stage string, err error) {
	g.log.Error("pipeline stage failed", slog.String("stage", stage), slog.Any("error", err))
	if g.deps.Notifier != nil {
		g.deps.Notifier.Notify(fmt.Sprintf("%s failed: %v", stage, err))
	}
}
