// Package app wires the stores, clients and devices for each run mode.
package app

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"golang.org/x/net/http2"

	"vaibvoice/internal/api"
	"vaibvoice/internal/asr"
	"vaibvoice/internal/config"
	"vaibvoice/internal/db"
	"vaibvoice/internal/format"
	"vaibvoice/internal/gesture"
	"vaibvoice/internal/history"
	"vaibvoice/internal/hotkey"
	"vaibvoice/internal/inject"
	"vaibvoice/internal/notify"
	"vaibvoice/internal/record"
	"vaibvoice/internal/server"
	"vaibvoice/internal/settings"
	"vaibvoice/internal/sound"
)

// Runtime holds the stores shared by every command.
type Runtime struct {
	Config   config.Config
	DB       *sql.DB
	History  *history.Store
	Settings *settings.Store
	Log      *slog.Logger
}

// NewLogger returns a text logger at the configured level.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	lvl, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Open opens the history database and the stores on top of it.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (*Runtime, error) {
	if log == nil {
		log = slog.Default()
	}
	sqlDB, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database '%s': %w", cfg.DBPath, err)
	}
	return &Runtime{
		Config:   cfg,
		DB:       sqlDB,
		History:  history.New(sqlDB, history.WithLogger(component(log, "history"))),
		Settings: settings.NewStore(sqlDB, settings.DefaultsFromEnv(), component(log, "settings")),
		Log:      log,
	}, nil
}

// Close closes the database.
func (r *Runtime) Close() error {
	return r.DB.Close()
}

// RunRecordMode installs the keyboard hook and runs the dictation loop and
// the local API until ctx is cancelled.
func RunRecordMode(ctx context.Context, rt *Runtime) error {
	cfg := rt.Config
	log := rt.Log
	cleanupOldTempFiles(cfg.AudioDir, log)

	httpClient := newHTTPClient(cfg)
	injector, err := inject.NewSystem(component(log, "inject"))
	if err != nil {
		return err
	}
	player := sound.New(cfg.SoundDir, rt.Settings, component(log, "sound"))
	recorder := record.New(record.Options{
		Dir:             cfg.AudioDir,
		SampleRate:      cfg.SAMPLING_RATE,
		Channels:        cfg.Channels,
		FramesPerBuffer: cfg.FramesPerBuffer,
		Debug:           cfg.RECORD_DEBUG,
	}, record.PortAudio{}, player, component(log, "record"))

	g := gesture.New(gesture.Deps{
		Recorder:    recorder,
		Transcriber: asr.New(cfg, httpClient, rt.Settings, component(log, "asr")),
		Formatter:   format.New(cfg, httpClient, rt.Settings, component(log, "format")),
		Archive:     rt.History,
		Injector:    injector,
		Notifier:    notify.New(cfg.Notification, component(log, "notify")),
	}, rt.Settings, gesture.Options{
		InjectMode: cfg.InjectMode,
		TypeDelay:  cfg.TypeDelay(),
		Debug:      cfg.HOTKEY_DEBUG,
	}, component(log, "gesture"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	edges, err := hotkey.Listen(ctx, component(log, "hotkey"), cfg.HOTKEY_DEBUG)
	if err != nil {
		return fmt.Errorf("install keyboard hook: %w", err)
	}

	srvErr := make(chan error, 1)
	go func() {
		err := runAPI(ctx, rt)
		if err != nil {
			cancel()
		}
		srvErr <- err
	}()

	s, err := rt.Settings.Current(ctx)
	if err == nil {
		log.Info("ready, hold the record key to dictate", slog.String("record_key", s.RecordKey), slog.String("api", "http://"+cfg.Addr()))
	}
	g.Run(ctx, edges)
	cancel()
	return <-srvErr
}

// RunServe runs only the local API.
func RunServe(ctx context.Context, rt *Runtime) error {
	return runAPI(ctx, rt)
}

func runAPI(ctx context.Context, rt *Runtime) error {
	log := component(rt.Log, "api")
	handler := api.NewRouter(rt.Config, rt.History, rt.Settings, log)
	if err := server.New(rt.Config.Addr(), handler, log).Run(ctx); err != nil {
		return fmt.Errorf("local api: %w", err)
	}
	return nil
}

// RunFileMode transcribes and formats an existing audio file, records it in
// history and writes the text next to it (or to outputPath). The written
// path is returned.
func RunFileMode(ctx context.Context, rt *Runtime, inputPath, outputPath string) (string, error) {
	cfg := rt.Config
	log := rt.Log
	cleanupOldTempFiles(cfg.AudioDir, log)

	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("file '%s' stat failed: %w", inputPath, err)
	}

	httpClient := newHTTPClient(cfg)
	duration := audioDuration(inputPath)
	raw, err := asr.New(cfg, httpClient, rt.Settings, component(log, "asr")).Transcribe(ctx, inputPath)
	if err != nil {
		// The failed attempt is still recorded, as in record mode; no
		// output file is written.
		if _, serr := rt.History.Append(ctx, inputPath, "", duration, nil); serr != nil {
			log.Error("store transcription failed", slog.Any("error", serr))
		}
		return "", err
	}
	text, err := format.New(cfg, httpClient, rt.Settings, component(log, "format")).Format(ctx, raw)
	if err != nil {
		log.Warn("formatting failed, keeping raw transcript", slog.Any("error", err))
	}

	if _, err := rt.History.Append(ctx, inputPath, text, duration, nil); err != nil {
		log.Error("store transcription failed", slog.Any("error", err))
	}

	outPath := outputPath
	if outPath == "" {
		outPath = defaultOutputPath(inputPath)
	}
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return "", err
	}
	return outPath, nil
}

func component(log *slog.Logger, name string) *slog.Logger {
	return log.With(slog.String("component", name))
}

func defaultOutputPath(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(".", base+".txt")
}

// audioDuration reads the length of WAV input; other containers report 0.
func audioDuration(path string) float64 {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return 0
	}
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	d, err := wav.NewDecoder(f).Duration()
	if err != nil {
		return 0
	}
	return d.Seconds()
}

func newHTTPClient(cfg config.Config) *http.Client {
	tr := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !cfg.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.EnableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	return &http.Client{
		Transport: tr,
		Timeout:   cfg.Timeout(),
	}
}

// cleanupOldTempFiles removes converted uploads left behind by a crash.
// Recordings are kept since history rows point at them.
func cleanupOldTempFiles(dir string, log *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("read temp dir failed", slog.String("dir", dir), slog.Any("error", err))
		}
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "upload_") {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			log.Warn("remove temp file failed", slog.String("path", path), slog.Any("error", err))
		} else {
			log.Debug("removed temp file", slog.String("path", path))
		}
	}
}
