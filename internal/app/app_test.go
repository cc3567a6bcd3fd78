package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vaibvoice/internal/config"
	"vaibvoice/internal/record"
)

func testRuntime(t *testing.T, baseURL string) *Runtime {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "history.db")
	cfg.AudioDir = t.TempDir()
	cfg.OpenAIBaseURL = baseURL
	cfg.RequestTimeout = 5
	cfg.MaxRetry = 1

	log := NewLogger(cfg, io.Discard)
	rt, err := Open(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })

	s := rt.Settings.Defaults()
	key := "sk-test"
	s.OpenAIAPIKey = &key
	s.TranscriptionModel = "gpt-4o-transcribe"
	require.NoError(t, rt.Settings.Save(context.Background(), s))
	return rt
}

// openAIServer answers the streaming transcription and chat endpoints.
func openAIServer(t *testing.T, transcript, formatted string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio/transcriptions":
			w.Header().Set("Content-Type", "text/event-stream")
			delta, _ := json.Marshal(map[string]string{"type": "transcript.text.delta", "delta": transcript})
			fmt.Fprintf(w, "data: %s\n\n", delta)
			fmt.Fprint(w, "data: {\"type\":\"transcript.text.done\"}\n\n")
		case "/chat/completions":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": formatted},
					"finish_reason": "stop",
				}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeSecondOfSilence(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "clip.wav")
	require.NoError(t, record.WriteWAV(path, make([]int16, 16000), 16000, 1))
	return path
}

func TestRunFileModeWritesTextAndHistory(t *testing.T) {
	srv := openAIServer(t, "hello world", "Hello world.")
	rt := testRuntime(t, srv.URL)
	ctx := context.Background()

	input := writeSecondOfSilence(t, t.TempDir())
	out := filepath.Join(t.TempDir(), "out.txt")

	written, err := RunFileMode(ctx, rt, input, out)
	require.NoError(t, err)
	require.Equal(t, out, written)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "Hello world.", string(b))

	items, err := rt.History.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Hello world.", items[0].Text)
	require.Equal(t, input, items[0].AudioPath)
	require.InDelta(t, 1.0, items[0].Duration, 0.01)
	require.Equal(t, 2, items[0].WordCount)
}

func TestRunFileModeMissingInput(t *testing.T) {
	rt := testRuntime(t, "http://127.0.0.1:1")
	_, err := RunFileMode(context.Background(), rt, filepath.Join(t.TempDir(), "nope.wav"), "")
	require.Error(t, err)

	items, err := rt.History.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestRunFileModeTranscriptionFailureIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	t.Cleanup(srv.Close)
	rt := testRuntime(t, srv.URL)
	ctx := context.Background()

	input := writeSecondOfSilence(t, t.TempDir())
	out := filepath.Join(t.TempDir(), "out.txt")

	_, err := RunFileMode(ctx, rt, input, out)
	require.Error(t, err)
	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr))

	items, err := rt.History.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "", items[0].Text)
	require.Zero(t, items[0].WordCount)
	require.Equal(t, input, items[0].AudioPath)
	require.InDelta(t, 1.0, items[0].Duration, 0.01)
}

func TestCleanupOldTempFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"upload_abc.ogg", "recording_20260101_000000_x.wav", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "upload_dir"), 0755))

	cleanupOldTempFiles(dir, NewLogger(config.DefaultConfig(), io.Discard))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{"recording_20260101_000000_x.wav", "notes.txt", "upload_dir"}, names)

	// A missing directory is not an error.
	cleanupOldTempFiles(filepath.Join(dir, "missing"), NewLogger(config.DefaultConfig(), io.Discard))
}

func TestAudioDuration(t *testing.T) {
	dir := t.TempDir()
	require.InDelta(t, 1.0, audioDuration(writeSecondOfSilence(t, dir)), 0.01)

	mp3 := filepath.Join(dir, "clip.mp3")
	require.NoError(t, os.WriteFile(mp3, []byte("not audio"), 0644))
	require.Zero(t, audioDuration(mp3))
	require.Zero(t, audioDuration(filepath.Join(dir, "missing.wav")))
}

func TestDefaultOutputPath(t *testing.T) {
	require.Equal(t, "meeting.txt", defaultOutputPath("/tmp/rec/meeting.m4a"))
}

func TestNewHTTPClient(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VerifySSL = false
	cfg.EnableHTTP2 = false
	c := newHTTPClient(cfg)
	require.Equal(t, cfg.Timeout(), c.Timeout)
	tr := c.Transport.(*http.Transport)
	require.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestRunServeStopsOnCancel(t *testing.T) {
	rt := testRuntime(t, "http://127.0.0.1:1")
	rt.Config.APIPort = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunServe(ctx, rt) }()

	url := "http://" + rt.Config.Addr() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}
