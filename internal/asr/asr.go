package asr

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/tmaxmax/go-sse"

	"vaibvoice/internal/audio/ffmpeg"
	"vaibvoice/internal/config"
	verrors "vaibvoice/internal/errors"
	"vaibvoice/internal/jsonpath"
	"vaibvoice/internal/settings"
)

const (
	eventDelta = "transcript.text.delta"
	eventDone  = "transcript.text.done"
)

// RetryExhaustedError is returned when every upload attempt failed.
type RetryExhaustedError struct {
	Attempts int
	MaxRetry int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("exceeded max retries (%d): %v", e.MaxRetry, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}

// Client sends recordings to an OpenAI-compatible speech-to-text endpoint.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	settings   settings.Provider
	log        *slog.Logger
}

// New creates a new ASR client.
func New(cfg config.Config, httpClient *http.Client, provider settings.Provider, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, httpClient: httpClient, settings: provider, log: log}
}

// attemptError carries whether a failed attempt may be retried.
type attemptError struct {
	err       error
	retryable bool
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

// Transcribe uploads the audio and returns the transcript. Every failure is
// a TRANSCRIPTION_FAILED error with an empty transcript.
func (c *Client) Transcribe(ctx context.Context, filePath string) (string, error) {
	s, err := c.settings.Current(ctx)
	if err != nil {
		return "", verrors.NewTranscriptionFailed(err)
	}
	if s.APIKey() == "" {
		return "", verrors.NewTranscriptionFailed(errors.New("OpenAI API key is not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	uploadPath, cleanup, err := c.prepare(ctx, filePath)
	if err != nil {
		return "", verrors.NewTranscriptionFailed(err)
	}
	defer cleanup()

	try := 0
	delay := c.cfg.RetryBaseDelay
	for {
		try++
		text, err := c.attempt(ctx, s, uploadPath)
		if err == nil {
			return text, nil
		}

		var ae *attemptError
		retryable := errors.As(err, &ae) && ae.retryable && ctx.Err() == nil
		if c.cfg.UPLOAD_DEBUG {
			c.log.Debug("upload attempt failed", slog.Int("attempt", try), slog.Bool("retryable", retryable), slog.Any("error", err))
		}
		if !retryable {
			return "", verrors.NewTranscriptionFailed(err)
		}
		if try >= c.cfg.MaxRetry {
			return "", verrors.NewTranscriptionFailed(&RetryExhaustedError{Attempts: try, MaxRetry: c.cfg.MaxRetry, Last: err})
		}
		select {
		case <-ctx.Done():
			return "", verrors.NewTranscriptionFailed(ctx.Err())
		case <-time.After(time.Duration(delay * float64(time.Second))):
		}
		delay *= 2
	}
}

// prepare converts the recording when a non-WAV upload codec is configured.
func (c *Client) prepare(ctx context.Context, filePath string) (string, func(), error) {
	if _, err := os.Stat(filePath); err != nil {
		return "", func() {}, fmt.Errorf("open file error: %w", err)
	}
	if ffmpeg.Passthrough(c.cfg.CODECS) {
		return filePath, func() {}, nil
	}
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	out := filepath.Join(filepath.Dir(filePath), fmt.Sprintf("upload_%s.%s", id, config.ContainerExt(c.cfg.CONTAINER)))
	opts := ffmpeg.Options{
		Codec:      c.cfg.CODECS,
		Channels:   c.cfg.Channels,
		SampleRate: c.cfg.SAMPLING_RATE,
		BitRate:    c.cfg.BIT_RATE,
		Debug:      c.cfg.FFMPEG_DEBUG,
	}
	if err := ffmpeg.Convert(ctx, opts, filePath, out, c.log); err != nil {
		_ = os.Remove(out)
		return "", func() {}, err
	}
	return out, func() { _ = os.Remove(out) }, nil
}

func (c *Client) attempt(ctx context.Context, s settings.Settings, path string) (string, error) {
	if s.TranscriptionModel == openai.Whisper1 {
		return c.transcribeWhole(ctx, s, path)
	}
	return c.transcribeStream(ctx, s, path)
}

// transcribeWhole uses the single-response endpoint of non-streaming models.
func (c *Client) transcribeWhole(ctx context.Context, s settings.Settings, path string) (string, error) {
	oc := openai.DefaultConfig(s.APIKey())
	if c.cfg.OpenAIBaseURL != "" {
		oc.BaseURL = c.cfg.OpenAIBaseURL
	}
	oc.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(oc)

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.TranscriptionModel,
		FilePath: path,
		Language: s.Language(),
	})
	if err != nil {
		return "", &attemptError{err: err, retryable: openAIRetryable(err)}
	}
	return resp.Text, nil
}

func openAIRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// transcribeStream posts with stream=true and concatenates delta events.
func (c *Client) transcribeStream(ctx context.Context, s settings.Settings, path string) (string, error) {
	body, contentType, err := buildForm(path, s)
	if err != nil {
		return "", &attemptError{err: err}
	}

	endpoint := strings.TrimRight(c.cfg.OpenAIBaseURL, "/") + "/audio/transcriptions"
	if c.cfg.UPLOAD_DEBUG {
		c.log.Debug("uploading", slog.String("file", path), slog.String("endpoint", endpoint), slog.String("model", s.TranscriptionModel))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", &attemptError{err: fmt.Errorf("new request error: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.APIKey())
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", "vaibvoice-go-client/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &attemptError{err: fmt.Errorf("request error: %w", err), retryable: true}
	}
	defer resp.Body.Close()
	if c.cfg.UPLOAD_DEBUG {
		c.log.Debug("response headers received", slog.Int("status", resp.StatusCode), slog.Duration("elapsed", time.Since(start)))
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		msg := jsonpath.Lookup(respBody, "error.message", "detail", "message")
		if msg == "" {
			msg = formatResponse(respBody)
		}
		return "", &attemptError{
			err:       fmt.Errorf("status %d: %s", resp.StatusCode, msg),
			retryable: retryableStatus(resp.StatusCode),
		}
	}

	if !isEventStream(resp.Header.Get("Content-Type")) {
		text, err := readWhole(resp.Body)
		if err != nil {
			return "", &attemptError{err: err}
		}
		return text, nil
	}
	text, err := c.readEvents(resp.Body)
	if err != nil {
		return "", &attemptError{err: err}
	}
	return text, nil
}

func isEventStream(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/event-stream")
}

// readWhole handles servers that ignore stream=true and answer with a single
// JSON transcription object.
func readWhole(r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("unexpected response: %s", formatResponse(body))
	}
	text, ok := jsonpath.ExtractByPath(root, "text")
	if !ok {
		return "", fmt.Errorf("response has no text field: %s", formatResponse(body))
	}
	return text, nil
}

// readEvents consumes a server-sent event stream. Delta payloads are
// concatenated in arrival order; the done event is only logged. A stream
// that carries no events at all is an error.
func (c *Client) readEvents(r io.Reader) (string, error) {
	var text strings.Builder
	events := 0
	for ev, err := range sse.Read(r, nil) {
		if err != nil {
			return "", fmt.Errorf("read stream: %w", err)
		}
		payload := strings.TrimSpace(ev.Data)
		if payload == "" {
			continue
		}
		events++
		if payload == "[DONE]" {
			break
		}

		var root interface{}
		if err := json.Unmarshal([]byte(payload), &root); err != nil {
			return "", fmt.Errorf("decode event: %w (%s)", err, formatResponse([]byte(payload)))
		}
		kind, _ := jsonpath.ExtractByPath(root, "type")
		switch kind {
		case eventDelta:
			delta, _ := jsonpath.ExtractByPath(root, "delta")
			text.WriteString(delta)
		case eventDone:
			final, _ := jsonpath.ExtractByPath(root, "text")
			c.log.Debug("transcription done", slog.Int("chars", utf8.RuneCountInString(final)))
		case "error":
			msg, _ := jsonpath.ExtractByPath(root, "error.message")
			return "", fmt.Errorf("stream error: %s", msg)
		}
	}
	if events == 0 {
		return "", errors.New("empty event stream")
	}
	return text.String(), nil
}

func formatResponse(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	const maxBin = 256

	if utf8.Valid(b) {
		s := string(b)
		if len(s) > maxText {
			return fmt.Sprintf("%s... (truncated, total %d bytes)", s[:maxText], len(b))
		}
		return s
	}

	if len(b) > maxBin {
		return fmt.Sprintf("<binary %d bytes, prefix hex: %s...>", len(b), hex.EncodeToString(b[:maxBin]))
	}
	return fmt.Sprintf("<binary %d bytes, hex: %s>", len(b), hex.EncodeToString(b))
}
