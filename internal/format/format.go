// Package format rewrites raw transcripts with a chat-completion model.
package format

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"vaibvoice/internal/config"
	verrors "vaibvoice/internal/errors"
	"vaibvoice/internal/settings"
)

const systemPrompt = "You are a helpful assistant that formats text appropriately based on its content and any formatting instructions provided. Always use plain text only, never use markdown or any special formatting characters. Only use line breaks where appropriate."

const userPrompt = `Please format the following transcription appropriately.
Detect if it's an email, a prompt, or a general message, and format it accordingly.
If it starts with instructions like "This is an email..." or "Format this as...",
follow those instructions for formatting.

IMPORTANT: Format the text as plain text only. DO NOT use markdown formatting.
Only use line breaks where appropriate. No special formatting characters.

IMPORTANT: If the user provides a specific instruction, for example "this is an email" or some prompt instruction, remove it,
because your duty is just to convert a voice prompt message to a formatted text useful to be sent.

Transcription: %s

Formatted version:`

const maxTokens = 12000

// Formatter calls the configured LLM model to tidy up a transcript.
type Formatter struct {
	cfg        config.Config
	httpClient *http.Client
	settings   settings.Provider
	log        *slog.Logger
}

// New creates a Formatter.
func New(cfg config.Config, httpClient *http.Client, provider settings.Provider, log *slog.Logger) *Formatter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Formatter{cfg: cfg, httpClient: httpClient, settings: provider, log: log}
}

// Format returns the reformatted text. Empty or whitespace-only input is
// returned unchanged without calling the model. On any failure the raw text
// is returned together with a FORMATTING_FAILED error, so the returned string
// is always usable.
func (f *Formatter) Format(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return raw, nil
	}
	out, err := f.complete(ctx, raw)
	if err != nil {
		verr := verrors.NewFormattingFailed(err)
		f.log.Warn("formatting failed, using raw transcript", slog.String("code", string(verr.Code)), slog.Any("error", err))
		return raw, verr
	}
	return out, nil
}

func (f *Formatter) complete(ctx context.Context, raw string) (string, error) {
	s, err := f.settings.Current(ctx)
	if err != nil {
		return "", err
	}
	if s.APIKey() == "" {
		return "", errors.New("OpenAI API key is not configured")
	}

	oc := openai.DefaultConfig(s.APIKey())
	if f.cfg.OpenAIBaseURL != "" {
		oc.BaseURL = f.cfg.OpenAIBaseURL
	}
	oc.HTTPClient = f.httpClient
	client := openai.NewClientWithConfig(oc)

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout())
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.LLMModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPrompt, raw)},
		},
		// Temperature is omitted from the request body when zero.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return PlainText(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}
