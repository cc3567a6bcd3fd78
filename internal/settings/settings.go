package settings

import (
	"context"
	"os"
)

const (
	DefaultRecordKey          = "ctrl"
	DefaultTranscriptionModel = "gpt-4o-transcribe"
	DefaultLLMModel           = "gpt-4o-mini"
	DefaultStartSound         = "beep.mp3"
	DefaultEndSound           = "stop.mp3"

	// NoSound disables a cue.
	NoSound = "none"
)

// Settings are the user-editable preferences persisted in the database.
type Settings struct {
	RecordKey             string  `json:"record_key"`
	OpenAIAPIKey          *string `json:"openai_api_key"`
	TranscriptionModel    string  `json:"transcription_model"`
	TranscriptionLanguage *string `json:"transcription_language"`
	LLMModel              string  `json:"llm_model"`
	StartSound            string  `json:"start_sound"`
	EndSound              string  `json:"end_sound"`
}

// APIKey returns the API key or "" when none is configured.
func (s Settings) APIKey() string {
	if s.OpenAIAPIKey == nil {
		return ""
	}
	return *s.OpenAIAPIKey
}

// Language returns the transcription language or "" for auto-detection.
func (s Settings) Language() string {
	if s.TranscriptionLanguage == nil {
		return ""
	}
	return *s.TranscriptionLanguage
}

// Update is a partial change. Nil fields are left unchanged.
type Update struct {
	RecordKey             *string `json:"record_key"`
	OpenAIAPIKey          *string `json:"openai_api_key"`
	TranscriptionModel    *string `json:"transcription_model"`
	TranscriptionLanguage *string `json:"transcription_language"`
	LLMModel              *string `json:"llm_model"`
	StartSound            *string `json:"start_sound"`
	EndSound              *string `json:"end_sound"`
}

// Apply returns s with every non-nil field of u applied.
func (u Update) Apply(s Settings) Settings {
	if u.RecordKey != nil {
		s.RecordKey = *u.RecordKey
	}
	if u.OpenAIAPIKey != nil {
		s.OpenAIAPIKey = clone(u.OpenAIAPIKey)
	}
	if u.TranscriptionModel != nil {
		s.TranscriptionModel = *u.TranscriptionModel
	}
	if u.TranscriptionLanguage != nil {
		s.TranscriptionLanguage = clone(u.TranscriptionLanguage)
	}
	if u.LLMModel != nil {
		s.LLMModel = *u.LLMModel
	}
	if u.StartSound != nil {
		s.StartSound = *u.StartSound
	}
	if u.EndSound != nil {
		s.EndSound = *u.EndSound
	}
	return s
}

// Provider hands out the current settings to pipeline components.
type Provider interface {
	Current(ctx context.Context) (Settings, error)
}

// Static is a Provider that always returns the same settings.
type Static Settings

// Current implements Provider.
func (s Static) Current(context.Context) (Settings, error) {
	return Settings(s), nil
}

// Defaults returns the compiled-in defaults.
func Defaults() Settings {
	return Settings{
		RecordKey:          DefaultRecordKey,
		TranscriptionModel: DefaultTranscriptionModel,
		LLMModel:           DefaultLLMModel,
		StartSound:         DefaultStartSound,
		EndSound:           DefaultEndSound,
	}
}

// DefaultsFromEnv returns Defaults seeded from RECORD_KEY, OPENAI_API_KEY,
// WHISPER_MODEL, TRANSCRIPTION_LANGUAGE and LLM_MODEL.
func DefaultsFromEnv() Settings {
	return defaultsFrom(os.Getenv)
}

func defaultsFrom(getenv func(string) string) Settings {
	s := Defaults()
	if v := getenv("RECORD_KEY"); v != "" {
		s.RecordKey = v
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		s.OpenAIAPIKey = &v
	}
	if v := getenv("WHISPER_MODEL"); v != "" {
		s.TranscriptionModel = v
	}
	if v := getenv("TRANSCRIPTION_LANGUAGE"); v != "" {
		s.TranscriptionLanguage = &v
	}
	if v := getenv("LLM_MODEL"); v != "" {
		s.LLMModel = v
	}
	return s
}

func clone(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
