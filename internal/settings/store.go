package settings

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync"

	verrors "vaibvoice/internal/errors"
)

// Store persists the settings singleton (row id 1) and is the only writer.
// It caches the last read or written value and serves it as a Provider.
type Store struct {
	db       *sql.DB
	defaults Settings
	log      *slog.Logger

	// writeMu orders every database access that ends in remember, so an
	// older row can never overwrite a newer one in the cache.
	writeMu sync.Mutex

	mu     sync.RWMutex
	cached *Settings
}

// NewStore returns a Store that creates the row from defaults when absent.
func NewStore(db *sql.DB, defaults Settings, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, defaults: defaults, log: log}
}

// Defaults returns the values Reset restores.
func (s *Store) Defaults() Settings {
	return s.defaults
}

// Current implements Provider from the cache, reading through on first use.
func (s *Store) Current(ctx context.Context) (Settings, error) {
	s.mu.RLock()
	if s.cached != nil {
		cur := *s.cached
		s.mu.RUnlock()
		return cur, nil
	}
	s.mu.RUnlock()
	return s.Get(ctx)
}

// Get reads the settings row, inserting the defaults when it does not exist.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) (Settings, error) {
	cur, err := s.read(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Info("settings row missing, creating defaults")
		if err := s.write(ctx, s.defaults); err != nil {
			return Settings{}, err
		}
		cur = s.defaults
	} else if err != nil {
		return Settings{}, err
	}
	s.remember(cur)
	return cur, nil
}

// Update applies a partial change and persists the result.
func (s *Store) Update(ctx context.Context, u Update) (Settings, error) {
	if err := validate(u); err != nil {
		return Settings{}, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	cur, err := s.load(ctx)
	if err != nil {
		return Settings{}, err
	}
	next := u.Apply(cur)
	if err := s.store(ctx, next); err != nil {
		return Settings{}, err
	}
	return next, nil
}

// Save replaces the stored settings.
func (s *Store) Save(ctx context.Context, next Settings) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.store(ctx, next)
}

func (s *Store) store(ctx context.Context, next Settings) error {
	if err := s.write(ctx, next); err != nil {
		return err
	}
	s.remember(next)
	return nil
}

// Reset restores the defaults.
func (s *Store) Reset(ctx context.Context) (Settings, error) {
	if err := s.Save(ctx, s.defaults); err != nil {
		return Settings{}, err
	}
	s.log.Info("settings reset to defaults")
	return s.defaults, nil
}

func (s *Store) remember(v Settings) {
	s.mu.Lock()
	s.cached = &v
	s.mu.Unlock()
}

func (s *Store) read(ctx context.Context) (Settings, error) {
	var st Settings
	var apiKey, language sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT record_key, openai_api_key, transcription_model, transcription_language,
		       llm_model, start_sound, end_sound
		FROM settings
		WHERE id = 1
	`).Scan(&st.RecordKey, &apiKey, &st.TranscriptionModel, &language,
		&st.LLMModel, &st.StartSound, &st.EndSound)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, err
	}
	if err != nil {
		return Settings{}, verrors.NewStorage("read settings", err)
	}
	if apiKey.Valid {
		st.OpenAIAPIKey = &apiKey.String
	}
	if language.Valid {
		st.TranscriptionLanguage = &language.String
	}
	return st, nil
}

func (s *Store) write(ctx context.Context, st Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, record_key, openai_api_key, transcription_model,
		                      transcription_language, llm_model, start_sound, end_sound)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  record_key = excluded.record_key,
		  openai_api_key = excluded.openai_api_key,
		  transcription_model = excluded.transcription_model,
		  transcription_language = excluded.transcription_language,
		  llm_model = excluded.llm_model,
		  start_sound = excluded.start_sound,
		  end_sound = excluded.end_sound
	`, st.RecordKey, nullable(st.OpenAIAPIKey), st.TranscriptionModel,
		nullable(st.TranscriptionLanguage), st.LLMModel, st.StartSound, st.EndSound)
	if err != nil {
		return verrors.NewStorage("write settings", err)
	}
	return nil
}

func validate(u Update) error {
	required := map[string]*string{
		"record_key":          u.RecordKey,
		"transcription_model": u.TranscriptionModel,
		"llm_model":           u.LLMModel,
	}
	for name, v := range required {
		if v != nil && strings.TrimSpace(*v) == "" {
			return verrors.NewInvalidRequest(name + " must not be empty")
		}
	}
	return nil
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
