package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	verrors "vaibvoice/internal/errors"
)

const recentLimit = 3

// Store is the append-only transcription log.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	clock func() time.Time
	log   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and "today".
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithLogger sets the store logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New returns a Store backed by an already migrated database.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, clock: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append inserts a new transcription. When wordCount is nil it is derived
// from text.
func (s *Store) Append(ctx context.Context, audioPath, text string, duration float64, wordCount *int) (Transcription, error) {
	if duration < 0 || math.IsNaN(duration) {
		return Transcription{}, verrors.NewInvalidRequest(fmt.Sprintf("invalid duration: %v", duration))
	}
	words := WordCount(text)
	if wordCount != nil {
		words = *wordCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transcriptions (timestamp, audio_path, text, duration, word_count)
		VALUES (?, ?, ?, ?, ?)
	`, formatTime(now), audioPath, text, duration, words)
	if err != nil {
		return Transcription{}, verrors.NewStorage("insert transcription", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Transcription{}, verrors.NewStorage("insert transcription", err)
	}

	t := Transcription{
		ID:        id,
		Timestamp: now.UTC(),
		AudioPath: audioPath,
		Text:      text,
		Duration:  duration,
		WordCount: words,
	}
	s.log.Debug("transcription stored", slog.Int64("id", id), slog.Int("words", words))
	return t, nil
}

// ListAll returns every transcription, newest first.
func (s *Store) ListAll(ctx context.Context) ([]Transcription, error) {
	return s.list(ctx, -1)
}

// Recent returns at most limit transcriptions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Transcription, error) {
	return s.list(ctx, limit)
}

func (s *Store) list(ctx context.Context, limit int) ([]Transcription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, audio_path, text, duration, word_count
		FROM transcriptions
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, verrors.NewStorage("query transcriptions", err)
	}
	defer rows.Close()

	out := []Transcription{}
	for rows.Next() {
		t, err := scanTranscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, verrors.NewStorage("query transcriptions", err)
	}
	return out, nil
}

// GetByID returns the transcription with the given id or a NOT_FOUND error.
func (s *Store) GetByID(ctx context.Context, id int64) (Transcription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, audio_path, text, duration, word_count
		FROM transcriptions
		WHERE id = ?
	`, id)
	t, err := scanTranscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Transcription{}, verrors.NewNotFound(id)
	}
	return t, err
}

// Stats aggregates totals, today's activity and the three newest entries.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var totalSeconds float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(duration), 0), COALESCE(SUM(word_count), 0)
		FROM transcriptions
	`).Scan(&st.TotalCount, &totalSeconds, &st.TotalWords)
	if err != nil {
		return Stats{}, verrors.NewStorage("aggregate transcriptions", err)
	}
	st.TotalDurationMinutes = int(totalSeconds / 60)
	st.AvgWordsPerMinute = wordsPerMinute(st.TotalWords, totalSeconds)

	// Stored timestamps share one fixed-width UTC layout, so the local
	// calendar day is a plain string range.
	now := s.clock()
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var todaySeconds float64
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(duration), 0), COALESCE(SUM(word_count), 0)
		FROM transcriptions
		WHERE timestamp >= ? AND timestamp < ?
	`, formatTime(dayStart), formatTime(dayEnd)).Scan(&st.Today.Count, &todaySeconds, &st.Today.Words)
	if err != nil {
		return Stats{}, verrors.NewStorage("aggregate today", err)
	}
	st.Today.DurationMinutes = int(todaySeconds / 60)

	recent, err := s.Recent(ctx, recentLimit)
	if err != nil {
		return Stats{}, err
	}
	st.Recent = make([]RecentEntry, 0, len(recent))
	for _, t := range recent {
		st.Recent = append(st.Recent, RecentEntry{
			ID:        t.ID,
			Timestamp: t.Timestamp,
			Text:      t.Text,
			Duration:  t.Duration,
			Words:     t.WordCount,
		})
	}
	return st, nil
}

// Clear deletes every transcription. Ids are not reused afterwards.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcriptions`); err != nil {
		return verrors.NewStorage("clear transcriptions", err)
	}
	s.log.Info("transcription history cleared")
	return nil
}

func wordsPerMinute(words int, seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Round(float64(words) / seconds * 60))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscription(row scanner) (Transcription, error) {
	var t Transcription
	var ts string
	if err := row.Scan(&t.ID, &ts, &t.AudioPath, &t.Text, &t.Duration, &t.WordCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transcription{}, err
		}
		return Transcription{}, verrors.NewStorage("scan transcription", err)
	}
	parsed, err := parseTime(ts)
	if err != nil {
		return Transcription{}, verrors.NewStorage("parse timestamp", err)
	}
	t.Timestamp = parsed
	return t, nil
}
