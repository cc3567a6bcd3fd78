package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vaibvoice/internal/db"
	verrors "vaibvoice/internal/errors"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T, clock *fakeClock) *Store {
	t.Helper()
	sqlDB, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return New(sqlDB, WithClock(clock.Now))
}

func intPtr(v int) *int { return &v }

func TestWordCount(t *testing.T) {
	cases := map[string]int{
		"":                      0,
		"   ":                   0,
		"hello":                 1,
		"hello world":           2,
		"  spaced\tout\nwords ": 3,
	}
	for text, want := range cases {
		require.Equal(t, want, WordCount(text), "WordCount(%q)", text)
	}
}

func TestAppendAndGetByID(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 4, 10, 11, 12, 123456789, time.UTC)}
	s := newTestStore(t, clock)
	ctx := context.Background()

	created, err := s.Append(ctx, "/tmp/a.wav", "hello world", 3.0, nil)
	require.NoError(t, err)
	require.Equal(t, 2, created.WordCount)
	require.NotZero(t, created.ID)

	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.True(t, created.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", created.Timestamp, got.Timestamp)
	require.Equal(t, created.AudioPath, got.AudioPath)
	require.Equal(t, created.Text, got.Text)
	require.Equal(t, created.Duration, got.Duration)
	require.Equal(t, created.WordCount, got.WordCount)
}

func TestAppend_SuppliedWordCountIsKept(t *testing.T) {
	s := newTestStore(t, &fakeClock{now: time.Now()})

	created, err := s.Append(context.Background(), "a.wav", "one two three", 1.5, intPtr(10))
	require.NoError(t, err)
	require.Equal(t, 10, created.WordCount)
}

func TestAppend_EmptyText(t *testing.T) {
	s := newTestStore(t, &fakeClock{now: time.Now()})

	created, err := s.Append(context.Background(), "a.wav", "", 0.5, nil)
	require.NoError(t, err)
	require.Equal(t, 0, created.WordCount)
}

func TestAppend_RejectsNegativeDuration(t *testing.T) {
	s := newTestStore(t, &fakeClock{now: time.Now()})

	_, err := s.Append(context.Background(), "a.wav", "x", -1, nil)
	require.True(t, verrors.Is(err, verrors.ErrInvalidRequest))
}

func TestGetByID_NotFound(t *testing.T) {
	s := newTestStore(t, &fakeClock{now: time.Now()})

	_, err := s.GetByID(context.Background(), 999)
	require.True(t, verrors.Is(err, verrors.ErrNotFound), "got %v", err)
}

func TestListAll_NewestFirst(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	s := newTestStore(t, clock)
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		_, err := s.Append(ctx, text+".wav", text, 1, nil)
		require.NoError(t, err)
		clock.Advance(100 * time.Millisecond)
	}

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "third", all[0].Text)
	require.Equal(t, "second", all[1].Text)
	require.Equal(t, "first", all[2].Text)
}

func TestListAll_Empty(t *testing.T) {
	s := newTestStore(t, &fakeClock{now: time.Now()})

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, all)
	require.Empty(t, all)
}

func TestStats(t *testing.T) {
	today := time.Date(2026, 3, 4, 12, 0, 0, 0, time.Local)
	clock := &fakeClock{now: today.AddDate(0, 0, -2)}
	s := newTestStore(t, clock)
	ctx := context.Background()

	// Two days ago: 120s, 30 words.
	_, err := s.Append(ctx, "old.wav", "old", 120, intPtr(30))
	require.NoError(t, err)

	clock.now = today
	_, err = s.Append(ctx, "a.wav", "one two three", 60, nil)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = s.Append(ctx, "b.wav", "four five", 30, nil)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = s.Append(ctx, "c.wav", "six", 30, nil)
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)

	require.Equal(t, 4, st.TotalCount)
	require.Equal(t, 4, st.TotalDurationMinutes) // 240s
	require.Equal(t, 36, st.TotalWords)
	require.Equal(t, 9, st.AvgWordsPerMinute) // 36 / 240 * 60

	require.Equal(t, 3, st.Today.Count)
	require.Equal(t, 2, st.Today.DurationMinutes) // 120s
	require.Equal(t, 6, st.Today.Words)

	require.Len(t, st.Recent, 3)
	require.Equal(t, "six", st.Recent[0].Text)
	require.Equal(t, 1, st.Recent[0].Words)
	require.Equal(t, "one two three", st.Recent[2].Text)
}

func TestStats_TotalWordsMatchesSum(t *testing.T) {
	s := newTestStore(t, &fakeClock{now: time.Now()})
	ctx := context.Background()

	texts := []string{"a b c", "", "d e", "f"}
	for _, text := range texts {
		_, err := s.Append(ctx, "x.wav", text, 2, nil)
		require.NoError(t, err)
	}

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	sum := 0
	for _, tr := range all {
		sum += tr.WordCount
	}

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, sum, st.TotalWords)
}

func TestStats_ZeroDuration(t *testing.T) {
	s := newTestStore(t, &fakeClock{now: time.Now()})
	ctx := context.Background()

	_, err := s.Append(ctx, "x.wav", "some words here", 0, nil)
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, st.TotalWords)
	require.Equal(t, 0, st.AvgWordsPerMinute)
}

func TestStats_Empty(t *testing.T) {
	s := newTestStore(t, &fakeClock{now: time.Now()})

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, st.TotalCount)
	require.Equal(t, 0, st.AvgWordsPerMinute)
	require.NotNil(t, st.Recent)
	require.Empty(t, st.Recent)
}

func TestClear(t *testing.T) {
	s := newTestStore(t, &fakeClock{now: time.Now()})
	ctx := context.Background()

	first, err := s.Append(ctx, "x.wav", "hi", 1, nil)
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	next, err := s.Append(ctx, "y.wav", "again", 1, nil)
	require.NoError(t, err)
	require.Greater(t, next.ID, first.ID)
}
