package history

import (
	"strings"
	"time"
)

// TimeLayout is the canonical stored form of Transcription.Timestamp:
// RFC 3339 in UTC with a fixed nine-digit fraction, so string order
// matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Transcription is one completed dictation cycle.
type Transcription struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AudioPath string    `json:"audio_path"`
	Text      string    `json:"text"`
	Duration  float64   `json:"duration"`
	WordCount int       `json:"word_count"`
}

// DayStats aggregates the transcriptions of one calendar day.
type DayStats struct {
	Count           int `json:"transcriptions"`
	DurationMinutes int `json:"duration"`
	Words           int `json:"words"`
}

// RecentEntry is the condensed form of a transcription shown in Stats.
type RecentEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Duration  float64   `json:"duration"`
	Words     int       `json:"words"`
}

// Stats is the aggregate view over the whole history.
type Stats struct {
	TotalCount           int           `json:"totalTranscriptions"`
	TotalDurationMinutes int           `json:"totalDuration"`
	TotalWords           int           `json:"totalWords"`
	AvgWordsPerMinute    int           `json:"avgWordsPerMinute"`
	Today                DayStats      `json:"todayStats"`
	Recent               []RecentEntry `json:"recentTranscriptions"`
}

// WordCount returns the number of whitespace-delimited tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
