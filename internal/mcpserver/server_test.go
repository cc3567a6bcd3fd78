package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"vaibvoice/internal/db"
	"vaibvoice/internal/history"
)

func newHandlers(t *testing.T) (*Handlers, *history.Store) {
	t.Helper()
	sqlDB, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	store := history.New(sqlDB)
	return &Handlers{history: store}, store
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, r.Content)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &out))
	return out
}

func TestHandleList(t *testing.T) {
	h, store := newHandlers(t)
	ctx := context.Background()
	for _, text := range []string{"one", "two words", "three more words"} {
		_, err := store.Append(ctx, "x.wav", text, 1, nil)
		require.NoError(t, err)
	}

	r, err := h.HandleList(ctx, makeRequest(map[string]any{"limit": 2}))
	require.NoError(t, err)
	require.False(t, r.IsError)
	out := resultText(t, r)
	require.EqualValues(t, 2, out["count"])
	items := out["items"].([]any)
	require.Equal(t, "three more words", items[0].(map[string]any)["text"])

	r, err = h.HandleList(ctx, makeRequest(nil))
	require.NoError(t, err)
	require.EqualValues(t, 3, resultText(t, r)["count"])

	r, err = h.HandleList(ctx, makeRequest(map[string]any{"limit": 0}))
	require.NoError(t, err)
	require.True(t, r.IsError)
}

func TestHandleGet(t *testing.T) {
	h, store := newHandlers(t)
	ctx := context.Background()
	created, err := store.Append(ctx, "x.wav", "hello world", 2.5, nil)
	require.NoError(t, err)

	r, err := h.HandleGet(ctx, makeRequest(map[string]any{"id": created.ID}))
	require.NoError(t, err)
	require.False(t, r.IsError)
	out := resultText(t, r)
	require.Equal(t, "hello world", out["text"])
	require.EqualValues(t, 2, out["word_count"])

	r, err = h.HandleGet(ctx, makeRequest(map[string]any{"id": 424242}))
	require.NoError(t, err)
	require.True(t, r.IsError)
	errObj := resultText(t, r)["error"].(map[string]any)
	require.Equal(t, "NOT_FOUND", errObj["code"])

	r, err = h.HandleGet(ctx, makeRequest(map[string]any{}))
	require.NoError(t, err)
	require.True(t, r.IsError)
	require.Equal(t, "INVALID_REQUEST", resultText(t, r)["error"].(map[string]any)["code"])
}

func TestHandleStats(t *testing.T) {
	h, store := newHandlers(t)
	ctx := context.Background()
	_, err := store.Append(ctx, "x.wav", "hello world", 60, nil)
	require.NoError(t, err)

	r, err := h.HandleStats(ctx, makeRequest(nil))
	require.NoError(t, err)
	out := resultText(t, r)
	require.EqualValues(t, 1, out["totalTranscriptions"])
	require.EqualValues(t, 1, out["totalDuration"])
	require.EqualValues(t, 2, out["avgWordsPerMinute"])
}

func TestNewServerRegistersTools(t *testing.T) {
	h, _ := newHandlers(t)
	s := NewServer(h.history, "test")
	require.NotNil(t, s)
	tools := s.ListTools()
	for _, name := range []string{"transcription_list", "transcription_get", "transcription_stats"} {
		require.Contains(t, tools, name)
	}
}
