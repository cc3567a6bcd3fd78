// Package api exposes transcription history, statistics and settings over a
// local HTTP API and optionally serves the bundled GUI.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vaibvoice/internal/config"
	"vaibvoice/internal/history"
	"vaibvoice/internal/settings"
)

// HistoryStore is the read side of the transcription log plus bulk clear.
type HistoryStore interface {
	ListAll(ctx context.Context) ([]history.Transcription, error)
	GetByID(ctx context.Context, id int64) (history.Transcription, error)
	Stats(ctx context.Context) (history.Stats, error)
	Clear(ctx context.Context) error
}

// SettingsStore reads and writes the settings row.
type SettingsStore interface {
	Get(ctx context.Context) (settings.Settings, error)
	Update(ctx context.Context, u settings.Update) (settings.Settings, error)
	Reset(ctx context.Context) (settings.Settings, error)
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg config.Config, hist HistoryStore, store SettingsStore, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery(), cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(cfg),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := &API{history: hist, settings: store, logger: logger}
	api.registerRoutes(r.Group("/api"))

	if cfg.GUIDir != "" {
		serveGUI(r, cfg.GUIDir)
	}
	return r
}

// serveGUI serves the single-page GUI from dir. Unknown non-API paths fall
// back to index.html so client-side routes resolve.
func serveGUI(r *gin.Engine, dir string) {
	index := filepath.Join(dir, "index.html")
	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
			return
		}
		file := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+path)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	})
}

func allowedOrigins(cfg config.Config) []string {
	return []string{
		"http://" + cfg.Addr(),
		"http://localhost:8000",
		"http://127.0.0.1:8000",
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
		)
	}
}
