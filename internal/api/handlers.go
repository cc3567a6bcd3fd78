package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	verrors "vaibvoice/internal/errors"
	"vaibvoice/internal/settings"
)

type API struct {
	history  HistoryStore
	settings SettingsStore
	logger   *slog.Logger
}

func (api *API) registerRoutes(r *gin.RouterGroup) {
	r.GET("/transcriptions", api.listTranscriptions)
	r.GET("/transcriptions/:id", api.getTranscription)

	r.GET("/stats", api.getStats)

	r.GET("/settings", api.getSettings)
	r.POST("/settings", api.updateSettings)
	r.POST("/settings/reset", api.resetSettings)
}

func (api *API) listTranscriptions(c *gin.Context) {
	items, err := api.history.ListAll(c.Request.Context())
	if err != nil {
		api.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (api *API) getTranscription(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		api.handleError(c, verrors.NewInvalidRequest("transcription id must be an integer"))
		return
	}
	item, err := api.history.GetByID(c.Request.Context(), id)
	if err != nil {
		api.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (api *API) getStats(c *gin.Context) {
	stats, err := api.history.Stats(c.Request.Context())
	if err != nil {
		api.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (api *API) getSettings(c *gin.Context) {
	s, err := api.settings.Get(c.Request.Context())
	if err != nil {
		api.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (api *API) updateSettings(c *gin.Context) {
	var payload settings.Update
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.handleError(c, verrors.NewInvalidRequest("invalid JSON payload"))
		return
	}
	if payload.RecordKey == nil || strings.TrimSpace(*payload.RecordKey) == "" {
		api.handleError(c, verrors.NewInvalidRequest("record_key is required"))
		return
	}
	s, err := api.settings.Update(c.Request.Context(), payload)
	if err != nil {
		api.handleError(c, err)
		return
	}
	api.logger.Info("settings updated", slog.String("record_key", s.RecordKey))
	c.JSON(http.StatusOK, s)
}

// resetSettings restores default settings and clears the history.
func (api *API) resetSettings(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := api.settings.Reset(ctx)
	if err != nil {
		api.handleError(c, err)
		return
	}
	if err := api.history.Clear(ctx); err != nil {
		api.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (api *API) handleError(c *gin.Context, err error) {
	ve := verrors.As(err)
	if ve.Status >= http.StatusInternalServerError {
		api.logger.Error("request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("code", string(ve.Code)),
			slog.Any("error", err),
		)
	}
	c.JSON(verrors.Status(ve), gin.H{
		"code":   ve.Code,
		"detail": ve.Message,
	})
}
