package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/arxaplan/cutout/internal/background"
	"github.com/arxaplan/cutout/internal/batch"
	"github.com/arxaplan/cutout/internal/editor"
	"github.com/arxaplan/cutout/internal/history"
	"github.com/arxaplan/cutout/internal/images"
	"github.com/arxaplan/cutout/internal/models"
	"github.com/arxaplan/cutout/internal/photo"
	"github.com/arxaplan/cutout/internal/presets"
	"github.com/arxaplan/cutout/internal/providers"
	"github.com/arxaplan/cutout/internal/removal"
	"github.com/arxaplan/cutout/internal/render"
	"github.com/arxaplan/cutout/internal/report"
	"github.com/arxaplan/cutout/internal/share"
	"github.com/arxaplan/cutout/internal/storage"
	"github.com/arxaplan/cutout/internal/upscale"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

var errNotFound = errors.New("not found")

// Config carries the collaborators the API is built from. Nil fields are
// optional except Remover.
type Config struct {
	Remover    removal.Remover
	Background *background.Service
	// Generator overrides Background as the editor's AI background source
	Generator editor.BackgroundGenerator
	Presets   *presets.Catalog
	History   *report.Log
	Share     *share.Service
	Fetcher   *images.Fetcher
	Workers   int
}

type Handler struct {
	ctx        context.Context
	sessions   *storage.Store[*editor.Session]
	batches    *storage.Store[*batch.Session]
	remover    removal.Remover
	background *background.Service
	generator  editor.BackgroundGenerator
	presets    *presets.Catalog
	history    *report.Log
	share      *share.Service
	fetcher    *images.Fetcher
	workers    int
}

// New creates a handler. ctx bounds background batch processing.
func New(ctx context.Context, cfg Config) *Handler {
	h := &Handler{
		ctx:        ctx,
		sessions:   storage.New[*editor.Session](),
		batches:    storage.New[*batch.Session](),
		remover:    cfg.Remover,
		background: cfg.Background,
		generator:  cfg.Generator,
		presets:    cfg.Presets,
		history:    cfg.History,
		share:      cfg.Share,
		fetcher:    cfg.Fetcher,
		workers:    cfg.Workers,
	}
	if h.generator == nil && h.background != nil {
		h.generator = h.background
	}
	if h.presets == nil {
		h.presets = presets.Default()
	}
	if h.history == nil {
		h.history = report.NewLog()
	}
	if h.share == nil {
		h.share = share.NewService(nil, 0)
	}
	if h.fetcher == nil {
		h.fetcher = images.NewFetcher()
	}
	return h
}

// Close releases every open session and batch
func (h *Handler) Close() {
	for id := range h.sessions.GetAll() {
		if s, ok := h.sessions.Delete(id); ok {
			s.Close()
		}
	}
	for id := range h.batches.GetAll() {
		if b, ok := h.batches.Delete(id); ok {
			b.Clear()
		}
	}
}

// History is the processing log shared by every session
func (h *Handler) History() *report.Log {
	return h.history
}

func statusFor(err error) int {
	var svcErr *removal.ServiceError
	var apiErr *providers.Error
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, errNotFound), errors.Is(err, batch.ErrNotFound), errors.Is(err, editor.ErrClosed), errors.Is(err, photo.ErrReleased):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrInvalidInput),
		errors.Is(err, photo.ErrNotImage),
		errors.Is(err, photo.ErrTooLarge),
		errors.Is(err, photo.ErrQuality),
		errors.Is(err, render.ErrInvalidParams),
		errors.Is(err, images.ErrInvalidURL),
		errors.Is(err, images.ErrTooLarge),
		errors.Is(err, background.ErrPromptRequired),
		errors.Is(err, background.ErrInvalidSize),
		errors.Is(err, batch.ErrBatchFull):
		return http.StatusBadRequest
	case errors.Is(err, editor.ErrBusy),
		errors.Is(err, editor.ErrStale),
		errors.Is(err, editor.ErrAlreadyHD),
		errors.Is(err, history.ErrNothingToUndo),
		errors.Is(err, history.ErrNothingToRedo),
		errors.Is(err, batch.ErrAlreadyProcessing):
		return http.StatusConflict
	case errors.Is(err, editor.ErrNotReady),
		errors.Is(err, render.ErrNoSurface),
		errors.Is(err, upscale.ErrNoSurface):
		return http.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrNoGenerator),
		errors.Is(err, removal.ErrNotConfigured),
		errors.Is(err, providers.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &svcErr), errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorMessage(err error) string {
	var svcErr *removal.ServiceError
	if errors.As(err, &svcErr) {
		return removal.Message(err, removal.FallbackMessage)
	}
	var apiErr *providers.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}

// writeError maps err onto a status and an {"error": ...} body. Server side
// failures are reported to Sentry.
func (h *Handler) writeError(c echo.Context, err error) error {
	code := statusFor(err)
	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		slog.Error("Request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
		if hub := sentryecho.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
	} else {
		slog.Warn("Request rejected", "method", c.Request().Method, "path", c.Path(), "status", code, "err", err)
	}
	return c.JSON(code, models.ErrorResponse{Error: errorMessage(err)})
}

func (h *Handler) getSession(c echo.Context) (*editor.Session, error) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Session not found")
	}
	return s, nil
}

func (h *Handler) getBatch(c echo.Context) (*batch.Session, error) {
	b, ok := h.batches.Get(c.Param("id"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Batch not found")
	}
	return b, nil
}
