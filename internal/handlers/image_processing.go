package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/arxaplan/cutout/internal/editor"
	"github.com/arxaplan/cutout/internal/models"
	"github.com/arxaplan/cutout/internal/photo"
	"github.com/labstack/echo/v4"
)

func (h *Handler) Upscale(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}

	slog.Info("Upscaling session", "session", s.ID)
	if err := s.Upscale(c.Request().Context()); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) GenerateBackground(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}

	var req models.BackgroundRequest
	if err := c.Bind(&req); err != nil {
		return h.writeError(c, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body"))
	}

	prompt := strings.TrimSpace(req.Prompt)
	if req.Preset != "" {
		preset, ok := h.presets.Find(req.Preset)
		if !ok {
			return h.writeError(c, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Unknown preset: %s", req.Preset)))
		}
		prompt = preset.Prompt
	}
	if prompt == "" {
		return h.writeError(c, echo.NewHTTPError(http.StatusBadRequest, "Prompt is required"))
	}

	slog.Info("Generating AI background", "session", s.ID, "preset", req.Preset)
	if err := s.GenerateBackground(c.Request().Context(), prompt); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) Preview(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}

	data, err := s.PreviewPNG()
	if err != nil {
		return h.writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, photo.FormatPNG.MIMEType(), data)
}

func (h *Handler) Export(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}

	opts, err := exportOptions(
		c.QueryParam("format"),
		c.QueryParam("quality"),
		c.QueryParam("width"),
		c.QueryParam("height"),
	)
	if err != nil {
		return h.writeError(c, err)
	}

	artifact, name, err := s.Export(opts)
	if err != nil {
		return h.writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, artifact.MIMEType, artifact.Data)
}

func (h *Handler) Share(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}

	var req models.ShareRequest
	if err := c.Bind(&req); err != nil {
		return h.writeError(c, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return h.writeError(c, err)
	}

	format, err := photo.ParseFormat(req.Format)
	if err != nil {
		return h.writeError(c, fmt.Errorf("%w: %v", editor.ErrInvalidInput, err))
	}

	artifact, name, err := s.Export(editor.ExportOptions{
		Format:  format,
		Quality: req.Quality,
		Width:   req.Width,
		Height:  req.Height,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	link, err := h.share.Share(c.Request().Context(), name, artifact.Data, artifact.MIMEType)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, link)
}

// exportOptions parses the export query. Empty values keep the defaults.
func exportOptions(format, quality, width, height string) (editor.ExportOptions, error) {
	var opts editor.ExportOptions

	f, err := photo.ParseFormat(format)
	if err != nil {
		return opts, fmt.Errorf("%w: %v", editor.ErrInvalidInput, err)
	}
	opts.Format = f

	for _, p := range []struct {
		name  string
		value string
		dst   *int
	}{
		{"quality", quality, &opts.Quality},
		{"width", width, &opts.Width},
		{"height", height, &opts.Height},
	} {
		if p.value == "" {
			continue
		}
		n, err := strconv.Atoi(p.value)
		if err != nil {
			return opts, fmt.Errorf("%w: %s must be an integer", editor.ErrInvalidInput, p.name)
		}
		*p.dst = n
	}
	return opts, nil
}
