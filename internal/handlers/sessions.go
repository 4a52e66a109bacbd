package handlers

import (
	"net/http"
	"sort"

	"github.com/arxaplan/cutout/internal/editor"
	"github.com/arxaplan/cutout/internal/models"
	"github.com/arxaplan/cutout/internal/render"
	"github.com/labstack/echo/v4"
)

func (h *Handler) SessionRoutes(g *echo.Group) {
	g.POST("", h.CreateSession)
	g.GET("", h.ListSessions)
	g.GET("/:id", h.GetSession)
	g.DELETE("/:id", h.DeleteSession)
	g.POST("/:id/upload", h.UploadImage)
	g.POST("/:id/upscale", h.Upscale)
	g.POST("/:id/background", h.GenerateBackground)
	g.PUT("/:id/settings", h.UpdateSettings)
	g.POST("/:id/reset", h.ResetAdjustments)
	g.POST("/:id/undo", h.Undo)
	g.POST("/:id/redo", h.Redo)
	g.GET("/:id/preview", h.Preview)
	g.GET("/:id/export", h.Export)
	g.POST("/:id/share", h.Share)
}

func (h *Handler) newSession() *editor.Session {
	opts := []editor.Option{editor.WithRecorder(h.history)}
	if h.generator != nil {
		opts = append(opts, editor.WithGenerator(h.generator))
	}
	s := editor.New(h.remover, opts...)
	h.sessions.Set(s.ID, s)
	return s
}

func (h *Handler) CreateSession(c echo.Context) error {
	s := h.newSession()
	return c.JSON(http.StatusCreated, s.Snapshot())
}

func (h *Handler) ListSessions(c echo.Context) error {
	sessions := h.sessions.GetAll()
	list := make([]editor.State, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, s.Snapshot())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetSession(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) DeleteSession(c echo.Context) error {
	s, ok := h.sessions.Delete(c.Param("id"))
	if !ok {
		return h.writeError(c, echo.NewHTTPError(http.StatusNotFound, "Session not found"))
	}
	s.Close()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}

	var req models.SettingsRequest
	if err := c.Bind(&req); err != nil {
		return h.writeError(c, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return h.writeError(c, err)
	}

	u, err := settingsFromRequest(req)
	if err != nil {
		return h.writeError(c, err)
	}
	if err := s.Apply(u); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

func settingsFromRequest(req models.SettingsRequest) (editor.Settings, error) {
	u := editor.Settings{
		Color:           req.BackgroundColor,
		Feather:         req.Feather,
		ComparePosition: req.ComparePosition,
	}
	if req.ViewMode != nil {
		mode := editor.ViewMode(*req.ViewMode)
		u.ViewMode = &mode
	}
	if req.Tool != nil {
		tool := editor.Tool(*req.Tool)
		u.Tool = &tool
	}
	if req.Filters != nil {
		u.Filters = &render.Filters{
			Brightness: req.Filters.Brightness,
			Contrast:   req.Filters.Contrast,
			Saturation: req.Filters.Saturation,
		}
	}
	if req.Shadow != nil {
		sh := render.Shadow{
			OffsetX: req.Shadow.OffsetX,
			OffsetY: req.Shadow.OffsetY,
			Blur:    req.Shadow.Blur,
		}
		if req.Shadow.Color != "" {
			col, err := render.ParseHexColor(req.Shadow.Color)
			if err != nil {
				return u, echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			sh.Color = col
		}
		u.Shadow = &sh
	}
	return u, nil
}

func (h *Handler) ResetAdjustments(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}
	s.ResetAdjustments()
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) Undo(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if err := s.Undo(); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) Redo(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if err := s.Redo(); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}
