package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// OpenImage creates a session from ?image=<url> and redirects to it, so an
// image can be opened in the editor from a link.
func (h *Handler) OpenImage(c echo.Context) error {
	imageURL := c.QueryParam("image")
	if imageURL == "" {
		return h.writeError(c, echo.NewHTTPError(http.StatusBadRequest, "image parameter is required"))
	}

	download, err := h.fetcher.Fetch(c.Request().Context(), imageURL)
	if err != nil {
		slog.Error("Failed to fetch image from URL", "url", imageURL, "err", err)
		return h.writeError(c, err)
	}

	s := h.newSession()
	if err := s.Upload(c.Request().Context(), download.Name, download.Data); err != nil {
		slog.Error("Failed to create session from URL", "url", imageURL, "err", err)
		return h.writeError(c, err)
	}

	return c.Redirect(http.StatusFound, "/api/sessions/"+s.ID)
}
