package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/arxaplan/cutout/internal/background"
	"github.com/arxaplan/cutout/internal/providers"
	"github.com/labstack/echo/v4"
)

// GenerateBackgroundProxy keeps provider credentials on the server. It
// accepts {prompt, size} and answers {image, revised_prompt} or {error}.
func (h *Handler) GenerateBackgroundProxy(c echo.Context) error {
	switch c.Request().Method {
	case http.MethodOptions:
		return c.NoContent(http.StatusOK)
	case http.MethodPost:
	default:
		return c.JSON(http.StatusMethodNotAllowed, background.Response{Error: "Method not allowed"})
	}

	if h.background == nil {
		return c.JSON(http.StatusInternalServerError, background.Response{Error: "Image provider not configured on server"})
	}

	var req background.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusInternalServerError, background.Response{Error: bindMessage(err)})
	}

	img, err := h.background.Generate(c.Request().Context(), req)
	if err != nil {
		return c.JSON(proxyStatus(err), background.Response{Error: proxyMessage(err)})
	}

	return c.JSON(http.StatusOK, background.Response{
		Image:         base64.StdEncoding.EncodeToString(img.Data),
		RevisedPrompt: img.RevisedPrompt,
	})
}

func proxyStatus(err error) int {
	var apiErr *providers.Error
	switch {
	case errors.Is(err, background.ErrPromptRequired), errors.Is(err, background.ErrInvalidSize):
		return http.StatusBadRequest
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400:
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}

func proxyMessage(err error) string {
	var apiErr *providers.Error
	var notConfigured *providers.NotConfiguredError
	switch {
	case errors.Is(err, background.ErrPromptRequired):
		return "Prompt is required"
	case errors.As(err, &notConfigured):
		return notConfigured.Error()
	case errors.As(err, &apiErr):
		return apiErr.Message
	}
	return err.Error()
}

// bindMessage unwraps echo's bind error to the underlying parse message
func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Internal != nil {
		return he.Internal.Error()
	}
	return errorMessage(err)
}
