package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arxaplan/cutout/internal/models"
	"github.com/arxaplan/cutout/internal/report"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// MaxBodySize bounds request bodies, uploads included
const MaxBodySize = "50M"

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// ServerOptions toggle optional middleware
type ServerOptions struct {
	// Sentry installs the sentry echo middleware; sentry.Init must already have run
	Sentry bool
}

// SetupServer builds the echo instance with every API route registered
func SetupServer(h *Handler, opts ServerOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				slog.Error("Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "err", v.Error)
				return nil
			}
			slog.Info("Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	if opts.Sentry {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(middleware.BodyLimit(MaxBodySize))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/generate-bg")
		},
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	e.GET("/healthcheck", h.Healthcheck)
	e.GET("/open", h.OpenImage)

	api := e.Group("/api")
	api.GET("/presets", h.ListPresets)
	api.GET("/stats", h.Stats)

	generateGroup := api.Group("/generate-bg", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	generateGroup.Any("", h.GenerateBackgroundProxy)

	h.SessionRoutes(api.Group("/sessions"))
	h.BatchRoutes(api.Group("/batches"))

	return e
}

// errorHandler renders echo's own errors (unknown route, bad method, body
// too large) in the API's error shape.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}
	if code == http.StatusMethodNotAllowed {
		message = "Method not allowed"
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, models.ErrorResponse{Error: message})
	}
	if err != nil {
		slog.Error("Failed to write error response", "err", err)
	}
}

func (h *Handler) Healthcheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListPresets(c echo.Context) error {
	return c.JSON(http.StatusOK, h.presets)
}

func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, models.StatsResponse{
		Stats:  h.history.Stats(),
		Recent: h.history.Recent(report.RecentLimit),
	})
}
