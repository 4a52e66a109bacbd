package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/arxaplan/cutout/internal/batch"
	"github.com/arxaplan/cutout/internal/models"
	"github.com/labstack/echo/v4"
)

// MaxUploadSize is the largest single image accepted
const MaxUploadSize = 25 * 1024 * 1024

// UploadImage replaces the session's document with a multipart "file" or a
// JSON {image_url} and removes its background.
func (h *Handler) UploadImage(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return h.writeError(c, err)
	}

	var name string
	var data []byte
	if strings.Contains(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		name, data, err = h.readURLUpload(c)
	} else {
		name, data, err = readFileUpload(c)
	}
	if err != nil {
		return h.writeError(c, err)
	}

	if err := s.Upload(c.Request().Context(), name, data); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) readURLUpload(c echo.Context) (string, []byte, error) {
	var req models.UploadURLRequest
	if err := c.Bind(&req); err != nil {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return "", nil, err
	}

	download, err := h.fetcher.Fetch(c.Request().Context(), req.ImageURL)
	if err != nil {
		return "", nil, err
	}
	return download.Name, download.Data, nil
}

func readFileUpload(c echo.Context) (string, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "Failed to read file: "+err.Error())
	}
	data, err := readFileHeader(header)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func readFileHeader(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", header.Filename, err)
	}
	if len(data) > MaxUploadSize {
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("File too large (max %dMB)", MaxUploadSize>>20))
	}
	return data, nil
}

// readBatchFiles collects every multipart "files" entry, falling back to "file"
func readBatchFiles(c echo.Context) ([]batch.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Failed to read files: "+err.Error())
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "No files provided")
	}

	files := make([]batch.File, 0, len(headers))
	for _, header := range headers {
		data, err := readFileHeader(header)
		if err != nil {
			return nil, err
		}
		files = append(files, batch.File{Name: header.Filename, Data: data})
	}
	return files, nil
}
