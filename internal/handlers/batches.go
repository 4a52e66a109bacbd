package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/arxaplan/cutout/internal/batch"
	"github.com/arxaplan/cutout/internal/models"
	"github.com/arxaplan/cutout/internal/photo"
	"github.com/labstack/echo/v4"
)

func (h *Handler) BatchRoutes(g *echo.Group) {
	g.POST("", h.CreateBatch)
	g.GET("/:id", h.GetBatch)
	g.DELETE("/:id", h.DeleteBatch)
	g.POST("/:id/files", h.AddBatchFiles)
	g.POST("/:id/process", h.ProcessBatch)
	g.GET("/:id/downloads", h.BatchDownloads)
	g.DELETE("/:id/items/:item", h.RemoveBatchItem)
	g.GET("/:id/items/:item/download", h.DownloadBatchItem)
}

func batchResponse(b *batch.Session) models.BatchResponse {
	st := b.Snapshot()
	return models.BatchResponse{
		ID:         st.ID,
		Items:      st.Items,
		Counts:     st.Counts,
		Processing: st.Processing,
	}
}

func (h *Handler) CreateBatch(c echo.Context) error {
	b := batch.New(h.remover, batch.WithWorkers(h.workers), batch.WithRecorder(h.history))
	h.batches.Set(b.ID, b)
	return c.JSON(http.StatusCreated, batchResponse(b))
}

func (h *Handler) GetBatch(c echo.Context) error {
	b, err := h.getBatch(c)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, batchResponse(b))
}

func (h *Handler) DeleteBatch(c echo.Context) error {
	b, ok := h.batches.Delete(c.Param("id"))
	if !ok {
		return h.writeError(c, echo.NewHTTPError(http.StatusNotFound, "Batch not found"))
	}
	b.Clear()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddBatchFiles(c echo.Context) error {
	b, err := h.getBatch(c)
	if err != nil {
		return h.writeError(c, err)
	}

	files, err := readBatchFiles(c)
	if err != nil {
		return h.writeError(c, err)
	}

	result, err := b.Add(files)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ProcessBatch starts processing every pending item and returns at once.
// Progress is read back with GetBatch.
func (h *Handler) ProcessBatch(c echo.Context) error {
	b, err := h.getBatch(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if b.Processing() {
		return h.writeError(c, batch.ErrAlreadyProcessing)
	}

	go h.processBatch(h.ctx, b)

	return c.JSON(http.StatusAccepted, batchResponse(b))
}

func (h *Handler) processBatch(ctx context.Context, b *batch.Session) {
	start := time.Now()
	if err := b.ProcessAll(ctx); err != nil {
		if !errors.Is(err, batch.ErrAlreadyProcessing) {
			slog.Error("Batch processing failed", "batch", b.ID, "err", err)
		}
		return
	}
	counts := b.Counts()
	slog.Info("Batch processed", "batch", b.ID, "done", counts.Done, "failed", counts.Error, "duration", time.Since(start))
}

func (h *Handler) RemoveBatchItem(c echo.Context) error {
	b, err := h.getBatch(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if err := b.Remove(c.Param("item")); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, batchResponse(b))
}

func (h *Handler) DownloadBatchItem(c echo.Context) error {
	b, err := h.getBatch(c)
	if err != nil {
		return h.writeError(c, err)
	}

	item, ok := b.Item(c.Param("item"))
	if !ok {
		return h.writeError(c, batch.ErrNotFound)
	}
	if item.Status != batch.StatusDone {
		return h.writeError(c, echo.NewHTTPError(http.StatusConflict, "Item has not been processed"))
	}

	data, err := item.Processed.Encoded()
	if err != nil {
		return h.writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", batch.DownloadName(item.Name)))
	return c.Blob(http.StatusOK, photo.FormatPNG.MIMEType(), data)
}

// BatchDownloads returns the staggered download plan. ?stagger= is in
// milliseconds.
func (h *Handler) BatchDownloads(c echo.Context) error {
	b, err := h.getBatch(c)
	if err != nil {
		return h.writeError(c, err)
	}

	var stagger time.Duration
	if v := c.QueryParam("stagger"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return h.writeError(c, echo.NewHTTPError(http.StatusBadRequest, "stagger must be a non-negative integer"))
		}
		stagger = time.Duration(ms) * time.Millisecond
	}

	downloads, err := b.Downloads(stagger)
	if err != nil {
		return h.writeError(c, err)
	}

	plan := make([]models.DownloadPlan, 0, len(downloads))
	for _, d := range downloads {
		plan = append(plan, models.DownloadPlan{
			ItemID:  d.ItemID,
			Name:    d.Name,
			URL:     fmt.Sprintf("/api/batches/%s/items/%s/download", b.ID, d.ItemID),
			DelayMS: d.Delay.Milliseconds(),
		})
	}
	return c.JSON(http.StatusOK, plan)
}
