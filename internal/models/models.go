package models

import (
	"github.com/arxaplan/cutout/internal/batch"
	"github.com/arxaplan/cutout/internal/report"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadURLRequest uploads an image by URL instead of multipart
type UploadURLRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

// BackgroundRequest asks for an AI background from a prompt or a preset id
type BackgroundRequest struct {
	Prompt string `json:"prompt"`
	Preset string `json:"preset"`
}

type FiltersRequest struct {
	Brightness float64 `json:"brightness" validate:"min=0,max=200"`
	Contrast   float64 `json:"contrast" validate:"min=0,max=200"`
	Saturation float64 `json:"saturation" validate:"min=0,max=200"`
}

// ShadowRequest configures the drop shadow. An empty colour turns it off.
type ShadowRequest struct {
	OffsetX float64 `json:"offset_x" validate:"min=-100,max=100"`
	OffsetY float64 `json:"offset_y" validate:"min=-100,max=100"`
	Blur    float64 `json:"blur" validate:"min=0,max=50"`
	Color   string  `json:"color"`
}

// SettingsRequest is a partial settings update; omitted fields are unchanged
type SettingsRequest struct {
	ViewMode        *string         `json:"view_mode,omitempty"`
	Tool            *string         `json:"active_tool,omitempty"`
	BackgroundColor *string         `json:"background_color,omitempty"`
	Filters         *FiltersRequest `json:"filters,omitempty"`
	Shadow          *ShadowRequest  `json:"shadow,omitempty"`
	Feather         *float64        `json:"feather,omitempty" validate:"omitempty,min=0,max=10"`
	ComparePosition *float64        `json:"compare_position,omitempty" validate:"omitempty,min=0,max=1"`
}

type ShareRequest struct {
	Format  string `json:"format" validate:"omitempty,oneof=png webp jpg jpeg"`
	Quality int    `json:"quality" validate:"omitempty,min=10,max=100"`
	Width   int    `json:"width" validate:"min=0"`
	Height  int    `json:"height" validate:"min=0"`
}

// BatchResponse describes a batch and its items
type BatchResponse struct {
	ID         string       `json:"id"`
	Items      []batch.Item `json:"items"`
	Counts     batch.Counts `json:"counts"`
	Processing bool         `json:"processing"`
}

// DownloadPlan is one entry of a staggered batch download
type DownloadPlan struct {
	ItemID  string `json:"item_id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	DelayMS int64  `json:"delay_ms"`
}

type StatsResponse struct {
	Stats  report.Stats    `json:"stats"`
	Recent []report.Record `json:"recent"`
}
