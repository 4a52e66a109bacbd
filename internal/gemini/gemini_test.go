package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/arxaplan/cutout/internal/providers"
)

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		size     string
		expected string
	}{
		{size: "1024x1024", expected: "1:1"},
		{size: "1792x1024", expected: "16:9"},
		{size: "1024x1792", expected: "9:16"},
		{size: "1024x768", expected: "4:3"},
		{size: "768x1024", expected: "3:4"},
		{size: "", expected: "1:1"},
		{size: "garbage", expected: "1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			if got := AspectRatio(tt.size); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestGenerateImageNotConfigured(t *testing.T) {
	_, err := (&Gemini{}).GenerateImage(context.Background(), providers.Config{Prompt: "x"})
	if !errors.Is(err, providers.ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}
