package presets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()

	expected := []string{"studio", "nature", "city", "office", "gradient", "beach", "marble", "neon"}
	if len(c.Backgrounds) != len(expected) {
		t.Fatalf("Expected %d presets, got %d", len(expected), len(c.Backgrounds))
	}
	for i, id := range expected {
		if c.Backgrounds[i].ID != id {
			t.Errorf("Expected preset %d to be %s, got %s", i, id, c.Backgrounds[i].ID)
		}
	}
	if len(c.Colors) == 0 || c.Colors[0] != "#ffffff" {
		t.Errorf("Expected palette to start with white, got %v", c.Colors)
	}
}

func TestFind(t *testing.T) {
	c := Default()

	b, ok := c.Find("Beach")
	if !ok {
		t.Fatal("Expected to find beach")
	}
	if b.Prompt == "" {
		t.Error("Expected beach to carry a prompt")
	}

	if _, ok := c.Find("moon"); ok {
		t.Error("Expected unknown preset to be absent")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "missing prompt", data: "backgrounds:\n  - id: a\n"},
		{name: "duplicate id", data: "backgrounds:\n  - {id: a, prompt: x}\n  - {id: a, prompt: y}\n"},
		{name: "not yaml", data: "backgrounds: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte("backgrounds:\n  - {id: space, label: Space, prompt: stars}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b, ok := c.Find("space"); !ok || b.Prompt != "stars" {
		t.Errorf("Expected space preset, got %+v", b)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected missing file to fail")
	}
}
