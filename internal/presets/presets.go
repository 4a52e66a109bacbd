package presets

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresets []byte

// Background is a named AI background prompt
type Background struct {
	ID     string `yaml:"id" json:"id"`
	Label  string `yaml:"label" json:"label"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// Catalog holds the AI background presets and the solid colour palette
type Catalog struct {
	Backgrounds []Background `yaml:"backgrounds" json:"backgrounds"`
	Colors      []string     `yaml:"colors" json:"colors"`
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := Parse(defaultPresets)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded presets: %v", err))
	}
	return c
}

// Load reads a catalog from path, or the built-in one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	seen := make(map[string]bool, len(c.Backgrounds))
	for _, b := range c.Backgrounds {
		if b.ID == "" || b.Prompt == "" {
			return nil, fmt.Errorf("preset %q needs an id and a prompt", b.Label)
		}
		if seen[b.ID] {
			return nil, fmt.Errorf("duplicate preset id %q", b.ID)
		}
		seen[b.ID] = true
	}
	return &c, nil
}

// Find looks a background preset up by id, case-insensitively
func (c *Catalog) Find(id string) (Background, bool) {
	for _, b := range c.Backgrounds {
		if strings.EqualFold(b.ID, id) {
			return b, true
		}
	}
	return Background{}, false
}
