package config

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/menta2k/pair-labeler/pkg/session"
	"github.com/menta2k/pair-labeler/pkg/types"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.Canvas.Epsilon != 10 {
		t.Errorf("Expected epsilon 10, got %v", cfg.Canvas.Epsilon)
	}
	if !cfg.Image.StoreData {
		t.Error("Expected store_data enabled by default")
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Canvas.UndoDepth != 1 || cfg.Image.JPEGQuality != 95 || cfg.Log.Mode != "debug" {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
	if len(cfg.Colors.Line) != 4 || cfg.Colors.Line[1] != 255 {
		t.Errorf("Expected default line colour, got %v", cfg.Colors.Line)
	}
}

func TestLoadYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	yaml := `
canvas:
  epsilon: 4.5
  undo_depth: 3
  keep_previous: true
labels:
  validate: instance
  known: [car, house]
  flags:
    - pattern: car
      flags: [occluded, truncated]
    - pattern: "House.*"
      flags: [damaged]
image:
  store_data: false
output:
  dir: /labels
colors:
  line: [10, 20, 30]
`
	_ = afero.WriteFile(fs, "/etc/labelpair.yaml", []byte(yaml), 0644)

	cfg, err := Load(fs, "/etc/labelpair.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Canvas.Epsilon != 4.5 || cfg.Canvas.UndoDepth != 3 || !cfg.Canvas.KeepPrevious {
		t.Errorf("Unexpected canvas config %+v", cfg.Canvas)
	}
	if cfg.Image.StoreData {
		t.Error("Expected store_data to be disabled")
	}
	if cfg.Image.JPEGQuality != 95 {
		t.Errorf("Expected default quality to survive, got %d", cfg.Image.JPEGQuality)
	}
	if len(cfg.Labels.Flags) != 2 || cfg.Labels.Flags[1].Pattern != "House.*" {
		t.Errorf("Expected flag patterns to keep their case, got %+v", cfg.Labels.Flags)
	}

	opts, err := cfg.SessionOptions()
	if err != nil {
		t.Fatalf("SessionOptions failed: %v", err)
	}
	if opts.ValidateMode != session.ValidateInstance {
		t.Errorf("Expected instance validation, got %q", opts.ValidateMode)
	}
	if opts.LineColor != types.RGBA(10, 20, 30, 255) {
		t.Errorf("Expected opaque line colour, got %v", opts.LineColor)
	}
	if opts.FillColor != types.RGBA(255, 0, 0, 128) {
		t.Errorf("Expected default fill colour, got %v", opts.FillColor)
	}
	if got := opts.LabelFlags["car"]; len(got) != 2 || got[0] != "occluded" {
		t.Errorf("Unexpected label flags %v", opts.LabelFlags)
	}
	if opts.OutputDir != "/labels" || opts.StoreData {
		t.Errorf("Unexpected output options %+v", opts)
	}
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	if _, err := Load(fs, "/missing.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}

	_ = afero.WriteFile(fs, "/bad.yaml", []byte("canvas:\n  undo_depth: 0\n"), 0644)
	if _, err := Load(fs, "/bad.yaml"); err == nil {
		t.Error("Expected validation error for undo_depth 0")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Config)
	}{
		{"epsilon", func(c *Config) { c.Canvas.Epsilon = 0 }},
		{"quality", func(c *Config) { c.Image.JPEGQuality = 101 }},
		{"mode", func(c *Config) { c.Labels.Validate = "fuzzy" }},
		{"known", func(c *Config) { c.Labels.Validate = "exact" }},
		{"pattern", func(c *Config) { c.Labels.Flags = []LabelFlagRule{{Flags: []string{"x"}}} }},
		{"line", func(c *Config) { c.Colors.Line = []int{1, 2} }},
		{"fill", func(c *Config) { c.Colors.Fill = []int{1, 2, 300} }},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.modify(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
