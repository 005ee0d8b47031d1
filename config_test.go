package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "chunkmesh.yaml")
	data := `
render:
  radius: 3
  format: flat
  backend: none
server:
  addr: localhost
  timeout: 2s
logging:
  level: debug
`
	if err := os.WriteFile(p, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Render.Radius != 3 || cfg.Render.Format != "flat" || cfg.Render.Backend != "none" {
		t.Errorf("render = %+v", cfg.Render)
	}
	if cfg.Server.Addr != "localhost" || cfg.Server.Timeout != 2*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	// untouched sections keep their defaults
	if cfg.Window.Width != 800 || cfg.Render.CacheSize != 1024 {
		t.Errorf("defaults lost: window %+v render %+v", cfg.Window, cfg.Render)
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("no error for a missing file")
	}
	p := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(p, []byte("render: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(p); err == nil {
		t.Error("no error for broken yaml")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{"radius", func(c *Config) { c.Render.Radius = 0 }, "radius"},
		{"format", func(c *Config) { c.Render.Format = "wire" }, "render"},
		{"backend", func(c *Config) { c.Render.Backend = "vulkan" }, "backend"},
		{"workers", func(c *Config) { c.Render.Workers = 0 }, "worker"},
		{"batch", func(c *Config) { c.Render.Batch = 0 }, "batch"},
		{"cell", func(c *Config) { c.Texture.CellTexels = 0 }, "cell_texels"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging"},
		{"window", func(c *Config) { c.Window.Height = -1 }, "window"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("no error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
