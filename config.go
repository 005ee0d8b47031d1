package main

import (
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/icexin/chunkmesh/mesh"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var (
	configPath   = flag.String("config", "", "config file, chunkmesh.yaml in the working directory if present")
	texturePath  = flag.String("t", "texture.png", "texture file")
	descPath     = flag.String("desc", "", "block texture descriptor (yaml)")
	renderRadius = flag.Int("r", 6, "render radius")
	dbpath       = flag.String("db", "chunkmesh.db", "db file name")
	serverAddr   = flag.String("s", "", "server address")
	pprofPort    = flag.String("pprof", "", "http pprof port")
	backend      = flag.String("backend", "gl", "gpu backend: gl, webgpu or none")
	vertexFormat = flag.String("format", "textured", "vertex format: textured or flat")
	workers      = flag.Int("workers", 0, "meshing workers")
	seed         = flag.Int64("seed", 0, "world seed")
	logLevel     = flag.String("log", "info", "log level")
	bake         = flag.Bool("bake", false, "mesh the chunks around the origin without a window and exit")
)

const defaultConfigFile = "chunkmesh.yaml"

type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Render  RenderConfig  `yaml:"render"`
	Texture TextureConfig `yaml:"texture"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	World   WorldConfig   `yaml:"world"`
	Logging LoggingConfig `yaml:"logging"`
	Pprof   string        `yaml:"pprof"`
}

type WindowConfig struct {
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	VSync  bool `yaml:"vsync"`
}

type RenderConfig struct {
	Radius  int    `yaml:"radius"` // in chunks
	Format  string `yaml:"format"`
	Backend string `yaml:"backend"`
	Workers int    `yaml:"workers"`
	Queue   int    `yaml:"queue"`
	// models kept on the GPU, also the ones out of view
	CacheSize int `yaml:"cache_size"`
	// chunks submitted for meshing per update
	Batch int `yaml:"batch"`
}

type TextureConfig struct {
	Atlas      string `yaml:"atlas"`
	CellTexels uint32 `yaml:"cell_texels"`
	Desc       string `yaml:"desc"`
}

type StoreConfig struct {
	Path   string `yaml:"path"`
	NoSync bool   `yaml:"nosync"`
}

type ServerConfig struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

type WorldConfig struct {
	Seed int64 `yaml:"seed"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			VSync:  true,
		},
		Render: RenderConfig{
			Radius:    6,
			Format:    "textured",
			Backend:   "gl",
			Workers:   runtime.NumCPU(),
			Queue:     64,
			CacheSize: 1024,
			Batch:     4,
		},
		Texture: TextureConfig{
			Atlas:      "texture.png",
			CellTexels: 16,
		},
		Store: StoreConfig{
			Path:   "chunkmesh.db",
			NoSync: true,
		},
		Server: ServerConfig{
			Timeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// LoadConfig returns the defaults overlaid with the file at path. An empty
// path tries chunkmesh.yaml and falls back to the defaults when it is absent.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return cfg, nil
		}
		path = defaultConfigFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// applyFlags copies the flags given on the command line over cfg. Flags
// left at their default do not override the file.
func applyFlags(cfg *Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.Texture.Atlas = *texturePath
		case "desc":
			cfg.Texture.Desc = *descPath
		case "r":
			cfg.Render.Radius = *renderRadius
		case "db":
			cfg.Store.Path = *dbpath
		case "s":
			cfg.Server.Addr = *serverAddr
		case "pprof":
			cfg.Pprof = *pprofPort
		case "backend":
			cfg.Render.Backend = *backend
		case "format":
			cfg.Render.Format = *vertexFormat
		case "workers":
			cfg.Render.Workers = *workers
		case "seed":
			cfg.World.Seed = *seed
		case "log":
			cfg.Logging.Level = *logLevel
		}
	})
}

func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("bad window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Render.Radius < 1 || c.Render.Radius > 32 {
		return errors.Errorf("render radius %d out of range [1, 32]", c.Render.Radius)
	}
	if _, err := mesh.ParseFormat(c.Render.Format); err != nil {
		return errors.Wrap(err, "render")
	}
	switch c.Render.Backend {
	case "gl", "webgpu", "none":
	default:
		return errors.Errorf("unknown backend %q", c.Render.Backend)
	}
	if c.Render.Workers < 1 {
		return errors.Errorf("need at least one worker, got %d", c.Render.Workers)
	}
	if c.Render.Queue < 1 || c.Render.CacheSize < 1 || c.Render.Batch < 1 {
		return errors.New("render queue, cache_size and batch must be positive")
	}
	if c.Texture.CellTexels == 0 {
		return errors.New("texture cell_texels must be positive")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, "logging")
	}
	return nil
}
