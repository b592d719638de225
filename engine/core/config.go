package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ApplicationSection struct {
	Name      string `toml:"name"`
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`
	Frames    uint64 `toml:"frames"`
	TargetFPS uint32 `toml:"target_fps"`
}

type LogSection struct {
	Level string `toml:"level"`
}

type RendererSection struct {
	// Backend is either "headless" or "vulkan".
	Backend    string `toml:"backend"`
	Validation bool   `toml:"validation"`
	// Shaper is either "harfbuzz" or "advance".
	Shaper string `toml:"shaper"`
	// DebugFont is the font label debug text is laid out with.
	DebugFont        string `toml:"debug_font"`
	InstanceCapacity uint32 `toml:"instance_capacity"`
	GlyphCapacity    uint32 `toml:"glyph_capacity"`
}

type AtlasSection struct {
	InitialSize uint32 `toml:"initial_size"`
	MaxSize     uint32 `toml:"max_size"`
	Padding     uint32 `toml:"padding"`
}

type AssetsSection struct {
	Dir     string `toml:"dir"`
	Watch   bool   `toml:"watch"`
	Workers int    `toml:"workers"`
}

type TelemetrySection struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
	History  int      `toml:"history"`
}

// Config is the on-disk engine configuration.
type Config struct {
	Application ApplicationSection `toml:"application"`
	Log         LogSection         `toml:"log"`
	Renderer    RendererSection    `toml:"renderer"`
	Atlas       AtlasSection       `toml:"atlas"`
	Assets      AssetsSection      `toml:"assets"`
	Telemetry   TelemetrySection   `toml:"telemetry"`
}

// Duration decodes TOML strings such as "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationSection{
			Name:      "Prism Testbed",
			Width:     1280,
			Height:    720,
			Frames:    0,
			TargetFPS: 60,
		},
		Log: LogSection{Level: "info"},
		Renderer: RendererSection{
			Backend:          "headless",
			Shaper:           "harfbuzz",
			DebugFont:        "debug",
			InstanceCapacity: 1024,
			GlyphCapacity:    4096,
		},
		Atlas: AtlasSection{
			InitialSize: 512,
			MaxSize:     8192,
			Padding:     2,
		},
		Assets: AssetsSection{
			Dir:     "assets",
			Workers: 4,
		},
		Telemetry: TelemetrySection{
			Interval: Duration{time.Second},
			History:  60,
		},
	}
}

// LoadConfig decodes the TOML file at path over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

func (c *Config) Validate() error {
	if !isPowerOfTwo(c.Atlas.InitialSize) || !isPowerOfTwo(c.Atlas.MaxSize) {
		return fmt.Errorf("atlas sizes must be powers of two (initial=%d, max=%d): %w", c.Atlas.InitialSize, c.Atlas.MaxSize, ErrInvalidSize)
	}
	if c.Atlas.InitialSize > c.Atlas.MaxSize {
		return fmt.Errorf("atlas initial size %d exceeds max size %d: %w", c.Atlas.InitialSize, c.Atlas.MaxSize, ErrInvalidSize)
	}
	if c.Atlas.Padding >= c.Atlas.InitialSize {
		return fmt.Errorf("atlas padding %d too large: %w", c.Atlas.Padding, ErrInvalidSize)
	}
	switch c.Renderer.Backend {
	case "headless", "vulkan":
	default:
		return fmt.Errorf("unknown renderer backend %q: %w", c.Renderer.Backend, ErrBackendUnavailable)
	}
	switch c.Renderer.Shaper {
	case "harfbuzz", "advance":
	default:
		return fmt.Errorf("unknown text shaper %q: %w", c.Renderer.Shaper, ErrNotFound)
	}
	if c.Assets.Workers < 1 {
		c.Assets.Workers = 1
	}
	return nil
}
