package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

// Window holds the window and context settings.
type Window struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Title     string `toml:"title"`
	VSync     bool   `toml:"vsync"`
	Resizable bool   `toml:"resizable"`
}

// Render holds the frame loop settings.
type Render struct {
	// ClearColor is the RGBA background, components in [0,1].
	ClearColor [4]float32 `toml:"clear_color"`
	Scene      string     `toml:"scene"`
	// FPSLimit caps the frame rate; 0 means uncapped.
	FPSLimit int `toml:"fps_limit"`
	// CheckCalls wraps each draw-step driver call with an error check.
	CheckCalls bool `toml:"check_calls"`
	// LogLimit caps the bytes of compiler/linker output fetched per failure.
	LogLimit int `toml:"log_limit"`
}

// Shaders optionally overrides the scene's built-in shader sources.
type Shaders struct {
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
}

// Log holds logging settings.
type Log struct {
	Level string `toml:"level"`
}

// Config is the full application configuration.
type Config struct {
	Window  Window  `toml:"window"`
	Render  Render  `toml:"render"`
	Shaders Shaders `toml:"shaders"`
	Log     Log     `toml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: Window{
			Width:  640,
			Height: 480,
			Title:  "OpenGL Window",
			VSync:  true,
		},
		Render: Render{
			ClearColor: [4]float32{1.0, 0.0, 0.0, 1.0},
			Scene:      "triangle",
			FPSLimit:   0,
			LogLimit:   1024,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads a TOML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	for i, v := range c.Render.ClearColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("clear_color[%d] = %v outside [0,1]", i, v))
		}
	}
	if c.Render.FPSLimit < 0 {
		errs = append(errs, fmt.Errorf("fps_limit must not be negative, got %d", c.Render.FPSLimit))
	}
	if c.Render.LogLimit <= 0 {
		errs = append(errs, fmt.Errorf("log_limit must be positive, got %d", c.Render.LogLimit))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ClearColorVec returns the configured background as a vector.
func (r Render) ClearColorVec() mgl32.Vec4 {
	return mgl32.Vec4(r.ClearColor)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}
