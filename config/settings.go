// Package config loads the settings of stage programs from TOML or YAML files.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Window struct {
	Title      string `toml:"title" yaml:"title"`
	Width      int    `toml:"width" yaml:"width"`
	Height     int    `toml:"height" yaml:"height"`
	VSync      bool   `toml:"vsync" yaml:"vsync"`
	Fullscreen bool   `toml:"fullscreen" yaml:"fullscreen"`
}

type Frame struct {
	// MaxDelta is a duration string such as "100ms".
	MaxDelta string `toml:"max_delta" yaml:"max_delta"`
	// GCEvery requests a garbage collection every n frames; 0 disables it.
	GCEvery int `toml:"gc_every" yaml:"gc_every"`
}

type Pipeline struct {
	ShadowMapSize int        `toml:"shadow_map_size" yaml:"shadow_map_size"`
	ClearColor    [4]float32 `toml:"clear_color" yaml:"clear_color"`
}

type Assets struct {
	Dir string `toml:"dir" yaml:"dir"`
}

type Log struct {
	Level string `toml:"level" yaml:"level"`
}

// Settings holds everything a demo program reads at startup.
type Settings struct {
	Window   Window   `toml:"window" yaml:"window"`
	Frame    Frame    `toml:"frame" yaml:"frame"`
	Pipeline Pipeline `toml:"pipeline" yaml:"pipeline"`
	Assets   Assets   `toml:"assets" yaml:"assets"`
	Log      Log      `toml:"log" yaml:"log"`
}

func Defaults() Settings {
	return Settings{
		Window:   Window{Title: "stage", Width: 1280, Height: 720, VSync: true},
		Frame:    Frame{MaxDelta: "100ms"},
		Pipeline: Pipeline{ShadowMapSize: 1024, ClearColor: [4]float32{0.1, 0.1, 0.1, 1}},
		Assets:   Assets{Dir: "assets"},
		Log:      Log{Level: "info"},
	}
}

type Format int

const (
	TOML Format = iota
	YAML
)

// FormatFor picks the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return 0, fmt.Errorf("unsupported settings file extension %q", filepath.Ext(path))
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	s := Defaults()
	format, err := FormatFor(path)
	if err != nil {
		return s, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := Decode(data, format, &s); err != nil {
		return s, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return s, s.Validate()
}

func Decode(data []byte, format Format, s *Settings) error {
	switch format {
	case TOML:
		return toml.Unmarshal(data, s)
	case YAML:
		return yaml.Unmarshal(data, s)
	}
	return fmt.Errorf("unknown format %d", format)
}

func Encode(s Settings, format Format) ([]byte, error) {
	switch format {
	case TOML:
		return toml.Marshal(s)
	case YAML:
		return yaml.Marshal(s)
	}
	return nil, fmt.Errorf("unknown format %d", format)
}

// Save writes s to path in the format of its extension.
func Save(s Settings, path string) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Encode(s, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s Settings) Validate() error {
	if s.Window.Width <= 0 || s.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", s.Window.Width, s.Window.Height)
	}
	if _, err := s.MaxDelta(); err != nil {
		return err
	}
	if _, err := s.LogLevel(); err != nil {
		return err
	}
	return nil
}

// MaxDelta parses Frame.MaxDelta. An empty value means no clamp.
func (s Settings) MaxDelta() (time.Duration, error) {
	if s.Frame.MaxDelta == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Frame.MaxDelta)
	if err != nil {
		return 0, fmt.Errorf("invalid frame.max_delta: %w", err)
	}
	return d, nil
}

func (s Settings) LogLevel() (slog.Level, error) {
	var level slog.Level
	if s.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level: %w", err)
	}
	return level, nil
}

// Logger returns a text logger writing to w at the configured level.
func (s Settings) Logger(w io.Writer) *slog.Logger {
	level, err := s.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
