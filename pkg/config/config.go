// Package config loads the gantt configuration file.
//
// The format follows the file extension: .yaml and .yml are YAML, anything
// else is TOML. Every section has defaults, so an empty or missing file is
// a valid configuration.
//
//	[view]
//	zoomLevel = "week"
//	enableDragAndDrop = true
//
//	[host]
//	driver = "sqlite"
//	dsn = "plan.db"
//
//	[host.fields]
//	start = "date_start"
//	end = "date_stop"
//	group = "project"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/pipeline"
	"github.com/matzehuels/gantt/pkg/render/sink"
	"github.com/matzehuels/gantt/pkg/view"
)

// Config is the top-level configuration.
type Config struct {
	View   view.Config  `toml:"view" yaml:"view" json:"view"`
	Host   host.Config  `toml:"host" yaml:"host" json:"host"`
	Render RenderConfig `toml:"render" yaml:"render" json:"render"`
	Server ServerConfig `toml:"server" yaml:"server" json:"server"`
	Events EventsConfig `toml:"events" yaml:"events" json:"events"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache" json:"cache"`
}

// RenderConfig holds output defaults for `gantt render`.
type RenderConfig struct {
	Formats     []string `toml:"formats" yaml:"formats" json:"formats"`
	Theme       string   `toml:"theme" yaml:"theme" json:"theme"`
	Order       string   `toml:"order" yaml:"order" json:"order"`
	Width       float64  `toml:"width" yaml:"width" json:"width"`
	Height      float64  `toml:"height" yaml:"height" json:"height"`
	Columns     int      `toml:"columns" yaml:"columns" json:"columns"`
	Interactive bool     `toml:"interactive" yaml:"interactive" json:"interactive"`
}

// ServerConfig configures `gantt serve`.
type ServerConfig struct {
	Listen string `toml:"listen" yaml:"listen" json:"listen"`

	// Refresh is a cron schedule for reloading items from the host.
	// Empty disables periodic refresh.
	Refresh string `toml:"refresh" yaml:"refresh" json:"refresh"`
}

// EventsConfig configures commit event publishing.
type EventsConfig struct {
	NATSURL string `toml:"nats_url" yaml:"nats_url" json:"nats_url"`
	Subject string `toml:"subject" yaml:"subject" json:"subject"`
}

// CacheConfig selects the render cache.
type CacheConfig struct {
	Disabled  bool   `toml:"disabled" yaml:"disabled" json:"disabled"`
	Dir       string `toml:"dir" yaml:"dir" json:"dir"`
	RedisAddr string `toml:"redis_addr" yaml:"redis_addr" json:"redis_addr"`
}

// Default returns the built-in configuration: an in-memory host with the
// default view settings.
func Default() *Config {
	return &Config{
		View: view.Defaults(),
		Host: host.Config{
			Driver: "memory",
			Fields: host.DefaultFields(),
		},
		Render: RenderConfig{
			Formats: []string{pipeline.FormatSVG},
			Order:   pipeline.DefaultOrder,
			Columns: pipeline.DefaultColumns,
		},
		Server: ServerConfig{
			Listen:  "127.0.0.1:8080",
			Refresh: "*/5 * * * *",
		},
	}
}

// DefaultPath returns the per-user configuration path.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "gantt", "config.toml")
}

// Normalize fills missing values with defaults so partially written files
// still behave.
func (c *Config) Normalize() {
	d := Default()
	if c.Host.Driver == "" {
		c.Host.Driver = d.Host.Driver
	}
	if c.Host.Fields == (host.FieldMap{}) {
		c.Host.Fields = c.View.Fields
	}
	c.Host.Fields = c.Host.Fields.WithDefaults()
	c.View.Fields = c.Host.Fields
	c.View = c.View.Normalize()

	if len(c.Render.Formats) == 0 {
		c.Render.Formats = d.Render.Formats
	}
	if c.Render.Order == "" {
		c.Render.Order = d.Render.Order
	}
	if c.Render.Columns <= 0 {
		c.Render.Columns = d.Render.Columns
	}
	if c.Server.Listen == "" {
		c.Server.Listen = d.Server.Listen
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.View.Validate(); err != nil {
		return err
	}
	if err := c.Host.Fields.Validate(); err != nil {
		return err
	}
	if err := pipeline.ValidateFormats(c.Render.Formats); err != nil {
		return gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "render.formats")
	}
	if _, ok := pipeline.Orders[c.Render.Order]; !ok {
		return gerrors.New(gerrors.ErrCodeInvalidConfig, "render.order: unknown order %q", c.Render.Order)
	}
	if _, ok := sink.ThemeByName(c.Render.Theme); !ok {
		return gerrors.New(gerrors.ErrCodeInvalidConfig, "render.theme: unknown theme %q", c.Render.Theme)
	}
	if c.Server.Refresh != "" {
		if _, err := cron.ParseStandard(c.Server.Refresh); err != nil {
			return gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "server.refresh")
		}
	}
	return nil
}

// Load reads path, normalizes and validates it. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(data, formatOf(path), cfg); err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Format is a configuration file syntax.
type Format string

// Supported formats.
const (
	TOML Format = "toml"
	YAML Format = "yaml"
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return TOML
	}
}

// Decode parses data into cfg. Keys absent from data keep cfg's values.
func Decode(data []byte, f Format, cfg *Config) error {
	if f == YAML {
		return yaml.Unmarshal(data, cfg)
	}
	_, err := toml.Decode(string(data), cfg)
	return err
}

// Encode serializes cfg.
func Encode(cfg *Config, f Format) ([]byte, error) {
	if f == YAML {
		return yaml.Marshal(cfg)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes cfg to path with 0600 permissions, creating parent
// directories.
func Save(path string, cfg *Config) error {
	data, err := Encode(cfg, formatOf(path))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
