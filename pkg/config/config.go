// Package config loads and saves the node configuration file.
//
// The file is YAML and is accessed through an afero.Fs, so the console can
// save changes back to disk and tests can run on an in-memory filesystem:
//
//	node:
//	  name: ridge-relay
//	window:
//	  enabled: true
//	  start: "21:00"
//	  end: "23:00"
//	  mode: queue
//	  capacity: 32
//	  expiry: 1h
//	  timezone: Europe/Berlin
//	drain:
//	  tick_interval: 5s
//	  time_budget: 100ms
//	  packet_budget: 10
//	log:
//	  level: info
//	  format: text
//	  event_log: /var/log/txwindow/node.twlog
//	metrics:
//	  listen: ":9109"
//
// Missing keys keep their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/mesh-radio/txwindow/pkg/drain"
	"github.com/mesh-radio/txwindow/pkg/window"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "txwindow.yaml"

// DefaultMetricsListen is the default metrics listen address.
const DefaultMetricsListen = ":9109"

// ErrInvalid is returned (wrapped) for configuration values outside the
// window package's own checks.
var ErrInvalid = errors.New("invalid configuration")

// File is the on-disk configuration.
type File struct {
	Node    NodeSection    `yaml:"node"`
	Window  WindowSection  `yaml:"window"`
	Drain   DrainSection   `yaml:"drain"`
	Log     LogConfig      `yaml:"log"`
	Metrics MetricsSection `yaml:"metrics"`
}

// NodeSection identifies the node.
type NodeSection struct {
	Name string `yaml:"name,omitempty"`
}

// WindowSection mirrors window.Config.
type WindowSection struct {
	Enabled  bool             `yaml:"enabled"`
	Start    window.TimeOfDay `yaml:"start"`
	End      window.TimeOfDay `yaml:"end"`
	Mode     window.Mode      `yaml:"mode"`
	Capacity int              `yaml:"capacity"`
	Expiry   time.Duration    `yaml:"expiry"`

	// Timezone is an IANA name; empty means the host's local zone.
	Timezone string `yaml:"timezone,omitempty"`
}

// DrainSection configures the tick loop and the drain budget.
type DrainSection struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	TimeBudget   time.Duration `yaml:"time_budget"`
	PacketBudget int           `yaml:"packet_budget"`
}

// MetricsSection configures the Prometheus endpoint. An empty Listen
// disables it.
type MetricsSection struct {
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() *File {
	wc := window.DefaultConfig()
	return &File{
		Window: WindowSection{
			Enabled:  wc.Enabled,
			Start:    wc.Start,
			End:      wc.End,
			Mode:     wc.Mode,
			Capacity: wc.Capacity,
			Expiry:   wc.Expiry,
		},
		Drain: DrainSection{
			TickInterval: 5 * time.Second,
			TimeBudget:   drain.DefaultTimeBudget,
			PacketBudget: drain.DefaultPacketBudget,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsSection{
			Listen: DefaultMetricsListen,
		},
	}
}

// Load reads path from fs on top of the defaults and validates the result.
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	f := Default()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return f, nil
}

// LoadOrDefault is like Load but returns the defaults when path does not
// exist.
func LoadOrDefault(fs afero.Fs, path string) (*File, error) {
	f, err := Load(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return f, err
}

// Save writes f to path on fs, creating parent directories.
func Save(fs afero.Fs, path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate checks every section.
func (f *File) Validate() error {
	if _, err := f.WindowConfig(); err != nil {
		return err
	}
	if f.Drain.TickInterval < 0 || f.Drain.TimeBudget < 0 || f.Drain.PacketBudget < 0 {
		return fmt.Errorf("%w: drain values must not be negative", ErrInvalid)
	}
	if _, err := ParseLevel(f.Log.Level); err != nil {
		return err
	}
	return nil
}

// WindowConfig converts the window section, applying queue defaults and
// validating the result.
func (f *File) WindowConfig() (window.Config, error) {
	cfg := window.Config{
		Enabled:  f.Window.Enabled,
		Start:    f.Window.Start,
		End:      f.Window.End,
		Mode:     f.Window.Mode,
		Capacity: f.Window.Capacity,
		Expiry:   f.Window.Expiry,
	}
	if f.Window.Timezone != "" {
		loc, err := time.LoadLocation(f.Window.Timezone)
		if err != nil {
			return window.Config{}, fmt.Errorf("%w: timezone %q: %w", ErrInvalid, f.Window.Timezone, err)
		}
		cfg.Location = loc
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return window.Config{}, err
	}
	return cfg, nil
}

// SetWindowConfig stores cfg in the window section. The timezone name is
// kept unless cfg carries a different named location.
func (f *File) SetWindowConfig(cfg window.Config) {
	f.Window.Enabled = cfg.Enabled
	f.Window.Start = cfg.Start
	f.Window.End = cfg.End
	f.Window.Mode = cfg.Mode
	f.Window.Capacity = cfg.Capacity
	f.Window.Expiry = cfg.Expiry
	if cfg.Location != nil && cfg.Location != time.Local && cfg.Location.String() != f.Window.Timezone {
		f.Window.Timezone = cfg.Location.String()
	}
}

// DrainBudget returns the drain budget.
func (f *File) DrainBudget() drain.Budget {
	return drain.Budget{Time: f.Drain.TimeBudget, Packets: f.Drain.PacketBudget}
}
