package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go-looper/controls"
	"go-looper/debug"
)

// OutputKind selects where played events go
type OutputKind string

const (
	OutputMelty OutputKind = "melty" // built-in soundfont synth
	OutputPort  OutputKind = "port"  // external MIDI output
)

// KeyboardConfig selects which input ports are treated as keyboards.
// Patterns are case-insensitive substrings of the port name.
type KeyboardConfig struct {
	Match   []string `json:"match,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// OutputConfig defines the synth output
type OutputConfig struct {
	Kind      OutputKind `json:"kind"`
	SoundFont string     `json:"soundFont,omitempty"`
	PortName  string     `json:"portName,omitempty"`
	Channel   int        `json:"channel,omitempty"` // effect sends on a port
}

// ClockConfig sets the tick resolution and playback callback period
type ClockConfig struct {
	TicksPerSecond int64 `json:"ticksPerSecond"`
	Period         int64 `json:"period"`
}

// LogConfig enables the debug log
type LogConfig struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette string `json:"palette,omitempty"` // GIMP .gpl file
}

// Config is the main configuration structure
type Config struct {
	Keyboard KeyboardConfig    `json:"keyboard,omitempty"`
	Output   OutputConfig      `json:"output"`
	Clock    ClockConfig       `json:"clock"`
	Splits   int               `json:"splits,omitempty"` // 0 disables keyboard splits
	Controls map[string]string `json:"controls,omitempty"`
	Log      LogConfig         `json:"log,omitempty"`
	UI       UIConfig          `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Keyboard: KeyboardConfig{
			Exclude: []string{"midi through", "rtmidi"},
		},
		Output: OutputConfig{
			Kind: OutputMelty,
		},
		Clock: ClockConfig{
			TicksPerSecond: 1000,
			Period:         50,
		},
		Controls: controls.DefaultMap().Strings(),
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-looper"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// SessionsDir returns where looper sessions are saved
func SessionsDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Fields missing from the file keep
// their defaults; a missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			debug.Log("config", "no config at %s, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	// A controls table in the file replaces the default one rather than
	// merging into it.
	cfg.Controls = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Controls == nil {
		cfg.Controls = controls.DefaultMap().Strings()
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports every problem with the config.
func (c *Config) Validate() error {
	var errs []error
	switch c.Output.Kind {
	case OutputMelty:
		if c.Output.SoundFont == "" {
			errs = append(errs, errors.New("output: melty needs a soundFont path"))
		}
	case OutputPort:
		if c.Output.PortName == "" {
			errs = append(errs, errors.New("output: port needs a portName"))
		}
		if c.Output.Channel < 0 || c.Output.Channel > 15 {
			errs = append(errs, fmt.Errorf("output: channel %d out of range 0-15", c.Output.Channel))
		}
	default:
		errs = append(errs, fmt.Errorf("output: unknown kind %q", c.Output.Kind))
	}
	if c.Clock.TicksPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("clock: ticksPerSecond must be positive, got %d", c.Clock.TicksPerSecond))
	}
	if c.Clock.Period <= 0 {
		errs = append(errs, fmt.Errorf("clock: period must be positive, got %d", c.Clock.Period))
	}
	if c.Splits != 0 && c.Splits != controls.NumSplits {
		errs = append(errs, fmt.Errorf("splits: %w: %d", controls.ErrSplitCount, c.Splits))
	}
	if _, err := controls.ParseMap(c.Controls); err != nil {
		errs = append(errs, fmt.Errorf("controls: %w", err))
	}
	if _, err := debug.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	return errors.Join(errs...)
}

// ControlMap parses the controller table. An empty table means the default.
func (c *Config) ControlMap() (controls.Map, error) {
	if len(c.Controls) == 0 {
		return controls.DefaultMap(), nil
	}
	return controls.ParseMap(c.Controls)
}
