// Package config resolves the library CLI configuration from defaults, JSONC
// config files and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tailscale/hujson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	DataDir     string `json:"data_dir"`
	Workers     int    `json:"workers,omitempty"`
	LockTimeout string `json:"lock_timeout,omitempty"`
	LogLevel    string `json:"log_level,omitempty"`
	TimeZone    string `json:"time_zone,omitempty"`

	// Resolved values (computed, not serialized)
	EffectiveCwd string         `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	DataDirAbs   string         `json:"-"` // Absolute path to the data directory
	Timeout      time.Duration  `json:"-"` // Parsed LockTimeout
	Level        slog.Level     `json:"-"` // Parsed LogLevel
	Location     *time.Location `json:"-"` // Loaded TimeZone, time.Local when unset

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project or explicit config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DataDir:     ".library",
		Workers:     8,
		LockTimeout: "5s",
		LogLevel:    "warn",
	}
}

// FileName is the default project config file name.
const FileName = ".library.json"

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/library/config.json if set, otherwise
// ~/.config/library/config.json. Empty if neither variable is set.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "library", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "library", "config.json")
	}

	return ""
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	DataDirOverride string            // --data-dir flag value; empty means no override
	Verbose         bool              // -v/--verbose forces debug logging
	Env             map[string]string // environment variables
}

// Load resolves configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config
// 3. Project config file (.library.json, if exists)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. CLI overrides.
func Load(input Input) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	} else if !filepath.IsAbs(workDir) {
		abs, err := filepath.Abs(workDir)
		if err != nil {
			return Config{}, fmt.Errorf("cannot resolve %s: %w", workDir, err)
		}

		workDir = abs
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		globalCfg, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = merge(cfg, globalCfg)
		}
	}

	projectFile, mustExist := filepath.Join(workDir, FileName), false

	if input.ConfigPath != "" {
		projectFile, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(projectFile) {
			projectFile = filepath.Join(workDir, projectFile)
		}
	}

	projectCfg, loaded, err := loadFile(projectFile, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg.Sources.Project = projectFile
		cfg = merge(cfg, projectCfg)
	}

	if input.DataDirOverride != "" {
		cfg.DataDir = input.DataDirOverride
	}

	if input.Verbose {
		cfg.LogLevel = "debug"
	}

	err = resolve(&cfg, workDir)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return cfg, nil
}

// loadFile loads a config file. If mustExist is false, a missing file
// yields a zero config and loaded=false.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}

			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigFileRead, path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// Keys present with an empty or zero value would be dropped by merge;
	// reject them here instead.
	var raw map[string]any

	err = json.Unmarshal(standardized, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if val, ok := raw["data_dir"]; ok && val == "" {
		return Config{}, ErrDataDirEmpty
	}

	if _, ok := raw["workers"]; ok && cfg.Workers < 1 {
		return Config{}, ErrWorkersInvalid
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.DataDir != "" {
		base.DataDir = overlay.DataDir
	}

	if overlay.Workers != 0 {
		base.Workers = overlay.Workers
	}

	if overlay.LockTimeout != "" {
		base.LockTimeout = overlay.LockTimeout
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.TimeZone != "" {
		base.TimeZone = overlay.TimeZone
	}

	return base
}

// resolve validates cfg and fills in the computed fields.
func resolve(cfg *Config, workDir string) error {
	if cfg.DataDir == "" {
		return ErrDataDirEmpty
	}

	if cfg.Workers < 1 {
		return ErrWorkersInvalid
	}

	timeout, err := time.ParseDuration(cfg.LockTimeout)
	if err != nil || timeout <= 0 {
		return fmt.Errorf("%w: %q", ErrLockTimeoutInvalid, cfg.LockTimeout)
	}

	var level slog.Level

	err = level.UnmarshalText([]byte(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrLogLevelInvalid, cfg.LogLevel)
	}

	loc := time.Local
	if cfg.TimeZone != "" {
		loc, err = time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrTimeZoneInvalid, cfg.TimeZone)
		}
	}

	cfg.EffectiveCwd = workDir
	cfg.Timeout = timeout
	cfg.Level = level
	cfg.Location = loc

	if filepath.IsAbs(cfg.DataDir) {
		cfg.DataDirAbs = cfg.DataDir
	} else {
		cfg.DataDirAbs = filepath.Join(workDir, cfg.DataDir)
	}

	return nil
}
