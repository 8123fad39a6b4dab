package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitriwamback/cs-dge-library-system/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_Defaults_When_No_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := config.Load(config.Input{WorkDirOverride: dir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.DataDirAbs, filepath.Join(dir, ".library"); got != want {
		t.Fatalf("DataDirAbs=%q, want %q", got, want)
	}

	if got, want := cfg.Workers, 8; got != want {
		t.Fatalf("Workers=%d, want %d", got, want)
	}

	if got, want := cfg.Timeout, 5*time.Second; got != want {
		t.Fatalf("Timeout=%s, want %s", got, want)
	}

	if got, want := cfg.Level, slog.LevelWarn; got != want {
		t.Fatalf("Level=%s, want %s", got, want)
	}

	if cfg.Location != time.Local {
		t.Fatalf("Location=%v, want Local", cfg.Location)
	}

	if cfg.Sources.Global != "" || cfg.Sources.Project != "" {
		t.Fatalf("Sources=%+v, want none", cfg.Sources)
	}
}

func TestLoad_Precedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := t.TempDir()

	writeFile(t, filepath.Join(xdg, "library", "config.json"), `{
		// global
		"data_dir": "global-data",
		"workers": 2,
		"time_zone": "UTC",
	}`)
	writeFile(t, filepath.Join(dir, config.FileName), `{"data_dir": "project-data", "lock_timeout": "250ms"}`)
	writeFile(t, filepath.Join(dir, "explicit.json"), `{"log_level": "info"}`)

	env := map[string]string{"XDG_CONFIG_HOME": xdg, "HOME": "/nonexistent"}

	tests := []struct {
		name        string
		input       config.Input
		wantDataDir string
		wantWorkers int
		wantTimeout time.Duration
		wantLevel   slog.Level
		wantProject string
	}{
		{
			name:        "GlobalThenProject",
			input:       config.Input{WorkDirOverride: dir, Env: env},
			wantDataDir: filepath.Join(dir, "project-data"),
			wantWorkers: 2,
			wantTimeout: 250 * time.Millisecond,
			wantLevel:   slog.LevelWarn,
			wantProject: filepath.Join(dir, config.FileName),
		},
		{
			name:        "ExplicitReplacesProject",
			input:       config.Input{WorkDirOverride: dir, ConfigPath: "explicit.json", Env: env},
			wantDataDir: filepath.Join(dir, "global-data"),
			wantWorkers: 2,
			wantTimeout: 5 * time.Second,
			wantLevel:   slog.LevelInfo,
			wantProject: filepath.Join(dir, "explicit.json"),
		},
		{
			name:        "FlagsWin",
			input:       config.Input{WorkDirOverride: dir, DataDirOverride: "/abs/data", Verbose: true, Env: env},
			wantDataDir: "/abs/data",
			wantWorkers: 2,
			wantTimeout: 250 * time.Millisecond,
			wantLevel:   slog.LevelDebug,
			wantProject: filepath.Join(dir, config.FileName),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Load(tt.input)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			if got := cfg.DataDirAbs; got != tt.wantDataDir {
				t.Fatalf("DataDirAbs=%q, want %q", got, tt.wantDataDir)
			}

			if got := cfg.Workers; got != tt.wantWorkers {
				t.Fatalf("Workers=%d, want %d", got, tt.wantWorkers)
			}

			if got := cfg.Timeout; got != tt.wantTimeout {
				t.Fatalf("Timeout=%s, want %s", got, tt.wantTimeout)
			}

			if got := cfg.Level; got != tt.wantLevel {
				t.Fatalf("Level=%s, want %s", got, tt.wantLevel)
			}

			if got := cfg.Location.String(); got != "UTC" {
				t.Fatalf("Location=%s, want UTC", got)
			}

			if got, want := cfg.Sources.Global, filepath.Join(xdg, "library", "config.json"); got != want {
				t.Fatalf("Sources.Global=%q, want %q", got, want)
			}

			if got := cfg.Sources.Project; got != tt.wantProject {
				t.Fatalf("Sources.Project=%q, want %q", got, tt.wantProject)
			}
		})
	}
}

func TestLoad_Falls_Back_To_Home_Config(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	writeFile(t, filepath.Join(home, ".config", "library", "config.json"), `{"workers": 3}`)

	cfg, err := config.Load(config.Input{WorkDirOverride: t.TempDir(), Env: map[string]string{"HOME": home}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.Workers, 3; got != want {
		t.Fatalf("Workers=%d, want %d", got, want)
	}
}

func TestLoad_Rejects_Invalid_Config(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"EmptyDataDir", `{"data_dir": ""}`, config.ErrDataDirEmpty},
		{"ZeroWorkers", `{"workers": 0}`, config.ErrWorkersInvalid},
		{"NegativeWorkers", `{"workers": -2}`, config.ErrWorkersInvalid},
		{"BadTimeout", `{"lock_timeout": "soon"}`, config.ErrLockTimeoutInvalid},
		{"NegativeTimeout", `{"lock_timeout": "-1s"}`, config.ErrLockTimeoutInvalid},
		{"BadLevel", `{"log_level": "loud"}`, config.ErrLogLevelInvalid},
		{"BadZone", `{"time_zone": "Mars/Olympus_Mons"}`, config.ErrTimeZoneInvalid},
		{"BadJSON", `{"data_dir": `, config.ErrConfigInvalid},
		{"NotAnObject", `["data_dir"]`, config.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, config.FileName), tt.content)

			_, err := config.Load(config.Input{WorkDirOverride: dir, Env: map[string]string{}})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v, want %v", err, tt.wantErr)
			}

			if !errors.Is(err, config.ErrConfigInvalid) {
				t.Fatalf("err=%v, want it to wrap %v", err, config.ErrConfigInvalid)
			}
		})
	}
}

func TestLoad_Explicit_Config_Must_Exist(t *testing.T) {
	t.Parallel()

	_, err := config.Load(config.Input{WorkDirOverride: t.TempDir(), ConfigPath: "missing.json", Env: map[string]string{}})
	if !errors.Is(err, config.ErrConfigFileNotFound) {
		t.Fatalf("err=%v, want %v", err, config.ErrConfigFileNotFound)
	}
}
